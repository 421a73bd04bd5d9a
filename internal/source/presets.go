package source

import (
	"time"

	"github.com/tidwall/gjson"

	"jobmate/aggregator-service/internal/logger"
	"jobmate/aggregator-service/internal/metrics"
	"jobmate/aggregator-service/internal/model"
)

const (
	RemotiveURL  = "https://remotive.com/api/remote-jobs"
	RemoteOKURL  = "https://remoteok.com/api"
	ArbeitnowURL = "https://www.arbeitnow.com/api/job-board-api"

	arbeitnowMaxPages = 3
)

// Options carries the settings shared by all boards plus per-board URL
// overrides. Empty URLs select the public endpoints.
type Options struct {
	UserAgent    string
	Timeout      time.Duration
	Retries      int
	RemotiveURL  string
	RemoteOKURL  string
	ArbeitnowURL string
}

// RemotiveConfig filters server-side through the "search" parameter.
func RemotiveConfig(opts Options) BoardConfig {
	return BoardConfig{
		Name:       model.SourceRemotive,
		BaseURL:    orDefault(opts.RemotiveURL, RemotiveURL),
		UserAgent:  opts.UserAgent,
		Timeout:    opts.Timeout,
		Retries:    opts.Retries,
		QueryMode:  QueryServer,
		QueryParam: "search",
		ItemsPath:  "jobs",
		DateFormat: DateISO,
		Fields: FieldMap{
			ID:       []string{"id"},
			Title:    []string{"title"},
			Company:  []string{"company_name"},
			Location: []string{"candidate_required_location"},
			URL:      []string{"url"},
			Date:     []string{"publication_date"},
			Tags:     []string{"tags"},
			Salary:   []string{"salary"},
			JobType:  []string{"job_type"},
		},
	}
}

// RemoteOKConfig returns the whole feed; the first array element is a legal
// notice, not a listing.
func RemoteOKConfig(opts Options) BoardConfig {
	return BoardConfig{
		Name:       model.SourceRemoteOK,
		BaseURL:    orDefault(opts.RemoteOKURL, RemoteOKURL),
		UserAgent:  opts.UserAgent,
		Timeout:    opts.Timeout,
		Retries:    opts.Retries,
		QueryMode:  QueryNone,
		DateFormat: DateEpoch,
		Skip: func(item gjson.Result) bool {
			return item.IsObject() && item.Get("legal").Exists()
		},
		Fields: FieldMap{
			ID:       []string{"id"},
			Title:    []string{"position", "title"},
			Company:  []string{"company"},
			Location: []string{"location"},
			URL:      []string{"url", "apply_url"},
			Date:     []string{"epoch", "date"},
			Tags:     []string{"tags"},
			Salary:   []string{"salary"},
			JobType:  []string{"type"},
		},
	}
}

// ArbeitnowConfig only supports filtering by title substring.
func ArbeitnowConfig(opts Options) BoardConfig {
	return BoardConfig{
		Name:       model.SourceArbeitnow,
		BaseURL:    orDefault(opts.ArbeitnowURL, ArbeitnowURL),
		UserAgent:  opts.UserAgent,
		Timeout:    opts.Timeout,
		Retries:    opts.Retries,
		QueryMode:  QueryTitle,
		ItemsPath:  "data",
		NextPath:   "links.next",
		MaxPages:   arbeitnowMaxPages,
		DateFormat: DateEpoch,
		Fields: FieldMap{
			ID:       []string{"slug", "id"},
			Title:    []string{"title"},
			Company:  []string{"company_name", "company"},
			Location: []string{"location"},
			URL:      []string{"url"},
			Date:     []string{"created_at"},
			Tags:     []string{"tags"},
			Salary:   []string{"salary"},
			JobType:  []string{"job_types.0", "type"},
		},
	}
}

// NewAdapters builds the three boards in their fixed invocation order.
func NewAdapters(opts Options, log logger.Logger, m *metrics.Metrics) []Adapter {
	return []Adapter{
		NewBoard(RemotiveConfig(opts), log, m),
		NewBoard(RemoteOKConfig(opts), log, m),
		NewBoard(ArbeitnowConfig(opts), log, m),
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
