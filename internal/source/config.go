package source

import (
	"time"

	"github.com/tidwall/gjson"
)

const (
	// DefaultTimeout bounds a single upstream request.
	DefaultTimeout   = 15 * time.Second
	DefaultUserAgent = "JobScraperBot/1.0"
)

// QueryMode says how a board applies the free-text search query.
type QueryMode int

const (
	// QueryNone ignores the query; the board returns its whole feed.
	QueryNone QueryMode = iota
	// QueryServer sends the query as URL parameter QueryParam.
	QueryServer
	// QueryTitle keeps items whose title contains the query (case-insensitive).
	QueryTitle
)

// DateFormat is the timestamp representation a board normally uses. The
// parser still falls back to the other representation on schema drift.
type DateFormat int

const (
	DateISO DateFormat = iota
	DateEpoch
)

// FieldMap lists, per canonical field, the gjson paths to try in order.
type FieldMap struct {
	ID       []string
	Title    []string
	Company  []string
	Location []string
	URL      []string
	Date     []string
	Tags     []string
	Salary   []string
	JobType  []string
}

// BoardConfig is everything needed to talk to one job board.
type BoardConfig struct {
	Name       string
	BaseURL    string
	UserAgent  string
	Timeout    time.Duration
	Retries    int
	QueryMode  QueryMode
	QueryParam string
	// ItemsPath locates the listing array; empty means the payload itself.
	ItemsPath string
	// NextPath locates the next page URL. Empty disables pagination.
	NextPath   string
	MaxPages   int
	Fields     FieldMap
	DateFormat DateFormat
	// Skip drops items that are not listings (e.g. a metadata header).
	Skip func(item gjson.Result) bool
}

func (c *BoardConfig) setDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.MaxPages < 1 {
		c.MaxPages = 1
	}
}
