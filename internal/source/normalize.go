package source

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/tidwall/gjson"

	"jobmate/aggregator-service/internal/logger"
	"jobmate/aggregator-service/internal/model"
)

var (
	errNotObject    = errors.New("item is not an object")
	errMissingTitle = errors.New("missing title")
)

// isoLayouts are tried in order. Layouts without a zone parse as UTC.
var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// normalize maps one upstream item onto the canonical Job.
func (b *Board) normalize(item gjson.Result) (model.Job, error) {
	if !item.IsObject() {
		return model.Job{}, errNotObject
	}
	f := b.cfg.Fields

	title := firstString(item, f.Title)
	if title == "" {
		return model.Job{}, errMissingTitle
	}
	rawURL := firstString(item, f.URL)
	if !model.IsAbsoluteURL(rawURL) {
		return model.Job{}, fmt.Errorf("invalid url %q", rawURL)
	}

	return model.Job{
		Title:           title,
		CompanyName:     firstString(item, f.Company),
		Location:        firstString(item, f.Location),
		URL:             rawURL,
		Source:          b.cfg.Name,
		JobID:           b.jobID(item, rawURL),
		PublicationDate: parseTimestamp(first(item, f.Date), b.cfg.DateFormat),
		Tags:            parseTags(first(item, f.Tags)),
		Salary:          firstString(item, f.Salary),
		JobType:         firstString(item, f.JobType),
	}, nil
}

// jobID returns "{source}-{upstream id}". Without an upstream id the key is
// derived from the URL, or from the clock as a last resort; neither is
// guaranteed stable across runs, so both are logged.
func (b *Board) jobID(item gjson.Result, rawURL string) string {
	if id := firstString(item, b.cfg.Fields.ID); id != "" {
		return model.MakeJobID(b.cfg.Name, id)
	}

	var synthetic string
	if rawURL != "" {
		synthetic = "u" + strconv.FormatUint(xxhash.Sum64String(rawURL), 16)
	} else {
		synthetic = "t" + strconv.FormatInt(b.now().UnixNano(), 10)
	}
	id := model.MakeJobID(b.cfg.Name, synthetic)
	b.log.Warn("upstream item has no identifier, synthesized job_id",
		logger.String(logger.FieldJobID, id),
		logger.String(logger.FieldURL, rawURL),
	)
	return id
}

// first returns the first path that resolves to a non-null value.
func first(item gjson.Result, paths []string) gjson.Result {
	for _, p := range paths {
		if r := item.Get(p); r.Exists() && r.Type != gjson.Null {
			return r
		}
	}
	return gjson.Result{}
}

// firstString returns the first non-blank scalar value among paths.
func firstString(item gjson.Result, paths []string) string {
	for _, p := range paths {
		r := item.Get(p)
		if !r.Exists() || r.Type == gjson.Null || r.IsObject() || r.IsArray() {
			continue
		}
		if s := strings.TrimSpace(r.String()); s != "" {
			return s
		}
	}
	return ""
}

// parseTimestamp accepts ISO-8601 (with or without zone) and Unix epoch
// seconds or milliseconds, as a number or numeric string. Unusable input yields the zero time.
func parseTimestamp(r gjson.Result, preferred DateFormat) time.Time {
	switch r.Type {
	case gjson.Number:
		return epoch(r.Int())
	case gjson.String:
		s := strings.TrimSpace(r.Str)
		if preferred == DateEpoch {
			if t, ok := parseEpochString(s); ok {
				return t
			}
			return parseISO(s)
		}
		if t := parseISO(s); !t.IsZero() {
			return t
		}
		if t, ok := parseEpochString(s); ok {
			return t
		}
	}
	return time.Time{}
}

func parseISO(s string) time.Time {
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func parseEpochString(s string) (time.Time, bool) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return epoch(n), true
}

// epochMillisThreshold separates seconds from milliseconds: 1e12 seconds is
// past the year 33000, 1e12 milliseconds is September 2001.
const epochMillisThreshold = 1_000_000_000_000

func epoch(n int64) time.Time {
	switch {
	case n <= 0:
		return time.Time{}
	case n >= epochMillisThreshold:
		return time.UnixMilli(n).UTC()
	default:
		return time.Unix(n, 0).UTC()
	}
}

// parseTags accepts a JSON array of strings or a pre-joined comma string.
func parseTags(r gjson.Result) []string {
	switch {
	case r.IsArray():
		tags := make([]string, 0)
		for _, t := range r.Array() {
			if t.IsObject() || t.IsArray() {
				continue
			}
			if s := strings.TrimSpace(t.String()); s != "" {
				tags = append(tags, s)
			}
		}
		return tags
	case r.Type == gjson.String:
		return model.SplitTags(r.Str)
	default:
		return []string{}
	}
}
