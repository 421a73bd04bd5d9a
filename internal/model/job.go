// Package model defines the canonical job record shared by the source
// adapters, the aggregator and the store.
package model

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

// Source identifiers, one per upstream job board.
const (
	SourceRemotive  = "remotive"
	SourceRemoteOK  = "remoteok"
	SourceArbeitnow = "arbeitnow"
)

var knownSources = map[string]bool{
	SourceRemotive:  true,
	SourceRemoteOK:  true,
	SourceArbeitnow: true,
}

// IsKnownSource reports whether name is one of the adapter identifiers.
func IsKnownSource(name string) bool { return knownSources[name] }

// MinTime is the earliest representable UTC timestamp. Jobs without a usable
// publication date carry it so they sort last.
var MinTime = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)

// Job is a normalised offer fetched from an external job board.
// Optional string fields are empty when the upstream did not provide them.
type Job struct {
	Title           string    `json:"title"`
	CompanyName     string    `json:"company_name,omitempty"`
	Location        string    `json:"location,omitempty"`
	URL             string    `json:"url"`
	Source          string    `json:"source"`
	JobID           string    `json:"job_id"`
	PublicationDate time.Time `json:"publication_date"`
	Tags            []string  `json:"tags"`
	Salary          string    `json:"salary,omitempty"`
	JobType         string    `json:"job_type,omitempty"`
	ScrapedAt       time.Time `json:"scraped_at,omitempty"`
}

// StoredJob is a persisted Job together with its storage row id.
type StoredJob struct {
	ID int64 `json:"id"`
	Job
}

// MakeJobID builds the natural key "{source}-{upstream id}".
func MakeJobID(source, upstreamID string) string {
	return source + "-" + upstreamID
}

// NormalizeTime returns t in UTC. The zero time maps to MinTime.
// Applying it twice yields the same value.
func NormalizeTime(t time.Time) time.Time {
	if t.IsZero() {
		return MinTime
	}
	return t.UTC()
}

// MaxFieldLength matches the VARCHAR(512) columns of the jobs table.
const MaxFieldLength = 512

// Validate checks the required fields of a Job before it is persisted.
func (j Job) Validate() error {
	if strings.TrimSpace(j.Title) == "" {
		return &ValidationError{Field: "title", Msg: "must not be empty"}
	}
	if j.JobID == "" {
		return &ValidationError{Field: "job_id", Msg: "must not be empty"}
	}
	for _, f := range []struct{ name, val string }{
		{"title", j.Title},
		{"job_id", j.JobID},
		{"job_type", j.JobType},
	} {
		if n := utf8.RuneCountInString(f.val); n > MaxFieldLength {
			return &ValidationError{Field: f.name, Msg: fmt.Sprintf("%d characters exceeds %d", n, MaxFieldLength)}
		}
	}
	if !IsKnownSource(j.Source) {
		return &ValidationError{Field: "source", Msg: fmt.Sprintf("unknown source %q", j.Source)}
	}
	if !IsAbsoluteURL(j.URL) {
		return &ValidationError{Field: "url", Msg: fmt.Sprintf("%q is not an absolute URL", j.URL)}
	}
	return nil
}

// IsAbsoluteURL reports whether raw parses as an http(s) URL with a host.
func IsAbsoluteURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// ValidationError describes the first invalid field of a Job.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string { return e.Field + ": " + e.Msg }
