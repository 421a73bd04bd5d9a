// Package runs tracks aggregation pipeline runs.
//
// Valid status graph:
//
//	QUEUED ──► RUNNING ──► SUCCEEDED
//	               │
//	               └──────► FAILED
//
// SUCCEEDED and FAILED are terminal states.
package runs

import (
	"errors"
	"fmt"
	"time"
)

// Status of a pipeline run.
type Status string

const (
	StatusQueued    Status = "QUEUED"
	StatusRunning   Status = "RUNNING"
	StatusSucceeded Status = "SUCCEEDED"
	StatusFailed    Status = "FAILED"
)

var validTransitions = map[Status][]Status{
	StatusQueued:  {StatusRunning, StatusFailed},
	StatusRunning: {StatusSucceeded, StatusFailed},
}

// ErrNotFound is returned when a run is unknown or has expired.
var ErrNotFound = errors.New("run not found")

// ParseStatus converts a raw string to a Status, returning an error for
// unknown values.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	switch st {
	case StatusQueued, StatusRunning, StatusSucceeded, StatusFailed:
		return st, nil
	}
	return "", fmt.Errorf("unknown run status %q", s)
}

// IsTransitionAllowed returns true when moving from → to is permitted.
func IsTransitionAllowed(from, to Status) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible from s.
func IsTerminal(s Status) bool { return s == StatusSucceeded || s == StatusFailed }

// Run is the externally visible record of one pipeline execution.
type Run struct {
	ID         string     `json:"id"`
	Query      string     `json:"query"`
	Status     Status     `json:"status"`
	Fetched    int        `json:"fetched"`
	Inserted   int        `json:"inserted"`
	Message    string     `json:"message,omitempty"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Transition moves r to the given status, returning an error if the state
// machine forbids it.
func (r *Run) Transition(to Status) error {
	if !IsTransitionAllowed(r.Status, to) {
		return fmt.Errorf("run %s: transition %s → %s not allowed", r.ID, r.Status, to)
	}
	r.Status = to
	return nil
}
