// Package source implements the job-board adapters. Every upstream is served
// by the same Board type; what differs between boards is a BoardConfig.
package source

import (
	"context"

	"jobmate/aggregator-service/internal/model"
)

// Adapter fetches listings from one upstream job board and returns them in
// the canonical shape. Fetch never returns an error: a failed request yields
// an empty slice and a logged diagnostic.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context, query string) []model.Job
}
