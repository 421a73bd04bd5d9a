// Package aggregator merges the output of every source adapter into one
// deduplicated list ordered by publication date, most recent first.
package aggregator

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"jobmate/aggregator-service/internal/logger"
	"jobmate/aggregator-service/internal/metrics"
	"jobmate/aggregator-service/internal/model"
	"jobmate/aggregator-service/internal/source"
)

// Options tunes aggregation behaviour.
type Options struct {
	// DedupeByURL additionally drops jobs whose URL was already seen under a
	// different job_id. Off by default: the store's unique url constraint is
	// the final guard.
	DedupeByURL bool
}

// Aggregator fans a query out to every adapter and merges the results.
type Aggregator struct {
	adapters []source.Adapter
	opts     Options
	log      logger.Logger
	metrics  *metrics.Metrics
}

// New returns an Aggregator over adapters. Their order fixes the merge order
// and therefore the tie-break order for equal publication dates.
func New(adapters []source.Adapter, opts Options, log logger.Logger, m *metrics.Metrics) *Aggregator {
	return &Aggregator{
		adapters: adapters,
		opts:     opts,
		log:      log.With(logger.Component("aggregator")),
		metrics:  m,
	}
}

// Aggregate never fails; in the worst case it returns an empty slice.
func (a *Aggregator) Aggregate(ctx context.Context, query string) []model.Job {
	start := time.Now()
	a.log.Info("starting aggregation", logger.String(logger.FieldQuery, query))

	merged := a.fetchAll(ctx, query)
	for i := range merged {
		merged[i].PublicationDate = model.NormalizeTime(merged[i].PublicationDate)
	}

	unique := a.dedupe(merged)
	SortByRecency(unique)

	a.log.Info("aggregation complete",
		logger.String(logger.FieldQuery, query),
		logger.Int("fetched", len(merged)),
		logger.Int("unique", len(unique)),
		logger.Duration("elapsed", time.Since(start)),
	)
	a.metrics.Aggregated(len(unique))
	return unique
}

// fetchAll runs one goroutine per adapter. Each writes only its own slot, so
// the merge order depends on registration order, not completion order.
func (a *Aggregator) fetchAll(ctx context.Context, query string) []model.Job {
	results := make([][]model.Job, len(a.adapters))

	var g errgroup.Group
	for i, ad := range a.adapters {
		g.Go(func() error {
			results[i] = a.safeFetch(ctx, ad, query)
			return nil
		})
	}
	_ = g.Wait()

	total := 0
	for _, r := range results {
		total += len(r)
	}
	merged := make([]model.Job, 0, total)
	for _, r := range results {
		merged = append(merged, r...)
	}
	return merged
}

// safeFetch contains a misbehaving adapter so it cannot take down its siblings.
func (a *Aggregator) safeFetch(ctx context.Context, ad source.Adapter, query string) (jobs []model.Job) {
	defer func() {
		if r := recover(); r != nil {
			a.log.Error("adapter panicked",
				logger.Source(ad.Name()),
				logger.Error(fmt.Errorf("panic: %v", r)),
			)
			a.metrics.SourceFailed(ad.Name())
			jobs = nil
		}
	}()
	return ad.Fetch(ctx, query)
}

// dedupe keeps the first occurrence of every job_id and drops jobs without one.
func (a *Aggregator) dedupe(jobs []model.Job) []model.Job {
	seenIDs := make(map[string]bool, len(jobs))
	seenURLs := make(map[string]string)
	unique := make([]model.Job, 0, len(jobs))

	for _, j := range jobs {
		if j.JobID == "" {
			a.log.Warn("skipping job with missing job_id",
				logger.String(logger.FieldTitle, j.Title),
				logger.Source(j.Source),
			)
			continue
		}
		if seenIDs[j.JobID] {
			a.log.Debug("duplicate job_id, keeping first occurrence", logger.String(logger.FieldJobID, j.JobID))
			continue
		}
		if a.opts.DedupeByURL && j.URL != "" {
			if prev, ok := seenURLs[j.URL]; ok {
				a.log.Debug("duplicate url, keeping first occurrence",
					logger.String(logger.FieldJobID, j.JobID),
					logger.String("kept_job_id", prev),
					logger.String(logger.FieldURL, j.URL),
				)
				continue
			}
			seenURLs[j.URL] = j.JobID
		}
		seenIDs[j.JobID] = true
		unique = append(unique, j)
	}
	return unique
}

// SortByRecency orders jobs by publication date, newest first. The sort is
// stable: jobs with equal dates keep their input order.
func SortByRecency(jobs []model.Job) {
	sort.SliceStable(jobs, func(i, k int) bool {
		return jobs[i].PublicationDate.After(jobs[k].PublicationDate)
	})
}
