// Package retention removes stale postings from the store.
package retention

import (
	"context"
	"time"

	"jobmate/aggregator-service/internal/logger"
	"jobmate/aggregator-service/internal/metrics"
)

// DefaultMaxAge keeps two weeks of postings.
const DefaultMaxAge = 14 * 24 * time.Hour

// Deleter is satisfied by *store.Repository.
type Deleter interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Cleaner deletes jobs whose publication date is older than maxAge.
type Cleaner struct {
	db      Deleter
	maxAge  time.Duration
	log     logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewCleaner returns a Cleaner. A non-positive maxAge falls back to
// DefaultMaxAge.
func NewCleaner(db Deleter, maxAge time.Duration, log logger.Logger, m *metrics.Metrics) *Cleaner {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Cleaner{
		db:      db,
		maxAge:  maxAge,
		log:     log.With(logger.Component("retention")),
		metrics: m,
		now:     time.Now,
	}
}

// Run deletes every job published before now - maxAge and returns how many
// rows were removed.
func (c *Cleaner) Run(ctx context.Context) (int64, error) {
	cutoff := c.now().UTC().Add(-c.maxAge)
	n, err := c.db.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		c.log.Error("error deleting old jobs", logger.Time("cutoff", cutoff), logger.Error(err))
		return 0, err
	}
	c.log.Info("deleted old jobs",
		logger.Int64(logger.FieldCount, n),
		logger.Time("cutoff", cutoff),
	)
	c.metrics.Deleted(n)
	return n, nil
}
