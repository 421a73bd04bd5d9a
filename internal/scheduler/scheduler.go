// Package scheduler wires up the cron jobs that periodically trigger the
// aggregation pipeline and the retention cleanup.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"jobmate/aggregator-service/internal/logger"
	"jobmate/aggregator-service/internal/pipeline"
)

// DefaultCleanupSpec runs retention daily at midnight UTC.
const DefaultCleanupSpec = "0 0 * * *"

// Scraper is satisfied by *pipeline.Runner.
type Scraper interface {
	Run(ctx context.Context, query string) pipeline.Result
}

// Cleaner is satisfied by *retention.Cleaner.
type Cleaner interface {
	Run(ctx context.Context) (int64, error)
}

// Config controls the schedule.
type Config struct {
	ScrapeEvery time.Duration // e.g. 6h
	Query       string
	CleanupSpec string // standard 5-field cron expression
	// SkipInitialRun disables the scrape normally fired on Start.
	SkipInitialRun bool
}

// Scheduler wraps robfig/cron and manages the scrape and cleanup loops.
type Scheduler struct {
	cron    *cron.Cron
	scraper Scraper
	cleaner Cleaner
	cfg     Config
	log     logger.Logger
	wg      sync.WaitGroup

	scrapeID  cron.EntryID
	cleanupID cron.EntryID
}

// New creates a Scheduler. Jobs run in UTC and an invocation is skipped while
// the previous one of the same job is still running.
func New(cfg Config, scraper Scraper, cleaner Cleaner, log logger.Logger) *Scheduler {
	if cfg.ScrapeEvery <= 0 {
		cfg.ScrapeEvery = 6 * time.Hour
	}
	if cfg.CleanupSpec == "" {
		cfg.CleanupSpec = DefaultCleanupSpec
	}
	log = log.With(logger.Component("scheduler"))
	cl := cronLogger{log: log}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		scraper: scraper,
		cleaner: cleaner,
		cfg:     cfg,
		log:     log,
	}
}

// Start registers the jobs and starts the scheduler. It also runs one scrape
// immediately so the feed is populated without waiting for the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	scrapeSpec := "@every " + s.cfg.ScrapeEvery.String()
	var err error
	if s.scrapeID, err = s.cron.AddFunc(scrapeSpec, func() { s.runScrape(ctx) }); err != nil {
		return fmt.Errorf("cron.AddFunc(%q): %w", scrapeSpec, err)
	}
	if s.cleaner != nil {
		if s.cleanupID, err = s.cron.AddFunc(s.cfg.CleanupSpec, func() { s.runCleanup(ctx) }); err != nil {
			return fmt.Errorf("cron.AddFunc(%q): %w", s.cfg.CleanupSpec, err)
		}
	}

	s.cron.Start()
	s.log.Info("cron started",
		logger.String("scrape_spec", scrapeSpec),
		logger.String("cleanup_spec", s.cfg.CleanupSpec),
	)

	if !s.cfg.SkipInitialRun {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.runScrape(ctx)
		}()
	}
	return nil
}

// Stop halts the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.log.Info("cron stopped")
}

func (s *Scheduler) runScrape(ctx context.Context) {
	res := s.scraper.Run(ctx, s.cfg.Query)
	if res.Err != nil {
		s.log.Error("scheduled scrape failed",
			logger.String(logger.FieldRunID, res.RunID),
			logger.Error(res.Err),
		)
		return
	}
	s.log.Info(res.Message, logger.String(logger.FieldRunID, res.RunID))
}

func (s *Scheduler) runCleanup(ctx context.Context) {
	if _, err := s.cleaner.Run(ctx); err != nil {
		s.log.Error("scheduled cleanup failed", logger.Error(err))
	}
}

// cronLogger adapts logger.Logger to cron.Logger.
type cronLogger struct {
	log logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug(msg, kvFields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error(msg, append(kvFields(keysAndValues), logger.Error(err))...)
}

func kvFields(kv []any) []logger.Field {
	fields := make([]logger.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields = append(fields, logger.Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return fields
}
