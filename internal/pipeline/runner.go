// Package pipeline runs one aggregation cycle end to end: fetch from every
// board, merge, persist, and record the outcome.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"jobmate/aggregator-service/internal/logger"
	"jobmate/aggregator-service/internal/metrics"
	"jobmate/aggregator-service/internal/model"
	"jobmate/aggregator-service/internal/runs"
)

// DefaultQuery is used when a run is requested with an empty search term.
const DefaultQuery = "job"

// Aggregator is satisfied by *aggregator.Aggregator.
type Aggregator interface {
	Aggregate(ctx context.Context, query string) []model.Job
}

// Persister is satisfied by *store.Gateway.
type Persister interface {
	Persist(ctx context.Context, jobs []model.Job) (int, error)
}

// Recorder stores run status updates. *runs.RedisStore satisfies it.
type Recorder interface {
	Save(ctx context.Context, r runs.Run) error
}

type nopRecorder struct{}

func (nopRecorder) Save(context.Context, runs.Run) error { return nil }

// Result summarises a finished run.
type Result struct {
	RunID    string
	Query    string
	Fetched  int
	Inserted int
	Message  string
	Err      error
}

// Runner executes pipeline runs synchronously (Run) or in the background
// (Trigger).
type Runner struct {
	agg     Aggregator
	store   Persister
	rec     Recorder
	log     logger.Logger
	metrics *metrics.Metrics

	base  context.Context
	wg    sync.WaitGroup
	newID func() string
	now   func() time.Time
}

// NewRunner returns a Runner. Background runs started by Trigger are bound to
// base and are cancelled with it. rec may be nil.
func NewRunner(base context.Context, agg Aggregator, store Persister, rec Recorder, log logger.Logger, m *metrics.Metrics) *Runner {
	if rec == nil {
		rec = nopRecorder{}
	}
	return &Runner{
		agg:     agg,
		store:   store,
		rec:     rec,
		log:     log.With(logger.Component("pipeline")),
		metrics: m,
		base:    base,
		newID:   uuid.NewString,
		now:     time.Now,
	}
}

// Run executes one cycle and blocks until it finishes. Failures are reported
// through Result.Err; Run never panics.
func (r *Runner) Run(ctx context.Context, query string) Result {
	run := r.enqueue(ctx, query)
	return r.execute(ctx, run)
}

// Trigger starts a run in the background and returns immediately. The
// returned channel receives exactly one Result and is then closed.
func (r *Runner) Trigger(query string) (string, <-chan Result) {
	run := r.enqueue(r.base, query)
	out := make(chan Result, 1)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer close(out)
		out <- r.execute(r.base, run)
	}()
	return run.ID, out
}

// Wait blocks until every run started by Trigger has finished.
func (r *Runner) Wait() { r.wg.Wait() }

func (r *Runner) enqueue(ctx context.Context, query string) runs.Run {
	query = strings.TrimSpace(query)
	if query == "" {
		query = DefaultQuery
	}
	run := runs.Run{
		ID:        r.newID(),
		Query:     query,
		Status:    runs.StatusQueued,
		StartedAt: r.now().UTC(),
	}
	r.record(ctx, run)
	return run
}

func (r *Runner) execute(ctx context.Context, run runs.Run) (res Result) {
	res = Result{RunID: run.ID, Query: run.Query}
	start := r.now()
	log := r.log.With(
		logger.String(logger.FieldRunID, run.ID),
		logger.String(logger.FieldQuery, run.Query),
	)

	defer func() {
		if p := recover(); p != nil {
			res.Err = fmt.Errorf("pipeline panicked: %v", p)
			res.Message = "Pipeline failed."
			log.Error("pipeline panicked", logger.Any("panic", p))
		}
		r.finish(ctx, run, res, start)
	}()

	r.transition(ctx, &run, runs.StatusRunning)
	log.Info("pipeline run started")

	jobs := r.agg.Aggregate(ctx, run.Query)
	res.Fetched = len(jobs)
	if len(jobs) == 0 {
		res.Message = "No jobs fetched."
		log.Info(res.Message)
		return res
	}

	inserted, err := r.store.Persist(ctx, jobs)
	if err != nil {
		res.Err = err
		res.Message = fmt.Sprintf("%d jobs scraped but storing failed for query '%s'", len(jobs), run.Query)
		log.Error("persist failed", logger.Int("fetched", len(jobs)), logger.Error(err))
		return res
	}
	res.Inserted = inserted
	res.Message = fmt.Sprintf("%d jobs scraped and %d new jobs stored for query '%s'", len(jobs), inserted, run.Query)
	log.Info("pipeline run complete",
		logger.Int("fetched", len(jobs)),
		logger.Int("inserted", inserted),
	)
	return res
}

func (r *Runner) finish(ctx context.Context, run runs.Run, res Result, start time.Time) {
	status := runs.StatusSucceeded
	if res.Err != nil {
		status = runs.StatusFailed
		run.Error = res.Err.Error()
	}
	finished := r.now().UTC()
	run.Fetched = res.Fetched
	run.Inserted = res.Inserted
	run.Message = res.Message
	run.FinishedAt = &finished
	r.transition(ctx, &run, status)
	r.metrics.RunFinished(string(status), r.now().Sub(start))
}

func (r *Runner) transition(ctx context.Context, run *runs.Run, to runs.Status) {
	if err := run.Transition(to); err != nil {
		r.log.Error("invalid run transition", logger.Error(err))
		return
	}
	r.record(ctx, *run)
}

// record never fails the run; the status store is best effort.
func (r *Runner) record(ctx context.Context, run runs.Run) {
	if err := r.rec.Save(context.WithoutCancel(ctx), run); err != nil {
		r.log.Warn("recording run status failed",
			logger.String(logger.FieldRunID, run.ID),
			logger.String(logger.FieldStatus, string(run.Status)),
			logger.Error(err),
		)
	}
}
