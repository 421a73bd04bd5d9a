package aggregator_test

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"jobmate/aggregator-service/internal/aggregator"
	"jobmate/aggregator-service/internal/logger"
	"jobmate/aggregator-service/internal/model"
	"jobmate/aggregator-service/internal/source"
)

// fakeAdapter returns canned jobs, optionally after a hook runs.
type fakeAdapter struct {
	name   string
	jobs   []model.Job
	before func()
	panics bool
	query  string
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) Fetch(_ context.Context, query string) []model.Job {
	f.query = query
	if f.before != nil {
		f.before()
	}
	if f.panics {
		panic("upstream exploded")
	}
	out := make([]model.Job, len(f.jobs))
	copy(out, f.jobs)
	return out
}

func job(id, pub string) model.Job {
	var t time.Time
	if pub != "" {
		var err error
		t, err = time.Parse("2006-01-02T15:04Z07:00", pub)
		if err != nil {
			panic(err)
		}
	}
	return model.Job{JobID: id, Title: "title " + id, PublicationDate: t, URL: "https://jobs.test/" + id}
}

func ids(jobs []model.Job) []string {
	out := make([]string, len(jobs))
	for i, j := range jobs {
		out[i] = j.JobID
	}
	return out
}

func newAggregator(adapters ...source.Adapter) *aggregator.Aggregator {
	return aggregator.New(adapters, aggregator.Options{}, logger.NewNop(), nil)
}

func TestAggregate_EndToEndExample(t *testing.T) {
	a := &fakeAdapter{name: "a", jobs: []model.Job{job("a-1", "2024-01-01T00:00Z")}}
	b := &fakeAdapter{name: "b", jobs: []model.Job{
		job("b-1", "2024-02-01T00:00Z"),
		job("a-1", "2024-01-01T00:00Z"),
	}}

	got := newAggregator(a, b).Aggregate(context.Background(), "job")

	require.Len(t, got, 2)
	assert.Equal(t, []string{"b-1", "a-1"}, ids(got))
	assert.Equal(t, "job", a.query)
	assert.Equal(t, "job", b.query)
}

func TestAggregate_FailedAdapterDoesNotAffectOthers(t *testing.T) {
	ok1 := &fakeAdapter{name: "ok1", jobs: []model.Job{job("x-1", "2024-01-03T00:00Z")}}
	failed := &fakeAdapter{name: "failed"}
	ok2 := &fakeAdapter{name: "ok2", jobs: []model.Job{job("y-1", "2024-01-02T00:00Z"), job("y-2", "2024-01-04T00:00Z")}}

	got := newAggregator(ok1, failed, ok2).Aggregate(context.Background(), "")

	assert.ElementsMatch(t, []string{"x-1", "y-1", "y-2"}, ids(got))
}

func TestAggregate_PanickingAdapterIsIsolated(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := logger.NewFromZap(zap.New(core))

	bad := &fakeAdapter{name: "bad", panics: true}
	good := &fakeAdapter{name: "good", jobs: []model.Job{job("g-1", "2024-01-01T00:00Z")}}

	var got []model.Job
	require.NotPanics(t, func() {
		got = aggregator.New([]source.Adapter{bad, good}, aggregator.Options{}, log, nil).
			Aggregate(context.Background(), "q")
	})

	assert.Equal(t, []string{"g-1"}, ids(got))
	assert.Equal(t, 1, logs.FilterMessage("adapter panicked").Len())
}

func TestAggregate_MissingAndDuplicateIDs(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := logger.NewFromZap(zap.New(core))

	first := job("dup-1", "2024-01-01T00:00Z")
	first.Title = "first"
	second := job("dup-1", "2024-03-01T00:00Z")
	second.Title = "second"
	missing := job("", "2024-05-01T00:00Z")

	ad := &fakeAdapter{name: "a", jobs: []model.Job{first, missing, second}}
	got := aggregator.New([]source.Adapter{ad}, aggregator.Options{}, log, nil).Aggregate(context.Background(), "")

	require.Len(t, got, 1)
	assert.Equal(t, "first", got[0].Title)
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.WarnLevel).FilterMessage("skipping job with missing job_id").Len())
}

func TestAggregate_NormalisesDatesAndSortsMissingLast(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	aware := job("tz-1", "")
	aware.PublicationDate = time.Date(2024, 1, 2, 9, 0, 0, 0, tokyo)
	undated := job("nodate-1", "")
	recent := job("r-1", "2024-01-05T00:00Z")

	ad := &fakeAdapter{name: "a", jobs: []model.Job{undated, aware, recent}}
	got := newAggregator(ad).Aggregate(context.Background(), "")

	require.Equal(t, []string{"r-1", "tz-1", "nodate-1"}, ids(got))
	assert.Equal(t, time.UTC, got[1].PublicationDate.Location())
	assert.Equal(t, 0, got[1].PublicationDate.Hour())
	assert.Equal(t, model.MinTime, got[2].PublicationDate)
}

func TestAggregate_TieBreakFollowsAdapterOrderNotCompletionOrder(t *testing.T) {
	same := "2024-01-01T00:00Z"
	slow := &fakeAdapter{
		name:   "slow",
		jobs:   []model.Job{job("slow-1", same)},
		before: func() { time.Sleep(50 * time.Millisecond) },
	}
	fast := &fakeAdapter{name: "fast", jobs: []model.Job{job("fast-1", same)}}

	for i := 0; i < 5; i++ {
		got := newAggregator(slow, fast).Aggregate(context.Background(), "")
		assert.Equal(t, []string{"slow-1", "fast-1"}, ids(got))
	}
}

func TestAggregate_AdaptersRunConcurrently(t *testing.T) {
	var started sync.WaitGroup
	started.Add(2)
	allStarted := make(chan struct{})
	go func() {
		started.Wait()
		close(allStarted)
	}()

	barrier := func() {
		started.Done()
		select {
		case <-allStarted:
		case <-time.After(2 * time.Second):
			t.Error("adapters were not invoked concurrently")
		}
	}

	a := &fakeAdapter{name: "a", jobs: []model.Job{job("a-1", "2024-01-01T00:00Z")}, before: barrier}
	b := &fakeAdapter{name: "b", jobs: []model.Job{job("b-1", "2024-01-02T00:00Z")}, before: barrier}

	got := newAggregator(a, b).Aggregate(context.Background(), "")
	assert.Equal(t, []string{"b-1", "a-1"}, ids(got))
}

func TestAggregate_DedupeByURLOption(t *testing.T) {
	x := job("remotive-1", "2024-01-01T00:00Z")
	y := job("remoteok-9", "2024-01-02T00:00Z")
	y.URL = x.URL

	ad := &fakeAdapter{name: "a", jobs: []model.Job{x, y}}

	lenient := newAggregator(ad).Aggregate(context.Background(), "")
	assert.Len(t, lenient, 2, "default keeps both; the store's url constraint decides")

	strict := aggregator.New([]source.Adapter{ad}, aggregator.Options{DedupeByURL: true}, logger.NewNop(), nil).
		Aggregate(context.Background(), "")
	assert.Equal(t, []string{"remotive-1"}, ids(strict))
}

func TestAggregate_NoAdapters(t *testing.T) {
	got := newAggregator().Aggregate(context.Background(), "")
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestAggregate_UniqueAndSortedForRandomInputs(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for round := 0; round < 50; round++ {
		adapters := make([]source.Adapter, 3)
		for i := range adapters {
			n := rng.Intn(20)
			jobs := make([]model.Job, n)
			for k := range jobs {
				jobs[k] = model.Job{
					JobID:           fmt.Sprintf("s-%d", rng.Intn(15)),
					PublicationDate: base.Add(time.Duration(rng.Intn(10)) * time.Hour),
				}
				if rng.Intn(10) == 0 {
					jobs[k].JobID = ""
				}
			}
			adapters[i] = &fakeAdapter{name: fmt.Sprintf("src%d", i), jobs: jobs}
		}

		got := newAggregator(adapters...).Aggregate(context.Background(), "")

		seen := map[string]bool{}
		for i, j := range got {
			require.NotEmpty(t, j.JobID)
			require.False(t, seen[j.JobID], "duplicate %s", j.JobID)
			seen[j.JobID] = true
			if i > 0 {
				require.False(t, j.PublicationDate.After(got[i-1].PublicationDate), "not sorted at %d", i)
			}
		}
	}
}

func TestSortByRecency_Stable(t *testing.T) {
	jobs := []model.Job{
		job("1", "2024-01-01T00:00Z"),
		job("2", "2024-01-02T00:00Z"),
		job("3", "2024-01-01T00:00Z"),
		job("4", "2024-01-02T00:00Z"),
	}
	aggregator.SortByRecency(jobs)
	assert.Equal(t, []string{"2", "4", "1", "3"}, ids(jobs))
}
