package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmate/aggregator-service/internal/api"
	"jobmate/aggregator-service/internal/logger"
	"jobmate/aggregator-service/internal/metrics"
	"jobmate/aggregator-service/internal/model"
	"jobmate/aggregator-service/internal/pipeline"
	"jobmate/aggregator-service/internal/runs"
	"jobmate/aggregator-service/internal/store"
)

type mockSearcher struct {
	got  store.Filter
	jobs []model.StoredJob
	err  error
}

func (m *mockSearcher) Search(_ context.Context, f store.Filter) ([]model.StoredJob, error) {
	m.got = f
	return m.jobs, m.err
}

type mockTrigger struct{ query string }

func (m *mockTrigger) Trigger(query string) (string, <-chan pipeline.Result) {
	m.query = query
	ch := make(chan pipeline.Result, 1)
	ch <- pipeline.Result{RunID: "run-42"}
	close(ch)
	return "run-42", ch
}

type mockRuns struct {
	run *runs.Run
	err error
}

func (m *mockRuns) Get(context.Context, string) (*runs.Run, error) { return m.run, m.err }

func setupTestRouter(t *testing.T, s *mockSearcher, tr *mockTrigger, rr api.RunReader, checks map[string]api.Check) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	metrics.New(reg)
	h := api.NewHandler(s, tr, rr, checks, logger.NewNop())
	return api.NewRouter(h, reg, logger.NewNop())
}

func do(t *testing.T, router http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequestWithContext(t.Context(), method, target, nil)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestListJobs_PassesFilters(t *testing.T) {
	s := &mockSearcher{jobs: []model.StoredJob{{
		ID: 1,
		Job: model.Job{
			Title: "Go Dev", URL: "https://x.test/1", Source: "remotive", JobID: "remotive-1",
			PublicationDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Tags: []string{"go"},
		},
	}}}
	router := setupTestRouter(t, s, &mockTrigger{}, nil, nil)

	w := do(t, router, http.MethodGet, "/api/jobs?query=go&location=Berlin&job_type=full_time&tags=go,remote&limit=5&skip=10")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, store.Filter{
		Query: "go", Location: "Berlin", JobType: "full_time", Tags: "go,remote", Limit: 5, Skip: 10,
	}, s.got)

	var body []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body, 1)
	assert.Equal(t, "remotive-1", body[0]["job_id"])
	assert.Equal(t, "2024-01-01T00:00:00Z", body[0]["publication_date"])
}

func TestListJobs_Defaults(t *testing.T) {
	s := &mockSearcher{jobs: []model.StoredJob{}}
	router := setupTestRouter(t, s, &mockTrigger{}, nil, nil)

	w := do(t, router, http.MethodGet, "/api/jobs")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, store.DefaultLimit, s.got.Limit)
	assert.Equal(t, 0, s.got.Skip)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestListJobs_BadParams(t *testing.T) {
	router := setupTestRouter(t, &mockSearcher{}, &mockTrigger{}, nil, nil)
	for _, target := range []string{
		"/api/jobs?limit=abc",
		"/api/jobs?skip=x",
		"/api/jobs?limit=0",
		"/api/jobs?skip=-1",
	} {
		w := do(t, router, http.MethodGet, target)
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
	}
}

func TestListJobs_StoreError(t *testing.T) {
	router := setupTestRouter(t, &mockSearcher{err: errors.New("db down")}, &mockTrigger{}, nil, nil)
	w := do(t, router, http.MethodGet, "/api/jobs")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "db down")
}

func TestTriggerScrape(t *testing.T) {
	tr := &mockTrigger{}
	router := setupTestRouter(t, &mockSearcher{}, tr, nil, nil)

	w := do(t, router, http.MethodPost, "/api/scrape?query=golang")

	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "golang", tr.query)
	assert.JSONEq(t, `{"message":"Scraping task started for query 'golang'","run_id":"run-42"}`, w.Body.String())
}

func TestTriggerScrape_DefaultQuery(t *testing.T) {
	tr := &mockTrigger{}
	router := setupTestRouter(t, &mockSearcher{}, tr, nil, nil)

	w := do(t, router, http.MethodPost, "/api/scrape")

	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, pipeline.DefaultQuery, tr.query)
}

func TestTriggerScrape_BlankQueryReportsDefault(t *testing.T) {
	for _, target := range []string{"/api/scrape?query=", "/api/scrape?query=%20%20"} {
		tr := &mockTrigger{}
		router := setupTestRouter(t, &mockSearcher{}, tr, nil, nil)

		w := do(t, router, http.MethodPost, target)

		require.Equal(t, http.StatusAccepted, w.Code, target)
		assert.Equal(t, pipeline.DefaultQuery, tr.query, target)
		assert.Contains(t, w.Body.String(), "for query 'job'", target)
	}
}

func TestGetRun(t *testing.T) {
	started := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rr := &mockRuns{run: &runs.Run{ID: "run-42", Query: "go", Status: runs.StatusRunning, StartedAt: started}}
	router := setupTestRouter(t, &mockSearcher{}, &mockTrigger{}, rr, nil)

	w := do(t, router, http.MethodGet, "/api/scrape/run-42")

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "RUNNING", body["status"])
	assert.Equal(t, "run-42", body["id"])
}

func TestGetRun_NotFound(t *testing.T) {
	router := setupTestRouter(t, &mockSearcher{}, &mockTrigger{}, &mockRuns{err: runs.ErrNotFound}, nil)
	w := do(t, router, http.MethodGet, "/api/scrape/nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetRun_Disabled(t *testing.T) {
	router := setupTestRouter(t, &mockSearcher{}, &mockTrigger{}, nil, nil)
	w := do(t, router, http.MethodGet, "/api/scrape/x")
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestHealth(t *testing.T) {
	router := setupTestRouter(t, &mockSearcher{}, &mockTrigger{}, nil, nil)
	w := do(t, router, http.MethodGet, "/api/health")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestHealth_DegradedWhenCheckFails(t *testing.T) {
	checks := map[string]api.Check{
		"postgres": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	}
	router := setupTestRouter(t, &mockSearcher{}, &mockTrigger{}, nil, checks)

	w := do(t, router, http.MethodGet, "/api/health")

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"degraded","checks":{"postgres":"ok","redis":"connection refused"}}`, w.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	router := setupTestRouter(t, &mockSearcher{}, &mockTrigger{}, nil, nil)
	w := do(t, router, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "aggregator_")
}

func TestCORSPreflight(t *testing.T) {
	router := setupTestRouter(t, &mockSearcher{}, &mockTrigger{}, nil, nil)
	w := do(t, router, http.MethodOptions, "/api/jobs")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
