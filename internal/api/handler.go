// Package api implements the HTTP surface of the aggregator service.
//
// Routes:
//
//	GET  /api/jobs          → search stored jobs
//	POST /api/scrape        → start a pipeline run in the background
//	GET  /api/scrape/{id}   → status of a pipeline run
//	GET  /api/health        → liveness plus dependency checks
//	GET  /metrics           → Prometheus exposition
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"jobmate/aggregator-service/internal/logger"
	"jobmate/aggregator-service/internal/model"
	"jobmate/aggregator-service/internal/pipeline"
	"jobmate/aggregator-service/internal/runs"
	"jobmate/aggregator-service/internal/store"
)

// JobSearcher is satisfied by *store.Repository.
type JobSearcher interface {
	Search(ctx context.Context, f store.Filter) ([]model.StoredJob, error)
}

// ScrapeTrigger is satisfied by *pipeline.Runner.
type ScrapeTrigger interface {
	Trigger(query string) (string, <-chan pipeline.Result)
}

// RunReader is satisfied by *runs.RedisStore.
type RunReader interface {
	Get(ctx context.Context, id string) (*runs.Run, error)
}

// Check probes one dependency. *pgxpool.Pool.Ping fits directly.
type Check func(ctx context.Context) error

// Handler holds shared dependencies.
type Handler struct {
	jobs    JobSearcher
	trigger ScrapeTrigger
	runs    RunReader
	checks  map[string]Check
	log     logger.Logger
}

// NewHandler returns a configured Handler. runs and checks may be nil.
func NewHandler(jobs JobSearcher, trigger ScrapeTrigger, rr RunReader, checks map[string]Check, log logger.Logger) *Handler {
	return &Handler{jobs: jobs, trigger: trigger, runs: rr, checks: checks, log: log.With(logger.Component("api"))}
}

// listJobs handles GET /api/jobs
func (h *Handler) listJobs(c *gin.Context) {
	limit, err := intParam(c, "limit", store.DefaultLimit)
	if err != nil {
		jsonError(c, http.StatusBadRequest, err.Error())
		return
	}
	skip, err := intParam(c, "skip", 0)
	if err != nil {
		jsonError(c, http.StatusBadRequest, err.Error())
		return
	}
	if limit < 1 || skip < 0 {
		jsonError(c, http.StatusBadRequest, "limit must be positive and skip non-negative")
		return
	}

	jobs, err := h.jobs.Search(c.Request.Context(), store.Filter{
		Query:    c.Query("query"),
		Location: c.Query("location"),
		JobType:  c.Query("job_type"),
		Tags:     c.Query("tags"),
		Limit:    limit,
		Skip:     skip,
	})
	if err != nil {
		_ = c.Error(err)
		jsonError(c, http.StatusInternalServerError, "internal error")
		return
	}
	c.JSON(http.StatusOK, jobs)
}

// triggerScrape handles POST /api/scrape?query=
func (h *Handler) triggerScrape(c *gin.Context) {
	query := strings.TrimSpace(c.Query("query"))
	if query == "" {
		query = pipeline.DefaultQuery
	}
	id, _ := h.trigger.Trigger(query)
	h.log.Info("scrape triggered",
		logger.String(logger.FieldRunID, id),
		logger.String(logger.FieldQuery, query),
	)
	c.JSON(http.StatusAccepted, gin.H{
		"message": fmt.Sprintf("Scraping task started for query '%s'", query),
		"run_id":  id,
	})
}

// getRun handles GET /api/scrape/:id
func (h *Handler) getRun(c *gin.Context) {
	if h.runs == nil {
		jsonError(c, http.StatusNotImplemented, "run tracking disabled")
		return
	}
	run, err := h.runs.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, runs.ErrNotFound) {
		jsonError(c, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		_ = c.Error(err)
		jsonError(c, http.StatusInternalServerError, "internal error")
		return
	}
	c.JSON(http.StatusOK, run)
}

// health handles GET /api/health
func (h *Handler) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status, code := "ok", http.StatusOK
	results := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			results[name] = err.Error()
			status, code = "degraded", http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	body := gin.H{"status": status}
	if len(results) > 0 {
		body["checks"] = results
	}
	c.JSON(code, body)
}

func intParam(c *gin.Context, name string, def int) (int, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", name, raw)
	}
	return v, nil
}

func jsonError(c *gin.Context, code int, msg string) {
	c.AbortWithStatusJSON(code, gin.H{"error": msg})
}
