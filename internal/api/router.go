package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"jobmate/aggregator-service/internal/logger"
)

// NewRouter mounts every route on a fresh gin engine. A nil gatherer
// leaves /metrics unregistered.
func NewRouter(h *Handler, gatherer prometheus.Gatherer, log logger.Logger) *gin.Engine {
	router := gin.New()
	router.Use(recoveryMiddleware(log), loggerMiddleware(log), corsMiddleware())

	api := router.Group("/api")
	api.GET("/jobs", h.listJobs)
	api.POST("/scrape", h.triggerScrape)
	api.GET("/scrape/:id", h.getRun)
	api.GET("/health", h.health)

	if gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	return router
}
