package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"jobmate/aggregator-service/internal/aggregator"
	"jobmate/aggregator-service/internal/config"
	"jobmate/aggregator-service/internal/db"
	"jobmate/aggregator-service/internal/logger"
	"jobmate/aggregator-service/internal/metrics"
	"jobmate/aggregator-service/internal/pipeline"
	"jobmate/aggregator-service/internal/retention"
	"jobmate/aggregator-service/internal/runs"
	"jobmate/aggregator-service/internal/source"
	"jobmate/aggregator-service/internal/store"
)

// app holds every long-lived component shared by the subcommands.
type app struct {
	cfg      *config.Config
	log      logger.Logger
	registry *prometheus.Registry
	pool     *pgxpool.Pool
	rdb      *redis.Client
	repo     *store.Repository
	runs     *runs.RedisStore
	runner   *pipeline.Runner
	cleaner  *retention.Cleaner
}

// newApp loads configuration, connects to PostgreSQL and Redis, migrates the
// schema and wires the pipeline. base bounds background runs.
func newApp(base context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	log, err := logger.New(logger.Config{Level: cfg.LogLevel})
	if err != nil {
		return nil, err
	}

	connectCtx, cancel := context.WithTimeout(base, 15*time.Second)
	defer cancel()

	// ── PostgreSQL ───────────────────────────────────────────────────────────
	pool, err := db.NewPostgresPool(connectCtx, cfg.DatabaseURL, db.PoolOptions{})
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	if err := store.Migrate(connectCtx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	log.Info("postgres connected")

	// ── Redis ────────────────────────────────────────────────────────────────
	rdb, err := db.NewRedisClient(connectCtx, cfg.RedisURL)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("redis: %w", err)
	}
	log.Info("redis connected")

	// ── Pipeline ─────────────────────────────────────────────────────────────
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	adapters := source.NewAdapters(source.Options{
		UserAgent:    cfg.SourceUserAgent,
		Timeout:      cfg.SourceTimeout,
		Retries:      cfg.SourceRetries,
		RemotiveURL:  cfg.RemotiveURL,
		RemoteOKURL:  cfg.RemoteOKURL,
		ArbeitnowURL: cfg.ArbeitnowURL,
	}, log, m)
	agg := aggregator.New(adapters, aggregator.Options{DedupeByURL: cfg.DedupeByURL}, log, m)
	gateway := store.NewGateway(pool, log, m)
	repo := store.NewRepository(pool)
	runStore := runs.NewRedisStore(rdb, runs.DefaultTTL, log)

	return &app{
		cfg:      cfg,
		log:      log,
		registry: reg,
		pool:     pool,
		rdb:      rdb,
		repo:     repo,
		runs:     runStore,
		runner:   pipeline.NewRunner(base, agg, gateway, runStore, log, m),
		cleaner:  retention.NewCleaner(repo, cfg.Retention(), log, m),
	}, nil
}

func (a *app) Close() {
	a.runner.Wait()
	_ = a.rdb.Close()
	a.pool.Close()
	_ = a.log.Sync()
}
