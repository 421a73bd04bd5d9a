package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"jobmate/aggregator-service/internal/api"
	"jobmate/aggregator-service/internal/grpcserver"
	"jobmate/aggregator-service/internal/logger"
	"jobmate/aggregator-service/internal/scheduler"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the scrape/cleanup scheduler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	// ── Scheduler ────────────────────────────────────────────────────────────
	sched := scheduler.New(scheduler.Config{
		ScrapeEvery: a.cfg.ScrapeInterval(),
		Query:       a.cfg.ScrapeQuery,
		CleanupSpec: a.cfg.CleanupSchedule,
	}, a.runner, a.cleaner, a.log)
	if err := sched.Start(ctx); err != nil {
		return err
	}
	defer sched.Stop()

	pingPostgres := a.pool.Ping
	pingRedis := func(ctx context.Context) error { return a.rdb.Ping(ctx).Err() }

	// ── gRPC health ──────────────────────────────────────────────────────────
	lis, err := net.Listen("tcp", fmt.Sprintf(":%s", a.cfg.GRPCPort))
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	gs := grpcserver.NewServer(map[string]grpcserver.Check{
		"postgres": pingPostgres,
		"redis":    pingRedis,
	}, grpcserver.DefaultInterval, a.log)
	go func() {
		if err := gs.Serve(ctx, lis); err != nil {
			a.log.Error("gRPC server error", logger.Error(err))
		}
	}()
	defer gs.Stop()

	// ── HTTP server ──────────────────────────────────────────────────────────
	gin.SetMode(gin.ReleaseMode)
	h := api.NewHandler(a.repo, a.runner, a.runs, map[string]api.Check{
		"postgres": pingPostgres,
		"redis":    pingRedis,
	}, a.log)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", a.cfg.Port),
		Handler:      api.NewRouter(h, a.registry, a.log),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("listening", logger.String("addr", srv.Addr), logger.String("version", version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	a.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("shutdown error", logger.Error(err))
	}
	return nil
}
