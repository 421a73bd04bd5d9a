// Package grpcserver exposes the standard gRPC health service so that
// orchestrators can probe the aggregator without going through HTTP.
//
// The serving status follows the dependency checks: any failing check flips
// the service to NOT_SERVING until the next successful round.
package grpcserver

import (
	"context"
	"fmt"
	"net"
	"sort"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"jobmate/aggregator-service/internal/logger"
)

// ServiceName is the health service name reported alongside the overall "".
const ServiceName = "jobmate.aggregator.v1.Aggregator"

// DefaultInterval is how often dependency checks run.
const DefaultInterval = 15 * time.Second

// Check probes one dependency.
type Check func(ctx context.Context) error

// Server wraps a grpc.Server carrying the health service.
type Server struct {
	grpc     *grpc.Server
	health   *health.Server
	checks   map[string]Check
	interval time.Duration
	log      logger.Logger
	wg       sync.WaitGroup
}

// NewServer constructs a Server. A non-positive interval falls back to
// DefaultInterval.
func NewServer(checks map[string]Check, interval time.Duration, log logger.Logger) *Server {
	if interval <= 0 {
		interval = DefaultInterval
	}
	hs := health.NewServer()
	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	return &Server{
		grpc:     gs,
		health:   hs,
		checks:   checks,
		interval: interval,
		log:      log.With(logger.Component("grpc")),
	}
}

// Serve runs the dependency watcher and serves on lis until ctx is cancelled
// or Stop is called.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	s.probe(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.watch(ctx)
	}()

	s.log.Info("gRPC health server listening", logger.String("addr", lis.Addr().String()))
	if err := s.grpc.Serve(lis); err != nil {
		return fmt.Errorf("grpc serve: %w", err)
	}
	return nil
}

// Stop marks the service NOT_SERVING and drains in-flight RPCs.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
	s.wg.Wait()
}

func (s *Server) watch(ctx context.Context) {
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.probe(ctx)
		}
	}
}

// probe runs every check once and publishes the combined status.
func (s *Server) probe(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.interval)
	defer cancel()

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := healthpb.HealthCheckResponse_SERVING
	for _, name := range names {
		if err := s.checks[name](ctx); err != nil {
			s.log.Warn("dependency check failed", logger.String("check", name), logger.Error(err))
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}
