// Package grpcserver runs the gRPC health endpoint of the site.
package grpcserver

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/and161185/maru-site/internal/repository"
)

// Service is the health service name reported alongside the overall status.
const Service = "maru.site"

// Options configures New.
type Options struct {
	// Interval between store pings. Zero selects 15s.
	Interval time.Duration
	// Reflection enables server reflection.
	Reflection bool
}

// Server is a gRPC server whose health status mirrors the store ping.
type Server struct {
	*grpc.Server
	health   *health.Server
	store    repository.Pinger
	log      *zap.Logger
	interval time.Duration

	stopOnce sync.Once
	done     chan struct{}
}

// New builds the gRPC server with logging and recovery interceptors.
func New(store repository.Pinger, log *zap.Logger, opts Options) *Server {
	if opts.Interval <= 0 {
		opts.Interval = 15 * time.Second
	}
	gs := grpc.NewServer(
		grpc.ChainUnaryInterceptor(RecoverUnary(log), LoggingUnary(log)),
		grpc.ChainStreamInterceptor(RecoverStream(log), LoggingStream(log)),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	if opts.Reflection {
		reflection.Register(gs)
	}
	return &Server{
		Server:   gs,
		health:   hs,
		store:    store,
		log:      log,
		interval: opts.Interval,
		done:     make(chan struct{}),
	}
}

// Check pings the store once and publishes the result.
func (s *Server) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	st := healthpb.HealthCheckResponse_SERVING
	if err := s.store.Ping(ctx); err != nil {
		s.log.Warn("store ping", zap.Error(err))
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(Service, st)
	return st
}

// Watch re-checks the store every interval until ctx ends or Shutdown is called.
func (s *Server) Watch(ctx context.Context) {
	s.Check(ctx)
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-t.C:
			s.Check(ctx)
		}
	}
}

// Shutdown marks every service NOT_SERVING and stops gracefully, falling
// back to a hard stop after grace.
func (s *Server) Shutdown(grace time.Duration) {
	s.stopOnce.Do(func() { close(s.done) })
	s.health.Shutdown()

	stopped := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(grace):
		s.Stop()
	}
}
