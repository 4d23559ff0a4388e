// Package grpcserver runs the gRPC side of docwatch: the standard health
// service, which reports storage reachability, plus server reflection.
package grpcserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"pkt.systems/pslog"
)

// ServiceName is the health service entry for the docwatch API.
const ServiceName = "docwatch.v1.DocWatch"

// Options configure the server. Ping may be nil.
type Options struct {
	Ping          func(ctx context.Context) error
	CheckInterval time.Duration
	Logger        pslog.Logger
}

type Server struct {
	grpc     *grpc.Server
	health   *health.Server
	ping     func(ctx context.Context) error
	interval time.Duration
	logger   pslog.Logger

	stopOnce sync.Once
	done     chan struct{}
}

func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = pslog.NoopLogger()
	}
	if opts.CheckInterval <= 0 {
		opts.CheckInterval = 15 * time.Second
	}

	gs := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	reflection.Register(gs)

	s := &Server{
		grpc:     gs,
		health:   hs,
		ping:     opts.Ping,
		interval: opts.CheckInterval,
		logger:   opts.Logger,
		done:     make(chan struct{}),
	}
	s.refresh(context.Background())
	return s
}

// Serve blocks until the listener fails or Stop is called. Health is
// re-evaluated every CheckInterval while serving.
func (s *Server) Serve(lis net.Listener) error {
	go s.watch()
	s.logger.Info("grpc.server.listening", "addr", lis.Addr().String())
	err := s.grpc.Serve(lis)
	if errors.Is(err, grpc.ErrServerStopped) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("grpc serve: %w", err)
	}
	return nil
}

// Stop marks every service NOT_SERVING and drains in-flight calls, falling
// back to a hard stop when ctx ends first.
func (s *Server) Stop(ctx context.Context) {
	s.stopOnce.Do(func() {
		close(s.done)
		s.health.Shutdown()

		stopped := make(chan struct{})
		go func() {
			s.grpc.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-ctx.Done():
			s.logger.Warn("grpc.server.force_stop")
			s.grpc.Stop()
		}
	})
}

func (s *Server) watch() {
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-t.C:
			s.refresh(context.Background())
		}
	}
}

// refresh sets the overall and per-service status from the storage ping.
func (s *Server) refresh(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING
	if s.ping != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := s.ping(ctx); err != nil {
			s.logger.Warn("grpc.health.db_down", "error", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}
