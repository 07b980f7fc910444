package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthProbe reports whether a dependency is usable
type HealthProbe func(ctx context.Context) error

// HealthServer exposes the standard gRPC health service. Each probe is reported
// under its own service name; the empty service name is SERVING only when every probe passes.
type HealthServer struct {
	listener   net.Listener
	grpcServer *grpc.Server
	health     *health.Server
	interval   time.Duration

	mu     sync.Mutex
	probes map[string]HealthProbe
}

// NewHealthServer listens on addr and registers the health service
func NewHealthServer(addr string, interval time.Duration) (*HealthServer, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}

	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	return &HealthServer{
		listener:   listener,
		grpcServer: grpcServer,
		health:     healthServer,
		interval:   interval,
		probes:     make(map[string]HealthProbe),
	}, nil
}

// AddProbe registers a dependency check under a service name
func (s *HealthServer) AddProbe(service string, probe HealthProbe) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.probes[service] = probe
	s.health.SetServingStatus(service, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
}

// Addr returns the listener address
func (s *HealthServer) Addr() string {
	return s.listener.Addr().String()
}

// Serve runs the gRPC server and the probe loop until ctx is cancelled
func (s *HealthServer) Serve(ctx context.Context) error {
	log.WithField("addr", s.Addr()).Info("Health server listening")

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.grpcServer.Serve(s.listener)
	}()

	s.runProbes(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.health.Shutdown()
			s.grpcServer.GracefulStop()
			err := <-serveErr
			if err == nil || errors.Is(err, grpc.ErrServerStopped) {
				return nil
			}
			return fmt.Errorf("serve gRPC: %w", err)
		case err := <-serveErr:
			if err == nil || errors.Is(err, grpc.ErrServerStopped) {
				return nil
			}
			return fmt.Errorf("serve gRPC: %w", err)
		case <-ticker.C:
			s.runProbes(ctx)
		}
	}
}

// runProbes checks every dependency once and publishes the statuses
func (s *HealthServer) runProbes(ctx context.Context) {
	s.mu.Lock()
	probes := make(map[string]HealthProbe, len(s.probes))
	for name, probe := range s.probes {
		probes[name] = probe
	}
	s.mu.Unlock()

	overall := grpc_health_v1.HealthCheckResponse_SERVING
	for name, probe := range probes {
		probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := probe(probeCtx)
		cancel()

		status := grpc_health_v1.HealthCheckResponse_SERVING
		if err != nil {
			status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
			overall = status
			log.WithFields(log.Fields{
				"service": name,
				"error":   err,
			}).Warn("Health probe failed")
		}
		s.health.SetServingStatus(name, status)
	}
	s.health.SetServingStatus("", overall)
}

// NATSProbe reports the NATS connection state
func NATSProbe(client *NATSClient) HealthProbe {
	return func(ctx context.Context) error {
		if !client.IsConnected() {
			return errors.New("nats is not connected")
		}
		return nil
	}
}
