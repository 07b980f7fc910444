package infrastructure

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

func TestHealthServer_ReportsProbes(t *testing.T) {
	server, err := NewHealthServer("127.0.0.1:0", 50*time.Millisecond)
	require.NoError(t, err)

	var natsUp atomic.Bool
	server.AddProbe("database", func(ctx context.Context) error { return nil })
	server.AddProbe("nats", func(ctx context.Context) error {
		if !natsUp.Load() {
			return errors.New("nats is not connected")
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})

	conn, err := grpc.NewClient(server.Addr(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	client := grpc_health_v1.NewHealthClient(conn)

	status := func(service string) grpc_health_v1.HealthCheckResponse_ServingStatus {
		callCtx, callCancel := context.WithTimeout(context.Background(), time.Second)
		defer callCancel()
		resp, err := client.Check(callCtx, &grpc_health_v1.HealthCheckRequest{Service: service})
		if err != nil {
			return grpc_health_v1.HealthCheckResponse_UNKNOWN
		}
		return resp.GetStatus()
	}

	assert.Eventually(t, func() bool {
		return status("database") == grpc_health_v1.HealthCheckResponse_SERVING
	}, 2*time.Second, 20*time.Millisecond)
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, status("nats"))
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, status(""))

	natsUp.Store(true)
	assert.Eventually(t, func() bool {
		return status("") == grpc_health_v1.HealthCheckResponse_SERVING
	}, 2*time.Second, 20*time.Millisecond)
}

func TestNATSProbe_Disconnected(t *testing.T) {
	probe := NATSProbe(NewNATSClient("nats://127.0.0.1:1"))
	assert.Error(t, probe(context.Background()))
}
