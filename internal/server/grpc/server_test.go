package grpc

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type pingerFunc func(context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestUpdateHealthServing(t *testing.T) {
	srv := health.NewServer()
	status := UpdateHealth(context.Background(), srv, pingerFunc(func(context.Context) error { return nil }), zap.NewNop())
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, status)

	resp, err := srv.Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestUpdateHealthNotServingWhenStoreDown(t *testing.T) {
	srv := health.NewServer()
	status := UpdateHealth(context.Background(), srv, pingerFunc(func(context.Context) error { return errors.New("down") }), zap.NewNop())
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, status)

	resp, err := srv.Check(context.Background(), &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.GetStatus())
}
