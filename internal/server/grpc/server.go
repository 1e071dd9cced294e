package grpc

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/Additional-Code/tenzai/internal/config"
)

// ServiceName is the health service key reported for the ordering backend.
const ServiceName = "tenzai.Ordering"

// Pinger reports whether the record store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Module exposes the gRPC server and lifecycle hooks to Fx.
var Module = fx.Module("grpc_server",
	fx.Provide(NewServer, health.NewServer),
	fx.Invoke(Run),
)

// NewServer builds a gRPC server with logging interceptors and the health service attached.
func NewServer(logger *zap.Logger, healthSrv *health.Server) *grpc.Server {
	unary := func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logCall(logger, "grpc unary call finished", info.FullMethod, time.Since(start), err)
		return resp, err
	}

	stream := func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()
		err := handler(srv, ss)
		logCall(logger, "grpc stream call finished", info.FullMethod, time.Since(start), err)
		return err
	}

	server := grpc.NewServer(
		grpc.ChainUnaryInterceptor(unary),
		grpc.ChainStreamInterceptor(stream),
	)
	healthpb.RegisterHealthServer(server, healthSrv)
	return server
}

func logCall(logger *zap.Logger, msg, method string, d time.Duration, err error) {
	if err != nil {
		logger.Warn(msg, zap.String("method", method), zap.Duration("duration", d), zap.Error(err))
		return
	}
	logger.Debug(msg, zap.String("method", method), zap.Duration("duration", d))
}

// UpdateHealth sets the serving status of ServiceName and the overall server from a store ping.
func UpdateHealth(ctx context.Context, srv *health.Server, pinger Pinger, logger *zap.Logger) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	if err := pinger.Ping(ctx); err != nil {
		logger.Warn("record store ping failed; reporting NOT_SERVING", zap.Error(err))
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	srv.SetServingStatus("", status)
	srv.SetServingStatus(ServiceName, status)
	return status
}

// RunParams collects lifecycle dependencies.
type RunParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    config.Config
	Server    *grpc.Server
	Health    *health.Server
	Pinger    Pinger
	Logger    *zap.Logger
}

// Run binds the gRPC server to the configured host/port and manages lifecycle.
func Run(p RunParams) {
	addr := fmt.Sprintf("%s:%d", p.Config.GRPC.Host, p.Config.GRPC.Port)
	logger := p.Logger
	server := p.Server
	var listener net.Listener

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("listen grpc: %w", err)
			}
			listener = ln

			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			UpdateHealth(pingCtx, p.Health, p.Pinger, logger)
			cancel()

			logger.Info("starting gRPC server", zap.String("addr", addr))
			go func() {
				if err := server.Serve(listener); err != nil {
					logger.Error("grpc server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("stopping gRPC server")
			p.Health.Shutdown()
			stopped := make(chan struct{})
			go func() {
				server.GracefulStop()
				close(stopped)
			}()

			select {
			case <-ctx.Done():
				server.Stop()
				return ctx.Err()
			case <-stopped:
				return nil
			}
		},
	})
}
