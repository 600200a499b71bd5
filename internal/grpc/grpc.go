package grpc

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health service name reported next to the overall ("")
// status.
const ServiceName = "threads.CommentService"

const probeInterval = 10 * time.Second

// Pinger reports whether the storage backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type GRPC struct {
	logger *zap.Logger
	host   string
	port   string
	server *grpc.Server
	health *health.Server
	pinger Pinger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewGRPC builds a gRPC server exposing the standard health and reflection
// services. When pinger is set, the service status follows storage
// reachability.
func NewGRPC(logger *zap.Logger, host string, port string, pinger Pinger) *GRPC {
	grpcServer := grpc.NewServer()

	// Health API
	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	// Reflection API
	reflection.Register(grpcServer)

	return &GRPC{
		logger: logger,
		host:   host,
		port:   port,
		server: grpcServer,
		health: healthServer,
		pinger: pinger,
	}
}

func (this *GRPC) Start() error {
	listener, err := net.Listen("tcp", fmt.Sprintf("%s:%s", this.host, this.port))
	if err != nil {
		return err
	}
	return this.Serve(listener)
}

// Serve starts serving on an existing listener.
func (this *GRPC) Serve(listener net.Listener) error {
	ctx, cancel := context.WithCancel(context.Background())
	this.cancel = cancel

	if this.pinger != nil {
		this.wg.Add(1)
		go func() {
			defer this.wg.Done()
			this.probe(ctx)
		}()
	}

	go func() {
		this.logger.Info("GRPC server started", zap.String("addr", listener.Addr().String()))
		err := this.server.Serve(listener)
		if err != nil {
			this.logger.Error("GRPC server stopped", zap.Error(err))
		}
	}()

	return nil
}

func (this *GRPC) Stop() error {
	if this.cancel != nil {
		this.cancel()
	}
	this.wg.Wait()

	this.health.Shutdown()
	this.server.GracefulStop()
	this.logger.Info("GRPC server stopped gracefully")
	return nil
}

func (this *GRPC) probe(ctx context.Context) {
	ticker := time.NewTicker(probeInterval)
	defer ticker.Stop()

	for {
		this.check(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (this *GRPC) check(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, probeInterval/2)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := this.pinger.Ping(pingCtx); err != nil {
		if ctx.Err() != nil {
			return
		}
		this.logger.Warn("storage ping failed", zap.Error(err))
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	this.health.SetServingStatus(ServiceName, status)
}
