package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"

	apipkg "github.com/stormhead-org/threads/internal/api"
	commentapipkg "github.com/stormhead-org/threads/internal/api/comment"
	configpkg "github.com/stormhead-org/threads/internal/config"
	grpcpkg "github.com/stormhead-org/threads/internal/grpc"
	jwtpkg "github.com/stormhead-org/threads/internal/jwt"
	metricspkg "github.com/stormhead-org/threads/internal/metrics"
	"github.com/stormhead-org/threads/internal/middleware"
	"github.com/stormhead-org/threads/internal/services"
)

var serverCommand = &cobra.Command{
	Use:   "server",
	Short: "Serve the comment HTTP API and gRPC health",
	Long:  "",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serverCommandImpl()
	},
}

func serverCommandImpl() error {
	config, err := configpkg.Load()
	if err != nil {
		return err
	}

	// Application
	application := fx.New(
		fx.Supply(config),
		fx.WithLogger(fxLogger),
		fx.Provide(
			newLogger,

			func(config *configpkg.Config) *jwtpkg.JWT {
				return jwtpkg.NewJWT(config.JWTSecret)
			},

			// Clients
			newStorage,
			newKafkaClient,
			metricspkg.New,

			// Services
			newCommentService,

			// HTTP server
			func(
				lifecycle fx.Lifecycle,
				config *configpkg.Config,
				logger *zap.Logger,
				jwt *jwtpkg.JWT,
				metrics *metricspkg.Metrics,
				commentService services.CommentService,
			) *http.Server {
				router := apipkg.NewRouter(
					logger.Named("http"),
					middleware.NewAuthorizationMiddleware(logger, jwt),
					metrics.Handler(),
				)
				commentapipkg.NewCommentAPI(logger.Named("api"), commentService).Register(router)

				server := &http.Server{
					Addr:              net.JoinHostPort(config.HTTPHost, config.HTTPPort),
					Handler:           router,
					ReadHeaderTimeout: 5 * time.Second,
				}

				lifecycle.Append(fx.Hook{
					OnStart: func(ctx context.Context) error {
						listener, err := net.Listen("tcp", server.Addr)
						if err != nil {
							return err
						}
						go func() {
							logger.Info("HTTP server started", zap.String("addr", listener.Addr().String()))
							err := server.Serve(listener)
							if err != nil && !errors.Is(err, http.ErrServerClosed) {
								logger.Error("HTTP server stopped", zap.Error(err))
							}
						}()
						return nil
					},
					OnStop: func(ctx context.Context) error {
						return server.Shutdown(ctx)
					},
				})
				return server
			},

			// gRPC health server
			func(lifecycle fx.Lifecycle, config *configpkg.Config, logger *zap.Logger, storage *storage) *grpcpkg.GRPC {
				grpcServer := grpcpkg.NewGRPC(logger.Named("grpc"), config.GRPCHost, config.GRPCPort, storage.pinger)
				lifecycle.Append(fx.Hook{
					OnStart: func(ctx context.Context) error {
						return grpcServer.Start()
					},
					OnStop: func(ctx context.Context) error {
						return grpcServer.Stop()
					},
				})
				return grpcServer
			},
		),
		fx.Invoke(
			func(*http.Server) {},
			func(*grpcpkg.GRPC) {},
		),
	)
	application.Run()

	err = application.Err()
	if err != nil {
		os.Exit(1)
	}

	return nil
}

func init() {
	rootCommand.AddCommand(serverCommand)
}
