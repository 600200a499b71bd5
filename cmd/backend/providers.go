package main

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	configpkg "github.com/stormhead-org/threads/internal/config"
	eventpkg "github.com/stormhead-org/threads/internal/event"
	grpcpkg "github.com/stormhead-org/threads/internal/grpc"
	metricspkg "github.com/stormhead-org/threads/internal/metrics"
	ormpkg "github.com/stormhead-org/threads/internal/orm"
	"github.com/stormhead-org/threads/internal/services"
	commentpkg "github.com/stormhead-org/threads/internal/services/comment"
)

// storage bundles the comment store with the probe used by gRPC health.
// pinger is nil for in-memory storage.
type storage struct {
	store  services.Store
	pinger grpcpkg.Pinger
}

func newLogger(config *configpkg.Config) (*zap.Logger, error) {
	if config.Debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func fxLogger(logger *zap.Logger) fxevent.Logger {
	return &fxevent.ZapLogger{Logger: logger.Named("fx")}
}

func newStorage(lifecycle fx.Lifecycle, config *configpkg.Config, logger *zap.Logger) (*storage, error) {
	if config.Storage == configpkg.StorageMemory {
		logger.Warn("using in-memory storage, data is lost on restart")
		return &storage{store: commentpkg.NewInMemoryStore()}, nil
	}

	client, err := ormpkg.NewPostgresClient(
		config.PostgresHost,
		config.PostgresPort,
		config.PostgresUser,
		config.PostgresPassword,
		config.PostgresDatabase,
		config.PostgresMaxOpenConns,
	)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if !config.Debug {
				return nil
			}
			logger.Debug("migrating database")
			return client.Migrate(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})

	return &storage{store: commentpkg.NewPostgresStore(client), pinger: client}, nil
}

func newKafkaClient(lifecycle fx.Lifecycle, config *configpkg.Config) (*eventpkg.KafkaClient, error) {
	if !config.KafkaEnabled {
		return nil, nil
	}

	client, err := eventpkg.NewKafkaClient(
		config.KafkaHost,
		config.KafkaPort,
		config.KafkaTopic,
		config.KafkaGroup,
	)
	if err != nil {
		return nil, err
	}

	lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}

func newCommentService(
	config *configpkg.Config,
	logger *zap.Logger,
	storage *storage,
	kafkaClient *eventpkg.KafkaClient,
	metrics *metricspkg.Metrics,
) services.CommentService {
	// Keep the interface nil when Kafka is disabled.
	var publisher services.EventPublisher
	if kafkaClient != nil {
		publisher = kafkaClient
	}

	return commentpkg.NewCommentService(
		storage.store,
		logger.Named("comments"),
		publisher,
		metrics,
		&commentpkg.Config{
			DeleteChunkThreshold: config.DeleteChunkThreshold,
			DeleteChunkSize:      config.DeleteChunkSize,
			AuthorDeletionMode:   config.AuthorDeletionMode,
		},
	)
}
