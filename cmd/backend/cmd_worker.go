package main

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"

	configpkg "github.com/stormhead-org/threads/internal/config"
	eventpkg "github.com/stormhead-org/threads/internal/event"
	metricspkg "github.com/stormhead-org/threads/internal/metrics"
	"github.com/stormhead-org/threads/internal/services"
	workerpkg "github.com/stormhead-org/threads/internal/worker"
)

var workerCommand = &cobra.Command{
	Use:   "worker",
	Short: "Consume user and recipe deletion events",
	Long:  "",
	RunE: func(cmd *cobra.Command, args []string) error {
		return workerCommandImpl()
	},
}

func workerCommandImpl() error {
	config, err := configpkg.Load()
	if err != nil {
		return err
	}
	if !config.KafkaEnabled {
		return errors.New("worker requires KAFKA_ENABLED=1")
	}

	// Application
	application := fx.New(
		fx.Supply(config),
		fx.NopLogger,
		fx.Provide(
			newLogger,
			newStorage,
			newKafkaClient,
			metricspkg.New,
			newCommentService,

			// Application
			func(
				lifecycle fx.Lifecycle,
				logger *zap.Logger,
				kafkaClient *eventpkg.KafkaClient,
				commentService services.CommentService,
			) *workerpkg.Worker {
				worker := workerpkg.NewWorker(logger.Named("worker"), kafkaClient, commentService)

				lifecycle.Append(fx.Hook{
					OnStart: func(ctx context.Context) error {
						return worker.Start()
					},
					OnStop: func(ctx context.Context) error {
						return worker.Stop()
					},
				})

				return worker
			},
		),
		fx.Invoke(
			func(*workerpkg.Worker) {},
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
	rootCommand.AddCommand(workerCommand)
}
