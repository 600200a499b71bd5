package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	configpkg "github.com/stormhead-org/threads/internal/config"
	ormpkg "github.com/stormhead-org/threads/internal/orm"
)

var migrateTimeout time.Duration

var migrateCommand = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the comment tables",
	Long:  "",
	RunE: func(cmd *cobra.Command, args []string) error {
		return migrateCommandImpl(cmd.Context())
	},
}

func migrateCommandImpl(ctx context.Context) error {
	config, err := configpkg.Load()
	if err != nil {
		return err
	}
	if config.Storage != configpkg.StoragePostgres {
		return fmt.Errorf("migrate requires STORAGE=%s", configpkg.StoragePostgres)
	}

	logger, err := newLogger(config)
	if err != nil {
		return err
	}
	defer logger.Sync()

	client, err := ormpkg.NewPostgresClient(
		config.PostgresHost,
		config.PostgresPort,
		config.PostgresUser,
		config.PostgresPassword,
		config.PostgresDatabase,
		1,
	)
	if err != nil {
		return err
	}
	defer client.Close()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, migrateTimeout)
	defer cancel()

	if err := client.Migrate(ctx); err != nil {
		logger.Error("migration failed", zap.Error(err))
		return err
	}

	logger.Info("migration complete", zap.String("database", config.PostgresDatabase))
	return nil
}

func init() {
	migrateCommand.Flags().DurationVar(&migrateTimeout, "timeout", time.Minute, "migration timeout")
	rootCommand.AddCommand(migrateCommand)
}
