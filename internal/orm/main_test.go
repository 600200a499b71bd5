//go:build integration

package orm

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

var (
	pgContainer *postgres.PostgresContainer
	testClient  *PostgresClient
)

func TestMain(m *testing.M) {
	ctx := context.Background()

	logger, _ := zap.NewDevelopment()

	err := setupTestDatabase(ctx)
	if err != nil {
		logger.Fatal("failed to set up test database", zap.Error(err))
	}

	exitCode := m.Run()

	testClient.Close()
	if err := pgContainer.Terminate(ctx); err != nil {
		logger.Error("failed to tear down test database", zap.Error(err))
	}

	os.Exit(exitCode)
}

func setupTestDatabase(ctx context.Context) error {
	var err error
	pgContainer, err = postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Minute)),
	)
	if err != nil {
		return fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return fmt.Errorf("failed to get postgres connection string: %w", err)
	}

	testClient, err = OpenPostgresClient(connStr, 4)
	if err != nil {
		return err
	}
	return testClient.Migrate(ctx)
}
