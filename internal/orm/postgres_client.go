package orm

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// maxBatchIDs bounds the size of IN (...) lists sent in one statement.
const maxBatchIDs = 1000

type PostgresClient struct {
	database *gorm.DB
}

func NewPostgresClient(host string, port string, user string, password string, name string, maxOpenConns int) (*PostgresClient, error) {
	return OpenPostgresClient(
		fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			host,
			port,
			user,
			password,
			name,
		),
		maxOpenConns,
	)
}

func OpenPostgresClient(dsn string, maxOpenConns int) (*PostgresClient, error) {
	database, err := gorm.Open(
		postgres.Open(dsn),
		&gorm.Config{
			TranslateError: true,
			Logger:         logger.Default.LogMode(logger.Warn),
		},
	)
	if err != nil {
		return nil, err
	}

	rawDatabase, err := database.DB()
	if err != nil {
		return nil, err
	}

	if maxOpenConns <= 0 {
		maxOpenConns = 1
	}
	rawDatabase.SetMaxOpenConns(maxOpenConns)
	rawDatabase.SetMaxIdleConns(maxOpenConns)
	rawDatabase.SetConnMaxIdleTime(5 * time.Second)

	return &PostgresClient{
		database: database,
	}, nil
}

// Migrate creates or updates the comment and like tables.
func (c *PostgresClient) Migrate(ctx context.Context) error {
	return c.database.WithContext(ctx).AutoMigrate(&Comment{}, &CommentLike{})
}

func (c *PostgresClient) Ping(ctx context.Context) error {
	rawDatabase, err := c.database.DB()
	if err != nil {
		return err
	}
	return rawDatabase.PingContext(ctx)
}

func (c *PostgresClient) Close() error {
	rawDatabase, err := c.database.DB()
	if err != nil {
		return err
	}
	return rawDatabase.Close()
}

// Transaction runs fn inside a database transaction. The client passed to fn
// is bound to the transaction; returning an error rolls it back.
func (c *PostgresClient) Transaction(ctx context.Context, fn func(tx *PostgresClient) error) error {
	return c.database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&PostgresClient{database: tx})
	})
}

// chunkIDs splits ids into consecutive batches of at most maxBatchIDs,
// preserving order.
func chunkIDs(ids []uuid.UUID) [][]uuid.UUID {
	if len(ids) == 0 {
		return nil
	}
	chunks := make([][]uuid.UUID, 0, (len(ids)+maxBatchIDs-1)/maxBatchIDs)
	for start := 0; start < len(ids); start += maxBatchIDs {
		end := min(start+maxBatchIDs, len(ids))
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}
