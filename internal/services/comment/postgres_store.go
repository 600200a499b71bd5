package comment

import (
	"context"

	"github.com/stormhead-org/threads/internal/orm"
	"github.com/stormhead-org/threads/internal/services"
)

type postgresStore struct {
	*orm.PostgresClient
}

// NewPostgresStore exposes a PostgresClient as a services.Store.
func NewPostgresStore(db *orm.PostgresClient) services.Store {
	return &postgresStore{PostgresClient: db}
}

func (s *postgresStore) Transaction(ctx context.Context, fn func(tx services.Store) error) error {
	return s.PostgresClient.Transaction(ctx, func(tx *orm.PostgresClient) error {
		return fn(&postgresStore{PostgresClient: tx})
	})
}
