package lib

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Paginatable defines the interface for models that can be paginated.
// The model must have an ID and a CreatedAt field.
type Paginatable interface {
	GetID() uuid.UUID
	GetCreatedAt() time.Time
}

// Cursor is a decoded keyset position.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// EncodeCursor builds an opaque cursor pointing right after item.
func EncodeCursor(item Paginatable) string {
	raw := fmt.Sprintf("%s|%s", item.GetCreatedAt().UTC().Format(time.RFC3339Nano), item.GetID())
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses a cursor produced by EncodeCursor.
func DecodeCursor(cursor string) (*Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, InvalidArgumentError("malformed cursor")
	}

	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 {
		return nil, InvalidArgumentError("malformed cursor")
	}

	createdAt, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return nil, InvalidArgumentError("malformed cursor")
	}

	id, err := uuid.Parse(parts[1])
	if err != nil {
		return nil, InvalidArgumentError("malformed cursor")
	}

	return &Cursor{CreatedAt: createdAt, ID: id}, nil
}

// After reports whether item sorts after the cursor in created_at DESC, id DESC order.
func (c *Cursor) After(item Paginatable) bool {
	if item.GetCreatedAt().Equal(c.CreatedAt) {
		return item.GetID().String() < c.ID.String()
	}
	return item.GetCreatedAt().Before(c.CreatedAt)
}

// Paginate applies cursor-based keyset pagination to a GORM query.
// The query must be ordered by `created_at DESC, id DESC`.
func Paginate(query *gorm.DB, cursor string, limit int) (*gorm.DB, error) {
	if cursor == "" {
		return query.Limit(limit), nil
	}

	position, err := DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}

	paginatedQuery := query.Where(
		"(created_at < ?) OR (created_at = ? AND id < ?)",
		position.CreatedAt,
		position.CreatedAt,
		position.ID,
	).Limit(limit)

	return paginatedQuery, nil
}
