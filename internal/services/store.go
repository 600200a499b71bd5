package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/stormhead-org/threads/internal/orm"
)

// CommentStore persists comments and their parent links.
type CommentStore interface {
	InsertComment(ctx context.Context, comment *orm.Comment) error
	SelectCommentByID(ctx context.Context, id uuid.UUID) (*orm.Comment, error)
	SelectTopLevelComments(ctx context.Context, recipeID uuid.UUID) ([]*orm.Comment, error)
	SelectChildComments(ctx context.Context, parentIDs []uuid.UUID) ([]*orm.Comment, error)
	SelectCommentsByAuthor(ctx context.Context, authorID uuid.UUID) ([]*orm.Comment, error)
	SelectCommentsByAuthorWithPagination(ctx context.Context, authorID uuid.UUID, limit int, cursor string) ([]*orm.Comment, error)
	LockComments(ctx context.Context, ids []uuid.UUID) error
	ReparentComments(ctx context.Context, ids []uuid.UUID, parentID *uuid.UUID) error
	DeleteComment(ctx context.Context, id uuid.UUID) error
	DeleteCommentsByIDs(ctx context.Context, ids []uuid.UUID) (int64, error)
	DeleteCommentsByRecipe(ctx context.Context, recipeID uuid.UUID) (int64, error)
	DeleteCommentsByAuthor(ctx context.Context, authorID uuid.UUID) (int64, error)
}

// LikeStore persists (comment, user) like pairs.
type LikeStore interface {
	InsertCommentLike(ctx context.Context, commentID uuid.UUID, userID uuid.UUID) error
	DeleteCommentLike(ctx context.Context, commentID uuid.UUID, userID uuid.UUID) error
	CountCommentLikes(ctx context.Context, commentIDs []uuid.UUID) (map[uuid.UUID]int64, error)
	SelectLikedCommentIDs(ctx context.Context, commentIDs []uuid.UUID, userID uuid.UUID) (map[uuid.UUID]bool, error)
	DeleteCommentLikesByCommentIDs(ctx context.Context, commentIDs []uuid.UUID) (int64, error)
	DeleteCommentLikesByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	DeleteCommentLikesByRecipe(ctx context.Context, recipeID uuid.UUID) (int64, error)
}

// Store combines both stores with a transaction boundary. The Store handed to
// fn is bound to the transaction.
type Store interface {
	CommentStore
	LikeStore
	Transaction(ctx context.Context, fn func(tx Store) error) error
}
