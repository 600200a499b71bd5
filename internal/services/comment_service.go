package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/stormhead-org/threads/internal/orm"
)

// CommentNode is a comment with its like aggregates and nested replies.
type CommentNode struct {
	ID              uuid.UUID      `json:"id"`
	Content         string         `json:"content"`
	AuthorID        uuid.UUID      `json:"author_id"`
	RecipeID        uuid.UUID      `json:"recipe_id"`
	ParentCommentID *uuid.UUID     `json:"parent_comment_id"`
	CreatedAt       time.Time      `json:"created_at"`
	LikeCount       int64          `json:"like_count"`
	LikedByViewer   bool           `json:"liked_by_viewer"`
	Replies         []*CommentNode `json:"replies"`
}

// CommentService defines the interface for comment-related operations.
type CommentService interface {
	// LoadThread returns the full comment forest of a recipe. viewerID may be
	// nil for anonymous readers.
	LoadThread(ctx context.Context, recipeID uuid.UUID, viewerID *uuid.UUID) ([]*CommentNode, error)
	CreateComment(ctx context.Context, recipeID, authorID uuid.UUID, parentID *uuid.UUID, content string) (*CommentNode, error)
	ReplyToComment(ctx context.Context, parentID, authorID uuid.UUID, content string) (*CommentNode, error)
	GetComment(ctx context.Context, commentID uuid.UUID) (*orm.Comment, error)
	ListAuthorComments(ctx context.Context, authorID uuid.UUID, cursor string, limit int) ([]*orm.Comment, string, error)
	LikeComment(ctx context.Context, commentID, userID uuid.UUID) error
	UnlikeComment(ctx context.Context, commentID, userID uuid.UUID) error
	DeleteComment(ctx context.Context, commentID, requesterID uuid.UUID, asAdmin bool) error
	DeleteAllForAuthor(ctx context.Context, authorID uuid.UUID) error
	DeleteAllForRecipe(ctx context.Context, recipeID uuid.UUID) error
}

// EventPublisher sends domain events to the broker.
type EventPublisher interface {
	WriteMessage(ctx context.Context, event string, message any) error
}
