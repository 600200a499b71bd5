package comment

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	eventpkg "github.com/stormhead-org/threads/internal/event"
	"github.com/stormhead-org/threads/internal/lib"
	"github.com/stormhead-org/threads/internal/metrics"
	"github.com/stormhead-org/threads/internal/orm"
	"github.com/stormhead-org/threads/internal/services"
)

const (
	AuthorDeletionSubtree = "subtree"
	AuthorDeletionOwn     = "own"

	defaultPageSize = 20
	maxPageSize     = 100
	publishTimeout  = 5 * time.Second
)

type Config struct {
	// Subtrees up to this many comments are deleted in one transaction.
	DeleteChunkThreshold int
	// Rows per transaction when a subtree is deleted in chunks.
	DeleteChunkSize int
	// AuthorDeletionSubtree or AuthorDeletionOwn.
	AuthorDeletionMode string
}

func DefaultConfig() *Config {
	return &Config{
		DeleteChunkThreshold: 1000,
		DeleteChunkSize:      500,
		AuthorDeletionMode:   AuthorDeletionSubtree,
	}
}

type CommentServiceImpl struct {
	store     services.Store
	log       *zap.Logger
	publisher services.EventPublisher
	metrics   *metrics.Metrics
	config    *Config
}

// NewCommentService builds the comment service. publisher and metrics may
// be nil.
func NewCommentService(store services.Store, log *zap.Logger, publisher services.EventPublisher, metrics *metrics.Metrics, config *Config) services.CommentService {
	if config == nil {
		config = DefaultConfig()
	}
	if config.DeleteChunkSize <= 0 {
		config.DeleteChunkSize = DefaultConfig().DeleteChunkSize
	}
	return &CommentServiceImpl{
		store:     store,
		log:       log,
		publisher: publisher,
		metrics:   metrics,
		config:    config,
	}
}

func (s *CommentServiceImpl) LoadThread(ctx context.Context, recipeID uuid.UUID, viewerID *uuid.UUID) ([]*services.CommentNode, error) {
	rows, err := loadThreadRows(ctx, s.store, recipeID, viewerID)
	if err != nil {
		return nil, s.storeError("error loading thread", err, zap.String("recipe_id", recipeID.String()))
	}

	s.metrics.ObserveThreadLoad(rows.rounds, len(rows.comments))
	return assembleTree(rows.comments, rows.likeCounts, rows.liked), nil
}

func (s *CommentServiceImpl) CreateComment(ctx context.Context, recipeID, authorID uuid.UUID, parentID *uuid.UUID, content string) (*services.CommentNode, error) {
	if strings.TrimSpace(content) == "" {
		return nil, lib.InvalidArgumentError("content must not be empty")
	}

	comment := &orm.Comment{
		RecipeID: recipeID,
		AuthorID: authorID,
		Content:  content,
	}
	if parentID != nil {
		parent := *parentID
		comment.ParentCommentID = &parent
	}

	var parentAuthorID *uuid.UUID
	err := s.store.Transaction(ctx, func(tx services.Store) error {
		if comment.ParentCommentID != nil {
			parent, err := tx.SelectCommentByID(ctx, *comment.ParentCommentID)
			if err != nil {
				return err
			}
			if parent.RecipeID != recipeID {
				return lib.NotFoundError("parent comment not found")
			}
			parentAuthorID = &parent.AuthorID
		}
		return tx.InsertComment(ctx, comment)
	})
	if err != nil {
		return nil, s.storeError(
			"error inserting comment",
			err,
			zap.String("recipe_id", recipeID.String()),
			zap.String("author_id", authorID.String()),
		)
	}

	s.metrics.IncMutation("create")
	s.log.Debug(
		"comment created",
		zap.String("comment_id", comment.ID.String()),
		zap.String("recipe_id", recipeID.String()),
	)

	message := eventpkg.CommentCreatedMessage{
		ID:       comment.ID.String(),
		RecipeID: comment.RecipeID.String(),
		AuthorID: comment.AuthorID.String(),
	}
	if comment.ParentCommentID != nil {
		parent := comment.ParentCommentID.String()
		message.ParentCommentID = &parent
	}
	if parentAuthorID != nil {
		parentAuthor := parentAuthorID.String()
		message.ParentAuthorID = &parentAuthor
	}
	s.publish(ctx, eventpkg.COMMENT_CREATED, message)

	return newCommentNode(comment, 0, false), nil
}

func (s *CommentServiceImpl) ReplyToComment(ctx context.Context, parentID, authorID uuid.UUID, content string) (*services.CommentNode, error) {
	if strings.TrimSpace(content) == "" {
		return nil, lib.InvalidArgumentError("content must not be empty")
	}

	parent, err := s.store.SelectCommentByID(ctx, parentID)
	if err != nil {
		return nil, s.storeError("error selecting parent comment", err, zap.String("comment_id", parentID.String()))
	}

	return s.CreateComment(ctx, parent.RecipeID, authorID, &parentID, content)
}

func (s *CommentServiceImpl) GetComment(ctx context.Context, commentID uuid.UUID) (*orm.Comment, error) {
	comment, err := s.store.SelectCommentByID(ctx, commentID)
	if err != nil {
		return nil, s.storeError("error selecting comment by id", err, zap.String("comment_id", commentID.String()))
	}
	return comment, nil
}

func (s *CommentServiceImpl) ListAuthorComments(ctx context.Context, authorID uuid.UUID, cursor string, limit int) ([]*orm.Comment, string, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	limit = min(limit, maxPageSize)

	comments, err := s.store.SelectCommentsByAuthorWithPagination(ctx, authorID, limit, cursor)
	if err != nil {
		return nil, "", s.storeError("error listing author comments", err, zap.String("author_id", authorID.String()))
	}

	nextCursor := ""
	if len(comments) == limit {
		nextCursor = lib.EncodeCursor(comments[len(comments)-1])
	}
	return comments, nextCursor, nil
}

func (s *CommentServiceImpl) LikeComment(ctx context.Context, commentID, userID uuid.UUID) error {
	err := s.store.Transaction(ctx, func(tx services.Store) error {
		if _, err := tx.SelectCommentByID(ctx, commentID); err != nil {
			return err
		}
		return tx.InsertCommentLike(ctx, commentID, userID)
	})
	if err != nil {
		return s.storeError(
			"error liking comment",
			err,
			zap.String("comment_id", commentID.String()),
			zap.String("user_id", userID.String()),
		)
	}

	s.metrics.IncMutation("like")
	return nil
}

func (s *CommentServiceImpl) UnlikeComment(ctx context.Context, commentID, userID uuid.UUID) error {
	err := s.store.Transaction(ctx, func(tx services.Store) error {
		if _, err := tx.SelectCommentByID(ctx, commentID); err != nil {
			return err
		}
		return tx.DeleteCommentLike(ctx, commentID, userID)
	})
	if err != nil {
		return s.storeError(
			"error unliking comment",
			err,
			zap.String("comment_id", commentID.String()),
			zap.String("user_id", userID.String()),
		)
	}

	s.metrics.IncMutation("unlike")
	return nil
}

// storeError converts err into the error taxonomy. Only storage failures
// are logged as errors; rejections are expected traffic.
func (s *CommentServiceImpl) storeError(message string, err error, fields ...zap.Field) error {
	converted := lib.HandleError(err)
	fields = append(fields, zap.Error(err))
	if errors.Is(converted, lib.ErrUnavailable) {
		s.log.Error(message, fields...)
	} else {
		s.log.Debug(message, fields...)
	}
	return converted
}

// publish sends an event after commit. Delivery is best effort.
func (s *CommentServiceImpl) publish(ctx context.Context, event string, message any) {
	if s.publisher == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.publisher.WriteMessage(ctx, event, message); err != nil {
		s.log.Warn("error publishing event", zap.String("event", event), zap.Error(err))
	}
}
