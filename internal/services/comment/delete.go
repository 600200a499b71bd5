package comment

import (
	"context"
	"errors"
	"slices"

	"github.com/google/uuid"
	"go.uber.org/zap"

	eventpkg "github.com/stormhead-org/threads/internal/event"
	"github.com/stormhead-org/threads/internal/lib"
	"github.com/stormhead-org/threads/internal/orm"
	"github.com/stormhead-org/threads/internal/services"
)

const (
	deleteReasonComment = "comment"
	deleteReasonAuthor  = "author"
	deleteReasonRecipe  = "recipe"

	maxPurgeAttempts = 3
)

var (
	errSubtreeTooLarge = errors.New("subtree exceeds the single transaction threshold")
	errSubtreeChanged  = errors.New("subtree gained replies during deletion")
)

// purgePlan describes one recursive deletion.
type purgePlan struct {
	reason string
	// seeds returns the roots of the subtrees to delete.
	seeds func(ctx context.Context, store services.Store) ([]*orm.Comment, error)
	// deleteAll removes the likes and comments of a fully collected
	// subtree in one transaction. Defaults to deleteByIDs.
	deleteAll func(ctx context.Context, tx services.Store, ids []uuid.UUID) (int64, error)
	// cleanup runs in the transaction that removes the last comments.
	cleanup func(ctx context.Context, tx services.Store) error
}

func deleteByIDs(ctx context.Context, tx services.Store, ids []uuid.UUID) (int64, error) {
	if _, err := tx.DeleteCommentLikesByCommentIDs(ctx, ids); err != nil {
		return 0, err
	}
	if len(ids) == 1 {
		if err := tx.DeleteComment(ctx, ids[0]); err != nil {
			return 0, err
		}
		return 1, nil
	}
	return tx.DeleteCommentsByIDs(ctx, ids)
}

func (s *CommentServiceImpl) DeleteComment(ctx context.Context, commentID, requesterID uuid.UUID, asAdmin bool) error {
	target, err := s.store.SelectCommentByID(ctx, commentID)
	if err != nil {
		return s.storeError("error selecting comment by id", err, zap.String("comment_id", commentID.String()))
	}

	if !asAdmin && target.AuthorID != requesterID {
		s.log.Debug(
			"comment delete rejected",
			zap.String("comment_id", commentID.String()),
			zap.String("requester_id", requesterID.String()),
		)
		return lib.PermissionDeniedError("not an author")
	}

	deleted, err := s.purge(ctx, purgePlan{
		reason: deleteReasonComment,
		seeds: func(ctx context.Context, store services.Store) ([]*orm.Comment, error) {
			// A concurrent delete may have removed it since the check above.
			comment, err := store.SelectCommentByID(ctx, commentID)
			if err != nil {
				return nil, err
			}
			return []*orm.Comment{comment}, nil
		},
	})
	if err != nil {
		return s.storeError("error deleting comment", err, zap.String("comment_id", commentID.String()))
	}

	s.log.Info(
		"comment deleted",
		zap.String("comment_id", commentID.String()),
		zap.Bool("as_admin", asAdmin),
		zap.Int64("deleted", deleted),
	)

	s.publish(ctx, eventpkg.COMMENT_DELETED, eventpkg.CommentDeletedMessage{
		ID:           target.ID.String(),
		RecipeID:     target.RecipeID.String(),
		DeletedCount: deleted,
	})
	return nil
}

func (s *CommentServiceImpl) DeleteAllForAuthor(ctx context.Context, authorID uuid.UUID) error {
	var (
		deleted int64
		err     error
	)

	switch s.config.AuthorDeletionMode {
	case AuthorDeletionOwn:
		deleted, err = s.deleteOwnComments(ctx, authorID)
	default:
		deleted, err = s.purge(ctx, purgePlan{
			reason: deleteReasonAuthor,
			seeds: func(ctx context.Context, store services.Store) ([]*orm.Comment, error) {
				return store.SelectCommentsByAuthor(ctx, authorID)
			},
			cleanup: func(ctx context.Context, tx services.Store) error {
				_, err := tx.DeleteCommentLikesByUser(ctx, authorID)
				return err
			},
		})
	}
	if err != nil {
		return s.storeError("error deleting author comments", err, zap.String("author_id", authorID.String()))
	}

	s.log.Info(
		"author comments deleted",
		zap.String("author_id", authorID.String()),
		zap.String("mode", s.config.AuthorDeletionMode),
		zap.Int64("deleted", deleted),
	)
	return nil
}

func (s *CommentServiceImpl) DeleteAllForRecipe(ctx context.Context, recipeID uuid.UUID) error {
	deleted, err := s.purge(ctx, purgePlan{
		reason: deleteReasonRecipe,
		seeds: func(ctx context.Context, store services.Store) ([]*orm.Comment, error) {
			return store.SelectTopLevelComments(ctx, recipeID)
		},
		deleteAll: func(ctx context.Context, tx services.Store, ids []uuid.UUID) (int64, error) {
			if _, err := tx.DeleteCommentLikesByRecipe(ctx, recipeID); err != nil {
				return 0, err
			}
			return tx.DeleteCommentsByRecipe(ctx, recipeID)
		},
	})
	if err != nil {
		return s.storeError("error deleting recipe comments", err, zap.String("recipe_id", recipeID.String()))
	}

	s.log.Info(
		"recipe comments deleted",
		zap.String("recipe_id", recipeID.String()),
		zap.Int64("deleted", deleted),
	)
	return nil
}

// purge deletes the subtrees named by plan together with their likes.
// Subtrees within the configured threshold go in one transaction that
// row-locks every collected level first, so a concurrent reply either
// commits before and is deleted too, or fails on the missing parent.
// Larger subtrees fall back to purgeInChunks.
func (s *CommentServiceImpl) purge(ctx context.Context, plan purgePlan) (int64, error) {
	deleteAll := plan.deleteAll
	if deleteAll == nil {
		deleteAll = deleteByIDs
	}

	var deleted int64
	err := s.store.Transaction(ctx, func(tx services.Store) error {
		seeds, err := plan.seeds(ctx, tx)
		if err != nil {
			return err
		}

		rows, _, err := expandFrontier(ctx, tx, seeds, true)
		if err != nil {
			return err
		}
		if len(rows) > s.config.DeleteChunkThreshold {
			return errSubtreeTooLarge
		}

		if plan.cleanup != nil {
			if err := plan.cleanup(ctx, tx); err != nil {
				return err
			}
		}
		if len(rows) == 0 {
			return nil
		}

		deleted, err = deleteAll(ctx, tx, deletionOrder(rows))
		return err
	})
	if errors.Is(err, errSubtreeTooLarge) {
		s.log.Info("deleting large subtree in chunks", zap.String("reason", plan.reason))
		deleted, err = s.purgeInChunks(ctx, plan)
		s.metrics.AddDeletedComments(plan.reason, deleted)
		return deleted, err
	}
	if err != nil {
		return 0, err
	}

	s.metrics.AddDeletedComments(plan.reason, deleted)
	return deleted, nil
}

// purgeInChunks deletes deepest comments first, one transaction per chunk,
// so the stored forest stays consistent between chunks. A chunk that finds
// a reply it did not collect restarts the collection.
func (s *CommentServiceImpl) purgeInChunks(ctx context.Context, plan purgePlan) (int64, error) {
	var total int64
	for attempt := 1; attempt <= maxPurgeAttempts; attempt++ {
		seeds, err := plan.seeds(ctx, s.store)
		if err != nil {
			return total, err
		}
		rows, _, err := expandFrontier(ctx, s.store, seeds, false)
		if err != nil {
			return total, err
		}

		deleted, err := s.deleteChunks(ctx, deletionOrder(rows))
		total += deleted
		if errors.Is(err, errSubtreeChanged) {
			s.log.Info(
				"subtree changed during chunked deletion",
				zap.String("reason", plan.reason),
				zap.Int("attempt", attempt),
			)
			continue
		}
		if err != nil {
			return total, err
		}

		if plan.cleanup != nil {
			err = s.store.Transaction(ctx, func(tx services.Store) error {
				return plan.cleanup(ctx, tx)
			})
		}
		return total, err
	}

	return total, lib.ConflictError("comment subtree kept changing during deletion")
}

func (s *CommentServiceImpl) deleteChunks(ctx context.Context, ids []uuid.UUID) (int64, error) {
	var total int64
	for start := 0; start < len(ids); start += s.config.DeleteChunkSize {
		chunk := ids[start:min(start+s.config.DeleteChunkSize, len(ids))]

		var deleted int64
		err := s.store.Transaction(ctx, func(tx services.Store) error {
			if err := tx.LockComments(ctx, chunk); err != nil {
				return err
			}

			children, err := tx.SelectChildComments(ctx, chunk)
			if err != nil {
				return err
			}
			if len(children) > 0 {
				inChunk := make(map[uuid.UUID]bool, len(chunk))
				for _, id := range chunk {
					inChunk[id] = true
				}
				for _, child := range children {
					if !inChunk[child.ID] {
						return errSubtreeChanged
					}
				}
			}

			deleted, err = deleteByIDs(ctx, tx, chunk)
			return err
		})
		if err != nil {
			return total, err
		}
		total += deleted
	}
	return total, nil
}

// deleteOwnComments removes only the author's comments. Replies by other
// users move up to the nearest ancestor that survives, or to the top level.
func (s *CommentServiceImpl) deleteOwnComments(ctx context.Context, authorID uuid.UUID) (int64, error) {
	var deleted int64
	err := s.store.Transaction(ctx, func(tx services.Store) error {
		own, err := tx.SelectCommentsByAuthor(ctx, authorID)
		if err != nil {
			return err
		}

		if len(own) > 0 {
			ownByID := make(map[uuid.UUID]*orm.Comment, len(own))
			ownIDs := make([]uuid.UUID, len(own))
			for i, comment := range own {
				ownByID[comment.ID] = comment
				ownIDs[i] = comment.ID
			}

			if err := tx.LockComments(ctx, ownIDs); err != nil {
				return err
			}
			children, err := tx.SelectChildComments(ctx, ownIDs)
			if err != nil {
				return err
			}

			moves := make(map[uuid.UUID][]uuid.UUID)
			for _, child := range children {
				if _, ok := ownByID[child.ID]; ok {
					continue
				}
				newParent := survivingAncestor(ownByID[*child.ParentCommentID], ownByID)
				key := uuid.Nil
				if newParent != nil {
					key = *newParent
				}
				moves[key] = append(moves[key], child.ID)
			}

			for parentID, ids := range moves {
				var target *uuid.UUID
				if parentID != uuid.Nil {
					target = &parentID
				}
				if err := tx.ReparentComments(ctx, ids, target); err != nil {
					return err
				}
			}

			if _, err := tx.DeleteCommentLikesByCommentIDs(ctx, ownIDs); err != nil {
				return err
			}
		}

		if _, err := tx.DeleteCommentLikesByUser(ctx, authorID); err != nil {
			return err
		}

		deleted, err = tx.DeleteCommentsByAuthor(ctx, authorID)
		return err
	})

	if err != nil {
		return 0, err
	}

	s.metrics.AddDeletedComments(deleteReasonAuthor, deleted)
	return deleted, nil
}

// survivingAncestor walks up from comment through doomed ancestors and
// returns the first parent id outside doomed, or nil for the top level.
func survivingAncestor(comment *orm.Comment, doomed map[uuid.UUID]*orm.Comment) *uuid.UUID {
	for comment.ParentCommentID != nil {
		parent, ok := doomed[*comment.ParentCommentID]
		if !ok {
			parentID := *comment.ParentCommentID
			return &parentID
		}
		comment = parent
	}
	return nil
}

// deletionOrder returns the ids of rows ordered deepest first, where depth
// counts only ancestors present in rows. Deleting in this order never
// removes a parent before its children.
func deletionOrder(rows []*orm.Comment) []uuid.UUID {
	byID := make(map[uuid.UUID]*orm.Comment, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}

	depth := make(map[uuid.UUID]int, len(rows))
	for _, row := range rows {
		if _, ok := depth[row.ID]; ok {
			continue
		}

		var chain []uuid.UUID
		onChain := make(map[uuid.UUID]bool)
		base := -1
		current := row
		for {
			if known, ok := depth[current.ID]; ok {
				base = known
				break
			}
			if onChain[current.ID] {
				break
			}
			onChain[current.ID] = true
			chain = append(chain, current.ID)
			if current.ParentCommentID == nil {
				break
			}
			parent, ok := byID[*current.ParentCommentID]
			if !ok {
				break
			}
			current = parent
		}
		for i := len(chain) - 1; i >= 0; i-- {
			base++
			depth[chain[i]] = base
		}
	}

	ids := make([]uuid.UUID, 0, len(byID))
	for _, row := range rows {
		if _, ok := byID[row.ID]; ok {
			ids = append(ids, row.ID)
			delete(byID, row.ID)
		}
	}
	slices.SortStableFunc(ids, func(a, b uuid.UUID) int {
		return depth[b] - depth[a]
	})
	return ids
}
