package comment

import (
	"context"

	"github.com/google/uuid"

	"github.com/stormhead-org/threads/internal/orm"
	"github.com/stormhead-org/threads/internal/services"
)

// threadRows is the flat result of loading one recipe thread.
type threadRows struct {
	comments   []*orm.Comment
	likeCounts map[uuid.UUID]int64
	liked      map[uuid.UUID]bool
	rounds     int
}

// expandFrontier collects seeds and every descendant of them, one
// SelectChildComments round per tree level. Each comment appears once even
// when seeds overlap. With lock set every frontier is row-locked before it
// is expanded, which must happen inside a transaction.
func expandFrontier(ctx context.Context, store services.CommentStore, seeds []*orm.Comment, lock bool) ([]*orm.Comment, int, error) {
	visited := make(map[uuid.UUID]bool, len(seeds))
	collected := make([]*orm.Comment, 0, len(seeds))
	frontier := make([]uuid.UUID, 0, len(seeds))
	for _, seed := range seeds {
		if visited[seed.ID] {
			continue
		}
		visited[seed.ID] = true
		collected = append(collected, seed)
		frontier = append(frontier, seed.ID)
	}

	rounds := 0
	for len(frontier) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, rounds, err
		}

		if lock {
			if err := store.LockComments(ctx, frontier); err != nil {
				return nil, rounds, err
			}
		}

		children, err := store.SelectChildComments(ctx, frontier)
		if err != nil {
			return nil, rounds, err
		}
		rounds++

		next := make([]uuid.UUID, 0, len(children))
		for _, child := range children {
			if visited[child.ID] {
				continue
			}
			visited[child.ID] = true
			collected = append(collected, child)
			next = append(next, child.ID)
		}
		frontier = next
	}

	return collected, rounds, nil
}

// loadThreadRows reads every comment of a recipe plus like aggregates.
// viewerID may be nil, in which case the liked set is empty.
func loadThreadRows(ctx context.Context, store services.Store, recipeID uuid.UUID, viewerID *uuid.UUID) (*threadRows, error) {
	topLevel, err := store.SelectTopLevelComments(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	if len(topLevel) == 0 {
		return &threadRows{rounds: 1}, nil
	}

	comments, rounds, err := expandFrontier(ctx, store, topLevel, false)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(comments))
	for i, comment := range comments {
		ids[i] = comment.ID
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	likeCounts, err := store.CountCommentLikes(ctx, ids)
	if err != nil {
		return nil, err
	}

	liked := map[uuid.UUID]bool{}
	if viewerID != nil {
		liked, err = store.SelectLikedCommentIDs(ctx, ids, *viewerID)
		if err != nil {
			return nil, err
		}
	}

	return &threadRows{
		comments:   comments,
		likeCounts: likeCounts,
		liked:      liked,
		rounds:     rounds + 1,
	}, nil
}
