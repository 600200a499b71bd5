package comment

import (
	"context"
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stormhead-org/threads/internal/orm"
	"github.com/stormhead-org/threads/internal/services"
)

type countingStore struct {
	*InMemoryStore
	childQueries int
	likeQueries  int
}

func (s *countingStore) SelectChildComments(ctx context.Context, parentIDs []uuid.UUID) ([]*orm.Comment, error) {
	s.childQueries++
	return s.InMemoryStore.SelectChildComments(ctx, parentIDs)
}

func (s *countingStore) CountCommentLikes(ctx context.Context, commentIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	s.likeQueries++
	return s.InMemoryStore.CountCommentLikes(ctx, commentIDs)
}

func (s *countingStore) SelectLikedCommentIDs(ctx context.Context, commentIDs []uuid.UUID, userID uuid.UUID) (map[uuid.UUID]bool, error) {
	s.likeQueries++
	return s.InMemoryStore.SelectLikedCommentIDs(ctx, commentIDs, userID)
}

func TestLoadThread_RandomForestsAreComplete(t *testing.T) {
	random := rand.New(rand.NewSource(7))

	for round := 0; round < 20; round++ {
		env := newTestEnv(t, nil)
		recipeID, otherRecipe := uuid.New(), uuid.New()

		posted := map[uuid.UUID]*services.CommentNode{}
		var nodes []*services.CommentNode
		size := 1 + random.Intn(60)
		for i := 0; i < size; i++ {
			var parent *services.CommentNode
			if len(nodes) > 0 && random.Intn(4) != 0 {
				parent = nodes[random.Intn(len(nodes))]
			}
			node := env.post(t, recipeID, uuid.New(), parent, "text")
			posted[node.ID] = node
			nodes = append(nodes, node)
		}
		env.post(t, otherRecipe, uuid.New(), nil, "noise")

		loaded := flatten(env.thread(t, recipeID, nil))
		require.Len(t, loaded, len(posted))

		seen := map[uuid.UUID]bool{}
		for _, node := range loaded {
			require.False(t, seen[node.ID], "comment %s appears twice", node.ID)
			seen[node.ID] = true

			original, ok := posted[node.ID]
			require.True(t, ok)
			assert.Equal(t, original.ParentCommentID, node.ParentCommentID)
			for i, reply := range node.Replies {
				require.NotNil(t, reply.ParentCommentID)
				assert.Equal(t, node.ID, *reply.ParentCommentID)
				if i > 0 {
					assert.False(t, reply.CreatedAt.Before(node.Replies[i-1].CreatedAt), "replies oldest first")
				}
			}
		}
	}
}

func TestLoadThread_TopLevelNewestFirst(t *testing.T) {
	env := newTestEnv(t, nil)
	recipeID := uuid.New()
	first := env.post(t, recipeID, uuid.New(), nil, "first")
	second := env.post(t, recipeID, uuid.New(), nil, "second")

	thread := env.thread(t, recipeID, nil)
	require.Len(t, thread, 2)
	assert.Equal(t, second.ID, thread[0].ID)
	assert.Equal(t, first.ID, thread[1].ID)
}

func TestLoadThreadRows_RoundTripsFollowDepth(t *testing.T) {
	store := &countingStore{InMemoryStore: NewInMemoryStore()}
	ctx := context.Background()
	recipeID := uuid.New()

	// two roots, depth three, several siblings per level
	var level []*orm.Comment
	for i := 0; i < 2; i++ {
		root := &orm.Comment{RecipeID: recipeID, AuthorID: uuid.New(), Content: "root"}
		require.NoError(t, store.InsertComment(ctx, root))
		level = append(level, root)
	}
	for depth := 0; depth < 3; depth++ {
		var next []*orm.Comment
		for _, parent := range level {
			for i := 0; i < 3; i++ {
				child := &orm.Comment{RecipeID: recipeID, AuthorID: uuid.New(), Content: "reply", ParentCommentID: &parent.ID}
				require.NoError(t, store.InsertComment(ctx, child))
				next = append(next, child)
			}
		}
		level = next
	}

	viewer := uuid.New()
	rows, err := loadThreadRows(ctx, store, recipeID, &viewer)
	require.NoError(t, err)

	assert.Len(t, rows.comments, 2+6+18+54)
	assert.Equal(t, 4, store.childQueries, "one query per level plus the empty leaf level")
	assert.Equal(t, 2, store.likeQueries)

	store.likeQueries = 0
	_, err = loadThreadRows(ctx, store, recipeID, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, store.likeQueries, "no viewer, no liked query")
}

func TestLoadThreadRows_EmptyThreadShortCircuits(t *testing.T) {
	store := &countingStore{InMemoryStore: NewInMemoryStore()}

	rows, err := loadThreadRows(context.Background(), store, uuid.New(), nil)
	require.NoError(t, err)
	assert.Empty(t, rows.comments)
	assert.Zero(t, store.childQueries)
	assert.Zero(t, store.likeQueries)
}

func TestLoadThread_CanceledContext(t *testing.T) {
	env := newTestEnv(t, nil)
	recipeID := uuid.New()
	root := env.post(t, recipeID, uuid.New(), nil, "root")
	env.post(t, recipeID, uuid.New(), root, "reply")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := env.service.LoadThread(ctx, recipeID, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExpandFrontier_DeduplicatesOverlappingSeeds(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	recipeID := uuid.New()

	root := &orm.Comment{RecipeID: recipeID, AuthorID: uuid.New(), Content: "root"}
	require.NoError(t, store.InsertComment(ctx, root))
	child := &orm.Comment{RecipeID: recipeID, AuthorID: uuid.New(), Content: "child", ParentCommentID: &root.ID}
	require.NoError(t, store.InsertComment(ctx, child))

	rows, _, err := expandFrontier(ctx, store, []*orm.Comment{child, root, root}, false)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}
