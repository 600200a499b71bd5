//go:build integration

package orm

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/stormhead-org/threads/internal/lib"
)

func insert(t *testing.T, recipeID uuid.UUID, authorID uuid.UUID, parent *Comment, createdAt time.Time) *Comment {
	t.Helper()
	comment := &Comment{
		RecipeID:  recipeID,
		AuthorID:  authorID,
		Content:   "text",
		CreatedAt: createdAt,
	}
	if parent != nil {
		comment.ParentCommentID = &parent.ID
	}
	require.NoError(t, testClient.InsertComment(context.Background(), comment))
	return comment
}

func TestCommentQueries(t *testing.T) {
	ctx := context.Background()
	recipeID, author := uuid.New(), uuid.New()
	base := time.Now().UTC().Truncate(time.Microsecond)

	older := insert(t, recipeID, author, nil, base)
	newer := insert(t, recipeID, author, nil, base.Add(time.Second))
	reply1 := insert(t, recipeID, uuid.New(), older, base.Add(2*time.Second))
	reply2 := insert(t, recipeID, uuid.New(), older, base.Add(3*time.Second))
	nested := insert(t, recipeID, author, reply1, base.Add(4*time.Second))

	top, err := testClient.SelectTopLevelComments(ctx, recipeID)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, newer.ID, top[0].ID)
	assert.Equal(t, older.ID, top[1].ID)

	children, err := testClient.SelectChildComments(ctx, []uuid.UUID{older.ID, reply1.ID})
	require.NoError(t, err)
	ids := make([]uuid.UUID, 0, len(children))
	for _, child := range children {
		ids = append(ids, child.ID)
	}
	assert.ElementsMatch(t, []uuid.UUID{reply1.ID, reply2.ID, nested.ID}, ids)

	none, err := testClient.SelectChildComments(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)

	byAuthor, err := testClient.SelectCommentsByAuthor(ctx, author)
	require.NoError(t, err)
	assert.Len(t, byAuthor, 3)

	_, err = testClient.SelectCommentByID(ctx, uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestCommentForeignKeys(t *testing.T) {
	ctx := context.Background()
	recipeID := uuid.New()

	missing := uuid.New()
	err := testClient.InsertComment(ctx, &Comment{
		RecipeID:        recipeID,
		ParentCommentID: &missing,
		AuthorID:        uuid.New(),
		Content:         "orphan",
		CreatedAt:       time.Now(),
	})
	assert.ErrorIs(t, err, gorm.ErrForeignKeyViolated)
	assert.ErrorIs(t, lib.HandleError(err), lib.ErrNotFound)

	parent := insert(t, recipeID, uuid.New(), nil, time.Now())
	child := insert(t, recipeID, uuid.New(), parent, time.Now())

	err = testClient.DeleteComment(ctx, parent.ID)
	assert.ErrorIs(t, err, gorm.ErrForeignKeyViolated)

	require.NoError(t, testClient.InsertCommentLike(ctx, child.ID, uuid.New()))
	err = testClient.DeleteComment(ctx, child.ID)
	assert.ErrorIs(t, err, gorm.ErrForeignKeyViolated)

	_, err = testClient.DeleteCommentLikesByCommentIDs(ctx, []uuid.UUID{child.ID})
	require.NoError(t, err)
	deleted, err := testClient.DeleteCommentsByIDs(ctx, []uuid.UUID{child.ID, parent.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
}

func TestCommentLikes(t *testing.T) {
	ctx := context.Background()
	recipeID := uuid.New()
	comment := insert(t, recipeID, uuid.New(), nil, time.Now())
	other := insert(t, recipeID, uuid.New(), nil, time.Now())
	alice, bob := uuid.New(), uuid.New()

	require.NoError(t, testClient.InsertCommentLike(ctx, comment.ID, alice))
	require.NoError(t, testClient.InsertCommentLike(ctx, comment.ID, alice))
	require.NoError(t, testClient.InsertCommentLike(ctx, comment.ID, bob))
	require.NoError(t, testClient.InsertCommentLike(ctx, other.ID, bob))

	counts, err := testClient.CountCommentLikes(ctx, []uuid.UUID{comment.ID, other.ID})
	require.NoError(t, err)
	assert.Equal(t, map[uuid.UUID]int64{comment.ID: 2, other.ID: 1}, counts)

	liked, err := testClient.SelectLikedCommentIDs(ctx, []uuid.UUID{comment.ID, other.ID}, alice)
	require.NoError(t, err)
	assert.Equal(t, map[uuid.UUID]bool{comment.ID: true}, liked)

	require.NoError(t, testClient.DeleteCommentLike(ctx, comment.ID, alice))
	require.NoError(t, testClient.DeleteCommentLike(ctx, comment.ID, alice))

	removed, err := testClient.DeleteCommentLikesByUser(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	require.NoError(t, testClient.InsertCommentLike(ctx, other.ID, alice))
	removed, err = testClient.DeleteCommentLikesByRecipe(ctx, recipeID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	deleted, err := testClient.DeleteCommentsByRecipe(ctx, recipeID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
}

func TestReparentAndDeleteByAuthor(t *testing.T) {
	ctx := context.Background()
	recipeID, author := uuid.New(), uuid.New()

	root := insert(t, recipeID, author, nil, time.Now())
	reply := insert(t, recipeID, uuid.New(), root, time.Now())

	require.NoError(t, testClient.ReparentComments(ctx, []uuid.UUID{reply.ID}, nil))
	deleted, err := testClient.DeleteCommentsByAuthor(ctx, author)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	survivor, err := testClient.SelectCommentByID(ctx, reply.ID)
	require.NoError(t, err)
	assert.Nil(t, survivor.ParentCommentID)
}

func TestPaginationAndTransactions(t *testing.T) {
	ctx := context.Background()
	recipeID, author := uuid.New(), uuid.New()
	base := time.Now().UTC().Truncate(time.Microsecond)
	for i := range 5 {
		insert(t, recipeID, author, nil, base.Add(time.Duration(i)*time.Second))
	}

	page, err := testClient.SelectCommentsByAuthorWithPagination(ctx, author, 3, "")
	require.NoError(t, err)
	require.Len(t, page, 3)

	rest, err := testClient.SelectCommentsByAuthorWithPagination(ctx, author, 3, lib.EncodeCursor(page[2]))
	require.NoError(t, err)
	require.Len(t, rest, 2)
	assert.True(t, rest[0].CreatedAt.Before(page[2].CreatedAt))

	_, err = testClient.SelectCommentsByAuthorWithPagination(ctx, author, 3, "%%%")
	assert.ErrorIs(t, err, lib.ErrInvalidArgument)

	err = testClient.Transaction(ctx, func(tx *PostgresClient) error {
		require.NoError(t, tx.LockComments(ctx, []uuid.UUID{page[0].ID}))
		_, err := tx.DeleteCommentsByAuthor(ctx, author)
		require.NoError(t, err)
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	all, err := testClient.SelectCommentsByAuthor(ctx, author)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}
