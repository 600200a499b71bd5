package orm

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stormhead-org/threads/internal/lib"
)

type Comment struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey"`
	RecipeID        uuid.UUID  `gorm:"type:uuid;not null;index:idx_comment_recipe_parent,priority:1"`
	ParentCommentID *uuid.UUID `gorm:"type:uuid;index;index:idx_comment_recipe_parent,priority:2"`
	ParentComment   *Comment   `gorm:"foreignKey:ParentCommentID;constraint:OnUpdate:NO ACTION,OnDelete:NO ACTION" json:"-"`
	AuthorID        uuid.UUID  `gorm:"type:uuid;not null;index"`
	Content         string     `gorm:"type:text;not null"`
	CreatedAt       time.Time  `gorm:"not null"`
}

func (c *Comment) TableName() string {
	return "comment"
}

func (c *Comment) BeforeCreate(transaction *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (c Comment) GetID() uuid.UUID {
	return c.ID
}

func (c Comment) GetCreatedAt() time.Time {
	return c.CreatedAt
}

var commentColumns = []string{
	"id",
	"recipe_id",
	"parent_comment_id",
	"author_id",
	"content",
	"created_at",
}

func (c *PostgresClient) SelectCommentByID(ctx context.Context, id uuid.UUID) (*Comment, error) {
	var comment Comment
	tx := c.database.WithContext(ctx).
		Select(commentColumns).
		Where("id = ?", id).
		First(&comment)
	if tx.Error != nil {
		return nil, tx.Error
	}

	return &comment, nil
}

// SelectTopLevelComments returns comments without a parent, newest first.
func (c *PostgresClient) SelectTopLevelComments(ctx context.Context, recipeID uuid.UUID) ([]*Comment, error) {
	var comments []*Comment
	tx := c.database.WithContext(ctx).
		Select(commentColumns).
		Where("recipe_id = ? AND parent_comment_id IS NULL", recipeID).
		Order("created_at DESC, id DESC").
		Find(&comments)
	if tx.Error != nil {
		return nil, tx.Error
	}

	return comments, nil
}

// SelectChildComments returns the direct replies of every comment in
// parentIDs, oldest first within each parent.
func (c *PostgresClient) SelectChildComments(ctx context.Context, parentIDs []uuid.UUID) ([]*Comment, error) {
	var result []*Comment
	for _, batch := range chunkIDs(parentIDs) {
		var comments []*Comment
		tx := c.database.WithContext(ctx).
			Select(commentColumns).
			Where("parent_comment_id IN ?", batch).
			Order("parent_comment_id, created_at ASC, id ASC").
			Find(&comments)
		if tx.Error != nil {
			return nil, tx.Error
		}
		result = append(result, comments...)
	}

	return result, nil
}

func (c *PostgresClient) SelectCommentsByAuthor(ctx context.Context, authorID uuid.UUID) ([]*Comment, error) {
	var comments []*Comment
	tx := c.database.WithContext(ctx).
		Select(commentColumns).
		Where("author_id = ?", authorID).
		Order("created_at ASC, id ASC").
		Find(&comments)
	if tx.Error != nil {
		return nil, tx.Error
	}

	return comments, nil
}

func (c *PostgresClient) SelectCommentsByAuthorWithPagination(ctx context.Context, authorID uuid.UUID, limit int, cursor string) ([]*Comment, error) {
	var comments []*Comment
	query := c.database.WithContext(ctx).
		Select(commentColumns).
		Where("author_id = ?", authorID).
		Order("created_at DESC, id DESC")

	paginatedQuery, err := lib.Paginate(query, cursor, limit)
	if err != nil {
		return nil, err
	}

	tx := paginatedQuery.Find(&comments)
	if tx.Error != nil {
		return nil, tx.Error
	}

	return comments, nil
}

// LockComments takes row locks on the given comments for the rest of the
// current transaction. Outside a transaction the locks are released at once.
func (c *PostgresClient) LockComments(ctx context.Context, ids []uuid.UUID) error {
	for _, batch := range chunkIDs(ids) {
		var locked []uuid.UUID
		tx := c.database.WithContext(ctx).
			Model(&Comment{}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id IN ?", batch).
			Pluck("id", &locked)
		if tx.Error != nil {
			return tx.Error
		}
	}
	return nil
}

func (c *PostgresClient) InsertComment(ctx context.Context, comment *Comment) error {
	tx := c.database.WithContext(ctx).Omit("ParentComment").Create(comment)
	return tx.Error
}

// ReparentComments points every comment in ids at parentID. A nil parentID
// turns them into top-level comments.
func (c *PostgresClient) ReparentComments(ctx context.Context, ids []uuid.UUID, parentID *uuid.UUID) error {
	for _, batch := range chunkIDs(ids) {
		tx := c.database.WithContext(ctx).
			Model(&Comment{}).
			Where("id IN ?", batch).
			Update("parent_comment_id", parentID)
		if tx.Error != nil {
			return tx.Error
		}
	}
	return nil
}

func (c *PostgresClient) DeleteComment(ctx context.Context, id uuid.UUID) error {
	tx := c.database.WithContext(ctx).Where("id = ?", id).Delete(&Comment{})
	return tx.Error
}

// DeleteCommentsByIDs deletes the given comments. When ids spans several
// batches it must be ordered children first.
func (c *PostgresClient) DeleteCommentsByIDs(ctx context.Context, ids []uuid.UUID) (int64, error) {
	var deleted int64
	for _, batch := range chunkIDs(ids) {
		tx := c.database.WithContext(ctx).Where("id IN ?", batch).Delete(&Comment{})
		if tx.Error != nil {
			return deleted, tx.Error
		}
		deleted += tx.RowsAffected
	}
	return deleted, nil
}

func (c *PostgresClient) DeleteCommentsByRecipe(ctx context.Context, recipeID uuid.UUID) (int64, error) {
	tx := c.database.WithContext(ctx).Where("recipe_id = ?", recipeID).Delete(&Comment{})
	return tx.RowsAffected, tx.Error
}

func (c *PostgresClient) DeleteCommentsByAuthor(ctx context.Context, authorID uuid.UUID) (int64, error) {
	tx := c.database.WithContext(ctx).Where("author_id = ?", authorID).Delete(&Comment{})
	return tx.RowsAffected, tx.Error
}
