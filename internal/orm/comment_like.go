package orm

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CommentLike struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CommentID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_comment_like_pair,priority:1"`
	Comment   *Comment  `gorm:"foreignKey:CommentID;constraint:OnUpdate:NO ACTION,OnDelete:NO ACTION" json:"-"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_comment_like_pair,priority:2;index"`
	CreatedAt time.Time `gorm:"not null"`
}

func (c *CommentLike) TableName() string {
	return "comment_like"
}

func (c *CommentLike) BeforeCreate(transaction *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// InsertCommentLike records that userID likes commentID. An existing like is
// left untouched.
func (c *PostgresClient) InsertCommentLike(ctx context.Context, commentID uuid.UUID, userID uuid.UUID) error {
	commentLike := &CommentLike{
		CommentID: commentID,
		UserID:    userID,
	}
	tx := c.database.WithContext(ctx).
		Omit("Comment").
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "comment_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).
		Create(commentLike)
	return tx.Error
}

func (c *PostgresClient) DeleteCommentLike(ctx context.Context, commentID uuid.UUID, userID uuid.UUID) error {
	tx := c.database.WithContext(ctx).
		Where("comment_id = ? AND user_id = ?", commentID, userID).
		Delete(&CommentLike{})
	return tx.Error
}

// CountCommentLikes returns the number of likes per comment. Comments without
// likes are absent from the result.
func (c *PostgresClient) CountCommentLikes(ctx context.Context, commentIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	type likeCount struct {
		CommentID uuid.UUID
		Count     int64
	}

	counts := make(map[uuid.UUID]int64)
	for _, batch := range chunkIDs(commentIDs) {
		var rows []likeCount
		tx := c.database.WithContext(ctx).
			Model(&CommentLike{}).
			Select("comment_id, COUNT(*) AS count").
			Where("comment_id IN ?", batch).
			Group("comment_id").
			Scan(&rows)
		if tx.Error != nil {
			return nil, tx.Error
		}
		for _, row := range rows {
			counts[row.CommentID] = row.Count
		}
	}

	return counts, nil
}

// SelectLikedCommentIDs returns the subset of commentIDs liked by userID.
func (c *PostgresClient) SelectLikedCommentIDs(ctx context.Context, commentIDs []uuid.UUID, userID uuid.UUID) (map[uuid.UUID]bool, error) {
	liked := make(map[uuid.UUID]bool)
	for _, batch := range chunkIDs(commentIDs) {
		var ids []uuid.UUID
		tx := c.database.WithContext(ctx).
			Model(&CommentLike{}).
			Where("comment_id IN ? AND user_id = ?", batch, userID).
			Pluck("comment_id", &ids)
		if tx.Error != nil {
			return nil, tx.Error
		}
		for _, id := range ids {
			liked[id] = true
		}
	}

	return liked, nil
}

func (c *PostgresClient) DeleteCommentLikesByCommentIDs(ctx context.Context, commentIDs []uuid.UUID) (int64, error) {
	var deleted int64
	for _, batch := range chunkIDs(commentIDs) {
		tx := c.database.WithContext(ctx).Where("comment_id IN ?", batch).Delete(&CommentLike{})
		if tx.Error != nil {
			return deleted, tx.Error
		}
		deleted += tx.RowsAffected
	}
	return deleted, nil
}

func (c *PostgresClient) DeleteCommentLikesByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	tx := c.database.WithContext(ctx).Where("user_id = ?", userID).Delete(&CommentLike{})
	return tx.RowsAffected, tx.Error
}

func (c *PostgresClient) DeleteCommentLikesByRecipe(ctx context.Context, recipeID uuid.UUID) (int64, error) {
	tx := c.database.WithContext(ctx).
		Where("comment_id IN (?)", c.database.Model(&Comment{}).Select("id").Where("recipe_id = ?", recipeID)).
		Delete(&CommentLike{})
	return tx.RowsAffected, tx.Error
}
