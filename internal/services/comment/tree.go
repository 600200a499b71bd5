package comment

import (
	"bytes"
	"slices"

	"github.com/google/uuid"

	"github.com/stormhead-org/threads/internal/orm"
	"github.com/stormhead-org/threads/internal/services"
)

func newCommentNode(comment *orm.Comment, likeCount int64, liked bool) *services.CommentNode {
	node := &services.CommentNode{
		ID:            comment.ID,
		Content:       comment.Content,
		AuthorID:      comment.AuthorID,
		RecipeID:      comment.RecipeID,
		CreatedAt:     comment.CreatedAt,
		LikeCount:     likeCount,
		LikedByViewer: liked,
		Replies:       []*services.CommentNode{},
	}
	if comment.ParentCommentID != nil {
		parentID := *comment.ParentCommentID
		node.ParentCommentID = &parentID
	}
	return node
}

// assembleTree turns flat rows into a forest. Top-level comments keep their
// input order; replies are ordered oldest first. Rows whose parent is not
// part of the input are dropped and duplicate ids are ignored.
func assembleTree(comments []*orm.Comment, likeCounts map[uuid.UUID]int64, liked map[uuid.UUID]bool) []*services.CommentNode {
	nodes := make(map[uuid.UUID]*services.CommentNode, len(comments))
	order := make([]*orm.Comment, 0, len(comments))
	for _, comment := range comments {
		if _, ok := nodes[comment.ID]; ok {
			continue
		}
		nodes[comment.ID] = newCommentNode(comment, likeCounts[comment.ID], liked[comment.ID])
		order = append(order, comment)
	}

	roots := []*services.CommentNode{}
	for _, comment := range order {
		node := nodes[comment.ID]
		if comment.ParentCommentID == nil {
			roots = append(roots, node)
			continue
		}
		parent, ok := nodes[*comment.ParentCommentID]
		if !ok {
			continue
		}
		parent.Replies = append(parent.Replies, node)
	}

	for _, node := range nodes {
		if len(node.Replies) > 1 {
			slices.SortStableFunc(node.Replies, func(a, b *services.CommentNode) int {
				if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
					return c
				}
				return bytes.Compare(a.ID[:], b.ID[:])
			})
		}
	}

	return roots
}
