package event

import (
	"github.com/qri-io/jsonschema"

	"github.com/stormhead-org/threads/internal/lib"
)

const (
	// Consumed
	USER_DELETED   = "user.deleted"
	RECIPE_DELETED = "recipe.deleted"

	// Produced
	COMMENT_CREATED = "comment.created"
	COMMENT_DELETED = "comment.deleted"
)

type UserDeletedMessage struct {
	ID string `json:"id"`
}

type RecipeDeletedMessage struct {
	ID string `json:"id"`
}

type CommentCreatedMessage struct {
	ID              string  `json:"id"`
	RecipeID        string  `json:"recipe_id"`
	AuthorID        string  `json:"author_id"`
	ParentCommentID *string `json:"parent_comment_id,omitempty"`
	ParentAuthorID  *string `json:"parent_author_id,omitempty"`
}

type CommentDeletedMessage struct {
	ID           string `json:"id"`
	RecipeID     string `json:"recipe_id"`
	DeletedCount int64  `json:"deleted_count"`
}

const entityDeletedSchema = `{
	"type": "object",
	"properties": {
		"id": {
			"type": "string",
			"pattern": "^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$"
		}
	},
	"required": ["id"]
}`

var schemas = map[string]*jsonschema.Schema{
	USER_DELETED:   lib.MustCompileSchema(entityDeletedSchema),
	RECIPE_DELETED: lib.MustCompileSchema(entityDeletedSchema),
}

// Schema returns the payload schema of a consumed event, or nil when the
// event carries no schema.
func Schema(event string) *jsonschema.Schema {
	return schemas[event]
}
