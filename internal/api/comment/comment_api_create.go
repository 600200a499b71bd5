package comment

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/stormhead-org/threads/internal/api"
)

type createCommentRequest struct {
	Content         string  `json:"content"`
	ParentCommentID *string `json:"parent_comment_id"`
}

func (a *CommentAPI) Create(w http.ResponseWriter, r *http.Request) {
	recipeID, ok := uuidParam(w, r, "recipe_id")
	if !ok {
		return
	}
	userID, ok := caller(w, r)
	if !ok {
		return
	}

	var request createCommentRequest
	if !decodeBody(w, r, &request) {
		return
	}

	var parentID *uuid.UUID
	if request.ParentCommentID != nil && *request.ParentCommentID != "" {
		parsed, err := uuid.Parse(*request.ParentCommentID)
		if err != nil {
			api.BadRequest(w, r, "invalid parent_comment_id")
			return
		}
		parentID = &parsed
	}

	node, err := a.service.CreateComment(r.Context(), recipeID, userID, parentID, request.Content)
	if err != nil {
		api.WriteServiceError(w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusCreated, node)
}
