package comment

import (
	"net/http"

	"github.com/stormhead-org/threads/internal/api"
)

type replyRequest struct {
	Content string `json:"content"`
}

func (a *CommentAPI) Reply(w http.ResponseWriter, r *http.Request) {
	parentID, ok := uuidParam(w, r, "comment_id")
	if !ok {
		return
	}
	userID, ok := caller(w, r)
	if !ok {
		return
	}

	var request replyRequest
	if !decodeBody(w, r, &request) {
		return
	}

	node, err := a.service.ReplyToComment(r.Context(), parentID, userID, request.Content)
	if err != nil {
		api.WriteServiceError(w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusCreated, node)
}
