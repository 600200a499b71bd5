package comment

import (
	"net/http"
	"strconv"

	"github.com/stormhead-org/threads/internal/api"
)

func (a *CommentAPI) Get(w http.ResponseWriter, r *http.Request) {
	commentID, ok := uuidParam(w, r, "comment_id")
	if !ok {
		return
	}

	comment, err := a.service.GetComment(r.Context(), commentID)
	if err != nil {
		api.WriteServiceError(w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, newCommentResponse(comment))
}

type listUserCommentsResponse struct {
	Comments   []commentResponse `json:"comments"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

func (a *CommentAPI) ListUserComments(w http.ResponseWriter, r *http.Request) {
	userID, ok := uuidParam(w, r, "user_id")
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			api.BadRequest(w, r, "invalid limit")
			return
		}
		limit = parsed
	}

	comments, nextCursor, err := a.service.ListAuthorComments(r.Context(), userID, r.URL.Query().Get("cursor"), limit)
	if err != nil {
		api.WriteServiceError(w, r, err)
		return
	}

	response := listUserCommentsResponse{
		Comments:   make([]commentResponse, 0, len(comments)),
		NextCursor: nextCursor,
	}
	for _, comment := range comments {
		response.Comments = append(response.Comments, newCommentResponse(comment))
	}
	api.WriteJSON(w, http.StatusOK, response)
}
