package comment

import (
	"net/http"

	"github.com/stormhead-org/threads/internal/api"
)

func (a *CommentAPI) Like(w http.ResponseWriter, r *http.Request) {
	commentID, ok := uuidParam(w, r, "comment_id")
	if !ok {
		return
	}
	userID, ok := caller(w, r)
	if !ok {
		return
	}

	if err := a.service.LikeComment(r.Context(), commentID, userID); err != nil {
		api.WriteServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (a *CommentAPI) Unlike(w http.ResponseWriter, r *http.Request) {
	commentID, ok := uuidParam(w, r, "comment_id")
	if !ok {
		return
	}
	userID, ok := caller(w, r)
	if !ok {
		return
	}

	if err := a.service.UnlikeComment(r.Context(), commentID, userID); err != nil {
		api.WriteServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
