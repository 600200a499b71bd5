package comment

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/stormhead-org/threads/internal/api"
)

func (a *CommentAPI) Delete(w http.ResponseWriter, r *http.Request) {
	commentID, ok := uuidParam(w, r, "comment_id")
	if !ok {
		return
	}
	userID, ok := caller(w, r)
	if !ok {
		return
	}

	if err := a.service.DeleteComment(r.Context(), commentID, userID, false); err != nil {
		api.WriteServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (a *CommentAPI) AdminDelete(w http.ResponseWriter, r *http.Request) {
	commentID, ok := uuidParam(w, r, "comment_id")
	if !ok {
		return
	}
	adminID, ok := caller(w, r)
	if !ok {
		return
	}

	if err := a.service.DeleteComment(r.Context(), commentID, adminID, true); err != nil {
		api.WriteServiceError(w, r, err)
		return
	}

	a.log.Info("comment removed by admin", zap.String("comment_id", commentID.String()), zap.String("admin_id", adminID.String()))
	w.WriteHeader(http.StatusNoContent)
}

func (a *CommentAPI) AdminDeleteRecipeComments(w http.ResponseWriter, r *http.Request) {
	recipeID, ok := uuidParam(w, r, "recipe_id")
	if !ok {
		return
	}

	if err := a.service.DeleteAllForRecipe(r.Context(), recipeID); err != nil {
		api.WriteServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (a *CommentAPI) AdminDeleteUserComments(w http.ResponseWriter, r *http.Request) {
	userID, ok := uuidParam(w, r, "user_id")
	if !ok {
		return
	}

	if err := a.service.DeleteAllForAuthor(r.Context(), userID); err != nil {
		api.WriteServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
