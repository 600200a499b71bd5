package comment

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/stormhead-org/threads/internal/api"
	"github.com/stormhead-org/threads/internal/middleware"
	"github.com/stormhead-org/threads/internal/services"
)

type listCommentsResponse struct {
	Comments []*services.CommentNode `json:"comments"`
}

func (a *CommentAPI) List(w http.ResponseWriter, r *http.Request) {
	recipeID, ok := uuidParam(w, r, "recipe_id")
	if !ok {
		return
	}

	thread, err := a.service.LoadThread(r.Context(), recipeID, middleware.GetViewerID(r.Context()))
	if err != nil {
		a.log.Debug("error loading thread", zap.String("recipe_id", recipeID.String()), zap.Error(err))
		api.WriteServiceError(w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, listCommentsResponse{Comments: thread})
}
