package comment

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stormhead-org/threads/internal/api"
	"github.com/stormhead-org/threads/internal/middleware"
	"github.com/stormhead-org/threads/internal/orm"
	"github.com/stormhead-org/threads/internal/services"
)

const maxBodyBytes = 64 << 10

type CommentAPI struct {
	log     *zap.Logger
	service services.CommentService
}

func NewCommentAPI(log *zap.Logger, service services.CommentService) *CommentAPI {
	return &CommentAPI{
		log:     log,
		service: service,
	}
}

func (a *CommentAPI) Register(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Get("/recipes/{recipe_id}/comments", a.List)
		r.Get("/comments/{comment_id}", a.Get)
		r.Get("/users/{user_id}/comments", a.ListUserComments)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireUser)
			r.Post("/recipes/{recipe_id}/comments", a.Create)
			r.Post("/comments/{comment_id}/replies", a.Reply)
			r.Post("/comments/{comment_id}/like", a.Like)
			r.Delete("/comments/{comment_id}/like", a.Unlike)
			r.Delete("/comments/{comment_id}", a.Delete)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin)
			r.Delete("/comments/{comment_id}", a.AdminDelete)
			r.Delete("/recipes/{recipe_id}/comments", a.AdminDeleteRecipeComments)
			r.Delete("/users/{user_id}/comments", a.AdminDeleteUserComments)
		})
	})
}

type commentResponse struct {
	ID              uuid.UUID  `json:"id"`
	RecipeID        uuid.UUID  `json:"recipe_id"`
	AuthorID        uuid.UUID  `json:"author_id"`
	ParentCommentID *uuid.UUID `json:"parent_comment_id"`
	Content         string     `json:"content"`
	CreatedAt       time.Time  `json:"created_at"`
}

func newCommentResponse(comment *orm.Comment) commentResponse {
	return commentResponse{
		ID:              comment.ID,
		RecipeID:        comment.RecipeID,
		AuthorID:        comment.AuthorID,
		ParentCommentID: comment.ParentCommentID,
		Content:         comment.Content,
		CreatedAt:       comment.CreatedAt,
	}
}

func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		api.BadRequest(w, r, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, target any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		api.BadRequest(w, r, "invalid request body")
		return false
	}
	return true
}

// caller returns the authenticated user. Routes using it sit behind
// middleware.RequireUser.
func caller(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, err := middleware.GetUserUUID(r.Context())
	if err != nil {
		api.Unauthorized(w, r)
		return uuid.Nil, false
	}
	return userID, true
}
