package middleware

import (
	"context"
	"errors"

	"github.com/google/uuid"

	jwtpkg "github.com/stormhead-org/threads/internal/jwt"
)

type ctxKeyUserID struct{}
type ctxKeyRole struct{}

var ErrNoUser = errors.New("no authenticated user in context")

func SetUserID(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxKeyUserID{}, userID)
}

func GetUserUUID(ctx context.Context) (uuid.UUID, error) {
	userID, ok := ctx.Value(ctxKeyUserID{}).(uuid.UUID)
	if !ok {
		return uuid.Nil, ErrNoUser
	}
	return userID, nil
}

// GetViewerID returns the caller id, or nil for anonymous requests.
func GetViewerID(ctx context.Context) *uuid.UUID {
	userID, err := GetUserUUID(ctx)
	if err != nil {
		return nil
	}
	return &userID
}

func SetRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, ctxKeyRole{}, role)
}

func GetRole(ctx context.Context) string {
	role, _ := ctx.Value(ctxKeyRole{}).(string)
	return role
}

func IsAdmin(ctx context.Context) bool {
	return GetRole(ctx) == jwtpkg.RoleAdmin
}
