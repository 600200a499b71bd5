package middleware

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/stormhead-org/threads/internal/api"
	jwtpkg "github.com/stormhead-org/threads/internal/jwt"
)

// NewAuthorizationMiddleware resolves the Bearer token, when present, into
// the caller id and role. Requests without a token continue anonymously;
// requests with an invalid token are rejected.
func NewAuthorizationMiddleware(logger *zap.Logger, jwt *jwtpkg.JWT) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := strings.TrimSpace(r.Header.Get("Authorization"))
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			if !strings.HasPrefix(header, "Bearer ") {
				logger.Debug("missing bearer")
				api.Unauthorized(w, r)
				return
			}

			claims, err := jwt.ParseAccessToken(strings.TrimSpace(strings.TrimPrefix(header, "Bearer ")))
			if err != nil {
				logger.Debug("invalid access token", zap.Error(err))
				api.Unauthorized(w, r)
				return
			}

			userID, err := claims.UserID()
			if err != nil {
				logger.Debug("invalid token subject", zap.Error(err))
				api.Unauthorized(w, r)
				return
			}

			ctx := SetUserID(r.Context(), userID)
			if claims.Role != "" {
				ctx = SetRole(ctx, claims.Role)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireUser rejects anonymous requests.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := GetUserUUID(r.Context()); err != nil {
			api.Unauthorized(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin allows only callers carrying the admin role.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := GetUserUUID(r.Context()); err != nil {
			api.Unauthorized(w, r)
			return
		}
		if !IsAdmin(r.Context()) {
			api.Forbidden(w, r, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
