package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/jrschumacher/fitlink/internal/auth"
	"github.com/jrschumacher/fitlink/internal/httputil"
	"github.com/jrschumacher/fitlink/internal/logger"
)

// UserContext holds the verified caller
type UserContext struct {
	UserID string
	Role   string
}

type contextKey string

const userContextKey contextKey = "user"

// WithUserContext returns ctx carrying uc.
func WithUserContext(ctx context.Context, uc *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, uc)
}

// GetUserContext extracts user context from request context
func GetUserContext(r *http.Request) (*UserContext, bool) {
	userCtx, ok := r.Context().Value(userContextKey).(*UserContext)
	if !ok || userCtx == nil || userCtx.UserID == "" {
		return nil, false
	}
	return userCtx, true
}

// BearerAuth verifies the Authorization bearer token and stores the caller in
// the request context. Failures answer 401 with the JSON error envelope.
func BearerAuth(verifier auth.Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := auth.BearerToken(r)
			if err != nil {
				httputil.WriteError(w, http.StatusUnauthorized, "unauthorized", "path", r.URL.Path)
				return
			}

			identity, err := verifier.Verify(r.Context(), token)
			if err != nil {
				message := "unauthorized"
				if errors.Is(err, auth.ErrTokenExpired) {
					message = "token expired"
				}
				httputil.WriteError(w, http.StatusUnauthorized, message, "path", r.URL.Path, "error", err)
				return
			}

			uc := &UserContext{UserID: identity.UserID}
			if identity.Claims != nil {
				uc.Role = identity.Claims.Role
			}
			logger.Debug("Bearer token verified", "userID", uc.UserID)
			next.ServeHTTP(w, r.WithContext(WithUserContext(r.Context(), uc)))
		})
	}
}
