package middleware

import (
	"net/http"
)

// TestUserContextMiddleware injects a fixed caller, bypassing bearer verification
func TestUserContextMiddleware(userID string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithUserContext(r.Context(), &UserContext{UserID: userID, Role: "authenticated"})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
