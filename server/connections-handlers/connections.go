// Package connections serves the provider callback and the connection API.
package connections

import (
	"fmt"
	"net/http"
	"time"

	"github.com/jrschumacher/fitlink/internal/auth"
	"github.com/jrschumacher/fitlink/internal/config"
	"github.com/jrschumacher/fitlink/internal/connect"
	"github.com/jrschumacher/fitlink/internal/httputil"
	"github.com/jrschumacher/fitlink/internal/logger"
	"github.com/jrschumacher/fitlink/internal/middleware"
	"github.com/jrschumacher/fitlink/internal/svrlib"
)

type ConnectionsRouter struct {
	*svrlib.Router
	service *connect.Service
}

// RegisterRoutes registers the callback and /api/connections routes.
func RegisterRoutes(mux *http.ServeMux, cfg *config.Config, service *connect.Service, verifier auth.Verifier) *ConnectionsRouter {
	return RegisterRoutesWithGroup(mux, cfg, service, middleware.ProtectedAPIGroup(mux, verifier))
}

// RegisterRoutesWithGroup registers routes with api as the protected group.
func RegisterRoutesWithGroup(mux *http.ServeMux, cfg *config.Config, service *connect.Service, api *middleware.RouteGroup) *ConnectionsRouter {
	router := &ConnectionsRouter{
		Router:  svrlib.NewRouter(mux, "/api/connections", cfg),
		service: service,
	}

	middleware.PublicGroup(mux).HandleFunc("GET /auth/{provider}/callback", router.CallbackHandler)

	api.HandleFunc("GET "+router.BaseRoute, router.ListHandler)
	api.HandleFunc("POST "+router.BaseRoute+"/{provider}/refresh", router.RefreshHandler)
	api.HandleFunc("POST "+router.BaseRoute+"/{provider}/authorize", router.AuthorizeHandler)

	return router
}

// CallbackHandler handles GET /auth/{provider}/callback. It always answers
// with a redirect, including when the flow panics.
func (rt *ConnectionsRouter) CallbackHandler(w http.ResponseWriter, r *http.Request) {
	provider := r.PathValue("provider")

	defer func() {
		if p := recover(); p != nil {
			if p == http.ErrAbortHandler {
				panic(p)
			}
			msg := fmt.Sprint(p)
			logger.Error("Panic in callback", "provider", provider, "panic", msg)
			rt.Redirect(w, r, rt.service.ErrorRedirect(msg))
		}
	}()

	q := r.URL.Query()
	outcome := rt.service.HandleCallback(r.Context(), provider, connect.CallbackParams{
		Code:             q.Get("code"),
		State:            q.Get("state"),
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
	})
	rt.Redirect(w, r, outcome.RedirectURL)
}

type refreshResponse struct {
	Success      bool   `json:"success"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    string `json:"expires_at"`
	TokenType    string `json:"token_type"`
}

// RefreshHandler handles POST /api/connections/{provider}/refresh
func (rt *ConnectionsRouter) RefreshHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUserContext(r)
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	res, err := rt.service.Refresh(r.Context(), user.UserID, r.PathValue("provider"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteSuccess(w, refreshResponse{
		Success:      true,
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		ExpiresAt:    res.ExpiresAt.UTC().Format(time.RFC3339),
		TokenType:    res.TokenType,
	})
}

type authorizeResponse struct {
	Success      bool   `json:"success"`
	AuthorizeURL string `json:"authorize_url"`
}

// AuthorizeHandler handles POST /api/connections/{provider}/authorize
func (rt *ConnectionsRouter) AuthorizeHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUserContext(r)
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	authURL, err := rt.service.AuthorizeURL(r.Context(), user.UserID, r.PathValue("provider"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteSuccess(w, authorizeResponse{Success: true, AuthorizeURL: authURL})
}

type listResponse struct {
	Success     bool                       `json:"success"`
	Connections []connect.ConnectionStatus `json:"connections"`
}

// ListHandler handles GET /api/connections
func (rt *ConnectionsRouter) ListHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUserContext(r)
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	statuses, err := rt.service.ListConnections(r.Context(), user.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteSuccess(w, listResponse{Success: true, Connections: statuses})
}

func writeServiceError(w http.ResponseWriter, err error) {
	if ce, ok := connect.AsError(err); ok {
		httputil.WriteError(w, ce.Status, ce.Message, "kind", string(ce.Kind), "error", ce.Err)
		return
	}
	httputil.WriteInternalError(w, err, "internal error")
}
