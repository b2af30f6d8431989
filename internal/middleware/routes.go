package middleware

import (
	"net/http"

	"github.com/jrschumacher/fitlink/internal/auth"
)

// RouteGroup represents a group of routes with common middleware
type RouteGroup struct {
	mux   *http.ServeMux
	chain *Chain
}

// NewRouteGroup creates a new route group with optional middleware
func NewRouteGroup(mux *http.ServeMux, middlewares ...Middleware) *RouteGroup {
	return &RouteGroup{
		mux:   mux,
		chain: NewChain(middlewares...),
	}
}

// Handle registers a handler with the group's middleware stack
func (rg *RouteGroup) Handle(pattern string, handler http.Handler) {
	rg.mux.Handle(pattern, rg.chain.Then(handler))
}

// HandleFunc registers a handler function with the group's middleware stack
func (rg *RouteGroup) HandleFunc(pattern string, handlerFunc http.HandlerFunc) {
	rg.mux.Handle(pattern, rg.chain.ThenFunc(handlerFunc))
}

// Group creates a sub-group with additional middleware
func (rg *RouteGroup) Group(middlewares ...Middleware) *RouteGroup {
	return &RouteGroup{
		mux:   rg.mux,
		chain: rg.chain.Append(middlewares...),
	}
}

// PublicGroup creates a route group for unauthenticated routes
func PublicGroup(mux *http.ServeMux) *RouteGroup {
	return NewRouteGroup(mux, RequestLogger)
}

// ProtectedAPIGroup creates a route group for API routes that need a verified bearer token
func ProtectedAPIGroup(mux *http.ServeMux, verifier auth.Verifier) *RouteGroup {
	return NewRouteGroup(mux,
		RequestLogger,
		RecoverJSON,
		BearerAuth(verifier),
	)
}
