package health

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jrschumacher/fitlink/internal/config"
	"github.com/jrschumacher/fitlink/internal/logger"
	"github.com/jrschumacher/fitlink/internal/svrlib"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthRouter struct {
	*svrlib.Router
	db Pinger
}

// RegisterRoutes registers all health check routes on the given mux
func RegisterRoutes(mux *http.ServeMux, baseRoute string, cfg *config.Config, db Pinger) {
	router := &HealthRouter{svrlib.NewRouter(mux, baseRoute, cfg), db}
	mux.HandleFunc("GET "+baseRoute+"/healthz", router.HealthzHandler)
	mux.HandleFunc("GET "+baseRoute+"/readyz", router.ReadyzHandler)
}

// HealthzHandler responds to /healthz requests for health checks
func (rt *HealthRouter) HealthzHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, "ok")
}

// ReadyzHandler answers 503 until the database responds.
func (rt *HealthRouter) ReadyzHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	if rt.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := rt.db.PingContext(ctx); err != nil {
			logger.Warn("Readiness check failed", "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintln(w, "database unavailable")
			return
		}
	}
	fmt.Fprintln(w, "ok")
}
