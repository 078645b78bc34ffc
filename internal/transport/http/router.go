// Package httptransport composes the service's HTTP surface: feature
// handlers, platform middleware, and the ops endpoints.
package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	credentialhandler "address-cri/internal/credential/handler"
	"address-cri/internal/platform/middleware"
	sessionhandler "address-cri/internal/session/handler"
)

// Routes bundles everything the router mounts.
type Routes struct {
	Session    *sessionhandler.Handler
	Credential *credentialhandler.Handler

	// ClientAuth guards the relying-party endpoints; nil disables API key
	// checks (local development).
	ClientAuth *middleware.APIKeyAuth
}

// NewRouter wires all public endpoints behind the platform middleware stack.
func NewRouter(routes Routes) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Device)

	r.Group(func(r chi.Router) {
		if routes.ClientAuth != nil {
			r.Use(routes.ClientAuth.Require)
		}
		routes.Session.Register(r)
	})
	routes.Credential.Register(r)

	r.Get("/healthz", handleHealthz)
	return r
}

// NewOpsRouter serves the operational endpoints on their own listener so the
// public surface never exposes metrics.
func NewOpsRouter() http.Handler {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", handleHealthz)
	return r
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
