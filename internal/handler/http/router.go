// Package http mounts this service's HTTP surface: the websocket upgrade
// endpoint and the registry introspection route (SPEC_FULL.md §4 "Registry
// introspection"), on a chi router. Chi has no in-pack call site — the
// teacher's go.mod lists it but its own HTTP surface was gRPC-only — so
// routing follows chi's own documented middleware/Mount API.
package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/webitel/typing-tournament/internal/domain/registry"
	"github.com/webitel/typing-tournament/internal/handler/ws"
)

// NewRouter wires the websocket upgrade handler, a liveness probe, and the
// /debug/registry stats endpoint onto one chi.Router.
func NewRouter(wsHandler *ws.Handler, reg registry.Registrar) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	// The websocket handler runs for the socket's whole lifetime, so it sits
	// outside the request timeout applied to the short-lived routes.
	r.Get("/ws", wsHandler.ServeHTTP)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))

		r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		r.Get("/debug/registry", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(reg.Stats())
		})
	})

	return r
}
