package api

import (
	"net/http"
	"route-optimizer-service/internal/api/handlers"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Deps struct {
	Plans  *handlers.PlanHandler
	Routes *handlers.RouteHandler

	// Metrics serves /metrics; promhttp.Handler() when nil.
	Metrics http.Handler
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(deps Deps) http.Handler {
	mux := http.NewServeMux()

	metrics := deps.Metrics
	if metrics == nil {
		metrics = promhttp.Handler()
	}

	mux.HandleFunc("GET /health", handlers.Health)
	mux.Handle("GET /metrics", metrics)

	mux.HandleFunc("POST /plans", deps.Plans.Plan)

	mux.HandleFunc("GET /routes", deps.Routes.List)
	mux.HandleFunc("GET /routes/{id}", deps.Routes.Get)
	mux.HandleFunc("DELETE /routes/{id}", deps.Routes.Delete)
	mux.HandleFunc("POST /routes/{id}/dispatch", deps.Routes.Dispatch)
	mux.HandleFunc("POST /routes/{id}/cancel", deps.Routes.Cancel)
	mux.HandleFunc("POST /routes/{id}/location", deps.Routes.UpdateLocation)
	mux.HandleFunc("POST /routes/{id}/stops/{stopID}", deps.Routes.UpdateStop)

	return requestIDMiddleware(loggingMiddleware(mux))
}
