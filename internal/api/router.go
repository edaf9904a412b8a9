// Package api assembles the HTTP surface: middleware stack, routes, and
// the response envelope shared by every handler.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/castpress/castpress/internal/api/middleware"
	"github.com/castpress/castpress/internal/api/response"
)

// Dependencies holds all handler dependencies for the router.
type Dependencies struct {
	HealthHandler     http.HandlerFunc
	CreateEpisode     http.HandlerFunc
	GetEpisode        http.HandlerFunc
	ListNotifications http.HandlerFunc
}

// NewRouter builds the chi router with the middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	r.Post("/api/v1/episodes", orNotImplemented(deps.CreateEpisode))
	r.Get("/api/v1/episodes/{jobID}", orNotImplemented(deps.GetEpisode))
	r.Get("/api/v1/episodes/{jobID}/notifications", orNotImplemented(deps.ListNotifications))

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
