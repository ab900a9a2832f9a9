package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Get("/devices", s.handleListDevices)
		r.Get("/active", s.handleActiveDevice)
		r.Post("/volume", s.handleSetVolume)
		r.Post("/device/select", s.handleSelectDevice)

		r.Route("/bluetooth", func(r chi.Router) {
			r.Post("/scan", s.handleScan)
			r.Post("/pair", s.handlePair)
			r.Post("/connect", s.handleConnect)
			r.Get("/history", s.handleHistory)
		})

		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"version":  s.version,
		"scanning": s.core.Scanning(),
	})
}
