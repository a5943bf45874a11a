package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Account endpoints (no auth required)
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)

		// WebSocket handshake authenticates via single-use ticket, not the
		// bearer header: browsers cannot set Authorization on a WS dial.
		r.Get("/ws", s.handleWebSocket)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			// WS ticket requires authentication
			r.Post("/auth/ws-ticket", s.handleWSTicket)

			r.Route("/lobbies", func(r chi.Router) {
				r.Post("/", s.handleCreateLobby)
				r.Post("/{id}/messages", s.handlePostMessage)
			})

			r.Route("/messages", func(r chi.Router) {
				r.Get("/", s.handleViewMessages)

				r.Route("/{id}", func(r chi.Router) {
					r.Patch("/", s.handleEditMessage)
					r.Delete("/", s.handleDeleteMessage)
					r.Patch("/admin", s.handleAdminEditMessage)
				})
			})

		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
