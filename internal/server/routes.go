package server

import (
	"github.com/go-chi/chi/v5"
)

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	r := s.router

	// Document operations
	r.Route("/document", func(r chi.Router) {
		r.Get("/", s.listDocuments)
		r.Post("/", s.openDocument)
		r.Get("/content", s.readDocument)
		r.Delete("/", s.closeDocument)
	})

	// Edit session operations
	r.Route("/session/{sessionID}", func(r chi.Router) {
		r.Post("/edit", s.sendEditRequest)
	})
	r.Route("/edit", func(r chi.Router) {
		r.Get("/ranges", s.getEditRanges)
		r.Get("/progress", s.getProgress)
		r.Post("/confirm", s.confirmEdits)
	})

	// Configuration
	r.Route("/config", func(r chi.Router) {
		r.Get("/", s.getConfig)
		r.Patch("/", s.updateConfig)
	})

	// Event streaming (SSE)
	r.Get("/event", s.events)
}
