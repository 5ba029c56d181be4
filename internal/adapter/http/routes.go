package http

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Post("/cloudevents", h.HandleCloudEvent)

	r.Route("/monitor", func(r chi.Router) {
		r.Get("/tasks", h.HandleListTasks)
		r.Get("/tasks/{task_id}", h.HandleGetTask)
		r.Get("/status", h.HandleStatus)
		r.Get("/metrics", h.HandleMetrics)
	})

	r.Get("/health", h.HandleHealth)
	r.Get("/ws", h.hub.HandleWS)
}
