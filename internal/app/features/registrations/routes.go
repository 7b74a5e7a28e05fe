// internal/app/features/registrations/routes.go
package registrations

import (
	"github.com/dalemusser/confhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts participant self-registration (typically at "/api/registrations").
func Routes(h *Handler, g *auth.Guard) chi.Router {
	r := chi.NewRouter()
	r.Use(g.RequireParticipant)
	r.Post("/", h.HandleRegister)
	r.Get("/me", h.ServeMine)
	return r
}
