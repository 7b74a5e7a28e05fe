// internal/app/features/accountauth/routes.go
package accountauth

import (
	"github.com/dalemusser/confhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the participant auth endpoints (typically at "/api/auth").
func Routes(h *Handler, g *auth.Guard) chi.Router {
	r := chi.NewRouter()
	r.Post("/signup", h.HandleSignup)
	r.Post("/login", h.HandleLogin)

	r.Group(func(pr chi.Router) {
		pr.Use(g.RequireParticipant)
		pr.Post("/logout", h.HandleLogout)
		pr.Get("/me", h.ServeMe)
		pr.Post("/password", h.HandleChangePassword)
	})
	return r
}
