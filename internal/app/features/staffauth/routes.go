// internal/app/features/staffauth/routes.go
package staffauth

import (
	"github.com/dalemusser/confhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the staff auth endpoints (typically at "/api/admin/auth").
func Routes(h *Handler, g *auth.Guard) chi.Router {
	r := chi.NewRouter()
	r.Post("/login", h.HandleLogin)

	r.Group(func(pr chi.Router) {
		pr.Use(g.RequireStaff)
		pr.Post("/logout", h.HandleLogout)
		pr.Get("/me", h.ServeMe)
	})
	return r
}
