// internal/app/features/dashboard/routes.go
package dashboard

import (
	"github.com/dalemusser/confhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes wires the dashboard under whatever mount point the top-level
// router chooses (e.g., "/api/admin/dashboard"). Any staff role may read it.
func Routes(h *Handler, g *auth.Guard) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(g.RequireStaff)
		pr.Get("/", h.ServeDashboard)
	})

	return r
}
