// internal/app/features/staffusers/routes.go
package staffusers

import (
	"github.com/dalemusser/confhub/internal/app/system/auth"
	"github.com/dalemusser/confhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts staff provisioning (typically at "/api/admin/staff").
// Every endpoint is super-admin only.
func Routes(h *Handler, g *auth.Guard) chi.Router {
	r := chi.NewRouter()
	r.Use(g.RequireStaffRole(models.RoleSuperAdmin))
	r.Get("/", h.ServeList)
	r.Post("/", h.HandleCreate)
	r.Patch("/{id}/role", h.HandleRole)
	r.Post("/{id}/deactivate", h.HandleDeactivate)
	return r
}
