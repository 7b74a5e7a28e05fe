// internal/app/features/adminparticipants/routes.go
package adminparticipants

import (
	"github.com/dalemusser/confhub/internal/app/system/auth"
	"github.com/dalemusser/confhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts participant administration (typically at "/api/admin/participants").
func Routes(h *Handler, g *auth.Guard) chi.Router {
	r := chi.NewRouter()

	r.With(g.RequireStaffRole(models.RoleAdmin, models.RoleSuperAdmin, models.RoleModerator)).
		Get("/", h.ServeList)
	r.With(g.RequireStaff).Get("/{id}", h.ServeParticipant)

	r.Group(func(pr chi.Router) {
		pr.Use(g.RequireStaffRole(models.RoleAdmin, models.RoleSuperAdmin))
		pr.Patch("/{id}/payment", h.HandlePayment)
		pr.Patch("/{id}", h.HandleEdit)
		pr.Delete("/{id}", h.HandleDelete)
	})
	return r
}
