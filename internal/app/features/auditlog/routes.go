// internal/app/features/auditlog/routes.go
package auditlog

import (
	"github.com/dalemusser/confhub/internal/app/system/auth"
	"github.com/dalemusser/confhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the audit trail (typically at "/api/admin/audit").
// Access is restricted to super-admins.
func Routes(h *Handler, g *auth.Guard) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(g.RequireStaffRole(models.RoleSuperAdmin))
		pr.Get("/", h.ServeList)
	})

	return r
}
