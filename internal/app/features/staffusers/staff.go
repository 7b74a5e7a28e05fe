// internal/app/features/staffusers/staff.go
package staffusers

import (
	"net/http"

	"github.com/dalemusser/confhub/internal/app/system/apperr"
	"github.com/dalemusser/confhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/confhub/internal/app/system/inputval"
	"github.com/dalemusser/confhub/internal/app/system/normalize"
	"github.com/dalemusser/confhub/internal/app/system/password"
	"github.com/dalemusser/confhub/internal/app/system/respond"
	"github.com/dalemusser/confhub/internal/app/system/timeouts"
	"github.com/dalemusser/confhub/internal/domain/models"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/admin/staff                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list staff")
	defer cancel()

	users, err := h.Staff.List(ctx)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, "staff users", users)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/admin/staff                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := actorAndTarget(r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	var req createRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	req.Email = normalize.Email(req.Email)
	role := models.StaffRole(normalize.Role(req.Role))
	if !inputval.IsValidEmail(req.Email) {
		respond.Error(w, r, h.Log, apperr.Validation("email", "is not a valid email address"))
		return
	}
	if !role.Valid() {
		respond.Error(w, r, h.Log, apperr.Validation("role", "must be one of admin, super-admin, moderator"))
		return
	}
	if err := password.CheckStrength(req.Password); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	hash, err := h.Hasher.Hash(req.Password)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "create staff user")
	defer cancel()

	u, err := h.Staff.Create(ctx, models.StaffUser{
		Email:        req.Email,
		PasswordHash: hash,
		FirstName:    htmlsanitize.PlainText(req.FirstName),
		LastName:     htmlsanitize.PlainText(req.LastName),
		Role:         role,
	})
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	h.AuditLog.StaffCreated(ctx, r, actorID, u.ID, string(u.Role))
	h.Log.Info("staff user created",
		zap.String("staff_id", u.ID.Hex()),
		zap.String("role", string(u.Role)),
		zap.String("actor_id", actorID.Hex()))

	respond.Created(w, "staff user created", u)
}

/*─────────────────────────────────────────────────────────────────────────────*
| PATCH /api/admin/staff/{id}/role                                            |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleRole(w http.ResponseWriter, r *http.Request) {
	actorID, targetID, err := actorAndTarget(r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	var req roleRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	role := models.StaffRole(normalize.Role(req.Role))
	if actorID == targetID && role != models.RoleSuperAdmin {
		respond.Error(w, r, h.Log, errSelfChange)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "change staff role")
	defer cancel()

	u, err := h.Staff.UpdateRole(ctx, targetID, role)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	h.AuditLog.StaffRoleChanged(ctx, r, actorID, u.ID, string(u.Role))
	respond.OK(w, "role updated", u)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/admin/staff/{id}/deactivate                                       |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	actorID, targetID, err := actorAndTarget(r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if actorID == targetID {
		respond.Error(w, r, h.Log, errSelfChange)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "deactivate staff user")
	defer cancel()

	u, err := h.Staff.Deactivate(ctx, targetID)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	h.AuditLog.StaffDeactivated(ctx, r, actorID, u.ID)
	h.Log.Info("staff user deactivated",
		zap.String("staff_id", u.ID.Hex()),
		zap.String("actor_id", actorID.Hex()))

	respond.OK(w, "staff user deactivated", u)
}
