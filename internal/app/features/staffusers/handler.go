// internal/app/features/staffusers/handler.go
package staffusers

import (
	"context"
	"net/http"

	"github.com/dalemusser/confhub/internal/app/system/apperr"
	"github.com/dalemusser/confhub/internal/app/system/auditlog"
	"github.com/dalemusser/confhub/internal/app/system/auth"
	"github.com/dalemusser/confhub/internal/app/system/password"
	"github.com/dalemusser/confhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// StaffStore is the subset of staffstore.Store used for provisioning.
type StaffStore interface {
	Create(ctx context.Context, u models.StaffUser) (models.StaffUser, error)
	List(ctx context.Context) ([]models.StaffUser, error)
	UpdateRole(ctx context.Context, id primitive.ObjectID, role models.StaffRole) (*models.StaffUser, error)
	Deactivate(ctx context.Context, id primitive.ObjectID) (*models.StaffUser, error)
}

type Handler struct {
	Staff    StaffStore
	Hasher   *password.Hasher
	AuditLog *auditlog.Logger
	Log      *zap.Logger
}

func NewHandler(staff StaffStore, hasher *password.Hasher, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{Staff: staff, Hasher: hasher, AuditLog: audit, Log: logger}
}

var errSelfChange = apperr.Conflict("you cannot demote or deactivate your own account")

type createRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

type roleRequest struct {
	Role string `json:"role"`
}

// actorAndTarget resolves the calling super-admin and the {id} parameter.
func actorAndTarget(r *http.Request) (actor, target primitive.ObjectID, err error) {
	claims, ok := auth.CurrentStaff(r)
	if !ok {
		return actor, target, apperr.ErrInvalidToken
	}
	if actor, err = primitive.ObjectIDFromHex(claims.IdentityID()); err != nil {
		return actor, target, apperr.ErrInvalidToken
	}
	if idParam := chi.URLParam(r, "id"); idParam != "" {
		if target, err = primitive.ObjectIDFromHex(idParam); err != nil {
			return actor, target, apperr.ErrNotFound
		}
	}
	return actor, target, nil
}
