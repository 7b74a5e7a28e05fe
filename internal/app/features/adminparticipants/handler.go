// internal/app/features/adminparticipants/handler.go
package adminparticipants

import (
	"context"

	"github.com/dalemusser/confhub/internal/app/registration"
	"github.com/dalemusser/confhub/internal/app/system/auditlog"
	"github.com/dalemusser/confhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Lifecycle is the part of registration.Service used by staff.
type Lifecycle interface {
	Get(ctx context.Context, id primitive.ObjectID) (*models.Participant, error)
	ListAll(ctx context.Context, q registration.ListQuery) (registration.ListResult, error)
	UpdatePayment(ctx context.Context, id primitive.ObjectID, ch registration.PaymentChange) (registration.PaymentResult, error)
	UpdateDetails(ctx context.Context, id primitive.ObjectID, patch registration.Patch) (*models.Participant, []string, error)
	Delete(ctx context.Context, id primitive.ObjectID) (*models.Participant, error)
}

type Handler struct {
	Participants Lifecycle
	AuditLog     *auditlog.Logger
	Log          *zap.Logger
}

func NewHandler(participants Lifecycle, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{Participants: participants, AuditLog: audit, Log: logger}
}
