// internal/app/features/auditlog/handler.go
package auditlog

import (
	"github.com/dalemusser/confhub/internal/app/store/audit"
	"go.uber.org/zap"
)

type Handler struct {
	Events *audit.Store
	Log    *zap.Logger
}

// NewHandler constructs the audit trail handler over the audit event store.
func NewHandler(events *audit.Store, logger *zap.Logger) *Handler {
	return &Handler{
		Events: events,
		Log:    logger,
	}
}
