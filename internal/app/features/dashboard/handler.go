// internal/app/features/dashboard/handler.go
package dashboard

import (
	"context"
	"net/http"
	"time"

	metricsstore "github.com/dalemusser/confhub/internal/app/store/metrics"
	"github.com/dalemusser/confhub/internal/app/system/auth"
	"github.com/dalemusser/confhub/internal/app/system/respond"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const dashboardTimeout = 5 * time.Second

type Handler struct {
	DB  *mongo.Database
	Log *zap.Logger
}

func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		DB:  db,
		Log: logger,
	}
}

type dashboardData struct {
	Role        string                 `json:"role"`
	Counts      metricsstore.Counts    `json:"counts"`
	Breakdown   metricsstore.Breakdown `json:"breakdown"`
	GeneratedAt time.Time              `json:"generated_at"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/admin/dashboard                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeDashboard returns headline counts and the participant breakdown.
// Figures are read without a snapshot and may be slightly stale.
func (h *Handler) ServeDashboard(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.CurrentStaff(r)

	ctx, cancel := context.WithTimeout(r.Context(), dashboardTimeout)
	defer cancel()

	counts := metricsstore.FetchDashboardCounts(ctx, h.DB)
	breakdown, err := metricsstore.FetchParticipantBreakdown(ctx, h.DB)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	data := dashboardData{
		Counts:      counts,
		Breakdown:   breakdown,
		GeneratedAt: time.Now().UTC(),
	}
	if claims != nil {
		data.Role = string(claims.Role)
		h.Log.Debug("dashboard served", zap.String("staff_id", claims.IdentityID()))
	}

	respond.OK(w, "dashboard", data)
}
