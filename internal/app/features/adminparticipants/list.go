// internal/app/features/adminparticipants/list.go
package adminparticipants

import (
	"net/http"

	"github.com/dalemusser/confhub/internal/app/registration"
	participantstore "github.com/dalemusser/confhub/internal/app/store/participants"
	"github.com/dalemusser/confhub/internal/app/system/normalize"
	"github.com/dalemusser/confhub/internal/app/system/paging"
	"github.com/dalemusser/confhub/internal/app/system/respond"
	"github.com/dalemusser/confhub/internal/app/system/timeouts"
	"github.com/dalemusser/confhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/admin/participants?page=&limit=&payment_status=&registration_type= |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	page, limit := paging.ParseRequest(r)
	filter := participantstore.Filter{
		PaymentStatus:    models.PaymentStatus(normalize.Status(query.Get(r, "payment_status"))),
		RegistrationType: models.RegistrationType(normalize.Status(query.Get(r, "registration_type"))),
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list participants")
	defer cancel()

	res, err := h.Participants.ListAll(ctx, registration.ListQuery{Page: page, PageSize: limit, Filter: filter})
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	h.Log.Debug("participants listed",
		zap.Int64("total", res.Total),
		zap.Int("page", res.Page),
		zap.Int("limit", res.PageSize))

	respond.OK(w, "participants", respond.NewPage(res.Items, res.Total, res.Page, res.PageSize))
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/admin/participants/{id}                                            |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeParticipant(w http.ResponseWriter, r *http.Request) {
	id, err := participantID(r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get participant")
	defer cancel()

	p, err := h.Participants.Get(ctx, id)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, "participant", p)
}
