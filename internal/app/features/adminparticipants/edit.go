// internal/app/features/adminparticipants/edit.go
package adminparticipants

import (
	"net/http"
	"strings"

	"github.com/dalemusser/confhub/internal/app/registration"
	"github.com/dalemusser/confhub/internal/app/system/normalize"
	"github.com/dalemusser/confhub/internal/app/system/respond"
	"github.com/dalemusser/confhub/internal/app/system/timeouts"
	"github.com/dalemusser/confhub/internal/domain/models"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| PATCH /api/admin/participants/{id}/payment                                  |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandlePayment(w http.ResponseWriter, r *http.Request) {
	claims, actorID, err := actor(r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	id, err := participantID(r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	var req paymentRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "update payment")
	defer cancel()

	res, err := h.Participants.UpdatePayment(ctx, id, registration.PaymentChange{
		Status:         models.PaymentStatus(normalize.Status(req.Status)),
		Method:         req.Method,
		TransactionRef: req.TransactionRef,
		Force:          req.Force,
		ActorRole:      claims.Role,
	})
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	to := string(res.Participant.PaymentStatus)
	if res.Overridden {
		h.AuditLog.PaymentOverridden(ctx, r, actorID, id, string(claims.Role), string(res.From), to)
		h.Log.Warn("payment status overridden",
			zap.String("participant_id", id.Hex()),
			zap.String("actor_id", actorID.Hex()),
			zap.String("from", string(res.From)),
			zap.String("to", to))
	} else {
		h.AuditLog.PaymentUpdated(ctx, r, actorID, id, string(claims.Role), string(res.From), to)
	}

	respond.OK(w, "payment updated", res.Participant)
}

/*─────────────────────────────────────────────────────────────────────────────*
| PATCH /api/admin/participants/{id}                                          |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	claims, actorID, err := actor(r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	id, err := participantID(r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	var req detailsRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	patch, err := req.patch()
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "update participant")
	defer cancel()

	p, fields, err := h.Participants.UpdateDetails(ctx, id, patch)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if len(fields) > 0 {
		h.AuditLog.ParticipantUpdated(ctx, r, actorID, id, string(claims.Role), strings.Join(fields, ","))
	}

	respond.OK(w, "participant updated", p)
}

/*─────────────────────────────────────────────────────────────────────────────*
| DELETE /api/admin/participants/{id}                                         |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	claims, actorID, err := actor(r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	id, err := participantID(r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "delete participant")
	defer cancel()

	p, err := h.Participants.Delete(ctx, id)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	h.AuditLog.ParticipantDeleted(ctx, r, actorID, id, string(claims.Role), string(p.PaymentStatus))
	h.Log.Info("participant deleted",
		zap.String("participant_id", id.Hex()),
		zap.String("actor_id", actorID.Hex()))

	respond.OK(w, "participant deleted", deleteResponse{ID: id.Hex(), PaymentStatus: p.PaymentStatus})
}
