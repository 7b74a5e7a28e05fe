// internal/app/features/registrations/handler.go
package registrations

import (
	"context"
	"net/http"

	"github.com/dalemusser/confhub/internal/app/registration"
	"github.com/dalemusser/confhub/internal/app/system/apperr"
	"github.com/dalemusser/confhub/internal/app/system/auditlog"
	"github.com/dalemusser/confhub/internal/app/system/auth"
	"github.com/dalemusser/confhub/internal/app/system/inputval"
	"github.com/dalemusser/confhub/internal/app/system/respond"
	"github.com/dalemusser/confhub/internal/app/system/timeouts"
	"github.com/dalemusser/confhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Registrar is the part of registration.Service used by participants.
type Registrar interface {
	Register(ctx context.Context, owner registration.Owner, d registration.Details) (models.Participant, error)
	GetMine(ctx context.Context, accountID primitive.ObjectID) (*models.Participant, error)
}

type Handler struct {
	Registrations Registrar
	AuditLog      *auditlog.Logger
	Log           *zap.Logger
}

func NewHandler(regs Registrar, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{Registrations: regs, AuditLog: audit, Log: logger}
}

type registerRequest struct {
	FirstName          string `json:"first_name"`
	LastName           string `json:"last_name"`
	Email              string `json:"email"`
	Phone              string `json:"phone"`
	Affiliation        string `json:"affiliation"`
	Country            string `json:"country"`
	RegistrationType   string `json:"registration_type"`
	ArrivalDate        string `json:"arrival_date"`
	DepartureDate      string `json:"departure_date"`
	AccommodationNotes string `json:"accommodation_notes"`
}

func (req registerRequest) details() (registration.Details, error) {
	arrival, err := inputval.ParseOptionalDate("arrival_date", req.ArrivalDate)
	if err != nil {
		return registration.Details{}, err
	}
	departure, err := inputval.ParseOptionalDate("departure_date", req.DepartureDate)
	if err != nil {
		return registration.Details{}, err
	}
	return registration.Details{
		FirstName:          req.FirstName,
		LastName:           req.LastName,
		Email:              req.Email,
		Phone:              req.Phone,
		Affiliation:        req.Affiliation,
		Country:            req.Country,
		RegistrationType:   models.RegistrationType(req.RegistrationType),
		ArrivalDate:        arrival,
		DepartureDate:      departure,
		AccommodationNotes: req.AccommodationNotes,
	}, nil
}

// owner resolves the authenticated account from the participant token.
func owner(r *http.Request) (registration.Owner, error) {
	claims, ok := auth.CurrentParticipant(r)
	if !ok {
		return registration.Owner{}, apperr.ErrInvalidToken
	}
	id, err := primitive.ObjectIDFromHex(claims.IdentityID())
	if err != nil {
		return registration.Owner{}, apperr.ErrInvalidToken
	}
	return registration.Owner{AccountID: id, Email: claims.Email}, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/registrations                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	o, err := owner(r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	var req registerRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	d, err := req.details()
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "register participant")
	defer cancel()

	p, err := h.Registrations.Register(ctx, o, d)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	h.AuditLog.RegistrationCreated(ctx, r, o.AccountID, p.ID, string(p.RegistrationType))
	h.Log.Info("participant registered",
		zap.String("participant_id", p.ID.Hex()),
		zap.String("registration_type", string(p.RegistrationType)))

	respond.Created(w, "registration received", p)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/registrations/me                                                   |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeMine(w http.ResponseWriter, r *http.Request) {
	o, err := owner(r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get own registration")
	defer cancel()

	p, err := h.Registrations.GetMine(ctx, o.AccountID)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, "registration", p)
}
