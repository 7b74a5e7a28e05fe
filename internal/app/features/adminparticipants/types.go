// internal/app/features/adminparticipants/types.go
package adminparticipants

import (
	"net/http"

	"github.com/dalemusser/confhub/internal/app/registration"
	"github.com/dalemusser/confhub/internal/app/system/apperr"
	"github.com/dalemusser/confhub/internal/app/system/auth"
	"github.com/dalemusser/confhub/internal/app/system/inputval"
	"github.com/dalemusser/confhub/internal/app/system/token"
	"github.com/dalemusser/confhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type paymentRequest struct {
	Status         string `json:"status"`
	Method         string `json:"method"`
	TransactionRef string `json:"transaction_ref"`
	Force          bool   `json:"force"`
}

// detailsRequest is a partial edit. Absent fields are left unchanged; an
// empty arrival or departure date clears it.
type detailsRequest struct {
	FirstName          *string `json:"first_name"`
	LastName           *string `json:"last_name"`
	Email              *string `json:"email"`
	Phone              *string `json:"phone"`
	Affiliation        *string `json:"affiliation"`
	Country            *string `json:"country"`
	ArrivalDate        *string `json:"arrival_date"`
	DepartureDate      *string `json:"departure_date"`
	AccommodationNotes *string `json:"accommodation_notes"`
}

func (req detailsRequest) patch() (registration.Patch, error) {
	p := registration.Patch{
		FirstName:          req.FirstName,
		LastName:           req.LastName,
		Email:              req.Email,
		Phone:              req.Phone,
		Affiliation:        req.Affiliation,
		Country:            req.Country,
		AccommodationNotes: req.AccommodationNotes,
	}
	if req.ArrivalDate != nil {
		t, err := inputval.ParseOptionalDate("arrival_date", *req.ArrivalDate)
		if err != nil {
			return p, err
		}
		p.ArrivalDate, p.ClearArrival = t, t == nil
	}
	if req.DepartureDate != nil {
		t, err := inputval.ParseOptionalDate("departure_date", *req.DepartureDate)
		if err != nil {
			return p, err
		}
		p.DepartureDate, p.ClearDeparture = t, t == nil
	}
	return p, nil
}

type deleteResponse struct {
	ID            string               `json:"id"`
	PaymentStatus models.PaymentStatus `json:"payment_status"`
}

// participantID parses the {id} URL parameter. Malformed ids are reported
// as not found.
func participantID(r *http.Request) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		return primitive.NilObjectID, apperr.ErrNotFound
	}
	return id, nil
}

// actor returns the staff claims and their id.
func actor(r *http.Request) (*token.StaffClaims, primitive.ObjectID, error) {
	claims, ok := auth.CurrentStaff(r)
	if !ok {
		return nil, primitive.NilObjectID, apperr.ErrInvalidToken
	}
	id, err := primitive.ObjectIDFromHex(claims.IdentityID())
	if err != nil {
		return nil, primitive.NilObjectID, apperr.ErrInvalidToken
	}
	return claims, id, nil
}
