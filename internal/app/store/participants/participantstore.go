// Package participantstore persists conference registrations.
//
// The collection carries a unique index on account_id, so Insert is the
// authority on "one registration per account". Payment changes and
// deletes are conditional writes: the filter encodes the state the caller
// observed, and a mismatch is reported as ErrStateChanged instead of
// silently overwriting a concurrent change.
package participantstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/confhub/internal/app/system/apperr"
	"github.com/dalemusser/confhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrStateChanged means the record exists but no longer matches the
// condition of a conditional write.
var ErrStateChanged = errors.New("participant state changed")

// Filter narrows List. Zero fields do not filter.
type Filter struct {
	PaymentStatus    models.PaymentStatus
	RegistrationType models.RegistrationType
}

func (f Filter) bson() bson.M {
	m := bson.M{}
	if f.PaymentStatus != "" {
		m["payment_status"] = f.PaymentStatus
	}
	if f.RegistrationType != "" {
		m["registration_type"] = f.RegistrationType
	}
	return m
}

// PaymentUpdate is the new payment state written by SetPayment.
// A nil PaidAt clears the field.
type PaymentUpdate struct {
	Status         models.PaymentStatus
	Method         string
	TransactionRef string
	PaidAt         *time.Time
}

// Patch holds editable contact and travel fields. Nil fields are left
// unchanged; ClearArrival/ClearDeparture unset the dates.
type Patch struct {
	FirstName          *string
	LastName           *string
	Email              *string
	Phone              *string
	Affiliation        *string
	Country            *string
	ArrivalDate        *time.Time
	DepartureDate      *time.Time
	AccommodationNotes *string
	ClearArrival       bool
	ClearDeparture     bool
}

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("participants")}
}

// Insert stores a new participant. A second record for the same account
// fails with apperr.ErrDuplicateRegistration.
func (s *Store) Insert(ctx context.Context, p models.Participant) (models.Participant, error) {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, p); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Participant{}, apperr.ErrDuplicateRegistration
		}
		return models.Participant{}, err
	}
	return p, nil
}

// GetByID loads a participant. Missing records are apperr.ErrNotFound.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Participant, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// GetByAccount loads the registration owned by accountID.
func (s *Store) GetByAccount(ctx context.Context, accountID primitive.ObjectID) (*models.Participant, error) {
	return s.findOne(ctx, bson.M{"account_id": accountID})
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (*models.Participant, error) {
	var p models.Participant
	if err := s.c.FindOne(ctx, filter).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("participant: %w", apperr.ErrNotFound)
		}
		return nil, err
	}
	return &p, nil
}

// SetPayment writes upd only if the record's payment_status is still from.
func (s *Store) SetPayment(ctx context.Context, id primitive.ObjectID, from models.PaymentStatus, upd PaymentUpdate) (*models.Participant, error) {
	set := bson.M{
		"payment_status": upd.Status,
		"updated_at":     time.Now().UTC(),
	}
	unset := bson.M{}
	setOrUnset(set, unset, "payment_method", upd.Method)
	setOrUnset(set, unset, "transaction_ref", upd.TransactionRef)
	if upd.PaidAt != nil {
		set["paid_at"] = upd.PaidAt.UTC()
	} else {
		unset["paid_at"] = ""
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	var p models.Participant
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "payment_status": from},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, s.missOrChanged(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func setOrUnset(set, unset bson.M, key, v string) {
	if v == "" {
		unset[key] = ""
		return
	}
	set[key] = v
}

// UpdateDetails applies patch and returns the updated record.
// registration_type and payment fields are not editable here.
func (s *Store) UpdateDetails(ctx context.Context, id primitive.ObjectID, patch Patch) (*models.Participant, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	unset := bson.M{}

	str := func(key string, v *string) {
		if v != nil {
			set[key] = *v
		}
	}
	str("first_name", patch.FirstName)
	str("last_name", patch.LastName)
	str("email", patch.Email)
	str("phone", patch.Phone)
	str("affiliation", patch.Affiliation)
	str("country", patch.Country)
	str("accommodation_notes", patch.AccommodationNotes)

	if patch.ClearArrival {
		unset["arrival_date"] = ""
	} else if patch.ArrivalDate != nil {
		set["arrival_date"] = patch.ArrivalDate.UTC()
	}
	if patch.ClearDeparture {
		unset["departure_date"] = ""
	} else if patch.DepartureDate != nil {
		set["departure_date"] = patch.DepartureDate.UTC()
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	var p models.Participant
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("participant: %w", apperr.ErrNotFound)
		}
		return nil, err
	}
	return &p, nil
}

// DeleteUnlessPaid removes the record unless its payment is completed.
// A completed record yields ErrStateChanged.
func (s *Store) DeleteUnlessPaid(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{
		"_id":            id,
		"payment_status": bson.M{"$ne": models.PaymentCompleted},
	})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return s.missOrChanged(ctx, id)
	}
	return nil
}

// missOrChanged distinguishes a missing record from a failed condition
// after a conditional write matched nothing.
func (s *Store) missOrChanged(ctx context.Context, id primitive.ObjectID) error {
	n, err := s.c.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("participant: %w", apperr.ErrNotFound)
	}
	return ErrStateChanged
}

// List returns one page of participants, newest first, plus the total
// matching f.
func (s *Store) List(ctx context.Context, f Filter, skip int64, limit int64) ([]models.Participant, int64, error) {
	filter := f.bson()

	total, err := s.c.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit)
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	out := []models.Participant{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
