// Package accountstore persists participant-domain identities.
package accountstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/confhub/internal/app/system/apperr"
	"github.com/dalemusser/confhub/internal/app/system/normalize"
	"github.com/dalemusser/confhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrDuplicateEmail is returned when an account with the email exists.
// The message does not name the email or say that it is taken.
var ErrDuplicateEmail = apperr.Conflict("signup could not be completed; try signing in instead")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("accounts")}
}

// Create inserts a new account. Email and names are normalized; role
// defaults to participant.
func (s *Store) Create(ctx context.Context, a models.Account) (models.Account, error) {
	a.ID = primitive.NewObjectID()
	a.Email = normalize.Email(a.Email)
	a.FirstName = normalize.Name(a.FirstName)
	a.LastName = normalize.Name(a.LastName)
	if a.Role == "" {
		a.Role = models.RoleParticipant
	}
	if !a.Role.Valid() {
		return models.Account{}, apperr.Validation("role", "unknown participant role")
	}
	if a.Email == "" || a.PasswordHash == "" {
		return models.Account{}, errors.New("account requires email and password hash")
	}

	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, a); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Account{}, ErrDuplicateEmail
		}
		return models.Account{}, err
	}
	return a, nil
}

// GetByID loads an account. Missing accounts are apperr.ErrNotFound.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Account, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// GetByEmail looks up an account by case-insensitive email.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	return s.findOne(ctx, bson.M{"email": normalize.Email(email)})
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (*models.Account, error) {
	var a models.Account
	if err := s.c.FindOne(ctx, filter).Decode(&a); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("account: %w", apperr.ErrNotFound)
		}
		return nil, err
	}
	return &a, nil
}

// UpdatePassword replaces the stored digest.
func (s *Store) UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"password_hash": hash,
		"updated_at":    time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("account: %w", apperr.ErrNotFound)
	}
	return nil
}
