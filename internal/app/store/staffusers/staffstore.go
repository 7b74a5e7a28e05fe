// Package staffstore persists staff-domain identities. Staff users are
// deactivated, never deleted.
package staffstore

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
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrDuplicateEmail is returned when a staff user with the email exists.
	ErrDuplicateEmail = apperr.Conflict("a staff user with this email already exists")

	// ErrLastSuperAdmin blocks demoting or deactivating the only active
	// super-admin.
	ErrLastSuperAdmin = apperr.Conflict("the last active super-admin cannot be demoted or deactivated")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("staff_users")}
}

// Create inserts an active staff user after normalizing fields.
func (s *Store) Create(ctx context.Context, u models.StaffUser) (models.StaffUser, error) {
	u.ID = primitive.NewObjectID()
	u.Email = normalize.Email(u.Email)
	u.FirstName = normalize.Name(u.FirstName)
	u.LastName = normalize.Name(u.LastName)
	u.Active = true
	u.LastLoginAt = nil
	if !u.Role.Valid() {
		return models.StaffUser{}, apperr.Validation("role", "must be one of admin, super-admin, moderator")
	}
	if u.Email == "" || u.PasswordHash == "" {
		return models.StaffUser{}, errors.New("staff user requires email and password hash")
	}

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.StaffUser{}, ErrDuplicateEmail
		}
		return models.StaffUser{}, err
	}
	return u, nil
}

// GetByID loads a staff user. Missing users are apperr.ErrNotFound.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.StaffUser, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// GetByEmail looks up a staff user by case-insensitive email.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.StaffUser, error) {
	return s.findOne(ctx, bson.M{"email": normalize.Email(email)})
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (*models.StaffUser, error) {
	var u models.StaffUser
	if err := s.c.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("staff user: %w", apperr.ErrNotFound)
		}
		return nil, err
	}
	return &u, nil
}

// List returns every staff user ordered by role, active first, then name.
func (s *Store) List(ctx context.Context) ([]models.StaffUser, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "role", Value: 1},
		{Key: "active", Value: -1},
		{Key: "last_name", Value: 1},
	})
	cur, err := s.c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.StaffUser{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateRole changes a staff user's role and returns the updated record.
// Demoting the last active super-admin is refused.
func (s *Store) UpdateRole(ctx context.Context, id primitive.ObjectID, role models.StaffRole) (*models.StaffUser, error) {
	if !role.Valid() {
		return nil, apperr.Validation("role", "must be one of admin, super-admin, moderator")
	}
	if role != models.RoleSuperAdmin {
		if err := s.guardLastSuperAdmin(ctx, id); err != nil {
			return nil, err
		}
	}
	return s.update(ctx, id, bson.M{"role": role})
}

// Deactivate marks a staff user inactive. Their outstanding tokens remain
// valid until expiry; login is refused from now on.
func (s *Store) Deactivate(ctx context.Context, id primitive.ObjectID) (*models.StaffUser, error) {
	if err := s.guardLastSuperAdmin(ctx, id); err != nil {
		return nil, err
	}
	return s.update(ctx, id, bson.M{"active": false})
}

// UpdatePassword replaces the stored digest.
func (s *Store) UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	_, err := s.update(ctx, id, bson.M{"password_hash": hash})
	return err
}

// TouchLastLogin records a successful login.
func (s *Store) TouchLastLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"last_login_at": at.UTC()}})
	return err
}

func (s *Store) update(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.StaffUser, error) {
	set["updated_at"] = time.Now().UTC()
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var u models.StaffUser
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("staff user: %w", apperr.ErrNotFound)
		}
		return nil, err
	}
	return &u, nil
}

// guardLastSuperAdmin returns ErrLastSuperAdmin when id is the only active
// super-admin. Two concurrent demotions can still race; staff management is
// a low-volume, super-admin-only surface.
func (s *Store) guardLastSuperAdmin(ctx context.Context, id primitive.ObjectID) error {
	target, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if target.Role != models.RoleSuperAdmin || !target.Active {
		return nil
	}
	n, err := s.c.CountDocuments(ctx, bson.M{"role": models.RoleSuperAdmin, "active": true})
	if err != nil {
		return err
	}
	if n <= 1 {
		return ErrLastSuperAdmin
	}
	return nil
}

// EnsureSuperAdmin makes sure a super-admin with email exists. An existing
// user with that email is left untouched. Reports whether one was created.
func (s *Store) EnsureSuperAdmin(ctx context.Context, email, passwordHash, firstName, lastName string) (bool, error) {
	email = normalize.Email(email)
	if email == "" || passwordHash == "" {
		return false, errors.New("super-admin requires email and password hash")
	}
	now := time.Now().UTC()

	res, err := s.c.UpdateOne(ctx,
		bson.M{"email": email},
		bson.M{"$setOnInsert": bson.M{
			"_id":           primitive.NewObjectID(),
			"email":         email,
			"password_hash": passwordHash,
			"first_name":    normalize.Name(firstName),
			"last_name":     normalize.Name(lastName),
			"role":          models.RoleSuperAdmin,
			"active":        true,
			"created_at":    now,
			"updated_at":    now,
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return false, err
	}
	return res.UpsertedCount > 0, nil
}
