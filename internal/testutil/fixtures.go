package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/confhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// TestPassword is the plaintext behind every fixture's password hash.
const TestPassword = "correct-horse-battery"

// Fixtures inserts test data directly into collections, bypassing stores.
type Fixtures struct {
	db   *mongo.Database
	t    *testing.T
	hash string
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash fixture password: %v", err)
	}
	return &Fixtures{db: db, t: t, hash: string(h)}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// PasswordHash is the bcrypt digest of TestPassword used by fixtures.
func (f *Fixtures) PasswordHash() string {
	return f.hash
}

// CreateAccount inserts a participant-domain account.
func (f *Fixtures) CreateAccount(ctx context.Context, email string, role models.ParticipantRole) models.Account {
	f.t.Helper()

	now := time.Now().UTC()
	a := models.Account{
		ID:           primitive.NewObjectID(),
		Email:        email,
		PasswordHash: f.hash,
		FirstName:    "Test",
		LastName:     "Participant",
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := f.db.Collection("accounts").InsertOne(ctx, a); err != nil {
		f.t.Fatalf("insert account: %v", err)
	}
	return a
}

// CreateStaffUser inserts an active staff user.
func (f *Fixtures) CreateStaffUser(ctx context.Context, email string, role models.StaffRole) models.StaffUser {
	f.t.Helper()

	now := time.Now().UTC()
	s := models.StaffUser{
		ID:           primitive.NewObjectID(),
		Email:        email,
		PasswordHash: f.hash,
		FirstName:    "Test",
		LastName:     "Staff",
		Role:         role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := f.db.Collection("staff_users").InsertOne(ctx, s); err != nil {
		f.t.Fatalf("insert staff user: %v", err)
	}
	return s
}

// CreateParticipant inserts a participant record owned by accountID.
func (f *Fixtures) CreateParticipant(ctx context.Context, accountID primitive.ObjectID, regType models.RegistrationType, status models.PaymentStatus) models.Participant {
	f.t.Helper()

	now := time.Now().UTC()
	p := models.Participant{
		ID:               primitive.NewObjectID(),
		AccountID:        accountID,
		FirstName:        "Test",
		LastName:         "Participant",
		Email:            accountID.Hex() + "@test.example",
		Affiliation:      "Test University",
		Country:          "Estonia",
		RegistrationType: regType,
		PaymentStatus:    status,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if status == models.PaymentCompleted {
		p.PaidAt = &now
	}
	if _, err := f.db.Collection("participants").InsertOne(ctx, p); err != nil {
		f.t.Fatalf("insert participant: %v", err)
	}
	return p
}
