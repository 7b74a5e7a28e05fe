package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/confhub/internal/app/system/auth"
	"github.com/dalemusser/confhub/internal/app/system/respond"
	"github.com/dalemusser/confhub/internal/app/system/token"
	"github.com/dalemusser/confhub/internal/domain/models"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func registered() jwt.RegisteredClaims {
	now := time.Now()
	return jwt.RegisteredClaims{
		Subject:   primitive.NewObjectID().Hex(),
		ID:        primitive.NewObjectID().Hex(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}
}

// ParticipantClaims returns verified-looking claims for handler tests.
func ParticipantClaims(role models.ParticipantRole) *token.ParticipantClaims {
	email := string(role) + "@test.example"
	return &token.ParticipantClaims{Email: email, Role: role, RegisteredClaims: registered()}
}

// StaffClaims returns verified-looking staff claims for handler tests.
func StaffClaims(role models.StaffRole) *token.StaffClaims {
	email := string(role) + "@staff.example"
	return &token.StaffClaims{Email: email, Role: role, RegisteredClaims: registered()}
}

// WithParticipant puts c on the request as if the middleware had run.
func WithParticipant(r *http.Request, c *token.ParticipantClaims) *http.Request {
	return r.WithContext(auth.WithParticipant(r.Context(), c))
}

// WithStaff puts c on the request as if the middleware had run.
func WithStaff(r *http.Request, c *token.StaffClaims) *http.Request {
	return r.WithContext(auth.WithStaff(r.Context(), c))
}

// NewRequest creates an HTTP request for testing.
func NewRequest(method, target string) *http.Request {
	return httptest.NewRequest(method, target, nil)
}

// NewJSONRequest creates a request whose body is body marshalled to JSON.
// A string body is sent verbatim.
func NewJSONRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatalf("encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// ResponseRecorder wraps httptest.ResponseRecorder with helper methods.
type ResponseRecorder struct {
	*httptest.ResponseRecorder
}

// NewRecorder creates a new ResponseRecorder.
func NewRecorder() *ResponseRecorder {
	return &ResponseRecorder{httptest.NewRecorder()}
}

// AssertStatus checks the response status code.
func (r *ResponseRecorder) AssertStatus(t interface{ Errorf(string, ...any) }, expected int) {
	if r.Code != expected {
		t.Errorf("status code: got %d, want %d (body %s)", r.Code, expected, r.Body.String())
	}
}

// AssertContains checks if the response body contains the expected string.
func (r *ResponseRecorder) AssertContains(t interface{ Errorf(string, ...any) }, expected string) {
	if !strings.Contains(r.Body.String(), expected) {
		t.Errorf("response body does not contain %q", expected)
	}
}

// Envelope decodes the response envelope. Data is decoded into data when
// it is non-nil.
func (r *ResponseRecorder) Envelope(t *testing.T, data any) respond.Envelope {
	t.Helper()
	var raw struct {
		respond.Envelope
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(r.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode envelope: %v (body %s)", err, r.Body.String())
	}
	if data != nil && len(raw.Data) > 0 {
		if err := json.Unmarshal(raw.Data, data); err != nil {
			t.Fatalf("decode envelope data: %v", err)
		}
	}
	return raw.Envelope
}

// TokenService returns a token.Service with fixed test secrets.
func TokenService(t *testing.T) *token.Service {
	t.Helper()
	svc, err := token.NewService(token.Config{
		Issuer: "confhub-test",
		Participant: token.DomainConfig{
			Secret: []byte("participant-secret-participant-secret!"),
			TTL:    24 * time.Hour,
		},
		Staff: token.DomainConfig{
			Secret: []byte("staff-secret-staff-secret-staff-secret!"),
			TTL:    2 * time.Hour,
		},
	})
	if err != nil {
		t.Fatalf("token service: %v", err)
	}
	return svc
}

// Bearer sets the Authorization header.
func Bearer(r *http.Request, raw string) *http.Request {
	r.Header.Set("Authorization", "Bearer "+raw)
	return r
}
