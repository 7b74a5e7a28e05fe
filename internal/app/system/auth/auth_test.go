package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/confhub/internal/app/system/auth"
	"github.com/dalemusser/confhub/internal/app/system/respond"
	"github.com/dalemusser/confhub/internal/app/system/token"
	"github.com/dalemusser/confhub/internal/domain/models"
	"go.uber.org/zap"
)

func newTokens(t *testing.T) *token.Service {
	t.Helper()
	svc, err := token.NewService(token.Config{
		Issuer:      "confhub-test",
		Participant: token.DomainConfig{Secret: []byte("participant-secret-0123456789abcdef"), TTL: 24 * time.Hour},
		Staff:       token.DomainConfig{Secret: []byte("staff-secret-0123456789abcdef-xyz!"), TTL: 2 * time.Hour},
	})
	if err != nil {
		t.Fatalf("token service: %v", err)
	}
	return svc
}

func staffToken(t *testing.T, svc *token.Service, role models.StaffRole) string {
	t.Helper()
	raw, _, err := svc.IssueStaff(token.Subject[models.StaffRole]{ID: "staff-1", Email: "s@example.org", Role: role})
	if err != nil {
		t.Fatalf("issue staff: %v", err)
	}
	return raw
}

func participantToken(t *testing.T, svc *token.Service, role models.ParticipantRole) string {
	t.Helper()
	raw, _, err := svc.IssueParticipant(token.Subject[models.ParticipantRole]{ID: "acc-1", Email: "p@example.org", Role: role})
	if err != nil {
		t.Fatalf("issue participant: %v", err)
	}
	return raw
}

// reached records whether the protected handler ran.
type reached struct{ hit bool }

func (h *reached) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.hit = true
	w.WriteHeader(http.StatusOK)
}

func do(h http.Handler, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", "/api/admin/participants", nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) respond.Envelope {
	t.Helper()
	var env respond.Envelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return env
}

func TestRequireStaffRole_ModeratorForbidden(t *testing.T) {
	svc := newTokens(t)
	g := auth.NewGuard(svc, nil, nil, zap.NewNop())
	next := &reached{}

	h := g.RequireStaffRole(models.RoleAdmin, models.RoleSuperAdmin)(next)
	rec := do(h, staffToken(t, svc, models.RoleModerator))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if next.hit {
		t.Error("protected handler must not run")
	}
	env := decode(t, rec)
	if env.Success || env.Error != "AuthorizationFailure" || env.Message != "forbidden" {
		t.Errorf("unexpected envelope: %+v", env)
	}
}

func TestRequireStaffRole_AdminAllowed(t *testing.T) {
	svc := newTokens(t)
	g := auth.NewGuard(svc, nil, nil, zap.NewNop())

	var got *token.StaffClaims
	h := g.RequireStaffRole(models.RoleAdmin, models.RoleSuperAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = auth.CurrentStaff(r)
	}))
	rec := do(h, staffToken(t, svc, models.RoleAdmin))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got == nil || got.Role != models.RoleAdmin || got.IdentityID() != "staff-1" {
		t.Errorf("claims not stored in context: %+v", got)
	}
}

func TestRequireStaff_ParticipantTokenUnauthorized(t *testing.T) {
	svc := newTokens(t)
	g := auth.NewGuard(svc, nil, nil, zap.NewNop())
	next := &reached{}

	rec := do(g.RequireStaff(next), participantToken(t, svc, models.RoleCommittee))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if next.hit {
		t.Error("protected handler must not run")
	}
	env := decode(t, rec)
	if env.Error != "AuthenticationFailure" || env.Message != "invalid or expired token" {
		t.Errorf("unexpected envelope: %+v", env)
	}
}

func TestRequireParticipant_StaffTokenUnauthorized(t *testing.T) {
	svc := newTokens(t)
	g := auth.NewGuard(svc, nil, nil, zap.NewNop())
	next := &reached{}

	rec := do(g.RequireParticipant(next), staffToken(t, svc, models.RoleSuperAdmin))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if next.hit {
		t.Error("protected handler must not run")
	}
}

func TestRequireParticipant_MissingOrGarbage(t *testing.T) {
	svc := newTokens(t)
	g := auth.NewGuard(svc, nil, nil, zap.NewNop())

	for _, bearer := range []string{"", "not-a-token"} {
		next := &reached{}
		rec := do(g.RequireParticipant(next), bearer)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("bearer %q: expected 401, got %d", bearer, rec.Code)
		}
		if next.hit {
			t.Errorf("bearer %q: protected handler must not run", bearer)
		}
	}
}

func TestRequireParticipant_SetsContext(t *testing.T) {
	svc := newTokens(t)
	g := auth.NewGuard(svc, nil, nil, zap.NewNop())

	var (
		p       *token.ParticipantClaims
		staffOK bool
	)
	h := g.RequireParticipant(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, _ = auth.CurrentParticipant(r)
		_, staffOK = auth.CurrentStaff(r)
	}))
	do(h, participantToken(t, svc, models.RoleReviewer))

	if p == nil || p.Role != models.RoleReviewer {
		t.Fatalf("participant claims missing: %+v", p)
	}
	if staffOK {
		t.Error("participant request must not carry staff claims")
	}
}

func TestRequireStaff_RevokedToken(t *testing.T) {
	svc := newTokens(t)
	deny := token.NewMemoryDenylist(nil)
	g := auth.NewGuard(svc, deny, nil, zap.NewNop())

	raw := staffToken(t, svc, models.RoleAdmin)
	claims, err := svc.VerifyStaff(raw)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := deny.Revoke(context.Background(), claims.ID, time.Hour); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	next := &reached{}
	rec := do(g.RequireStaff(next), raw)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for revoked token, got %d", rec.Code)
	}
	if next.hit {
		t.Error("protected handler must not run")
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", true},
		{"bearer abc", "abc", true},
		{"Bearer   ", "", false},
		{"Basic dXNlcjpwYXNz", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("GET", "/", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		got, ok := auth.BearerToken(req)
		if got != tt.want || ok != tt.ok {
			t.Errorf("BearerToken(%q) = (%q, %v), want (%q, %v)", tt.header, got, ok, tt.want, tt.ok)
		}
	}
}
