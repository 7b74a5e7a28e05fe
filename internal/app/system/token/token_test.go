package token

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/confhub/internal/domain/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

var (
	participantSecret = []byte("participant-secret-0123456789abcdef")
	staffSecret       = []byte("staff-secret-0123456789abcdef-xyz!")
)

func newTestService(t *testing.T, c *clock) *Service {
	t.Helper()
	svc, err := NewService(Config{
		Issuer:      "confhub-test",
		Participant: DomainConfig{Secret: participantSecret, TTL: 24 * time.Hour},
		Staff:       DomainConfig{Secret: staffSecret, TTL: 2 * time.Hour},
		Now:         c.now,
	})
	require.NoError(t, err)
	return svc
}

func TestIssueAndVerify_Participant(t *testing.T) {
	c := &clock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	svc := newTestService(t, c)

	raw, exp, err := svc.IssueParticipant(Subject[models.ParticipantRole]{
		ID: "acc-1", Email: "ana@example.org", Role: models.RoleSpeaker,
	})
	require.NoError(t, err)
	assert.Equal(t, c.t.Add(24*time.Hour), exp)

	claims, err := svc.VerifyParticipant(raw)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", claims.IdentityID())
	assert.Equal(t, "ana@example.org", claims.Email)
	assert.Equal(t, models.RoleSpeaker, claims.Role)
	assert.NotEmpty(t, claims.ID)
	assert.Equal(t, jwt.ClaimStrings{"participant"}, claims.Audience)
}

func TestIssue_UniqueJTI(t *testing.T) {
	c := &clock{t: time.Now()}
	svc := newTestService(t, c)
	sub := Subject[models.StaffRole]{ID: "s1", Email: "a@x.org", Role: models.RoleAdmin}

	a, _, err := svc.IssueStaff(sub)
	require.NoError(t, err)
	b, _, err := svc.IssueStaff(sub)
	require.NoError(t, err)

	ca, err := svc.VerifyStaff(a)
	require.NoError(t, err)
	cb, err := svc.VerifyStaff(b)
	require.NoError(t, err)
	assert.NotEqual(t, ca.ID, cb.ID)
}

func TestIssue_RejectsInvalidRole(t *testing.T) {
	svc := newTestService(t, &clock{t: time.Now()})

	_, _, err := svc.IssueStaff(Subject[models.StaffRole]{ID: "s1", Role: "root"})
	assert.Error(t, err)

	_, _, err = svc.IssueParticipant(Subject[models.ParticipantRole]{ID: "", Role: models.RoleParticipant})
	assert.Error(t, err)
}

func TestVerify_CrossDomainRejected(t *testing.T) {
	c := &clock{t: time.Now()}
	svc := newTestService(t, c)

	pTok, _, err := svc.IssueParticipant(Subject[models.ParticipantRole]{ID: "p1", Role: models.RoleParticipant})
	require.NoError(t, err)
	sTok, _, err := svc.IssueStaff(Subject[models.StaffRole]{ID: "s1", Role: models.RoleSuperAdmin})
	require.NoError(t, err)

	_, err = svc.VerifyStaff(pTok)
	assert.ErrorIs(t, err, ErrInvalidToken, "participant token must not verify as staff")

	_, err = svc.VerifyParticipant(sTok)
	assert.ErrorIs(t, err, ErrInvalidToken, "staff token must not verify as participant")
}

func TestVerify_CrossDomainRejectedWithSharedSecret(t *testing.T) {
	c := &clock{t: time.Now()}
	shared := DomainConfig{Secret: participantSecret, TTL: time.Hour}
	p := newSigner[models.ParticipantRole](DomainParticipant, "iss", shared, c.now)
	s := newSigner[models.StaffRole](DomainStaff, "iss", shared, c.now)

	// "committee" is not a staff role, but audience alone must reject it.
	raw, _, err := p.issue(Subject[models.ParticipantRole]{ID: "p1", Role: models.RoleCommittee})
	require.NoError(t, err)

	_, err = s.verify(raw)
	assert.ErrorIs(t, err, ErrSignature)
}

func TestVerify_Expiry(t *testing.T) {
	c := &clock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	svc := newTestService(t, c)

	raw, _, err := svc.IssueStaff(Subject[models.StaffRole]{ID: "s1", Role: models.RoleModerator})
	require.NoError(t, err)

	c.advance(2*time.Hour - time.Second)
	_, err = svc.VerifyStaff(raw)
	require.NoError(t, err, "one second before exp is still valid")

	c.advance(time.Second)
	_, err = svc.VerifyStaff(raw)
	assert.ErrorIs(t, err, ErrExpired, "now == exp must be rejected")
	assert.ErrorIs(t, err, ErrInvalidToken)

	c.advance(time.Hour)
	_, err = svc.VerifyStaff(raw)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestVerify_TamperedSignature(t *testing.T) {
	svc := newTestService(t, &clock{t: time.Now()})
	raw, _, err := svc.IssueParticipant(Subject[models.ParticipantRole]{ID: "p1", Role: models.RoleParticipant})
	require.NoError(t, err)

	parts := strings.Split(raw, ".")
	require.Len(t, parts, 3)
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	_, err = svc.VerifyParticipant(tampered)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_TamperedPayload(t *testing.T) {
	svc := newTestService(t, &clock{t: time.Now()})
	raw, _, err := svc.IssueParticipant(Subject[models.ParticipantRole]{ID: "p1", Role: models.RoleParticipant})
	require.NoError(t, err)

	// Re-sign nothing; swap in the payload of a committee token.
	other, _, err := svc.IssueParticipant(Subject[models.ParticipantRole]{ID: "p1", Role: models.RoleCommittee})
	require.NoError(t, err)

	a := strings.Split(raw, ".")
	b := strings.Split(other, ".")
	_, err = svc.VerifyParticipant(a[0] + "." + b[1] + "." + a[2])
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_WrongAlgorithm(t *testing.T) {
	c := &clock{t: time.Now()}
	svc := newTestService(t, c)

	claims := ParticipantClaims{
		Role: models.RoleParticipant,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "p1",
			Issuer:    "confhub-test",
			Audience:  jwt.ClaimStrings{"participant"},
			IssuedAt:  jwt.NewNumericDate(c.t),
			ExpiresAt: jwt.NewNumericDate(c.t.Add(time.Hour)),
			ID:        "jti-1",
		},
	}

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(participantSecret)
	require.NoError(t, err)
	_, err = svc.VerifyParticipant(hs512)
	assert.ErrorIs(t, err, ErrInvalidToken)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.VerifyParticipant(none)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_Malformed(t *testing.T) {
	svc := newTestService(t, &clock{t: time.Now()})

	for _, raw := range []string{"", "abc", "a.b", "a.b.c"} {
		_, err := svc.VerifyStaff(raw)
		assert.ErrorIs(t, err, ErrInvalidToken, raw)
	}
}

func TestConfigValidate(t *testing.T) {
	good := Config{
		Issuer:      "iss",
		Participant: DomainConfig{Secret: participantSecret, TTL: 24 * time.Hour},
		Staff:       DomainConfig{Secret: staffSecret, TTL: 2 * time.Hour},
	}
	require.NoError(t, good.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no issuer", func(c *Config) { c.Issuer = "" }},
		{"short participant secret", func(c *Config) { c.Participant.Secret = []byte("short") }},
		{"short staff secret", func(c *Config) { c.Staff.Secret = []byte("short") }},
		{"shared secret", func(c *Config) { c.Staff.Secret = c.Participant.Secret }},
		{"zero ttl", func(c *Config) { c.Staff.TTL = 0 }},
		{"staff ttl equal", func(c *Config) { c.Staff.TTL = c.Participant.TTL }},
		{"staff ttl longer", func(c *Config) { c.Staff.TTL = 48 * time.Hour }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := good
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestAuthorize(t *testing.T) {
	assert.True(t, Authorize(models.RoleAdmin, models.RoleAdmin, models.RoleSuperAdmin))
	assert.False(t, Authorize(models.RoleModerator, models.RoleAdmin, models.RoleSuperAdmin))
	assert.False(t, Authorize(models.RoleAdmin))
	assert.True(t, Authorize(models.RoleReviewer, models.RoleReviewer))
}

func TestRemainingTTL(t *testing.T) {
	c := &clock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	svc := newTestService(t, c)
	raw, _, err := svc.IssueStaff(Subject[models.StaffRole]{ID: "s1", Role: models.RoleAdmin})
	require.NoError(t, err)
	claims, err := svc.VerifyStaff(raw)
	require.NoError(t, err)

	assert.Equal(t, 2*time.Hour, RemainingTTL(claims, c.t))
	assert.Equal(t, 30*time.Minute, RemainingTTL(claims, c.t.Add(90*time.Minute)))
	assert.Zero(t, RemainingTTL(claims, c.t.Add(3*time.Hour)))
}

func TestMemoryDenylist(t *testing.T) {
	c := &clock{t: time.Now()}
	d := NewMemoryDenylist(c.now)
	ctx := context.Background()

	revoked, err := d.IsRevoked(ctx, "j1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, d.Revoke(ctx, "j1", time.Minute))
	revoked, _ = d.IsRevoked(ctx, "j1")
	assert.True(t, revoked)

	c.advance(time.Minute)
	revoked, _ = d.IsRevoked(ctx, "j1")
	assert.False(t, revoked, "entry expires with the token")

	require.NoError(t, d.Revoke(ctx, "", time.Minute))
	require.NoError(t, d.Revoke(ctx, "j2", 0))
	revoked, _ = d.IsRevoked(ctx, "j2")
	assert.False(t, revoked)
}

func TestReason(t *testing.T) {
	assert.Equal(t, "ok", Reason(nil))
	assert.Equal(t, "expired", Reason(ErrExpired))
	assert.Equal(t, "malformed", Reason(ErrMalformed))
	assert.Equal(t, "signature", Reason(ErrSignature))
	assert.Equal(t, "bad_claims", Reason(ErrBadClaims))
}
