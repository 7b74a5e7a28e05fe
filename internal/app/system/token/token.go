// Package token issues and verifies signed, time-bounded bearer tokens for
// the two signing domains: participant and staff.
//
// Each domain has its own secret, lifetime and audience. Claims are
// generic over the role type, so a participant token decodes into
// Claims[models.ParticipantRole] and a staff token into
// Claims[models.StaffRole]; there is no code path that turns one into the
// other. A token minted for one domain fails verification in the other
// even if both domains were configured with the same secret, because the
// audience differs.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/confhub/internal/domain/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Domain names a signing domain. It is also the token audience.
type Domain string

const (
	DomainParticipant Domain = "participant"
	DomainStaff       Domain = "staff"
)

// MinSecretLength is the minimum accepted HMAC secret size in bytes.
const MinSecretLength = 32

var (
	// ErrInvalidToken covers every verification failure. Callers should not
	// branch on the finer-grained errors below except for metrics.
	ErrInvalidToken = errors.New("invalid or expired token")

	ErrExpired   = fmt.Errorf("%w: expired", ErrInvalidToken)
	ErrMalformed = fmt.Errorf("%w: malformed", ErrInvalidToken)
	ErrSignature = fmt.Errorf("%w: signature or domain mismatch", ErrInvalidToken)
	ErrBadClaims = fmt.Errorf("%w: bad claims", ErrInvalidToken)
)

// Role is the set of role types a token can carry.
type Role interface {
	models.ParticipantRole | models.StaffRole
	Valid() bool
}

// Subject is the identity a token is issued for.
type Subject[R Role] struct {
	ID    string
	Email string
	Role  R
}

// Claims is the decoded payload of a verified token.
type Claims[R Role] struct {
	Email string `json:"email"`
	Role  R      `json:"role"`
	jwt.RegisteredClaims
}

// IdentityID returns the subject (identity id).
func (c *Claims[R]) IdentityID() string { return c.Subject }

type (
	ParticipantClaims = Claims[models.ParticipantRole]
	StaffClaims       = Claims[models.StaffRole]
)

// DomainConfig holds the secret material and lifetime for one domain.
type DomainConfig struct {
	Secret []byte
	TTL    time.Duration
}

// Config configures a Service.
type Config struct {
	Issuer      string
	Participant DomainConfig
	Staff       DomainConfig

	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// Validate checks secret sizes and lifetimes. Staff tokens must be
// strictly shorter-lived than participant tokens, and the two domains must
// not share a secret.
func (c Config) Validate() error {
	if c.Issuer == "" {
		return errors.New("token issuer is required")
	}
	if len(c.Participant.Secret) < MinSecretLength {
		return fmt.Errorf("participant token secret must be at least %d bytes", MinSecretLength)
	}
	if len(c.Staff.Secret) < MinSecretLength {
		return fmt.Errorf("staff token secret must be at least %d bytes", MinSecretLength)
	}
	if string(c.Participant.Secret) == string(c.Staff.Secret) {
		return errors.New("participant and staff token secrets must differ")
	}
	if c.Participant.TTL <= 0 || c.Staff.TTL <= 0 {
		return errors.New("token lifetimes must be positive")
	}
	if c.Staff.TTL >= c.Participant.TTL {
		return errors.New("staff token lifetime must be shorter than participant token lifetime")
	}
	return nil
}

// Service issues and verifies tokens for both domains.
type Service struct {
	participant signer[models.ParticipantRole]
	staff       signer[models.StaffRole]
}

// NewService validates cfg and builds a Service.
func NewService(cfg Config) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		participant: newSigner[models.ParticipantRole](DomainParticipant, cfg.Issuer, cfg.Participant, now),
		staff:       newSigner[models.StaffRole](DomainStaff, cfg.Issuer, cfg.Staff, now),
	}, nil
}

// IssueParticipant mints a participant-domain token.
func (s *Service) IssueParticipant(sub Subject[models.ParticipantRole]) (string, time.Time, error) {
	return s.participant.issue(sub)
}

// VerifyParticipant verifies raw as a participant-domain token.
func (s *Service) VerifyParticipant(raw string) (*ParticipantClaims, error) {
	return s.participant.verify(raw)
}

// IssueStaff mints a staff-domain token.
func (s *Service) IssueStaff(sub Subject[models.StaffRole]) (string, time.Time, error) {
	return s.staff.issue(sub)
}

// VerifyStaff verifies raw as a staff-domain token.
func (s *Service) VerifyStaff(raw string) (*StaffClaims, error) {
	return s.staff.verify(raw)
}

// Authorize reports whether role is a member of allowed. It is a pure
// function; an empty allowed set authorizes nobody.
func Authorize[R Role](role R, allowed ...R) bool {
	for _, a := range allowed {
		if role == a {
			return true
		}
	}
	return false
}

/*─────────────────────────────────────────────────────────────────────────────*
| per-domain signer                                                           |
*─────────────────────────────────────────────────────────────────────────────*/

type signer[R Role] struct {
	domain Domain
	issuer string
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

func newSigner[R Role](domain Domain, issuer string, cfg DomainConfig, now func() time.Time) signer[R] {
	return signer[R]{
		domain: domain,
		issuer: issuer,
		secret: cfg.Secret,
		ttl:    cfg.TTL,
		now:    now,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithAudience(string(domain)),
			jwt.WithIssuer(issuer),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
			jwt.WithTimeFunc(now),
		),
	}
}

func (s signer[R]) issue(sub Subject[R]) (string, time.Time, error) {
	if sub.ID == "" {
		return "", time.Time{}, errors.New("token subject id is required")
	}
	if !sub.Role.Valid() {
		return "", time.Time{}, fmt.Errorf("role %q is not valid in the %s domain", string(sub.Role), s.domain)
	}

	iat := s.now().Truncate(time.Second)
	exp := iat.Add(s.ttl)

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims[R]{
		Email: sub.Email,
		Role:  sub.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub.ID,
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{string(s.domain)},
			IssuedAt:  jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	})

	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

func (s signer[R]) verify(raw string) (*Claims[R], error) {
	if raw == "" {
		return nil, ErrMalformed
	}

	claims := &Claims[R]{}
	parsed, err := s.parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrMalformed
		default:
			return nil, ErrSignature
		}
	}
	if !parsed.Valid {
		return nil, ErrSignature
	}
	if claims.Subject == "" || claims.ID == "" || !claims.Role.Valid() {
		return nil, ErrBadClaims
	}
	return claims, nil
}

// RemainingTTL returns how long until the claims expire, or zero.
func RemainingTTL[R Role](c *Claims[R], now time.Time) time.Duration {
	if c == nil || c.ExpiresAt == nil {
		return 0
	}
	if d := c.ExpiresAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

// Reason returns a short label for a verification error, for metrics.
func Reason(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrMalformed):
		return "malformed"
	case errors.Is(err, ErrBadClaims):
		return "bad_claims"
	case errors.Is(err, ErrSignature):
		return "signature"
	default:
		return "other"
	}
}
