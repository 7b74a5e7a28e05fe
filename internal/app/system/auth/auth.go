// Package auth provides the bearer-token middleware that guards every
// protected route. Each middleware verifies the token in exactly one
// signing domain, optionally checks the role, and stores the verified
// claims in the request context under a domain-specific key.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/dalemusser/confhub/internal/app/system/apperr"
	"github.com/dalemusser/confhub/internal/app/system/respond"
	"github.com/dalemusser/confhub/internal/app/system/telemetry"
	"github.com/dalemusser/confhub/internal/app/system/token"
	"github.com/dalemusser/confhub/internal/domain/models"
	"go.uber.org/zap"
)

// Verifier is the subset of *token.Service the middleware needs.
type Verifier interface {
	VerifyParticipant(raw string) (*token.ParticipantClaims, error)
	VerifyStaff(raw string) (*token.StaffClaims, error)
}

// Guard builds authorization middleware.
type Guard struct {
	verifier Verifier
	denylist token.Denylist
	metrics  *telemetry.Metrics
	log      *zap.Logger
}

// NewGuard returns a Guard. denylist and metrics may be nil.
func NewGuard(v Verifier, denylist token.Denylist, metrics *telemetry.Metrics, logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{verifier: v, denylist: denylist, metrics: metrics, log: logger}
}

/*─────────────────────────────────────────────────────────────────────────────*
| context                                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

type participantKey struct{}
type staffKey struct{}

// CurrentParticipant returns the verified participant claims, if any.
func CurrentParticipant(r *http.Request) (*token.ParticipantClaims, bool) {
	c, ok := r.Context().Value(participantKey{}).(*token.ParticipantClaims)
	return c, ok && c != nil
}

// CurrentStaff returns the verified staff claims, if any.
func CurrentStaff(r *http.Request) (*token.StaffClaims, bool) {
	c, ok := r.Context().Value(staffKey{}).(*token.StaffClaims)
	return c, ok && c != nil
}

// WithParticipant stores claims on ctx. Handler tests use it to skip the
// middleware.
func WithParticipant(ctx context.Context, c *token.ParticipantClaims) context.Context {
	return context.WithValue(ctx, participantKey{}, c)
}

// WithStaff stores claims on ctx.
func WithStaff(ctx context.Context, c *token.StaffClaims) context.Context {
	return context.WithValue(ctx, staffKey{}, c)
}

/*─────────────────────────────────────────────────────────────────────────────*
| middleware                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

// RequireParticipant admits any valid participant-domain token.
func (g *Guard) RequireParticipant(next http.Handler) http.Handler {
	return g.RequireParticipantRole()(next)
}

// RequireStaff admits any valid staff-domain token.
func (g *Guard) RequireStaff(next http.Handler) http.Handler {
	return g.RequireStaffRole()(next)
}

// RequireParticipantRole admits participant tokens whose role is in
// allowed. With no roles given, every participant role is admitted.
func (g *Guard) RequireParticipantRole(allowed ...models.ParticipantRole) func(http.Handler) http.Handler {
	return guard(g, token.DomainParticipant, g.verifier.VerifyParticipant, WithParticipant, allowed)
}

// RequireStaffRole admits staff tokens whose role is in allowed. With no
// roles given, every staff role is admitted.
func (g *Guard) RequireStaffRole(allowed ...models.StaffRole) func(http.Handler) http.Handler {
	return guard(g, token.DomainStaff, g.verifier.VerifyStaff, WithStaff, allowed)
}

func guard[R token.Role](
	g *Guard,
	domain token.Domain,
	verify func(string) (*token.Claims[R], error),
	store func(context.Context, *token.Claims[R]) context.Context,
	allowed []R,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := BearerToken(r)
			if !ok {
				g.reject(w, r, domain, "missing", apperr.ErrInvalidToken)
				return
			}

			claims, err := verify(raw)
			if err != nil {
				g.reject(w, r, domain, token.Reason(err), apperr.ErrInvalidToken)
				return
			}

			if g.denylist != nil {
				revoked, err := g.denylist.IsRevoked(r.Context(), claims.ID)
				if err != nil {
					respond.Error(w, r, g.log, fmt.Errorf("denylist lookup: %w", err))
					return
				}
				if revoked {
					g.reject(w, r, domain, "revoked", apperr.ErrInvalidToken)
					return
				}
			}

			if len(allowed) > 0 && !token.Authorize(claims.Role, allowed...) {
				g.log.Debug("role not permitted",
					zap.String("domain", string(domain)),
					zap.String("role", string(claims.Role)),
					zap.String("path", r.URL.Path))
				g.reject(w, r, domain, "forbidden", apperr.ErrAuthorization)
				return
			}

			next.ServeHTTP(w, r.WithContext(store(r.Context(), claims)))
		})
	}
}

func (g *Guard) reject(w http.ResponseWriter, r *http.Request, domain token.Domain, reason string, err error) {
	g.metrics.AuthRejected(string(domain), reason)
	respond.Error(w, r, g.log, err)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header. The scheme is matched case-insensitively.
func BearerToken(r *http.Request) (string, bool) {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	const scheme = "bearer "
	if len(h) <= len(scheme) || !strings.EqualFold(h[:len(scheme)], scheme) {
		return "", false
	}
	raw := strings.TrimSpace(h[len(scheme):])
	return raw, raw != ""
}
