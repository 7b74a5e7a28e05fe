// internal/app/features/staffauth/handler.go
package staffauth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dalemusser/confhub/internal/app/system/apperr"
	"github.com/dalemusser/confhub/internal/app/system/auditlog"
	"github.com/dalemusser/confhub/internal/app/system/auth"
	"github.com/dalemusser/confhub/internal/app/system/normalize"
	"github.com/dalemusser/confhub/internal/app/system/password"
	"github.com/dalemusser/confhub/internal/app/system/ratelimit"
	"github.com/dalemusser/confhub/internal/app/system/respond"
	"github.com/dalemusser/confhub/internal/app/system/telemetry"
	"github.com/dalemusser/confhub/internal/app/system/timeouts"
	"github.com/dalemusser/confhub/internal/app/system/token"
	"github.com/dalemusser/confhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const domain = string(token.DomainStaff)

// StaffStore is the subset of staffstore.Store used for sign-in.
type StaffStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.StaffUser, error)
	GetByEmail(ctx context.Context, email string) (*models.StaffUser, error)
	TouchLastLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error
}

// LoginRecorder stores successful logins and reads them back.
// loginstore.Store implements it.
type LoginRecorder interface {
	CreateFrom(ctx context.Context, r *http.Request, userID, domain string) error
	Recent(ctx context.Context, userID string, limit int64) ([]models.LoginRecord, error)
}

const recentLoginLimit = 5

type meResponse struct {
	User         *models.StaffUser    `json:"user"`
	RecentLogins []models.LoginRecord `json:"recent_logins"`
}

type Handler struct {
	Staff    StaffStore
	Tokens   *token.Service
	Hasher   *password.Hasher
	Limiter  *ratelimit.LoginLimiter
	Denylist token.Denylist
	Logins   LoginRecorder
	AuditLog *auditlog.Logger
	Metrics  *telemetry.Metrics
	Log      *zap.Logger
}

// NewHandler wires the staff auth endpoints. denylist and logins may be nil.
func NewHandler(
	staff StaffStore,
	tokens *token.Service,
	hasher *password.Hasher,
	limiter *ratelimit.LoginLimiter,
	denylist token.Denylist,
	logins LoginRecorder,
	audit *auditlog.Logger,
	metrics *telemetry.Metrics,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Staff:    staff,
		Tokens:   tokens,
		Hasher:   hasher,
		Limiter:  limiter,
		Denylist: denylist,
		Logins:   logins,
		AuditLog: audit,
		Metrics:  metrics,
		Log:      logger,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token     string            `json:"token"`
	TokenType string            `json:"token_type"`
	ExpiresAt time.Time         `json:"expires_at"`
	Staff     *models.StaffUser `json:"staff"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/admin/auth/login                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleLogin signs a staff user in. Unknown email, wrong password and a
// deactivated account all produce the same "invalid credentials" reply.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	email := normalize.Email(req.Email)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "staff login")
	defer cancel()

	if h.Limiter != nil {
		if ok, scope := h.Limiter.Check(r, domain, email); !ok {
			h.Metrics.Login(domain, "rate_limited")
			h.AuditLog.LoginFailedRateLimit(ctx, r, domain, email, scope)
			respond.TooManyRequests(w, ratelimit.DenialMessage(scope), ratelimit.RetryAfter(scope))
			return
		}
	}

	u, err := h.Staff.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			respond.Error(w, r, h.Log, err)
			return
		}
		h.Hasher.VerifyOrDummy(req.Password, "")
		h.Metrics.Login(domain, "unknown_user")
		h.AuditLog.LoginFailedUserNotFound(ctx, r, domain, email)
		respond.Error(w, r, h.Log, apperr.ErrInvalidCredentials)
		return
	}

	if !h.Hasher.Verify(req.Password, u.PasswordHash) {
		h.Metrics.Login(domain, "wrong_password")
		h.AuditLog.LoginFailedWrongPassword(ctx, r, domain, u.ID, email)
		respond.Error(w, r, h.Log, apperr.ErrInvalidCredentials)
		return
	}
	if !u.Active {
		h.Metrics.Login(domain, "disabled")
		h.AuditLog.LoginFailedUserDisabled(ctx, r, domain, u.ID, email)
		respond.Error(w, r, h.Log, apperr.ErrInvalidCredentials)
		return
	}

	raw, exp, err := h.Tokens.IssueStaff(token.Subject[models.StaffRole]{
		ID:    u.ID.Hex(),
		Email: u.Email,
		Role:  u.Role,
	})
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	if h.Limiter != nil {
		h.Limiter.ResetEmail(domain, email)
	}
	now := time.Now().UTC()
	if err := h.Staff.TouchLastLogin(ctx, u.ID, now); err != nil {
		h.Log.Warn("touch last login failed", zap.Error(err), zap.String("staff_id", u.ID.Hex()))
	} else {
		u.LastLoginAt = &now
	}
	if h.Logins != nil {
		if err := h.Logins.CreateFrom(ctx, r, u.ID.Hex(), domain); err != nil {
			h.Log.Warn("record login failed", zap.Error(err), zap.String("staff_id", u.ID.Hex()))
		}
	}
	h.Metrics.Login(domain, "success")
	h.AuditLog.LoginSuccess(ctx, r, domain, u.ID, u.Email)

	respond.OK(w, "login successful", tokenResponse{
		Token: raw, TokenType: "Bearer", ExpiresAt: exp, Staff: u,
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/admin/auth/logout                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.CurrentStaff(r)
	if !ok {
		respond.Error(w, r, h.Log, apperr.ErrInvalidToken)
		return
	}

	revoked := false
	if h.Denylist != nil {
		ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "revoke token")
		defer cancel()
		if err := h.Denylist.Revoke(ctx, claims.ID, token.RemainingTTL(claims, time.Now())); err != nil {
			respond.Error(w, r, h.Log, err)
			return
		}
		revoked = true
	}

	h.AuditLog.Logout(r.Context(), r, domain, claims.IdentityID(), revoked)
	respond.OK(w, "logged out", map[string]bool{"revoked": revoked})
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/admin/auth/me                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.CurrentStaff(r)
	if !ok {
		respond.Error(w, r, h.Log, apperr.ErrInvalidToken)
		return
	}
	id, err := primitive.ObjectIDFromHex(claims.IdentityID())
	if err != nil {
		respond.Error(w, r, h.Log, apperr.ErrInvalidToken)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "load staff user")
	defer cancel()
	u, err := h.Staff.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			err = apperr.ErrInvalidToken
		}
		respond.Error(w, r, h.Log, err)
		return
	}

	out := meResponse{User: u, RecentLogins: []models.LoginRecord{}}
	if h.Logins != nil {
		recs, err := h.Logins.Recent(ctx, u.ID.Hex(), recentLoginLimit)
		if err != nil {
			h.Log.Warn("load recent logins failed", zap.Error(err), zap.String("staff_id", u.ID.Hex()))
		} else if recs != nil {
			out.RecentLogins = recs
		}
	}
	respond.OK(w, "current staff user", out)
}
