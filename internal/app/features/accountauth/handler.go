// internal/app/features/accountauth/handler.go
package accountauth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dalemusser/confhub/internal/app/system/apperr"
	"github.com/dalemusser/confhub/internal/app/system/auditlog"
	"github.com/dalemusser/confhub/internal/app/system/auth"
	"github.com/dalemusser/confhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/confhub/internal/app/system/inputval"
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

const domain = string(token.DomainParticipant)

// AccountStore is the subset of accountstore.Store used here.
type AccountStore interface {
	Create(ctx context.Context, a models.Account) (models.Account, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string) error
}

// LoginRecorder stores successful logins. loginstore.Store implements it.
type LoginRecorder interface {
	CreateFrom(ctx context.Context, r *http.Request, userID, domain string) error
}

type Handler struct {
	Accounts AccountStore
	Tokens   *token.Service
	Hasher   *password.Hasher
	Limiter  *ratelimit.LoginLimiter
	Denylist token.Denylist
	Logins   LoginRecorder
	AuditLog *auditlog.Logger
	Metrics  *telemetry.Metrics
	Log      *zap.Logger
}

// NewHandler wires the participant auth endpoints. denylist and logins may
// be nil.
func NewHandler(
	accounts AccountStore,
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
		Accounts: accounts,
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

type signupRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type passwordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type tokenResponse struct {
	Token     string          `json:"token"`
	TokenType string          `json:"token_type"`
	ExpiresAt time.Time       `json:"expires_at"`
	Account   *models.Account `json:"account"`
}

type meResponse struct {
	ID        string                 `json:"id"`
	Email     string                 `json:"email"`
	Role      models.ParticipantRole `json:"role"`
	ExpiresAt time.Time              `json:"expires_at"`
	Account   *models.Account        `json:"account"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/auth/signup                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	// Signups draw on the per-IP login budget.
	if h.Limiter != nil {
		if ok, scope := h.Limiter.Check(r, "signup", ""); !ok {
			h.Log.Info("signup rate limited", zap.String("ip", ratelimit.ClientIP(r)))
			respond.TooManyRequests(w, ratelimit.DenialMessage(scope), ratelimit.RetryAfter(scope))
			return
		}
	}

	req.Email = normalize.Email(req.Email)
	req.FirstName = normalize.Name(htmlsanitize.PlainText(req.FirstName))
	req.LastName = normalize.Name(htmlsanitize.PlainText(req.LastName))
	if !inputval.IsValidEmail(req.Email) {
		respond.Error(w, r, h.Log, apperr.Validation("email", "is not a valid email address"))
		return
	}
	if err := password.CheckStrength(req.Password); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if req.FirstName == "" || req.LastName == "" {
		respond.Error(w, r, h.Log, apperr.Validation("name", "first_name and last_name are required"))
		return
	}

	hash, err := h.Hasher.Hash(req.Password)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "create account")
	defer cancel()

	acct, err := h.Accounts.Create(ctx, models.Account{
		Email:        req.Email,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         models.RoleParticipant,
	})
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	h.AuditLog.Signup(ctx, r, acct.ID, acct.Email)

	raw, exp, err := h.Tokens.IssueParticipant(subject(&acct))
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	h.Log.Info("account created", zap.String("account_id", acct.ID.Hex()))
	respond.Created(w, "account created", tokenResponse{
		Token: raw, TokenType: "Bearer", ExpiresAt: exp, Account: &acct,
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/auth/login                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	email := normalize.Email(req.Email)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "participant login")
	defer cancel()

	if h.Limiter != nil {
		if ok, scope := h.Limiter.Check(r, domain, email); !ok {
			h.Metrics.Login(domain, "rate_limited")
			h.AuditLog.LoginFailedRateLimit(ctx, r, domain, email, scope)
			respond.TooManyRequests(w, ratelimit.DenialMessage(scope), ratelimit.RetryAfter(scope))
			return
		}
	}

	acct, err := h.Accounts.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			respond.Error(w, r, h.Log, err)
			return
		}
		// same cost as a real comparison
		h.Hasher.VerifyOrDummy(req.Password, "")
		h.Metrics.Login(domain, "unknown_user")
		h.AuditLog.LoginFailedUserNotFound(ctx, r, domain, email)
		respond.Error(w, r, h.Log, apperr.ErrInvalidCredentials)
		return
	}

	if !h.Hasher.Verify(req.Password, acct.PasswordHash) {
		h.Metrics.Login(domain, "wrong_password")
		h.AuditLog.LoginFailedWrongPassword(ctx, r, domain, acct.ID, email)
		respond.Error(w, r, h.Log, apperr.ErrInvalidCredentials)
		return
	}

	raw, exp, err := h.Tokens.IssueParticipant(subject(acct))
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	if h.Limiter != nil {
		h.Limiter.ResetEmail(domain, email)
	}
	if h.Logins != nil {
		if err := h.Logins.CreateFrom(ctx, r, acct.ID.Hex(), domain); err != nil {
			h.Log.Warn("record login failed", zap.Error(err), zap.String("account_id", acct.ID.Hex()))
		}
	}
	h.Metrics.Login(domain, "success")
	h.AuditLog.LoginSuccess(ctx, r, domain, acct.ID, acct.Email)

	respond.OK(w, "login successful", tokenResponse{
		Token: raw, TokenType: "Bearer", ExpiresAt: exp, Account: acct,
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/auth/logout                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleLogout revokes the presented token when a denylist is configured.
// Without one, logout is advisory and the token stays valid until expiry.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.CurrentParticipant(r)
	if !ok {
		respond.Error(w, r, h.Log, apperr.ErrInvalidToken)
		return
	}

	revoked := false
	if h.Denylist != nil {
		ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "revoke token")
		defer cancel()
		ttl := token.RemainingTTL(claims, time.Now())
		if err := h.Denylist.Revoke(ctx, claims.ID, ttl); err != nil {
			respond.Error(w, r, h.Log, err)
			return
		}
		revoked = true
	}

	h.AuditLog.Logout(r.Context(), r, domain, claims.IdentityID(), revoked)
	respond.OK(w, "logged out", map[string]bool{"revoked": revoked})
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/auth/me                                                            |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.CurrentParticipant(r)
	if !ok {
		respond.Error(w, r, h.Log, apperr.ErrInvalidToken)
		return
	}
	acct, err := h.load(r, claims)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	resp := meResponse{
		ID:      claims.IdentityID(),
		Email:   claims.Email,
		Role:    claims.Role,
		Account: acct,
	}
	if claims.ExpiresAt != nil {
		resp.ExpiresAt = claims.ExpiresAt.Time
	}
	respond.OK(w, "current account", resp)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/auth/password                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.CurrentParticipant(r)
	if !ok {
		respond.Error(w, r, h.Log, apperr.ErrInvalidToken)
		return
	}
	var req passwordRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if err := password.CheckStrength(req.NewPassword); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	acct, err := h.load(r, claims)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if !h.Hasher.Verify(req.CurrentPassword, acct.PasswordHash) {
		respond.Error(w, r, h.Log, apperr.ErrInvalidCredentials)
		return
	}

	hash, err := h.Hasher.Hash(req.NewPassword)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "update password")
	defer cancel()
	if err := h.Accounts.UpdatePassword(ctx, acct.ID, hash); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	h.AuditLog.PasswordChanged(ctx, r, domain, acct.ID)
	respond.OK(w, "password changed", nil)
}

// load fetches the account named by the token subject. A token for an
// account that no longer exists is treated as invalid.
func (h *Handler) load(r *http.Request, claims *token.ParticipantClaims) (*models.Account, error) {
	id, err := primitive.ObjectIDFromHex(claims.IdentityID())
	if err != nil {
		return nil, apperr.ErrInvalidToken
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "load account")
	defer cancel()
	acct, err := h.Accounts.GetByID(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.ErrInvalidToken
	}
	return acct, err
}

func subject(a *models.Account) token.Subject[models.ParticipantRole] {
	return token.Subject[models.ParticipantRole]{
		ID:    a.ID.Hex(),
		Email: a.Email,
		Role:  a.Role,
	}
}
