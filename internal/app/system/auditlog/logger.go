// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dalemusser/confhub/internal/app/store/audit"
	"github.com/dalemusser/confhub/internal/app/system/ratelimit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Destination settings for a category.
const (
	DestAll = "all" // MongoDB + zap
	DestDB  = "db"  // MongoDB only
	DestLog = "log" // zap only
	DestOff = "off"
)

// Config holds audit logging configuration.
type Config struct {
	// Auth controls logging for authentication events (signup, login, logout, password).
	Auth string
	// Admin controls logging for back-office actions (payments, participant edits, staff provisioning).
	Admin string
}

// ValidDest reports whether s is an accepted destination setting.
func ValidDest(s string) bool {
	switch s {
	case DestAll, DestDB, DestLog, DestOff:
		return true
	}
	return false
}

// Logger provides convenience methods for logging audit events.
// It logs to both MongoDB (via audit.Store) and structured logs (via zap).
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

// requestMeta tolerates a nil request (startup events have none).
func requestMeta(r *http.Request) (ip, ua string) {
	if r == nil {
		return "", ""
	}
	return ratelimit.ClientIP(r), r.UserAgent()
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}

	if event.Domain != "" {
		fields = append(fields, zap.String("domain", event.Domain))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.TargetID != nil {
		fields = append(fields, zap.String("target_id", event.TargetID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// If the logger is nil, this is a no-op (allows tests to use nil audit logger).
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryAdmin:
		setting = l.config.Admin
	default:
		setting = DestAll
	}

	if setting == DestOff {
		return
	}

	if setting == DestAll || setting == DestLog {
		l.logToZap(event)
	}

	if (setting == DestAll || setting == DestDB) && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

func (l *Logger) auth(ctx context.Context, r *http.Request, eventType, domain string, actor *primitive.ObjectID, success bool, reason string, details map[string]string) {
	ip, ua := requestMeta(r)
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     eventType,
		Domain:        domain,
		ActorID:       actor,
		TargetID:      actor,
		IP:            ip,
		UserAgent:     ua,
		Success:       success,
		FailureReason: reason,
		Details:       details,
	})
}

func (l *Logger) admin(ctx context.Context, r *http.Request, eventType string, actorID, targetID primitive.ObjectID, details map[string]string) {
	ip, ua := requestMeta(r)
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: eventType,
		Domain:    "staff",
		ActorID:   &actorID,
		TargetID:  &targetID,
		IP:        ip,
		UserAgent: ua,
		Success:   true,
		Details:   details,
	})
}

// --- Authentication Events ---

// Signup logs creation of a participant-domain account.
func (l *Logger) Signup(ctx context.Context, r *http.Request, accountID primitive.ObjectID, email string) {
	l.auth(ctx, r, audit.EventSignup, "participant", &accountID, true, "", map[string]string{
		"email": email,
	})
}

// LoginSuccess logs a successful login in either domain.
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, domain string, userID primitive.ObjectID, email string) {
	l.auth(ctx, r, audit.EventLoginSuccess, domain, &userID, true, "", map[string]string{
		"email": email,
	})
}

// LoginFailedUserNotFound logs a login attempt for an unknown email.
func (l *Logger) LoginFailedUserNotFound(ctx context.Context, r *http.Request, domain, attemptedEmail string) {
	l.auth(ctx, r, audit.EventLoginFailedUserNotFound, domain, nil, false, "user not found", map[string]string{
		"attempted_email": attemptedEmail,
	})
}

// LoginFailedWrongPassword logs a failed login due to wrong password.
func (l *Logger) LoginFailedWrongPassword(ctx context.Context, r *http.Request, domain string, userID primitive.ObjectID, email string) {
	l.auth(ctx, r, audit.EventLoginFailedWrongPassword, domain, &userID, false, "wrong password", map[string]string{
		"email": email,
	})
}

// LoginFailedUserDisabled logs a login by a deactivated staff user.
func (l *Logger) LoginFailedUserDisabled(ctx context.Context, r *http.Request, domain string, userID primitive.ObjectID, email string) {
	l.auth(ctx, r, audit.EventLoginFailedUserDisabled, domain, &userID, false, "user disabled", map[string]string{
		"email": email,
	})
}

// LoginFailedRateLimit logs a login rejected by the rate limiter.
// limitType is "ip" or "email".
func (l *Logger) LoginFailedRateLimit(ctx context.Context, r *http.Request, domain, email, limitType string) {
	l.auth(ctx, r, audit.EventLoginFailedRateLimit, domain, nil, false, "rate limit exceeded", map[string]string{
		"attempted_email": email,
		"limit_type":      limitType,
	})
}

// Logout logs a logout. userIDStr comes from token claims; an invalid
// hex id is recorded without an actor.
func (l *Logger) Logout(ctx context.Context, r *http.Request, domain, userIDStr string, revoked bool) {
	var userID *primitive.ObjectID
	if oid, err := primitive.ObjectIDFromHex(userIDStr); err == nil {
		userID = &oid
	}
	l.auth(ctx, r, audit.EventLogout, domain, userID, true, "", map[string]string{
		"revoked": strconv.FormatBool(revoked),
	})
}

// PasswordChanged logs a password change.
func (l *Logger) PasswordChanged(ctx context.Context, r *http.Request, domain string, userID primitive.ObjectID) {
	l.auth(ctx, r, audit.EventPasswordChanged, domain, &userID, true, "", nil)
}

// --- Registration Events ---

// RegistrationCreated logs a participant registering for the conference.
func (l *Logger) RegistrationCreated(ctx context.Context, r *http.Request, accountID, participantID primitive.ObjectID, regType string) {
	ip, ua := requestMeta(r)
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventRegistrationCreated,
		Domain:    "participant",
		ActorID:   &accountID,
		TargetID:  &participantID,
		IP:        ip,
		UserAgent: ua,
		Success:   true,
		Details: map[string]string{
			"registration_type": regType,
		},
	})
}

// PaymentUpdated logs a payment-status change made through the
// transition table.
func (l *Logger) PaymentUpdated(ctx context.Context, r *http.Request, actorID, participantID primitive.ObjectID, actorRole, from, to string) {
	l.admin(ctx, r, audit.EventPaymentUpdated, actorID, participantID, map[string]string{
		"actor_role": actorRole,
		"from":       from,
		"to":         to,
	})
}

// PaymentOverridden logs a super-admin forcing a transition the table rejects.
func (l *Logger) PaymentOverridden(ctx context.Context, r *http.Request, actorID, participantID primitive.ObjectID, actorRole, from, to string) {
	l.admin(ctx, r, audit.EventPaymentOverridden, actorID, participantID, map[string]string{
		"actor_role": actorRole,
		"from":       from,
		"to":         to,
	})
}

// ParticipantUpdated logs an administrative edit of contact or travel fields.
func (l *Logger) ParticipantUpdated(ctx context.Context, r *http.Request, actorID, participantID primitive.ObjectID, actorRole, fieldsChanged string) {
	l.admin(ctx, r, audit.EventParticipantUpdated, actorID, participantID, map[string]string{
		"actor_role":     actorRole,
		"fields_changed": fieldsChanged,
	})
}

// ParticipantDeleted logs removal of a registration.
func (l *Logger) ParticipantDeleted(ctx context.Context, r *http.Request, actorID, participantID primitive.ObjectID, actorRole, paymentStatus string) {
	l.admin(ctx, r, audit.EventParticipantDeleted, actorID, participantID, map[string]string{
		"actor_role":     actorRole,
		"payment_status": paymentStatus,
	})
}

// --- Staff Events ---

// StaffCreated logs provisioning of a staff user.
func (l *Logger) StaffCreated(ctx context.Context, r *http.Request, actorID, staffID primitive.ObjectID, role string) {
	l.admin(ctx, r, audit.EventStaffCreated, actorID, staffID, map[string]string{
		"role": role,
	})
}

// StaffRoleChanged logs a staff role change.
func (l *Logger) StaffRoleChanged(ctx context.Context, r *http.Request, actorID, staffID primitive.ObjectID, role string) {
	l.admin(ctx, r, audit.EventStaffRoleChanged, actorID, staffID, map[string]string{
		"role": role,
	})
}

// StaffDeactivated logs deactivation of a staff user.
func (l *Logger) StaffDeactivated(ctx context.Context, r *http.Request, actorID, staffID primitive.ObjectID) {
	l.admin(ctx, r, audit.EventStaffDeactivated, actorID, staffID, nil)
}

// SuperAdminBootstrapped logs the startup seeding of the first super-admin.
func (l *Logger) SuperAdminBootstrapped(ctx context.Context, email string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventSuperAdminBootstrapped,
		Domain:    "staff",
		Success:   true,
		Details: map[string]string{
			"email": email,
		},
	})
}
