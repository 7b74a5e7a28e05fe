// internal/app/bootstrap/services.go
package bootstrap

import (
	"time"

	"github.com/dalemusser/confhub/internal/app/registration"
	"github.com/dalemusser/confhub/internal/app/store/audit"
	loginstore "github.com/dalemusser/confhub/internal/app/store/logins"
	participantstore "github.com/dalemusser/confhub/internal/app/store/participants"
	"github.com/dalemusser/confhub/internal/app/system/auditlog"
	"github.com/dalemusser/confhub/internal/app/system/auth"
	"github.com/dalemusser/confhub/internal/app/system/mailer"
	"github.com/dalemusser/confhub/internal/app/system/password"
	"github.com/dalemusser/confhub/internal/app/system/ratelimit"
	"github.com/dalemusser/confhub/internal/app/system/telemetry"
	"github.com/dalemusser/confhub/internal/app/system/token"
	"github.com/dalemusser/confhub/internal/app/system/workers"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// services is the process-wide graph shared by every handler.
type services struct {
	Tokens       *token.Service
	Hasher       *password.Hasher
	Limiter      *ratelimit.LoginLimiter
	Denylist     token.Denylist
	Metrics      *telemetry.Metrics
	AuditLog     *auditlog.Logger
	Registration *registration.Service
	Guard        *auth.Guard
	LoginPruner  *workers.LoginPruner // nil when retention is zero
}

const loginPruneInterval = time.Hour

// buildServices wires the shared services. reg receives the Prometheus
// collectors; production passes the default registerer.
func buildServices(appCfg AppConfig, deps DBDeps, reg prometheus.Registerer, logger *zap.Logger) (*services, error) {
	tokens, err := token.NewService(appCfg.tokenConfig())
	if err != nil {
		return nil, err
	}

	var denylist token.Denylist
	if deps.Redis != nil {
		denylist = token.NewRedisDenylist(deps.Redis)
	} else {
		denylist = token.NewMemoryDenylist(nil)
	}

	var notify registration.Notifier
	if appCfg.MailSMTPHost != "" {
		m := mailer.New(mailer.Config{
			Host:     appCfg.MailSMTPHost,
			Port:     appCfg.MailSMTPPort,
			User:     appCfg.MailSMTPUser,
			Pass:     appCfg.MailSMTPPass,
			From:     appCfg.MailFrom,
			FromName: appCfg.MailFromName,
			UseSSL:   appCfg.MailUseSSL,
		})
		notify = mailer.NewNotifier(m, appCfg.MailFromName)
	} else {
		logger.Warn("mail_smtp_host is empty; participant emails are disabled")
	}

	db := deps.ConfHubMongoDatabase
	metrics := telemetry.NewWith(reg)
	audits := auditlog.New(audit.New(db), logger, auditlog.Config{
		Auth:  appCfg.AuditLogAuth,
		Admin: appCfg.AuditLogAdmin,
	})

	var pruner *workers.LoginPruner
	if appCfg.LoginHistoryRetention > 0 {
		pruner = workers.NewLoginPruner(loginstore.New(db), logger, loginPruneInterval, appCfg.LoginHistoryRetention)
	}

	return &services{
		Tokens:       tokens,
		Hasher:       password.New(appCfg.BcryptCost),
		Limiter:      ratelimit.NewLoginLimiter(appCfg.LoginRateLimit),
		Denylist:     denylist,
		Metrics:      metrics,
		AuditLog:     audits,
		Registration: registration.New(participantstore.New(db), notify, metrics, logger),
		Guard:        auth.NewGuard(tokens, denylist, metrics, logger),
		LoginPruner:  pruner,
	}, nil
}
