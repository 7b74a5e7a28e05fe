// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/confhub/internal/app/system/auditlog"
	"github.com/dalemusser/confhub/internal/app/system/timeouts"
	"github.com/dalemusser/confhub/internal/app/system/token"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// appConfigKeys defines the configuration keys for ConfHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, staff_token_ttl, etc.
//   - Environment variables: CONFHUB_MONGO_URI, CONFHUB_STAFF_TOKEN_TTL, etc.
//   - Command-line flags: --mongo_uri, --staff_token_ttl, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "confhub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	{Name: "redis_url", Default: "", Desc: "Redis URL for the shared token denylist (blank keeps it in memory)"},

	// Token signing
	{Name: "token_issuer", Default: "confhub", Desc: "Issuer claim for signed tokens"},
	{Name: "participant_token_secret", Default: "", Desc: "HMAC secret for participant tokens (at least 32 bytes)"},
	{Name: "participant_token_ttl", Default: "24h", Desc: "Participant token lifetime"},
	{Name: "staff_token_secret", Default: "", Desc: "HMAC secret for staff tokens (at least 32 bytes, distinct)"},
	{Name: "staff_token_ttl", Default: "2h", Desc: "Staff token lifetime (must be shorter than participant)"},

	{Name: "bcrypt_cost", Default: bcrypt.DefaultCost, Desc: "bcrypt work factor for password digests"},
	{Name: "login_rate_limit", Default: 10, Desc: "Login attempts allowed per IP per minute"},
	{Name: "db_timeout_short", Default: "5s", Desc: "Deadline for single-document database calls"},
	{Name: "db_timeout_medium", Default: "10s", Desc: "Deadline for list and conditional-update calls"},
	{Name: "db_timeout_long", Default: "30s", Desc: "Deadline for aggregations and schema setup"},
	{Name: "mail_timeout", Default: "15s", Desc: "Deadline for one outbound email"},
	{Name: "login_history_retention", Default: "2160h", Desc: "How long login records are kept (0 disables pruning)"},

	// Email/SMTP configuration
	{Name: "mail_smtp_host", Default: "localhost", Desc: "SMTP server host"},
	{Name: "mail_smtp_port", Default: 1025, Desc: "SMTP server port"},
	{Name: "mail_smtp_user", Default: "", Desc: "SMTP username"},
	{Name: "mail_smtp_pass", Default: "", Desc: "SMTP password"},
	{Name: "mail_from", Default: "noreply@confhub.org", Desc: "From email address"},
	{Name: "mail_from_name", Default: "ConfHub", Desc: "From display name"},
	{Name: "mail_use_ssl", Default: false, Desc: "Use implicit TLS (port 465) instead of STARTTLS"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// SuperAdmin bootstrap
	{Name: "superadmin_email", Default: "", Desc: "Email of the super-admin created on startup if missing"},
	{Name: "superadmin_password", Default: "", Desc: "Initial password for the bootstrapped super-admin"},

	{Name: "dev_errors", Default: false, Desc: "Include internal error detail in API responses (development only)"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig merges .env files, config files,
// CONFHUB_* environment variables and flags with precedence
// flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "CONFHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		RedisURL: appValues.String("redis_url"),

		// Tokens
		TokenIssuer:            appValues.String("token_issuer"),
		ParticipantTokenSecret: appValues.String("participant_token_secret"),
		ParticipantTokenTTL:    appValues.Duration("participant_token_ttl", 24*time.Hour),
		StaffTokenSecret:       appValues.String("staff_token_secret"),
		StaffTokenTTL:          appValues.Duration("staff_token_ttl", 2*time.Hour),

		BcryptCost:     appValues.Int("bcrypt_cost"),
		LoginRateLimit: appValues.Int("login_rate_limit"),

		DBTimeoutShort:  appValues.Duration("db_timeout_short", timeouts.DefaultShort),
		DBTimeoutMedium: appValues.Duration("db_timeout_medium", timeouts.DefaultMedium),
		DBTimeoutLong:   appValues.Duration("db_timeout_long", timeouts.DefaultLong),
		MailTimeout:     appValues.Duration("mail_timeout", timeouts.DefaultMail),

		LoginHistoryRetention: appValues.Duration("login_history_retention", 90*24*time.Hour),

		// Email/SMTP
		MailSMTPHost: appValues.String("mail_smtp_host"),
		MailSMTPPort: appValues.Int("mail_smtp_port"),
		MailSMTPUser: appValues.String("mail_smtp_user"),
		MailSMTPPass: appValues.String("mail_smtp_pass"),
		MailFrom:     appValues.String("mail_from"),
		MailFromName: appValues.String("mail_from_name"),
		MailUseSSL:   appValues.Bool("mail_use_ssl"),

		// Audit logging
		AuditLogAuth:  appValues.String("audit_log_auth"),
		AuditLogAdmin: appValues.String("audit_log_admin"),

		// SuperAdmin
		SuperAdminEmail:    appValues.String("superadmin_email"),
		SuperAdminPassword: appValues.String("superadmin_password"),

		DevErrors: appValues.Bool("dev_errors"),
	}

	return coreCfg, appCfg, nil
}

// tokenConfig maps AppConfig onto the token service configuration.
func (c AppConfig) tokenConfig() token.Config {
	return token.Config{
		Issuer:      c.TokenIssuer,
		Participant: token.DomainConfig{Secret: []byte(c.ParticipantTokenSecret), TTL: c.ParticipantTokenTTL},
		Staff:       token.DomainConfig{Secret: []byte(c.StaffTokenSecret), TTL: c.StaffTokenTTL},
	}
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// ConfHub checks the MongoDB URI, token secrets and lifetimes, and the
// enumerated settings before anything connects.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	if err := appCfg.tokenConfig().Validate(); err != nil {
		return fmt.Errorf("token config: %w", err)
	}

	if appCfg.BcryptCost < bcrypt.MinCost || appCfg.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("bcrypt_cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}

	if appCfg.RedisURL != "" {
		if _, err := redis.ParseURL(appCfg.RedisURL); err != nil {
			return fmt.Errorf("invalid redis_url: %w", err)
		}
	}

	if !auditlog.ValidDest(appCfg.AuditLogAuth) || !auditlog.ValidDest(appCfg.AuditLogAdmin) {
		return fmt.Errorf("audit_log_auth and audit_log_admin must be one of all, db, log, off")
	}

	for name, d := range map[string]time.Duration{
		"db_timeout_short":  appCfg.DBTimeoutShort,
		"db_timeout_medium": appCfg.DBTimeoutMedium,
		"db_timeout_long":   appCfg.DBTimeoutLong,
		"mail_timeout":      appCfg.MailTimeout,
	} {
		if d < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}

	if appCfg.LoginHistoryRetention < 0 {
		return fmt.Errorf("login_history_retention must not be negative")
	}

	if (appCfg.SuperAdminEmail == "") != (appCfg.SuperAdminPassword == "") {
		return fmt.Errorf("superadmin_email and superadmin_password must be set together")
	}

	if appCfg.DevErrors && coreCfg != nil && coreCfg.Env == "prod" {
		logger.Warn("dev_errors is enabled in prod; internal error detail will be exposed")
	}

	return nil
}

func (c AppConfig) timeoutConfig() timeouts.Config {
	return timeouts.Config{
		Short:  c.DBTimeoutShort,
		Medium: c.DBTimeoutMedium,
		Long:   c.DBTimeoutLong,
		Mail:   c.MailTimeout,
	}
}
