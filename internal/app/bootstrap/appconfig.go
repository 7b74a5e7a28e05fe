// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration. WAFFLE's CoreConfig
// covers ports, TLS, logging, CORS and body limits.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Optional Redis for the shared token denylist. Blank keeps the
	// denylist in process memory.
	RedisURL string

	// Token signing. Each domain has its own secret and lifetime.
	TokenIssuer            string
	ParticipantTokenSecret string
	ParticipantTokenTTL    time.Duration
	StaffTokenSecret       string
	StaffTokenTTL          time.Duration

	BcryptCost     int
	LoginRateLimit int // login attempts per IP per minute

	// Deadline overrides for database and mail calls. Zero keeps the
	// built-in default.
	DBTimeoutShort  time.Duration
	DBTimeoutMedium time.Duration
	DBTimeoutLong   time.Duration
	MailTimeout     time.Duration

	// Login records older than this are pruned by a background worker.
	// Zero disables pruning.
	LoginHistoryRetention time.Duration

	// Email/SMTP configuration
	MailSMTPHost string // SMTP server host (e.g., localhost for Mailpit, email-smtp.us-east-1.amazonaws.com for SES)
	MailSMTPPort int    // SMTP server port (e.g., 1025 for Mailpit, 587 for SES)
	MailSMTPUser string // SMTP username (empty for Mailpit)
	MailSMTPPass string // SMTP password
	MailFrom     string // From email address (e.g., noreply@confhub.org)
	MailFromName string // From display name; also the site name in email bodies
	MailUseSSL   bool   // implicit TLS (port 465); otherwise STARTTLS is required

	// Audit logging: "all", "db", "log" or "off" per category
	AuditLogAuth  string
	AuditLogAdmin string

	// SuperAdmin bootstrap. Both must be set for a super-admin to be created.
	SuperAdminEmail    string
	SuperAdminPassword string

	// DevErrors appends internal error text to API error envelopes.
	DevErrors bool
}
