// internal/app/bootstrap/routes.go
package bootstrap

import (
	"errors"
	"net/http"

	accountauthfeature "github.com/dalemusser/confhub/internal/app/features/accountauth"
	adminparticipantsfeature "github.com/dalemusser/confhub/internal/app/features/adminparticipants"
	auditlogfeature "github.com/dalemusser/confhub/internal/app/features/auditlog"
	dashboardfeature "github.com/dalemusser/confhub/internal/app/features/dashboard"
	healthfeature "github.com/dalemusser/confhub/internal/app/features/health"
	registrationsfeature "github.com/dalemusser/confhub/internal/app/features/registrations"
	staffauthfeature "github.com/dalemusser/confhub/internal/app/features/staffauth"
	staffusersfeature "github.com/dalemusser/confhub/internal/app/features/staffusers"
	accountstore "github.com/dalemusser/confhub/internal/app/store/accounts"
	"github.com/dalemusser/confhub/internal/app/store/audit"
	loginstore "github.com/dalemusser/confhub/internal/app/store/logins"
	staffstore "github.com/dalemusser/confhub/internal/app/store/staffusers"
	"github.com/dalemusser/confhub/internal/app/system/apperr"
	"github.com/dalemusser/confhub/internal/app/system/respond"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// the Startup hook have completed, so deps.svc holds the shared service
// graph. ConfHub is a JSON API: participant endpoints live under /api and
// staff endpoints under /api/admin, each behind its own token domain.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	svc := deps.svc
	if svc == nil || svc.Tokens == nil {
		return nil, errors.New("build handler: services not initialized; Startup must run first")
	}
	db := deps.ConfHubMongoDatabase

	accounts := accountstore.New(db)
	staff := staffstore.New(db)
	logins := loginstore.New(db)

	r := chi.NewRouter()
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		respond.Error(w, req, logger, apperr.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Allow", "GET, POST, PATCH, DELETE")
		respond.JSON(w, http.StatusMethodNotAllowed, respond.Envelope{
			Message: "method not allowed",
			Error:   "MethodNotAllowed",
		})
	})

	// Health check endpoint for load balancers and orchestrators
	var rdb healthfeature.RedisPinger
	if deps.Redis != nil {
		rdb = deps.Redis
	}
	healthHandler := healthfeature.NewHandler(deps.ConfHubMongoClient, rdb, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	r.Handle("/metrics", promhttp.Handler())

	// Participant domain
	accountHandler := accountauthfeature.NewHandler(accounts, svc.Tokens, svc.Hasher, svc.Limiter,
		svc.Denylist, logins, svc.AuditLog, svc.Metrics, logger)
	r.Mount("/api/auth", accountauthfeature.Routes(accountHandler, svc.Guard))

	registrationsHandler := registrationsfeature.NewHandler(svc.Registration, svc.AuditLog, logger)
	r.Mount("/api/registrations", registrationsfeature.Routes(registrationsHandler, svc.Guard))

	// Staff domain
	staffAuthHandler := staffauthfeature.NewHandler(staff, svc.Tokens, svc.Hasher, svc.Limiter,
		svc.Denylist, logins, svc.AuditLog, svc.Metrics, logger)
	r.Mount("/api/admin/auth", staffauthfeature.Routes(staffAuthHandler, svc.Guard))

	participantsHandler := adminparticipantsfeature.NewHandler(svc.Registration, svc.AuditLog, logger)
	r.Mount("/api/admin/participants", adminparticipantsfeature.Routes(participantsHandler, svc.Guard))

	dashboardHandler := dashboardfeature.NewHandler(db, logger)
	r.Mount("/api/admin/dashboard", dashboardfeature.Routes(dashboardHandler, svc.Guard))

	staffUsersHandler := staffusersfeature.NewHandler(staff, svc.Hasher, svc.AuditLog, logger)
	r.Mount("/api/admin/staff", staffusersfeature.Routes(staffUsersHandler, svc.Guard))

	auditHandler := auditlogfeature.NewHandler(audit.New(db), logger)
	r.Mount("/api/admin/audit", auditlogfeature.Routes(auditHandler, svc.Guard))

	return r, nil
}
