// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"

	staffstore "github.com/dalemusser/confhub/internal/app/store/staffusers"
	"github.com/dalemusser/confhub/internal/app/system/auditlog"
	"github.com/dalemusser/confhub/internal/app/system/password"
	"github.com/dalemusser/confhub/internal/app/system/respond"
	"github.com/dalemusser/waffle/config"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built. It builds
// the shared service graph, starts the login pruner and bootstraps the first
// super-admin.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	respond.SetExposeErrors(appCfg.DevErrors)

	svc, err := buildServices(appCfg, deps, prometheus.DefaultRegisterer, logger)
	if err != nil {
		return err
	}
	if deps.svc == nil {
		return errors.New("startup: DBDeps was not created by ConnectDB")
	}
	*deps.svc = *svc

	if svc.LoginPruner != nil {
		svc.LoginPruner.Start()
	}

	return ensureSuperAdmin(ctx, deps, appCfg, svc.Hasher, svc.AuditLog, logger)
}

// ensureSuperAdmin creates the configured super-admin if no staff user has
// that email yet. An existing user is never modified, so rotating
// superadmin_password does not reset a live account.
func ensureSuperAdmin(ctx context.Context, deps DBDeps, appCfg AppConfig, hasher *password.Hasher, audits *auditlog.Logger, logger *zap.Logger) error {
	if appCfg.SuperAdminEmail == "" {
		return nil
	}
	if err := password.CheckStrength(appCfg.SuperAdminPassword); err != nil {
		return err
	}
	hash, err := hasher.Hash(appCfg.SuperAdminPassword)
	if err != nil {
		return err
	}

	created, err := staffstore.New(deps.ConfHubMongoDatabase).
		EnsureSuperAdmin(ctx, appCfg.SuperAdminEmail, hash, "Super", "Admin")
	if err != nil {
		logger.Error("super-admin bootstrap failed", zap.Error(err))
		return err
	}
	if created {
		audits.SuperAdminBootstrapped(ctx, appCfg.SuperAdminEmail)
		logger.Info("super-admin created", zap.String("email", appCfg.SuperAdminEmail))
	}
	return nil
}
