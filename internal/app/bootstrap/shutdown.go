// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shutdown waits for in-flight emails, then tears down connections.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if svc := deps.svc; svc != nil {
		if svc.LoginPruner != nil {
			svc.LoginPruner.Stop()
		}
		if svc.Registration != nil {
			done := make(chan struct{})
			go func() {
				svc.Registration.Close()
				close(done)
			}()
			select {
			case <-done:
			case <-ctx.Done():
				logger.Warn("shutdown: gave up waiting for pending emails", zap.Error(ctx.Err()))
			}
		}
		if svc.Limiter != nil {
			svc.Limiter.Close()
		}
	}

	if deps.Redis != nil {
		if err := deps.Redis.Close(); err != nil {
			logger.Warn("Redis close failed", zap.Error(err))
		}
	}

	if deps.ConfHubMongoClient != nil {
		logger.Info("disconnecting ConfHub MongoDB client")
		if err := deps.ConfHubMongoClient.Disconnect(ctx); err != nil {
			logger.Error("MongoDB disconnect failed", zap.Error(err))
			return err
		}
	}
	return nil
}
