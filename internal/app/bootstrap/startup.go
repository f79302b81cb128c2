// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/collegeportal/internal/app/system/observability"
	"github.com/dalemusser/collegeportal/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Version is stamped at build time with -ldflags "-X ...bootstrap.Version=...".
var Version = "dev"

// flushSentry is replaced by Startup once Sentry is configured.
var flushSentry = func() {}

// Startup runs once after the schema is in place and before the handler is
// built: it applies timeout overrides and enables error reporting.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if n := timeouts.ConfigureFromEnv(); n > 0 {
		logger.Info("timeout overrides applied", zap.Int("count", n))
	}

	flush, err := observability.InitSentry(appCfg.SentryDSN, coreCfg.Env, Version)
	if err != nil {
		logger.Error("sentry init failed", zap.Error(err))
		return err
	}
	flushSentry = flush
	if appCfg.SentryDSN != "" {
		logger.Info("sentry error reporting enabled")
	}
	return nil
}
