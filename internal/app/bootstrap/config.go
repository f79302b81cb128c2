// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/collegeportal/internal/app/system/limits"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// minSecretLen is the shortest JWT secret accepted outside dev.
const minSecretLen = 32

// appConfigKeys defines the portal's configuration keys. Each one can come
// from a config file (jwt_secret), the environment
// (COLLEGEPORTAL_JWT_SECRET) or a flag (--jwt_secret).
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "college_portal", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size"},

	{Name: "jwt_secret", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "HMAC secret for bearer tokens (at least 32 bytes in production)"},
	{Name: "jwt_expiry", Default: "720h", Desc: "Bearer token lifetime (e.g. 24h, 720h)"},
	{Name: "token_cookie_name", Default: "token", Desc: "Name of the cookie carrying the token"},

	{Name: "frontend_url", Default: "http://localhost:3000", Desc: "Origin of the browser client allowed by CORS"},

	{Name: "upload_dir", Default: "./uploads", Desc: "Directory for uploaded files"},
	{Name: "upload_url", Default: "/uploads", Desc: "URL prefix for serving uploaded files"},

	{Name: "max_import_rows", Default: limits.MaxImportRows, Desc: "Maximum data rows read from one results worksheet"},

	{Name: "sentry_dsn", Default: "", Desc: "Sentry DSN (blank disables error reporting)"},
	{Name: "metrics_enabled", Default: true, Desc: "Serve Prometheus metrics at /metrics"},
}

// LoadConfig loads WAFFLE core config and the portal's config.
//
// Precedence is flags > env > files > defaults. App variables use the
// COLLEGEPORTAL_ prefix.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "COLLEGEPORTAL", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		JWTSecret:       appValues.String("jwt_secret"),
		JWTExpiry:       appValues.Duration("jwt_expiry", 30*24*time.Hour),
		TokenCookieName: appValues.String("token_cookie_name"),

		FrontendURL: strings.TrimRight(appValues.String("frontend_url"), "/"),

		UploadDir: appValues.String("upload_dir"),
		UploadURL: "/" + strings.Trim(appValues.String("upload_url"), "/"),

		MaxImportRows: appValues.Int("max_import_rows"),

		SentryDSN:      appValues.String("sentry_dsn"),
		MetricsEnabled: appValues.Bool("metrics_enabled"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig rejects configurations the portal cannot run with.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	return validateApp(coreCfg.Env, appCfg)
}

func validateApp(env string, appCfg AppConfig) error {
	if strings.TrimSpace(appCfg.MongoDatabase) == "" {
		return fmt.Errorf("mongo_database is required")
	}
	if env != "dev" && len(appCfg.JWTSecret) < minSecretLen {
		return fmt.Errorf("jwt_secret must be at least %d bytes outside dev", minSecretLen)
	}
	if appCfg.JWTExpiry <= 0 {
		return fmt.Errorf("jwt_expiry must be positive")
	}
	if appCfg.MongoMinPoolSize > appCfg.MongoMaxPoolSize {
		return fmt.Errorf("mongo_min_pool_size (%d) exceeds mongo_max_pool_size (%d)", appCfg.MongoMinPoolSize, appCfg.MongoMaxPoolSize)
	}
	if strings.TrimSpace(appCfg.UploadDir) == "" || appCfg.UploadURL == "/" {
		return fmt.Errorf("upload_dir and upload_url are required")
	}
	if appCfg.MaxImportRows <= 0 {
		return fmt.Errorf("max_import_rows must be positive")
	}
	return nil
}
