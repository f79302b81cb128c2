// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds the portal's own configuration, loaded in LoadConfig.
//
// WAFFLE's CoreConfig covers ports, TLS, log level and request limits.
// Everything the portal needs beyond that lives here and is passed to
// every lifecycle hook.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // e.g. mongodb://localhost:27017
	MongoDatabase    string
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Bearer tokens
	JWTSecret       string        // HMAC key, at least 32 bytes outside dev
	JWTExpiry       time.Duration // token lifetime
	TokenCookieName string        // cookie mirrored next to the bearer token

	// Browser client allowed by CORS
	FrontendURL string

	// Local file storage for submissions, notes and course resources
	UploadDir string // directory on disk
	UploadURL string // URL prefix the files are served under

	// Results import
	MaxImportRows int

	// Operations
	SentryDSN      string
	MetricsEnabled bool
}
