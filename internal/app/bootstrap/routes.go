// internal/app/bootstrap/routes.go
package bootstrap

import (
	"fmt"
	"net/http"
	"time"

	achievementsfeature "github.com/dalemusser/collegeportal/internal/app/features/achievements"
	assignmentsfeature "github.com/dalemusser/collegeportal/internal/app/features/assignments"
	attendancefeature "github.com/dalemusser/collegeportal/internal/app/features/attendance"
	bustrackingfeature "github.com/dalemusser/collegeportal/internal/app/features/bustracking"
	coursesfeature "github.com/dalemusser/collegeportal/internal/app/features/courses"
	dashboardfeature "github.com/dalemusser/collegeportal/internal/app/features/dashboard"
	errorsfeature "github.com/dalemusser/collegeportal/internal/app/features/errors"
	healthfeature "github.com/dalemusser/collegeportal/internal/app/features/health"
	loginfeature "github.com/dalemusser/collegeportal/internal/app/features/login"
	logoutfeature "github.com/dalemusser/collegeportal/internal/app/features/logout"
	notesfeature "github.com/dalemusser/collegeportal/internal/app/features/notes"
	resultsfeature "github.com/dalemusser/collegeportal/internal/app/features/results"
	timetablefeature "github.com/dalemusser/collegeportal/internal/app/features/timetable"
	userstore "github.com/dalemusser/collegeportal/internal/app/store/users"
	"github.com/dalemusser/collegeportal/internal/app/system/auth"
	"github.com/dalemusser/collegeportal/internal/app/system/metrics"
	"github.com/dalemusser/collegeportal/internal/app/system/ratelimit"
	"github.com/dalemusser/collegeportal/internal/app/system/uploads"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// authLimiter throttles login and registration; Shutdown stops its sweeper.
var authLimiter *ratelimit.AuthLimiter

// BuildHandler constructs the root router.
//
// Every request passes through CORS for the browser client, Prometheus
// instrumentation and token authentication, which loads the caller (if
// any) into the context. The JSON API lives under /api/v1; /health,
// /metrics and the uploaded files sit at the root.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	secure := coreCfg.Env == "prod"
	tokens, err := auth.NewTokenManager(appCfg.JWTSecret, appCfg.JWTExpiry, appCfg.TokenCookieName, secure)
	if err != nil {
		logger.Error("token manager init failed", zap.Error(err))
		return nil, err
	}

	files, err := uploads.NewLocal(appCfg.UploadDir, appCfg.UploadURL)
	if err != nil {
		logger.Error("upload storage init failed", zap.Error(err), zap.String("dir", appCfg.UploadDir))
		return nil, fmt.Errorf("upload storage: %w", err)
	}

	if authLimiter == nil {
		authLimiter = ratelimit.NewAuthLimiter()
	}

	db := deps.MongoDatabase
	errLog := errorsfeature.NewErrorLogger(logger)

	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{appCfg.FrontendURL},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           int((5 * time.Minute).Seconds()),
	}))
	r.Use(metrics.Instrument)

	// Global auth middleware: loads the caller into the context when a
	// valid token is present. User data is re-read on every request so role
	// changes take effect immediately.
	r.Use(tokens.Authenticate(userstore.NewFetcher(db), logger))

	r.NotFound(errorsfeature.NotFoundHandler)
	r.MethodNotAllowed(errorsfeature.MethodNotAllowedHandler)

	healthHandler := healthfeature.NewHandler(deps.MongoClient, Version, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	if appCfg.MetricsEnabled {
		r.Handle("/metrics", metrics.Handler())
	}

	r.Handle(appCfg.UploadURL+"/*", files.Handler())

	r.Route("/api/v1", func(api chi.Router) {
		// Authentication
		logoutHandler := logoutfeature.NewHandler(tokens, logger)
		loginHandler := loginfeature.NewHandler(db, tokens, authLimiter, errLog, logger)
		api.Mount("/auth", loginfeature.Routes(loginHandler, logoutHandler))

		api.Mount("/courses", coursesfeature.Routes(coursesfeature.NewHandler(db, errLog, logger)))
		api.Mount("/assignments", assignmentsfeature.Routes(assignmentsfeature.NewHandler(db, files, errLog, logger)))
		api.Mount("/attendance", attendancefeature.Routes(attendancefeature.NewHandler(db, errLog, logger)))
		api.Mount("/notes", notesfeature.Routes(notesfeature.NewHandler(db, files, errLog, logger)))
		api.Mount("/timetable", timetablefeature.Routes(timetablefeature.NewHandler(db, errLog, logger)))
		api.Mount("/bus-tracking", bustrackingfeature.Routes(bustrackingfeature.NewHandler(db, errLog, logger)))
		api.Mount("/dashboard", dashboardfeature.Routes(dashboardfeature.NewHandler(db, errLog, logger)))

		// Exam results and the leaderboard built on them
		api.Mount("/results", resultsfeature.Routes(resultsfeature.NewHandler(db, appCfg.MaxImportRows, errLog, logger)))
		api.Mount("/achievements", achievementsfeature.Routes(achievementsfeature.NewHandler(db, errLog, logger)))
	})

	logger.Info("routes mounted",
		zap.String("uploads", appCfg.UploadURL),
		zap.Bool("metrics", appCfg.MetricsEnabled),
		zap.String("cors_origin", appCfg.FrontendURL))
	return r, nil
}
