// Package dashboard serves the signed-in user's landing summary.
package dashboard

import (
	"time"

	uierrors "github.com/dalemusser/collegeportal/internal/app/features/errors"
	assignmentstore "github.com/dalemusser/collegeportal/internal/app/store/assignments"
	coursestore "github.com/dalemusser/collegeportal/internal/app/store/courses"
	userstore "github.com/dalemusser/collegeportal/internal/app/store/users"
	"github.com/dalemusser/collegeportal/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the dashboard.
type Handler struct {
	DB     *mongo.Database
	Log    *zap.Logger
	ErrLog *uierrors.ErrorLogger
	Now    func() time.Time

	assignments *assignmentstore.Store
	courses     *coursestore.Store
	users       *userstore.Store
}

// NewHandler wires the handler to the stores its summaries read.
func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:          db,
		Log:         logger,
		ErrLog:      errLog,
		Now:         time.Now,
		assignments: assignmentstore.New(db),
		courses:     coursestore.New(db),
		users:       userstore.New(db),
	}
}

// Routes mounts the dashboard at /api/v1/dashboard.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)
	r.Get("/", h.ServeDashboard)
	return r
}
