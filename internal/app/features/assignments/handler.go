// Package assignments serves coursework: authoring, student submissions
// and grading.
package assignments

import (
	uierrors "github.com/dalemusser/collegeportal/internal/app/features/errors"
	assignmentstore "github.com/dalemusser/collegeportal/internal/app/store/assignments"
	coursestore "github.com/dalemusser/collegeportal/internal/app/store/courses"
	userstore "github.com/dalemusser/collegeportal/internal/app/store/users"
	"github.com/dalemusser/collegeportal/internal/app/system/auth"
	"github.com/dalemusser/collegeportal/internal/app/system/authz"
	"github.com/dalemusser/collegeportal/internal/app/system/uploads"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves assignments and submissions.
type Handler struct {
	DB      *mongo.Database
	Log     *zap.Logger
	ErrLog  *uierrors.ErrorLogger
	Uploads *uploads.Store

	assignments *assignmentstore.Store
	courses     *coursestore.Store
	users       *userstore.Store
}

// NewHandler wires the handler to assignment storage and the upload store.
func NewHandler(db *mongo.Database, files *uploads.Store, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:          db,
		Log:         logger,
		ErrLog:      errLog,
		Uploads:     files,
		assignments: assignmentstore.New(db),
		courses:     coursestore.New(db),
		users:       userstore.New(db),
	}
}

// Routes mounts the assignment endpoints at /api/v1/assignments.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)

	r.Get("/", h.ServeList)
	r.Get("/{id}", h.ServeAssignment)

	r.Group(func(sr chi.Router) {
		sr.Use(auth.RequireRole(authz.RoleTeacher, authz.RoleAdmin))
		sr.Post("/", h.HandleCreate)
		sr.Put("/{id}", h.HandleUpdate)
		sr.Delete("/{id}", h.HandleDelete)
		sr.Put("/{id}/grade", h.HandleGrade)
	})

	r.With(auth.RequireRole(authz.RoleStudent)).Post("/{id}/submit", h.HandleSubmit)
	return r
}
