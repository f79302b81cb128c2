// Package courses serves the course catalogue, enrollment and course
// resources.
package courses

import (
	uierrors "github.com/dalemusser/collegeportal/internal/app/features/errors"
	coursestore "github.com/dalemusser/collegeportal/internal/app/store/courses"
	timetablestore "github.com/dalemusser/collegeportal/internal/app/store/timetable"
	userstore "github.com/dalemusser/collegeportal/internal/app/store/users"
	"github.com/dalemusser/collegeportal/internal/app/system/auth"
	"github.com/dalemusser/collegeportal/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves course management.
type Handler struct {
	DB     *mongo.Database
	Log    *zap.Logger
	ErrLog *uierrors.ErrorLogger

	courses   *coursestore.Store
	timetable *timetablestore.Store
	users     *userstore.Store
}

// NewHandler wires the handler to course, timetable and user stores.
func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:        db,
		Log:       logger,
		ErrLog:    errLog,
		courses:   coursestore.New(db),
		timetable: timetablestore.New(db),
		users:     userstore.New(db),
	}
}

// Routes mounts the course endpoints at /api/v1/courses.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)

	r.Get("/", h.ServeList)
	r.Get("/{id}", h.ServeCourse)
	r.Put("/{id}/enroll", h.HandleEnroll)

	r.Group(func(sr chi.Router) {
		sr.Use(auth.RequireRole(authz.RoleTeacher, authz.RoleAdmin))
		sr.Post("/", h.HandleCreate)
		sr.Put("/{id}", h.HandleUpdate)
		sr.Delete("/{id}", h.HandleDelete)
		sr.Post("/{id}/resources", h.HandleAddResource)
	})
	return r
}
