// Package timetable serves weekly class schedules.
package timetable

import (
	"time"

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

// Handler serves the weekly timetable.
type Handler struct {
	DB     *mongo.Database
	Log    *zap.Logger
	ErrLog *uierrors.ErrorLogger
	// Now reports the wall clock used for the current and next class.
	Now func() time.Time

	timetable *timetablestore.Store
	courses   *coursestore.Store
	users     *userstore.Store
}

// NewHandler wires the handler to timetable, course and user stores.
func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:        db,
		Log:       logger,
		ErrLog:    errLog,
		Now:       time.Now,
		timetable: timetablestore.New(db),
		courses:   coursestore.New(db),
		users:     userstore.New(db),
	}
}

// Routes mounts the timetable endpoints at /api/v1/timetable.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)

	r.Get("/", h.ServeList)

	r.Group(func(sr chi.Router) {
		sr.Use(auth.RequireRole(authz.RoleTeacher, authz.RoleAdmin))
		sr.Post("/", h.HandleCreate)
		sr.Put("/{id}", h.HandleUpdate)
		sr.Delete("/{id}", h.HandleDelete)
	})
	return r
}
