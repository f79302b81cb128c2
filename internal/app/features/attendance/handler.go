// Package attendance serves attendance marking, per-student and per-course
// views, and spreadsheet exports.
package attendance

import (
	uierrors "github.com/dalemusser/collegeportal/internal/app/features/errors"
	attendancestore "github.com/dalemusser/collegeportal/internal/app/store/attendance"
	coursestore "github.com/dalemusser/collegeportal/internal/app/store/courses"
	userstore "github.com/dalemusser/collegeportal/internal/app/store/users"
	"github.com/dalemusser/collegeportal/internal/app/system/auth"
	"github.com/dalemusser/collegeportal/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves attendance marking and reports.
type Handler struct {
	DB     *mongo.Database
	Log    *zap.Logger
	ErrLog *uierrors.ErrorLogger

	attendance *attendancestore.Store
	courses    *coursestore.Store
	users      *userstore.Store
}

// NewHandler builds a Handler backed by db.
func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:         db,
		Log:        logger,
		ErrLog:     errLog,
		attendance: attendancestore.New(db),
		courses:    coursestore.New(db),
		users:      userstore.New(db),
	}
}

// Routes mounts the attendance endpoints at /api/v1/attendance.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)

	r.Get("/", h.ServeMine)
	r.Get("/export/student", h.ServeStudentExport)

	r.Group(func(fr chi.Router) {
		fr.Use(auth.RequireRole(authz.RoleTeacher, authz.RoleAdmin))
		fr.Get("/course/{courseId}", h.ServeCourse)
		fr.Post("/mark-bulk", h.HandleMarkBulk)
		fr.Get("/export/faculty", h.ServeFacultyExport)
	})
	return r
}
