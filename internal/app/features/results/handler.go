// Package results serves exam-result imports and the student and faculty
// results views.
package results

import (
	uierrors "github.com/dalemusser/collegeportal/internal/app/features/errors"
	assignmentstore "github.com/dalemusser/collegeportal/internal/app/store/assignments"
	coursestore "github.com/dalemusser/collegeportal/internal/app/store/courses"
	examresultstore "github.com/dalemusser/collegeportal/internal/app/store/examresults"
	userstore "github.com/dalemusser/collegeportal/internal/app/store/users"
	"github.com/dalemusser/collegeportal/internal/app/system/auth"
	"github.com/dalemusser/collegeportal/internal/app/system/authz"
	"github.com/dalemusser/collegeportal/internal/app/system/limits"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler provides the results endpoints.
type Handler struct {
	DB      *mongo.Database
	Log     *zap.Logger
	ErrLog  *uierrors.ErrorLogger
	MaxRows int

	users       *userstore.Store
	courses     *coursestore.Store
	assignments *assignmentstore.Store
	exams       *examresultstore.Store
}

// NewHandler builds the results handler. maxRows caps the data rows read
// from one uploaded worksheet; zero or less means no cap.
func NewHandler(db *mongo.Database, maxRows int, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	if maxRows <= 0 {
		maxRows = limits.MaxImportRows
	}
	return &Handler{
		DB:          db,
		Log:         logger,
		ErrLog:      errLog,
		MaxRows:     maxRows,
		users:       userstore.New(db),
		courses:     coursestore.New(db),
		assignments: assignmentstore.New(db),
		exams:       examresultstore.New(db),
	}
}

func (h *Handler) importer() *Importer {
	return &Importer{Students: h.users, Courses: h.courses, Results: h.exams}
}

// Routes mounts the results endpoints; callers mount it at /api/v1/results.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)

	r.Get("/", h.ServeStudentResults)

	r.Group(func(fr chi.Router) {
		fr.Use(auth.RequireRole(authz.RoleTeacher, authz.RoleAdmin))
		fr.Get("/teacher", h.ServeTeacherResults)
		fr.Post("/upload", h.HandleUpload)
	})
	return r
}
