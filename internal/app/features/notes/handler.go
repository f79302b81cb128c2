// Package notes serves the shared lecture-notes library.
package notes

import (
	uierrors "github.com/dalemusser/collegeportal/internal/app/features/errors"
	coursestore "github.com/dalemusser/collegeportal/internal/app/store/courses"
	notestore "github.com/dalemusser/collegeportal/internal/app/store/notes"
	userstore "github.com/dalemusser/collegeportal/internal/app/store/users"
	"github.com/dalemusser/collegeportal/internal/app/system/auth"
	"github.com/dalemusser/collegeportal/internal/app/system/authz"
	"github.com/dalemusser/collegeportal/internal/app/system/uploads"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves shared study notes.
type Handler struct {
	DB      *mongo.Database
	Log     *zap.Logger
	ErrLog  *uierrors.ErrorLogger
	Uploads *uploads.Store

	notes   *notestore.Store
	courses *coursestore.Store
	users   *userstore.Store
}

// NewHandler wires the handler to note storage and the upload store.
func NewHandler(db *mongo.Database, files *uploads.Store, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:      db,
		Log:     logger,
		ErrLog:  errLog,
		Uploads: files,
		notes:   notestore.New(db),
		courses: coursestore.New(db),
		users:   userstore.New(db),
	}
}

// Routes mounts the notes endpoints at /api/v1/notes.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)

	r.Get("/", h.ServeList)
	r.Get("/{id}", h.ServeNote)
	r.Get("/{id}/download", h.ServeDownload)
	r.With(auth.RequireRole(authz.RoleTeacher, authz.RoleAdmin)).Post("/", h.HandleCreate)
	return r
}
