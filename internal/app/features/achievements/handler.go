// Package achievements serves the badge and leaderboard view. Everything
// is derived from graded submissions on each request.
package achievements

import (
	"net/http"

	uierrors "github.com/dalemusser/collegeportal/internal/app/features/errors"
	assignmentstore "github.com/dalemusser/collegeportal/internal/app/store/assignments"
	coursestore "github.com/dalemusser/collegeportal/internal/app/store/courses"
	userstore "github.com/dalemusser/collegeportal/internal/app/store/users"
	"github.com/dalemusser/collegeportal/internal/app/system/auth"
	"github.com/dalemusser/collegeportal/internal/app/system/authz"
	"github.com/dalemusser/collegeportal/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the leaderboard.
type Handler struct {
	DB     *mongo.Database
	Log    *zap.Logger
	ErrLog *uierrors.ErrorLogger

	users       *userstore.Store
	courses     *coursestore.Store
	assignments *assignmentstore.Store
}

// NewHandler wires the handler to assignment, course and user stores.
func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:          db,
		Log:         logger,
		ErrLog:      errLog,
		users:       userstore.New(db),
		courses:     coursestore.New(db),
		assignments: assignmentstore.New(db),
	}
}

// Routes mounts GET / at /api/v1/achievements.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)
	r.Get("/", h.ServeAchievements)
	return r
}

// ServeAchievements returns the caller's badges and the top of the
// leaderboard.
func (h *Handler) ServeAchievements(w http.ResponseWriter, r *http.Request) {
	uid, _ := authz.UserID(r)
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "achievements")
	defer cancel()

	assignments, err := h.assignments.WithGradedSubmissions(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load graded assignments failed", err, "")
		return
	}

	seenCourse := map[primitive.ObjectID]bool{}
	seenStudent := map[primitive.ObjectID]bool{}
	var courseIDs, studentIDs []primitive.ObjectID
	for _, a := range assignments {
		if !seenCourse[a.CourseID] {
			seenCourse[a.CourseID] = true
			courseIDs = append(courseIDs, a.CourseID)
		}
		for _, s := range a.Submissions {
			if s.Graded() && !seenStudent[s.StudentID] {
				seenStudent[s.StudentID] = true
				studentIDs = append(studentIDs, s.StudentID)
			}
		}
	}

	courses, err := h.courses.ByIDs(ctx, courseIDs)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load courses failed", err, "")
		return
	}
	users, err := h.users.Refs(ctx, studentIDs)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load users failed", err, "")
		return
	}

	uierrors.JSON(w, http.StatusOK, Build(Aggregate(assignments, courses, users), uid))
}
