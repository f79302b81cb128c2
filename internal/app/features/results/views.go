package results

import (
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/collegeportal/internal/app/features/errors"
	coursestore "github.com/dalemusser/collegeportal/internal/app/store/courses"
	"github.com/dalemusser/collegeportal/internal/app/system/authz"
	"github.com/dalemusser/collegeportal/internal/app/system/formutil"
	"github.com/dalemusser/collegeportal/internal/app/system/timeouts"
	"github.com/dalemusser/collegeportal/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// idSet collects distinct ids in first-seen order.
type idSet struct {
	seen map[primitive.ObjectID]bool
	ids  []primitive.ObjectID
}

func (s *idSet) add(id primitive.ObjectID) {
	if id.IsZero() {
		return
	}
	if s.seen == nil {
		s.seen = map[primitive.ObjectID]bool{}
	}
	if !s.seen[id] {
		s.seen[id] = true
		s.ids = append(s.ids, id)
	}
}

// ServeStudentResults returns the caller's merged assignment and exam results.
// GET /api/v1/results
func (h *Handler) ServeStudentResults(w http.ResponseWriter, r *http.Request) {
	uid, _ := authz.UserID(r)
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "student results")
	defer cancel()

	assignments, err := h.assignments.GradedForStudent(ctx, uid)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load graded assignments failed", err, "")
		return
	}
	exams, err := h.exams.ForStudent(ctx, uid)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load exam results failed", err, "")
		return
	}

	var courseIDs, people idSet
	for _, a := range assignments {
		courseIDs.add(a.CourseID)
		people.add(a.TeacherID)
	}
	for _, e := range exams {
		courseIDs.add(e.CourseID)
		people.add(e.UploadedBy)
	}

	courses, err := h.courses.ByIDs(ctx, courseIDs.ids)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load courses failed", err, "")
		return
	}
	refs, err := h.users.Refs(ctx, people.ids)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load users failed", err, "")
		return
	}

	uierrors.JSON(w, http.StatusOK, BuildStudentSummary(StudentInput{
		StudentID:   uid,
		Assignments: assignments,
		Exams:       exams,
		Courses:     courses,
		People:      refs,
	}))
}

// ServeTeacherResults returns exam results grouped by course.
// GET /api/v1/results/teacher?courseId=&teacherId=
//
// Teachers see their own courses. Admins see every course unless they pass
// teacherId.
func (h *Handler) ServeTeacherResults(w http.ResponseWriter, r *http.Request) {
	role, _, uid, _ := authz.UserCtx(r)

	courseID, err := formutil.OptionalID(query.Get(r, "courseId"))
	if err != nil {
		uierrors.RenderBadRequest(w, "Invalid courseId")
		return
	}
	var filter coursestore.ListFilter
	if role == authz.RoleAdmin {
		if filter.TeacherID, err = formutil.OptionalID(query.Get(r, "teacherId")); err != nil {
			uierrors.RenderBadRequest(w, "Invalid teacherId")
			return
		}
	} else {
		filter.TeacherID = uid
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "teacher results")
	defer cancel()

	var courses []models.Course
	if !courseID.IsZero() {
		c, err := h.courses.GetByID(ctx, courseID)
		if errors.Is(err, mongo.ErrNoDocuments) {
			uierrors.RenderNotFound(w, "Course not found")
			return
		}
		if err != nil {
			h.ErrLog.LogServerError(w, r, "load course failed", err, "")
			return
		}
		if role != authz.RoleAdmin && c.TeacherID != uid {
			h.ErrLog.LogForbidden(w, r, "results for foreign course", "Not authorized to view results for this course")
			return
		}
		if filter.TeacherID.IsZero() || c.TeacherID == filter.TeacherID {
			courses = []models.Course{*c}
		}
	} else {
		courses, err = h.courses.Find(ctx, filter)
		if err != nil {
			h.ErrLog.LogServerError(w, r, "load courses failed", err, "")
			return
		}
	}

	if len(courses) == 0 {
		uierrors.JSON(w, http.StatusOK, EmptyTeacherSummary())
		return
	}

	ids := make([]primitive.ObjectID, 0, len(courses))
	var people idSet
	for _, c := range courses {
		ids = append(ids, c.ID)
		people.add(c.TeacherID)
	}
	rows, err := h.exams.ForCourses(ctx, ids)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load exam results failed", err, "")
		return
	}
	for _, e := range rows {
		people.add(e.StudentID)
		people.add(e.UploadedBy)
	}
	refs, err := h.users.Refs(ctx, people.ids)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load users failed", err, "")
		return
	}

	uierrors.JSON(w, http.StatusOK, BuildTeacherSummary(TeacherInput{
		Courses: courses,
		Results: rows,
		Users:   refs,
	}))
}
