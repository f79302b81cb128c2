package assignments

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	uierrors "github.com/dalemusser/collegeportal/internal/app/features/errors"
	assignmentstore "github.com/dalemusser/collegeportal/internal/app/store/assignments"
	"github.com/dalemusser/collegeportal/internal/app/system/authz"
	"github.com/dalemusser/collegeportal/internal/app/system/formutil"
	"github.com/dalemusser/collegeportal/internal/app/system/grading"
	"github.com/dalemusser/collegeportal/internal/app/system/htmlsanitize"
	"github.com/dalemusser/collegeportal/internal/app/system/inputval"
	"github.com/dalemusser/collegeportal/internal/app/system/limits"
	"github.com/dalemusser/collegeportal/internal/app/system/normalize"
	"github.com/dalemusser/collegeportal/internal/app/system/timeouts"
	"github.com/dalemusser/collegeportal/internal/app/system/uploads"
	"github.com/dalemusser/collegeportal/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type courseRef struct {
	ID   primitive.ObjectID `json:"_id"`
	Name string             `json:"name"`
	Code string             `json:"code"`
}

type submissionView struct {
	models.Submission
	Student *models.UserRef `json:"student"`
}

// assignmentView is an assignment with course, teacher and submitting
// students populated.
type assignmentView struct {
	models.Assignment
	Course      *courseRef       `json:"course"`
	Teacher     *models.UserRef  `json:"teacher"`
	Submissions []submissionView `json:"submissions"`
}

type createInput struct {
	Title       string    `json:"title" validate:"notblank,max=200"`
	Description string    `json:"description" validate:"notblank,max=5000"`
	Course      string    `json:"course" validate:"required,objectid"`
	DueDate     time.Time `json:"dueDate"`
	Points      *float64  `json:"points" validate:"omitempty,gt=0,lte=1000"`
}

type updateInput struct {
	Title       *string    `json:"title" validate:"omitempty,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=5000"`
	Course      *string    `json:"course" validate:"omitempty,objectid"`
	DueDate     *time.Time `json:"dueDate"`
	Points      *float64   `json:"points" validate:"omitempty,gt=0,lte=1000"`
}

type gradeInput struct {
	SubmissionID string   `json:"submissionId" validate:"required,objectid"`
	Grade        *float64 `json:"grade"`
	Feedback     string   `json:"feedback" validate:"max=5000"`
}

// populate joins courses and users onto list. Students only see their own
// submission.
func (h *Handler) populate(ctx context.Context, r *http.Request, list []models.Assignment) ([]assignmentView, error) {
	role, _, uid, _ := authz.UserCtx(r)

	courseIDs := make([]primitive.ObjectID, 0, len(list))
	userIDs := make([]primitive.ObjectID, 0, len(list))
	for _, a := range list {
		courseIDs = append(courseIDs, a.CourseID)
		userIDs = append(userIDs, a.TeacherID)
		for _, s := range a.Submissions {
			userIDs = append(userIDs, s.StudentID)
		}
	}
	courses, err := h.courses.ByIDs(ctx, courseIDs)
	if err != nil {
		return nil, fmt.Errorf("load courses: %w", err)
	}
	refs, err := h.users.Refs(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}

	out := make([]assignmentView, 0, len(list))
	for _, a := range list {
		v := assignmentView{Assignment: a, Submissions: []submissionView{}}
		if c, ok := courses[a.CourseID]; ok {
			v.Course = &courseRef{ID: c.ID, Name: c.Name, Code: c.Code}
		}
		if t, ok := refs[a.TeacherID]; ok {
			v.Teacher = &t
		}
		for _, s := range a.Submissions {
			if role == authz.RoleStudent && s.StudentID != uid {
				continue
			}
			sv := submissionView{Submission: s}
			if st, ok := refs[s.StudentID]; ok {
				sv.Student = &st
			}
			v.Submissions = append(v.Submissions, sv)
		}
		out = append(out, v)
	}
	return out, nil
}

// load fetches the assignment named by the id URL parameter. It writes the
// error response and returns nil when the request must stop.
func (h *Handler) load(ctx context.Context, w http.ResponseWriter, r *http.Request) *models.Assignment {
	id, err := formutil.ParamID(r, "id")
	if err != nil {
		uierrors.RenderBadRequest(w, "Invalid assignment id")
		return nil
	}
	a, err := h.assignments.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		uierrors.RenderNotFound(w, "Assignment not found with id of "+id.Hex())
		return nil
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load assignment failed", err, "")
		return nil
	}
	return a
}

// checkCourse verifies the course exists and the caller may set work for
// it. It writes the error response and returns false when it does not.
func (h *Handler) checkCourse(ctx context.Context, w http.ResponseWriter, r *http.Request, courseID primitive.ObjectID) bool {
	c, err := h.courses.GetByID(ctx, courseID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		uierrors.RenderNotFound(w, "Course not found with id of "+courseID.Hex())
		return false
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load course failed", err, "")
		return false
	}
	if !authz.CanManage(r, c.TeacherID) {
		h.ErrLog.LogForbidden(w, r, "assignment for foreign course denied", "Not authorized to add assignments to this course")
		return false
	}
	return true
}

// ServeList lists assignments ordered by due date. Teachers only see their
// own.
// GET /api/v1/assignments?courseId=&status=upcoming|past
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	courseID, err := formutil.OptionalID(normalize.FilterID(query.Get(r, "courseId")))
	if err != nil {
		uierrors.RenderBadRequest(w, "Invalid course id")
		return
	}
	f := assignmentstore.ListFilter{
		CourseID: courseID,
		Status:   strings.ToLower(normalize.QueryParam(query.Get(r, "status"))),
	}
	if authz.IsTeacher(r) {
		f.TeacherID, _ = authz.UserID(r)
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list assignments")
	defer cancel()

	list, err := h.assignments.List(ctx, f)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list assignments failed", err, "")
		return
	}
	out, err := h.populate(ctx, r, list)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "populate assignments failed", err, "")
		return
	}
	uierrors.List(w, out, len(out), nil)
}

// ServeAssignment returns one populated assignment. Teachers may only read
// their own.
// GET /api/v1/assignments/{id}
func (h *Handler) ServeAssignment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get assignment")
	defer cancel()

	a := h.load(ctx, w, r)
	if a == nil {
		return
	}
	if uid, _ := authz.UserID(r); authz.IsTeacher(r) && a.TeacherID != uid {
		h.ErrLog.LogForbidden(w, r, "assignment read denied", "Not authorized to access this assignment")
		return
	}
	out, err := h.populate(ctx, r, []models.Assignment{*a})
	if err != nil {
		h.ErrLog.LogServerError(w, r, "populate assignment failed", err, "")
		return
	}
	uierrors.JSON(w, http.StatusOK, out[0])
}

// HandleCreate creates an assignment owned by the caller.
// POST /api/v1/assignments
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	uid, _ := authz.UserID(r)

	var in createInput
	if err := formutil.Decode(w, r, &in); err != nil {
		uierrors.RenderBadRequest(w, formutil.Message(err))
		return
	}
	if in.DueDate.IsZero() {
		uierrors.RenderBadRequest(w, "Please add a due date")
		return
	}
	courseID, _ := primitive.ObjectIDFromHex(in.Course)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "create assignment")
	defer cancel()

	if !h.checkCourse(ctx, w, r, courseID) {
		return
	}
	a := models.Assignment{
		Title:       strings.TrimSpace(in.Title),
		Description: htmlsanitize.PlainText(in.Description),
		CourseID:    courseID,
		TeacherID:   uid,
		DueDate:     in.DueDate.UTC(),
	}
	if in.Points != nil {
		a.Points = *in.Points
	}
	created, err := h.assignments.Create(ctx, a)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create assignment failed", err, "")
		return
	}
	h.Log.Info("assignment created", zap.String("assignment_id", created.ID.Hex()), zap.String("course_id", courseID.Hex()))
	uierrors.JSON(w, http.StatusCreated, created)
}

// HandleUpdate edits an assignment the caller owns (admins may edit any).
// PUT /api/v1/assignments/{id}
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var in updateInput
	if err := formutil.Decode(w, r, &in); err != nil {
		uierrors.RenderBadRequest(w, formutil.Message(err))
		return
	}
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		uierrors.RenderBadRequest(w, "title is required")
		return
	}
	if in.DueDate != nil && in.DueDate.IsZero() {
		uierrors.RenderBadRequest(w, "Please add a due date")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "update assignment")
	defer cancel()

	a := h.load(ctx, w, r)
	if a == nil {
		return
	}
	if !authz.CanManage(r, a.TeacherID) {
		uid, _ := authz.UserID(r)
		h.ErrLog.LogForbidden(w, r, "assignment update denied",
			fmt.Sprintf("User %s is not authorized to update this assignment", uid.Hex()))
		return
	}

	upd := assignmentstore.Update{DueDate: in.DueDate, Points: in.Points}
	if in.Title != nil {
		t := strings.TrimSpace(*in.Title)
		upd.Title = &t
	}
	if in.Description != nil {
		d := htmlsanitize.PlainText(*in.Description)
		upd.Description = &d
	}
	if in.Course != nil {
		courseID, _ := primitive.ObjectIDFromHex(*in.Course)
		if !h.checkCourse(ctx, w, r, courseID) {
			return
		}
		upd.CourseID = &courseID
	}

	updated, err := h.assignments.Update(ctx, a.ID, upd)
	if errors.Is(err, mongo.ErrNoDocuments) {
		uierrors.RenderNotFound(w, "Assignment not found with id of "+a.ID.Hex())
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "update assignment failed", err, "")
		return
	}
	uierrors.JSON(w, http.StatusOK, updated)
}

// HandleDelete removes an assignment the caller owns (admins may delete
// any).
// DELETE /api/v1/assignments/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "delete assignment")
	defer cancel()

	a := h.load(ctx, w, r)
	if a == nil {
		return
	}
	if !authz.CanManage(r, a.TeacherID) {
		uid, _ := authz.UserID(r)
		h.ErrLog.LogForbidden(w, r, "assignment delete denied",
			fmt.Sprintf("User %s is not authorized to delete this assignment", uid.Hex()))
		return
	}
	if _, err := h.assignments.Delete(ctx, a.ID); err != nil {
		h.ErrLog.LogServerError(w, r, "delete assignment failed", err, "")
		return
	}
	h.Log.Info("assignment deleted", zap.String("assignment_id", a.ID.Hex()))
	uierrors.Message(w)
}

// HandleSubmit stores the caller's file and records it as their
// submission, replacing any earlier one.
// POST /api/v1/assignments/{id}/submit (multipart, field "file")
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	uid, _ := authz.UserID(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "submit assignment")
	defer cancel()

	a := h.load(ctx, w, r)
	if a == nil {
		return
	}

	saved, err := h.Uploads.Receive(w, r, "file", "submissions", limits.AllowedUploadExt, limits.MaxUploadSize)
	switch {
	case errors.Is(err, uploads.ErrNoFile):
		uierrors.RenderBadRequest(w, "Please upload a file")
		return
	case errors.Is(err, uploads.ErrTooLarge):
		uierrors.RenderBadRequest(w, fmt.Sprintf("File is larger than %d MB", limits.MaxUploadSize>>20))
		return
	case errors.Is(err, uploads.ErrBadFileType):
		uierrors.RenderBadRequest(w, "Only images, PDFs, Word documents and zip archives are allowed")
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "store submission file failed", err, "")
		return
	}

	updated, err := h.assignments.Submit(ctx, a.ID, uid, models.FileMeta{
		FileName: saved.FileName,
		FileURL:  saved.URL,
		FileType: saved.ContentType,
		FileSize: saved.Size,
	})
	if err != nil {
		if derr := h.Uploads.Delete(saved.Path); derr != nil {
			h.Log.Warn("remove orphaned upload failed", zap.String("path", saved.Path), zap.Error(derr))
		}
	}
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		uierrors.RenderNotFound(w, "Assignment not found with id of "+a.ID.Hex())
		return
	case errors.Is(err, assignmentstore.ErrSubmitConflict):
		uierrors.Error(w, http.StatusConflict, "Submission changed while saving, please retry")
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "submit assignment failed", err, "")
		return
	}

	h.Log.Info("assignment submitted",
		zap.String("assignment_id", a.ID.Hex()),
		zap.String("student_id", uid.Hex()),
		zap.Int64("size", saved.Size))
	out, err := h.populate(ctx, r, []models.Assignment{*updated})
	if err != nil {
		h.ErrLog.LogServerError(w, r, "populate assignment failed", err, "")
		return
	}
	uierrors.JSON(w, http.StatusOK, out[0])
}

// HandleGrade records a grade and feedback on one submission. The grade
// must lie between zero and the assignment's points.
// PUT /api/v1/assignments/{id}/grade
func (h *Handler) HandleGrade(w http.ResponseWriter, r *http.Request) {
	uid, _ := authz.UserID(r)

	var in gradeInput
	if err := formutil.DecodeJSON(w, r, &in); err != nil {
		uierrors.RenderBadRequest(w, formutil.Message(err))
		return
	}
	if in.Grade == nil {
		uierrors.RenderBadRequest(w, "grade is required")
		return
	}
	if err := inputval.Struct(in); err != nil {
		uierrors.RenderBadRequest(w, formutil.Message(err))
		return
	}
	subID, _ := primitive.ObjectIDFromHex(in.SubmissionID)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "grade submission")
	defer cancel()

	a := h.load(ctx, w, r)
	if a == nil {
		return
	}
	if !authz.CanManage(r, a.TeacherID) {
		h.ErrLog.LogForbidden(w, r, "grading denied", "Not authorized to grade this assignment")
		return
	}
	limit := a.PointsPossible()
	if !grading.IsFinite(*in.Grade) || *in.Grade < 0 || *in.Grade > limit {
		uierrors.RenderBadRequest(w, fmt.Sprintf("grade must be between 0 and %s", formatPoints(limit)))
		return
	}

	updated, err := h.assignments.Grade(ctx, a.ID, subID, uid, *in.Grade, htmlsanitize.PlainText(in.Feedback))
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		uierrors.RenderNotFound(w, "Assignment not found with id of "+a.ID.Hex())
		return
	case errors.Is(err, assignmentstore.ErrSubmissionNotFound):
		uierrors.RenderNotFound(w, "Submission not found")
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "grade submission failed", err, "")
		return
	}
	h.Log.Info("submission graded",
		zap.String("assignment_id", a.ID.Hex()),
		zap.String("submission_id", subID.Hex()),
		zap.Float64("grade", *in.Grade))
	uierrors.JSON(w, http.StatusOK, updated)
}

func formatPoints(p float64) string {
	if p == float64(int64(p)) {
		return fmt.Sprintf("%d", int64(p))
	}
	return fmt.Sprintf("%g", p)
}
