package courses

import (
	"errors"
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/collegeportal/internal/app/features/errors"
	coursestore "github.com/dalemusser/collegeportal/internal/app/store/courses"
	"github.com/dalemusser/collegeportal/internal/app/system/authz"
	"github.com/dalemusser/collegeportal/internal/app/system/formutil"
	"github.com/dalemusser/collegeportal/internal/app/system/htmlsanitize"
	"github.com/dalemusser/collegeportal/internal/app/system/inputval"
	"github.com/dalemusser/collegeportal/internal/app/system/normalize"
	"github.com/dalemusser/collegeportal/internal/app/system/paging"
	"github.com/dalemusser/collegeportal/internal/app/system/timeouts"
	"github.com/dalemusser/collegeportal/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// listView is a course with its teacher populated.
type listView struct {
	models.Course
	Teacher *models.UserRef `json:"teacher"`
}

// detailView also populates the enrolled students.
type detailView struct {
	models.Course
	Teacher  *models.UserRef  `json:"teacher"`
	Students []models.UserRef `json:"students"`
}

type slotInput struct {
	Day       string `json:"day" validate:"required,oneof=Monday Tuesday Wednesday Thursday Friday Saturday Sunday"`
	StartTime string `json:"startTime" validate:"required,hhmm"`
	EndTime   string `json:"endTime" validate:"required,hhmm"`
	Room      string `json:"room" validate:"notblank"`
}

type createInput struct {
	Code        string      `json:"code" validate:"notblank,max=20"`
	Name        string      `json:"name" validate:"notblank,max=100"`
	Description string      `json:"description" validate:"notblank,max=2000"`
	Credits     int         `json:"credits" validate:"gte=1,lte=12"`
	Department  string      `json:"department" validate:"notblank,max=100"`
	Schedule    []slotInput `json:"schedule" validate:"required,min=1,dive"`
}

type updateInput struct {
	Code        *string     `json:"code" validate:"omitempty,max=20"`
	Name        *string     `json:"name" validate:"omitempty,max=100"`
	Description *string     `json:"description" validate:"omitempty,max=2000"`
	Credits     *int        `json:"credits" validate:"omitempty,gte=1,lte=12"`
	Department  *string     `json:"department" validate:"omitempty,max=100"`
	Schedule    []slotInput `json:"schedule" validate:"omitempty,min=1,dive"`
}

// blankField names the first present but empty required field.
func (in updateInput) blankField() string {
	fields := []struct {
		name string
		v    *string
	}{{"code", in.Code}, {"name", in.Name}, {"department", in.Department}}
	for _, f := range fields {
		if f.v != nil && strings.TrimSpace(*f.v) == "" {
			return f.name
		}
	}
	return ""
}

type resourceInput struct {
	Title       string `json:"title" validate:"notblank,max=200"`
	Description string `json:"description" validate:"max=2000"`
	FileURL     string `json:"fileUrl" validate:"omitempty,max=2000"`
	FileType    string `json:"fileType" validate:"max=100"`
}

func slots(in []slotInput) []models.ScheduleSlot {
	out := make([]models.ScheduleSlot, 0, len(in))
	for _, s := range in {
		out = append(out, models.ScheduleSlot{
			Day:       s.Day,
			StartTime: s.StartTime,
			EndTime:   s.EndTime,
			Room:      strings.TrimSpace(s.Room),
		})
	}
	return out
}

// loadOwned fetches the course named by the id URL parameter and checks
// the caller may manage it. It writes the error response and returns nil
// when the request must stop.
func (h *Handler) loadOwned(w http.ResponseWriter, r *http.Request, action string) *models.Course {
	id, err := formutil.ParamID(r, "id")
	if err != nil {
		uierrors.RenderBadRequest(w, "Invalid course id")
		return nil
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "load course")
	defer cancel()

	c, err := h.courses.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		uierrors.RenderNotFound(w, "Course not found with id of "+id.Hex())
		return nil
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load course failed", err, "")
		return nil
	}
	if !authz.CanManage(r, c.TeacherID) {
		h.ErrLog.LogForbidden(w, r, "course "+action+" denied", "Not authorized to "+action+" this course")
		return nil
	}
	return c
}

// ServeList returns a page of courses.
// GET /api/v1/courses?teacher=me|<id>&department=&sort=&page=&limit=
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	var f coursestore.ListFilter
	switch t := normalize.FilterID(query.Get(r, "teacher")); t {
	case "":
	case "me":
		f.TeacherID, _ = authz.UserID(r)
	default:
		oid, err := formutil.OptionalID(t)
		if err != nil {
			uierrors.RenderBadRequest(w, "Invalid teacher id")
			return
		}
		f.TeacherID = oid
	}
	f.Department = normalize.QueryParam(query.Get(r, "department"))
	f.Code = normalize.QueryParam(query.Get(r, "code"))
	page := paging.Parse(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list courses")
	defer cancel()

	list, total, err := h.courses.List(ctx, f, coursestore.ParseSort(query.Get(r, "sort")), page)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list courses failed", err, "")
		return
	}
	teacherIDs := make([]primitive.ObjectID, 0, len(list))
	for _, c := range list {
		teacherIDs = append(teacherIDs, c.TeacherID)
	}
	refs, err := h.users.Refs(ctx, teacherIDs)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load teachers failed", err, "")
		return
	}

	out := make([]listView, 0, len(list))
	for _, c := range list {
		v := listView{Course: c}
		if t, ok := refs[c.TeacherID]; ok {
			v.Teacher = &t
		}
		out = append(out, v)
	}
	info := paging.Build(page, total)
	uierrors.List(w, out, len(out), &info)
}

// ServeCourse returns one course with teacher and students.
// GET /api/v1/courses/{id}
func (h *Handler) ServeCourse(w http.ResponseWriter, r *http.Request) {
	id, err := formutil.ParamID(r, "id")
	if err != nil {
		uierrors.RenderBadRequest(w, "Invalid course id")
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get course")
	defer cancel()

	c, err := h.courses.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		uierrors.RenderNotFound(w, "Course not found with id of "+id.Hex())
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load course failed", err, "")
		return
	}

	students, err := h.users.RefsOrdered(ctx, c.StudentIDs)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load students failed", err, "")
		return
	}
	v := detailView{Course: *c, Students: students}
	if refs, err := h.users.Refs(ctx, []primitive.ObjectID{c.TeacherID}); err != nil {
		h.ErrLog.LogServerError(w, r, "load teacher failed", err, "")
		return
	} else if t, ok := refs[c.TeacherID]; ok {
		v.Teacher = &t
	}
	uierrors.JSON(w, http.StatusOK, v)
}

// HandleCreate creates a course owned by the caller along with one
// timetable entry per schedule slot. The course is removed again when the
// timetable cannot be written.
// POST /api/v1/courses
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	uid, _ := authz.UserID(r)

	var in createInput
	if err := formutil.DecodeJSON(w, r, &in); err != nil {
		uierrors.RenderBadRequest(w, formutil.Message(err))
		return
	}
	if len(in.Schedule) == 0 {
		uierrors.RenderBadRequest(w, "Please provide at least one schedule entry")
		return
	}
	if err := inputval.Struct(in); err != nil {
		uierrors.RenderBadRequest(w, formutil.Message(err))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "create course")
	defer cancel()

	c, err := h.courses.Create(ctx, models.Course{
		Code:        in.Code,
		Name:        normalize.Name(in.Name),
		Description: htmlsanitize.PlainText(in.Description),
		Credits:     in.Credits,
		Department:  normalize.Name(in.Department),
		TeacherID:   uid,
		Schedule:    slots(in.Schedule),
	})
	if errors.Is(err, coursestore.ErrDuplicateCode) {
		uierrors.RenderBadRequest(w, "A course with this code already exists")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create course failed", err, "")
		return
	}

	if _, err := h.timetable.CreateForCourse(ctx, c.ID, uid, c.Schedule); err != nil {
		h.Log.Warn("timetable entries failed, rolling back course",
			zap.String("course_id", c.ID.Hex()), zap.Error(err))
		if _, derr := h.courses.Delete(ctx, c.ID); derr != nil {
			h.Log.Error("rollback course failed", zap.String("course_id", c.ID.Hex()), zap.Error(derr))
		}
		if _, derr := h.timetable.DeleteForCourse(ctx, c.ID); derr != nil {
			h.Log.Error("rollback timetable failed", zap.String("course_id", c.ID.Hex()), zap.Error(derr))
		}
		uierrors.RenderBadRequest(w, "Unable to create timetable entries for course")
		return
	}

	h.Log.Info("course created", zap.String("course_id", c.ID.Hex()), zap.String("code", c.Code))
	uierrors.JSON(w, http.StatusCreated, c)
}

// HandleUpdate edits a course the caller owns (admins may edit any).
// PUT /api/v1/courses/{id}
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var in updateInput
	if err := formutil.Decode(w, r, &in); err != nil {
		uierrors.RenderBadRequest(w, formutil.Message(err))
		return
	}
	if f := in.blankField(); f != "" {
		uierrors.RenderBadRequest(w, f+" is required")
		return
	}
	if in.Schedule != nil && len(in.Schedule) == 0 {
		uierrors.RenderBadRequest(w, "Please provide at least one schedule entry")
		return
	}
	c := h.loadOwned(w, r, "update")
	if c == nil {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "update course")
	defer cancel()

	upd := coursestore.Update{
		Code:       in.Code,
		Name:       in.Name,
		Credits:    in.Credits,
		Department: in.Department,
	}
	if in.Description != nil {
		d := htmlsanitize.PlainText(*in.Description)
		upd.Description = &d
	}
	if in.Schedule != nil {
		upd.Schedule = slots(in.Schedule)
	}

	updated, err := h.courses.Update(ctx, c.ID, upd)
	switch {
	case errors.Is(err, coursestore.ErrDuplicateCode):
		uierrors.RenderBadRequest(w, "A course with this code already exists")
		return
	case errors.Is(err, mongo.ErrNoDocuments):
		uierrors.RenderNotFound(w, "Course not found with id of "+c.ID.Hex())
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "update course failed", err, "")
		return
	}
	uierrors.JSON(w, http.StatusOK, updated)
}

// HandleDelete removes a course and its timetable entries.
// DELETE /api/v1/courses/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	c := h.loadOwned(w, r, "delete")
	if c == nil {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "delete course")
	defer cancel()

	if _, err := h.courses.Delete(ctx, c.ID); err != nil {
		h.ErrLog.LogServerError(w, r, "delete course failed", err, "")
		return
	}
	if _, err := h.timetable.DeleteForCourse(ctx, c.ID); err != nil {
		h.Log.Warn("delete timetable entries failed", zap.String("course_id", c.ID.Hex()), zap.Error(err))
	}
	h.Log.Info("course deleted", zap.String("course_id", c.ID.Hex()))
	uierrors.Message(w)
}

// HandleEnroll adds the caller to the course's students.
// PUT /api/v1/courses/{id}/enroll
func (h *Handler) HandleEnroll(w http.ResponseWriter, r *http.Request) {
	uid, _ := authz.UserID(r)
	id, err := formutil.ParamID(r, "id")
	if err != nil {
		uierrors.RenderBadRequest(w, "Invalid course id")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "enroll")
	defer cancel()

	err = h.courses.Enroll(ctx, id, uid)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		uierrors.RenderNotFound(w, "Course not found with id of "+id.Hex())
	case errors.Is(err, coursestore.ErrAlreadyEnrolled):
		uierrors.RenderBadRequest(w, "Student is already enrolled in this course")
	case err != nil:
		h.ErrLog.LogServerError(w, r, "enroll failed", err, "")
	default:
		uierrors.Message(w)
	}
}

// HandleAddResource attaches a resource to the front of the course's list.
// POST /api/v1/courses/{id}/resources
func (h *Handler) HandleAddResource(w http.ResponseWriter, r *http.Request) {
	uid, _ := authz.UserID(r)

	var in resourceInput
	if err := formutil.Decode(w, r, &in); err != nil {
		uierrors.RenderBadRequest(w, formutil.Message(err))
		return
	}
	c := h.loadOwned(w, r, "add resources to")
	if c == nil {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "add resource")
	defer cancel()

	res, err := h.courses.AddResource(ctx, c.ID, models.CourseResource{
		Title:       htmlsanitize.PlainText(in.Title),
		Description: htmlsanitize.PlainText(in.Description),
		FileURL:     strings.TrimSpace(in.FileURL),
		FileType:    strings.TrimSpace(in.FileType),
		UploadedBy:  uid,
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		uierrors.RenderNotFound(w, "Course not found with id of "+c.ID.Hex())
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "add resource failed", err, "")
		return
	}
	uierrors.JSON(w, http.StatusOK, res)
}
