package attendance

import (
	"errors"
	"net/http"
	"strings"
	"time"

	uierrors "github.com/dalemusser/collegeportal/internal/app/features/errors"
	attendancestore "github.com/dalemusser/collegeportal/internal/app/store/attendance"
	coursestore "github.com/dalemusser/collegeportal/internal/app/store/courses"
	"github.com/dalemusser/collegeportal/internal/app/system/authz"
	"github.com/dalemusser/collegeportal/internal/app/system/formutil"
	"github.com/dalemusser/collegeportal/internal/app/system/inputval"
	"github.com/dalemusser/collegeportal/internal/app/system/normalize"
	"github.com/dalemusser/collegeportal/internal/app/system/sheetutil"
	"github.com/dalemusser/collegeportal/internal/app/system/timeouts"
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

type recordView struct {
	models.Attendance
	Course  *courseRef      `json:"course,omitempty"`
	Student *models.UserRef `json:"student,omitempty"`
}

type mineView struct {
	Overall     int           `json:"overall"`
	Records     []recordView  `json:"records"`
	SubjectWise []SubjectStat `json:"subjectWise"`
}

type courseView struct {
	models.Course
	Students []models.UserRef `json:"students"`
}

type markInput struct {
	StudentID string `json:"studentId"`
	Status    string `json:"status"`
}

type bulkInput struct {
	CourseID       string      `json:"courseId" validate:"required,objectid"`
	Date           string      `json:"date" validate:"notblank"`
	AttendanceData []markInput `json:"attendanceData" validate:"required"`
}

var dayLayouts = []string{"2006-01-02", time.RFC3339}

// parseDay reads a calendar date or an RFC 3339 timestamp.
func parseDay(s string) (time.Time, bool) {
	for _, layout := range dayLayouts {
		if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			return attendancestore.Day(t), true
		}
	}
	return time.Time{}, false
}

func (h *Handler) loadCourse(w http.ResponseWriter, r *http.Request, id primitive.ObjectID, denied string) *models.Course {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "load course")
	defer cancel()

	c, err := h.courses.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		uierrors.RenderNotFound(w, "Course not found")
		return nil
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load course failed", err, "")
		return nil
	}
	if !authz.CanManage(r, c.TeacherID) {
		h.ErrLog.LogForbidden(w, r, "attendance access denied", denied)
		return nil
	}
	return c
}

// ServeMine returns the caller's attendance records with overall and
// per-course percentages. Late counts as half an attendance.
// GET /api/v1/attendance?courseId=
func (h *Handler) ServeMine(w http.ResponseWriter, r *http.Request) {
	uid, _ := authz.UserID(r)
	courseID, err := formutil.OptionalID(normalize.FilterID(query.Get(r, "courseId")))
	if err != nil {
		uierrors.RenderBadRequest(w, "Invalid course id")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "my attendance")
	defer cancel()

	records, err := h.attendance.ForStudent(ctx, uid, courseID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load attendance failed", err, "")
		return
	}
	ids := make([]primitive.ObjectID, 0, len(records))
	for _, rec := range records {
		ids = append(ids, rec.CourseID)
	}
	courses, err := h.courses.ByIDs(ctx, ids)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load courses failed", err, "")
		return
	}

	ov := Summarize(records, courses)
	out := mineView{Overall: ov.Overall, SubjectWise: ov.SubjectWise, Records: make([]recordView, 0, len(records))}
	for _, rec := range records {
		v := recordView{Attendance: rec}
		if c, ok := courses[rec.CourseID]; ok {
			v.Course = &courseRef{ID: c.ID, Name: c.Name, Code: c.Code}
		}
		out.Records = append(out.Records, v)
	}
	uierrors.JSON(w, http.StatusOK, out)
}

// ServeCourse returns a course with its students and, when date is given,
// the marks recorded on that day.
// GET /api/v1/attendance/course/{courseId}?date=YYYY-MM-DD
func (h *Handler) ServeCourse(w http.ResponseWriter, r *http.Request) {
	id, err := formutil.ParamID(r, "courseId")
	if err != nil {
		uierrors.RenderBadRequest(w, "Invalid course id")
		return
	}
	var day time.Time
	if raw := normalize.QueryParam(query.Get(r, "date")); raw != "" {
		d, ok := parseDay(raw)
		if !ok {
			uierrors.RenderBadRequest(w, "Invalid date, use YYYY-MM-DD")
			return
		}
		day = d
	}

	c := h.loadCourse(w, r, id, "Not authorized to view this course attendance")
	if c == nil {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "course attendance")
	defer cancel()

	students, err := h.users.RefsOrdered(ctx, c.StudentIDs)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load students failed", err, "")
		return
	}
	records := []models.Attendance{}
	if !day.IsZero() {
		if records, err = h.attendance.ForCourseOn(ctx, c.ID, day); err != nil {
			h.ErrLog.LogServerError(w, r, "load course attendance failed", err, "")
			return
		}
	}

	refs := make(map[primitive.ObjectID]models.UserRef, len(students))
	for _, s := range students {
		refs[s.ID] = s
	}
	marks := make([]recordView, 0, len(records))
	for _, rec := range records {
		v := recordView{Attendance: rec}
		if s, ok := refs[rec.StudentID]; ok {
			v.Student = &s
		}
		marks = append(marks, v)
	}
	uierrors.JSON(w, http.StatusOK, map[string]any{
		"course":     courseView{Course: *c, Students: students},
		"attendance": marks,
	})
}

// HandleMarkBulk records one status per student for a course and day,
// replacing earlier marks. Entries with an unknown status, a malformed
// student id or a student not enrolled in the course are ignored.
// POST /api/v1/attendance/mark-bulk
func (h *Handler) HandleMarkBulk(w http.ResponseWriter, r *http.Request) {
	uid, _ := authz.UserID(r)

	var in bulkInput
	if err := formutil.DecodeJSON(w, r, &in); err != nil {
		uierrors.RenderBadRequest(w, formutil.Message(err))
		return
	}
	if err := inputval.Struct(in); err != nil {
		uierrors.RenderBadRequest(w, "Please provide courseId, date, and attendanceData array")
		return
	}
	day, ok := parseDay(in.Date)
	if !ok {
		uierrors.RenderBadRequest(w, "Invalid date, use YYYY-MM-DD")
		return
	}
	courseID, _ := primitive.ObjectIDFromHex(in.CourseID)

	c := h.loadCourse(w, r, courseID, "Not authorized to mark attendance for this course")
	if c == nil {
		return
	}

	marks := make([]attendancestore.Mark, 0, len(in.AttendanceData))
	for _, m := range in.AttendanceData {
		sid, err := primitive.ObjectIDFromHex(strings.TrimSpace(m.StudentID))
		if err != nil || !c.HasStudent(sid) {
			continue
		}
		marks = append(marks, attendancestore.Mark{StudentID: sid, Status: strings.ToLower(strings.TrimSpace(m.Status))})
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "mark attendance")
	defer cancel()

	saved, err := h.attendance.MarkBulk(ctx, c.ID, day, uid, marks)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "mark attendance failed", err, "")
		return
	}
	h.Log.Info("attendance marked",
		zap.String("course_id", c.ID.Hex()),
		zap.String("date", day.Format("2006-01-02")),
		zap.Int("requested", len(in.AttendanceData)),
		zap.Int("saved", len(saved)))
	uierrors.List(w, saved, len(saved), nil)
}

// ServeFacultyExport downloads an xlsx report covering the caller's
// courses (every course for admins).
// GET /api/v1/attendance/export/faculty
func (h *Handler) ServeFacultyExport(w http.ResponseWriter, r *http.Request) {
	var f coursestore.ListFilter
	if !authz.IsAdmin(r) {
		f.TeacherID, _ = authz.UserID(r)
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "faculty attendance export")
	defer cancel()

	courses, err := h.courses.Find(ctx, f)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load courses failed", err, "")
		return
	}
	var courseIDs, studentIDs []primitive.ObjectID
	for _, c := range courses {
		courseIDs = append(courseIDs, c.ID)
		studentIDs = append(studentIDs, c.StudentIDs...)
	}
	students, err := h.users.Refs(ctx, studentIDs)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load students failed", err, "")
		return
	}
	var records []models.Attendance
	if len(courseIDs) > 0 {
		if records, err = h.attendance.ForCourses(ctx, courseIDs); err != nil {
			h.ErrLog.LogServerError(w, r, "load attendance failed", err, "")
			return
		}
	}

	book, err := FacultyWorkbook(courses, students, records)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "build attendance workbook failed", err, "")
		return
	}
	defer book.Close()

	name := "Attendance_Report_" + time.Now().UTC().Format("2006-01-02") + ".xlsx"
	if err := sheetutil.Send(w, book, name); err != nil {
		h.Log.Warn("send attendance workbook failed", zap.Error(err))
	}
}

// ServeStudentExport downloads the caller's own attendance as xlsx.
// GET /api/v1/attendance/export/student
func (h *Handler) ServeStudentExport(w http.ResponseWriter, r *http.Request) {
	uid, _ := authz.UserID(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "student attendance export")
	defer cancel()

	records, err := h.attendance.ForStudent(ctx, uid, primitive.NilObjectID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load attendance failed", err, "")
		return
	}
	ids := make([]primitive.ObjectID, 0, len(records))
	for _, rec := range records {
		ids = append(ids, rec.CourseID)
	}
	courses, err := h.courses.ByIDs(ctx, ids)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load courses failed", err, "")
		return
	}

	label := uid.Hex()
	if u, err := h.users.GetByID(ctx, uid); err == nil && u.StudentID != "" {
		label = u.StudentID
	}

	book, err := StudentWorkbook(records, courses)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "build attendance workbook failed", err, "")
		return
	}
	defer book.Close()

	name := "My_Attendance_" + label + "_" + time.Now().UTC().Format("2006-01-02") + ".xlsx"
	if err := sheetutil.Send(w, book, name); err != nil {
		h.Log.Warn("send attendance workbook failed", zap.Error(err))
	}
}
