package timetable

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/collegeportal/internal/app/features/errors"
	coursestore "github.com/dalemusser/collegeportal/internal/app/store/courses"
	timetablestore "github.com/dalemusser/collegeportal/internal/app/store/timetable"
	"github.com/dalemusser/collegeportal/internal/app/system/authz"
	"github.com/dalemusser/collegeportal/internal/app/system/formutil"
	"github.com/dalemusser/collegeportal/internal/app/system/timeouts"
	"github.com/dalemusser/collegeportal/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type courseRef struct {
	ID   primitive.ObjectID `json:"_id"`
	Name string             `json:"name"`
	Code string             `json:"code"`
}

type professorRef struct {
	ID   primitive.ObjectID `json:"_id"`
	Name string             `json:"name"`
}

type entryView struct {
	models.TimetableEntry
	Course    *courseRef    `json:"course"`
	Professor *professorRef `json:"professor"`
}

type weekView struct {
	Timetable    []entryView `json:"timetable"`
	CurrentClass *entryView  `json:"currentClass"`
	NextClass    *entryView  `json:"nextClass"`
}

type createInput struct {
	Course    string `json:"course" validate:"required,objectid"`
	Day       string `json:"day" validate:"required,oneof=Monday Tuesday Wednesday Thursday Friday Saturday Sunday"`
	StartTime string `json:"startTime" validate:"required,hhmm"`
	EndTime   string `json:"endTime" validate:"required,hhmm"`
	Room      string `json:"room" validate:"notblank,max=50"`
	Professor string `json:"professor" validate:"omitempty,objectid"`
}

type updateInput struct {
	Course    string `json:"course" validate:"omitempty,objectid"`
	Day       string `json:"day" validate:"omitempty,oneof=Monday Tuesday Wednesday Thursday Friday Saturday Sunday"`
	StartTime string `json:"startTime" validate:"omitempty,hhmm"`
	EndTime   string `json:"endTime" validate:"omitempty,hhmm"`
	Room      string `json:"room" validate:"max=50"`
	Professor string `json:"professor" validate:"omitempty,objectid"`
}

var errEndBeforeStart = errors.New("endTime must be after startTime")

func checkSpan(start, end string) error {
	if minutes(end) <= minutes(start) {
		return errEndBeforeStart
	}
	return nil
}

func (h *Handler) populate(ctx context.Context, entries []models.TimetableEntry) ([]entryView, error) {
	courseIDs := make([]primitive.ObjectID, 0, len(entries))
	profIDs := make([]primitive.ObjectID, 0, len(entries))
	for _, e := range entries {
		courseIDs = append(courseIDs, e.CourseID)
		profIDs = append(profIDs, e.ProfessorID)
	}
	courses, err := h.courses.ByIDs(ctx, courseIDs)
	if err != nil {
		return nil, fmt.Errorf("load courses: %w", err)
	}
	profs, err := h.users.Refs(ctx, profIDs)
	if err != nil {
		return nil, fmt.Errorf("load professors: %w", err)
	}

	out := make([]entryView, 0, len(entries))
	for _, e := range entries {
		v := entryView{TimetableEntry: e}
		if c, ok := courses[e.CourseID]; ok {
			v.Course = &courseRef{ID: c.ID, Name: c.Name, Code: c.Code}
		}
		if p, ok := profs[e.ProfessorID]; ok {
			v.Professor = &professorRef{ID: p.ID, Name: p.Name}
		}
		out = append(out, v)
	}
	return out, nil
}

// courseAccess loads a course and checks the caller may schedule it. It
// writes the error response and returns nil when the request must stop.
func (h *Handler) courseAccess(ctx context.Context, w http.ResponseWriter, r *http.Request, id primitive.ObjectID) *models.Course {
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
		h.ErrLog.LogForbidden(w, r, "timetable course access denied", "Not authorized to manage timetable for this course")
		return nil
	}
	return c
}

// loadOwned fetches the entry named by the id URL parameter; teachers must
// be its professor.
func (h *Handler) loadOwned(ctx context.Context, w http.ResponseWriter, r *http.Request, action string) *models.TimetableEntry {
	id, err := formutil.ParamID(r, "id")
	if err != nil {
		uierrors.RenderBadRequest(w, "Invalid timetable entry id")
		return nil
	}
	e, err := h.timetable.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		uierrors.RenderNotFound(w, "Timetable entry not found")
		return nil
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load timetable entry failed", err, "")
		return nil
	}
	if !authz.CanManage(r, e.ProfessorID) {
		h.ErrLog.LogForbidden(w, r, "timetable "+action+" denied", "Not authorized to "+action+" this entry")
		return nil
	}
	return e
}

// ServeList returns the caller's week with the class in progress and the
// next class today. Students see their enrolled courses, teachers the
// classes they teach and admins everything.
// GET /api/v1/timetable
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	role, _, uid, _ := authz.UserCtx(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "timetable")
	defer cancel()

	var entries []models.TimetableEntry
	var err error
	switch role {
	case authz.RoleStudent:
		var courses []models.Course
		courses, err = h.courses.Find(ctx, coursestore.ListFilter{StudentID: uid})
		if err == nil && len(courses) > 0 {
			ids := make([]primitive.ObjectID, 0, len(courses))
			for _, c := range courses {
				ids = append(ids, c.ID)
			}
			entries, err = h.timetable.ForCourses(ctx, ids)
		}
	case authz.RoleTeacher:
		entries, err = h.timetable.ForProfessor(ctx, uid)
	case authz.RoleAdmin:
		entries, err = h.timetable.All(ctx)
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load timetable failed", err, "")
		return
	}

	SortWeek(entries)
	views, err := h.populate(ctx, entries)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "populate timetable failed", err, "")
		return
	}
	out := weekView{Timetable: views}
	cur, next := CurrentAndNext(entries, h.Now())
	if cur >= 0 {
		out.CurrentClass = &views[cur]
	}
	if next >= 0 {
		out.NextClass = &views[next]
	}
	uierrors.JSON(w, http.StatusOK, out)
}

// HandleCreate adds one entry. Teachers always teach their own entries;
// admins may name a professor and otherwise get the course's teacher.
// POST /api/v1/timetable
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	uid, _ := authz.UserID(r)

	var in createInput
	if err := formutil.Decode(w, r, &in); err != nil {
		uierrors.RenderBadRequest(w, formutil.Message(err))
		return
	}
	if err := checkSpan(in.StartTime, in.EndTime); err != nil {
		uierrors.RenderBadRequest(w, err.Error())
		return
	}
	courseID, _ := primitive.ObjectIDFromHex(in.Course)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "create timetable entry")
	defer cancel()

	c := h.courseAccess(ctx, w, r, courseID)
	if c == nil {
		return
	}
	prof := uid
	if authz.IsAdmin(r) {
		prof = c.TeacherID
		if in.Professor != "" {
			prof, _ = primitive.ObjectIDFromHex(in.Professor)
		}
	}

	e, err := h.timetable.Create(ctx, models.TimetableEntry{
		CourseID:    c.ID,
		Day:         in.Day,
		StartTime:   in.StartTime,
		EndTime:     in.EndTime,
		Room:        strings.TrimSpace(in.Room),
		ProfessorID: prof,
	})
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create timetable entry failed", err, "")
		return
	}
	views, err := h.populate(ctx, []models.TimetableEntry{e})
	if err != nil {
		h.ErrLog.LogServerError(w, r, "populate timetable entry failed", err, "")
		return
	}
	h.Log.Info("timetable entry created", zap.String("entry_id", e.ID.Hex()), zap.String("course_id", c.ID.Hex()))
	uierrors.JSON(w, http.StatusCreated, views[0])
}

// HandleUpdate edits an entry. Moving it to another course re-checks
// access to that course. A teacher who edits an entry becomes its
// professor.
// PUT /api/v1/timetable/{id}
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	uid, _ := authz.UserID(r)
	admin := authz.IsAdmin(r)

	var in updateInput
	if err := formutil.Decode(w, r, &in); err != nil {
		uierrors.RenderBadRequest(w, formutil.Message(err))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "update timetable entry")
	defer cancel()

	e := h.loadOwned(ctx, w, r, "update")
	if e == nil {
		return
	}

	upd := timetablestore.Update{
		Day:       in.Day,
		StartTime: in.StartTime,
		EndTime:   in.EndTime,
		Room:      strings.TrimSpace(in.Room),
	}
	start, end := e.StartTime, e.EndTime
	if upd.StartTime != "" {
		start = upd.StartTime
	}
	if upd.EndTime != "" {
		end = upd.EndTime
	}
	if err := checkSpan(start, end); err != nil {
		uierrors.RenderBadRequest(w, err.Error())
		return
	}

	var named primitive.ObjectID
	if in.Professor != "" {
		named, _ = primitive.ObjectIDFromHex(in.Professor)
	}
	if in.Course != "" {
		courseID, _ := primitive.ObjectIDFromHex(in.Course)
		if courseID != e.CourseID {
			c := h.courseAccess(ctx, w, r, courseID)
			if c == nil {
				return
			}
			upd.CourseID = c.ID
			if admin && named.IsZero() {
				upd.ProfessorID = c.TeacherID
			}
		}
	}
	switch {
	case !admin:
		upd.ProfessorID = uid
	case !named.IsZero():
		upd.ProfessorID = named
	}

	updated, err := h.timetable.Update(ctx, e.ID, upd)
	if errors.Is(err, mongo.ErrNoDocuments) {
		uierrors.RenderNotFound(w, "Timetable entry not found")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "update timetable entry failed", err, "")
		return
	}
	views, err := h.populate(ctx, []models.TimetableEntry{*updated})
	if err != nil {
		h.ErrLog.LogServerError(w, r, "populate timetable entry failed", err, "")
		return
	}
	uierrors.JSON(w, http.StatusOK, views[0])
}

// HandleDelete removes an entry.
// DELETE /api/v1/timetable/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "delete timetable entry")
	defer cancel()

	e := h.loadOwned(ctx, w, r, "delete")
	if e == nil {
		return
	}
	if _, err := h.timetable.Delete(ctx, e.ID); err != nil {
		h.ErrLog.LogServerError(w, r, "delete timetable entry failed", err, "")
		return
	}
	h.Log.Info("timetable entry deleted", zap.String("entry_id", e.ID.Hex()))
	uierrors.Message(w)
}
