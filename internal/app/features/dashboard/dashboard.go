package dashboard

import (
	"context"
	"fmt"
	"net/http"
	"time"

	uierrors "github.com/dalemusser/collegeportal/internal/app/features/errors"
	coursestore "github.com/dalemusser/collegeportal/internal/app/store/courses"
	"github.com/dalemusser/collegeportal/internal/app/system/authz"
	"github.com/dalemusser/collegeportal/internal/app/system/timeouts"
	"github.com/dalemusser/collegeportal/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	upcomingLimit = 5
	recentLimit   = 5
	courseLimit   = 5
)

type courseRef struct {
	ID   primitive.ObjectID `json:"_id"`
	Name string             `json:"name"`
	Code string             `json:"code"`
}

type assignmentView struct {
	models.Assignment
	Course *courseRef `json:"course"`
}

// TodayClass is one meeting of an enrolled course on the current weekday.
type TodayClass struct {
	ID        primitive.ObjectID `json:"_id"`
	Course    courseRef          `json:"course"`
	Room      string             `json:"room"`
	StartTime string             `json:"startTime"`
	EndTime   string             `json:"endTime"`
}

type studentView struct {
	ActiveCourses       int              `json:"activeCourses"`
	UpcomingAssignments int              `json:"upcomingAssignments"`
	RecentAssignments   []assignmentView `json:"recentAssignments"`
	TodaysClasses       []TodayClass     `json:"todaysClasses"`
	Classmates          int64            `json:"classmates"`
}

type courseSummary struct {
	ID        primitive.ObjectID `json:"_id"`
	Name      string             `json:"name"`
	Code      string             `json:"code"`
	Teacher   primitive.ObjectID `json:"teacher"`
	CreatedAt time.Time          `json:"createdAt"`
}

type staffView struct {
	ActiveCourses     int              `json:"activeCourses"`
	TotalStudents     int64            `json:"totalStudents"`
	RecentAssignments []assignmentView `json:"recentAssignments"`
	Courses           []courseSummary  `json:"courses"`
}

// TodaysClasses returns the first slot of each course that meets on day,
// in course order.
func TodaysClasses(courses []models.Course, day time.Weekday) []TodayClass {
	name := day.String()
	out := []TodayClass{}
	for _, c := range courses {
		for _, s := range c.Schedule {
			if s.Day != name {
				continue
			}
			out = append(out, TodayClass{
				ID:        c.ID,
				Course:    courseRef{ID: c.ID, Name: c.Name, Code: c.Code},
				Room:      s.Room,
				StartTime: s.StartTime,
				EndTime:   s.EndTime,
			})
			break
		}
	}
	return out
}

// enrolled collects the distinct students of courses.
func enrolled(courses []models.Course) []primitive.ObjectID {
	seen := map[primitive.ObjectID]bool{}
	var out []primitive.ObjectID
	for _, c := range courses {
		for _, id := range c.StudentIDs {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}

func (h *Handler) withCourses(ctx context.Context, list []models.Assignment, hideSubmissions bool) ([]assignmentView, error) {
	ids := make([]primitive.ObjectID, 0, len(list))
	for _, a := range list {
		ids = append(ids, a.CourseID)
	}
	courses, err := h.courses.ByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load courses: %w", err)
	}
	out := make([]assignmentView, 0, len(list))
	for _, a := range list {
		if hideSubmissions {
			a.Submissions = []models.Submission{}
		}
		v := assignmentView{Assignment: a}
		if c, ok := courses[a.CourseID]; ok {
			v.Course = &courseRef{ID: c.ID, Name: c.Name, Code: c.Code}
		}
		out = append(out, v)
	}
	return out, nil
}

// ServeDashboard returns the summary for the caller's role.
// GET /api/v1/dashboard
func (h *Handler) ServeDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "dashboard")
	defer cancel()

	if authz.IsStudent(r) {
		h.serveStudent(ctx, w, r)
		return
	}
	if authz.IsStaff(r) {
		h.serveStaff(ctx, w, r)
		return
	}
	uierrors.RenderForbidden(w, "Dashboard is not available for this role")
}

func (h *Handler) serveStudent(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	uid, _ := authz.UserID(r)

	courses, err := h.courses.Find(ctx, coursestore.ListFilter{StudentID: uid})
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load student courses failed", err, "")
		return
	}

	upcoming := []models.Assignment{}
	if len(courses) > 0 {
		ids := make([]primitive.ObjectID, 0, len(courses))
		for _, c := range courses {
			ids = append(ids, c.ID)
		}
		if upcoming, err = h.assignments.UpcomingUnsubmitted(ctx, ids, uid, upcomingLimit); err != nil {
			h.ErrLog.LogServerError(w, r, "load upcoming assignments failed", err, "")
			return
		}
	}
	views, err := h.withCourses(ctx, upcoming, true)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "populate assignments failed", err, "")
		return
	}
	classmates, err := h.users.CountAmong(ctx, enrolled(courses), uid)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "count classmates failed", err, "")
		return
	}

	uierrors.JSON(w, http.StatusOK, studentView{
		ActiveCourses:       len(courses),
		UpcomingAssignments: len(views),
		RecentAssignments:   views,
		TodaysClasses:       TodaysClasses(courses, h.Now().Weekday()),
		Classmates:          classmates,
	})
}

func (h *Handler) serveStaff(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	uid, _ := authz.UserID(r)
	admin := authz.IsAdmin(r)

	var f coursestore.ListFilter
	var teacherID primitive.ObjectID
	if !admin {
		f.TeacherID = uid
		teacherID = uid
	}
	courses, err := h.courses.Find(ctx, f)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load courses failed", err, "")
		return
	}
	recent, err := h.assignments.Recent(ctx, teacherID, recentLimit)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load recent assignments failed", err, "")
		return
	}
	views, err := h.withCourses(ctx, recent, false)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "populate assignments failed", err, "")
		return
	}

	var total int64
	if admin {
		total, err = h.users.CountByRole(ctx, models.RoleStudent)
	} else {
		total, err = h.users.CountAmong(ctx, enrolled(courses), primitive.NilObjectID)
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "count students failed", err, "")
		return
	}

	summaries := make([]courseSummary, 0, courseLimit)
	for i, c := range courses {
		if i == courseLimit {
			break
		}
		summaries = append(summaries, courseSummary{ID: c.ID, Name: c.Name, Code: c.Code, Teacher: c.TeacherID, CreatedAt: c.CreatedAt})
	}

	uierrors.JSON(w, http.StatusOK, staffView{
		ActiveCourses:     len(courses),
		TotalStudents:     total,
		RecentAssignments: views,
		Courses:           summaries,
	})
}
