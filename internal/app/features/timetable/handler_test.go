package timetable

import (
	"net/http"
	"testing"
	"time"

	uierrors "github.com/dalemusser/collegeportal/internal/app/features/errors"
	"github.com/dalemusser/collegeportal/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type entryOut struct {
	ID        string `json:"_id"`
	Day       string `json:"day"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Room      string `json:"room"`
	Course    struct {
		ID   string `json:"_id"`
		Code string `json:"code"`
	} `json:"course"`
	Professor struct {
		ID   string `json:"_id"`
		Name string `json:"name"`
	} `json:"professor"`
}

type weekOut struct {
	Timetable    []entryOut `json:"timetable"`
	CurrentClass *entryOut  `json:"currentClass"`
	NextClass    *entryOut  `json:"nextClass"`
}

// monday10 is a Monday at 10:00 UTC.
var monday10 = time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)

func newTestRouter(t *testing.T) (http.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	h := NewHandler(db, uierrors.NewErrorLogger(logger), logger)
	h.Now = func() time.Time { return monday10 }
	return Routes(h), testutil.NewFixtures(t, db)
}

func do(t *testing.T, router http.Handler, req *http.Request) *testutil.ResponseRecorder {
	t.Helper()
	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func create(t *testing.T, router http.Handler, body map[string]any, user testutil.TestUser) entryOut {
	t.Helper()
	rec := do(t, router, testutil.NewJSONRequest(t, http.MethodPost, "/", body, user))
	rec.AssertStatus(t, http.StatusCreated)
	var out entryOut
	rec.DecodeEnvelope(t, &out)
	return out
}

func TestHandleCreate(t *testing.T) {
	router, fx := newTestRouter(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	profA := fx.CreateTeacher(ctx, "Prof A", "a@x.edu")
	profB := fx.CreateTeacher(ctx, "Prof B", "b@x.edu")
	course := fx.CreateCourse(ctx, "CS101", "Intro", profA.ID)
	userA := testutil.AsTestUser(profA)

	t.Run("teacher owns entry", func(t *testing.T) {
		out := create(t, router, map[string]any{
			"course": course.ID.Hex(), "day": "Tuesday", "startTime": "09:00", "endTime": "10:00", "room": " B2 ",
		}, userA)
		if out.Professor.ID != profA.ID.Hex() || out.Course.Code != "CS101" || out.Room != "B2" {
			t.Errorf("got %+v", out)
		}
	})

	t.Run("admin defaults to course teacher", func(t *testing.T) {
		out := create(t, router, map[string]any{
			"course": course.ID.Hex(), "day": "Friday", "startTime": "13:00", "endTime": "14:00", "room": "C3",
		}, testutil.AdminUser())
		if out.Professor.ID != profA.ID.Hex() {
			t.Errorf("professor = %s, want course teacher", out.Professor.ID)
		}
	})

	t.Run("admin names professor", func(t *testing.T) {
		out := create(t, router, map[string]any{
			"course": course.ID.Hex(), "day": "Friday", "startTime": "15:00", "endTime": "16:00", "room": "C3",
			"professor": profB.ID.Hex(),
		}, testutil.AdminUser())
		if out.Professor.Name != "Prof B" {
			t.Errorf("professor = %+v, want Prof B", out.Professor)
		}
	})

	valid := func(mod func(m map[string]any)) map[string]any {
		m := map[string]any{"course": course.ID.Hex(), "day": "Monday", "startTime": "09:00", "endTime": "10:00", "room": "A1"}
		mod(m)
		return m
	}
	tests := []struct {
		name   string
		body   map[string]any
		user   testutil.TestUser
		status int
	}{
		{"missing room", valid(func(m map[string]any) { delete(m, "room") }), userA, http.StatusBadRequest},
		{"bad day", valid(func(m map[string]any) { m["day"] = "Someday" }), userA, http.StatusBadRequest},
		{"bad time", valid(func(m map[string]any) { m["startTime"] = "9am" }), userA, http.StatusBadRequest},
		{"reversed", valid(func(m map[string]any) { m["startTime"] = "11:00" }), userA, http.StatusBadRequest},
		{"unknown course", valid(func(m map[string]any) { m["course"] = primitive.NewObjectID().Hex() }), userA, http.StatusNotFound},
		{"foreign course", valid(func(m map[string]any) {}), testutil.AsTestUser(profB), http.StatusForbidden},
		{"student", valid(func(m map[string]any) {}), testutil.StudentUser(), http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, testutil.NewJSONRequest(t, http.MethodPost, "/", tt.body, tt.user))
			rec.AssertStatus(t, tt.status)
		})
	}
}

func TestServeList_RoleScoped(t *testing.T) {
	router, fx := newTestRouter(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	profA := fx.CreateTeacher(ctx, "Prof A", "a@x.edu")
	profB := fx.CreateTeacher(ctx, "Prof B", "b@x.edu")
	student := fx.CreateStudent(ctx, "Stu", "s@x.edu")
	cs := fx.CreateCourse(ctx, "CS101", "Intro", profA.ID, student.ID)
	ma := fx.CreateCourse(ctx, "MA101", "Calculus", profB.ID)

	userA, userB := testutil.AsTestUser(profA), testutil.AsTestUser(profB)
	create(t, router, map[string]any{"course": cs.ID.Hex(), "day": "Monday", "startTime": "11:00", "endTime": "12:00", "room": "A2"}, userA)
	create(t, router, map[string]any{"course": cs.ID.Hex(), "day": "Monday", "startTime": "09:30", "endTime": "10:30", "room": "A1"}, userA)
	create(t, router, map[string]any{"course": cs.ID.Hex(), "day": "Thursday", "startTime": "08:00", "endTime": "09:00", "room": "A3"}, userA)
	create(t, router, map[string]any{"course": ma.ID.Hex(), "day": "Monday", "startTime": "08:00", "endTime": "09:00", "room": "M1"}, userB)

	list := func(user testutil.TestUser) weekOut {
		rec := do(t, router, testutil.NewAuthenticatedRequest(http.MethodGet, "/", user))
		rec.AssertStatus(t, http.StatusOK)
		var out weekOut
		rec.DecodeEnvelope(t, &out)
		return out
	}

	t.Run("student", func(t *testing.T) {
		out := list(testutil.AsTestUser(student))
		if len(out.Timetable) != 3 {
			t.Fatalf("got %d entries, want 3", len(out.Timetable))
		}
		rooms := []string{out.Timetable[0].Room, out.Timetable[1].Room, out.Timetable[2].Room}
		if rooms[0] != "A1" || rooms[1] != "A2" || rooms[2] != "A3" {
			t.Errorf("order = %v", rooms)
		}
		if out.CurrentClass == nil || out.CurrentClass.Room != "A1" {
			t.Errorf("currentClass = %+v", out.CurrentClass)
		}
		if out.NextClass == nil || out.NextClass.Room != "A2" {
			t.Errorf("nextClass = %+v", out.NextClass)
		}
	})

	t.Run("teacher", func(t *testing.T) {
		out := list(userB)
		if len(out.Timetable) != 1 || out.Timetable[0].Room != "M1" {
			t.Errorf("got %+v", out.Timetable)
		}
		if out.CurrentClass != nil || out.NextClass != nil {
			t.Errorf("expected no current or next class, got %+v / %+v", out.CurrentClass, out.NextClass)
		}
	})

	t.Run("admin", func(t *testing.T) {
		if out := list(testutil.AdminUser()); len(out.Timetable) != 4 {
			t.Errorf("got %d entries, want 4", len(out.Timetable))
		}
	})

	t.Run("unenrolled student", func(t *testing.T) {
		rec := do(t, router, testutil.NewAuthenticatedRequest(http.MethodGet, "/", testutil.StudentUser()))
		rec.AssertStatus(t, http.StatusOK)
		rec.AssertContains(t, `"timetable":[]`)
	})
}

func TestUpdateAndDelete(t *testing.T) {
	router, fx := newTestRouter(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	profA := fx.CreateTeacher(ctx, "Prof A", "a@x.edu")
	profB := fx.CreateTeacher(ctx, "Prof B", "b@x.edu")
	cs := fx.CreateCourse(ctx, "CS101", "Intro", profA.ID)
	ma := fx.CreateCourse(ctx, "MA101", "Calculus", profB.ID)
	userA, userB := testutil.AsTestUser(profA), testutil.AsTestUser(profB)

	e := create(t, router, map[string]any{"course": cs.ID.Hex(), "day": "Monday", "startTime": "09:00", "endTime": "10:00", "room": "A1"}, userA)

	t.Run("other teacher", func(t *testing.T) {
		rec := do(t, router, testutil.NewJSONRequest(t, http.MethodPut, "/"+e.ID, map[string]any{"room": "Z"}, userB))
		rec.AssertStatus(t, http.StatusForbidden)
		rec.AssertContains(t, "Not authorized to update this entry")
		rec = do(t, router, testutil.NewAuthenticatedRequest(http.MethodDelete, "/"+e.ID, userB))
		rec.AssertStatus(t, http.StatusForbidden)
	})

	t.Run("partial update", func(t *testing.T) {
		rec := do(t, router, testutil.NewJSONRequest(t, http.MethodPut, "/"+e.ID, map[string]any{"room": "B7", "endTime": "10:30"}, userA))
		rec.AssertStatus(t, http.StatusOK)
		var out entryOut
		rec.DecodeEnvelope(t, &out)
		if out.Room != "B7" || out.EndTime != "10:30" || out.StartTime != "09:00" || out.Day != "Monday" {
			t.Errorf("got %+v", out)
		}
	})

	t.Run("end before existing start", func(t *testing.T) {
		rec := do(t, router, testutil.NewJSONRequest(t, http.MethodPut, "/"+e.ID, map[string]any{"endTime": "08:00"}, userA))
		rec.AssertStatus(t, http.StatusBadRequest)
	})

	t.Run("move to foreign course", func(t *testing.T) {
		rec := do(t, router, testutil.NewJSONRequest(t, http.MethodPut, "/"+e.ID, map[string]any{"course": ma.ID.Hex()}, userA))
		rec.AssertStatus(t, http.StatusForbidden)
	})

	t.Run("admin moves course", func(t *testing.T) {
		rec := do(t, router, testutil.NewJSONRequest(t, http.MethodPut, "/"+e.ID, map[string]any{"course": ma.ID.Hex()}, testutil.AdminUser()))
		rec.AssertStatus(t, http.StatusOK)
		var out entryOut
		rec.DecodeEnvelope(t, &out)
		if out.Course.Code != "MA101" || out.Professor.ID != profB.ID.Hex() {
			t.Errorf("got %+v", out)
		}
	})

	t.Run("delete", func(t *testing.T) {
		rec := do(t, router, testutil.NewAuthenticatedRequest(http.MethodDelete, "/"+e.ID, userB))
		rec.AssertStatus(t, http.StatusOK)
		rec = do(t, router, testutil.NewAuthenticatedRequest(http.MethodDelete, "/"+e.ID, userB))
		rec.AssertStatus(t, http.StatusNotFound)
	})

	t.Run("bad id", func(t *testing.T) {
		rec := do(t, router, testutil.NewJSONRequest(t, http.MethodPut, "/nope", map[string]any{"room": "Z"}, userA))
		rec.AssertStatus(t, http.StatusBadRequest)
	})
}
