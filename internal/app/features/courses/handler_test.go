package courses

import (
	"encoding/json"
	"net/http"
	"testing"

	uierrors "github.com/dalemusser/collegeportal/internal/app/features/errors"
	timetablestore "github.com/dalemusser/collegeportal/internal/app/store/timetable"
	"github.com/dalemusser/collegeportal/internal/domain/models"
	"github.com/dalemusser/collegeportal/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func newTestRouter(t *testing.T) (http.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	return Routes(NewHandler(db, uierrors.NewErrorLogger(logger), logger)), testutil.NewFixtures(t, db)
}

func do(t *testing.T, router http.Handler, req *http.Request) *testutil.ResponseRecorder {
	t.Helper()
	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func validCourse() map[string]any {
	return map[string]any{
		"code":        " cs201 ",
		"name":        "Data Structures",
		"description": "Lists, trees and graphs",
		"credits":     4,
		"department":  "Computer Science",
		"schedule": []map[string]string{
			{"day": "Monday", "startTime": "09:00", "endTime": "10:30", "room": "B2"},
			{"day": "Thursday", "startTime": "14:00", "endTime": "15:30", "room": "B2"},
		},
	}
}

func TestCreateCourse(t *testing.T) {
	router, fx := newTestRouter(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	teacher := fx.CreateTeacher(ctx, "Prof A", "a@x.edu")
	me := testutil.AsTestUser(teacher)

	rec := do(t, router, testutil.NewJSONRequest(t, http.MethodPost, "/", validCourse(), me))
	rec.AssertStatus(t, http.StatusCreated)

	var c models.Course
	rec.DecodeEnvelope(t, &c)
	if c.Code != "CS201" || c.TeacherID != teacher.ID || len(c.Schedule) != 2 {
		t.Errorf("course = %+v", c)
	}
	entries, err := timetablestore.New(fx.DB()).ForCourses(ctx, []primitive.ObjectID{c.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[0].ProfessorID != teacher.ID {
		t.Errorf("timetable entries = %+v", entries)
	}

	t.Run("duplicate code", func(t *testing.T) {
		rec := do(t, router, testutil.NewJSONRequest(t, http.MethodPost, "/", validCourse(), me))
		rec.AssertStatus(t, http.StatusBadRequest)
		rec.AssertContains(t, "already exists")
	})

	t.Run("no schedule", func(t *testing.T) {
		in := validCourse()
		in["code"] = "CS999"
		in["schedule"] = []any{}
		rec := do(t, router, testutil.NewJSONRequest(t, http.MethodPost, "/", in, me))
		rec.AssertStatus(t, http.StatusBadRequest)
		rec.AssertContains(t, "at least one schedule entry")
	})

	t.Run("bad slot time", func(t *testing.T) {
		in := validCourse()
		in["code"] = "CS998"
		in["schedule"] = []map[string]string{{"day": "Monday", "startTime": "9am", "endTime": "10:00", "room": "A"}}
		rec := do(t, router, testutil.NewJSONRequest(t, http.MethodPost, "/", in, me))
		rec.AssertStatus(t, http.StatusBadRequest)
		rec.AssertContains(t, "startTime")
	})

	t.Run("students cannot create", func(t *testing.T) {
		rec := do(t, router, testutil.NewJSONRequest(t, http.MethodPost, "/", validCourse(), testutil.StudentUser()))
		rec.AssertStatus(t, http.StatusForbidden)
	})
}

func TestListCourses(t *testing.T) {
	router, fx := newTestRouter(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	a := fx.CreateTeacher(ctx, "Prof A", "a@x.edu")
	b := fx.CreateTeacher(ctx, "Prof B", "b@x.edu")
	fx.CreateCourse(ctx, "CS101", "Intro", a.ID)
	fx.CreateCourse(ctx, "CS102", "Systems", a.ID)
	fx.CreateCourse(ctx, "MA101", "Calculus", b.ID)

	rec := do(t, router, testutil.NewAuthenticatedRequest(http.MethodGet, "/?teacher=me&sort=code&limit=1", testutil.AsTestUser(a)))
	rec.AssertStatus(t, http.StatusOK)

	var body struct {
		Count      int `json:"count"`
		Pagination struct {
			Next *struct{ Page int } `json:"next"`
			Prev *struct{ Page int } `json:"prev"`
		} `json:"pagination"`
		Data []struct {
			Code    string          `json:"code"`
			Teacher *models.UserRef `json:"teacher"`
		} `json:"data"`
	}
	decodeJSON(t, rec, &body)
	if body.Count != 1 || body.Data[0].Code != "CS101" || body.Data[0].Teacher == nil || body.Data[0].Teacher.Name != "Prof A" {
		t.Errorf("body = %+v", body)
	}
	if body.Pagination.Next == nil || body.Pagination.Next.Page != 2 || body.Pagination.Prev != nil {
		t.Errorf("pagination = %+v", body.Pagination)
	}

	rec = do(t, router, testutil.NewAuthenticatedRequest(http.MethodGet, "/?teacher="+b.ID.Hex(), testutil.StudentUser()))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "MA101")

	rec = do(t, router, testutil.NewAuthenticatedRequest(http.MethodGet, "/?teacher=nope", testutil.StudentUser()))
	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestGetCourse(t *testing.T) {
	router, fx := newTestRouter(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	teacher := fx.CreateTeacher(ctx, "Prof A", "a@x.edu")
	alice := fx.CreateStudent(ctx, "Alice", "alice@x.edu")
	c := fx.CreateCourse(ctx, "CS101", "Intro", teacher.ID, alice.ID)

	rec := do(t, router, testutil.NewAuthenticatedRequest(http.MethodGet, "/"+c.ID.Hex(), testutil.StudentUser()))
	rec.AssertStatus(t, http.StatusOK)
	var got struct {
		Teacher  models.UserRef   `json:"teacher"`
		Students []models.UserRef `json:"students"`
	}
	rec.DecodeEnvelope(t, &got)
	if got.Teacher.Name != "Prof A" || len(got.Students) != 1 || got.Students[0].Email != "alice@x.edu" {
		t.Errorf("course = %+v", got)
	}

	rec = do(t, router, testutil.NewAuthenticatedRequest(http.MethodGet, "/"+primitive.NewObjectID().Hex(), testutil.StudentUser()))
	rec.AssertStatus(t, http.StatusNotFound)

	rec = do(t, router, testutil.NewAuthenticatedRequest(http.MethodGet, "/not-an-id", testutil.StudentUser()))
	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestUpdateAndDeleteOwnership(t *testing.T) {
	router, fx := newTestRouter(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	owner := fx.CreateTeacher(ctx, "Prof A", "a@x.edu")
	c := fx.CreateCourse(ctx, "CS101", "Intro", owner.ID)
	path := "/" + c.ID.Hex()

	rec := do(t, router, testutil.NewJSONRequest(t, http.MethodPut, path, map[string]any{"name": "Hijacked"}, testutil.TeacherUser()))
	rec.AssertStatus(t, http.StatusForbidden)

	rec = do(t, router, testutil.NewJSONRequest(t, http.MethodPut, path, map[string]any{"name": ""}, testutil.AsTestUser(owner)))
	rec.AssertStatus(t, http.StatusBadRequest)

	rec = do(t, router, testutil.NewJSONRequest(t, http.MethodPut, path, map[string]any{"name": "Intro to CS", "credits": 2}, testutil.AsTestUser(owner)))
	rec.AssertStatus(t, http.StatusOK)
	var got models.Course
	rec.DecodeEnvelope(t, &got)
	if got.Name != "Intro to CS" || got.Credits != 2 || got.Code != "CS101" {
		t.Errorf("updated = %+v", got)
	}

	rec = do(t, router, testutil.NewAuthenticatedRequest(http.MethodDelete, path, testutil.TeacherUser()))
	rec.AssertStatus(t, http.StatusForbidden)

	rec = do(t, router, testutil.NewAuthenticatedRequest(http.MethodDelete, path, testutil.AdminUser()))
	rec.AssertStatus(t, http.StatusOK)

	rec = do(t, router, testutil.NewAuthenticatedRequest(http.MethodGet, path, testutil.AdminUser()))
	rec.AssertStatus(t, http.StatusNotFound)
}

func TestEnroll(t *testing.T) {
	router, fx := newTestRouter(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	teacher := fx.CreateTeacher(ctx, "Prof A", "a@x.edu")
	alice := fx.CreateStudent(ctx, "Alice", "alice@x.edu")
	c := fx.CreateCourse(ctx, "CS101", "Intro", teacher.ID)
	path := "/" + c.ID.Hex() + "/enroll"

	rec := do(t, router, testutil.NewAuthenticatedRequest(http.MethodPut, path, testutil.AsTestUser(alice)))
	rec.AssertStatus(t, http.StatusOK)

	rec = do(t, router, testutil.NewAuthenticatedRequest(http.MethodPut, path, testutil.AsTestUser(alice)))
	rec.AssertStatus(t, http.StatusBadRequest)
	rec.AssertContains(t, "already enrolled")

	rec = do(t, router, testutil.NewAuthenticatedRequest(http.MethodPut, "/"+primitive.NewObjectID().Hex()+"/enroll", testutil.AsTestUser(alice)))
	rec.AssertStatus(t, http.StatusNotFound)
}

func TestAddResource(t *testing.T) {
	router, fx := newTestRouter(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	teacher := fx.CreateTeacher(ctx, "Prof A", "a@x.edu")
	c := fx.CreateCourse(ctx, "CS101", "Intro", teacher.ID)
	path := "/" + c.ID.Hex() + "/resources"
	me := testutil.AsTestUser(teacher)

	for _, title := range []string{"Syllabus", "Week 1 slides"} {
		rec := do(t, router, testutil.NewJSONRequest(t, http.MethodPost, path, map[string]string{"title": title, "fileUrl": "/uploads/x.pdf"}, me))
		rec.AssertStatus(t, http.StatusOK)
	}

	rec := do(t, router, testutil.NewAuthenticatedRequest(http.MethodGet, "/"+c.ID.Hex(), me))
	var got struct {
		Resources []models.CourseResource `json:"resources"`
	}
	rec.DecodeEnvelope(t, &got)
	if len(got.Resources) != 2 || got.Resources[0].Title != "Week 1 slides" || got.Resources[0].UploadedBy != teacher.ID {
		t.Errorf("resources = %+v", got.Resources)
	}

	rec = do(t, router, testutil.NewJSONRequest(t, http.MethodPost, path, map[string]string{"title": "x"}, testutil.TeacherUser()))
	rec.AssertStatus(t, http.StatusForbidden)

	rec = do(t, router, testutil.NewJSONRequest(t, http.MethodPost, path, map[string]string{"title": " "}, me))
	rec.AssertStatus(t, http.StatusBadRequest)
}

func decodeJSON(t *testing.T, rec *testutil.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode body: %v (%s)", err, rec.Body.String())
	}
}
