package attendance

import (
	"net/http"
	"testing"

	uierrors "github.com/dalemusser/collegeportal/internal/app/features/errors"
	"github.com/dalemusser/collegeportal/internal/app/system/sheetutil"
	"github.com/dalemusser/collegeportal/internal/testutil"
	"github.com/xuri/excelize/v2"
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

func TestMarkBulk_ThenViews(t *testing.T) {
	router, fx := newTestRouter(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	prof := fx.CreateTeacher(ctx, "Prof A", "prof.a@x.edu")
	alice := fx.CreateStudent(ctx, "Alice", "alice@x.edu")
	bob := fx.CreateStudent(ctx, "Bob", "bob@x.edu")
	outsider := fx.CreateStudent(ctx, "Eve", "eve@x.edu")
	course := fx.CreateCourse(ctx, "CS101", "Intro", prof.ID, alice.ID, bob.ID)

	markDay := func(date, aliceStatus string) *testutil.ResponseRecorder {
		body := map[string]any{
			"courseId": course.ID.Hex(),
			"date":     date,
			"attendanceData": []map[string]string{
				{"studentId": alice.ID.Hex(), "status": aliceStatus},
				{"studentId": bob.ID.Hex(), "status": "sleeping"},
				{"studentId": outsider.ID.Hex(), "status": "present"},
				{"studentId": "junk", "status": "present"},
			},
		}
		return do(t, router, testutil.NewJSONRequest(t, http.MethodPost, "/mark-bulk", body, testutil.AsTestUser(prof)))
	}

	rec := markDay("2024-03-04", "present")
	rec.AssertStatus(t, http.StatusOK)
	var saved []struct {
		Student string `json:"student"`
		Status  string `json:"status"`
	}
	env := rec.DecodeEnvelope(t, &saved)
	if !env.Success || len(saved) != 1 || saved[0].Student != alice.ID.Hex() {
		t.Fatalf("saved = %+v", saved)
	}

	// Marking the same day again replaces the mark.
	markDay("2024-03-04T15:00:00Z", "late").AssertStatus(t, http.StatusOK)
	markDay("2024-03-05", "absent").AssertStatus(t, http.StatusOK)

	t.Run("student view", func(t *testing.T) {
		rec := do(t, router, testutil.NewAuthenticatedRequest(http.MethodGet, "/", testutil.AsTestUser(alice)))
		rec.AssertStatus(t, http.StatusOK)
		var out struct {
			Overall int `json:"overall"`
			Records []struct {
				Status string `json:"status"`
				Course struct {
					Code string `json:"code"`
				} `json:"course"`
			} `json:"records"`
			SubjectWise []SubjectStat `json:"subjectWise"`
		}
		rec.DecodeEnvelope(t, &out)
		if len(out.Records) != 2 || out.Records[0].Status != "absent" || out.Records[1].Status != "late" {
			t.Fatalf("records = %+v", out.Records)
		}
		if out.Records[0].Course.Code != "CS101" {
			t.Errorf("course not populated: %+v", out.Records[0])
		}
		// (0 present + 0.5 late) / 2 = 25%
		if out.Overall != 25 || len(out.SubjectWise) != 1 || out.SubjectWise[0].Percentage != 25 {
			t.Errorf("overall=%d subjectWise=%+v", out.Overall, out.SubjectWise)
		}
	})

	t.Run("course view by date", func(t *testing.T) {
		target := "/course/" + course.ID.Hex() + "?date=2024-03-04"
		rec := do(t, router, testutil.NewAuthenticatedRequest(http.MethodGet, target, testutil.AsTestUser(prof)))
		rec.AssertStatus(t, http.StatusOK)
		var out struct {
			Course struct {
				Students []struct {
					Name string `json:"name"`
				} `json:"students"`
			} `json:"course"`
			Attendance []struct {
				Status  string `json:"status"`
				Student struct {
					Name string `json:"name"`
				} `json:"student"`
			} `json:"attendance"`
		}
		rec.DecodeEnvelope(t, &out)
		if len(out.Course.Students) != 2 {
			t.Errorf("students = %+v", out.Course.Students)
		}
		if len(out.Attendance) != 1 || out.Attendance[0].Status != "late" || out.Attendance[0].Student.Name != "Alice" {
			t.Errorf("attendance = %+v", out.Attendance)
		}
	})

	t.Run("course view without date", func(t *testing.T) {
		rec := do(t, router, testutil.NewAuthenticatedRequest(http.MethodGet, "/course/"+course.ID.Hex(), testutil.AsTestUser(prof)))
		rec.AssertStatus(t, http.StatusOK)
		rec.AssertContains(t, `"attendance":[]`)
	})
}

func TestMarkBulk_Rejections(t *testing.T) {
	router, fx := newTestRouter(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	prof := fx.CreateTeacher(ctx, "Prof A", "prof.a@x.edu")
	course := fx.CreateCourse(ctx, "CS101", "Intro", prof.ID)
	valid := func() map[string]any {
		return map[string]any{"courseId": course.ID.Hex(), "date": "2024-03-04", "attendanceData": []any{}}
	}

	tests := []struct {
		name   string
		mutate func(map[string]any)
		user   testutil.TestUser
		status int
	}{
		{"missing data", func(b map[string]any) { delete(b, "attendanceData") }, testutil.AsTestUser(prof), http.StatusBadRequest},
		{"missing date", func(b map[string]any) { delete(b, "date") }, testutil.AsTestUser(prof), http.StatusBadRequest},
		{"bad date", func(b map[string]any) { b["date"] = "04/03/2024" }, testutil.AsTestUser(prof), http.StatusBadRequest},
		{"unknown course", func(b map[string]any) { b["courseId"] = primitive.NewObjectID().Hex() }, testutil.AsTestUser(prof), http.StatusNotFound},
		{"foreign teacher", func(map[string]any) {}, testutil.TeacherUser(), http.StatusForbidden},
		{"student", func(map[string]any) {}, testutil.StudentUser(), http.StatusForbidden},
		{"empty list", func(map[string]any) {}, testutil.AsTestUser(prof), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := valid()
			tt.mutate(b)
			rec := do(t, router, testutil.NewJSONRequest(t, http.MethodPost, "/mark-bulk", b, tt.user))
			rec.AssertStatus(t, tt.status)
		})
	}
}

func TestExports(t *testing.T) {
	router, fx := newTestRouter(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	prof := fx.CreateTeacher(ctx, "Prof A", "prof.a@x.edu")
	alice := fx.CreateStudent(ctx, "Alice", "alice@x.edu")
	course := fx.CreateCourse(ctx, "CS101", "Intro", prof.ID, alice.ID)
	fx.CreateCourse(ctx, "MA101", "Calculus", primitive.NewObjectID(), alice.ID)

	body := map[string]any{
		"courseId":       course.ID.Hex(),
		"date":           "2024-03-04",
		"attendanceData": []map[string]string{{"studentId": alice.ID.Hex(), "status": "present"}},
	}
	do(t, router, testutil.NewJSONRequest(t, http.MethodPost, "/mark-bulk", body, testutil.AsTestUser(prof))).
		AssertStatus(t, http.StatusOK)

	t.Run("faculty", func(t *testing.T) {
		rec := do(t, router, testutil.NewAuthenticatedRequest(http.MethodGet, "/export/faculty", testutil.AsTestUser(prof)))
		rec.AssertStatus(t, http.StatusOK)
		if ct := rec.Header().Get("Content-Type"); ct != sheetutil.ContentType {
			t.Fatalf("Content-Type = %q", ct)
		}
		f, err := excelize.OpenReader(rec.Body)
		if err != nil {
			t.Fatalf("open workbook: %v", err)
		}
		defer f.Close()
		if sheets := f.GetSheetList(); len(sheets) != 2 || sheets[0] != "CS101" {
			t.Errorf("teacher export should only hold own courses, got %v", sheets)
		}
		if v, _ := f.GetCellValue("CS101", "G2"); v != "100.00%" {
			t.Errorf("percentage = %q", v)
		}
	})

	t.Run("admin sees every course", func(t *testing.T) {
		rec := do(t, router, testutil.NewAuthenticatedRequest(http.MethodGet, "/export/faculty", testutil.AdminUser()))
		f, err := excelize.OpenReader(rec.Body)
		if err != nil {
			t.Fatalf("open workbook: %v", err)
		}
		defer f.Close()
		if sheets := f.GetSheetList(); len(sheets) != 3 {
			t.Errorf("sheets = %v", sheets)
		}
	})

	t.Run("student", func(t *testing.T) {
		rec := do(t, router, testutil.NewAuthenticatedRequest(http.MethodGet, "/export/student", testutil.AsTestUser(alice)))
		rec.AssertStatus(t, http.StatusOK)
		f, err := excelize.OpenReader(rec.Body)
		if err != nil {
			t.Fatalf("open workbook: %v", err)
		}
		defer f.Close()
		if v, _ := f.GetCellValue("Summary", "A2"); v != "CS101 - Intro" {
			t.Errorf("A2 = %q", v)
		}
		if v, _ := f.GetCellValue("Detailed Records", "C2"); v != "Present" {
			t.Errorf("C2 = %q", v)
		}
	})

	t.Run("student cannot export faculty", func(t *testing.T) {
		rec := do(t, router, testutil.NewAuthenticatedRequest(http.MethodGet, "/export/faculty", testutil.AsTestUser(alice)))
		rec.AssertStatus(t, http.StatusForbidden)
	})
}
