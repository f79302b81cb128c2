package indexes_test

import (
	"testing"

	"github.com/dalemusser/collegeportal/internal/app/system/indexes"
	"github.com/dalemusser/collegeportal/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("first EnsureAll failed: %v", err)
	}
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesNamedIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	want := map[string][]string{
		"users":        {"uniq_users_email", "idx_users_role_name"},
		"courses":      {"uniq_courses_code", "idx_courses_teacher_code", "idx_courses_students"},
		"assignments":  {"idx_assignments_course_due", "idx_assignments_submission_student"},
		"exam_results": {"uniq_exam_results_title_course_student", "idx_exam_results_student_date"},
		"attendance":   {"uniq_attendance_student_course_date"},
		"notes":        {"idx_notes_created"},
		"timetable":    {"idx_timetable_course_day"},
		"buses":        {"uniq_buses_route_number"},
	}

	for coll, names := range want {
		cur, err := db.Collection(coll).Indexes().List(ctx)
		if err != nil {
			t.Fatalf("list %s indexes: %v", coll, err)
		}
		have := map[string]bool{}
		for cur.Next(ctx) {
			var idx bson.M
			if err := cur.Decode(&idx); err == nil {
				have[idx["name"].(string)] = true
			}
		}
		cur.Close(ctx)

		for _, n := range names {
			if !have[n] {
				t.Errorf("expected index %q on %s", n, coll)
			}
		}
	}
}

func TestEnsureAll_ExamResultUniqueIgnoresCase(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	course, student := primitive.NewObjectID(), primitive.NewObjectID()
	coll := db.Collection("exam_results")
	if _, err := coll.InsertOne(ctx, bson.M{"exam_title": "Midterm", "course_id": course, "student_id": student}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	_, err := coll.InsertOne(ctx, bson.M{"exam_title": "MIDTERM", "course_id": course, "student_id": student})
	if err == nil {
		t.Error("expected duplicate key error for case-variant exam title")
	}
}

func TestEnsureAll_CourseCodeUnique(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	if _, err := db.Collection("courses").InsertOne(ctx, bson.M{"code": "CS101"}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := db.Collection("courses").InsertOne(ctx, bson.M{"code": "CS101"}); err == nil {
		t.Error("expected duplicate key error on courses.code")
	}
}
