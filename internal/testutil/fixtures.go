package testutil

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/collegeportal/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"
)

// FixturePassword is the plaintext password of every fixture user.
const FixturePassword = "password123"

// WithChiURLParam adds a chi URL parameter to the request context.
// Repeated calls on the same request accumulate parameters.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, _ := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if rctx == nil {
		rctx = chi.NewRouteContext()
		r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	}
	rctx.URLParams.Add(key, value)
	return r
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

func (f *Fixtures) insert(ctx context.Context, coll string, doc any) {
	f.t.Helper()
	if _, err := f.db.Collection(coll).InsertOne(ctx, doc); err != nil {
		f.t.Fatalf("failed to insert into %s: %v", coll, err)
	}
}

// CreateUser inserts a user with FixturePassword.
func (f *Fixtures) CreateUser(ctx context.Context, name, email, role string) models.User {
	f.t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(FixturePassword), bcrypt.MinCost)
	if err != nil {
		f.t.Fatalf("hash password: %v", err)
	}
	now := time.Now().UTC()
	u := models.User{
		ID:           primitive.NewObjectID(),
		Name:         name,
		NameCI:       text.Fold(name),
		Email:        strings.ToLower(email),
		PasswordHash: string(hash),
		Role:         role,
		Department:   "Computer Science",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	f.insert(ctx, "users", u)
	return u
}

func (f *Fixtures) CreateStudent(ctx context.Context, name, email string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, name, email, models.RoleStudent)
}

func (f *Fixtures) CreateTeacher(ctx context.Context, name, email string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, name, email, models.RoleTeacher)
}

func (f *Fixtures) CreateAdmin(ctx context.Context, name, email string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, name, email, models.RoleAdmin)
}

// CreateCourse inserts a course owned by teacherID with the given students
// and a single Monday slot.
func (f *Fixtures) CreateCourse(ctx context.Context, code, name string, teacherID primitive.ObjectID, students ...primitive.ObjectID) models.Course {
	f.t.Helper()

	if students == nil {
		students = []primitive.ObjectID{}
	}
	now := time.Now().UTC()
	c := models.Course{
		ID:         primitive.NewObjectID(),
		Code:       strings.ToUpper(code),
		Name:       name,
		Credits:    3,
		Department: "Computer Science",
		TeacherID:  teacherID,
		Schedule:   []models.ScheduleSlot{{Day: "Monday", StartTime: "09:00", EndTime: "10:00", Room: "A1"}},
		StudentIDs: students,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	f.insert(ctx, "courses", c)
	return c
}

// CreateAssignment inserts an assignment due in a week.
func (f *Fixtures) CreateAssignment(ctx context.Context, title string, course models.Course, points float64) models.Assignment {
	f.t.Helper()

	now := time.Now().UTC()
	a := models.Assignment{
		ID:          primitive.NewObjectID(),
		Title:       title,
		CourseID:    course.ID,
		TeacherID:   course.TeacherID,
		DueDate:     now.Add(7 * 24 * time.Hour),
		Points:      points,
		Submissions: []models.Submission{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	f.insert(ctx, "assignments", a)
	return a
}

// CreateGradedAssignment inserts an assignment carrying one graded
// submission per entry of grades.
func (f *Fixtures) CreateGradedAssignment(ctx context.Context, title string, course models.Course, points float64, gradedAt time.Time, grades map[primitive.ObjectID]float64) models.Assignment {
	f.t.Helper()

	now := time.Now().UTC()
	a := models.Assignment{
		ID:        primitive.NewObjectID(),
		Title:     title,
		CourseID:  course.ID,
		TeacherID: course.TeacherID,
		DueDate:   gradedAt,
		Points:    points,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for sid, g := range grades {
		g := g
		at := gradedAt
		a.Submissions = append(a.Submissions, models.Submission{
			ID:          primitive.NewObjectID(),
			StudentID:   sid,
			SubmittedAt: gradedAt.Add(-time.Hour),
			Grade:       &g,
			GradedAt:    &at,
		})
	}
	f.insert(ctx, "assignments", a)
	return a
}

// CreateExamResult inserts an exam result with a derived percentage.
func (f *Fixtures) CreateExamResult(ctx context.Context, title string, course models.Course, studentID primitive.ObjectID, marks, total float64, examDate time.Time) models.ExamResult {
	f.t.Helper()

	now := time.Now().UTC()
	pct := marks / total * 100
	d := examDate
	r := models.ExamResult{
		ID:            primitive.NewObjectID(),
		ExamTitle:     title,
		ExamDate:      &d,
		CourseID:      course.ID,
		StudentID:     studentID,
		MarksObtained: marks,
		TotalMarks:    total,
		Percentage:    &pct,
		Status:        models.ExamStatusPass,
		UploadedBy:    course.TeacherID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	f.insert(ctx, "exam_results", r)
	return r
}

// ExamResult loads the stored result for (title, course, student), comparing
// titles without regard to case the way imports do. It fails the test when
// no such row exists.
func (f *Fixtures) ExamResult(ctx context.Context, title string, courseID, studentID primitive.ObjectID) models.ExamResult {
	f.t.Helper()

	var r models.ExamResult
	err := f.db.Collection("exam_results").FindOne(ctx,
		bson.M{"exam_title": title, "course_id": courseID, "student_id": studentID},
		options.FindOne().SetCollation(&options.Collation{Locale: "en", Strength: 2})).Decode(&r)
	if err != nil {
		f.t.Fatalf("find exam result %q: %v", title, err)
	}
	return r
}
