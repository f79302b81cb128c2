package examresultstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/collegeportal/internal/app/system/grading"
	"github.com/dalemusser/collegeportal/internal/app/system/indexes"
	"github.com/dalemusser/collegeportal/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrDuplicate is returned when a concurrent upload created the same
// (exam title, course, student) row between our lookup and our insert.
var ErrDuplicate = errors.New("an exam result for this student, course and exam already exists")

// Store reads and writes the exam_results collection.
type Store struct {
	c *mongo.Collection
}

// New returns a Store bound to db.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("exam_results")}
}

// Derive fills in the computed fields of r: percentage when absent or not
// finite, the letter grade when empty, and the pass/fail status.
func Derive(r *models.ExamResult) {
	if r.Percentage == nil || !grading.IsFinite(*r.Percentage) {
		p := grading.Percent(r.MarksObtained, r.TotalMarks)
		r.Percentage = &p
	}
	if r.Grade == "" {
		r.Grade = grading.Letter(*r.Percentage)
	}
	if r.Grade == grading.GradeF {
		r.Status = models.ExamStatusFail
	} else {
		r.Status = models.ExamStatusPass
	}
}

// Upsert stores r keyed by (exam title, course, student), comparing titles
// without regard to case. It reports whether a new document was created.
// The stored title keeps the spelling of the first upload.
func (s *Store) Upsert(ctx context.Context, r models.ExamResult) (created bool, err error) {
	Derive(&r)
	now := time.Now().UTC()

	key := bson.M{"exam_title": r.ExamTitle, "course_id": r.CourseID, "student_id": r.StudentID}
	set := bson.M{
		"marks_obtained": r.MarksObtained,
		"total_marks":    r.TotalMarks,
		"percentage":     *r.Percentage,
		"grade":          r.Grade,
		"status":         r.Status,
		"uploaded_by":    r.UploadedBy,
		"metadata":       r.Metadata,
		"updated_at":     now,
	}
	if r.ExamDate != nil {
		set["exam_date"] = r.ExamDate.UTC()
	}

	res, err := s.c.UpdateOne(ctx, key, bson.M{"$set": set},
		options.Update().SetCollation(indexes.CaseInsensitive))
	if err != nil {
		return false, err
	}
	if res.MatchedCount > 0 {
		return false, nil
	}

	r.ID = primitive.NewObjectID()
	r.CreatedAt = now
	r.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, r); err != nil {
		if wafflemongo.IsDup(err) {
			return false, ErrDuplicate
		}
		return false, err
	}
	return true, nil
}

// ForStudent lists a student's results, newest exam first.
func (s *Store) ForStudent(ctx context.Context, studentID primitive.ObjectID) ([]models.ExamResult, error) {
	return s.find(ctx, bson.M{"student_id": studentID})
}

// ForCourses lists the results of the given courses, newest exam first.
func (s *Store) ForCourses(ctx context.Context, courseIDs []primitive.ObjectID) ([]models.ExamResult, error) {
	return s.find(ctx, bson.M{"course_id": bson.M{"$in": courseIDs}})
}

func (s *Store) find(ctx context.Context, q bson.M) ([]models.ExamResult, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "exam_date", Value: -1},
		{Key: "created_at", Value: -1},
		{Key: "_id", Value: 1},
	})
	cur, err := s.c.Find(ctx, q, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.ExamResult{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
