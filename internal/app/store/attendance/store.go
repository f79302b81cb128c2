package attendancestore

import (
	"context"
	"time"

	"github.com/dalemusser/collegeportal/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store reads and writes the attendance collection.
type Store struct {
	c *mongo.Collection
}

// New returns a Store bound to db.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("attendance")}
}

// Day truncates t to UTC midnight, the key attendance is stored under.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ValidStatus reports whether s is one of the attendance statuses.
func ValidStatus(s string) bool {
	switch s {
	case models.AttendancePresent, models.AttendanceAbsent, models.AttendanceLate:
		return true
	}
	return false
}

// Mark is one entry of a bulk attendance request.
type Mark struct {
	StudentID primitive.ObjectID
	Status    string
}

// MarkBulk upserts one record per mark for (student, course, day). Marks
// with an unknown status are ignored. The stored records are returned in
// input order.
func (s *Store) MarkBulk(ctx context.Context, courseID primitive.ObjectID, day time.Time, markedBy primitive.ObjectID, marks []Mark) ([]models.Attendance, error) {
	day = Day(day)
	now := time.Now().UTC()
	out := make([]models.Attendance, 0, len(marks))
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	for _, m := range marks {
		if !ValidStatus(m.Status) {
			continue
		}
		var a models.Attendance
		err := s.c.FindOneAndUpdate(ctx,
			bson.M{"student_id": m.StudentID, "course_id": courseID, "date": day},
			bson.M{
				"$set": bson.M{"status": m.Status, "marked_by": markedBy, "updated_at": now},
				"$setOnInsert": bson.M{"created_at": now},
			}, opts).Decode(&a)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// ForStudent lists a student's records, newest first. A zero courseID
// includes every course.
func (s *Store) ForStudent(ctx context.Context, studentID, courseID primitive.ObjectID) ([]models.Attendance, error) {
	q := bson.M{"student_id": studentID}
	if !courseID.IsZero() {
		q["course_id"] = courseID
	}
	return s.find(ctx, q)
}

// ForCourseOn lists a course's records for the day containing t.
func (s *Store) ForCourseOn(ctx context.Context, courseID primitive.ObjectID, t time.Time) ([]models.Attendance, error) {
	return s.find(ctx, bson.M{"course_id": courseID, "date": Day(t)})
}

// ForCourses lists every record of the given courses, newest first.
func (s *Store) ForCourses(ctx context.Context, courseIDs []primitive.ObjectID) ([]models.Attendance, error) {
	return s.find(ctx, bson.M{"course_id": bson.M{"$in": courseIDs}})
}

func (s *Store) find(ctx context.Context, q bson.M) ([]models.Attendance, error) {
	cur, err := s.c.Find(ctx, q, options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.Attendance{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Tally counts statuses over a set of records.
type Tally struct {
	Total   int `json:"total"`
	Present int `json:"present"`
	Late    int `json:"late"`
	Absent  int `json:"absent"`
}

// Add counts one status.
func (t *Tally) Add(status string) {
	t.Total++
	switch status {
	case models.AttendancePresent:
		t.Present++
	case models.AttendanceLate:
		t.Late++
	case models.AttendanceAbsent:
		t.Absent++
	}
}

// Percent is (present + half of late) over total, 0 when empty. Late
// arrivals count as half an attendance.
func (t Tally) Percent() float64 {
	if t.Total == 0 {
		return 0
	}
	return (float64(t.Present) + float64(t.Late)*0.5) / float64(t.Total) * 100
}
