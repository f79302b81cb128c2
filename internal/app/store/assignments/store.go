package assignmentstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/collegeportal/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrSubmitConflict     = errors.New("submission changed concurrently, retry")
)

// Due-date filters for List.
const (
	StatusUpcoming = "upcoming"
	StatusPast     = "past"
)

// Store reads and writes the assignments collection.
type Store struct {
	c   *mongo.Collection
	now func() time.Time
}

// New returns a Store bound to db.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("assignments"), now: func() time.Time { return time.Now().UTC() }}
}

// Create inserts a with fresh timestamps and an empty submission list.
func (s *Store) Create(ctx context.Context, a models.Assignment) (models.Assignment, error) {
	a.ID = primitive.NewObjectID()
	if a.Points <= 0 {
		a.Points = models.DefaultPoints
	}
	if a.Submissions == nil {
		a.Submissions = []models.Submission{}
	}
	now := s.now()
	a.CreatedAt = now
	a.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, a); err != nil {
		return models.Assignment{}, err
	}
	return a, nil
}

// GetByID returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Assignment, error) {
	var a models.Assignment
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&a); err != nil {
		return nil, err
	}
	return &a, nil
}

// ListFilter narrows List. Zero fields are ignored.
type ListFilter struct {
	CourseID  primitive.ObjectID
	CourseIDs []primitive.ObjectID
	TeacherID primitive.ObjectID
	Status    string // StatusUpcoming | StatusPast
}

// List returns matching assignments ordered by due date.
func (s *Store) List(ctx context.Context, f ListFilter) ([]models.Assignment, error) {
	q := bson.M{}
	switch {
	case !f.CourseID.IsZero():
		q["course_id"] = f.CourseID
	case f.CourseIDs != nil:
		q["course_id"] = bson.M{"$in": f.CourseIDs}
	}
	if !f.TeacherID.IsZero() {
		q["teacher_id"] = f.TeacherID
	}
	switch f.Status {
	case StatusUpcoming:
		q["due_date"] = bson.M{"$gte": s.now()}
	case StatusPast:
		q["due_date"] = bson.M{"$lt": s.now()}
	}
	return s.find(ctx, q, options.Find().SetSort(bson.D{{Key: "due_date", Value: 1}, {Key: "_id", Value: 1}}))
}

// UpcomingUnsubmitted lists assignments of courseIDs that are still open and
// that studentID has not submitted, soonest first.
func (s *Store) UpcomingUnsubmitted(ctx context.Context, courseIDs []primitive.ObjectID, studentID primitive.ObjectID, limit int64) ([]models.Assignment, error) {
	q := bson.M{
		"course_id":              bson.M{"$in": courseIDs},
		"due_date":               bson.M{"$gte": s.now()},
		"submissions.student_id": bson.M{"$ne": studentID},
	}
	opts := options.Find().SetSort(bson.D{{Key: "due_date", Value: 1}}).SetLimit(limit)
	return s.find(ctx, q, opts)
}

// Recent lists the newest assignments, optionally limited to one teacher.
func (s *Store) Recent(ctx context.Context, teacherID primitive.ObjectID, limit int64) ([]models.Assignment, error) {
	q := bson.M{}
	if !teacherID.IsZero() {
		q["teacher_id"] = teacherID
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit)
	return s.find(ctx, q, opts)
}

// GradedForStudent returns the assignments holding a graded submission by
// studentID. Other students' submissions are left in place.
func (s *Store) GradedForStudent(ctx context.Context, studentID primitive.ObjectID) ([]models.Assignment, error) {
	q := bson.M{"submissions": bson.M{"$elemMatch": bson.M{
		"student_id": studentID,
		"grade":      bson.M{"$ne": nil},
	}}}
	return s.find(ctx, q, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
}

// WithGradedSubmissions returns every assignment that has at least one
// graded submission, in insertion order.
func (s *Store) WithGradedSubmissions(ctx context.Context) ([]models.Assignment, error) {
	q := bson.M{"submissions": bson.M{"$elemMatch": bson.M{"grade": bson.M{"$ne": nil}}}}
	return s.find(ctx, q, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
}

func (s *Store) find(ctx context.Context, q bson.M, opts *options.FindOptions) ([]models.Assignment, error) {
	cur, err := s.c.Find(ctx, q, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.Assignment{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update holds the editable assignment fields. Nil fields are left alone.
type Update struct {
	Title       *string
	Description *string
	DueDate     *time.Time
	Points      *float64
	CourseID    *primitive.ObjectID
}

// Update applies upd and returns the updated assignment.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, upd Update) (*models.Assignment, error) {
	set := bson.M{"updated_at": s.now()}
	if upd.Title != nil {
		set["title"] = *upd.Title
	}
	if upd.Description != nil {
		set["description"] = *upd.Description
	}
	if upd.DueDate != nil {
		set["due_date"] = upd.DueDate.UTC()
	}
	if upd.Points != nil {
		set["points"] = *upd.Points
	}
	if upd.CourseID != nil {
		set["course_id"] = *upd.CourseID
	}

	var a models.Assignment
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&a)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Delete removes an assignment. Returns the number of documents deleted.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// Submit records studentID's upload for the assignment. An existing
// submission by the same student is replaced in place (file, files and
// submission time; any grade is kept). Otherwise a new submission is
// appended. Both writes are guarded by their filters, so a student never
// ends up with two submissions even when uploads race.
func (s *Store) Submit(ctx context.Context, id, studentID primitive.ObjectID, file models.FileMeta) (*models.Assignment, error) {
	now := s.now()

	// Two rounds cover a concurrent first upload landing between our writes.
	for i := 0; i < 2; i++ {
		res, err := s.c.UpdateOne(ctx,
			bson.M{"_id": id, "submissions.student_id": studentID},
			bson.M{"$set": bson.M{
				"submissions.$.file":         file.FileURL,
				"submissions.$.files":        []models.FileMeta{file},
				"submissions.$.submitted_at": now,
				"updated_at":                 now,
			}})
		if err != nil {
			return nil, err
		}
		if res.MatchedCount == 1 {
			return s.GetByID(ctx, id)
		}

		sub := models.Submission{
			ID:          primitive.NewObjectID(),
			StudentID:   studentID,
			SubmittedAt: now,
			File:        file.FileURL,
			Files:       []models.FileMeta{file},
		}
		res, err = s.c.UpdateOne(ctx,
			bson.M{"_id": id, "submissions.student_id": bson.M{"$ne": studentID}},
			bson.M{
				"$push": bson.M{"submissions": sub},
				"$set":  bson.M{"updated_at": now},
			})
		if err != nil {
			return nil, err
		}
		if res.MatchedCount == 1 {
			return s.GetByID(ctx, id)
		}

		n, err := s.c.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, mongo.ErrNoDocuments
		}
	}
	return nil, ErrSubmitConflict
}

// Grade sets grade and feedback on one submission. It returns
// mongo.ErrNoDocuments for an unknown assignment and ErrSubmissionNotFound
// when the submission is not part of it. Range checks against the
// assignment's points are the caller's job.
func (s *Store) Grade(ctx context.Context, id, submissionID, graderID primitive.ObjectID, grade float64, feedback string) (*models.Assignment, error) {
	now := s.now()
	var a models.Assignment
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "submissions._id": submissionID},
		bson.M{"$set": bson.M{
			"submissions.$.grade":     grade,
			"submissions.$.feedback":  feedback,
			"submissions.$.graded_at": now,
			"submissions.$.graded_by": graderID,
			"updated_at":              now,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&a)
	if err == nil {
		return &a, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}
	n, cerr := s.c.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if cerr != nil {
		return nil, cerr
	}
	if n == 0 {
		return nil, mongo.ErrNoDocuments
	}
	return nil, ErrSubmissionNotFound
}
