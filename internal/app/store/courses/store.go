package coursestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/collegeportal/internal/app/system/normalize"
	"github.com/dalemusser/collegeportal/internal/app/system/paging"
	"github.com/dalemusser/collegeportal/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrDuplicateCode   = errors.New("a course with this code already exists")
	ErrAlreadyEnrolled = errors.New("student is already enrolled in this course")
)

// Store reads and writes the courses collection.
type Store struct {
	c *mongo.Collection
}

// New returns a Store bound to db.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("courses")}
}

// Create inserts c with an upper-cased code and fresh timestamps.
func (s *Store) Create(ctx context.Context, c models.Course) (models.Course, error) {
	c.ID = primitive.NewObjectID()
	c.Code = normalize.CourseCode(c.Code)
	if c.StudentIDs == nil {
		c.StudentIDs = []primitive.ObjectID{}
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, c); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Course{}, ErrDuplicateCode
		}
		return models.Course{}, err
	}
	return c, nil
}

// GetByID returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Course, error) {
	var c models.Course
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

// GetByCode looks a course up by code, ignoring case and surrounding space.
func (s *Store) GetByCode(ctx context.Context, code string) (*models.Course, error) {
	var c models.Course
	if err := s.c.FindOne(ctx, bson.M{"code": normalize.CourseCode(code)}).Decode(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

// ListFilter narrows List. Zero fields are ignored.
type ListFilter struct {
	TeacherID  primitive.ObjectID
	StudentID  primitive.ObjectID
	Department string
	Code       string
}

func (f ListFilter) bson() bson.M {
	q := bson.M{}
	if !f.TeacherID.IsZero() {
		q["teacher_id"] = f.TeacherID
	}
	if !f.StudentID.IsZero() {
		q["student_ids"] = f.StudentID
	}
	if f.Department != "" {
		q["department"] = f.Department
	}
	if f.Code != "" {
		q["code"] = normalize.CourseCode(f.Code)
	}
	return q
}

var sortFields = map[string]string{
	"name":       "name",
	"code":       "code",
	"credits":    "credits",
	"department": "department",
	"createdAt":  "created_at",
	"updatedAt":  "updated_at",
}

// ParseSort turns "name,-createdAt" into a sort document. Unknown fields
// are dropped; an empty result falls back to newest first.
func ParseSort(raw string) bson.D {
	var d bson.D
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		dir := 1
		if strings.HasPrefix(part, "-") {
			dir = -1
			part = part[1:]
		}
		if f, ok := sortFields[part]; ok {
			d = append(d, bson.E{Key: f, Value: dir})
		}
	}
	if len(d) == 0 {
		d = bson.D{{Key: "created_at", Value: -1}}
	}
	return append(d, bson.E{Key: "_id", Value: 1})
}

// List returns one page of courses and the total number of matches.
func (s *Store) List(ctx context.Context, f ListFilter, sort bson.D, p paging.Page) ([]models.Course, int64, error) {
	q := f.bson()
	total, err := s.c.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().SetSort(sort).SetSkip(p.Skip()).SetLimit(int64(p.Limit))
	out, err := s.find(ctx, q, opts)
	return out, total, err
}

// Find returns every course matching f ordered by code.
func (s *Store) Find(ctx context.Context, f ListFilter) ([]models.Course, error) {
	return s.find(ctx, f.bson(), options.Find().SetSort(bson.D{{Key: "code", Value: 1}}))
}

// ByIDs returns the courses with the given ids keyed by id.
func (s *Store) ByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Course, error) {
	out := make(map[primitive.ObjectID]models.Course, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	list, err := s.find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find())
	if err != nil {
		return nil, err
	}
	for _, c := range list {
		out[c.ID] = c
	}
	return out, nil
}

func (s *Store) find(ctx context.Context, q bson.M, opts *options.FindOptions) ([]models.Course, error) {
	cur, err := s.c.Find(ctx, q, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.Course{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update holds the editable course fields. Nil fields are left alone.
type Update struct {
	Code        *string
	Name        *string
	Description *string
	Credits     *int
	Department  *string
	Schedule    []models.ScheduleSlot
}

// Update applies upd and returns the updated course.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, upd Update) (*models.Course, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.Code != nil {
		set["code"] = normalize.CourseCode(*upd.Code)
	}
	if upd.Name != nil {
		set["name"] = normalize.Name(*upd.Name)
	}
	if upd.Description != nil {
		set["description"] = *upd.Description
	}
	if upd.Credits != nil {
		set["credits"] = *upd.Credits
	}
	if upd.Department != nil {
		set["department"] = normalize.Name(*upd.Department)
	}
	if upd.Schedule != nil {
		set["schedule"] = upd.Schedule
	}

	var c models.Course
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&c)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return nil, ErrDuplicateCode
		}
		return nil, err
	}
	return &c, nil
}

// Delete removes a course. Returns the number of documents deleted.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// Enroll adds studentID to the course. It returns mongo.ErrNoDocuments for
// an unknown course and ErrAlreadyEnrolled when the student is present.
func (s *Store) Enroll(ctx context.Context, id, studentID primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "student_ids": bson.M{"$ne": studentID}},
		bson.M{
			"$push": bson.M{"student_ids": studentID},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		})
	if err != nil {
		return err
	}
	if res.MatchedCount == 1 {
		return nil
	}
	n, err := s.c.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return err
	}
	if n == 0 {
		return mongo.ErrNoDocuments
	}
	return ErrAlreadyEnrolled
}

// AddResource prepends r to the course's resources and returns it with an
// id and upload time assigned.
func (s *Store) AddResource(ctx context.Context, id primitive.ObjectID, r models.CourseResource) (models.CourseResource, error) {
	r.ID = primitive.NewObjectID()
	r.UploadedAt = time.Now().UTC()

	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$push": bson.M{"resources": bson.M{"$each": bson.A{r}, "$position": 0}},
		"$set":  bson.M{"updated_at": r.UploadedAt},
	})
	if err != nil {
		return models.CourseResource{}, err
	}
	if res.MatchedCount == 0 {
		return models.CourseResource{}, mongo.ErrNoDocuments
	}
	return r, nil
}
