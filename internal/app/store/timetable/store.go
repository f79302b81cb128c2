package timetablestore

import (
	"context"
	"time"

	"github.com/dalemusser/collegeportal/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store reads and writes the timetable collection.
type Store struct {
	c *mongo.Collection
}

// New returns a Store bound to db.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("timetable")}
}

// CreateForCourse inserts one entry per schedule slot.
func (s *Store) CreateForCourse(ctx context.Context, courseID, professorID primitive.ObjectID, slots []models.ScheduleSlot) ([]models.TimetableEntry, error) {
	now := time.Now().UTC()
	entries := make([]models.TimetableEntry, 0, len(slots))
	docs := make([]any, 0, len(slots))
	for _, sl := range slots {
		e := models.TimetableEntry{
			ID:          primitive.NewObjectID(),
			CourseID:    courseID,
			Day:         sl.Day,
			StartTime:   sl.StartTime,
			EndTime:     sl.EndTime,
			Room:        sl.Room,
			ProfessorID: professorID,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		entries = append(entries, e)
		docs = append(docs, e)
	}
	if len(docs) == 0 {
		return entries, nil
	}
	if _, err := s.c.InsertMany(ctx, docs); err != nil {
		return nil, err
	}
	return entries, nil
}

// Create inserts a single entry.
func (s *Store) Create(ctx context.Context, e models.TimetableEntry) (models.TimetableEntry, error) {
	e.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, e); err != nil {
		return models.TimetableEntry{}, err
	}
	return e, nil
}

// GetByID returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.TimetableEntry, error) {
	var e models.TimetableEntry
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&e); err != nil {
		return nil, err
	}
	return &e, nil
}

// ForCourses lists entries of the given courses ordered by start time.
func (s *Store) ForCourses(ctx context.Context, courseIDs []primitive.ObjectID) ([]models.TimetableEntry, error) {
	return s.find(ctx, bson.M{"course_id": bson.M{"$in": courseIDs}})
}

// ForProfessor lists the entries taught by professorID ordered by start time.
func (s *Store) ForProfessor(ctx context.Context, professorID primitive.ObjectID) ([]models.TimetableEntry, error) {
	return s.find(ctx, bson.M{"professor_id": professorID})
}

// All lists every entry ordered by start time.
func (s *Store) All(ctx context.Context) ([]models.TimetableEntry, error) {
	return s.find(ctx, bson.M{})
}

func (s *Store) find(ctx context.Context, q bson.M) ([]models.TimetableEntry, error) {
	cur, err := s.c.Find(ctx, q, options.Find().SetSort(bson.D{{Key: "start_time", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.TimetableEntry{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update holds the editable entry fields. Empty strings and zero ids are
// left alone.
type Update struct {
	CourseID    primitive.ObjectID
	ProfessorID primitive.ObjectID
	Day         string
	StartTime   string
	EndTime     string
	Room        string
}

// Update applies upd and returns the updated entry.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, upd Update) (*models.TimetableEntry, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	for k, v := range map[string]string{"day": upd.Day, "start_time": upd.StartTime, "end_time": upd.EndTime, "room": upd.Room} {
		if v != "" {
			set[k] = v
		}
	}
	if !upd.CourseID.IsZero() {
		set["course_id"] = upd.CourseID
	}
	if !upd.ProfessorID.IsZero() {
		set["professor_id"] = upd.ProfessorID
	}
	var e models.TimetableEntry
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&e)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Delete removes one entry.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteForCourse removes every entry of a course.
func (s *Store) DeleteForCourse(ctx context.Context, courseID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"course_id": courseID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
