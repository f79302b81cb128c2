package notestore

import (
	"context"
	"time"

	"github.com/dalemusser/collegeportal/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store reads and writes the notes collection.
type Store struct {
	c *mongo.Collection
}

// New returns a Store bound to db.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("notes")}
}

// Create inserts n. An empty tag becomes the first of models.NoteTags.
func (s *Store) Create(ctx context.Context, n models.Note) (models.Note, error) {
	n.ID = primitive.NewObjectID()
	if n.Tag == "" {
		n.Tag = models.NoteTags[0]
	}
	now := time.Now().UTC()
	n.CreatedAt = now
	n.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, n); err != nil {
		return models.Note{}, err
	}
	return n, nil
}

// GetByID returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Note, error) {
	var n models.Note
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&n); err != nil {
		return nil, err
	}
	return &n, nil
}

// ListFilter narrows List. "All" or an empty subject matches every subject.
type ListFilter struct {
	Subject  string
	CourseID primitive.ObjectID
}

// List returns notes grouped by course name and subject, newest first
// within a group.
func (s *Store) List(ctx context.Context, f ListFilter) ([]models.Note, error) {
	q := bson.M{}
	if f.Subject != "" && f.Subject != "All" {
		q["subject"] = f.Subject
	}
	if !f.CourseID.IsZero() {
		q["course_id"] = f.CourseID
	}
	opts := options.Find().SetSort(bson.D{
		{Key: "course_name", Value: 1},
		{Key: "subject", Value: 1},
		{Key: "created_at", Value: -1},
	})
	cur, err := s.c.Find(ctx, q, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.Note{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CountDownload increments the download counter and returns the note.
func (s *Store) CountDownload(ctx context.Context, id primitive.ObjectID) (*models.Note, error) {
	var n models.Note
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id},
		bson.M{"$inc": bson.M{"download_count": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&n)
	if err != nil {
		return nil, err
	}
	return &n, nil
}
