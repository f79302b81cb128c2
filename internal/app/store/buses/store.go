package busstore

import (
	"context"
	"time"

	"github.com/dalemusser/collegeportal/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store reads and writes the buses collection.
type Store struct {
	c *mongo.Collection
}

// New returns a Store bound to db.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("buses")}
}

// Create inserts b with fresh timestamps.
func (s *Store) Create(ctx context.Context, b models.Bus) (models.Bus, error) {
	b.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, b); err != nil {
		return models.Bus{}, err
	}
	return b, nil
}

// GetByID returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Bus, error) {
	var b models.Bus
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&b); err != nil {
		return nil, err
	}
	return &b, nil
}

// Active lists buses in service ordered by route number.
func (s *Store) Active(ctx context.Context) ([]models.Bus, error) {
	cur, err := s.c.Find(ctx, bson.M{"is_active": true},
		options.Find().SetSort(bson.D{{Key: "route_number", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.Bus{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
