package userstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/collegeportal/internal/app/system/normalize"
	"github.com/dalemusser/collegeportal/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrDuplicateEmail is returned when the email belongs to another user.
	ErrDuplicateEmail = errors.New("a user with this email already exists")
	// ErrBadCredentials hides whether the email or the password was wrong.
	ErrBadCredentials = errors.New("invalid credentials")
	errBadRole        = errors.New(`role must be "student"|"teacher"|"admin"`)
	errEmptyPassword  = errors.New("password is required")
)

// Store manages user accounts and their password hashes.
type Store struct {
	c *mongo.Collection
}

// New returns a user Store bound to db.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

// GetByID loads a user by ObjectID. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByEmail looks up a user by case-insensitive email. Returns
// mongo.ErrNoDocuments if not found.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Create hashes password and inserts u. An empty role defaults to student.
func (s *Store) Create(ctx context.Context, u models.User, password string) (models.User, error) {
	if password == "" {
		return models.User{}, errEmptyPassword
	}
	u.ID = primitive.NewObjectID()
	u.Name = normalize.Name(u.Name)
	u.NameCI = text.Fold(u.Name)
	u.Email = normalize.Email(u.Email)
	u.Role = normalize.Role(u.Role)
	if u.Role == "" {
		u.Role = models.RoleStudent
	}
	switch u.Role {
	case models.RoleStudent, models.RoleTeacher, models.RoleAdmin:
	default:
		return models.User{}, errBadRole
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, err
	}
	u.PasswordHash = string(hash)

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return u, nil
}

// Authenticate returns the user whose email and password match. Unknown
// emails and wrong passwords both yield ErrBadCredentials.
func (s *Store) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	u, err := s.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrBadCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrBadCredentials
	}
	return u, nil
}

// ProfileUpdate holds the self-editable fields. Nil fields are left alone.
type ProfileUpdate struct {
	Name       *string
	Email      *string
	Phone      *string
	Department *string
}

// UpdateProfile applies upd and returns the updated user. Returns
// mongo.ErrNoDocuments for an unknown id and ErrDuplicateEmail when the
// new email is taken.
func (s *Store) UpdateProfile(ctx context.Context, id primitive.ObjectID, upd ProfileUpdate) (*models.User, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.Name != nil {
		name := normalize.Name(*upd.Name)
		set["name"] = name
		set["name_ci"] = text.Fold(name)
	}
	if upd.Email != nil {
		set["email"] = normalize.Email(*upd.Email)
	}
	if upd.Phone != nil {
		set["phone"] = *upd.Phone
	}
	if upd.Department != nil {
		set["department"] = normalize.Name(*upd.Department)
	}

	var u models.User
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&u)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return &u, nil
}

// EmailExistsForOther checks if email belongs to a user other than excludeID.
func (s *Store) EmailExistsForOther(ctx context.Context, email string, excludeID primitive.ObjectID) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{
		"email": normalize.Email(email),
		"_id":   bson.M{"$ne": excludeID},
	}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

var refProjection = bson.M{"name": 1, "email": 1, "student_id": 1, "department": 1}

// Refs returns the populated projection of each existing user in ids.
// Unknown ids are absent from the map.
func (s *Store) Refs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.UserRef, error) {
	out := make(map[primitive.ObjectID]models.UserRef, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find().SetProjection(refProjection))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var r models.UserRef
		if err := cur.Decode(&r); err != nil {
			return nil, err
		}
		out[r.ID] = r
	}
	return out, cur.Err()
}

// RefsOrdered returns refs for ids in the given order, skipping unknown ids.
func (s *Store) RefsOrdered(ctx context.Context, ids []primitive.ObjectID) ([]models.UserRef, error) {
	m, err := s.Refs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]models.UserRef, 0, len(ids))
	for _, id := range ids {
		if r, ok := m[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// AllRefs returns every user's projection keyed by id. The leaderboard
// resolves names for all students that appear in graded submissions.
func (s *Store) AllRefs(ctx context.Context, role string) (map[primitive.ObjectID]models.UserRef, error) {
	filter := bson.M{}
	if role != "" {
		filter["role"] = role
	}
	cur, err := s.c.Find(ctx, filter, options.Find().SetProjection(refProjection))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := map[primitive.ObjectID]models.UserRef{}
	for cur.Next(ctx) {
		var r models.UserRef
		if err := cur.Decode(&r); err != nil {
			return nil, err
		}
		out[r.ID] = r
	}
	return out, cur.Err()
}

// CountByRole counts users holding role.
func (s *Store) CountByRole(ctx context.Context, role string) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"role": role})
}

// CountAmong counts the existing users in ids other than exclude.
func (s *Store) CountAmong(ctx context.Context, ids []primitive.ObjectID, exclude primitive.ObjectID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	q := bson.M{"_id": bson.M{"$in": ids}}
	if !exclude.IsZero() {
		q["_id"] = bson.M{"$in": ids, "$ne": exclude}
	}
	return s.c.CountDocuments(ctx, q)
}
