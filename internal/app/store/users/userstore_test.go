package userstore_test

import (
	"errors"
	"testing"

	userstore "github.com/dalemusser/collegeportal/internal/app/store/users"
	"github.com/dalemusser/collegeportal/internal/app/system/auth"
	"github.com/dalemusser/collegeportal/internal/app/system/indexes"
	"github.com/dalemusser/collegeportal/internal/domain/models"
	"github.com/dalemusser/collegeportal/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestStore_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, models.User{
		Name:  "  Alice   Smith ",
		Email: " Alice@Example.EDU ",
	}, "secret1")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if created.ID == primitive.NilObjectID {
		t.Error("expected ID to be assigned")
	}
	if created.Name != "Alice Smith" {
		t.Errorf("Name = %q", created.Name)
	}
	if created.Email != "alice@example.edu" {
		t.Errorf("Email = %q", created.Email)
	}
	if created.Role != models.RoleStudent {
		t.Errorf("Role = %q, want default student", created.Role)
	}
	if created.PasswordHash == "" || created.PasswordHash == "secret1" {
		t.Error("expected password to be hashed")
	}
}

func TestStore_Create_BadRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.Create(ctx, models.User{Name: "X", Email: "x@x.edu", Role: "janitor"}, "secret1"); err == nil {
		t.Error("expected role error")
	}
}

func TestStore_Create_DuplicateEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	store := userstore.New(db)

	if _, err := store.Create(ctx, models.User{Name: "A", Email: "dup@x.edu"}, "secret1"); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	_, err := store.Create(ctx, models.User{Name: "B", Email: "DUP@x.edu"}, "secret1")
	if !errors.Is(err, userstore.ErrDuplicateEmail) {
		t.Errorf("err = %v, want ErrDuplicateEmail", err)
	}
}

func TestStore_Authenticate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fx.CreateTeacher(ctx, "Prof Oak", "oak@x.edu")

	got, err := store.Authenticate(ctx, "OAK@x.edu", testutil.FixturePassword)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if got.ID != u.ID {
		t.Errorf("got user %v, want %v", got.ID, u.ID)
	}

	if _, err := store.Authenticate(ctx, "oak@x.edu", "wrong"); !errors.Is(err, userstore.ErrBadCredentials) {
		t.Errorf("wrong password err = %v", err)
	}
	if _, err := store.Authenticate(ctx, "nobody@x.edu", "x"); !errors.Is(err, userstore.ErrBadCredentials) {
		t.Errorf("unknown email err = %v", err)
	}
}

func TestStore_UpdateProfile(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fx.CreateStudent(ctx, "Sam", "sam@x.edu")
	name, phone := "Samuel Jones", "5551234567"

	got, err := store.UpdateProfile(ctx, u.ID, userstore.ProfileUpdate{Name: &name, Phone: &phone})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if got.Name != name || got.Phone != phone || got.Email != "sam@x.edu" {
		t.Errorf("updated user = %+v", got)
	}

	if _, err := store.UpdateProfile(ctx, primitive.NewObjectID(), userstore.ProfileUpdate{Name: &name}); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("unknown id err = %v", err)
	}
}

func TestStore_Refs(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := fx.CreateStudent(ctx, "Ann", "ann@x.edu")
	b := fx.CreateStudent(ctx, "Ben", "ben@x.edu")

	refs, err := store.RefsOrdered(ctx, []primitive.ObjectID{b.ID, primitive.NewObjectID(), a.ID})
	if err != nil {
		t.Fatalf("RefsOrdered: %v", err)
	}
	if len(refs) != 2 || refs[0].Name != "Ben" || refs[1].Name != "Ann" {
		t.Errorf("refs = %+v", refs)
	}
}

func TestFetcher(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fx.CreateAdmin(ctx, "Root", "root@x.edu")
	f := userstore.NewFetcher(db)

	su, err := f.FetchSessionUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("FetchSessionUser: %v", err)
	}
	if su.ID != u.ID.Hex() || su.Role != "admin" || su.Email != "root@x.edu" {
		t.Errorf("session user = %+v", su)
	}

	if _, err := f.FetchSessionUser(ctx, primitive.NewObjectID()); !errors.Is(err, auth.ErrUserGone) {
		t.Errorf("missing user err = %v, want ErrUserGone", err)
	}
}
