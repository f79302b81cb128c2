// Package authz answers role and ownership questions about the caller.
package authz

import (
	"net/http"
	"strings"

	"github.com/dalemusser/collegeportal/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

// UserCtx returns the caller's role (lowercased), name and ObjectID.
// A missing user or malformed id yields ("visitor", "", NilObjectID, false).
func UserCtx(r *http.Request) (role string, name string, userID primitive.ObjectID, ok bool) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return "visitor", "", primitive.NilObjectID, false
	}
	userID, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		return "visitor", "", primitive.NilObjectID, false
	}
	return strings.ToLower(user.Role), user.Name, userID, true
}

// UserID returns the caller's ObjectID.
func UserID(r *http.Request) (primitive.ObjectID, bool) {
	_, _, id, ok := UserCtx(r)
	return id, ok
}

func IsAdmin(r *http.Request) bool   { return HasRole(r, RoleAdmin) }
func IsTeacher(r *http.Request) bool { return HasRole(r, RoleTeacher) }
func IsStudent(r *http.Request) bool { return HasRole(r, RoleStudent) }

// IsStaff reports whether the caller is a teacher or an admin.
func IsStaff(r *http.Request) bool { return HasAnyRole(r, RoleTeacher, RoleAdmin) }

// HasAnyRole reports whether the caller has one of roles.
func HasAnyRole(r *http.Request, roles ...string) bool {
	role, _, _, ok := UserCtx(r)
	if !ok {
		return false
	}
	for _, want := range roles {
		if role == strings.ToLower(strings.TrimSpace(want)) {
			return true
		}
	}
	return false
}

func HasRole(r *http.Request, role string) bool { return HasAnyRole(r, role) }

// CanManage reports whether the caller may modify a record owned by
// ownerID: admins always, otherwise only the owner.
func CanManage(r *http.Request, ownerID primitive.ObjectID) bool {
	role, _, id, ok := UserCtx(r)
	if !ok {
		return false
	}
	return role == RoleAdmin || (ownerID != primitive.NilObjectID && id == ownerID)
}
