package authz_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/collegeportal/internal/app/system/auth"
	"github.com/dalemusser/collegeportal/internal/app/system/authz"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func reqAs(id primitive.ObjectID, role string) *http.Request {
	return auth.WithTestUser(httptest.NewRequest("GET", "/test", nil), &auth.SessionUser{
		ID:   id.Hex(),
		Name: "Test User",
		Role: role,
	})
}

func TestUserCtx(t *testing.T) {
	id := primitive.NewObjectID()
	role, name, got, ok := authz.UserCtx(reqAs(id, "Teacher"))
	if !ok || role != "teacher" || name != "Test User" || got != id {
		t.Errorf("UserCtx = %q %q %v %v", role, name, got, ok)
	}
}

func TestUserCtx_NoUser(t *testing.T) {
	role, _, id, ok := authz.UserCtx(httptest.NewRequest("GET", "/", nil))
	if ok || role != "visitor" || id != primitive.NilObjectID {
		t.Errorf("UserCtx = %q %v %v", role, id, ok)
	}
}

func TestUserCtx_MalformedID(t *testing.T) {
	req := auth.WithTestUser(httptest.NewRequest("GET", "/", nil), &auth.SessionUser{ID: "bogus", Role: "admin"})
	if _, _, _, ok := authz.UserCtx(req); ok {
		t.Error("malformed id should fail closed")
	}
	if authz.IsAdmin(req) {
		t.Error("malformed id should not be admin")
	}
}

func TestRolePredicates(t *testing.T) {
	tests := []struct {
		role                           string
		admin, teacher, student, staff bool
	}{
		{"admin", true, false, false, true},
		{"teacher", false, true, false, true},
		{"student", false, false, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			r := reqAs(primitive.NewObjectID(), tt.role)
			if authz.IsAdmin(r) != tt.admin || authz.IsTeacher(r) != tt.teacher ||
				authz.IsStudent(r) != tt.student || authz.IsStaff(r) != tt.staff {
				t.Errorf("predicates wrong for %s", tt.role)
			}
		})
	}
}

func TestCanManage(t *testing.T) {
	owner := primitive.NewObjectID()

	if !authz.CanManage(reqAs(owner, "teacher"), owner) {
		t.Error("owner should manage")
	}
	if authz.CanManage(reqAs(primitive.NewObjectID(), "teacher"), owner) {
		t.Error("other teacher should not manage")
	}
	if !authz.CanManage(reqAs(primitive.NewObjectID(), "admin"), owner) {
		t.Error("admin should manage")
	}
	if authz.CanManage(httptest.NewRequest("GET", "/", nil), owner) {
		t.Error("anonymous should not manage")
	}
}
