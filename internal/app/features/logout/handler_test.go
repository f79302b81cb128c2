package logout_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/collegeportal/internal/app/features/logout"
	"github.com/dalemusser/collegeportal/internal/app/system/auth"
	"github.com/dalemusser/collegeportal/internal/testutil"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) *logout.Handler {
	t.Helper()
	tokens, err := auth.NewTokenManager("test-secret-key-for-testing-only-0123", time.Hour, "token", false)
	if err != nil {
		t.Fatalf("NewTokenManager failed: %v", err)
	}
	return logout.NewHandler(tokens, zap.NewNop())
}

func TestServeLogout_ClearsTokenCookie(t *testing.T) {
	h := newTestHandler(t)

	req := testutil.NewAuthenticatedRequest(http.MethodGet, "/", testutil.StudentUser())
	rec := testutil.NewRecorder()
	logout.Routes(h).ServeHTTP(rec, req)

	rec.AssertStatus(t, http.StatusOK)
	env := rec.DecodeEnvelope(t, nil)
	if !env.Success {
		t.Error("expected success envelope")
	}

	found := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == "token" {
			found = true
			if c.MaxAge >= 0 {
				t.Errorf("cookie MaxAge = %d, want negative", c.MaxAge)
			}
			if !c.HttpOnly {
				t.Error("cookie should be HttpOnly")
			}
		}
	}
	if !found {
		t.Error("token cookie was not cleared")
	}
}

func TestServeLogout_RequiresSignIn(t *testing.T) {
	h := newTestHandler(t)

	rec := testutil.NewRecorder()
	logout.Routes(h).ServeHTTP(rec, testutil.NewRequest(http.MethodGet, "/"))
	rec.AssertStatus(t, http.StatusUnauthorized)
}
