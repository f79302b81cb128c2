package formutil

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

type loginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
		msg     string
	}{
		{"valid", `{"email":"a@x.edu","password":"pw"}`, nil, ""},
		{"empty", ``, ErrEmptyBody, "request body is empty"},
		{"malformed", `{"email":`, ErrBadJSON, "request body is not valid JSON"},
		{"invalid", `{"email":"nope","password":"pw"}`, nil, "email must be a valid email address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var in loginInput
			err := Decode(w, r, &in)
			if tt.msg == "" {
				if err != nil {
					t.Fatalf("unexpected error %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
			if got := Message(err); got != tt.msg {
				t.Errorf("Message = %q, want %q", got, tt.msg)
			}
		})
	}
}

func TestParamID(t *testing.T) {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "507f1f77bcf86cd799439011")
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))

	oid, err := ParamID(r, "id")
	if err != nil || oid.Hex() != "507f1f77bcf86cd799439011" {
		t.Errorf("ParamID = %v, %v", oid, err)
	}
	if _, err := ParamID(r, "missing"); !errors.Is(err, ErrBadID) {
		t.Errorf("expected ErrBadID, got %v", err)
	}
}

func TestOptionalID(t *testing.T) {
	if oid, err := OptionalID(" "); err != nil || !oid.IsZero() {
		t.Errorf("OptionalID(blank) = %v, %v", oid, err)
	}
	if _, err := OptionalID("xyz"); !errors.Is(err, ErrBadID) {
		t.Errorf("expected ErrBadID, got %v", err)
	}
}
