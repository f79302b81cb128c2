package bootstrap

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/collegeportal/internal/testutil"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

func validConfig() AppConfig {
	return AppConfig{
		MongoURI:         "mongodb://localhost:27017",
		MongoDatabase:    "college_portal",
		MongoMaxPoolSize: 100,
		MongoMinPoolSize: 10,
		JWTSecret:        strings.Repeat("k", minSecretLen),
		JWTExpiry:        24 * time.Hour,
		TokenCookieName:  "token",
		FrontendURL:      "http://localhost:3000",
		UploadDir:        "./uploads",
		UploadURL:        "/uploads",
		MaxImportRows:    5000,
		MetricsEnabled:   true,
	}
}

func TestValidateApp(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		mod     func(c *AppConfig)
		wantErr bool
	}{
		{"valid", "prod", func(c *AppConfig) {}, false},
		{"short secret in prod", "prod", func(c *AppConfig) { c.JWTSecret = "short" }, true},
		{"short secret in dev", "dev", func(c *AppConfig) { c.JWTSecret = "short" }, false},
		{"no database", "dev", func(c *AppConfig) { c.MongoDatabase = " " }, true},
		{"zero expiry", "dev", func(c *AppConfig) { c.JWTExpiry = 0 }, true},
		{"pool inverted", "dev", func(c *AppConfig) { c.MongoMinPoolSize = 200 }, true},
		{"root upload url", "dev", func(c *AppConfig) { c.UploadURL = "/" }, true},
		{"no import rows", "dev", func(c *AppConfig) { c.MaxImportRows = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mod(&c)
			err := validateApp(tt.env, c)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateApp() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateConfig_BadURI(t *testing.T) {
	c := validConfig()
	c.MongoURI = "postgres://nope"
	if err := ValidateConfig(&config.CoreConfig{Env: "dev"}, c, zap.NewNop()); err == nil {
		t.Error("expected invalid MongoDB URI to be rejected")
	}
}

func TestBuildHandler(t *testing.T) {
	db := testutil.SetupTestDB(t)

	appCfg := validConfig()
	appCfg.UploadDir = t.TempDir()
	deps := DBDeps{MongoClient: db.Client(), MongoDatabase: db}

	h, err := BuildHandler(&config.CoreConfig{Env: "dev"}, appCfg, deps, zap.NewNop())
	if err != nil {
		t.Fatalf("BuildHandler: %v", err)
	}

	serve := func(req *http.Request) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	t.Run("health", func(t *testing.T) {
		rec := serve(httptest.NewRequest(http.MethodGet, "/health", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})

	t.Run("unknown route is JSON 404", func(t *testing.T) {
		rec := serve(httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil))
		if rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), `"success":false`) {
			t.Errorf("got %d %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("protected route needs token", func(t *testing.T) {
		rec := serve(httptest.NewRequest(http.MethodGet, "/api/v1/courses", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("register then use token", func(t *testing.T) {
		body, _ := json.Marshal(map[string]string{
			"name": "Asha Rao", "email": "asha@x.edu", "password": "secret1", "department": "CSE",
		})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := serve(req)
		if rec.Code >= 300 {
			t.Fatalf("register status = %d: %s", rec.Code, rec.Body.String())
		}
		var out struct {
			Token string `json:"token"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil || out.Token == "" {
			t.Fatalf("no token in %s", rec.Body.String())
		}

		for _, path := range []string{"/api/v1/dashboard", "/api/v1/results", "/api/v1/achievements", "/api/v1/bus-tracking"} {
			req := httptest.NewRequest(http.MethodGet, path, nil)
			req.Header.Set("Authorization", "Bearer "+out.Token)
			if rec := serve(req); rec.Code != http.StatusOK {
				t.Errorf("%s: status = %d: %s", path, rec.Code, rec.Body.String())
			}
		}
	})

	t.Run("cors preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/courses", nil)
		req.Header.Set("Origin", appCfg.FrontendURL)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := serve(req)
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != appCfg.FrontendURL {
			t.Errorf("Access-Control-Allow-Origin = %q", got)
		}
	})

	t.Run("uploads served", func(t *testing.T) {
		if err := os.WriteFile(filepath.Join(appCfg.UploadDir, "hello.txt"), []byte("hi"), 0o644); err != nil {
			t.Fatal(err)
		}
		rec := serve(httptest.NewRequest(http.MethodGet, "/uploads/hello.txt", nil))
		if rec.Code != http.StatusOK || rec.Body.String() != "hi" {
			t.Errorf("got %d %q", rec.Code, rec.Body.String())
		}
	})

	t.Run("metrics", func(t *testing.T) {
		rec := serve(httptest.NewRequest(http.MethodGet, "/metrics", nil))
		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "collegeportal_http_requests_total") {
			t.Errorf("metrics missing request counter: %d", rec.Code)
		}
	})
}
