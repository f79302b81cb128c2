package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInstrument_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Instrument)
	r.Get("/api/v1/courses/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.ToFloat64(HTTPRequests.WithLabelValues("/api/v1/courses/{id}", "GET", "418"))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/v1/courses/abc", nil))
	after := testutil.ToFloat64(HTTPRequests.WithLabelValues("/api/v1/courses/{id}", "GET", "418"))

	if after-before != 1 {
		t.Errorf("counter delta = %v, want 1", after-before)
	}
}

func TestObserveImport(t *testing.T) {
	before := testutil.ToFloat64(ResultRows.WithLabelValues("created"))
	ObserveImport("ok", 3, 1, 2, 10*time.Millisecond)
	if got := testutil.ToFloat64(ResultRows.WithLabelValues("created")) - before; got != 3 {
		t.Errorf("created delta = %v, want 3", got)
	}
}
