// Package metrics exposes Prometheus collectors for the portal.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "collegeportal"

var (
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "http_requests_total", Help: "HTTP requests by route, method and status",
	}, []string{"route", "method", "status"})

	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Name: "http_request_duration_seconds", Help: "HTTP request latency by route",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})

	ResultImports = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "result_imports_total", Help: "Results workbook uploads by outcome",
	}, []string{"outcome"})

	ResultRows = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "result_rows_total", Help: "Processed results rows by outcome (created, updated, skipped)",
	}, []string{"outcome"})

	ImportDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Name: "result_import_seconds", Help: "Results workbook import latency",
		Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
	})

	AuthAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "auth_attempts_total", Help: "Login and registration attempts by outcome",
	}, []string{"kind", "outcome"})

	DBPing = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Name: "db_ping_seconds", Help: "MongoDB ping latency",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(HTTPRequests, HTTPDuration, ResultImports, ResultRows, ImportDuration, AuthAttempts, DBPing)
}

// Handler serves the default registry.
func Handler() http.Handler { return promhttp.Handler() }

func ObserveDBPing(d time.Duration) { DBPing.Observe(d.Seconds()) }

// ObserveImport records one finished workbook import.
func ObserveImport(outcome string, created, updated, skipped int, d time.Duration) {
	ResultImports.WithLabelValues(outcome).Inc()
	ResultRows.WithLabelValues("created").Add(float64(created))
	ResultRows.WithLabelValues("updated").Add(float64(updated))
	ResultRows.WithLabelValues("skipped").Add(float64(skipped))
	ImportDuration.Observe(d.Seconds())
}

// Instrument records request count and latency labelled by the matched chi
// route pattern, so ids in paths do not explode cardinality.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		HTTPRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		HTTPDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}
