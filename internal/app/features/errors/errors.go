// Package errors writes the JSON envelope every API response uses and logs
// failures before they reach the client.
//
//	{"success": true,  "data": ...}
//	{"success": false, "error": "message"}
package errors

import (
	"encoding/json"
	"net/http"

	"github.com/dalemusser/collegeportal/internal/app/system/paging"
)

type envelope struct {
	Success    bool         `json:"success"`
	Count      *int         `json:"count,omitempty"`
	Pagination *paging.Info `json:"pagination,omitempty"`
	Data       any          `json:"data"`
}

type errorEnvelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func write(w http.ResponseWriter, status int, env any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

// JSON writes a successful envelope around data.
func JSON(w http.ResponseWriter, status int, data any) {
	write(w, status, envelope{Success: true, Data: data})
}

// List writes a successful envelope with a count and, when p is non-nil,
// page links.
func List(w http.ResponseWriter, data any, count int, p *paging.Info) {
	write(w, http.StatusOK, envelope{Success: true, Count: &count, Pagination: p, Data: data})
}

// Message writes {"success": true, "data": {}}.
func Message(w http.ResponseWriter) {
	write(w, http.StatusOK, envelope{Success: true, Data: struct{}{}})
}

// Error writes a failed envelope.
func Error(w http.ResponseWriter, status int, msg string) {
	write(w, status, errorEnvelope{Error: msg})
}

func RenderBadRequest(w http.ResponseWriter, msg string) { Error(w, http.StatusBadRequest, msg) }
func RenderUnauthorized(w http.ResponseWriter, msg string) {
	Error(w, http.StatusUnauthorized, msg)
}
func RenderForbidden(w http.ResponseWriter, msg string) { Error(w, http.StatusForbidden, msg) }
func RenderNotFound(w http.ResponseWriter, msg string)  { Error(w, http.StatusNotFound, msg) }

// RenderServerError hides the cause behind msg; use ErrorLogger to record it.
func RenderServerError(w http.ResponseWriter, msg string) {
	if msg == "" {
		msg = "Server Error"
	}
	Error(w, http.StatusInternalServerError, msg)
}

// NotFoundHandler answers unknown routes.
func NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	RenderNotFound(w, "Route not found: "+r.Method+" "+r.URL.Path)
}

// MethodNotAllowedHandler answers known routes hit with the wrong method.
func MethodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	Error(w, http.StatusMethodNotAllowed, "Method "+r.Method+" not allowed")
}

// TooManyRequests writes a 429.
func TooManyRequests(w http.ResponseWriter, msg string) { Error(w, http.StatusTooManyRequests, msg) }

// Raw writes v as the whole response body, for the few responses that
// carry fields beside the envelope.
func Raw(w http.ResponseWriter, status int, v any) { write(w, status, v) }
