// Package formutil decodes and validates request input for the JSON API.
//
// Typical handler flow:
//
//	var in createCourseInput
//	if err := formutil.Decode(w, r, &in); err != nil {
//		uierrors.RenderBadRequest(w, formutil.Message(err))
//		return
//	}
package formutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dalemusser/collegeportal/internal/app/system/inputval"
	"github.com/dalemusser/collegeportal/internal/app/system/limits"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrEmptyBody = errors.New("request body is empty")
	ErrBodyLarge = errors.New("request body too large")
	ErrBadJSON   = errors.New("request body is not valid JSON")
	ErrBadID     = errors.New("invalid id")
)

// DecodeJSON reads a JSON body of at most limits.MaxJSONBody bytes into dst.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxJSONBody)
	err := json.NewDecoder(r.Body).Decode(dst)
	var mbe *http.MaxBytesError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF):
		return ErrEmptyBody
	case errors.As(err, &mbe):
		return ErrBodyLarge
	default:
		return fmt.Errorf("%w: %v", ErrBadJSON, err)
	}
}

// Decode is DecodeJSON followed by struct-tag validation.
func Decode(w http.ResponseWriter, r *http.Request, dst any) error {
	if err := DecodeJSON(w, r, dst); err != nil {
		return err
	}
	return inputval.Struct(dst)
}

// Message turns a Decode error into the text sent to the client.
func Message(err error) string {
	var verr *inputval.Error
	switch {
	case errors.As(err, &verr):
		return verr.Error()
	case errors.Is(err, ErrBadJSON):
		return ErrBadJSON.Error()
	default:
		return err.Error()
	}
}

// ParamID parses the chi URL parameter name as an ObjectID.
func ParamID(r *http.Request, name string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(chi.URLParam(r, name)))
	if err != nil {
		return primitive.NilObjectID, ErrBadID
	}
	return oid, nil
}

// OptionalID parses s as an ObjectID. Empty input yields NilObjectID and
// no error.
func OptionalID(s string) (primitive.ObjectID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return primitive.NilObjectID, nil
	}
	oid, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return primitive.NilObjectID, ErrBadID
	}
	return oid, nil
}
