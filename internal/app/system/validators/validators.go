// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/collegeportal/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates collections (if missing) and attaches JSON-Schema
// validators. Servers without collMod/validator support are logged and
// skipped.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	ensure := func(coll string, schema bson.M) {
		if _, err := ensureCollection(ctx, db, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			if isNoSuchCommand(err) || isNotImplemented(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	ensure("users", usersSchema())
	ensure("courses", coursesSchema())
	ensure("assignments", assignmentsSchema())
	ensure("exam_results", examResultsSchema())
	ensure("attendance", attendanceSchema())
	ensure("notes", notesSchema())
	ensure("timetable", timetableSchema())
	ensure("buses", nil)

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

// collectionExists returns true when <name> already exists.
// Uses ListCollectionNames to avoid "created collection" log when it didn't.
func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

// ensureCollection idempotently makes sure <name> exists.
// Returns created==true only if we actually created it.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		zap.L().Info("collection exists", zap.String("collection", name))
		return false, nil
	}
	// If listing failed, fall back to create-and-handle-race.
	if err := db.CreateCollection(ctx, name); err != nil {
		// NamespaceExists / already exists is fine (race or prior run).
		if isNamespaceExistsErr(err) {
			zap.L().Info("collection exists", zap.String("collection", name))
			return false, nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return true, nil
}

/* ------------------------------ validators ------------------------------- */

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	zap.L().Info("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func isNamespaceExistsErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 48 || strings.Contains(strings.ToLower(ce.Message), "already exists")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "already exists") || strings.Contains(s, "namespace exists")
}

func isNoSuchCommand(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 59 || strings.Contains(strings.ToLower(ce.Message), "no such command")) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such command")
}

func isNotImplemented(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 115 ||
		strings.Contains(strings.ToLower(ce.Message), "not implemented") ||
		strings.Contains(strings.ToLower(ce.Message), "not supported")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "not implemented") || strings.Contains(s, "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

var nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}

func toArray(vals []string) bson.A {
	out := make(bson.A, 0, len(vals))
	for _, v := range vals {
		out = append(out, v)
	}
	return out
}

func usersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "email", "password_hash", "role"},
			"properties": bson.M{
				"name":          nonBlank,
				"name_ci":       bson.M{"bsonType": "string"},
				"email":         nonBlank,
				"password_hash": nonBlank,
				"role":          bson.M{"enum": bson.A{models.RoleStudent, models.RoleTeacher, models.RoleAdmin}},
				"department":    bson.M{"bsonType": "string"},
			},
		},
	}
}

func coursesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"code", "name", "teacher_id"},
			"properties": bson.M{
				"code":        bson.M{"bsonType": "string", "minLength": 1, "pattern": "^[^a-z]*$"},
				"name":        nonBlank,
				"teacher_id":  bson.M{"bsonType": "objectId"},
				"credits":     bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0},
				"student_ids": bson.M{"bsonType": "array", "items": bson.M{"bsonType": "objectId"}},
				"schedule": bson.M{
					"bsonType": "array",
					"items": bson.M{
						"bsonType": "object",
						"required": bson.A{"day", "start_time", "end_time"},
						"properties": bson.M{
							"day": bson.M{"enum": toArray(models.Weekdays)},
						},
					},
				},
			},
		},
	}
}

func assignmentsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"title", "course_id", "teacher_id", "due_date", "points"},
			"properties": bson.M{
				"title":      nonBlank,
				"course_id":  bson.M{"bsonType": "objectId"},
				"teacher_id": bson.M{"bsonType": "objectId"},
				"due_date":   bson.M{"bsonType": "date"},
				"points":     bson.M{"bsonType": bson.A{"double", "int", "long"}, "minimum": 0},
				"submissions": bson.M{
					"bsonType": "array",
					"items": bson.M{
						"bsonType": "object",
						"required": bson.A{"student_id", "submitted_at"},
						"properties": bson.M{
							"student_id": bson.M{"bsonType": "objectId"},
							"grade":      bson.M{"bsonType": bson.A{"double", "int", "long"}, "minimum": 0},
						},
					},
				},
			},
		},
	}
}

func examResultsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"exam_title", "course_id", "student_id", "marks_obtained", "total_marks"},
			"properties": bson.M{
				"exam_title":     nonBlank,
				"course_id":      bson.M{"bsonType": "objectId"},
				"student_id":     bson.M{"bsonType": "objectId"},
				"marks_obtained": bson.M{"bsonType": bson.A{"double", "int", "long"}, "minimum": 0},
				"total_marks":    bson.M{"bsonType": bson.A{"double", "int", "long"}, "exclusiveMinimum": 0},
				"status":         bson.M{"enum": bson.A{models.ExamStatusPass, models.ExamStatusFail, models.ExamStatusIncomplete}},
			},
		},
	}
}

func attendanceSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"student_id", "course_id", "date", "status"},
			"properties": bson.M{
				"student_id": bson.M{"bsonType": "objectId"},
				"course_id":  bson.M{"bsonType": "objectId"},
				"date":       bson.M{"bsonType": "date"},
				"status":     bson.M{"enum": bson.A{models.AttendancePresent, models.AttendanceAbsent, models.AttendanceLate}},
			},
		},
	}
}

func notesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"title", "subject", "author_id"},
			"properties": bson.M{
				"title":          nonBlank,
				"subject":        nonBlank,
				"author_id":      bson.M{"bsonType": "objectId"},
				"tag":            bson.M{"enum": toArray(models.NoteTags)},
				"download_count": bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0},
			},
		},
	}
}

func timetableSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"course_id", "day", "start_time", "end_time"},
			"properties": bson.M{
				"course_id":  bson.M{"bsonType": "objectId"},
				"day":        bson.M{"enum": toArray(models.Weekdays)},
				"start_time": bson.M{"bsonType": "string", "pattern": "^([01][0-9]|2[0-3]):[0-5][0-9]$"},
				"end_time":   bson.M{"bsonType": "string", "pattern": "^([01][0-9]|2[0-3]):[0-5][0-9]$"},
			},
		},
	}
}
