// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// CaseInsensitive is the collation shared by the exam_results unique index
// and the queries that must hit it.
var CaseInsensitive = &options.Collation{Locale: "en", Strength: 2}

/*
EnsureAll is called at startup. Each ensure* function is idempotent.
Problems are aggregated so every broken collection is reported at once.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	steps := []struct {
		name string
		fn   func(context.Context, *mongo.Database) error
	}{
		{"users", ensureUsers},
		{"courses", ensureCourses},
		{"assignments", ensureAssignments},
		{"exam_results", ensureExamResults},
		{"attendance", ensureAttendance},
		{"notes", ensureNotes},
		{"timetable", ensureTimetable},
		{"buses", ensureBuses},
	}

	var problems []string
	for _, s := range steps {
		if err := s.fn(ctx, db); err != nil {
			problems = append(problems, s.name+": "+err.Error())
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func ensureUsers(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("users"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("uniq_users_email").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "role", Value: 1}, {Key: "name_ci", Value: 1}},
			Options: options.Index().SetName("idx_users_role_name"),
		},
	})
}

func ensureCourses(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("courses"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "code", Value: 1}},
			Options: options.Index().SetName("uniq_courses_code").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "teacher_id", Value: 1}, {Key: "code", Value: 1}},
			Options: options.Index().SetName("idx_courses_teacher_code"),
		},
		{
			Keys:    bson.D{{Key: "student_ids", Value: 1}},
			Options: options.Index().SetName("idx_courses_students"),
		},
		{
			Keys:    bson.D{{Key: "department", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_courses_department_created"),
		},
	})
}

func ensureAssignments(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("assignments"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "course_id", Value: 1}, {Key: "due_date", Value: 1}},
			Options: options.Index().SetName("idx_assignments_course_due"),
		},
		{
			Keys:    bson.D{{Key: "teacher_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_assignments_teacher_created"),
		},
		{
			// Per-student result and leaderboard scans.
			Keys:    bson.D{{Key: "submissions.student_id", Value: 1}},
			Options: options.Index().SetName("idx_assignments_submission_student"),
		},
	})
}

func ensureExamResults(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("exam_results"), []mongo.IndexModel{
		{
			// Re-uploading a sheet updates rows in place; title case is ignored.
			Keys: bson.D{
				{Key: "exam_title", Value: 1},
				{Key: "course_id", Value: 1},
				{Key: "student_id", Value: 1},
			},
			Options: options.Index().
				SetName("uniq_exam_results_title_course_student").
				SetUnique(true).
				SetCollation(CaseInsensitive),
		},
		{
			Keys:    bson.D{{Key: "student_id", Value: 1}, {Key: "exam_date", Value: -1}},
			Options: options.Index().SetName("idx_exam_results_student_date"),
		},
		{
			Keys:    bson.D{{Key: "course_id", Value: 1}, {Key: "exam_date", Value: -1}},
			Options: options.Index().SetName("idx_exam_results_course_date"),
		},
	})
}

func ensureAttendance(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("attendance"), []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "student_id", Value: 1},
				{Key: "course_id", Value: 1},
				{Key: "date", Value: 1},
			},
			Options: options.Index().SetName("uniq_attendance_student_course_date").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "course_id", Value: 1}, {Key: "date", Value: -1}},
			Options: options.Index().SetName("idx_attendance_course_date"),
		},
	})
}

func ensureNotes(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("notes"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_notes_created"),
		},
		{
			Keys:    bson.D{{Key: "subject", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_notes_subject_created"),
		},
		{
			Keys:    bson.D{{Key: "course_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_notes_course_created"),
		},
	})
}

func ensureTimetable(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("timetable"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "course_id", Value: 1}, {Key: "day", Value: 1}},
			Options: options.Index().SetName("idx_timetable_course_day"),
		},
		{
			Keys:    bson.D{{Key: "professor_id", Value: 1}, {Key: "day", Value: 1}},
			Options: options.Index().SetName("idx_timetable_professor_day"),
		},
	})
}

func ensureBuses(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("buses"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "route_number", Value: 1}},
			Options: options.Index().SetName("uniq_buses_route_number").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "is_active", Value: 1}, {Key: "route_number", Value: 1}},
			Options: options.Index().SetName("idx_buses_active_route"),
		},
	})
}

/* -------------------------------------------------------------------------- */
/* Core helper: reconcile a set of desired indexes for one collection         */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name      string `bson:"name"`
	Key       bson.D `bson:"key"`
	Unique    *bool  `bson:"unique,omitempty"`
	Collation *struct {
		Locale   string `bson:"locale"`
		Strength int    `bson:"strength"`
	} `bson:"collation,omitempty"`
}

// desired is the part of an IndexModel that ensureIndexSet compares.
type desired struct {
	name      string
	unique    bool
	collation string
}

func describe(m mongo.IndexModel) desired {
	var d desired
	if m.Options == nil {
		return d
	}
	if m.Options.Name != nil {
		d.name = *m.Options.Name
	}
	if m.Options.Unique != nil {
		d.unique = *m.Options.Unique
	}
	if c := m.Options.Collation; c != nil {
		d.collation = collationSig(c.Locale, c.Strength)
	}
	return d
}

func (ex existingIndex) options() desired {
	d := desired{name: ex.Name, unique: ex.Unique != nil && *ex.Unique}
	// The server reports simple-collation indexes without a collation field.
	if ex.Collation != nil && ex.Collation.Locale != "simple" {
		d.collation = collationSig(ex.Collation.Locale, ex.Collation.Strength)
	}
	return d
}

func collationSig(locale string, strength int) string {
	return fmt.Sprintf("%s/%d", locale, strength)
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

// Best-effort duplicate detector (works across Mongo-compatible servers).
func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}

// Servers return IndexOptionsConflict when the same keys already exist
// under another name or with other options.
func isOptionsConflictErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "IndexOptionsConflict")
}

func listIndexes(ctx context.Context, coll *mongo.Collection) map[string]existingIndex {
	out := map[string]existingIndex{}
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return out
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()),
				zap.Error(err))
			continue
		}
		out[keySig(idx.Key)] = idx
	}
	return out
}

// ensureIndexSet makes coll carry every model. An index with the same keys
// is reused when its options match, renamed when only the name differs and
// otherwise dropped and recreated.
func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	var errs []string

	for _, m := range models {
		want := describe(m)
		sig := keySig(m.Keys.(bson.D))
		start := time.Now()
		log := zap.L().With(
			zap.String("collection", coll.Name()),
			zap.String("name", want.name),
			zap.String("keys", sig),
		)

		ex, found := listIndexes(ctx, coll)[sig]
		if !found {
			_, err := coll.Indexes().CreateOne(ctx, m)
			if err == nil {
				log.Info("index created", zap.Duration("took", time.Since(start)))
				continue
			}
			if !isOptionsConflictErr(err) {
				errs = append(errs, createFailure(coll, want, err))
				continue
			}
			// Raced with another instance or the server matched on keys
			// we did not see; reconcile against what is there now.
			if ex, found = listIndexes(ctx, coll)[sig]; !found {
				errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), want.name, err))
				continue
			}
		}

		have := ex.options()
		if have == want || (want.name == "" && have.unique == want.unique && have.collation == want.collation) {
			log.Debug("reusing existing index", zap.Duration("took", time.Since(start)))
			continue
		}

		if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
			log.Warn("drop existing index failed", zap.String("existing", ex.Name), zap.Error(err))
			errs = append(errs, fmt.Sprintf("%s(%s): drop failed: %v", coll.Name(), want.name, err))
			continue
		}
		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			errs = append(errs, createFailure(coll, want, err))
			continue
		}
		log.Info("index dropped and recreated",
			zap.String("previous", ex.Name),
			zap.Bool("unique", want.unique),
			zap.String("collation", want.collation),
			zap.Duration("took", time.Since(start)))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func createFailure(coll *mongo.Collection, want desired, err error) string {
	if isDuplicateKeyErr(err) && want.unique {
		return fmt.Sprintf("%s(%s): cannot create unique index (duplicates present)", coll.Name(), want.name)
	}
	return fmt.Sprintf("%s(%s): %v", coll.Name(), want.name, err)
}
