package results

import (
	"context"
	"errors"
	"fmt"
	"strings"

	examresultstore "github.com/dalemusser/collegeportal/internal/app/store/examresults"
	"github.com/dalemusser/collegeportal/internal/app/system/grading"
	"github.com/dalemusser/collegeportal/internal/app/system/htmlsanitize"
	"github.com/dalemusser/collegeportal/internal/app/system/normalize"
	"github.com/dalemusser/collegeportal/internal/app/system/sheetutil"
	"github.com/dalemusser/collegeportal/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Workbook columns, matched case-insensitively.
const (
	ColStudentEmail  = "student email"
	ColCourseCode    = "course code"
	ColExamTitle     = "exam title"
	ColMarksObtained = "marks obtained"
	ColTotalMarks    = "total marks"
	ColExamDate      = "exam date"
	ColTerm          = "term"
	ColExamType      = "exam type"
	ColRemarks       = "remarks"
)

// RequiredColumns must all be present in the header row.
var RequiredColumns = []string{ColStudentEmail, ColCourseCode, ColExamTitle, ColMarksObtained, ColTotalMarks}

// Row messages.
const (
	msgRequired   = "Student email, course code and exam title are required"
	msgNotNumbers = "Marks obtained and total marks must be numbers"
	msgOutOfRange = "Marks must be within a valid range (0 <= marks obtained <= total marks, total marks > 0)"
	msgConcurrent = "This result was saved by another upload at the same time; upload the row again"
)

// MissingColumnsError rejects a sheet whose header lacks required columns.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return "Missing required columns: " + strings.Join(e.Columns, ", ")
}

// RowError explains why one sheet row was skipped. Row is the 1-based
// sheet row number, so the header is row 1.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportSummary is returned to the uploader.
type ImportSummary struct {
	Processed int        `json:"processed"`
	Created   int        `json:"created"`
	Updated   int        `json:"updated"`
	Skipped   int        `json:"skipped"`
	Errors    []RowError `json:"errors"`
}

// Uploader is the user running an import.
type Uploader struct {
	ID   primitive.ObjectID
	Role string
}

// StudentFinder resolves the student email column.
type StudentFinder interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// CourseFinder resolves the course code column.
type CourseFinder interface {
	GetByCode(ctx context.Context, code string) (*models.Course, error)
}

// ResultWriter stores one validated row and reports whether it was new.
type ResultWriter interface {
	Upsert(ctx context.Context, r models.ExamResult) (created bool, err error)
}

// Importer turns the rows of a results sheet into stored exam results.
// Lookups are cached for the duration of one Import call.
type Importer struct {
	Students StudentFinder
	Courses  CourseFinder
	Results  ResultWriter
}

type sheetRow struct {
	num      int
	email    string
	code     string
	title    string
	marksRaw string
	totalRaw string
	dateRaw  string
	term     string
	examType string
	remarks  string
}

func (r sheetRow) blank() bool {
	return r.email == "" && r.code == "" && r.title == "" && r.marksRaw == "" && r.totalRaw == ""
}

func readRow(s *sheetutil.Sheet, i int) sheetRow {
	cells := s.Rows[i]
	return sheetRow{
		num:      i + 2,
		email:    s.Cell(cells, ColStudentEmail),
		code:     s.Cell(cells, ColCourseCode),
		title:    s.Cell(cells, ColExamTitle),
		marksRaw: s.Cell(cells, ColMarksObtained),
		totalRaw: s.Cell(cells, ColTotalMarks),
		dateRaw:  s.Cell(cells, ColExamDate),
		term:     s.Cell(cells, ColTerm),
		examType: s.Cell(cells, ColExamType),
		remarks:  s.Cell(cells, ColRemarks),
	}
}

// Import validates and stores every data row of s. Rows whose five
// required cells are all empty are ignored. Any other row is processed:
// it is either written (created or updated) or skipped with a RowError.
// A missing header column fails the whole import with *MissingColumnsError;
// a datastore failure aborts it with that error.
func (im *Importer) Import(ctx context.Context, s *sheetutil.Sheet, up Uploader) (ImportSummary, error) {
	sum := ImportSummary{Errors: []RowError{}}
	if missing := s.Missing(RequiredColumns...); len(missing) > 0 {
		return sum, &MissingColumnsError{Columns: missing}
	}

	students := map[string]*models.User{}
	courses := map[string]*models.Course{}

	for i := range s.Rows {
		row := readRow(s, i)
		if row.blank() {
			continue
		}
		sum.Processed++

		res, msg, err := im.validate(ctx, row, up, students, courses)
		if err != nil {
			return sum, err
		}
		if msg != "" {
			sum.skip(row.num, msg)
			continue
		}

		created, err := im.Results.Upsert(ctx, res)
		switch {
		case errors.Is(err, examresultstore.ErrDuplicate):
			sum.skip(row.num, msgConcurrent)
		case err != nil:
			return sum, fmt.Errorf("row %d: %w", row.num, err)
		case created:
			sum.Created++
		default:
			sum.Updated++
		}
	}
	return sum, nil
}

func (sum *ImportSummary) skip(row int, msg string) {
	sum.Skipped++
	sum.Errors = append(sum.Errors, RowError{Row: row, Message: msg})
}

// validate checks one row in a fixed order and returns either the result
// to store or the message explaining the first failed rule.
func (im *Importer) validate(ctx context.Context, row sheetRow, up Uploader,
	students map[string]*models.User, courses map[string]*models.Course) (models.ExamResult, string, error) {

	if row.email == "" || row.code == "" || row.title == "" {
		return models.ExamResult{}, msgRequired, nil
	}

	email := normalize.Email(row.email)
	student, seen := students[email]
	if !seen {
		u, err := im.Students.GetByEmail(ctx, email)
		if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
			return models.ExamResult{}, "", err
		}
		student = u
		students[email] = u
	}
	if student == nil {
		return models.ExamResult{}, "Student not found for email " + email, nil
	}

	code := normalize.CourseCode(row.code)
	course, seen := courses[code]
	if !seen {
		c, err := im.Courses.GetByCode(ctx, code)
		if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
			return models.ExamResult{}, "", err
		}
		course = c
		courses[code] = c
	}
	if course == nil {
		return models.ExamResult{}, "Course not found for code " + code, nil
	}

	if up.Role == models.RoleTeacher && course.TeacherID != up.ID {
		return models.ExamResult{}, "You are not assigned to this course (" + code + ")", nil
	}

	marks, okM := sheetutil.ParseNumber(row.marksRaw)
	total, okT := sheetutil.ParseNumber(row.totalRaw)
	if !okM || !okT {
		return models.ExamResult{}, msgNotNumbers, nil
	}
	if total <= 0 || marks < 0 || marks > total {
		return models.ExamResult{}, msgOutOfRange, nil
	}

	pct := grading.Percent(marks, total)
	return models.ExamResult{
		ExamTitle:     row.title,
		ExamDate:      sheetutil.ParseDate(row.dateRaw),
		CourseID:      course.ID,
		StudentID:     student.ID,
		MarksObtained: marks,
		TotalMarks:    total,
		Percentage:    &pct,
		Grade:         grading.Letter(pct),
		UploadedBy:    up.ID,
		Metadata: models.ExamMetadata{
			Term:     htmlsanitize.PlainText(row.term),
			ExamType: htmlsanitize.PlainText(row.examType),
			Remarks:  htmlsanitize.PlainText(row.remarks),
		},
	}, "", nil
}
