package results

import (
	"sort"
	"time"

	"github.com/dalemusser/collegeportal/internal/app/system/grading"
	"github.com/dalemusser/collegeportal/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ResultRow is one exam result as shown to faculty.
type ResultRow struct {
	ID            string              `json:"id"`
	ExamTitle     string              `json:"examTitle"`
	ExamDate      *time.Time          `json:"examDate"`
	Student       models.UserRef      `json:"student"`
	MarksObtained float64             `json:"marksObtained"`
	TotalMarks    float64             `json:"totalMarks"`
	Percentage    float64             `json:"percentage"`
	Grade         string              `json:"grade"`
	Status        string              `json:"status"`
	Metadata      models.ExamMetadata `json:"metadata"`
	UploadedBy    *models.UserRef     `json:"uploadedBy"`
	CreatedAt     time.Time           `json:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt"`
}

// CourseResults groups the rows of one course.
type CourseResults struct {
	CourseID       string          `json:"courseId"`
	Code           string          `json:"code"`
	Name           string          `json:"name"`
	Teacher        *models.UserRef `json:"teacher"`
	TotalRecords   int             `json:"totalRecords"`
	UniqueStudents int             `json:"uniqueStudents"`
	Results        []ResultRow     `json:"results"`
}

// TeacherTotals is the header block of the faculty view.
type TeacherTotals struct {
	TotalCourses   int        `json:"totalCourses"`
	TotalRecords   int        `json:"totalRecords"`
	UniqueStudents int        `json:"uniqueStudents"`
	LastImportAt   *time.Time `json:"lastImportAt"`
}

// TeacherSummary is the response of GET /results/teacher.
type TeacherSummary struct {
	Summary TeacherTotals   `json:"summary"`
	Courses []CourseResults `json:"courses"`
}

// EmptyTeacherSummary is returned when no course matches.
func EmptyTeacherSummary() TeacherSummary {
	return TeacherSummary{Courses: []CourseResults{}}
}

// TeacherInput is everything BuildTeacherSummary reads. Users resolves
// students, teachers and uploaders.
type TeacherInput struct {
	Courses []models.Course
	Results []models.ExamResult
	Users   map[primitive.ObjectID]models.UserRef
}

func refPtr(users map[primitive.ObjectID]models.UserRef, id primitive.ObjectID) *models.UserRef {
	u, ok := users[id]
	if !ok {
		return nil
	}
	return &u
}

func resultRow(e models.ExamResult, users map[primitive.ObjectID]models.UserRef) ResultRow {
	pct := grading.Percent(e.MarksObtained, e.TotalMarks)
	if e.Percentage != nil && grading.IsFinite(*e.Percentage) {
		pct = grading.Round(*e.Percentage, 2)
	}
	grade := e.Grade
	if grade == "" {
		grade = grading.Letter(pct)
	}
	student, ok := users[e.StudentID]
	if !ok {
		student = models.UserRef{ID: e.StudentID, Name: "Unknown"}
	}
	return ResultRow{
		ID:            e.ID.Hex(),
		ExamTitle:     e.ExamTitle,
		ExamDate:      e.ExamDate,
		Student:       student,
		MarksObtained: e.MarksObtained,
		TotalMarks:    e.TotalMarks,
		Percentage:    pct,
		Grade:         grade,
		Status:        e.Status,
		Metadata:      e.Metadata,
		UploadedBy:    refPtr(users, e.UploadedBy),
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}

// byExamDate orders rows by exam date descending, undated last, then by
// creation time descending.
func byExamDate(rows []ResultRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].ExamDate, rows[j].ExamDate
		switch {
		case a != nil && b != nil && !a.Equal(*b):
			return a.After(*b)
		case a != nil && b == nil:
			return true
		case a == nil && b != nil:
			return false
		}
		return rows[i].CreatedAt.After(rows[j].CreatedAt)
	})
}

// BuildTeacherSummary partitions results by course. Courses keep their
// input order and appear even when they have no results. Results of
// courses outside in.Courses are ignored.
func BuildTeacherSummary(in TeacherInput) TeacherSummary {
	if len(in.Courses) == 0 {
		return EmptyTeacherSummary()
	}

	out := TeacherSummary{Courses: make([]CourseResults, 0, len(in.Courses))}
	index := make(map[primitive.ObjectID]int, len(in.Courses))
	perCourse := make([]map[primitive.ObjectID]struct{}, len(in.Courses))
	for i, c := range in.Courses {
		index[c.ID] = i
		perCourse[i] = map[primitive.ObjectID]struct{}{}
		out.Courses = append(out.Courses, CourseResults{
			CourseID: c.ID.Hex(),
			Code:     c.Code,
			Name:     c.Name,
			Teacher:  refPtr(in.Users, c.TeacherID),
			Results:  []ResultRow{},
		})
	}

	all := map[primitive.ObjectID]struct{}{}
	var last time.Time
	for _, e := range in.Results {
		i, ok := index[e.CourseID]
		if !ok {
			continue
		}
		cr := &out.Courses[i]
		cr.Results = append(cr.Results, resultRow(e, in.Users))
		cr.TotalRecords++
		perCourse[i][e.StudentID] = struct{}{}
		all[e.StudentID] = struct{}{}
		out.Summary.TotalRecords++

		for _, t := range []time.Time{e.UpdatedAt, e.CreatedAt} {
			if t.After(last) {
				last = t
			}
		}
	}

	for i := range out.Courses {
		byExamDate(out.Courses[i].Results)
		out.Courses[i].UniqueStudents = len(perCourse[i])
	}
	out.Summary.TotalCourses = len(in.Courses)
	out.Summary.UniqueStudents = len(all)
	if !last.IsZero() {
		out.Summary.LastImportAt = &last
	}
	return out
}
