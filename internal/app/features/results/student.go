package results

import (
	"sort"
	"time"

	"github.com/dalemusser/collegeportal/internal/app/system/grading"
	"github.com/dalemusser/collegeportal/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Record types.
const (
	TypeAssignment = "assignment"
	TypeExam       = "exam"
)

// recentLimit is how many records the performance chart shows.
const recentLimit = 6

// Record is one graded item in a student's results, from either an
// assignment submission or an uploaded exam result. Person is whoever
// produced the mark: the assignment's teacher or the exam's uploader.
type Record struct {
	ID            string               `json:"id"`
	Type          string               `json:"type"`
	Title         string               `json:"title"`
	CourseName    string               `json:"courseName"`
	CourseCode    string               `json:"courseCode"`
	CourseID      string               `json:"courseId"`
	PersonName    string               `json:"personName"`
	PersonEmail   string               `json:"personEmail"`
	MarksObtained float64              `json:"marksObtained"`
	TotalMarks    float64              `json:"totalMarks"`
	Percentage    float64              `json:"percentage"`
	Date          *time.Time           `json:"date"`
	Metadata      *models.ExamMetadata `json:"metadata,omitempty"`
}

// HighScore is the best single record.
type HighScore struct {
	Percentage float64 `json:"percentage"`
	Title      string  `json:"title"`
	CourseName string  `json:"courseName"`
}

// SubjectScore is the rounded mean percentage of one course.
type SubjectScore struct {
	Subject string `json:"subject"`
	Score   int    `json:"score"`
}

// ChartPoint is one bar of the recent performance chart.
type ChartPoint struct {
	Label      string `json:"label"`
	Percentage int    `json:"percentage"`
}

// StudentSummary is the response of GET /results.
type StudentSummary struct {
	OverallAverage    float64        `json:"overallAverage"`
	TotalGraded       int            `json:"totalGraded"`
	HighestScore      *HighScore     `json:"highestScore"`
	SubjectWise       []SubjectScore `json:"subjectWise"`
	Assignments       []Record       `json:"assignments"`
	RecentPerformance []ChartPoint   `json:"recentPerformance"`
	GradeDistribution map[string]int `json:"gradeDistribution"`
}

// StudentInput is everything BuildStudentSummary reads. Assignments may
// hold other students' submissions; only StudentID's graded ones count.
// People resolves teachers and uploaders.
type StudentInput struct {
	StudentID   primitive.ObjectID
	Assignments []models.Assignment
	Exams       []models.ExamResult
	Courses     map[primitive.ObjectID]models.Course
	People      map[primitive.ObjectID]models.UserRef
}

func courseFields(courses map[primitive.ObjectID]models.Course, id primitive.ObjectID) (name, code, hex string) {
	c, ok := courses[id]
	if !ok {
		return "Course", "", ""
	}
	return c.Name, c.Code, c.ID.Hex()
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// StudentRecords merges graded submissions and exam results into records,
// assignments first, in input order.
func StudentRecords(in StudentInput) []Record {
	var out []Record
	for _, a := range in.Assignments {
		sub, ok := a.SubmissionFor(in.StudentID)
		if !ok || !sub.Graded() {
			continue
		}
		name, code, hex := courseFields(in.Courses, a.CourseID)
		teacher := in.People[a.TeacherID]
		if teacher.Name == "" {
			teacher.Name = "Teacher"
		}
		points := a.PointsPossible()
		out = append(out, Record{
			ID:            sub.ID.Hex(),
			Type:          TypeAssignment,
			Title:         a.Title,
			CourseName:    name,
			CourseCode:    code,
			CourseID:      hex,
			PersonName:    teacher.Name,
			PersonEmail:   teacher.Email,
			MarksObtained: *sub.Grade,
			TotalMarks:    points,
			Percentage:    grading.Ratio(*sub.Grade, points),
			Date:          timePtr(a.ActivityDate(sub)),
		})
	}

	for _, e := range in.Exams {
		if e.StudentID != in.StudentID {
			continue
		}
		name, code, hex := courseFields(in.Courses, e.CourseID)
		uploader := in.People[e.UploadedBy]
		pct := grading.Percent(e.MarksObtained, e.TotalMarks)
		if e.Percentage != nil && grading.IsFinite(*e.Percentage) {
			pct = *e.Percentage
		}
		date := e.ExamDate
		if date == nil {
			date = timePtr(e.CreatedAt)
		}
		meta := e.Metadata
		out = append(out, Record{
			ID:            e.ID.Hex(),
			Type:          TypeExam,
			Title:         e.ExamTitle,
			CourseName:    name,
			CourseCode:    code,
			CourseID:      hex,
			PersonName:    uploader.Name,
			PersonEmail:   uploader.Email,
			MarksObtained: e.MarksObtained,
			TotalMarks:    e.TotalMarks,
			Percentage:    pct,
			Date:          date,
			Metadata:      &meta,
		})
	}
	return out
}

// newestFirst orders records by date descending; undated records go last.
func newestFirst(recs []Record) []Record {
	out := append([]Record(nil), recs...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Date, out[j].Date
		if a == nil || b == nil {
			return a != nil && b == nil
		}
		return a.After(*b)
	})
	return out
}

// BuildStudentSummary computes the student results view.
func BuildStudentSummary(in StudentInput) StudentSummary {
	recs := StudentRecords(in)
	sum := StudentSummary{
		TotalGraded:       len(recs),
		SubjectWise:       []SubjectScore{},
		Assignments:       []Record{},
		RecentPerformance: []ChartPoint{},
	}

	pcts := make([]float64, 0, len(recs))
	var total float64
	var best *Record

	type subjectAcc struct {
		name string
		sum  float64
		n    int
	}
	var order []string
	subjects := map[string]*subjectAcc{}

	for i := range recs {
		r := &recs[i]
		pcts = append(pcts, r.Percentage)
		total += r.Percentage
		if best == nil || r.Percentage > best.Percentage {
			best = r
		}
		acc, ok := subjects[r.CourseID]
		if !ok {
			acc = &subjectAcc{name: r.CourseName}
			subjects[r.CourseID] = acc
			order = append(order, r.CourseID)
		}
		acc.sum += r.Percentage
		acc.n++
	}
	sum.GradeDistribution = grading.Distribution(pcts)

	if len(recs) == 0 {
		return sum
	}
	sum.OverallAverage = grading.Round1(total / float64(len(recs)))
	sum.HighestScore = &HighScore{
		Percentage: grading.Round1(best.Percentage),
		Title:      best.Title,
		CourseName: best.CourseName,
	}
	for _, id := range order {
		acc := subjects[id]
		sum.SubjectWise = append(sum.SubjectWise, SubjectScore{
			Subject: acc.name,
			Score:   grading.RoundInt(acc.sum / float64(acc.n)),
		})
	}

	sorted := newestFirst(recs)
	for _, r := range sorted {
		r.Percentage = grading.Round1(r.Percentage)
		sum.Assignments = append(sum.Assignments, r)
	}

	n := min(recentLimit, len(sorted))
	for i := n - 1; i >= 0; i-- {
		r := sorted[i]
		label := r.Title
		if r.Date != nil {
			label = r.Date.Format("Jan 2")
		}
		sum.RecentPerformance = append(sum.RecentPerformance, ChartPoint{
			Label:      label,
			Percentage: grading.RoundInt(r.Percentage),
		})
	}
	return sum
}
