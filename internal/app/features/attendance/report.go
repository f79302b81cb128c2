package attendance

import (
	"fmt"
	"strings"

	attendancestore "github.com/dalemusser/collegeportal/internal/app/store/attendance"
	"github.com/dalemusser/collegeportal/internal/app/system/grading"
	"github.com/dalemusser/collegeportal/internal/app/system/sheetutil"
	"github.com/dalemusser/collegeportal/internal/domain/models"
	"github.com/xuri/excelize/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	facultyFill = "4472C4"
	summaryFill = "70AD47"
	noStudentID = "N/A"
)

// SubjectStat is a student's tally for one course.
type SubjectStat struct {
	CourseID   primitive.ObjectID `json:"courseId"`
	Name       string             `json:"name"`
	Code       string             `json:"code"`
	Present    int                `json:"present"`
	Late       int                `json:"late"`
	Absent     int                `json:"absent"`
	Total      int                `json:"total"`
	Percentage int                `json:"percentage"`
}

// Overview is a student's attendance across courses.
type Overview struct {
	Overall     int
	SubjectWise []SubjectStat
}

// Summarize tallies records overall and per course, courses in order of
// first appearance. Records of unknown courses still count overall.
func Summarize(records []models.Attendance, courses map[primitive.ObjectID]models.Course) Overview {
	var overall attendancestore.Tally
	tallies := map[primitive.ObjectID]*attendancestore.Tally{}
	var order []primitive.ObjectID

	for _, rec := range records {
		overall.Add(rec.Status)
		if _, ok := courses[rec.CourseID]; !ok {
			continue
		}
		t, seen := tallies[rec.CourseID]
		if !seen {
			t = &attendancestore.Tally{}
			tallies[rec.CourseID] = t
			order = append(order, rec.CourseID)
		}
		t.Add(rec.Status)
	}

	out := Overview{Overall: grading.RoundInt(overall.Percent()), SubjectWise: make([]SubjectStat, 0, len(order))}
	for _, id := range order {
		t, c := tallies[id], courses[id]
		out.SubjectWise = append(out.SubjectWise, SubjectStat{
			CourseID:   id,
			Name:       c.Name,
			Code:       c.Code,
			Present:    t.Present,
			Late:       t.Late,
			Absent:     t.Absent,
			Total:      t.Total,
			Percentage: grading.RoundInt(t.Percent()),
		})
	}
	return out
}

func pct(p float64) string { return fmt.Sprintf("%.2f%%", p) }

func studentNumber(u models.UserRef) string {
	if u.StudentID != "" {
		return u.StudentID
	}
	return noStudentID
}

type pair struct {
	course, student primitive.ObjectID
}

// FacultyWorkbook builds one sheet per course listing each enrolled
// student's tally, followed by a Summary sheet with every student's
// percentage per course. The Overall column averages the non-zero course
// percentages.
func FacultyWorkbook(courses []models.Course, students map[primitive.ObjectID]models.UserRef, records []models.Attendance) (*excelize.File, error) {
	tallies := map[pair]*attendancestore.Tally{}
	for _, rec := range records {
		k := pair{rec.CourseID, rec.StudentID}
		t := tallies[k]
		if t == nil {
			t = &attendancestore.Tally{}
			tallies[k] = t
		}
		t.Add(rec.Status)
	}

	type summaryRow struct {
		ref      models.UserRef
		percents map[primitive.ObjectID]float64
	}
	var summaryOrder []primitive.ObjectID
	summary := map[primitive.ObjectID]*summaryRow{}

	sheets := make([]sheetutil.SheetSpec, 0, len(courses)+1)
	for _, c := range courses {
		spec := sheetutil.SheetSpec{
			Name: c.Code,
			Columns: []sheetutil.Column{
				{Header: "USN", Width: 15},
				{Header: "Name", Width: 25},
				{Header: "Total Classes", Width: 15},
				{Header: "Present", Width: 12},
				{Header: "Absent", Width: 12},
				{Header: "Late", Width: 12},
				{Header: "Percentage", Width: 15},
			},
			HeaderFill: facultyFill,
		}
		for _, sid := range c.StudentIDs {
			ref, ok := students[sid]
			if !ok {
				continue
			}
			var t attendancestore.Tally
			if p := tallies[pair{c.ID, sid}]; p != nil {
				t = *p
			}
			p := t.Percent()
			spec.Rows = append(spec.Rows, []any{studentNumber(ref), ref.Name, t.Total, t.Present, t.Absent, t.Late, pct(p)})

			row := summary[sid]
			if row == nil {
				row = &summaryRow{ref: ref, percents: map[primitive.ObjectID]float64{}}
				summary[sid] = row
				summaryOrder = append(summaryOrder, sid)
			}
			row.percents[c.ID] = grading.Round(p, 2)
		}
		sheets = append(sheets, spec)
	}

	sum := sheetutil.SheetSpec{
		Name:       "Summary",
		Columns:    []sheetutil.Column{{Header: "USN", Width: 15}, {Header: "Name", Width: 25}},
		HeaderFill: summaryFill,
	}
	for _, c := range courses {
		sum.Columns = append(sum.Columns, sheetutil.Column{Header: c.Code, Width: 12})
	}
	sum.Columns = append(sum.Columns, sheetutil.Column{Header: "Overall", Width: 12})

	for _, sid := range summaryOrder {
		row := summary[sid]
		cells := []any{studentNumber(row.ref), row.ref.Name}
		var total float64
		n := 0
		for _, c := range courses {
			p := row.percents[c.ID]
			cells = append(cells, pct(p))
			if p > 0 {
				total += p
				n++
			}
		}
		overall := 0.0
		if n > 0 {
			overall = total / float64(n)
		}
		sum.Rows = append(sum.Rows, append(cells, pct(overall)))
	}
	sheets = append(sheets, sum)

	return sheetutil.Build(sheets)
}

func subjectLabel(c models.Course) string {
	return c.Code + " - " + c.Name
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// StudentWorkbook builds a Summary sheet with the student's tally per
// course and a Detailed Records sheet listing every mark in the order
// given. Records of unknown courses are left out.
func StudentWorkbook(records []models.Attendance, courses map[primitive.ObjectID]models.Course) (*excelize.File, error) {
	summary := sheetutil.SheetSpec{
		Name: "Summary",
		Columns: []sheetutil.Column{
			{Header: "Subject", Width: 30},
			{Header: "Total Classes", Width: 15},
			{Header: "Present", Width: 12},
			{Header: "Absent", Width: 12},
			{Header: "Late", Width: 12},
			{Header: "Percentage", Width: 15},
		},
		HeaderFill: facultyFill,
	}
	details := sheetutil.SheetSpec{
		Name: "Detailed Records",
		Columns: []sheetutil.Column{
			{Header: "Date", Width: 15},
			{Header: "Subject", Width: 30},
			{Header: "Status", Width: 12},
		},
		HeaderFill: facultyFill,
	}

	tallies := map[primitive.ObjectID]*attendancestore.Tally{}
	var order []primitive.ObjectID
	for _, rec := range records {
		c, ok := courses[rec.CourseID]
		if !ok {
			continue
		}
		t := tallies[c.ID]
		if t == nil {
			t = &attendancestore.Tally{}
			tallies[c.ID] = t
			order = append(order, c.ID)
		}
		t.Add(rec.Status)
		details.Rows = append(details.Rows, []any{
			rec.Date.UTC().Format("2006-01-02"),
			subjectLabel(c),
			capitalize(rec.Status),
		})
	}
	for _, id := range order {
		t := tallies[id]
		summary.Rows = append(summary.Rows, []any{
			subjectLabel(courses[id]), t.Total, t.Present, t.Absent, t.Late, pct(t.Percent()),
		})
	}
	return sheetutil.Build([]sheetutil.SheetSpec{summary, details})
}
