package sheetutil

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
)

func workbook(t *testing.T, rows ...[]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		r := row
		if err := f.SetSheetRow("Sheet1", cell, &r); err != nil {
			t.Fatal(err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}
	return buf
}

func TestReadFirstSheet_HeaderIsCaseInsensitive(t *testing.T) {
	buf := workbook(t,
		[]any{"Student Email", "  COURSE CODE ", "Exam   Title", "Marks Obtained", "Total Marks"},
		[]any{"alice@x.edu", "cs101", "Midterm", 45, 50},
	)

	s, err := ReadFirstSheet(buf, 0)
	if err != nil {
		t.Fatalf("ReadFirstSheet: %v", err)
	}
	if missing := s.Missing("student email", "course code", "exam title", "marks obtained", "total marks"); len(missing) != 0 {
		t.Fatalf("unexpected missing columns %v", missing)
	}
	if len(s.Rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(s.Rows))
	}
	if got := s.Cell(s.Rows[0], "course code"); got != "cs101" {
		t.Errorf("course code = %q", got)
	}
	if got := s.Cell(s.Rows[0], "marks obtained"); got != "45" {
		t.Errorf("marks = %q", got)
	}
	if got := s.Cell(s.Rows[0], "remarks"); got != "" {
		t.Errorf("absent column = %q", got)
	}
}

func TestReadFirstSheet_MissingColumns(t *testing.T) {
	buf := workbook(t, []any{"Student Email", "Exam Title"})

	s, err := ReadFirstSheet(buf, 0)
	if err != nil {
		t.Fatalf("ReadFirstSheet: %v", err)
	}
	got := s.Missing("student email", "course code", "exam title", "total marks")
	if strings.Join(got, ",") != "course code,total marks" {
		t.Errorf("Missing = %v", got)
	}
}

func TestReadFirstSheet_RowLimit(t *testing.T) {
	buf := workbook(t, []any{"a"}, []any{"1"}, []any{"2"}, []any{"3"})

	_, err := ReadFirstSheet(buf, 2)
	var tooMany *TooManyRowsError
	if !errors.As(err, &tooMany) || tooMany.Max != 2 {
		t.Fatalf("expected TooManyRowsError, got %v", err)
	}
}

func TestReadFirstSheet_Unreadable(t *testing.T) {
	_, err := ReadFirstSheet(strings.NewReader("not a workbook"), 0)
	if !errors.Is(err, ErrUnreadable) {
		t.Fatalf("expected ErrUnreadable, got %v", err)
	}
}

func TestReadFirstSheet_NativeDateIsSerial(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	_ = f.SetCellValue("Sheet1", "A1", "Exam Date")
	if err := f.SetCellValue("Sheet1", "A2", time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatal(err)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}

	s, err := ReadFirstSheet(buf, 0)
	if err != nil {
		t.Fatalf("ReadFirstSheet: %v", err)
	}
	d := ParseDate(s.Cell(s.Rows[0], "exam date"))
	if d == nil || d.Format("2006-01-02") != "2024-03-15" {
		t.Errorf("ParseDate = %v, want 2024-03-15", d)
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"45", 45, true},
		{" 45.5 ", 45.5, true},
		{"1,234", 1234, true},
		{"88%", 88, true},
		{"-3", -3, true},
		{"", 0, false},
		{"abc", 0, false},
		{"-", 0, false},
		{"1.2.3", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseNumber(tt.in)
			if ok != tt.ok || got != tt.want {
				t.Errorf("ParseNumber(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"45366", "2024-03-15"},
		{"1", "1899-12-31"},
		{"2024-03-15", "2024-03-15"},
		{"03/15/2024", "2024-03-15"},
		{"15-Mar-2024", "2024-03-15"},
		{"Mar 15, 2024", "2024-03-15"},
		{"2024-03-15T10:00:00Z", "2024-03-15"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseDate(tt.in)
			if got == nil {
				t.Fatalf("ParseDate(%q) = nil", tt.in)
			}
			if s := got.Format("2006-01-02"); s != tt.want {
				t.Errorf("ParseDate(%q) = %s, want %s", tt.in, s, tt.want)
			}
		})
	}

	for _, bad := range []string{"", "   ", "someday"} {
		if got := ParseDate(bad); got != nil {
			t.Errorf("ParseDate(%q) = %v, want nil", bad, got)
		}
	}
}
