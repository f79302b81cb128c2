// Package sheetutil reads uploaded workbooks into header-addressed rows and
// normalizes the loosely typed cell values spreadsheets carry.
package sheetutil

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

var (
	ErrUnreadable  = errors.New("unreadable workbook")
	ErrNoWorksheet = errors.New("workbook has no worksheet")
)

// TooManyRowsError is returned when a sheet has more data rows than allowed.
type TooManyRowsError struct {
	Max int
}

func (e *TooManyRowsError) Error() string {
	return fmt.Sprintf("worksheet has more than %d data rows", e.Max)
}

// Sheet is the first worksheet of a workbook.
type Sheet struct {
	Name   string
	Header map[string]int // normalized header text -> column index
	Rows   [][]string     // data rows; Rows[i] is sheet row i+2
}

// ReadFirstSheet parses the first worksheet of an xlsx workbook, or of a
// legacy .xls workbook when the content starts with the compound file
// signature. Cell values are read raw, so dates arrive as serial numbers.
// maxRows <= 0 disables the row limit.
func ReadFirstSheet(r io.Reader, maxRows int) (*Sheet, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	var (
		name string
		rows [][]string
	)
	if IsLegacy(data) {
		name, rows, err = readLegacy(data)
	} else {
		name, rows, err = readXLSX(data)
	}
	if err != nil {
		return nil, err
	}
	return newSheet(name, rows, maxRows)
}

func readXLSX(data []byte) (string, [][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", nil, ErrNoWorksheet
	}
	name := sheets[0]
	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	return name, rows, nil
}

// newSheet indexes the header row and applies the row limit.
func newSheet(name string, rows [][]string, maxRows int) (*Sheet, error) {
	s := &Sheet{Name: name, Header: map[string]int{}}
	if len(rows) == 0 {
		return s, nil
	}
	for i, h := range rows[0] {
		key := HeaderKey(h)
		if _, dup := s.Header[key]; key != "" && !dup {
			s.Header[key] = i
		}
	}
	s.Rows = rows[1:]
	if maxRows > 0 && len(s.Rows) > maxRows {
		return nil, &TooManyRowsError{Max: maxRows}
	}
	return s, nil
}

// HeaderKey normalizes a header cell: trimmed, lower-cased, inner runs of
// whitespace collapsed.
func HeaderKey(h string) string {
	return strings.ToLower(strings.Join(strings.Fields(h), " "))
}

// Missing returns the columns of want that the header lacks, in order.
func (s *Sheet) Missing(want ...string) []string {
	var out []string
	for _, w := range want {
		if _, ok := s.Header[HeaderKey(w)]; !ok {
			out = append(out, w)
		}
	}
	return out
}

// Cell returns the trimmed value of column col in row, or "" when the
// column is absent or the row is short.
func (s *Sheet) Cell(row []string, col string) string {
	i, ok := s.Header[HeaderKey(col)]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

var nonNumeric = regexp.MustCompile(`[^0-9.\-]`)

// ParseNumber strips everything but digits, '.' and '-' and parses the
// rest. ok is false for empty or non-finite results.
func ParseNumber(s string) (v float64, ok bool) {
	cleaned := nonNumeric.ReplaceAllString(s, "")
	if cleaned == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// serialEpoch is day zero of spreadsheet date serials.
var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"02-Jan-2006",
	"2 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
}

// ParseDate reads a date cell: a serial number of days since 1899-12-30,
// or text in one of the common layouts. The first interpretation that
// succeeds wins; nil means the cell is empty or unparseable.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsNaN(serial) || math.IsInf(serial, 0) {
			return nil
		}
		t := serialEpoch.Add(time.Duration(math.Round(serial*86400000)) * time.Millisecond)
		return &t
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
