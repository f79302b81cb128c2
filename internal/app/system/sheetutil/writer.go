package sheetutil

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ContentType is the MIME type of xlsx workbooks.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// maxSheetName is the longest worksheet name Excel accepts.
const maxSheetName = 31

// Column is one header cell of a generated sheet.
type Column struct {
	Header string
	Width  float64
}

// SheetSpec describes one generated worksheet. HeaderFill is an RGB hex
// colour such as "4472C4"; empty leaves the header unfilled.
type SheetSpec struct {
	Name       string
	Columns    []Column
	HeaderFill string
	Rows       [][]any
}

// Build creates a workbook holding sheets in order. Sheet names are cleaned
// and made unique since Excel compares them without case.
func Build(sheets []SheetSpec) (*excelize.File, error) {
	f := excelize.NewFile()
	const first = "Sheet1"
	used := map[string]bool{}

	for i, s := range sheets {
		name := uniqueName(SheetName(s.Name), used)
		if i == 0 {
			if err := f.SetSheetName(first, name); err != nil {
				f.Close()
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, fmt.Errorf("new sheet %q: %w", name, err)
		}
		if err := writeSheet(f, name, s); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

func writeSheet(f *excelize.File, name string, s SheetSpec) error {
	header := make([]any, len(s.Columns))
	for i, c := range s.Columns {
		header[i] = c.Header
	}
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return fmt.Errorf("write header of %q: %w", name, err)
	}
	for i, row := range s.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		r := row
		if err := f.SetSheetRow(name, cell, &r); err != nil {
			return fmt.Errorf("write row %d of %q: %w", i+2, name, err)
		}
	}
	if len(s.Columns) == 0 {
		return nil
	}

	last, _ := excelize.ColumnNumberToName(len(s.Columns))
	style := &excelize.Style{Font: &excelize.Font{Bold: true}}
	if s.HeaderFill != "" {
		style.Fill = excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{s.HeaderFill}}
	}
	if id, err := f.NewStyle(style); err == nil {
		_ = f.SetCellStyle(name, "A1", last+"1", id)
	}
	for i, c := range s.Columns {
		if c.Width <= 0 {
			continue
		}
		col, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(name, col, col, c.Width)
	}
	return nil
}

// SheetName strips the characters Excel forbids in sheet names and trims
// the result to 31 characters. An empty result becomes "Sheet".
func SheetName(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '-'
		}
		return r
	}, strings.TrimSpace(s))
	s = strings.Trim(s, "'")
	if r := []rune(s); len(r) > maxSheetName {
		s = string(r[:maxSheetName])
	}
	if s == "" {
		return "Sheet"
	}
	return s
}

func uniqueName(name string, used map[string]bool) string {
	candidate := name
	for n := 2; used[strings.ToLower(candidate)]; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		r := []rune(name)
		if len(r)+len(suffix) > maxSheetName {
			r = r[:maxSheetName-len(suffix)]
		}
		candidate = string(r) + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}

// Send writes f to w as a download named filename.
func Send(w http.ResponseWriter, f *excelize.File, filename string) error {
	w.Header().Set("Content-Type", ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	_, err := f.WriteTo(w)
	return err
}
