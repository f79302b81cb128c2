package sheetutil

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/extrame/xls"
	"github.com/richardlehane/mscfb"
)

// legacySignature opens every compound file, the container of BIFF (.xls)
// workbooks.
var legacySignature = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// maxLegacyCols is the BIFF8 column limit.
const maxLegacyCols = 256

// IsLegacy reports whether data looks like a legacy .xls workbook.
func IsLegacy(data []byte) bool {
	return bytes.HasPrefix(data, legacySignature)
}

// readLegacy returns the name and cell text of the first worksheet of a
// BIFF workbook.
//
// The container is walked with mscfb first: the BIFF parser trusts sector
// chains blindly and exits the process on some broken ones, so it only
// sees files whose workbook stream reads back cleanly.
func readLegacy(data []byte) (name string, rows [][]string, err error) {
	if err := checkContainer(data); err != nil {
		return "", nil, err
	}

	defer func() {
		if p := recover(); p != nil {
			name, rows = "", nil
			err = fmt.Errorf("%w: malformed legacy workbook: %v", ErrUnreadable, p)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	if wb == nil {
		return "", nil, fmt.Errorf("%w: no workbook stream", ErrUnreadable)
	}
	if wb.NumSheets() == 0 {
		return "", nil, ErrNoWorksheet
	}
	ws := wb.GetSheet(0)
	if ws == nil {
		return "", nil, ErrNoWorksheet
	}

	last := -1
	rows = make([][]string, 0, int(ws.MaxRow)+1)
	for i := 0; i <= int(ws.MaxRow); i++ {
		cells := legacyRow(ws, i)
		if len(cells) > 0 {
			last = i
		}
		rows = append(rows, cells)
	}
	return ws.Name, rows[:last+1], nil
}

func checkContainer(data []byte) error {
	doc, err := mscfb.New(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	for f, err := doc.Next(); err == nil; f, err = doc.Next() {
		if f.Name != "Workbook" && f.Name != "Book" {
			continue
		}
		if _, err := io.Copy(io.Discard, f); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: %v", ErrUnreadable, err)
		}
		return nil
	}
	return fmt.Errorf("%w: no workbook stream", ErrUnreadable)
}

// legacyRow reads row i with trailing empty cells trimmed. Rows the sheet
// never mentions come back nil.
func legacyRow(ws *xls.WorkSheet, i int) (cells []string) {
	defer func() {
		// WorkSheet.Row dereferences a missing row.
		if recover() != nil {
			cells = nil
		}
	}()

	row := ws.Row(i)
	width := row.LastCol()
	if width <= 0 || width > maxLegacyCols {
		width = maxLegacyCols
	}
	cells = make([]string, width)
	n := 0
	for c := 0; c < width; c++ {
		cells[c] = legacyCell(row.Col(c))
		if cells[c] != "" {
			n = c + 1
		}
	}
	if n == 0 {
		return nil
	}
	return cells[:n]
}

const rfc3339Len = len("2006-01-02T15:04:05Z")

// legacyCell undoes the BIFF parser's rendering of cells with custom
// number formats as RFC 3339 timestamps, returning the day serial so
// numbers and dates parse the same way as xlsx raw values.
func legacyCell(s string) string {
	if len(s) != rfc3339Len {
		return s
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return s
	}
	days := t.Sub(serialEpoch).Hours() / 24
	return strconv.FormatFloat(math.Round(days*1e4)/1e4, 'f', -1, 64)
}

