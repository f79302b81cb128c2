package timetable

import (
	"testing"
	"time"

	"github.com/dalemusser/collegeportal/internal/domain/models"
)

func entry(day, start, end, room string) models.TimetableEntry {
	return models.TimetableEntry{Day: day, StartTime: start, EndTime: end, Room: room}
}

func TestSortWeek(t *testing.T) {
	entries := []models.TimetableEntry{
		entry("Wednesday", "09:00", "10:00", "w"),
		entry("Monday", "14:00", "15:00", "m2"),
		entry("Sunday", "08:00", "09:00", "s"),
		entry("Monday", "08:30", "09:30", "m1"),
		entry("Friday", "11:00", "12:00", "f"),
	}
	SortWeek(entries)

	want := []string{"m1", "m2", "w", "f", "s"}
	for i, e := range entries {
		if e.Room != want[i] {
			t.Fatalf("position %d: got %q, want %q", i, e.Room, want[i])
		}
	}
}

func TestCurrentAndNext(t *testing.T) {
	// 2026-10-19 is a Monday.
	at := func(hh, mm int) time.Time { return time.Date(2026, 10, 19, hh, mm, 0, 0, time.UTC) }

	entries := []models.TimetableEntry{
		entry("Monday", "09:00", "10:00", "a"),
		entry("Monday", "11:00", "12:00", "b"),
		entry("Monday", "10:30", "11:00", "c"),
		entry("Tuesday", "09:30", "10:30", "d"),
	}

	tests := []struct {
		name      string
		now       time.Time
		cur, next int
	}{
		{"before first", at(8, 0), -1, 0},
		{"start bound", at(9, 0), 0, 2},
		{"end bound", at(10, 0), 0, 2},
		{"between", at(10, 15), -1, 2},
		{"last class", at(11, 30), 1, -1},
		{"after last", at(18, 0), -1, -1},
		{"other day", at(9, 45).AddDate(0, 0, 2), -1, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cur, next := CurrentAndNext(entries, tt.now)
			if cur != tt.cur || next != tt.next {
				t.Errorf("got (%d, %d), want (%d, %d)", cur, next, tt.cur, tt.next)
			}
		})
	}
}

func TestCheckSpan(t *testing.T) {
	if err := checkSpan("09:00", "10:00"); err != nil {
		t.Errorf("valid span rejected: %v", err)
	}
	if err := checkSpan("10:00", "10:00"); err == nil {
		t.Error("empty span accepted")
	}
	if err := checkSpan("11:00", "10:00"); err == nil {
		t.Error("reversed span accepted")
	}
}
