package timetable

import (
	"sort"
	"time"

	"github.com/dalemusser/collegeportal/internal/domain/models"
)

var dayIndex = func() map[string]int {
	m := make(map[string]int, len(models.Weekdays))
	for i, d := range models.Weekdays {
		m[d] = i
	}
	return m
}()

// minutes converts "HH:MM" to minutes after midnight, -1 when malformed.
func minutes(hhmm string) int {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return -1
	}
	return t.Hour()*60 + t.Minute()
}

// SortWeek orders entries Monday first, then by start time.
func SortWeek(entries []models.TimetableEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		di, dj := dayIndex[entries[i].Day], dayIndex[entries[j].Day]
		if di != dj {
			return di < dj
		}
		return minutes(entries[i].StartTime) < minutes(entries[j].StartTime)
	})
}

// CurrentAndNext finds the class in progress at now (bounds inclusive) and
// the earliest class later the same day. Either index is -1 when there is
// none.
func CurrentAndNext(entries []models.TimetableEntry, now time.Time) (current, next int) {
	current, next = -1, -1
	day := now.Weekday().String()
	at := now.Hour()*60 + now.Minute()
	nextStart := 24 * 60

	for i, e := range entries {
		if e.Day != day {
			continue
		}
		start, end := minutes(e.StartTime), minutes(e.EndTime)
		if start < 0 {
			continue
		}
		if current < 0 && at >= start && at <= end {
			current = i
		}
		if start > at && start < nextStart {
			next, nextStart = i, start
		}
	}
	return current, next
}
