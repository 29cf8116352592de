// Package schedule computes the current due date of a recurring SOP
// obligation. Due dates are derived from "now" on every read rather than
// stored, so they roll forward automatically as calendar time passes.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"propops-service/internal/domain"
)

// maxMonthlyDay caps monthly deadlines so they stay valid in short months.
const maxMonthlyDay = 28

// CurrentDueDate returns the due date of the period containing now.
//
//	daily:   today
//	weekly:  Monday of now's week plus deadlineDay days (0=Mon .. 6=Sun)
//	monthly: day min(deadlineDay, 28) of now's month (day 1 when unset)
//
// The result is midnight in now's location.
func CurrentDueDate(now time.Time, freq domain.Frequency, deadlineDay int) time.Time {
	switch freq {
	case domain.FrequencyWeekly:
		day := clamp(deadlineDay, 0, 6)
		monday := startOfDay(now).AddDate(0, 0, -daysSinceMonday(now))
		return monday.AddDate(0, 0, day)
	case domain.FrequencyMonthly:
		day := deadlineDay
		if day < 1 {
			day = 1
		}
		if day > maxMonthlyDay {
			day = maxMonthlyDay
		}
		return time.Date(now.Year(), now.Month(), day, 0, 0, 0, 0, now.Location())
	default: // daily
		return startOfDay(now)
	}
}

// IsOverdue reports whether now is past the obligation's deadline on dueDate.
// deadlineTime is "HH:MM"; an empty or malformed value means the obligation
// is due until the end of the day.
func IsOverdue(now, dueDate time.Time, deadlineTime string) bool {
	return now.After(Deadline(dueDate, deadlineTime))
}

// Deadline combines a due date with a wall-clock deadline time.
func Deadline(dueDate time.Time, deadlineTime string) time.Time {
	hour, minute, err := parseClock(deadlineTime)
	if err != nil {
		hour, minute = 23, 59
	}
	return time.Date(dueDate.Year(), dueDate.Month(), dueDate.Day(), hour, minute, 0, 0, dueDate.Location())
}

func parseClock(s string) (hour, minute int, err error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("bad hour in %q", s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("bad minute in %q", s)
	}
	return hour, minute, nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// daysSinceMonday maps Go's Sunday-first weekday onto a Monday-first week.
func daysSinceMonday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
