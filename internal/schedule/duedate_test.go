package schedule

import (
	"testing"
	"time"

	"propops-service/internal/domain"
)

// Wednesday 2025-03-12, 14:30 UTC.
var wednesday = time.Date(2025, 3, 12, 14, 30, 0, 0, time.UTC)

func TestDailyDueDateIsToday(t *testing.T) {
	due := CurrentDueDate(wednesday, domain.FrequencyDaily, 0)
	want := time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)
	if !due.Equal(want) {
		t.Fatalf("expected %v, got %v", want, due)
	}
}

func TestWeeklyDueDateFromMonday(t *testing.T) {
	cases := []struct {
		day  int
		want time.Time
	}{
		{0, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)}, // Monday
		{4, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)}, // Friday
		{6, time.Date(2025, 3, 16, 0, 0, 0, 0, time.UTC)}, // Sunday
	}
	for _, tc := range cases {
		due := CurrentDueDate(wednesday, domain.FrequencyWeekly, tc.day)
		if !due.Equal(tc.want) {
			t.Fatalf("day %d: expected %v, got %v", tc.day, tc.want, due)
		}
	}
}

func TestWeeklyDueDateOnSunday(t *testing.T) {
	// Sunday belongs to the week that started the previous Monday.
	sunday := time.Date(2025, 3, 16, 9, 0, 0, 0, time.UTC)
	due := CurrentDueDate(sunday, domain.FrequencyWeekly, 0)
	want := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	if !due.Equal(want) {
		t.Fatalf("expected %v, got %v", want, due)
	}
}

func TestMonthlyDueDateCapsAt28(t *testing.T) {
	due := CurrentDueDate(wednesday, domain.FrequencyMonthly, 31)
	if due.Day() != 28 {
		t.Fatalf("expected day capped at 28, got %d", due.Day())
	}

	feb := time.Date(2025, 2, 3, 8, 0, 0, 0, time.UTC)
	due = CurrentDueDate(feb, domain.FrequencyMonthly, 30)
	want := time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC)
	if !due.Equal(want) {
		t.Fatalf("expected %v, got %v", want, due)
	}
}

func TestMonthlyDueDateDefaultsToFirst(t *testing.T) {
	due := CurrentDueDate(wednesday, domain.FrequencyMonthly, 0)
	if due.Day() != 1 {
		t.Fatalf("expected day 1 when unset, got %d", due.Day())
	}
}

func TestIsOverdue(t *testing.T) {
	due := time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)

	before := time.Date(2025, 3, 12, 16, 59, 0, 0, time.UTC)
	if IsOverdue(before, due, "17:00") {
		t.Fatalf("expected on-time before the deadline")
	}
	at := time.Date(2025, 3, 12, 17, 0, 0, 0, time.UTC)
	if IsOverdue(at, due, "17:00") {
		t.Fatalf("expected on-time exactly at the deadline")
	}
	after := time.Date(2025, 3, 12, 17, 0, 1, 0, time.UTC)
	if !IsOverdue(after, due, "17:00") {
		t.Fatalf("expected overdue past the deadline")
	}
}

func TestIsOverdueMalformedDeadlineFallsBackToEndOfDay(t *testing.T) {
	due := time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)
	evening := time.Date(2025, 3, 12, 22, 0, 0, 0, time.UTC)
	if IsOverdue(evening, due, "not-a-time") {
		t.Fatalf("expected same-day check to stay on time")
	}
	nextDay := time.Date(2025, 3, 13, 0, 30, 0, 0, time.UTC)
	if !IsOverdue(nextDay, due, "") {
		t.Fatalf("expected overdue the next day")
	}
}
