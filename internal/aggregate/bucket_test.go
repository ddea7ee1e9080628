package aggregate

import (
	"testing"
	"time"
)

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("parse time %s: %v", value, err)
	}
	return ts
}

func TestDayKey_FollowsLocation(t *testing.T) {
	ts := mustTime(t, "2025-03-10T03:30:00Z")

	if got := DayKey(ts, time.UTC); got != "2025-03-10" {
		t.Fatalf("utc day key = %s", got)
	}
	west := time.FixedZone("UTC-4", -4*3600)
	if got := DayKey(ts, west); got != "2025-03-09" {
		t.Fatalf("utc-4 day key = %s, want previous day", got)
	}
	east := time.FixedZone("UTC+13", 13*3600)
	if got := DayKey(ts, east); got != "2025-03-10" {
		t.Fatalf("utc+13 day key = %s", got)
	}
}

func TestDayKey_DSTTransition(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	// US spring-forward was 2025-03-09. Both sides of the jump stay on
	// the same local date.
	before := mustTime(t, "2025-03-09T06:59:00Z") // 01:59 EST
	after := mustTime(t, "2025-03-09T07:01:00Z")  // 03:01 EDT
	if got := DayKey(before, loc); got != "2025-03-09" {
		t.Fatalf("pre-transition day key = %s", got)
	}
	if got := DayKey(after, loc); got != "2025-03-09" {
		t.Fatalf("post-transition day key = %s", got)
	}
}

func TestWeekKey_StartDays(t *testing.T) {
	// 2025-03-12 is a Wednesday.
	ts := mustTime(t, "2025-03-12T15:00:00Z")

	cases := []struct {
		start time.Weekday
		want  string
	}{
		{time.Monday, "2025-03-10"},
		{time.Sunday, "2025-03-09"},
		{time.Wednesday, "2025-03-12"},
		{time.Thursday, "2025-03-06"},
	}
	for _, tc := range cases {
		if got := WeekKey(ts, time.UTC, tc.start); got != tc.want {
			t.Errorf("week key with start %s = %s, want %s", tc.start, got, tc.want)
		}
	}
}

func TestWeekKey_SameWeekSharesKey(t *testing.T) {
	monday := mustTime(t, "2025-03-10T00:30:00Z")
	sunday := mustTime(t, "2025-03-16T23:30:00Z")
	nextMonday := mustTime(t, "2025-03-17T00:30:00Z")

	a := WeekKey(monday, time.UTC, time.Monday)
	b := WeekKey(sunday, time.UTC, time.Monday)
	if a != b {
		t.Fatalf("same week got keys %s and %s", a, b)
	}
	if c := WeekKey(nextMonday, time.UTC, time.Monday); c == a {
		t.Fatalf("next week reused key %s", c)
	}
}

func TestMonthKey_FollowsLocation(t *testing.T) {
	ts := mustTime(t, "2025-04-01T01:00:00Z")

	if got := MonthKey(ts, time.UTC); got != "2025-04" {
		t.Fatalf("utc month key = %s", got)
	}
	west := time.FixedZone("UTC-4", -4*3600)
	if got := MonthKey(ts, west); got != "2025-03" {
		t.Fatalf("utc-4 month key = %s, want previous month", got)
	}
}

func TestParseWeekStart(t *testing.T) {
	cases := []struct {
		in      string
		want    time.Weekday
		wantErr bool
	}{
		{"", time.Monday, false},
		{"monday", time.Monday, false},
		{"Sunday", time.Sunday, false},
		{"SAT", time.Saturday, false},
		{"wed", time.Wednesday, false},
		{"thu", time.Thursday, false},
		{"noday", time.Monday, true},
	}
	for _, tc := range cases {
		got, err := ParseWeekStart(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseWeekStart(%q) expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseWeekStart(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseWeekStart(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}
