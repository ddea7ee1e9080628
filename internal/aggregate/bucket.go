// Package aggregate turns parsed usage events into report rows: it groups
// them into sessions and billing blocks, assigns calendar buckets under a
// configured timezone, and folds totals with per-model breakdowns.
package aggregate

import (
	"fmt"
	"strings"
	"time"
)

const (
	dayKeyLayout   = "2006-01-02"
	monthKeyLayout = "2006-01"
)

// DayKey is the event's calendar date in the given timezone.
func DayKey(ts time.Time, loc *time.Location) string {
	return ts.In(loc).Format(dayKeyLayout)
}

// WeekKey is the local date of the most recent week-start day, so rows for
// one week share the date their week began on.
func WeekKey(ts time.Time, loc *time.Location, weekStart time.Weekday) string {
	local := ts.In(loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	diff := (7 + int(local.Weekday()) - int(weekStart)) % 7
	return day.AddDate(0, 0, -diff).Format(dayKeyLayout)
}

// MonthKey is the local calendar month.
func MonthKey(ts time.Time, loc *time.Location) string {
	return ts.In(loc).Format(monthKeyLayout)
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseWeekStart reads a weekday name (full or three-letter) into the
// week-start setting. Empty input means Monday.
func ParseWeekStart(s string) (time.Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return time.Monday, nil
	}
	if wd, ok := weekdayNames[name]; ok {
		return wd, nil
	}
	for full, wd := range weekdayNames {
		if len(name) == 3 && strings.HasPrefix(full, name) {
			return wd, nil
		}
	}
	return time.Monday, fmt.Errorf("unknown week start day %q", s)
}
