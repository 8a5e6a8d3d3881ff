package models

import (
	"fmt"
	"time"
)

// DateKeyLayout is the layout of the day key addressing a diary document
const DateKeyLayout = "2006-01-02"

// DateKey formats the calendar day of t in its own location
func DateKey(t time.Time) string {
	return t.Format(DateKeyLayout)
}

// ParseDateKey parses a YYYY-MM-DD key as a day in loc
func ParseDateKey(key string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DateKeyLayout, key, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date key %q: %w", key, err)
	}
	return t, nil
}

// StartOfDay truncates t to midnight in its location
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// IsFutureDay reports whether day falls after the end of now's day
func IsFutureDay(day, now time.Time) bool {
	endOfToday := StartOfDay(now).AddDate(0, 0, 1).Add(-time.Nanosecond)
	return day.After(endOfToday)
}

// DisplayDate returns "Today", "Yesterday" or a long date label for day
func DisplayDate(day, now time.Time) string {
	d := StartOfDay(day.In(now.Location()))
	today := StartOfDay(now)
	switch {
	case d.Equal(today):
		return "Today"
	case d.Equal(today.AddDate(0, 0, -1)):
		return "Yesterday"
	default:
		return d.Format("Monday, January 2")
	}
}
