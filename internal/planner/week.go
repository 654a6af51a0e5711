package planner

import "time"

// weekLayout is the storage form of a week start date.
const weekLayout = "2006-01-02"

// WeekStart returns midnight of the Monday on or before t, in t's location.
func WeekStart(t time.Time) time.Time {
	y, m, d := t.Date()
	back := (int(t.Weekday()) + 6) % 7
	return time.Date(y, m, d-back, 0, 0, 0, 0, t.Location())
}

// FormatWeek renders a week start as YYYY-MM-DD.
func FormatWeek(weekStart time.Time) string {
	return weekStart.Format(weekLayout)
}
