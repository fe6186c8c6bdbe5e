package services

import "time"

const dateLayout = "2006-01-02"

// ParseCalendarDate parses YYYY-MM-DD into a UTC midnight date value.
func ParseCalendarDate(raw string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, raw, time.UTC)
}

// CalendarDate keeps only the calendar day of value as seen in location.
func CalendarDate(value time.Time, location *time.Location) time.Time {
	local := value.In(location)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// DayWindow returns the inclusive window covering the calendar days
// start..end in location. Date values carry their day in UTC fields.
func DayWindow(start time.Time, end time.Time, location *time.Location) Window {
	from := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, location)
	to := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, location).AddDate(0, 0, 1).Add(-time.Nanosecond)
	return Window{From: &from, To: &to}
}

func dayBounds(value time.Time, location *time.Location) (time.Time, time.Time) {
	local := value.In(location)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, location)
	return start, start.AddDate(0, 0, 1).Add(-time.Nanosecond)
}

func sameDay(a time.Time, b time.Time, location *time.Location) bool {
	ay, am, ad := a.In(location).Date()
	by, bm, bd := b.In(location).Date()
	return ay == by && am == bm && ad == bd
}
