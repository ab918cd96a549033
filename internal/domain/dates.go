package domain

import "time"

const day = 24 * time.Hour

// DateOnly normalizes a timestamp to UTC midnight; all availability and
// booking dates are day-granular.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Nights returns the number of nights in [start, end). Zero or negative for
// an empty or inverted range.
func Nights(start, end time.Time) int {
	return int(DateOnly(end).Sub(DateOnly(start)) / day)
}

// DatesIn lists every night of [start, end) in order.
func DatesIn(start, end time.Time) []time.Time {
	start, end = DateOnly(start), DateOnly(end)

	var out []time.Time
	for d := start; d.Before(end); d = d.Add(day) {
		out = append(out, d)
	}

	return out
}

// IsWeekend reports whether the night falls on Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
