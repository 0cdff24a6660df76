// Package day implements the calendar-day convention used everywhere in the
// engine: a day is a UTC midnight, and two instants are on the same day iff
// their UTC dates match.
package day

import "time"

// Of truncates t to the start of its UTC calendar day.
func Of(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func Add(d time.Time, days int) time.Time {
	return Of(d).AddDate(0, 0, days)
}

func Same(a, b time.Time) bool {
	return Of(a).Equal(Of(b))
}

func IsYesterday(d, today time.Time) bool {
	return Same(d, Add(today, -1))
}

// Between returns the number of whole days from a to b (negative when b is before a).
func Between(a, b time.Time) int {
	return int(Of(b).Sub(Of(a)).Hours() / 24)
}

// Range returns every day in [start, start+n).
func Range(start time.Time, n int) []time.Time {
	if n <= 0 {
		return nil
	}
	days := make([]time.Time, n)
	for i := range days {
		days[i] = Add(start, i)
	}
	return days
}

// Bounds returns [start, end) for the UTC day containing t.
func Bounds(t time.Time) (time.Time, time.Time) {
	start := Of(t)
	return start, start.AddDate(0, 0, 1)
}

// Clock is the engine's source of "now".
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
