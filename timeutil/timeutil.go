// Package timeutil provides the datetime alignment helpers the
// tick-to-bar resampler uses to compute bar-open instants: start of
// week relative to a configurable weekly-open weekday, start of month,
// and truncation to a multiple of n seconds, minutes or hours, which
// zeroes every finer field including the sub-second part.
package timeutil

import "time"

// StartOfWeek returns the start (midnight) of the week containing t,
// where the week is considered to begin on Sunday.
func StartOfWeek(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day()-int(t.Weekday()), 0, 0, 0, 0, t.Location())
}

// StartOfWeekOn returns the start (midnight) of the week containing t,
// where the week begins on weeklyOpen. This generalizes StartOfWeek for
// resample configurations that set a non-Sunday weekly_open.
func StartOfWeekOn(t time.Time, weeklyOpen time.Weekday) time.Time {
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	delta := int(midnight.Weekday()) - int(weeklyOpen)
	if delta < 0 {
		delta += 7
	}
	return midnight.AddDate(0, 0, -delta)
}

// StartOfMonth returns the first instant (midnight) of the month
// containing t.
func StartOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// TruncateSeconds zeroes sub-second precision and sets seconds to the
// largest multiple of n not greater than t's second-of-minute, leaving
// minute/hour/date untouched. n must be >= 1.
func TruncateSeconds(t time.Time, n int) time.Time {
	sec := t.Second() - t.Second()%n
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), sec, 0, t.Location())
}

// TruncateMinutes zeroes sub-second and second precision and sets
// minutes to the largest multiple of n not greater than t's
// minute-of-hour.
func TruncateMinutes(t time.Time, n int) time.Time {
	min := t.Minute() - t.Minute()%n
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), min, 0, 0, t.Location())
}

// TruncateHours zeroes sub-second, second and minute precision and sets
// hours to the largest multiple of n not greater than t's hour-of-day.
func TruncateHours(t time.Time, n int) time.Time {
	hr := t.Hour() - t.Hour()%n
	return time.Date(t.Year(), t.Month(), t.Day(), hr, 0, 0, 0, t.Location())
}

// AtTimeOfDay returns the date component of t combined with the given
// time-of-day offset from midnight.
func AtTimeOfDay(t time.Time, timeOfDay time.Duration) time.Time {
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return midnight.Add(timeOfDay)
}

// TimeOfDay returns how far past midnight t is, on t's own date.
func TimeOfDay(t time.Time) time.Duration {
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return t.Sub(midnight)
}

// AddMonths adds n calendar months to t, clamping the day-of-month to
// the last day of the resulting month when the original day doesn't
// exist there (e.g. Jan 31 + 1 month -> Feb 28/29, not Mar 3), and
// preserving t's time-of-day.
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	firstOfTarget := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
	if d > lastDay {
		d = lastDay
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), d,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}
