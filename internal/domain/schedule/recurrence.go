package schedule

import (
	"fmt"
	"time"
)

// The recurrence policy is the single authoritative implementation of
// due-ness. The selector query only pre-filters coarsely (active, date
// window, time-of-day reached, not already run today); the executor calls
// IsDueToday again before touching anything.

// IsDueToday reports whether a schedule of the given type should run on
// 'today'. lastExecuted is nil when the schedule has never run. A schedule
// already executed on today's calendar date is never due again, regardless
// of type.
func IsDueToday(t Type, startDate time.Time, lastExecuted *time.Time, today time.Time) bool {
	day := dateOf(today)
	if dateOf(startDate).After(day) {
		return false
	}
	if lastExecuted == nil {
		return true
	}
	last := dateOf(*lastExecuted)
	if last.Equal(day) {
		return false
	}
	switch t {
	case TypeOnce:
		// One-shot schedules never fire twice.
		return false
	case TypeDaily:
		return last.Before(day)
	case TypeWeekly:
		return wholeDaysBetween(last, day) >= 7
	case TypeMonthly:
		return last.Year() != day.Year() || last.Month() != day.Month()
	}
	return false
}

// NextExecution computes the informational next-run instant after a run at
// 'from'. It is diagnostic only; eligibility is always recomputed via
// IsDueToday. Returns nil for one-shot schedules.
func NextExecution(t Type, from time.Time, scheduleTime string) *time.Time {
	hour, minute, err := ParseScheduleTime(scheduleTime)
	if err != nil {
		// Invalid stored time; fall back to the run instant's clock.
		hour, minute = from.Hour(), from.Minute()
	}
	base := time.Date(from.Year(), from.Month(), from.Day(), hour, minute, 0, 0, from.Location())

	var next time.Time
	switch t {
	case TypeOnce:
		return nil
	case TypeDaily:
		next = base.AddDate(0, 0, 1)
	case TypeWeekly:
		next = base.AddDate(0, 0, 7)
	case TypeMonthly:
		next = addOneMonthClamped(base)
	default:
		return nil
	}
	return &next
}

// ParseScheduleTime validates and splits a 24h "HH:MM" string.
func ParseScheduleTime(s string) (hour, minute int, err error) {
	parsed, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid schedule time %q: %w", s, err)
	}
	return parsed.Hour(), parsed.Minute(), nil
}

// addOneMonthClamped advances t by one calendar month, clamping the day to
// the last valid day of the target month (Jan 31 -> Feb 28/29, not Mar 3 as
// AddDate would normalize).
func addOneMonthClamped(t time.Time) time.Time {
	firstOfNext := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()).AddDate(0, 1, 0)
	lastDay := firstOfNext.AddDate(0, 1, -1).Day()
	day := t.Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(firstOfNext.Year(), firstOfNext.Month(), day,
		t.Hour(), t.Minute(), 0, 0, t.Location())
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// wholeDaysBetween counts calendar days. Both dates are re-anchored to UTC
// midnights first: local midnights are not 24h apart across a DST change, so
// dividing the wall-clock duration would undercount a week containing a
// spring-forward as 6 days.
func wholeDaysBetween(from, to time.Time) int {
	fromUTC := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	toUTC := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(toUTC.Sub(fromUTC) / (24 * time.Hour))
}
