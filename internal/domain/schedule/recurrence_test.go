package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func at(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

func TestIsDueToday_Once(t *testing.T) {
	start := date(2025, time.March, 10)

	assert.True(t, IsDueToday(TypeOnce, start, nil, date(2025, time.March, 10)))
	assert.True(t, IsDueToday(TypeOnce, start, nil, date(2025, time.April, 1)))
	assert.False(t, IsDueToday(TypeOnce, start, nil, date(2025, time.March, 9)), "not started yet")

	// After exactly one run it is never due again, at any later date.
	ran := at(2025, time.March, 10, 9, 0)
	assert.False(t, IsDueToday(TypeOnce, start, &ran, date(2025, time.March, 10)))
	assert.False(t, IsDueToday(TypeOnce, start, &ran, date(2025, time.March, 11)))
	assert.False(t, IsDueToday(TypeOnce, start, &ran, date(2026, time.March, 10)))
}

func TestIsDueToday_Daily(t *testing.T) {
	start := date(2025, time.March, 1)
	ranD := at(2025, time.March, 10, 9, 5)

	assert.False(t, IsDueToday(TypeDaily, start, &ranD, date(2025, time.March, 10)), "already ran on day D")
	assert.True(t, IsDueToday(TypeDaily, start, &ranD, date(2025, time.March, 11)), "due again on D+1")
	assert.True(t, IsDueToday(TypeDaily, start, nil, date(2025, time.March, 1)))
	assert.False(t, IsDueToday(TypeDaily, start, nil, date(2025, time.February, 28)))
}

func TestIsDueToday_Weekly(t *testing.T) {
	start := date(2025, time.March, 1)
	ran := at(2025, time.March, 3, 10, 0) // Monday

	for offset := 1; offset <= 6; offset++ {
		assert.False(t, IsDueToday(TypeWeekly, start, &ran, date(2025, time.March, 3+offset)),
			"day %d after last run must not be due", offset)
	}
	assert.True(t, IsDueToday(TypeWeekly, start, &ran, date(2025, time.March, 10)), "day 7 is due")
	assert.True(t, IsDueToday(TypeWeekly, start, &ran, date(2025, time.March, 15)), "past day 7 is due")
	assert.True(t, IsDueToday(TypeWeekly, start, nil, date(2025, time.March, 2)), "never executed")
}

func TestIsDueToday_Weekly_AcrossDSTChange(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	start := time.Date(2025, time.March, 1, 0, 0, 0, 0, loc)

	// Mar 9 2025 is the spring-forward date, so Tue Mar 4 -> Tue Mar 11 is
	// only 167 wall-clock hours but still 7 calendar days.
	ranSpring := time.Date(2025, time.March, 4, 10, 0, 0, 0, loc)
	assert.False(t, IsDueToday(TypeWeekly, start, &ranSpring, time.Date(2025, time.March, 10, 9, 0, 0, 0, loc)), "day 6")
	assert.True(t, IsDueToday(TypeWeekly, start, &ranSpring, time.Date(2025, time.March, 11, 9, 0, 0, 0, loc)), "day 7 across spring-forward")

	// Fall-back direction (Nov 2 2025): 169 wall-clock hours, still 7 days.
	ranFall := time.Date(2025, time.October, 28, 10, 0, 0, 0, loc)
	assert.False(t, IsDueToday(TypeWeekly, start, &ranFall, time.Date(2025, time.November, 3, 9, 0, 0, 0, loc)), "day 6")
	assert.True(t, IsDueToday(TypeWeekly, start, &ranFall, time.Date(2025, time.November, 4, 9, 0, 0, 0, loc)), "day 7 across fall-back")
}

func TestIsDueToday_Monthly(t *testing.T) {
	start := date(2025, time.January, 15)
	ran := at(2025, time.March, 5, 9, 0)

	assert.False(t, IsDueToday(TypeMonthly, start, &ran, date(2025, time.March, 31)), "same month/year")
	assert.True(t, IsDueToday(TypeMonthly, start, &ran, date(2025, time.April, 1)), "month changed")
	assert.True(t, IsDueToday(TypeMonthly, start, &ran, date(2026, time.March, 5)), "year changed")
	assert.True(t, IsDueToday(TypeMonthly, start, nil, date(2025, time.January, 15)))
}

func TestIsDueToday_SameDayGuardAppliesToAllTypes(t *testing.T) {
	start := date(2025, time.March, 1)
	today := date(2025, time.March, 10)
	ranToday := at(2025, time.March, 10, 0, 1)

	for _, typ := range []Type{TypeOnce, TypeDaily, TypeWeekly, TypeMonthly} {
		assert.False(t, IsDueToday(typ, start, &ranToday, today), "type %s must not re-fire same day", typ)
	}
}

func TestNextExecution(t *testing.T) {
	from := at(2025, time.March, 10, 9, 5)

	assert.Nil(t, NextExecution(TypeOnce, from, "09:00"), "one-shot has no next run")

	next := NextExecution(TypeDaily, from, "09:00")
	require.NotNil(t, next)
	assert.Equal(t, at(2025, time.March, 11, 9, 0), *next)

	next = NextExecution(TypeWeekly, from, "14:30")
	require.NotNil(t, next)
	assert.Equal(t, at(2025, time.March, 17, 14, 30), *next)

	next = NextExecution(TypeMonthly, from, "09:00")
	require.NotNil(t, next)
	assert.Equal(t, at(2025, time.April, 10, 9, 0), *next)
}

func TestNextExecution_MonthlyClampsOverflow(t *testing.T) {
	// Jan 31 -> Feb 28 (non-leap), not Mar 3.
	next := NextExecution(TypeMonthly, at(2025, time.January, 31, 9, 0), "09:00")
	require.NotNil(t, next)
	assert.Equal(t, at(2025, time.February, 28, 9, 0), *next)

	// Leap year: Jan 31 2024 -> Feb 29.
	next = NextExecution(TypeMonthly, at(2024, time.January, 31, 9, 0), "09:00")
	require.NotNil(t, next)
	assert.Equal(t, at(2024, time.February, 29, 9, 0), *next)

	// Dec rolls into January of the next year.
	next = NextExecution(TypeMonthly, at(2025, time.December, 31, 9, 0), "09:00")
	require.NotNil(t, next)
	assert.Equal(t, at(2026, time.January, 31, 9, 0), *next)
}

func TestParseScheduleTime(t *testing.T) {
	hour, minute, err := ParseScheduleTime("09:30")
	require.NoError(t, err)
	assert.Equal(t, 9, hour)
	assert.Equal(t, 30, minute)

	_, _, err = ParseScheduleTime("25:00")
	assert.Error(t, err)
	_, _, err = ParseScheduleTime("nine")
	assert.Error(t, err)
}

func TestParseVariables(t *testing.T) {
	vars, err := ParseVariables([]byte(`{"greeting":"Hello","count":3,"flag":true,"empty":null}`))
	require.NoError(t, err)
	assert.Equal(t, "Hello", vars["greeting"])
	assert.Equal(t, "3", vars["count"])
	assert.Equal(t, "true", vars["flag"])
	assert.Equal(t, "", vars["empty"])

	vars, err = ParseVariables(nil)
	require.NoError(t, err)
	assert.Empty(t, vars)

	vars, err = ParseVariables([]byte(`{broken`))
	assert.Error(t, err)
	assert.Empty(t, vars, "a malformed payload still yields a usable empty map")
}
