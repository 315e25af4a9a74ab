package core

import (
	"strings"
	"time"
)

// Period is a trailing time-window token.
type Period string

const (
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
	PeriodAll   Period = "all"
)

// Granularity is the bucket width of a trend point.
type Granularity string

const (
	GranularityDay   Granularity = "day"
	GranularityWeek  Granularity = "week"
	GranularityMonth Granularity = "month"
)

// Window is a resolved period: how far back it reaches and how its trend
// series is bucketed. Days == 0 means unbounded.
type Window struct {
	Period      Period
	Days        int
	Granularity Granularity
}

// Windows are fixed width, not calendar aware.
var windows = map[Period]Window{
	PeriodWeek:  {Period: PeriodWeek, Days: 7, Granularity: GranularityDay},
	PeriodMonth: {Period: PeriodMonth, Days: 30, Granularity: GranularityWeek},
	PeriodYear:  {Period: PeriodYear, Days: 365, Granularity: GranularityMonth},
	PeriodAll:   {Period: PeriodAll, Days: 0, Granularity: GranularityDay},
}

// ResolveWindow maps a period token to its window. Unknown tokens resolve
// to the unfiltered "all" window instead of failing.
func ResolveWindow(token string) Window {
	if w, ok := windows[Period(strings.TrimSpace(token))]; ok {
		return w
	}
	return windows[PeriodAll]
}

// Bounded reports whether the window filters on created_at at all.
func (w Window) Bounded() bool {
	return w.Days > 0
}

// Since returns the first included day for a window ending today.
// ok is false for the unbounded window.
func (w Window) Since(today time.Time) (since Date, ok bool) {
	if !w.Bounded() {
		return Date{}, false
	}
	return NewDate(today).AddDays(-w.Days), true
}

// Contains reports whether a transaction day falls inside the window.
func (w Window) Contains(today time.Time, day Date) bool {
	since, ok := w.Since(today)
	if !ok {
		return true
	}
	return !day.Before(since.Time)
}

// AddDays shifts the date by n calendar days.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// MonthStart returns the first day of the date's month.
func (d Date) MonthStart() Date {
	y, m, _ := d.Date()
	return Date{Time: time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)}
}

// ComparisonSince is the first day considered by the month-over-month
// comparison: the start of the month two calendar months before today.
func ComparisonSince(today time.Time) Date {
	return NewDate(today).MonthStart().AddMonths(-2)
}

// AddMonths shifts a month-start date by n months.
func (d Date) AddMonths(n int) Date {
	return Date{Time: d.Time.AddDate(0, n, 0)}
}
