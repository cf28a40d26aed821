// Package period maps named reporting periods to inclusive calendar date ranges.
package period

import (
	"fmt"
	"strings"
	"time"
)

// Period selects a reporting date range relative to a reference day.
type Period int

const (
	Today Period = iota
	Yesterday
	ThisWeek
	LastWeek
	ThisMonth
	LastMonth
	YTD
	LastYear
)

// All lists every period in display order.
var All = []Period{Today, Yesterday, ThisWeek, LastWeek, ThisMonth, LastMonth, YTD, LastYear}

type info struct {
	name  string // canonical lowercase name sent to plugins
	flag  string // kebab-case CLI spelling
	title string
	rng   func(today time.Time) (time.Time, time.Time)
}

var periods = map[Period]info{
	Today:     {"today", "today", "Today", todayRange},
	Yesterday: {"yesterday", "yesterday", "Yesterday", yesterdayRange},
	ThisWeek:  {"thisweek", "this-week", "This Week", thisWeekRange},
	LastWeek:  {"lastweek", "last-week", "Last Week", lastWeekRange},
	ThisMonth: {"thismonth", "this-month", "This Month", thisMonthRange},
	LastMonth: {"lastmonth", "last-month", "Last Month", lastMonthRange},
	YTD:       {"ytd", "ytd", "Year To Date", ytdRange},
	LastYear:  {"lastyear", "last-year", "Last Year", lastYearRange},
}

// String returns the canonical lowercase name, e.g. "thisweek".
func (p Period) String() string {
	if i, ok := periods[p]; ok {
		return i.name
	}
	return fmt.Sprintf("period(%d)", int(p))
}

// Flag returns the kebab-case spelling accepted on the command line.
func (p Period) Flag() string {
	return periods[p].flag
}

// Title returns the human readable report title.
func (p Period) Title() string {
	return periods[p].title
}

// Parse accepts the canonical name, the kebab-case or snake_case spelling,
// case-insensitively.
func Parse(s string) (Period, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "", "_", "", " ", "").Replace(norm)
	for _, p := range All {
		if periods[p].name == norm {
			return p, nil
		}
	}
	return 0, fmt.Errorf("invalid period %q (valid: %s)", s, strings.Join(Flags(), ", "))
}

// Flags returns the CLI spelling of every period.
func Flags() []string {
	out := make([]string, 0, len(All))
	for _, p := range All {
		out = append(out, p.Flag())
	}
	return out
}

// Range returns the inclusive [start, end] calendar dates for p relative to
// today. Only the year, month and day of today are used; results are
// midnight UTC.
func (p Period) Range(today time.Time) (start, end time.Time) {
	i, ok := periods[p]
	if !ok {
		d := dateOf(today)
		return d, d
	}
	return i.rng(dateOf(today))
}

// Contains reports whether date falls inside p's range relative to today.
func (p Period) Contains(today, date time.Time) bool {
	start, end := p.Range(today)
	d := dateOf(date)
	return !d.Before(start) && !d.After(end)
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func todayRange(today time.Time) (time.Time, time.Time) {
	return today, today
}

func yesterdayRange(today time.Time) (time.Time, time.Time) {
	y := today.AddDate(0, 0, -1)
	return y, y
}

func thisWeekRange(today time.Time) (time.Time, time.Time) {
	return mondayOf(today), today
}

func lastWeekRange(today time.Time) (time.Time, time.Time) {
	monday := mondayOf(today)
	return monday.AddDate(0, 0, -7), monday.AddDate(0, 0, -1)
}

func thisMonthRange(today time.Time) (time.Time, time.Time) {
	return firstOfMonth(today.Year(), today.Month()), today
}

func lastMonthRange(today time.Time) (time.Time, time.Time) {
	y, m := today.Year(), today.Month()-1
	if m < time.January {
		y, m = y-1, time.December
	}
	return firstOfMonth(y, m), lastOfMonth(y, m)
}

func ytdRange(today time.Time) (time.Time, time.Time) {
	return firstOfMonth(today.Year(), time.January), today
}

func lastYearRange(today time.Time) (time.Time, time.Time) {
	y := today.Year() - 1
	return firstOfMonth(y, time.January), lastOfMonth(y, time.December)
}

// mondayOf returns the Monday starting the ISO week containing d.
func mondayOf(d time.Time) time.Time {
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

func firstOfMonth(y int, m time.Month) time.Time {
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

// lastOfMonth is the day before the first day of the following month.
func lastOfMonth(y int, m time.Month) time.Time {
	next := firstOfMonth(y, m).AddDate(0, 1, 0)
	return next.AddDate(0, 0, -1)
}
