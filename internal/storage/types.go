package storage

import (
	"time"
)

// DateLayout is the ISO calendar date format used for record dates.
const DateLayout = "2006-01-02"

// TrackedState is the single in-progress task.
//
// While Active, StartedAt marks the beginning of the current running segment
// and Accumulated holds time banked by earlier segments. While paused,
// StartedAt is zero and Accumulated is the full elapsed time.
type TrackedState struct {
	Task        string
	Project     string
	Active      bool
	StartedAt   time.Time
	Accumulated time.Duration
}

// Record is a completed task entry.
type Record struct {
	Task       string
	DurationMS int64
	// Date is a calendar date stored as midnight UTC.
	Date    time.Time
	Project string
}

// Duration returns the record duration as a time.Duration.
func (r Record) Duration() time.Duration {
	return time.Duration(r.DurationMS) * time.Millisecond
}

// DateString formats the record date as YYYY-MM-DD.
func (r Record) DateString() string {
	return r.Date.Format(DateLayout)
}

// HasProject reports whether the record carries a project label.
func (r Record) HasProject() bool {
	return r.Project != ""
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// DateOf returns the calendar date of t in t's own location, as midnight UTC.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
