// Package amend rewrites a single completed record selected by date and
// task substring.
package amend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goodtune/timelog/internal/durfmt"
	"github.com/goodtune/timelog/internal/metrics"
	"github.com/goodtune/timelog/internal/storage"
	"github.com/rs/zerolog"
)

var (
	ErrInvalidDate     = errors.New("invalid date format; use YYYY-MM-DD")
	ErrEmptyPattern    = errors.New("task pattern must not be empty")
	ErrNoRecords       = errors.New("no records found")
	ErrNoMatch         = errors.New("no matching record")
	ErrAmbiguous       = errors.New("ambiguous task pattern")
	ErrNoChanges       = errors.New("no changes specified; use --new-task, --new-duration, or --new-project")
	ErrInvalidDuration = errors.New("duration must be positive")
)

// AmbiguousMatchError lists every record matched by an ambiguous pattern.
// It satisfies errors.Is(err, ErrAmbiguous).
type AmbiguousMatchError struct {
	Pattern string
	Matches []storage.Record
}

func (e *AmbiguousMatchError) Error() string {
	return fmt.Sprintf("found %d records matching %q; use a more specific task pattern to match exactly one record", len(e.Matches), e.Pattern)
}

func (e *AmbiguousMatchError) Is(target error) bool {
	return target == ErrAmbiguous
}

// Changes holds the replacements to apply. Nil fields are left untouched;
// an empty Project clears the project.
type Changes struct {
	Task            *string
	DurationMinutes *int64
	Project         *string
}

// Empty reports whether no replacement was supplied.
func (c Changes) Empty() bool {
	return c.Task == nil && c.DurationMinutes == nil && c.Project == nil
}

// Request selects one record and describes how to rewrite it.
type Request struct {
	Date    time.Time
	Pattern string
	Changes Changes
	DryRun  bool
}

// Result describes an amendment, applied or not.
type Result struct {
	Index    int
	Original storage.Record
	Amended  storage.Record
	Changes  []string
	Applied  bool
}

// Engine applies amendments to a record store.
type Engine struct {
	records storage.RecordStore
	logger  zerolog.Logger
}

// New creates an amend engine over records.
func New(records storage.RecordStore, logger zerolog.Logger) *Engine {
	return &Engine{
		records: records,
		logger:  logger.With().Str("component", "amend").Logger(),
	}
}

// ParseDate parses the YYYY-MM-DD date argument.
func ParseDate(s string) (time.Time, error) {
	d, err := storage.ParseDate(strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return d, nil
}

// Amend locates the single record on req.Date whose task contains
// req.Pattern and replaces it with the requested changes. Nothing is
// persisted on error or in dry-run mode.
func (e *Engine) Amend(ctx context.Context, req Request) (*Result, error) {
	if req.Pattern == "" {
		return nil, ErrEmptyPattern
	}

	if locker, ok := e.records.(storage.Locker); ok {
		unlock, err := locker.Lock(ctx)
		if err != nil {
			return nil, fmt.Errorf("lock records: %w", err)
		}
		defer func() {
			if err := unlock(); err != nil {
				e.logger.Warn().Err(err).Msg("Failed to release record lock")
			}
		}()
	}

	records, err := e.records.LoadAll(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNoRecords
		}
		return nil, fmt.Errorf("load records: %w", err)
	}

	index, err := match(records, req.Date, req.Pattern)
	if err != nil {
		return nil, err
	}

	original := records[index]
	amended, changes, err := apply(original, req.Changes)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Index:    index,
		Original: original,
		Amended:  amended,
		Changes:  changes,
	}

	if req.DryRun {
		e.logger.Debug().Int("index", index).Msg("Dry run, record left unchanged")
		return result, nil
	}

	records[index] = amended
	if err := e.records.SaveAll(ctx, records); err != nil {
		return nil, fmt.Errorf("save records: %w", err)
	}
	result.Applied = true

	metrics.RecordsAmended.Inc()
	e.logger.Debug().
		Int("index", index).
		Strs("changes", changes).
		Msg("Record amended")

	return result, nil
}

// match returns the index of the only record on date whose task contains
// pattern.
func match(records []storage.Record, date time.Time, pattern string) (int, error) {
	var indices []int
	for i, rec := range records {
		if rec.Date.Equal(date) && strings.Contains(rec.Task, pattern) {
			indices = append(indices, i)
		}
	}

	switch len(indices) {
	case 0:
		return -1, fmt.Errorf("%w: no records found matching date %s and task pattern '%s'",
			ErrNoMatch, date.Format(storage.DateLayout), pattern)
	case 1:
		return indices[0], nil
	default:
		matches := make([]storage.Record, 0, len(indices))
		for _, i := range indices {
			matches = append(matches, records[i])
		}
		return -1, &AmbiguousMatchError{Pattern: pattern, Matches: matches}
	}
}

// apply returns rec with changes applied and a human readable change list.
func apply(rec storage.Record, c Changes) (storage.Record, []string, error) {
	if c.Empty() {
		return rec, nil, ErrNoChanges
	}

	out := rec
	var changes []string

	if c.Task != nil {
		out.Task = *c.Task
		changes = append(changes, fmt.Sprintf("task: '%s' → '%s'", rec.Task, out.Task))
	}

	if c.DurationMinutes != nil {
		if *c.DurationMinutes <= 0 {
			return rec, nil, ErrInvalidDuration
		}
		out.DurationMS = *c.DurationMinutes * 60 * 1000
		changes = append(changes, fmt.Sprintf("duration: %s → %s",
			durfmt.HMS(rec.DurationMS), durfmt.HMS(out.DurationMS)))
	}

	if c.Project != nil {
		out.Project = *c.Project
		changes = append(changes, fmt.Sprintf("project: %s → %s", projectLabel(rec.Project), projectLabel(out.Project)))
	}

	return out, changes, nil
}

func projectLabel(p string) string {
	if p == "" {
		return "(none)"
	}
	return p
}
