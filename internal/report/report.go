// Package report aggregates completed records over a period.
package report

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/goodtune/timelog/internal/metrics"
	"github.com/goodtune/timelog/internal/period"
	"github.com/goodtune/timelog/internal/storage"
)

// Report is the filtered, ordered view of the record log for one period.
type Report struct {
	Period  period.Period
	Start   time.Time
	End     time.Time
	Project string
	Rows    []storage.Record
	Total   time.Duration
}

// Empty reports whether no records matched.
func (r *Report) Empty() bool {
	return len(r.Rows) == 0
}

// Build filters records to the period containing today and, when project is
// non-empty, to that exact project. Rows are ordered by date then task.
func Build(records []storage.Record, p period.Period, today time.Time, project string) *Report {
	start, end := p.Range(today)
	r := &Report{
		Period:  p,
		Start:   start,
		End:     end,
		Project: project,
		Rows:    Filter(records, p, today, project),
	}

	sort.SliceStable(r.Rows, func(i, j int) bool {
		a, b := r.Rows[i], r.Rows[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return a.Task < b.Task
	})

	for _, rec := range r.Rows {
		r.Total += rec.Duration()
	}

	metrics.ReportRows.WithLabelValues(p.String()).Set(float64(len(r.Rows)))
	return r
}

// Filter returns the records inside p relative to today, keeping log order.
// Records without a project never match a non-empty project filter.
func Filter(records []storage.Record, p period.Period, today time.Time, project string) []storage.Record {
	var out []storage.Record
	for _, rec := range records {
		if !p.Contains(today, rec.Date) {
			continue
		}
		if project != "" && rec.Project != project {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// Load reads the record log and builds a report from it. A missing log is
// returned as storage.ErrNotFound with a nil report.
func Load(ctx context.Context, records storage.RecordStore, p period.Period, today time.Time, project string) (*Report, error) {
	all, err := records.LoadAll(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load records: %w", err)
	}
	return Build(all, p, today, project), nil
}

// Title returns the heading used when rendering the report.
func (r *Report) Title() string {
	title := r.Period.Title() + " report"
	if r.Project != "" {
		title += " for project " + r.Project
	}
	return fmt.Sprintf("%s (%s..%s)", title, r.Start.Format(storage.DateLayout), r.End.Format(storage.DateLayout))
}
