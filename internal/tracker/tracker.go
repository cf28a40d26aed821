// Package tracker implements the task lifecycle: start, pause, resume, stop
// and status over a single persisted in-progress task.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goodtune/timelog/internal/elapsed"
	"github.com/goodtune/timelog/internal/metrics"
	"github.com/goodtune/timelog/internal/storage"
	"github.com/rs/zerolog"
)

var (
	ErrEmptyTask         = errors.New("task name must not be empty")
	ErrAlreadyInProgress = errors.New("a task is already in progress; run `timelog pause` or `timelog stop`")
	ErrNoActiveTask      = errors.New("no active task to pause")
	ErrAlreadyPaused     = errors.New("task is already paused; use `timelog resume`")
	ErrNoPausedTask      = errors.New("no paused task to resume")
	ErrAlreadyActive     = errors.New("task is already running")
	ErrNoTaskInProgress  = errors.New("no task in progress")
)

// Status describes the in-progress task at a point in time.
type Status struct {
	State   storage.TrackedState
	Elapsed time.Duration
	At      time.Time
}

// Tracker owns the lifecycle of the single in-progress task.
type Tracker struct {
	state   storage.StateStore
	records storage.RecordStore
	clock   Clock
	logger  zerolog.Logger
}

// New creates a tracker. A nil clock uses the system time.
func New(state storage.StateStore, records storage.RecordStore, clock Clock, logger zerolog.Logger) *Tracker {
	if clock == nil {
		clock = RealClock{}
	}
	return &Tracker{
		state:   state,
		records: records,
		clock:   clock,
		logger:  logger.With().Str("component", "tracker").Logger(),
	}
}

// Start begins tracking task. Legal only when no task is in progress.
func (t *Tracker) Start(ctx context.Context, task, project string) (st *Status, err error) {
	defer observe("start", &err)

	task = strings.TrimSpace(task)
	if task == "" {
		return nil, ErrEmptyTask
	}

	unlock, err := t.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	exists, err := t.state.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("check state: %w", err)
	}
	if exists {
		return nil, ErrAlreadyInProgress
	}

	now := t.clock.Now()
	state := storage.TrackedState{
		Task:      task,
		Project:   strings.TrimSpace(project),
		Active:    true,
		StartedAt: now,
	}
	if err := t.state.Save(ctx, state); err != nil {
		return nil, fmt.Errorf("save state: %w", err)
	}

	t.logger.Debug().
		Str("task", state.Task).
		Str("project", state.Project).
		Time("started_at", now).
		Msg("Task started")

	return &Status{State: state, At: now}, nil
}

// Pause banks the elapsed time of the active task.
func (t *Tracker) Pause(ctx context.Context) (st *Status, err error) {
	defer observe("pause", &err)

	unlock, err := t.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	state, err := t.load(ctx, ErrNoActiveTask)
	if err != nil {
		return nil, err
	}
	if !state.Active {
		return nil, ErrAlreadyPaused
	}

	now := t.clock.Now()
	paused := elapsed.Paused(*state, now)
	if err := t.state.Save(ctx, paused); err != nil {
		return nil, fmt.Errorf("save state: %w", err)
	}

	t.logger.Debug().
		Str("task", paused.Task).
		Dur("accumulated", paused.Accumulated).
		Msg("Task paused")

	return &Status{State: paused, Elapsed: paused.Accumulated, At: now}, nil
}

// Resume starts a new running segment for a paused task.
func (t *Tracker) Resume(ctx context.Context) (st *Status, err error) {
	defer observe("resume", &err)

	unlock, err := t.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	state, err := t.load(ctx, ErrNoPausedTask)
	if err != nil {
		return nil, err
	}
	if state.Active {
		return nil, ErrAlreadyActive
	}

	now := t.clock.Now()
	resumed := elapsed.Resumed(*state, now)
	if err := t.state.Save(ctx, resumed); err != nil {
		return nil, fmt.Errorf("save state: %w", err)
	}

	t.logger.Debug().
		Str("task", resumed.Task).
		Dur("accumulated", resumed.Accumulated).
		Msg("Task resumed")

	return &Status{State: resumed, Elapsed: resumed.Accumulated, At: now}, nil
}

// Stop finishes the in-progress task, appends its record dated today in
// local time, and clears the state.
func (t *Tracker) Stop(ctx context.Context) (rec *storage.Record, err error) {
	defer observe("stop", &err)

	unlock, err := t.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	state, err := t.load(ctx, ErrNoTaskInProgress)
	if err != nil {
		return nil, err
	}

	now := t.clock.Now()
	total := elapsed.Total(*state, now)
	record := storage.Record{
		Task:       state.Task,
		DurationMS: total.Milliseconds(),
		Date:       storage.DateOf(now.In(time.Local)),
		Project:    state.Project,
	}
	if record.DurationMS < 0 {
		record.DurationMS = 0
	}

	if err := t.records.Append(ctx, record); err != nil {
		return nil, fmt.Errorf("append record: %w", err)
	}
	// The record is already written; a failed delete leaves the state behind
	// and a second stop would log the task twice.
	if err := t.state.Delete(ctx); err != nil {
		return nil, fmt.Errorf("delete state: %w", err)
	}

	metrics.RecordedDuration.Observe(total.Seconds())
	t.logger.Debug().
		Str("task", record.Task).
		Int64("duration_ms", record.DurationMS).
		Str("date", record.DateString()).
		Msg("Task stopped")

	return &record, nil
}

// Status reports the in-progress task without changing it.
func (t *Tracker) Status(ctx context.Context) (st *Status, err error) {
	state, err := t.load(ctx, ErrNoTaskInProgress)
	if err != nil {
		return nil, err
	}
	now := t.clock.Now()
	return &Status{State: *state, Elapsed: elapsed.Total(*state, now), At: now}, nil
}

func (t *Tracker) load(ctx context.Context, missing error) (*storage.TrackedState, error) {
	state, err := t.state.Load(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, missing
	}
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	return state, nil
}

// lock takes the state lock and then the record lock for stores that
// support cross-process locking. Always in that order.
func (t *Tracker) lock(ctx context.Context) (func(), error) {
	var releases []func() error
	unlock := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			if err := releases[i](); err != nil {
				t.logger.Warn().Err(err).Msg("Failed to release lock")
			}
		}
	}

	for _, s := range []any{t.state, t.records} {
		locker, ok := s.(storage.Locker)
		if !ok {
			continue
		}
		release, err := locker.Lock(ctx)
		if err != nil {
			unlock()
			return nil, fmt.Errorf("acquire lock: %w", err)
		}
		releases = append(releases, release)
	}
	return unlock, nil
}

func observe(transition string, err *error) {
	outcome := "ok"
	if *err != nil {
		outcome = "error"
	}
	metrics.TransitionsTotal.WithLabelValues(transition, outcome).Inc()
}
