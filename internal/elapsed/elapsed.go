// Package elapsed converts between the running-segment and accumulated
// representations of tracked time, including the legacy single-anchor form.
package elapsed

import (
	"time"

	"github.com/goodtune/timelog/internal/storage"
)

// epoch is the reference point of the legacy single-anchor encoding, where a
// paused state stored its accumulated time as an offset from the Unix epoch.
var epoch = time.Unix(0, 0).UTC()

// Total returns the total time tracked by s at now. A running segment that
// appears to start in the future (clock skew) contributes nothing.
func Total(s storage.TrackedState, now time.Time) time.Duration {
	total := s.Accumulated
	if s.Active && !s.StartedAt.IsZero() {
		if seg := now.Sub(s.StartedAt); seg > 0 {
			total += seg
		}
	}
	if total < 0 {
		return 0
	}
	return total
}

// Paused returns s with its running segment folded into Accumulated.
func Paused(s storage.TrackedState, now time.Time) storage.TrackedState {
	s.Accumulated = Total(s, now)
	s.StartedAt = time.Time{}
	s.Active = false
	return s
}

// Resumed returns s with a new running segment starting at now.
func Resumed(s storage.TrackedState, now time.Time) storage.TrackedState {
	s.StartedAt = now
	s.Active = true
	return s
}

// EncodeAnchor returns the legacy single-timestamp form of s: the effective
// start time when active, or epoch plus the accumulated time when paused.
func EncodeAnchor(s storage.TrackedState) time.Time {
	if s.Active {
		return s.StartedAt.Add(-s.Accumulated)
	}
	return epoch.Add(s.Accumulated)
}

// DecodeAnchor converts a legacy (anchor, active) pair into explicit fields.
// A paused anchor before the epoch decodes to zero accumulated time.
func DecodeAnchor(anchor time.Time, active bool) (startedAt time.Time, accumulated time.Duration) {
	if active {
		return anchor, 0
	}
	acc := anchor.Sub(epoch)
	if acc < 0 {
		acc = 0
	}
	return time.Time{}, acc
}
