// Package durfmt renders millisecond durations for terminal output.
package durfmt

import "fmt"

// Short renders ms as "01h02m", adding a seconds component when it is not
// zero: "01h02m03s". Sub-second remainders are dropped.
func Short(ms int64) string {
	totalSecs := ms / 1000
	h := totalSecs / 3600
	m := (totalSecs % 3600) / 60
	s := totalSecs % 60
	if s == 0 {
		return fmt.Sprintf("%02dh%02dm", h, m)
	}
	return fmt.Sprintf("%02dh%02dm%02ds", h, m, s)
}

// HMS renders ms as "hh:mm:ss.mmm".
func HMS(ms int64) string {
	total := ms / 1000
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	frac := ms % 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, frac)
}

// ClampNonNeg returns 0 for negative values.
func ClampNonNeg(ms int64) int64 {
	if ms < 0 {
		return 0
	}
	return ms
}
