// Package plugin runs external upload programs over a JSON stdin/stdout
// protocol.
package plugin

import (
	"encoding/json"

	"github.com/goodtune/timelog/internal/period"
	"github.com/goodtune/timelog/internal/storage"
)

// DryRunFlag is passed as the only argument when no upload should happen.
const DryRunFlag = "--dry-run"

// Record is the wire form of a completed record.
type Record struct {
	Task       string  `json:"task"`
	DurationMS int64   `json:"duration_ms"`
	Date       string  `json:"date"`
	Project    *string `json:"project"`
}

// Request is written to the plugin's stdin.
type Request struct {
	Records []Record        `json:"records"`
	Period  string          `json:"period"`
	Config  json.RawMessage `json:"config"`
}

// Response is read from the plugin's stdout after a zero exit.
type Response struct {
	Success       bool     `json:"success"`
	UploadedCount *int     `json:"uploaded_count"`
	Message       string   `json:"message"`
	Errors        []string `json:"errors"`
}

// NewRequest builds the request for records in period p. A nil config is
// sent as an empty object.
func NewRequest(records []storage.Record, p period.Period, config json.RawMessage) Request {
	if len(config) == 0 {
		config = json.RawMessage("{}")
	}
	wire := make([]Record, 0, len(records))
	for _, rec := range records {
		r := Record{
			Task:       rec.Task,
			DurationMS: rec.DurationMS,
			Date:       rec.DateString(),
		}
		if rec.HasProject() {
			project := rec.Project
			r.Project = &project
		}
		wire = append(wire, r)
	}
	return Request{Records: wire, Period: p.String(), Config: config}
}

// wireResponse mirrors Response with every field optional so missing keys
// can be told apart from zero values.
type wireResponse struct {
	Success       *bool     `json:"success"`
	UploadedCount *int      `json:"uploaded_count"`
	Message       *string   `json:"message"`
	Errors        *[]string `json:"errors"`
}
