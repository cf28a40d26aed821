package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Registry holds every timelog collector. It is separate from the default
	// registry so textfile exports carry no Go runtime metrics.
	Registry = prometheus.NewRegistry()

	// Lifecycle metrics
	TransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timelog_transitions_total",
			Help: "Task lifecycle transitions attempted",
		},
		[]string{"transition", "outcome"},
	)

	RecordedDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "timelog_recorded_duration_seconds",
			Help:    "Duration of records written by stop",
			Buckets: []float64{60, 300, 900, 1800, 3600, 7200, 14400, 28800},
		},
	)

	// Record log metrics
	RecordsAmended = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "timelog_records_amended_total",
			Help: "Records rewritten by amend",
		},
	)

	ReportRows = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "timelog_report_rows",
			Help: "Rows in the most recent report",
		},
		[]string{"period"},
	)

	// Plugin metrics
	PluginInvocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timelog_plugin_invocations_total",
			Help: "Plugin executions by outcome",
		},
		[]string{"plugin", "outcome"},
	)

	PluginDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "timelog_plugin_duration_seconds",
			Help:    "Wall time spent waiting for plugin processes",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"plugin"},
	)

	LastRun = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "timelog_last_run_timestamp_seconds",
			Help: "Unix time of the last invocation of each command",
		},
		[]string{"command"},
	)
)

// Plugin outcome labels.
const (
	OutcomeSuccess   = "success"
	OutcomeReported  = "reported_failure"
	OutcomeTransport = "transport_error"
	OutcomeExit      = "exit_error"
	OutcomeMalformed = "malformed_response"
)

func init() {
	Registry.MustRegister(
		TransitionsTotal,
		RecordedDuration,
		RecordsAmended,
		ReportRows,
		PluginInvocationsTotal,
		PluginDuration,
		LastRun,
	)
}

// WriteTextfile writes the current metric values in the Prometheus text
// format, suitable for the node_exporter textfile collector.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, Registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
