package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestWriteTextfile(t *testing.T) {
	TransitionsTotal.WithLabelValues("start", "ok").Inc()
	PluginInvocationsTotal.WithLabelValues("toggl", OutcomeSuccess).Inc()

	path := filepath.Join(t.TempDir(), "timelog.prom")
	if err := WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	out := string(data)
	for _, want := range []string{
		`timelog_transitions_total{outcome="ok",transition="start"}`,
		`timelog_plugin_invocations_total{outcome="success",plugin="toggl"}`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("textfile missing %s\n%s", want, out)
		}
	}
	if strings.Contains(out, "go_goroutines") {
		t.Error("textfile should not include Go runtime metrics")
	}
}

func TestTransitionsCounter(t *testing.T) {
	before := testutil.ToFloat64(TransitionsTotal.WithLabelValues("pause", "error"))
	TransitionsTotal.WithLabelValues("pause", "error").Inc()
	after := testutil.ToFloat64(TransitionsTotal.WithLabelValues("pause", "error"))
	if after-before != 1 {
		t.Fatalf("expected counter to advance by 1, got %v", after-before)
	}
}
