package plugin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/goodtune/timelog/internal/metrics"
	"github.com/goodtune/timelog/internal/period"
	"github.com/goodtune/timelog/internal/storage"
	"github.com/rs/zerolog"
)

// waitDelay bounds how long Wait lingers on output pipes after the plugin
// has been killed.
const waitDelay = time.Second

// Executor runs plugins resolved through a Registry.
type Executor struct {
	registry Registry
	timeout  time.Duration
	logger   zerolog.Logger
}

// NewExecutor creates an executor. A zero timeout waits for the plugin
// indefinitely.
func NewExecutor(registry Registry, timeout time.Duration, logger zerolog.Logger) *Executor {
	return &Executor{
		registry: registry,
		timeout:  timeout,
		logger:   logger.With().Str("component", "plugin-executor").Logger(),
	}
}

// Upload sends records for period p to the named plugin. A plugin that runs
// cleanly but reports success=false is returned with a nil error; callers
// inspect Response.Success.
func (e *Executor) Upload(ctx context.Context, name string, records []storage.Record, p period.Period, dryRun bool) (*Response, error) {
	path, err := e.registry.Path(name)
	if err != nil {
		return nil, err
	}

	config, err := e.registry.Config(name)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(NewRequest(records, p, config))
	if err != nil {
		return nil, fmt.Errorf("failed to serialize plugin request: %w", err)
	}

	start := time.Now()
	resp, err := e.Run(ctx, path, payload, dryRun)
	metrics.PluginDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	metrics.PluginInvocationsTotal.WithLabelValues(name, outcome(resp, err)).Inc()

	return resp, err
}

// Run executes the plugin at path, writes payload to its stdin and parses
// its stdout.
func (e *Executor) Run(ctx context.Context, path string, payload []byte, dryRun bool) (*Response, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	var args []string
	if dryRun {
		args = append(args, DryRunFlag)
	}
	cmd := exec.CommandContext(ctx, path, args...)
	// Children that inherit the output pipes must not outlive the deadline.
	killProcessGroup(cmd)
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, &TransportError{Op: "spawn", Err: err}
	}

	if err := cmd.Start(); err != nil {
		return nil, &TransportError{Op: "spawn", Err: err}
	}

	e.logger.Debug().
		Str("path", path).
		Int("pid", cmd.Process.Pid).
		Bool("dry_run", dryRun).
		Int("request_bytes", len(payload)).
		Msg("Plugin started")

	// A plugin may exit without reading its input; its exit status decides.
	_, writeErr := stdin.Write(payload)
	closeErr := stdin.Close()
	if writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil && (errors.Is(writeErr, syscall.EPIPE) || errors.Is(writeErr, os.ErrClosed)) {
		writeErr = nil
	}

	waitErr := cmd.Wait()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, &TransportError{Op: "wait", Err: ctxErr}
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			e.logger.Debug().
				Int("exit_code", exitErr.ExitCode()).
				Int("stderr_bytes", stderr.Len()).
				Msg("Plugin exited with failure")
			return nil, &ExitError{Code: exitErr.ExitCode(), Stderr: stderr.String()}
		}
		return nil, &TransportError{Op: "wait", Err: waitErr}
	}

	if writeErr != nil {
		return nil, &TransportError{Op: "write", Err: writeErr}
	}

	e.logger.Debug().
		Int("response_bytes", stdout.Len()).
		Int("stderr_bytes", stderr.Len()).
		Msg("Plugin exited")

	return ParseResponse(stdout.Bytes())
}

// ParseResponse decodes and validates a plugin's stdout.
func ParseResponse(data []byte) (*Response, error) {
	var wire wireResponse
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, &MalformedResponseError{Output: string(data), Err: err}
	}

	var missing string
	switch {
	case wire.Success == nil:
		missing = "success"
	case wire.Message == nil:
		missing = "message"
	case wire.Errors == nil:
		missing = "errors"
	}
	if missing != "" {
		return nil, &MalformedResponseError{Output: string(data), Err: fmt.Errorf("missing field %q", missing)}
	}
	if wire.UploadedCount != nil && *wire.UploadedCount < 0 {
		return nil, &MalformedResponseError{Output: string(data), Err: fmt.Errorf("negative uploaded_count %d", *wire.UploadedCount)}
	}

	return &Response{
		Success:       *wire.Success,
		UploadedCount: wire.UploadedCount,
		Message:       *wire.Message,
		Errors:        *wire.Errors,
	}, nil
}

func outcome(resp *Response, err error) string {
	var exitErr *ExitError
	switch {
	case err == nil && resp.Success:
		return metrics.OutcomeSuccess
	case err == nil:
		return metrics.OutcomeReported
	case errors.As(err, &exitErr):
		return metrics.OutcomeExit
	case errors.Is(err, ErrMalformedResponse):
		return metrics.OutcomeMalformed
	default:
		return metrics.OutcomeTransport
	}
}
