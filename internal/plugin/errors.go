package plugin

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoPlugins         = errors.New("no plugins available; use --list-plugins to see setup instructions")
	ErrAmbiguousPlugin   = errors.New("multiple plugins available")
	ErrPluginNotFound    = errors.New("plugin not found")
	ErrInvalidName       = errors.New("invalid plugin name")
	ErrInvalidConfig     = errors.New("invalid plugin config")
	ErrTransport         = errors.New("plugin transport failure")
	ErrMalformedResponse = errors.New("malformed plugin response")
)

// AmbiguousPluginError is returned when several plugins are installed and
// none was named. It satisfies errors.Is(err, ErrAmbiguousPlugin).
type AmbiguousPluginError struct {
	Plugins []string
}

func (e *AmbiguousPluginError) Error() string {
	return fmt.Sprintf("multiple plugins available (%s), specify one with --plugin <name>", strings.Join(e.Plugins, ", "))
}

func (e *AmbiguousPluginError) Is(target error) bool {
	return target == ErrAmbiguousPlugin
}

// TransportError reports a failure to spawn, feed or reap the plugin
// process.
type TransportError struct {
	Op  string // spawn, write or wait
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("plugin transport failure: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// ExitError reports a non-zero plugin exit. Output is ignored in that case.
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	stderr := strings.TrimSpace(e.Stderr)
	if stderr == "" {
		return fmt.Sprintf("plugin exited with code %d", e.Code)
	}
	return fmt.Sprintf("plugin exited with code %d: %s", e.Code, stderr)
}

func (e *ExitError) Is(target error) bool {
	return target == ErrTransport
}

// MalformedResponseError reports stdout that is not a valid response.
type MalformedResponseError struct {
	Output string
	Err    error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed plugin response: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

func (e *MalformedResponseError) Is(target error) bool {
	return target == ErrMalformedResponse
}
