// Package errs defines the error types surfaced by an export run.
//
// Every failure is fatal to the current export; there are no retries.
// The types exist so that callers and tests can tell a bad project setting
// apart from a corrupt template or an external tool failure.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound reports a missing section or key in the project descriptor.
// Callers treat it as a missing required setting.
var ErrNotFound = errors.New("setting not found")

// ConfigError reports a malformed settings file or a missing/invalid
// project setting.
type ConfigError struct {
	msg string
	err error
}

func (e *ConfigError) Error() string { return e.msg }
func (e *ConfigError) Unwrap() error { return e.err }

// Configf creates a ConfigError.
func Configf(format string, args ...any) error {
	return &ConfigError{msg: fmt.Sprintf(format, args...)}
}

// ConfigWrap creates a ConfigError that wraps err.
func ConfigWrap(err error, format string, args ...any) error {
	return &ConfigError{msg: fmt.Sprintf(format, args...) + ": " + err.Error(), err: err}
}

// ValidationError reports a field that failed a static rule before any
// filesystem mutation took place.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

// Validationf creates a ValidationError.
func Validationf(format string, args ...any) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// SynthesisError reports a required template substitution that matched zero
// times, or a required external-config key path that is absent. The template
// or config file is considered corrupt, not silently skipped.
type SynthesisError struct {
	msg string
}

func (e *SynthesisError) Error() string { return e.msg }

// Synthesisf creates a SynthesisError.
func Synthesisf(format string, args ...any) error {
	return &SynthesisError{msg: fmt.Sprintf(format, args...)}
}

// ToolError reports a failed external tool invocation. The tool's raw
// output is preserved for diagnostics.
type ToolError struct {
	Tool   string
	Output string
	msg    string
}

func (e *ToolError) Error() string {
	if strings.TrimSpace(e.Output) == "" {
		return e.msg
	}
	return e.msg + "\n" + e.Output
}

// Toolf creates a ToolError for the named tool, preserving its raw output.
func Toolf(tool, output, format string, args ...any) error {
	return &ToolError{Tool: tool, Output: output, msg: fmt.Sprintf(format, args...)}
}
