package tools

import "fmt"

// ErrToolUnavailable is returned when a tool call targets a tool that
// is not present in the registry. This indicates a capability mismatch,
// not a transient execution failure; callers should report it rather
// than retry.
type ErrToolUnavailable struct {
	ToolName string
}

// Error implements the error interface.
func (e *ErrToolUnavailable) Error() string {
	return fmt.Sprintf("tool %q is not available", e.ToolName)
}

// ErrBadArguments is returned when the model produced an argument
// payload that does not parse as a JSON object. The raw payload came
// from the model, so there is nothing to retry; the turn reports the
// failure instead.
type ErrBadArguments struct {
	ToolName string
	Cause    error
}

// Error implements the error interface.
func (e *ErrBadArguments) Error() string {
	return fmt.Sprintf("tool %q: invalid arguments: %v", e.ToolName, e.Cause)
}

// Unwrap exposes the underlying parse error.
func (e *ErrBadArguments) Unwrap() error {
	return e.Cause
}
