// Package tool implements the function calling subsystem: named,
// schema-validated external operations with consistent error handling. The
// registry compiles each tool's parameter schema at registration and the
// executor enforces the invocation contract (validated input, at most one
// execution per call id, bounded duration, typed failures).
package tool

import (
	"context"
	"errors"
	"fmt"
)

// Error codes used across the tool subsystem. NotFound and Upstream are
// recoverable (the model narrates them to the user); Configuration aborts
// the turn; Protocol indicates a defect, not a user error.
const (
	CodeNotFound      = "NOT_FOUND"
	CodeUpstream      = "UPSTREAM_ERROR"
	CodeConfiguration = "CONFIGURATION_ERROR"
	CodeValidation    = "VALIDATION_ERROR"
	CodeCancelled     = "CANCELLED"
	CodeTimeout       = "TIMEOUT"
	CodeProtocol      = "PROTOCOL_ERROR"
)

// Tool defines the interface for extending the assistant with external
// operations. Tools are pure with respect to conversation state: they read
// only their input and return only their output or error. Implementations
// must be safe for concurrent use and honor ctx cancellation on outbound
// calls.
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description provided to the LLM
	// to help it decide when and how to use the tool.
	Description() string

	// Parameters returns a JSON schema describing the expected input format.
	Parameters() map[string]any

	// Call executes the tool with already schema-validated arguments.
	Call(ctx context.Context, args map[string]any) (any, error)
}

// Error represents a typed tool failure.
type Error struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Code    string `json:"code"`              // Error code for categorization
	Message string `json:"message"`           // Error message
	Details any    `json:"details,omitempty"` // Additional error details
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewError creates a new Error with the specified details.
func NewError(tool, code, message string) *Error {
	return &Error{Tool: tool, Code: code, Message: message}
}

// ErrorCode extracts the code from a tool error, or "" when err is not a
// *Error.
func ErrorCode(err error) string {
	var te *Error
	if errors.As(err, &te) {
		return te.Code
	}
	return ""
}

// IsCode reports whether err is a tool error carrying the given code.
func IsCode(err error, code string) bool { return ErrorCode(err) == code }
