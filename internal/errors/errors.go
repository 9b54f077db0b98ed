package errors

import (
	"errors"
	"fmt"
	"time"
)

// ClaudeSDKError is the base interface for all SDK errors.
type ClaudeSDKError interface {
	error
	IsClaudeSDKError() bool
}

// sdkError is embedded by every concrete error type below so
// IsClaudeSDKError doesn't need to be repeated on each one.
type sdkError struct{}

// IsClaudeSDKError implements ClaudeSDKError.
func (sdkError) IsClaudeSDKError() bool { return true }

// Compile-time verification that all error types implement ClaudeSDKError.
var (
	_ ClaudeSDKError = (*CLINotFoundError)(nil)
	_ ClaudeSDKError = (*CLIConnectionError)(nil)
	_ ClaudeSDKError = (*ProcessError)(nil)
	_ ClaudeSDKError = (*MessageParseError)(nil)
	_ ClaudeSDKError = (*CLIJSONDecodeError)(nil)
	_ ClaudeSDKError = (*ControlRequestTimeout)(nil)
	_ ClaudeSDKError = (*ControlRequestClosed)(nil)
	_ ClaudeSDKError = (*HookCallbackError)(nil)
	_ ClaudeSDKError = (*PermissionCallbackError)(nil)
	_ ClaudeSDKError = (*ToolHandlerError)(nil)
)

// Sentinel errors for commonly checked conditions.
var (
	// ErrClientNotConnected indicates the client is not connected.
	ErrClientNotConnected = errors.New("client not connected")

	// ErrClientAlreadyConnected indicates the client is already connected.
	ErrClientAlreadyConnected = errors.New("client already connected")

	// ErrClientClosed indicates the client has been closed and cannot be reused.
	ErrClientClosed = errors.New("client closed: clients are single-use, create a new one with New()")

	// ErrTransportNotConnected indicates the transport is not connected.
	ErrTransportNotConnected = errors.New("transport not connected")

	// ErrRequestTimeout indicates a request timed out.
	ErrRequestTimeout = errors.New("request timeout")

	// ErrControllerStopped indicates the protocol controller has stopped.
	ErrControllerStopped = errors.New("protocol controller stopped")

	// ErrStdinClosed indicates stdin was closed due to context cancellation.
	ErrStdinClosed = errors.New("stdin closed")

	// ErrOperationCancelled indicates an operation was cancelled via cancel request.
	ErrOperationCancelled = errors.New("operation cancelled")

	// ErrUnknownMessageType indicates the message type is not recognized by the SDK.
	// Callers should skip these messages rather than treating them as fatal.
	ErrUnknownMessageType = errors.New("unknown message type")
)

// CLINotFoundError indicates the Claude CLI binary was not found.
type CLINotFoundError struct {
	sdkError

	SearchedPaths []string
}

func (e *CLINotFoundError) Error() string {
	return fmt.Sprintf("claude CLI not found in: %v", e.SearchedPaths)
}

// CLIConnectionError indicates failure to connect to the CLI.
type CLIConnectionError struct {
	sdkError

	Cwd string
	Err error
}

func (e *CLIConnectionError) Error() string {
	if e.Cwd == "" {
		return fmt.Sprintf("failed to connect to CLI: %v", e.Err)
	}

	return fmt.Sprintf("failed to connect to CLI (cwd=%s): %v", e.Cwd, e.Err)
}

func (e *CLIConnectionError) Unwrap() error { return e.Err }

// ProcessError indicates the CLI process exited with an error.
type ProcessError struct {
	sdkError

	ExitCode int
	Stderr   string
	Err      error
}

func (e *ProcessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("CLI process failed (exit %d): %v", e.ExitCode, e.Err)
	}

	return fmt.Sprintf("CLI process failed (exit %d): %s", e.ExitCode, e.Stderr)
}

func (e *ProcessError) Unwrap() error { return e.Err }

// MessageParseError indicates a control-protocol message failed to parse.
// Data retains the raw decoded frame for diagnostics.
type MessageParseError struct {
	sdkError

	Message string
	Err     error
	Data    map[string]any
}

func (e *MessageParseError) Error() string {
	return fmt.Sprintf("failed to parse message: %v", e.Err)
}

func (e *MessageParseError) Unwrap() error { return e.Err }

// CLIJSONDecodeError indicates a line of CLI stdout wasn't valid JSON.
// RawData preserves the line that failed to decode.
type CLIJSONDecodeError struct {
	sdkError

	RawData string
	Err     error
}

func (e *CLIJSONDecodeError) Error() string {
	return fmt.Sprintf("failed to decode JSON from CLI: %v", e.Err)
}

func (e *CLIJSONDecodeError) Unwrap() error { return e.Err }

// ControlRequestTimeout indicates an SDK-issued control request did not
// receive a control_response within its deadline.
type ControlRequestTimeout struct {
	sdkError

	RequestID string
	Subtype   string
	Deadline  time.Duration
}

func (e *ControlRequestTimeout) Error() string {
	return fmt.Sprintf("control request %q (subtype %q) timed out after %s", e.RequestID, e.Subtype, e.Deadline)
}

// Unwrap allows errors.Is(err, ErrRequestTimeout) to keep working for callers
// that checked the sentinel before this richer type existed.
func (e *ControlRequestTimeout) Unwrap() error { return ErrRequestTimeout }

// ControlRequestClosed indicates a pending control request was abandoned
// because the transport closed before a response arrived.
type ControlRequestClosed struct {
	sdkError

	RequestID string
	Subtype   string
}

func (e *ControlRequestClosed) Error() string {
	return fmt.Sprintf("control request %q (subtype %q) aborted: transport closed", e.RequestID, e.Subtype)
}

// Unwrap allows errors.Is(err, ErrControllerStopped) to keep working for
// callers that checked the sentinel before this richer type existed.
func (e *ControlRequestClosed) Unwrap() error { return ErrControllerStopped }

// HookCallbackError wraps a panic or error raised by a user hook callback.
// It's used for local logging/diagnostics; the CLI-facing control response
// already carries the error as a plain string per the control protocol.
type HookCallbackError struct {
	sdkError

	CallbackID string
	Event      string
	Err        error
}

func (e *HookCallbackError) Error() string {
	return fmt.Sprintf("hook callback %q (%s) failed: %v", e.CallbackID, e.Event, e.Err)
}

func (e *HookCallbackError) Unwrap() error { return e.Err }

// PermissionCallbackError wraps a panic or error raised by the can_use_tool callback.
type PermissionCallbackError struct {
	sdkError

	ToolName string
	Err      error
}

func (e *PermissionCallbackError) Error() string {
	return fmt.Sprintf("permission callback for tool %q failed: %v", e.ToolName, e.Err)
}

func (e *PermissionCallbackError) Unwrap() error { return e.Err }

// ToolHandlerError wraps a panic or error raised by an in-process SDK MCP tool handler.
type ToolHandlerError struct {
	sdkError

	ServerName string
	ToolName   string
	Err        error
}

func (e *ToolHandlerError) Error() string {
	return fmt.Sprintf("tool %q on server %q failed: %v", e.ToolName, e.ServerName, e.Err)
}

func (e *ToolHandlerError) Unwrap() error { return e.Err }
