package claudesdk

import "github.com/cagent-dev/claude-agent-sdk-go/internal/errors"

// Re-export error types from internal package

// CLINotFoundError indicates the Claude CLI binary was not found.
type CLINotFoundError = errors.CLINotFoundError

// CLIConnectionError indicates failure to connect to the CLI.
type CLIConnectionError = errors.CLIConnectionError

// ProcessError indicates the CLI process failed.
type ProcessError = errors.ProcessError

// MessageParseError indicates message parsing failed.
type MessageParseError = errors.MessageParseError

// CLIJSONDecodeError indicates JSON parsing failed for CLI output.
type CLIJSONDecodeError = errors.CLIJSONDecodeError

// ControlRequestTimeout indicates an SDK-issued control request did not
// receive a control_response within its deadline.
type ControlRequestTimeout = errors.ControlRequestTimeout

// ControlRequestClosed indicates a pending control request was abandoned
// because the transport closed before a response arrived.
type ControlRequestClosed = errors.ControlRequestClosed

// HookCallbackError wraps a panic or error raised by a user hook callback.
type HookCallbackError = errors.HookCallbackError

// PermissionCallbackError wraps a panic or error raised by the can_use_tool callback.
type PermissionCallbackError = errors.PermissionCallbackError

// ToolHandlerError wraps a panic or error raised by an in-process SDK MCP tool handler.
type ToolHandlerError = errors.ToolHandlerError

// ClaudeSDKError is the base interface for all SDK errors.
type ClaudeSDKError = errors.ClaudeSDKError

// Re-export sentinel errors from internal package.
var (
	// ErrClientNotConnected indicates the client is not connected.
	ErrClientNotConnected = errors.ErrClientNotConnected

	// ErrClientAlreadyConnected indicates the client is already connected.
	ErrClientAlreadyConnected = errors.ErrClientAlreadyConnected

	// ErrClientClosed indicates the client has been closed and cannot be reused.
	ErrClientClosed = errors.ErrClientClosed

	// ErrTransportNotConnected indicates the transport is not connected.
	ErrTransportNotConnected = errors.ErrTransportNotConnected

	// ErrRequestTimeout indicates a request timed out.
	ErrRequestTimeout = errors.ErrRequestTimeout
)
