package message

import "encoding/json"

// Message is any message exchanged over the control protocol's conversation
// stream. Use a type switch on the concrete type to inspect it further.
type Message interface {
	MessageType() string
}

var (
	_ Message = (*UserMessage)(nil)
	_ Message = (*AssistantMessage)(nil)
	_ Message = (*SystemMessage)(nil)
	_ Message = (*ResultMessage)(nil)
	_ Message = (*StreamEvent)(nil)
)

// Usage reports token accounting for a turn.
//
//nolint:tagliatelle // Claude CLI uses snake_case
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// UserMessageContent is a oneof over the two shapes the CLI accepts for a
// user turn's content: a plain string, or a list of content blocks. Exactly
// one of the two is populated at any time.
type UserMessageContent struct {
	plain  *string
	blocks []ContentBlock
}

// NewUserMessageContent wraps a plain-text user turn.
func NewUserMessageContent(text string) UserMessageContent {
	return UserMessageContent{plain: &text}
}

// NewUserMessageContentBlocks wraps a block-structured user turn.
func NewUserMessageContentBlocks(blocks []ContentBlock) UserMessageContent {
	return UserMessageContent{blocks: blocks}
}

// IsString reports whether the content was constructed (or decoded) from a
// plain string rather than a block list.
func (c *UserMessageContent) IsString() bool {
	return c.plain != nil
}

// String returns the plain-text form, or "" if the content is block-structured.
func (c *UserMessageContent) String() string {
	if c.plain == nil {
		return ""
	}

	return *c.plain
}

// Blocks returns the content as a block list, wrapping a plain string in a
// single TextBlock so callers never need to branch on IsString themselves.
func (c *UserMessageContent) Blocks() []ContentBlock {
	switch {
	case c.blocks != nil:
		return c.blocks
	case c.plain != nil:
		return []ContentBlock{&TextBlock{Type: "text", Text: *c.plain}}
	default:
		return nil
	}
}

// MarshalJSON encodes the populated variant: a bare string, or a block array.
func (c UserMessageContent) MarshalJSON() ([]byte, error) {
	if c.plain != nil {
		return json.Marshal(*c.plain)
	}

	return json.Marshal(c.blocks)
}

// UnmarshalJSON accepts either a bare string or an array of content blocks,
// matching what MarshalJSON produces.
func (c *UserMessageContent) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*c = UserMessageContent{plain: &text}

		return nil
	}

	blocks, err := decodeTextOrBlocks(data)
	if err != nil {
		return err
	}

	*c = UserMessageContent{blocks: blocks}

	return nil
}

// UserMessage is a turn authored by the caller, either the initial prompt or
// a follow-up sent over the streaming stdin channel.
//
//nolint:tagliatelle // Claude CLI uses snake_case
type UserMessage struct {
	Type            string             `json:"type"`
	Content         UserMessageContent `json:"content"`
	UUID            *string            `json:"uuid,omitempty"`
	ParentToolUseID *string            `json:"parent_tool_use_id,omitempty"`
	ToolUseResult   map[string]any     `json:"tool_use_result,omitempty"`
}

// MessageType implements Message.
func (m *UserMessage) MessageType() string { return "user" }

// AssistantMessageError classifies a terminal failure reported in place of a
// normal assistant turn.
type AssistantMessageError string

// Known AssistantMessageError values the CLI can report.
const (
	AssistantMessageErrorAuthFailed AssistantMessageError = "authentication_failed"
	AssistantMessageErrorBilling    AssistantMessageError = "billing_error"
	AssistantMessageErrorRateLimit  AssistantMessageError = "rate_limit"
	AssistantMessageErrorInvalidReq AssistantMessageError = "invalid_request"
	AssistantMessageErrorServer     AssistantMessageError = "server_error"
	AssistantMessageErrorUnknown    AssistantMessageError = "unknown"
)

// AssistantMessage is a turn authored by Claude: prose, tool calls, or both,
// as a sequence of content blocks.
//
//nolint:tagliatelle // Claude CLI uses snake_case
type AssistantMessage struct {
	Type            string                 `json:"type"`
	Content         []ContentBlock         `json:"content"`
	Model           string                 `json:"model"`
	ParentToolUseID *string                `json:"parent_tool_use_id,omitempty"`
	Error           *AssistantMessageError `json:"error,omitempty"`
}

// MessageType implements Message.
func (m *AssistantMessage) MessageType() string { return "assistant" }

// SystemMessage carries out-of-band state from the CLI: session
// initialization, compaction notices, and similar housekeeping events that
// are not part of the conversation itself.
type SystemMessage struct {
	Type    string         `json:"type"`
	Subtype string         `json:"subtype,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// MessageType implements Message.
func (m *SystemMessage) MessageType() string { return "system" }

// ResultMessage closes out a turn with cost, timing, and (for structured
// output requests) the parsed result payload.
//
//nolint:tagliatelle // Claude CLI uses snake_case
type ResultMessage struct {
	Type             string   `json:"type"`
	Subtype          string   `json:"subtype"`
	DurationMs       int      `json:"duration_ms"`
	DurationAPIMs    int      `json:"duration_api_ms"`
	IsError          bool     `json:"is_error"`
	NumTurns         int      `json:"num_turns"`
	SessionID        string   `json:"session_id"`
	TotalCostUSD     *float64 `json:"total_cost_usd,omitempty"`
	Usage            *Usage   `json:"usage,omitempty"`
	Result           *string  `json:"result,omitempty"`
	StructuredOutput any      `json:"structured_output,omitempty"`
}

// MessageType implements Message.
func (m *ResultMessage) MessageType() string { return "result" }

// StreamEvent is a raw partial-message event forwarded from the underlying
// Anthropic API stream when IncludePartialMessages is enabled. The Event
// field is intentionally untyped: it mirrors whatever shape the API emits
// for the given event, which this SDK does not otherwise model.
//
//nolint:tagliatelle // Claude CLI uses snake_case
type StreamEvent struct {
	UUID            string         `json:"uuid"`
	SessionID       string         `json:"session_id"`
	Event           map[string]any `json:"event"`
	ParentToolUseID *string        `json:"parent_tool_use_id,omitempty"`
}

// MessageType implements Message.
func (m *StreamEvent) MessageType() string { return "stream_event" }

// StreamingMessageContent is the inner "message" object of a StreamingMessage.
type StreamingMessageContent struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// StreamingMessage is one line of stdin sent to the CLI when running in
// streaming mode (--input-format stream-json).
//
//nolint:tagliatelle // CLI protocol uses snake_case for JSON fields
type StreamingMessage struct {
	Type            string                  `json:"type"`
	Message         StreamingMessageContent `json:"message"`
	ParentToolUseID *string                 `json:"parent_tool_use_id,omitempty"`
	SessionID       string                  `json:"session_id,omitempty"`
}
