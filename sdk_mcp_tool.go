package claudesdk

import (
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	internalmcp "github.com/cagent-dev/claude-agent-sdk-go/internal/mcp"
)

// Re-exports of the official MCP SDK's wire types, so callers writing tool
// handlers never need to import modelcontextprotocol/go-sdk/mcp directly.
type (
	// CallToolResult is the server's response to a tool call.
	// Use TextResult, ErrorResult, or ImageResult helpers to create results.
	CallToolResult = mcp.CallToolResult

	// CallToolRequest is the request passed to tool handlers.
	CallToolRequest = mcp.CallToolRequest

	// McpContent is the interface for content types in tool results.
	McpContent = mcp.Content

	// McpTextContent represents text content in a tool result.
	McpTextContent = mcp.TextContent

	// McpImageContent represents image content in a tool result.
	McpImageContent = mcp.ImageContent

	// McpAudioContent represents audio content in a tool result.
	McpAudioContent = mcp.AudioContent

	// McpTool represents an MCP tool definition from the official SDK.
	McpTool = mcp.Tool

	// McpToolHandler is the function signature for low-level tool handlers.
	McpToolHandler = mcp.ToolHandler

	// McpToolAnnotations describes optional hints about tool behavior:
	// ReadOnlyHint, DestructiveHint, IdempotentHint, OpenWorldHint, Title.
	McpToolAnnotations = mcp.ToolAnnotations

	// Schema is a JSON Schema object for tool input validation.
	Schema = jsonschema.Schema
)

// SdkMcpToolHandler handles a single tool invocation for an in-process
// (SDK-hosted) MCP server.
//
// Use ParseArguments to extract input as map[string]any from the request,
// and TextResult/ErrorResult/ImageResult to build the response.
//
//	func(ctx context.Context, req *claudesdk.CallToolRequest) (*claudesdk.CallToolResult, error) {
//	    args, err := claudesdk.ParseArguments(req)
//	    if err != nil {
//	        return claudesdk.ErrorResult(err.Error()), nil
//	    }
//	    a := args["a"].(float64)
//	    return claudesdk.TextResult(fmt.Sprintf("Result: %v", a)), nil
//	}
type SdkMcpToolHandler = mcp.ToolHandler

// SdkMcpTool is a single tool exposed by an in-process MCP server, built via
// NewSdkMcpTool.
type SdkMcpTool struct {
	ToolName        string
	ToolDescription string
	ToolSchema      *jsonschema.Schema
	ToolHandler     SdkMcpToolHandler
	ToolAnnotations *mcp.ToolAnnotations
}

// Name returns the tool name.
func (t *SdkMcpTool) Name() string { return t.ToolName }

// Description returns the tool description.
func (t *SdkMcpTool) Description() string { return t.ToolDescription }

// InputSchema returns the JSON Schema for the tool input.
func (t *SdkMcpTool) InputSchema() *jsonschema.Schema { return t.ToolSchema }

// Handler returns the tool handler function.
func (t *SdkMcpTool) Handler() SdkMcpToolHandler { return t.ToolHandler }

// Annotations returns the tool annotations, or nil if not set.
func (t *SdkMcpTool) Annotations() *mcp.ToolAnnotations { return t.ToolAnnotations }

// SdkMcpToolOption configures an SdkMcpTool during construction.
type SdkMcpToolOption func(*SdkMcpTool)

// WithAnnotations sets MCP tool annotations: hints about whether a tool is
// read-only, destructive, idempotent, or operates in an open world.
func WithAnnotations(annotations *mcp.ToolAnnotations) SdkMcpToolOption {
	return func(t *SdkMcpTool) {
		t.ToolAnnotations = annotations
	}
}

// NewSdkMcpTool builds an SdkMcpTool ready to register on an in-process MCP
// server.
//
// inputSchema is typically built with SimpleSchema, though any
// *jsonschema.Schema works. Apply WithAnnotations to attach tool-behavior
// hints.
//
//	addTool := claudesdk.NewSdkMcpTool("add", "Add two numbers",
//	    claudesdk.SimpleSchema(map[string]string{"a": "float64", "b": "float64"}),
//	    func(ctx context.Context, req *claudesdk.CallToolRequest) (*claudesdk.CallToolResult, error) {
//	        args, _ := claudesdk.ParseArguments(req)
//	        a, b := args["a"].(float64), args["b"].(float64)
//	        return claudesdk.TextResult(fmt.Sprintf("Result: %v", a+b)), nil
//	    },
//	    claudesdk.WithAnnotations(&claudesdk.McpToolAnnotations{ReadOnlyHint: true}),
//	)
func NewSdkMcpTool(
	name, description string,
	inputSchema *jsonschema.Schema,
	handler SdkMcpToolHandler,
	opts ...SdkMcpToolOption,
) *SdkMcpTool {
	t := &SdkMcpTool{
		ToolName:        name,
		ToolDescription: description,
		ToolSchema:      inputSchema,
		ToolHandler:     handler,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// SimpleSchema builds a *jsonschema.Schema from a flat name-to-type map,
// e.g. {"a": "float64", "b": "string"}. Recognized types:
//   - "string"           → {"type": "string"}
//   - "int", "int64"     → {"type": "integer"}
//   - "float64", "float" → {"type": "number"}
//   - "bool"             → {"type": "boolean"}
//   - "[]string"         → {"type": "array", "items": {"type": "string"}}
//   - "any", "object"    → {"type": "object"}
func SimpleSchema(props map[string]string) *jsonschema.Schema {
	return internalmcp.SimpleSchema(props)
}

// TextResult builds a CallToolResult carrying plain text content.
func TextResult(text string) *mcp.CallToolResult {
	return internalmcp.TextResult(text)
}

// ErrorResult builds a CallToolResult flagged as a tool-level error.
func ErrorResult(message string) *mcp.CallToolResult {
	return internalmcp.ErrorResult(message)
}

// ImageResult builds a CallToolResult carrying image content.
func ImageResult(data []byte, mimeType string) *mcp.CallToolResult {
	return internalmcp.ImageResult(data, mimeType)
}

// ParseArguments decodes a CallToolRequest's arguments into a map, the usual
// first step in a tool handler.
func ParseArguments(req *mcp.CallToolRequest) (map[string]any, error) {
	return internalmcp.ParseArguments(req)
}

// NewMcpTool builds an mcp.Tool directly, for callers that need the official
// SDK's type rather than an SdkMcpTool.
func NewMcpTool(name, description string, inputSchema *jsonschema.Schema) *mcp.Tool {
	return internalmcp.NewTool(name, description, inputSchema)
}
