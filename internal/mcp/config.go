package mcp

import "context"

// ServerType names the transport an MCP server configuration describes.
type ServerType string

// Known server transports.
const (
	ServerTypeStdio ServerType = "stdio"
	ServerTypeSSE   ServerType = "sse"
	ServerTypeHTTP  ServerType = "http"
	ServerTypeSDK   ServerType = "sdk"
)

// ServerConfig is satisfied by every MCP server configuration variant.
type ServerConfig interface {
	GetType() ServerType
}

var (
	_ ServerConfig = (*StdioServerConfig)(nil)
	_ ServerConfig = (*SSEServerConfig)(nil)
	_ ServerConfig = (*HTTPServerConfig)(nil)
	_ ServerConfig = (*SdkServerConfig)(nil)
)

// StdioServerConfig launches a child process and speaks MCP over its stdio.
type StdioServerConfig struct {
	Type    *ServerType       `json:"type,omitempty"` // optional, for backwards compatibility
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// GetType implements ServerConfig.
func (m *StdioServerConfig) GetType() ServerType {
	if m.Type != nil {
		return *m.Type
	}

	return ServerTypeStdio
}

// SSEServerConfig configures a Server-Sent Events MCP server.
type SSEServerConfig struct {
	Type    ServerType        `json:"type"` // "sse"
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
}

// GetType implements ServerConfig.
func (m *SSEServerConfig) GetType() ServerType { return m.Type }

// HTTPServerConfig configures an HTTP-based MCP server.
type HTTPServerConfig struct {
	Type    ServerType        `json:"type"` // "http"
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
}

// GetType implements ServerConfig.
func (m *HTTPServerConfig) GetType() ServerType { return m.Type }

// ServerInstance is implemented by in-process (SDK-hosted) MCP servers: no
// child process or network endpoint, just a local tool registry the control
// protocol can dispatch into directly.
type ServerInstance interface {
	Name() string
	Version() string
	ListTools() []map[string]any
	CallTool(ctx context.Context, name string, input map[string]any) (map[string]any, error)
}

// SdkServerConfig configures an SDK-provided, in-process MCP server.
type SdkServerConfig struct {
	Type     ServerType `json:"type"` // "sdk"
	Name     string     `json:"name"`
	Instance any        `json:"-"` // ServerInstance, not serialized
}

// GetType implements ServerConfig.
func (m *SdkServerConfig) GetType() ServerType { return m.Type }
