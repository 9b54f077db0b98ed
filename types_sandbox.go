package claudesdk

import (
	"github.com/cagent-dev/claude-agent-sdk-go/internal/sandbox"
)

// Re-exported sandbox configuration types from internal/sandbox.

// SandboxNetworkConfig configures network access for the sandbox.
type SandboxNetworkConfig = sandbox.NetworkConfig

// SandboxIgnoreViolations configures which violations to ignore.
type SandboxIgnoreViolations = sandbox.IgnoreViolations

// SandboxSettings configures CLI sandbox behavior.
type SandboxSettings = sandbox.Settings
