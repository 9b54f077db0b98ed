package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/cagent-dev/claude-agent-sdk-go/internal/config"
)

// Command represents the CLI command to execute.
type Command struct {
	// Args are the command line arguments.
	Args []string

	// Env are the environment variables.
	Env []string
}

// argBuilder appends zero or more flags derived from options to args.
// BuildArgs runs the full set of builders in order, so each concern that
// maps to a CLI flag lives in its own small function instead of one long
// procedure.
type argBuilder func(args []string, options *config.Options) []string

// argBuilders covers every optional flag BuildArgs can emit, in the order
// they're appended. Prompt/input-format handling isn't here: it depends on
// isStreaming, which no other builder needs, so BuildArgs applies it directly.
var argBuilders = []argBuilder{
	addPermissionMode,
	addMaxTurns,
	addModel,
	addSystemPrompt,
	addThinking,
	addEffort,
	addPartialMessages,
	addMaxBudget,
	addMCPConfig,
	addSettings,
	addToolsList,
	addAllowedTools,
	addDisallowedTools,
	addFallbackModel,
	addBetas,
	addPermissionPromptTool,
	addDirs,
	addContinueConversation,
	addResume,
	addForkSession,
	addSettingSources,
	addPlugins,
	addOutputFormat,
	addExtraArgs,
}

// BuildArgs constructs the CLI command arguments.
//
// When isStreaming is true, uses --input-format stream-json and omits the prompt
// from command line arguments (prompt comes via stdin instead).
func BuildArgs(prompt string, options *config.Options, isStreaming bool) []string {
	args := []string{
		"--output-format", "stream-json",
		"--verbose",
	}

	for _, build := range argBuilders {
		args = build(args, options)
	}

	if isStreaming {
		args = append(args, "--input-format", "stream-json")
	} else {
		args = append(args, "--print", "--", prompt)
	}

	return args
}

func addPermissionMode(args []string, options *config.Options) []string {
	if options.PermissionMode == "" {
		return args
	}

	return append(args, "--permission-mode", config.NormalizePermissionMode(options.PermissionMode))
}

func addMaxTurns(args []string, options *config.Options) []string {
	if options.MaxTurns <= 0 {
		return args
	}

	return append(args, "--max-turns", strconv.Itoa(options.MaxTurns))
}

func addModel(args []string, options *config.Options) []string {
	if options.Model == "" {
		return args
	}

	return append(args, "--model", options.Model)
}

// addSystemPrompt sets --system-prompt (empty string when unset) unless a
// SystemPromptPreset is present. A preset with a non-empty Append clause is
// layered on via --append-system-prompt instead of serializing the whole
// preset; a preset without one adds no system-prompt flag at all.
func addSystemPrompt(args []string, options *config.Options) []string {
	if preset := options.SystemPromptPreset; preset != nil {
		if preset.Append != nil && *preset.Append != "" {
			return append(args, "--append-system-prompt", *preset.Append)
		}

		return args
	}

	return append(args, "--system-prompt", options.SystemPrompt)
}

func addThinking(args []string, options *config.Options) []string {
	switch t := options.Thinking.(type) {
	case config.ThinkingConfigAdaptive:
		return append(args, "--max-thinking-tokens", "32000")
	case config.ThinkingConfigEnabled:
		return append(args, "--max-thinking-tokens", strconv.Itoa(t.BudgetTokens))
	case config.ThinkingConfigDisabled:
		return append(args, "--max-thinking-tokens", "0")
	default:
		return args
	}
}

func addEffort(args []string, options *config.Options) []string {
	if options.Effort == nil {
		return args
	}

	return append(args, "--effort", string(*options.Effort))
}

func addPartialMessages(args []string, options *config.Options) []string {
	if !options.IncludePartialMessages {
		return args
	}

	return append(args, "--include-partial-messages")
}

func addMaxBudget(args []string, options *config.Options) []string {
	if options.MaxBudgetUSD == nil {
		return args
	}

	return append(args, "--max-budget-usd", fmt.Sprintf("%g", *options.MaxBudgetUSD))
}

// addMCPConfig passes MCPConfig through verbatim (file path or JSON string)
// when set; otherwise it serializes MCPServers under the mcpServers wrapper
// the CLI expects. MCPConfig always wins when both are set.
func addMCPConfig(args []string, options *config.Options) []string {
	if options.MCPConfig != "" {
		return append(args, "--mcp-config", options.MCPConfig)
	}

	if len(options.MCPServers) == 0 {
		return args
	}

	wrapped := map[string]any{"mcpServers": options.MCPServers}

	encoded, err := json.Marshal(wrapped)
	if err != nil {
		return args
	}

	return append(args, "--mcp-config", string(encoded))
}

func addSettings(args []string, options *config.Options) []string {
	value := buildSettingsValue(options)
	if value == "" {
		return args
	}

	return append(args, "--settings", value)
}

func addToolsList(args []string, options *config.Options) []string {
	switch t := options.Tools.(type) {
	case config.ToolsList:
		if len(t) == 0 {
			return append(args, "--tools", "")
		}

		return append(args, "--tools", strings.Join(t, ","))
	case *config.ToolsPreset:
		// The only current preset, "claude_code", maps to the CLI's "default".
		return append(args, "--tools", "default")
	default:
		return args
	}
}

func addAllowedTools(args []string, options *config.Options) []string {
	if len(options.AllowedTools) == 0 {
		return args
	}

	return append(args, "--allowed-tools", strings.Join(options.AllowedTools, ","))
}

func addDisallowedTools(args []string, options *config.Options) []string {
	if len(options.DisallowedTools) == 0 {
		return args
	}

	return append(args, "--disallowed-tools", strings.Join(options.DisallowedTools, ","))
}

func addFallbackModel(args []string, options *config.Options) []string {
	if options.FallbackModel == "" {
		return args
	}

	return append(args, "--fallback-model", options.FallbackModel)
}

func addBetas(args []string, options *config.Options) []string {
	if len(options.Betas) == 0 {
		return args
	}

	betas := make([]string, len(options.Betas))
	for i, beta := range options.Betas {
		betas[i] = string(beta)
	}

	return append(args, "--betas", strings.Join(betas, ","))
}

func addPermissionPromptTool(args []string, options *config.Options) []string {
	if options.PermissionPromptToolName == "" {
		return args
	}

	return append(args, "--permission-prompt-tool", options.PermissionPromptToolName)
}

func addDirs(args []string, options *config.Options) []string {
	for _, dir := range options.AddDirs {
		args = append(args, "--add-dir", dir)
	}

	return args
}

func addContinueConversation(args []string, options *config.Options) []string {
	if !options.ContinueConversation {
		return args
	}

	return append(args, "--continue")
}

func addResume(args []string, options *config.Options) []string {
	if options.Resume == "" {
		return args
	}

	return append(args, "--resume", options.Resume)
}

func addForkSession(args []string, options *config.Options) []string {
	if !options.ForkSession {
		return args
	}

	return append(args, "--fork-session")
}

// addSettingSources always sets --setting-sources, even to an empty value;
// agent definitions travel over the initialize control request instead of a
// flag, to avoid platform ARG_MAX limits for large definitions.
func addSettingSources(args []string, options *config.Options) []string {
	sources := make([]string, len(options.SettingSources))
	for i, s := range options.SettingSources {
		sources[i] = string(s)
	}

	return append(args, "--setting-sources", strings.Join(sources, ","))
}

func addPlugins(args []string, options *config.Options) []string {
	for _, plugin := range options.Plugins {
		args = append(args, "--plugin-dir", plugin.Path)
	}

	return args
}

func addOutputFormat(args []string, options *config.Options) []string {
	if options.OutputFormat == nil {
		return args
	}

	schema := extractJSONSchema(options.OutputFormat)
	if schema == nil {
		return args
	}

	encoded, err := json.Marshal(schema)
	if err != nil {
		return args
	}

	return append(args, "--json-schema", string(encoded))
}

// addExtraArgs appends arbitrary pass-through flags. ExtraArgs has no
// counterpart for --user or --max-buffer-size: neither is a CLI flag, and
// MaxBufferSize only governs the SDK's own transport buffering.
func addExtraArgs(args []string, options *config.Options) []string {
	for key, value := range options.ExtraArgs {
		if value == nil {
			args = append(args, "--"+key)
		} else {
			args = append(args, "--"+key, *value)
		}
	}

	return args
}

// buildSettingsValue constructs the --settings CLI argument value, merging
// sandbox settings into the settings JSON object when both are present.
func buildSettingsValue(options *config.Options) string {
	hasSettings := options.Settings != ""
	hasSandbox := options.SandboxSettings != nil

	switch {
	case !hasSettings && !hasSandbox:
		return ""
	case hasSettings && !hasSandbox:
		// Plain file path or JSON string, passed through as-is.
		return options.Settings
	}

	merged := make(map[string]any, 2)

	if hasSettings {
		trimmed := strings.TrimSpace(options.Settings)
		if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
			_ = json.Unmarshal([]byte(trimmed), &merged)
		}
		// A bare file path with sandbox settings present isn't read here;
		// only inline JSON settings get merged with sandbox.
	}

	merged["sandbox"] = options.SandboxSettings

	encoded, err := json.Marshal(merged)
	if err != nil {
		return ""
	}

	return string(encoded)
}

// extractJSONSchema extracts the inner JSON schema from an OutputFormat map.
// It supports two shapes:
//   - wrapped: {"type": "json_schema", "schema": {...}} — returns the inner schema
//   - raw: {"type": "object", "properties": {...}} — returned as-is
//
// Returns nil if the map matches neither shape.
func extractJSONSchema(outputFormat map[string]any) map[string]any {
	formatType, _ := outputFormat["type"].(string)

	if formatType == "json_schema" {
		schema, _ := outputFormat["schema"].(map[string]any)

		return schema
	}

	if _, hasProperties := outputFormat["properties"]; hasProperties {
		return outputFormat
	}

	return nil
}

// BuildEnvironment constructs the environment variables for the CLI process.
func BuildEnvironment(options *config.Options) []string {
	env := os.Environ()

	env = append(env,
		"CLAUDE_AGENT_SDK_VERSION=0.1.0",
		"CLAUDE_CODE_ENTRYPOINT=sdk-go",
	)

	if options.EnableFileCheckpointing {
		env = append(env, "CLAUDE_CODE_ENABLE_SDK_FILE_CHECKPOINTING=true")
	}

	for key, value := range options.Env {
		env = append(env, fmt.Sprintf("%s=%s", key, value))
	}

	return env
}
