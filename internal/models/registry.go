package models

// allCapabilities is the set of capabilities shared by all current Claude models.
var allCapabilities = []Capability{
	CapVision,
	CapToolUse,
	CapReasoning,
	CapStructuredOutput,
}

// entry builds a registry row sharing allCapabilities, to keep the table
// below focused on what actually varies per model.
func entry(id, name string, tier CostTier, maxOutput int, aliases ...string) Model {
	return Model{
		ID:              id,
		Name:            name,
		Aliases:         aliases,
		CostTier:        tier,
		Capabilities:    allCapabilities,
		ContextWindow:   200_000,
		MaxOutputTokens: maxOutput,
	}
}

// registry is the internal list of all known Claude models, newest first.
// Only the latest model per tier gets the short alias.
var registry = []Model{
	entry("claude-opus-4-6", "Claude Opus 4.6", CostTierHigh, 128_000, "opus"),
	entry("claude-sonnet-4-6", "Claude Sonnet 4.6", CostTierMedium, 64_000, "sonnet"),
	entry("claude-haiku-4-5", "Claude Haiku 4.5", CostTierLow, 64_000, "haiku"),
	entry("claude-opus-4-5", "Claude Opus 4.5", CostTierHigh, 64_000),
	entry("claude-sonnet-4-5", "Claude Sonnet 4.5", CostTierMedium, 64_000),
	entry("claude-opus-4-1", "Claude Opus 4.1", CostTierHigh, 32_000),
	entry("claude-opus-4-0", "Claude Opus 4", CostTierHigh, 32_000),
	entry("claude-sonnet-4-0", "Claude Sonnet 4", CostTierMedium, 64_000),
}
