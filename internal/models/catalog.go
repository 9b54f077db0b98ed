// Package models provides a catalog of known Claude models and their
// capabilities. It is the source of truth for model metadata within the SDK.
package models

import (
	"slices"
	"strings"
)

// Capability is a feature a model exposes, such as vision or tool use.
type Capability string

// Capabilities shared across the current model lineup.
const (
	CapVision           Capability = "vision"
	CapToolUse          Capability = "tool-use"
	CapReasoning        Capability = "reasoning"
	CapStructuredOutput Capability = "structured-output"
)

// CostTier is a provider-agnostic relative cost bucket.
type CostTier string

// Known cost tiers, from opus-class down to haiku-class pricing.
const (
	CostTierHigh   CostTier = "high"
	CostTierMedium CostTier = "medium"
	CostTierLow    CostTier = "low"
)

// Model holds metadata for a single Claude model.
type Model struct {
	// ID is the API model identifier (e.g. "claude-opus-4-6").
	ID string
	// Name is the human-readable display name.
	Name string
	// Aliases are shorthand names accepted by the CLI (e.g. "opus").
	Aliases []string
	// CostTier is the relative cost tier for this model.
	CostTier CostTier
	// Capabilities lists what the model supports.
	Capabilities []Capability
	// ContextWindow is the default context window size in tokens.
	ContextWindow int
	// MaxOutputTokens is the maximum number of output tokens.
	MaxOutputTokens int
}

// HasCapability reports whether the model supports the given capability.
func (m Model) HasCapability(capability Capability) bool {
	return slices.Contains(m.Capabilities, capability)
}

// CapabilityStrings returns capabilities as a string slice for interop
// with string-based systems.
func (m Model) CapabilityStrings() []string {
	out := make([]string, 0, len(m.Capabilities))
	for _, c := range m.Capabilities {
		out = append(out, string(c))
	}

	return out
}

// catalogIndex resolves exact IDs and aliases to a catalog entry in O(1),
// falling back to registry's insertion order only for the dated-ID prefix
// match that a flat map can't express.
type catalogIndex struct {
	byExactID map[string]int
	byAlias   map[string]int
}

func buildIndex(entries []Model) catalogIndex {
	idx := catalogIndex{
		byExactID: make(map[string]int, len(entries)),
		byAlias:   make(map[string]int, len(entries)),
	}

	for i, m := range entries {
		idx.byExactID[m.ID] = i

		for _, alias := range m.Aliases {
			idx.byAlias[alias] = i
		}
	}

	return idx
}

var index = buildIndex(registry)

// All returns a copy of every known model in the catalog.
func All() []Model {
	out := make([]Model, len(registry))
	copy(out, registry)

	return out
}

// ByID looks up a model by its identifier. It checks in order:
//  1. Exact match on ID
//  2. Alias match
//  3. Prefix match (for dated model IDs like "claude-opus-4-6-20260205")
//
// Returns nil if no model is found.
func ByID(id string) *Model {
	if i, ok := index.byExactID[id]; ok {
		m := registry[i]

		return &m
	}

	if i, ok := index.byAlias[id]; ok {
		m := registry[i]

		return &m
	}

	// Dated variants (e.g. "claude-opus-4-6-20260205") aren't in either
	// exact map; fall back to a prefix scan over the catalog.
	for i := range registry {
		if strings.HasPrefix(id, registry[i].ID) {
			m := registry[i]

			return &m
		}
	}

	return nil
}

// ByCostTier returns all models matching the given cost tier.
func ByCostTier(tier CostTier) []Model {
	var out []Model

	for _, m := range registry {
		if m.CostTier == tier {
			out = append(out, m)
		}
	}

	return out
}

// Capabilities is a convenience function that returns capability strings
// for the given model ID. Returns nil if the model is not found.
func Capabilities(modelID string) []string {
	m := ByID(modelID)
	if m == nil {
		return nil
	}

	return m.CapabilityStrings()
}
