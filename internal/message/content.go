// Package message defines the conversation Message/ContentBlock union types
// and the JSON decoder that turns a raw CLI frame into one of them.
package message

import "encoding/json"

// Content block type discriminators, as sent in each block's "type" field.
const (
	BlockTypeText       = "text"
	BlockTypeThinking   = "thinking"
	BlockTypeToolUse    = "tool_use"
	BlockTypeToolResult = "tool_result"
)

// ContentBlock is one element of an AssistantMessage's or UserMessage's
// content array.
type ContentBlock interface {
	BlockType() string
}

var (
	_ ContentBlock = (*TextBlock)(nil)
	_ ContentBlock = (*ThinkingBlock)(nil)
	_ ContentBlock = (*ToolUseBlock)(nil)
	_ ContentBlock = (*ToolResultBlock)(nil)
)

// TextBlock is plain text.
type TextBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// BlockType implements ContentBlock.
func (b *TextBlock) BlockType() string { return BlockTypeText }

// ThinkingBlock carries Claude's extended-thinking trace and the signature
// used to verify it was not tampered with before being replayed back.
type ThinkingBlock struct {
	Type      string `json:"type"`
	Thinking  string `json:"thinking"`
	Signature string `json:"signature"`
}

// BlockType implements ContentBlock.
func (b *ThinkingBlock) BlockType() string { return BlockTypeThinking }

// ToolUseBlock is a tool invocation Claude wants the caller to perform.
type ToolUseBlock struct {
	Type  string         `json:"type"`
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

// BlockType implements ContentBlock.
func (b *ToolUseBlock) BlockType() string { return BlockTypeToolUse }

// ToolResultBlock carries the outcome of a tool call back to Claude.
//
//nolint:tagliatelle // Claude CLI uses snake_case for JSON fields
type ToolResultBlock struct {
	Type      string         `json:"type"`
	ToolUseID string         `json:"tool_use_id"`
	Content   []ContentBlock `json:"content,omitempty"`
	IsError   bool           `json:"is_error,omitempty"`
}

// BlockType implements ContentBlock.
func (b *ToolResultBlock) BlockType() string { return BlockTypeToolResult }

// UnmarshalJSON decodes a ToolResultBlock, whose "content" field the CLI
// sends as either a bare string or an array of nested content blocks.
func (b *ToolResultBlock) UnmarshalJSON(data []byte) error {
	type alias ToolResultBlock

	aux := &struct {
		Content json.RawMessage `json:"content,omitempty"`
		*alias
	}{alias: (*alias)(b)}

	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}

	content, err := decodeTextOrBlocks(aux.Content)
	if err != nil {
		return err
	}

	b.Content = content

	return nil
}

// decodeTextOrBlocks decodes a JSON value that is either a bare string (which
// becomes a single TextBlock) or an array of content blocks. Both
// ToolResultBlock.Content and UserMessageContent use this wire shape.
func decodeTextOrBlocks(raw json.RawMessage) ([]ContentBlock, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return []ContentBlock{&TextBlock{Type: BlockTypeText, Text: text}}, nil
	}

	var rawBlocks []json.RawMessage
	if err := json.Unmarshal(raw, &rawBlocks); err != nil {
		return nil, err
	}

	blocks := make([]ContentBlock, 0, len(rawBlocks))

	for _, r := range rawBlocks {
		block, err := UnmarshalContentBlock(r)
		if err != nil {
			return nil, err
		}

		blocks = append(blocks, block)
	}

	return blocks, nil
}

// contentBlockDecoders maps each block type discriminator to a decoder for
// that concrete type. Unknown discriminators fall back to TextBlock.
var contentBlockDecoders = map[string]func([]byte) (ContentBlock, error){
	BlockTypeText: func(data []byte) (ContentBlock, error) {
		var b TextBlock

		err := json.Unmarshal(data, &b)

		return &b, err
	},
	BlockTypeThinking: func(data []byte) (ContentBlock, error) {
		var b ThinkingBlock

		err := json.Unmarshal(data, &b)

		return &b, err
	},
	BlockTypeToolUse: func(data []byte) (ContentBlock, error) {
		var b ToolUseBlock

		err := json.Unmarshal(data, &b)

		return &b, err
	},
	BlockTypeToolResult: func(data []byte) (ContentBlock, error) {
		var b ToolResultBlock

		err := json.Unmarshal(data, &b)

		return &b, err
	},
}

// UnmarshalContentBlock decodes a single content block, dispatching on its
// "type" field.
func UnmarshalContentBlock(data []byte) (ContentBlock, error) {
	var typeHolder struct {
		Type string `json:"type"`
	}

	if err := json.Unmarshal(data, &typeHolder); err != nil {
		return nil, err
	}

	decode, ok := contentBlockDecoders[typeHolder.Type]
	if !ok {
		decode = contentBlockDecoders[BlockTypeText]
	}

	return decode(data)
}
