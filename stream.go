package claudesdk

import (
	"iter"

	"github.com/cagent-dev/claude-agent-sdk-go/internal/message"
)

// ===== Streaming Input =====

// MessageStream is an iterator that yields streaming messages sent to the
// CLI over stdin when running in bidirectional mode.
type MessageStream = iter.Seq[StreamingMessage]

// StreamingMessage represents a message sent in streaming mode.
type StreamingMessage = message.StreamingMessage

// StreamingMessageContent represents the content of a streaming message.
type StreamingMessageContent = message.StreamingMessageContent

// NewUserMessage builds a StreamingMessage carrying a single user turn.
func NewUserMessage(content string) StreamingMessage {
	return StreamingMessage{
		Type: "user",
		Message: StreamingMessageContent{
			Role:    "user",
			Content: content,
		},
	}
}

// SingleMessage returns a MessageStream yielding exactly one user turn. It's
// the simplest way to drive QueryStream with a fixed prompt.
func SingleMessage(content string) MessageStream {
	return MessagesFromSlice([]StreamingMessage{NewUserMessage(content)})
}

// MessagesFromSlice returns a MessageStream over a fixed, known-in-advance
// set of turns.
func MessagesFromSlice(msgs []StreamingMessage) MessageStream {
	return func(yield func(StreamingMessage) bool) {
		for _, msg := range msgs {
			if !yield(msg) {
				return
			}
		}
	}
}

// MessagesFromChannel returns a MessageStream that relays turns produced
// over time on ch, ending when ch is closed.
func MessagesFromChannel(ch <-chan StreamingMessage) MessageStream {
	return func(yield func(StreamingMessage) bool) {
		for msg := range ch {
			if !yield(msg) {
				return
			}
		}
	}
}
