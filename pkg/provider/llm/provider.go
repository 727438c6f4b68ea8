// Package llm defines the Provider interface for chat completion backends.
//
// The conversation loop sends the rolling history plus a system prompt and
// expects one assistant reply per call. Implementations must be safe for
// concurrent use.
package llm

import "context"

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of conversation history.
type Message struct {
	Role    Role
	Content string
}

// Provider is the abstraction over any chat completion backend.
type Provider interface {
	// Chat produces the assistant reply for the given history. The system
	// prompt is passed separately so implementations can map it onto
	// whatever convention their backend uses. msgs is ordered oldest first
	// and always ends with the latest user message.
	Chat(ctx context.Context, system string, msgs []Message) (string, error)
}
