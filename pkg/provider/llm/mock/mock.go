// Package mock provides a test double for the llm package.
package mock

import (
	"context"
	"sync"

	"github.com/wrenrobotics/wren/pkg/provider/llm"
)

// Compile-time assertion that Provider satisfies llm.Provider.
var _ llm.Provider = (*Provider)(nil)

// ChatCall records one invocation of Chat.
type ChatCall struct {
	System   string
	Messages []llm.Message
}

// Provider is a mock implementation of llm.Provider. Replies are consumed
// in order; once exhausted, Chat returns the last scripted reply (or "" if
// none were scripted).
type Provider struct {
	mu sync.Mutex

	// Replies is the scripted sequence of assistant replies.
	Replies []string

	// Err, if non-nil, is returned by every Chat call.
	Err error

	// Calls records every Chat invocation with a copy of its history.
	Calls []ChatCall

	next int
}

// Chat records the call and returns the next scripted reply.
func (p *Provider) Chat(ctx context.Context, system string, msgs []llm.Message) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	history := make([]llm.Message, len(msgs))
	copy(history, msgs)
	p.Calls = append(p.Calls, ChatCall{System: system, Messages: history})

	if p.Err != nil {
		return "", p.Err
	}
	if len(p.Replies) == 0 {
		return "", nil
	}
	if p.next < len(p.Replies) {
		r := p.Replies[p.next]
		p.next++
		return r, nil
	}
	return p.Replies[len(p.Replies)-1], nil
}
