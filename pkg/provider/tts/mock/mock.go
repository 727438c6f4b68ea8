// Package mock provides a test double for the tts package.
package mock

import (
	"context"
	"sync"

	"github.com/wrenrobotics/wren/pkg/provider/tts"
)

// Compile-time assertion that Provider satisfies tts.Provider.
var _ tts.Provider = (*Provider)(nil)

// Provider is a mock implementation of tts.Provider that records every
// spoken text.
type Provider struct {
	mu sync.Mutex

	// Err, if non-nil, is returned by every Speak call.
	Err error

	// Spoken records every text passed to Speak, in order.
	Spoken []string
}

// Speak records the text and returns the configured error.
func (p *Provider) Speak(ctx context.Context, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Spoken = append(p.Spoken, text)
	return p.Err
}

// SpokenCount returns how many Speak calls have been made.
func (p *Provider) SpokenCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Spoken)
}
