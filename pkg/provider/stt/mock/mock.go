// Package mock provides a test double for the stt package.
package mock

import (
	"context"
	"sync"

	"github.com/wrenrobotics/wren/pkg/audio"
	"github.com/wrenrobotics/wren/pkg/provider/stt"
)

// Compile-time assertion that Provider satisfies stt.Provider.
var _ stt.Provider = (*Provider)(nil)

// Provider is a mock implementation of stt.Provider. Results are consumed
// in order; once exhausted, Transcribe returns the empty string.
type Provider struct {
	mu sync.Mutex

	// Results is the scripted sequence of transcripts.
	Results []string

	// Err, if non-nil, is returned by every Transcribe call.
	Err error

	// Clips records every clip passed to Transcribe.
	Clips []*audio.Clip

	next int
}

// Transcribe records the clip and returns the next scripted result.
func (p *Provider) Transcribe(ctx context.Context, clip *audio.Clip) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Clips = append(p.Clips, clip)
	if p.Err != nil {
		return "", p.Err
	}
	if p.next < len(p.Results) {
		r := p.Results[p.next]
		p.next++
		return r, nil
	}
	return "", nil
}
