// Package mock provides test doubles for the audio package interfaces.
//
// Source replays a scripted frame sequence, optionally failing or blocking
// at the end; Player records every clip it is asked to play. Both follow the
// recorded-calls pattern used by the other provider mocks.
package mock

import (
	"context"
	"sync"

	"github.com/wrenrobotics/wren/pkg/audio"
)

// Source is a mock implementation of audio.Source that replays Frames in
// order. When the script is exhausted it returns FinalErr if set, otherwise
// it blocks until ctx is cancelled (mimicking a quiet live microphone).
type Source struct {
	mu sync.Mutex

	// Frames is the scripted sequence returned by successive ReadFrame calls.
	Frames []audio.Frame

	// FinalErr, if non-nil, is returned once Frames is exhausted.
	FinalErr error

	// Loop, when true, replays Frames from the start instead of ending.
	Loop bool

	// Reads counts ReadFrame calls.
	Reads int

	// Closed reports whether Close was called.
	Closed bool

	next int
}

// ReadFrame returns the next scripted frame.
func (s *Source) ReadFrame(ctx context.Context) (audio.Frame, error) {
	s.mu.Lock()
	s.Reads++
	if s.next >= len(s.Frames) && s.Loop && len(s.Frames) > 0 {
		s.next = 0
	}
	if s.next < len(s.Frames) {
		f := s.Frames[s.next]
		s.next++
		s.mu.Unlock()
		return f, nil
	}
	err := s.FinalErr
	s.mu.Unlock()

	if err != nil {
		return audio.Frame{}, err
	}
	<-ctx.Done()
	return audio.Frame{}, ctx.Err()
}

// Close marks the source closed.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Closed = true
	return nil
}

// Player is a mock implementation of audio.Player.
type Player struct {
	mu sync.Mutex

	// PlayErr, if non-nil, is returned by every Play call.
	PlayErr error

	// Played records every clip passed to Play.
	Played []*audio.Clip
}

// Play records the clip and returns PlayErr.
func (p *Player) Play(ctx context.Context, clip *audio.Clip) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Played = append(p.Played, clip)
	return p.PlayErr
}

// PlayedCount returns the number of recorded Play calls.
func (p *Player) PlayedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Played)
}
