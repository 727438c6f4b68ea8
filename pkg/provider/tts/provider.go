// Package tts defines the Provider interface for text-to-speech backends.
//
// wren speaks one complete reply at a time and the conversation loop must not
// resume listening until playback has finished (otherwise the robot would hear
// itself), so the contract is a single blocking call covering both synthesis
// and playback.
//
// Implementations must be safe for concurrent use, though the orchestrator
// only ever issues one Speak at a time.
package tts

import "context"

// Provider is the abstraction over any TTS backend.
type Provider interface {
	// Speak synthesises text and plays it to completion. It returns once the
	// audio has finished playing or ctx is cancelled. An empty text is a
	// no-op, not an error.
	Speak(ctx context.Context, text string) error
}
