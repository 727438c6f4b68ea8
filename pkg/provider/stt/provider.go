// Package stt defines the Provider interface for speech-to-text backends.
//
// wren transcribes one complete utterance at a time: the recorder hands over
// a finished clip and the conversation stalls until text comes back, so the
// contract is a single blocking batch call rather than a streaming session.
// Implementations wrap a local whisper.cpp server (whisper), the whisper.cpp
// CGO bindings (whisper native), or the OpenAI transcription API (openai).
//
// Implementations must be safe for concurrent use.
package stt

import (
	"context"

	"github.com/wrenrobotics/wren/pkg/audio"
)

// Provider is the abstraction over any STT backend.
type Provider interface {
	// Transcribe converts a recorded utterance to text. An unintelligible
	// clip yields ("", nil), not an error; errors are reserved for transport
	// and engine failures. Implementations must tolerate very short clips.
	Transcribe(ctx context.Context, clip *audio.Clip) (string, error)
}
