// Package openai implements stt.Provider against the OpenAI transcription
// API. It is the cloud fallback for robots without the compute budget for
// local whisper.cpp inference.
package openai

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/wrenrobotics/wren/pkg/audio"
	"github.com/wrenrobotics/wren/pkg/provider/stt"
)

// Compile-time assertion that Provider satisfies stt.Provider.
var _ stt.Provider = (*Provider)(nil)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithModel overrides the transcription model. Defaults to whisper-1.
func WithModel(model openai.AudioModel) Option {
	return func(p *Provider) { p.model = model }
}

// WithLanguage sets the ISO-639-1 language hint (e.g., "en").
func WithLanguage(lang string) Option {
	return func(p *Provider) { p.language = lang }
}

// Provider transcribes utterances via the OpenAI audio API.
type Provider struct {
	client   openai.Client
	model    openai.AudioModel
	language string
}

// New creates a Provider authenticating with the given API key.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: apiKey must not be empty")
	}
	p := &Provider{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  openai.AudioModelWhisper1,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Transcribe implements stt.Provider. The clip is uploaded as a WAV file.
func (p *Provider) Transcribe(ctx context.Context, clip *audio.Clip) (string, error) {
	if clip == nil || len(clip.Samples) == 0 {
		return "", nil
	}

	wavBytes, err := audio.EncodeWAV(clip)
	if err != nil {
		return "", fmt.Errorf("openai: encode clip: %w", err)
	}

	params := openai.AudioTranscriptionNewParams{
		Model: p.model,
		File:  openai.File(bytes.NewReader(wavBytes), "utterance.wav", "audio/wav"),
	}
	if p.language != "" {
		params.Language = openai.String(p.language)
	}

	resp, err := p.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai: transcription request: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}
