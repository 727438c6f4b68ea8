// Package piper provides a local TTS provider that shells out to the piper
// binary (https://github.com/rhasspy/piper). It implements the tts.Provider
// interface.
//
// Piper operates in batch mode (one process invocation per utterance), so
// Speak splits the reply into sentences and synthesises them one at a time.
// Playback of sentence N overlaps synthesis of sentence N+1, which keeps the
// gap between sentences short without a streaming engine.
//
// Typical usage:
//
//	p, err := piper.New(player,
//	    piper.WithBinary("/usr/local/bin/piper"),
//	    piper.WithModel("/opt/voices/en_US-lessac-medium.onnx"),
//	)
//	err = p.Speak(ctx, "Hello there. How can I help?")
package piper

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
	"unicode"

	"github.com/wrenrobotics/wren/pkg/audio"
	"github.com/wrenrobotics/wren/pkg/provider/tts"
)

// Compile-time interface assertion.
var _ tts.Provider = (*Provider)(nil)

const (
	defaultBinary  = "piper"
	defaultTimeout = 30 * time.Second
)

// Option is a functional option for configuring a piper Provider.
type Option func(*Provider)

// WithBinary sets the path to the piper executable. Defaults to "piper"
// resolved via PATH.
func WithBinary(path string) Option {
	return func(p *Provider) { p.binary = path }
}

// WithModel sets the path to the .onnx voice model. Required in practice;
// piper exits with an error without one.
func WithModel(path string) Option {
	return func(p *Provider) { p.model = path }
}

// WithLengthScale sets the speaking rate multiplier. Values above 1.0 slow
// speech down. Zero leaves piper's default in place.
func WithLengthScale(s float64) Option {
	return func(p *Provider) { p.lengthScale = s }
}

// WithTimeout sets the per-sentence synthesis timeout. Defaults to 30 s.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) { p.timeout = d }
}

// Provider synthesises speech through the piper binary and plays it via an
// audio.Player.
type Provider struct {
	player      audio.Player
	binary      string
	model       string
	lengthScale float64
	timeout     time.Duration
}

// New creates a piper Provider that plays synthesised audio through player.
func New(player audio.Player, opts ...Option) (*Provider, error) {
	if player == nil {
		return nil, fmt.Errorf("piper: player must not be nil")
	}
	p := &Provider{
		player:  player,
		binary:  defaultBinary,
		timeout: defaultTimeout,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Speak implements tts.Provider. Sentences are synthesised sequentially;
// playback of each sentence overlaps synthesis of the next.
func (p *Provider) Speak(ctx context.Context, text string) error {
	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	// One-deep pipeline between synthesis and playback. The goroutine sends
	// on synthErr exactly once, on every exit path, so the receive below can
	// never hang.
	clips := make(chan *audio.Clip, 1)
	synthErr := make(chan error, 1)

	go func() {
		var err error
		defer func() {
			synthErr <- err
			close(clips)
		}()
		for _, s := range sentences {
			var clip *audio.Clip
			clip, err = p.synthesize(ctx, s)
			if err != nil {
				return
			}
			select {
			case clips <- clip:
			case <-ctx.Done():
				err = ctx.Err()
				return
			}
		}
	}()

	for clip := range clips {
		if err := p.player.Play(ctx, clip); err != nil {
			// Drain so the synthesis goroutine can exit.
			for range clips {
			}
			<-synthErr
			return fmt.Errorf("piper: play: %w", err)
		}
	}
	if err := <-synthErr; err != nil {
		return err
	}
	return ctx.Err()
}

// synthesize runs one piper invocation and decodes its WAV output.
func (p *Provider) synthesize(ctx context.Context, sentence string) (*audio.Clip, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	args := []string{"--output_file", "-"}
	if p.model != "" {
		args = append(args, "--model", p.model)
	}
	if p.lengthScale > 0 {
		args = append(args, "--length_scale", fmt.Sprintf("%g", p.lengthScale))
	}

	cmd := exec.CommandContext(ctx, p.binary, args...)
	cmd.Stdin = strings.NewReader(sentence)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("piper: synthesis failed: %w (stderr: %s)",
			err, strings.TrimSpace(stderr.String()))
	}
	slog.Debug("piper synthesis complete",
		"chars", len(sentence), "took", time.Since(start))

	clip, err := audio.DecodeWAV(&stdout)
	if err != nil {
		return nil, fmt.Errorf("piper: decode output: %w", err)
	}
	return clip, nil
}

// SplitSentences breaks text into sentences on '.', '!' and '?' boundaries.
// Whitespace-only fragments are dropped. Text without any terminator is
// returned as a single sentence.
func SplitSentences(text string) []string {
	var (
		sentences []string
		current   strings.Builder
	)
	flush := func() {
		s := strings.TrimSpace(current.String())
		if hasContent(s) {
			sentences = append(sentences, s)
		}
		current.Reset()
	}
	for _, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			flush()
		}
	}
	flush()
	return sentences
}

func hasContent(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
