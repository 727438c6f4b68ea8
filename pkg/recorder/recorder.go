// Package recorder captures a single spoken utterance from a live frame
// source using energy-based segmentation instead of a fixed duration.
//
// The recorder keeps a short pre-roll of recent frames so the leading edge
// of speech is not clipped once the energy threshold fires, ends the
// recording after a sustained run of sub-threshold frames, and enforces a
// hard wall-clock ceiling regardless of energy state. The three possible
// outcomes are distinguishable by the caller: terminated by silence,
// terminated by the ceiling, or no speech detected at all.
package recorder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wrenrobotics/wren/pkg/audio"
)

// Outcome reports how a recording ended.
type Outcome int

const (
	// NoSpeech means no frame crossed the energy threshold before the
	// maximum duration elapsed. The clip is nil.
	NoSpeech Outcome = iota

	// EndedSilence means speech was detected and the recording stopped
	// after the configured run of trailing silence.
	EndedSilence

	// EndedMaxDuration means speech was detected but the wall-clock ceiling
	// forced the stop.
	EndedMaxDuration
)

// String returns the human-readable name of the outcome.
func (o Outcome) String() string {
	switch o {
	case NoSpeech:
		return "no-speech"
	case EndedSilence:
		return "silence"
	case EndedMaxDuration:
		return "max-duration"
	default:
		return "unknown"
	}
}

// Config holds the segmentation parameters.
type Config struct {
	// MaxDuration is the hard recording ceiling. Default 15 s.
	MaxDuration time.Duration

	// SilenceLimit is the contiguous sub-threshold run that ends a
	// recording once speech has been detected. Default 1.5 s.
	SilenceLimit time.Duration

	// EnergyThreshold is the RMS level separating speech from silence, in
	// PCM sample units. Default 500.
	EnergyThreshold float64

	// PreRoll is how much audio preceding speech onset is retained.
	// Default 500 ms.
	PreRoll time.Duration
}

func (c *Config) applyDefaults() {
	if c.MaxDuration <= 0 {
		c.MaxDuration = 15 * time.Second
	}
	if c.SilenceLimit <= 0 {
		c.SilenceLimit = 1500 * time.Millisecond
	}
	if c.EnergyThreshold <= 0 {
		c.EnergyThreshold = 500
	}
	if c.PreRoll <= 0 {
		c.PreRoll = 500 * time.Millisecond
	}
}

// Recorder captures utterances from a mono frame source.
// Not safe for concurrent use; the orchestrator runs one recording at a time.
type Recorder struct {
	src audio.Source
	cfg Config
}

// New creates a Recorder reading mono frames from src.
func New(src audio.Source, cfg Config) *Recorder {
	cfg.applyDefaults()
	return &Recorder{src: src, cfg: cfg}
}

// Record blocks until one utterance has been captured, no speech was heard
// within the ceiling, or ctx is cancelled.
//
// The returned clip is nil exactly when the outcome is [NoSpeech] or err is
// non-nil. A single loud frame followed by silence still yields a short
// non-empty clip; no minimum length is imposed here.
func (r *Recorder) Record(ctx context.Context) (*audio.Clip, Outcome, error) {
	var (
		preRoll   *audio.FrameRing
		out       []int16
		rate      int
		recording bool
		elapsed   time.Duration
		silence   time.Duration
	)

	for {
		if err := ctx.Err(); err != nil {
			return nil, NoSpeech, err
		}

		f, err := r.src.ReadFrame(ctx)
		if err != nil {
			return nil, NoSpeech, fmt.Errorf("recorder: read frame: %w", err)
		}
		if rate == 0 {
			rate = f.SampleRate
			frameDur := f.Duration()
			if frameDur <= 0 {
				return nil, NoSpeech, fmt.Errorf("recorder: frame with invalid duration (rate=%d)", f.SampleRate)
			}
			capacity := int(r.cfg.PreRoll / frameDur)
			if capacity < 1 {
				capacity = 1
			}
			preRoll = audio.NewFrameRing(capacity)
		}

		elapsed += f.Duration()
		level := audio.RMS(f.Samples)

		if !recording {
			if level > r.cfg.EnergyThreshold {
				// Speech onset: prepend the pre-roll so the first
				// syllable is not clipped.
				recording = true
				for _, pf := range preRoll.Frames() {
					out = append(out, pf.Samples...)
				}
				out = append(out, f.Samples...)
				slog.Debug("speech onset", "rms", level, "pre_roll_frames", preRoll.Len())
			} else {
				preRoll.Push(f)
			}
		} else {
			out = append(out, f.Samples...)
			if level <= r.cfg.EnergyThreshold {
				silence += f.Duration()
				if silence > r.cfg.SilenceLimit {
					return &audio.Clip{Samples: out, SampleRate: rate}, EndedSilence, nil
				}
			} else {
				silence = 0
			}
		}

		if elapsed >= r.cfg.MaxDuration {
			if !recording {
				return nil, NoSpeech, nil
			}
			slog.Debug("recording hit max duration", "elapsed", elapsed)
			return &audio.Clip{Samples: out, SampleRate: rate}, EndedMaxDuration, nil
		}
	}
}
