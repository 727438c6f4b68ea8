// Package wake implements continuous wake-word monitoring over a live frame
// source.
//
// The Monitor pulls native-rate frames, decimates them to the scorer's
// target rate, and asks an injected [Scorer] for per-keyword confidences.
// A detection fires when any keyword's confidence exceeds the sensitivity
// threshold and the cooldown interval since the previous trigger has
// elapsed. The scoring model itself (openwakeword, microWakeWord, …) is out
// of scope here; pkg/wake/mww provides a real implementation.
package wake

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/wrenrobotics/wren/pkg/audio"
)

// Scorer is the wake-word scoring capability. Implementations consume a
// fixed-size mono frame at the target sample rate and report a confidence in
// [0, 1] per loaded keyword.
//
// A Scorer is stateful across frames (streaming models keep temporal
// context); Reset clears that state so activations cannot leak between
// listen cycles.
type Scorer interface {
	Score(samples []int16) (map[string]float64, error)
	Reset()
}

// Event describes a single accepted wake-word detection.
type Event struct {
	// Keyword is the identifier of the triggering model.
	Keyword string

	// Confidence is the score that crossed the threshold.
	Confidence float64

	// At is the detection timestamp.
	At time.Time
}

// Config holds the monitor parameters.
type Config struct {
	// Sensitivity is the confidence threshold in [0, 1]. Default 0.5.
	Sensitivity float64

	// Cooldown is the minimum interval between two accepted detections.
	// Default 2 s.
	Cooldown time.Duration

	// TargetRate is the sample rate the scorer expects. Default 16000.
	TargetRate int
}

func (c *Config) applyDefaults() {
	if c.Sensitivity <= 0 {
		c.Sensitivity = 0.5
	}
	if c.Cooldown <= 0 {
		c.Cooldown = 2 * time.Second
	}
	if c.TargetRate <= 0 {
		c.TargetRate = 16000
	}
}

// Monitor scans a frame source for wake words. It is not safe for concurrent
// use: the orchestrator runs exactly one Listen at a time.
type Monitor struct {
	src         audio.Source
	scorer      Scorer
	cfg         Config
	lastTrigger time.Time

	// now is stubbed in tests.
	now func() time.Time
}

// NewMonitor creates a Monitor reading mono frames from src. Frames whose
// rate exceeds cfg.TargetRate are decimated by the integer factor
// rate/TargetRate before scoring.
func NewMonitor(src audio.Source, scorer Scorer, cfg Config) *Monitor {
	cfg.applyDefaults()
	return &Monitor{
		src:    src,
		scorer: scorer,
		cfg:    cfg,
		now:    time.Now,
	}
}

// Listen blocks until a wake word is detected or ctx is cancelled.
//
// On detection it returns the event immediately; the first keyword whose
// confidence qualifies wins (scoring order over the keyword set is
// deterministic). On cancellation it returns (nil, ctx.Err()): callers treat
// context.Canceled as the no-event shutdown result, not a failure.
//
// Scorer state is reset on entry so activations from a previous cycle
// cannot fire a stale detection.
func (m *Monitor) Listen(ctx context.Context) (*Event, error) {
	m.scorer.Reset()

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		f, err := m.src.ReadFrame(ctx)
		if err != nil {
			return nil, fmt.Errorf("wake: read frame: %w", err)
		}

		samples := f.Samples
		if f.SampleRate > m.cfg.TargetRate {
			samples = audio.Decimate(samples, f.SampleRate/m.cfg.TargetRate)
		}

		scores, err := m.scorer.Score(samples)
		if err != nil {
			// A scoring hiccup on one frame is not fatal to the scan.
			slog.Warn("wake: scorer error, skipping frame", "error", err)
			continue
		}

		// Iterate in sorted keyword order so the winning keyword is
		// deterministic when several qualify on the same frame.
		for _, keyword := range slices.Sorted(maps.Keys(scores)) {
			confidence := scores[keyword]
			if confidence <= m.cfg.Sensitivity {
				continue
			}
			now := m.now()
			if !m.lastTrigger.IsZero() && now.Sub(m.lastTrigger) <= m.cfg.Cooldown {
				continue
			}
			m.lastTrigger = now
			slog.Debug("wake word detected", "keyword", keyword, "confidence", confidence)
			return &Event{Keyword: keyword, Confidence: confidence, At: now}, nil
		}
	}
}
