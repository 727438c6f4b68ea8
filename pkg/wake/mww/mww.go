// Package mww provides a wake.Scorer backed by github.com/pmdroid/microwakeword,
// a pure-Go port of the ESPHome microWakeWord streaming models.
//
// microWakeWord exposes a binary trigger per model rather than a raw
// probability, so confidences are reported as 0 or 1. Each model applies its
// own refractory window internally; the monitor's cooldown sits on top of
// that and governs the pipeline-level trigger rate.
package mww

import (
	"fmt"

	"github.com/pmdroid/microwakeword"

	"github.com/wrenrobotics/wren/pkg/wake"
)

// Compile-time assertion that Scorer satisfies wake.Scorer.
var _ wake.Scorer = (*Scorer)(nil)

// Scorer runs one microWakeWord model per configured keyword.
type Scorer struct {
	models map[string]*microwakeword.WakeWord
	order  []string
}

// New loads the named builtin models (e.g., "okay_nabu", "hey_jarvis").
// Models stream 16 kHz mono S16LE audio.
func New(keywords []string) (*Scorer, error) {
	if len(keywords) == 0 {
		return nil, fmt.Errorf("mww: at least one keyword model is required")
	}
	s := &Scorer{models: make(map[string]*microwakeword.WakeWord, len(keywords))}
	for _, kw := range keywords {
		model, err := microwakeword.FromBuiltin(kw, microwakeword.DefaultRefractory)
		if err != nil {
			return nil, fmt.Errorf("mww: load builtin model %q: %w", kw, err)
		}
		s.models[kw] = model
		s.order = append(s.order, kw)
	}
	return s, nil
}

// Score implements wake.Scorer. The frame is fed to every loaded model; a
// model that triggers reports confidence 1.
func (s *Scorer) Score(samples []int16) (map[string]float64, error) {
	pcm := make([]byte, len(samples)*2)
	for i, v := range samples {
		pcm[i*2] = byte(v)
		pcm[i*2+1] = byte(uint16(v) >> 8)
	}

	scores := make(map[string]float64, len(s.order))
	for _, kw := range s.order {
		triggered, err := s.models[kw].ProcessStreaming(pcm)
		if err != nil {
			return nil, fmt.Errorf("mww: process frame for %q: %w", kw, err)
		}
		if triggered {
			scores[kw] = 1
		} else {
			scores[kw] = 0
		}
	}
	return scores, nil
}

// Reset implements wake.Scorer. The streaming models manage their own
// refractory state, so there is nothing to clear between listen cycles.
func (s *Scorer) Reset() {}

// Keywords returns the loaded keyword names in registration order.
func (s *Scorer) Keywords() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
