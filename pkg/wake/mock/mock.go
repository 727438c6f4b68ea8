// Package mock provides a scripted test double for wake.Scorer.
package mock

import (
	"sync"
)

// Scorer replays scripted score maps in order. Once the script is exhausted
// every further frame scores zero for all keywords.
type Scorer struct {
	mu sync.Mutex

	// Scripted is the sequence of score maps returned by successive Score
	// calls.
	Scripted []map[string]float64

	// ScoreErr, if non-nil, is returned by every Score call.
	ScoreErr error

	// ScoreCalls counts Score invocations.
	ScoreCalls int

	// ResetCalls counts Reset invocations.
	ResetCalls int

	next int
}

// Score returns the next scripted map, or an all-zero map when exhausted.
func (s *Scorer) Score(samples []int16) (map[string]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ScoreCalls++
	if s.ScoreErr != nil {
		return nil, s.ScoreErr
	}
	if s.next < len(s.Scripted) {
		m := s.Scripted[s.next]
		s.next++
		return m, nil
	}
	return map[string]float64{}, nil
}

// Reset records the call.
func (s *Scorer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ResetCalls++
}
