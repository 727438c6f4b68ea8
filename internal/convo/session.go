package convo

import (
	"time"

	"github.com/wrenrobotics/wren/pkg/provider/llm"
)

// Session holds the rolling state of one conversation: the capped message
// history and the time of the last valid interaction. It is owned by the
// orchestrator goroutine and is not synchronised.
type Session struct {
	historyCap      int
	history         []llm.Message
	lastInteraction time.Time
}

// NewSession creates a Session retaining at most historyCap messages.
func NewSession(historyCap int) *Session {
	if historyCap < 1 {
		historyCap = 1
	}
	return &Session{historyCap: historyCap}
}

// Append adds a message, dropping the oldest entries once the cap is
// exceeded. The newest messages always survive.
func (s *Session) Append(role llm.Role, content string) {
	s.history = append(s.history, llm.Message{Role: role, Content: content})
	if over := len(s.history) - s.historyCap; over > 0 {
		s.history = append(s.history[:0], s.history[over:]...)
	}
}

// History returns a copy of the retained messages, oldest first.
func (s *Session) History() []llm.Message {
	out := make([]llm.Message, len(s.history))
	copy(out, s.history)
	return out
}

// Len returns the number of retained messages.
func (s *Session) Len() int { return len(s.history) }

// Touch records a valid interaction at now, resetting the idle clock.
func (s *Session) Touch(now time.Time) { s.lastInteraction = now }

// Expired reports whether more than timeout has passed since the last
// interaction.
func (s *Session) Expired(now time.Time, timeout time.Duration) bool {
	return now.Sub(s.lastInteraction) > timeout
}

// Reset clears the history and the interaction clock for a fresh
// conversation.
func (s *Session) Reset() {
	s.history = s.history[:0]
	s.lastInteraction = time.Time{}
}
