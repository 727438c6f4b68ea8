package convo

// State is the orchestrator's position in the turn pipeline. Exactly one
// state is active at a time; transitions happen only inside the run loop.
type State int

const (
	// StateListening means the agent is waiting for the wake word (idle) or
	// about to record the next utterance (in conversation).
	StateListening State = iota

	// StateRecording means an utterance is being captured.
	StateRecording

	// StateThinking means STT or LLM work is in flight.
	StateThinking

	// StateSpeaking means a reply is being synthesised and played.
	StateSpeaking
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateListening:
		return "listening"
	case StateRecording:
		return "recording"
	case StateThinking:
		return "thinking"
	case StateSpeaking:
		return "speaking"
	default:
		return "unknown"
	}
}
