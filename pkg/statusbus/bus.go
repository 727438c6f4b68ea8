// Package statusbus publishes robot status updates (emotion, LED pattern,
// speaking state) to whatever is driving the robot's face and body.
//
// Publishing is strictly fire-and-forget: the conversation loop must never
// stall because a display controller is slow or offline, so implementations
// log delivery failures instead of returning them.
package statusbus

// Well-known topics.
const (
	TopicEmotion = "robot/emotion"
	TopicLEDs    = "robot/leds"
	TopicState   = "robot/state"
)

// Emotion payloads for TopicEmotion.
const (
	EmotionWake    = "wake"
	EmotionHappy   = "happy"
	EmotionNeutral = "neutral"
	EmotionSleep   = "sleep"
)

// LED payloads for TopicLEDs.
const (
	LEDIdle   = "idle"
	LEDListen = "listen"
	LEDThink  = "think"
	LEDSpeak  = "speak"
	LEDSleep  = "sleep"
)

// Speaking-state payloads for TopicState.
const (
	StateSpeaking = "speaking"
	StateSilent   = "silent"
)

// Publisher delivers a status payload on a topic. Implementations must not
// block the caller on delivery and must be safe for concurrent use.
type Publisher interface {
	Publish(topic, payload string)
}

// Noop is a Publisher that discards everything. Used when no status sink is
// configured.
type Noop struct{}

// Publish implements Publisher.
func (Noop) Publish(topic, payload string) {}
