// Package convo runs the conversation loop: wake-word wait, utterance
// capture, transcription, reply generation, and speech, with a rolling
// session that expires after a period of inactivity.
package convo

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/wrenrobotics/wren/internal/observe"
	"github.com/wrenrobotics/wren/internal/voicecmd"
	"github.com/wrenrobotics/wren/pkg/audio"
	"github.com/wrenrobotics/wren/pkg/provider/llm"
	"github.com/wrenrobotics/wren/pkg/provider/stt"
	"github.com/wrenrobotics/wren/pkg/provider/tts"
	"github.com/wrenrobotics/wren/pkg/recorder"
	"github.com/wrenrobotics/wren/pkg/statusbus"
	"github.com/wrenrobotics/wren/pkg/wake"
)

// Canned lines. The farewell differs by cause so the user can tell an
// intentional goodbye from an idle timeout.
const (
	fallbackReply   = "My brain is lagging."
	timeoutFarewell = "Catch you later."
	stopFarewell    = "Bye."
)

// Waker waits for a wake-word detection.
type Waker interface {
	Listen(ctx context.Context) (*wake.Event, error)
}

// UtteranceRecorder captures one utterance.
type UtteranceRecorder interface {
	Record(ctx context.Context) (*audio.Clip, recorder.Outcome, error)
}

// Config holds the orchestrator tunables.
type Config struct {
	// SystemPrompt is the persona for every LLM call. The current date and
	// time are appended each turn.
	SystemPrompt string

	// Timeout ends the conversation after this much inactivity. Default 120 s.
	Timeout time.Duration

	// HistoryCap bounds the session history. Default 10.
	HistoryCap int

	// PersistFallback keeps the canned fallback reply in history when the
	// LLM fails. The user's message is kept either way. Default false.
	PersistFallback bool
}

func (c *Config) applyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 120 * time.Second
	}
	if c.HistoryCap <= 0 {
		c.HistoryCap = 10
	}
}

// Orchestrator drives the Listening → Recording → Thinking → Speaking loop.
// TTS may be nil, in which case replies are logged instead of spoken.
type Orchestrator struct {
	waker  Waker
	rec    UtteranceRecorder
	stt    stt.Provider
	llm    llm.Provider
	tts    tts.Provider
	status statusbus.Publisher
	met    *observe.Metrics
	cfg    Config

	session *Session
	state   State

	// now is replaceable in tests.
	now func() time.Time
}

// New creates an Orchestrator. waker, rec, sttp, and llmp are required;
// ttsp may be nil for a voiceless deployment and status may be nil to
// discard status updates.
func New(waker Waker, rec UtteranceRecorder, sttp stt.Provider, llmp llm.Provider, ttsp tts.Provider, status statusbus.Publisher, cfg Config) *Orchestrator {
	cfg.applyDefaults()
	if status == nil {
		status = statusbus.Noop{}
	}
	return &Orchestrator{
		waker:   waker,
		rec:     rec,
		stt:     sttp,
		llm:     llmp,
		tts:     ttsp,
		status:  status,
		met:     observe.DefaultMetrics(),
		cfg:     cfg,
		session: NewSession(cfg.HistoryCap),
		state:   StateListening,
		now:     time.Now,
	}
}

// State returns the orchestrator's current pipeline state.
func (o *Orchestrator) State() State { return o.state }

// Run alternates between idle wake-word listening and active conversations.
// It returns when ctx is cancelled or when the user ends a conversation with
// a stop phrase; a conversation that merely times out goes back to wake-word
// listening.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.publishIdle()
	for {
		o.state = StateListening
		ev, err := o.waker.Listen(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return ctx.Err()
			}
			return err
		}

		slog.Info("wake word detected", "keyword", ev.Keyword, "confidence", ev.Confidence)
		o.met.RecordWakeDetection(ctx, ev.Keyword)
		o.status.Publish(statusbus.TopicEmotion, statusbus.EmotionWake)

		stop, err := o.converse(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		if stop {
			slog.Info("stop phrase ended the session")
			return nil
		}
		o.publishIdle()
	}
}

// converse runs one conversation until a stop phrase, the idle timeout, or
// cancellation ends it. stop is true only for a stop-phrase ending, which is
// terminal for the whole run.
func (o *Orchestrator) converse(ctx context.Context) (stop bool, err error) {
	o.session.Reset()
	o.session.Touch(o.now())
	o.met.InConversation.Add(ctx, 1)
	defer o.met.InConversation.Add(ctx, -1)

	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		if o.session.Expired(o.now(), o.cfg.Timeout) {
			slog.Info("conversation timed out", "timeout", o.cfg.Timeout)
			return false, o.farewell(ctx, timeoutFarewell)
		}

		transcript, ok, err := o.captureTurn(ctx)
		if err != nil {
			return false, err
		}
		if !ok {
			// Nothing usable was heard. Loop and record again; the idle
			// timeout check above bounds how long this can go on.
			continue
		}

		if voicecmd.IsStopPhrase(transcript) {
			slog.Info("stop phrase heard", "transcript", transcript)
			return true, o.farewell(ctx, stopFarewell)
		}

		o.session.Append(llm.RoleUser, transcript)
		o.session.Touch(o.now())

		// The user's message stays in history regardless of how the reply
		// went; PersistFallback governs only the canned assistant entry.
		reply, fromFallback := o.think(ctx)
		if !fromFallback || o.cfg.PersistFallback {
			o.session.Append(llm.RoleAssistant, reply)
		}

		o.speak(ctx, reply)
		o.session.Touch(o.now())
		o.met.Turns.Add(ctx, 1)
		o.status.Publish(statusbus.TopicEmotion, statusbus.EmotionHappy)
	}
}

// captureTurn records and transcribes one utterance. ok is false when the
// turn produced nothing worth responding to.
func (o *Orchestrator) captureTurn(ctx context.Context) (transcript string, ok bool, err error) {
	o.state = StateRecording
	o.status.Publish(statusbus.TopicLEDs, statusbus.LEDListen)

	start := o.now()
	clip, outcome, err := o.rec.Record(ctx)
	if err != nil {
		return "", false, err
	}
	o.met.RecordDuration.Record(ctx, o.now().Sub(start).Seconds())

	if outcome == recorder.NoSpeech || clip == nil {
		slog.Debug("no speech detected")
		return "", false, nil
	}
	slog.Debug("utterance captured", "outcome", outcome, "duration", clip.Duration())

	o.state = StateThinking
	o.status.Publish(statusbus.TopicLEDs, statusbus.LEDThink)

	start = o.now()
	text, err := o.stt.Transcribe(ctx, clip)
	o.met.STTDuration.Record(ctx, o.now().Sub(start).Seconds())
	if err != nil {
		if ctx.Err() != nil {
			return "", false, ctx.Err()
		}
		slog.Error("transcription failed", "error", err)
		o.met.RecordProviderError(ctx, "stt")
		return "", false, nil
	}

	text = strings.TrimSpace(text)
	if !voicecmd.HasContent(text) {
		slog.Debug("transcript has no content", "transcript", text)
		return "", false, nil
	}
	slog.Info("heard", "transcript", text)
	return text, true, nil
}

// think asks the LLM for a reply to the current history. On failure it
// returns the canned fallback and fromFallback=true.
func (o *Orchestrator) think(ctx context.Context) (reply string, fromFallback bool) {
	o.state = StateThinking
	o.status.Publish(statusbus.TopicLEDs, statusbus.LEDThink)

	start := o.now()
	reply, err := o.llm.Chat(ctx, o.systemPrompt(), o.session.History())
	o.met.LLMDuration.Record(ctx, o.now().Sub(start).Seconds())
	if err != nil {
		slog.Error("reply generation failed", "error", err)
		o.met.RecordProviderError(ctx, "llm")
		return fallbackReply, true
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return fallbackReply, true
	}
	return reply, false
}

// speak voices the reply and publishes the speaking state around it. TTS
// failures are logged; the conversation continues.
func (o *Orchestrator) speak(ctx context.Context, text string) {
	text = sanitizeForSpeech(text)
	if text == "" {
		return
	}

	o.state = StateSpeaking
	o.status.Publish(statusbus.TopicLEDs, statusbus.LEDSpeak)
	o.status.Publish(statusbus.TopicState, statusbus.StateSpeaking)
	defer o.status.Publish(statusbus.TopicState, statusbus.StateSilent)

	if o.tts == nil {
		slog.Info("reply (no TTS configured)", "text", text)
		return
	}

	start := o.now()
	err := o.tts.Speak(ctx, text)
	o.met.TTSDuration.Record(ctx, o.now().Sub(start).Seconds())
	if err != nil && ctx.Err() == nil {
		slog.Error("speech failed", "error", err)
		o.met.RecordProviderError(ctx, "tts")
	}
}

// farewell speaks the parting line and publishes the sleep statuses. It
// always returns nil; the caller decides whether the ending is terminal.
func (o *Orchestrator) farewell(ctx context.Context, line string) error {
	o.speak(ctx, line)
	o.status.Publish(statusbus.TopicEmotion, statusbus.EmotionSleep)
	o.status.Publish(statusbus.TopicLEDs, statusbus.LEDSleep)
	return nil
}

// publishIdle announces the between-conversations resting state.
func (o *Orchestrator) publishIdle() {
	o.status.Publish(statusbus.TopicEmotion, statusbus.EmotionNeutral)
	o.status.Publish(statusbus.TopicLEDs, statusbus.LEDIdle)
}

// systemPrompt appends the current date and time so the model can answer
// "what day is it" style questions.
func (o *Orchestrator) systemPrompt() string {
	now := o.now()
	return o.cfg.SystemPrompt +
		"\nThe current date and time is " + now.Format("Monday, January 2, 2006 at 3:04 PM") + "."
}

// sanitizeForSpeech strips emphasis markup LLMs like to emit, which TTS
// engines would otherwise read aloud as "asterisk".
func sanitizeForSpeech(text string) string {
	return strings.TrimSpace(strings.ReplaceAll(text, "*", ""))
}
