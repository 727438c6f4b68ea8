package convo_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/wrenrobotics/wren/internal/convo"
	"github.com/wrenrobotics/wren/pkg/audio"
	"github.com/wrenrobotics/wren/pkg/provider/llm"
	llmmock "github.com/wrenrobotics/wren/pkg/provider/llm/mock"
	sttmock "github.com/wrenrobotics/wren/pkg/provider/stt/mock"
	ttsmock "github.com/wrenrobotics/wren/pkg/provider/tts/mock"
	"github.com/wrenrobotics/wren/pkg/recorder"
	"github.com/wrenrobotics/wren/pkg/statusbus"
	statusmock "github.com/wrenrobotics/wren/pkg/statusbus/mock"
	"github.com/wrenrobotics/wren/pkg/wake"
)

// fakeWaker fires one wake event, then signals idle and blocks until the
// context is cancelled. The idle channel lets tests know the orchestrator
// went back to listening without sleeping.
type fakeWaker struct {
	once  sync.Once
	calls atomic.Int32
	Idle  chan struct{}
}

func newFakeWaker() *fakeWaker {
	return &fakeWaker{Idle: make(chan struct{})}
}

func (w *fakeWaker) Listen(ctx context.Context) (*wake.Event, error) {
	w.calls.Add(1)
	var fired bool
	w.once.Do(func() { fired = true })
	if fired {
		return &wake.Event{Keyword: "hey_jarvis", Confidence: 0.9, At: time.Now()}, nil
	}
	close(w.Idle)
	<-ctx.Done()
	return nil, ctx.Err()
}

func (w *fakeWaker) Calls() int { return int(w.calls.Load()) }

// recordResult scripts one Record call.
type recordResult struct {
	clip    *audio.Clip
	outcome recorder.Outcome
	delay   time.Duration
}

// fakeRecorder replays scripted results; exhausted it returns NoSpeech.
type fakeRecorder struct {
	mu      sync.Mutex
	results []recordResult
	calls   int
}

func (r *fakeRecorder) Record(ctx context.Context) (*audio.Clip, recorder.Outcome, error) {
	r.mu.Lock()
	r.calls++
	var res recordResult
	if len(r.results) > 0 {
		res = r.results[0]
		r.results = r.results[1:]
	} else {
		res = recordResult{outcome: recorder.NoSpeech, delay: time.Millisecond}
	}
	r.mu.Unlock()

	if res.delay > 0 {
		select {
		case <-time.After(res.delay):
		case <-ctx.Done():
			return nil, recorder.NoSpeech, ctx.Err()
		}
	}
	return res.clip, res.outcome, nil
}

func (r *fakeRecorder) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func speech() recordResult {
	return recordResult{
		clip:    &audio.Clip{Samples: make([]int16, 1600), SampleRate: 16000},
		outcome: recorder.EndedSilence,
	}
}

// runConversation drives one full conversation and returns once Run has
// ended (stop phrase) or the orchestrator is back at wake-word listening
// (timeout), cancelling in the latter case.
func runConversation(t *testing.T, o *convo.Orchestrator, w *fakeWaker) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		return
	case <-w.Idle:
		cancel()
	case <-time.After(5 * time.Second):
		t.Fatal("conversation did not finish")
	}

	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestOrchestrator_TurnThenStopPhrase(t *testing.T) {
	t.Parallel()

	waker := newFakeWaker()
	rec := &fakeRecorder{results: []recordResult{speech(), speech()}}
	sttp := &sttmock.Provider{Results: []string{"hello there", "please stop now"}}
	llmp := &llmmock.Provider{Replies: []string{"Hi! How can I help?"}}
	ttsp := &ttsmock.Provider{}
	status := &statusmock.Publisher{}

	o := convo.New(waker, rec, sttp, llmp, ttsp, status, convo.Config{
		SystemPrompt: "You are a robot.",
		Timeout:      time.Minute,
	})
	runConversation(t, o, waker)

	if len(ttsp.Spoken) != 2 {
		t.Fatalf("Spoken = %v, want reply + farewell", ttsp.Spoken)
	}
	if ttsp.Spoken[0] != "Hi! How can I help?" {
		t.Errorf("Spoken[0] = %q", ttsp.Spoken[0])
	}
	if ttsp.Spoken[1] != "Bye." {
		t.Errorf("Spoken[1] = %q, want the stop farewell", ttsp.Spoken[1])
	}

	// The stop turn never reaches the model.
	if len(llmp.Calls) != 1 {
		t.Fatalf("llm calls = %d, want 1", len(llmp.Calls))
	}
	msgs := llmp.Calls[0].Messages
	if len(msgs) != 1 || msgs[0].Content != "hello there" {
		t.Errorf("llm saw %+v", msgs)
	}
	if !strings.Contains(llmp.Calls[0].System, "You are a robot.") {
		t.Errorf("system prompt missing persona: %q", llmp.Calls[0].System)
	}
	// Supplemental date/time suffix.
	if !strings.Contains(llmp.Calls[0].System, "current date and time") {
		t.Errorf("system prompt missing date suffix: %q", llmp.Calls[0].System)
	}
}

func TestOrchestrator_StopPhraseEndsRun(t *testing.T) {
	t.Parallel()

	waker := newFakeWaker()
	rec := &fakeRecorder{results: []recordResult{speech()}}
	sttp := &sttmock.Provider{Results: []string{"stop"}}
	llmp := &llmmock.Provider{}
	ttsp := &ttsmock.Provider{}

	o := convo.New(waker, rec, sttp, llmp, ttsp, nil, convo.Config{Timeout: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after the stop phrase")
	}

	if waker.Calls() != 1 {
		t.Errorf("waker.Listen called %d times, want 1: a stop phrase ends the run", waker.Calls())
	}
	if len(ttsp.Spoken) != 1 || ttsp.Spoken[0] != "Bye." {
		t.Errorf("Spoken = %v, want the stop farewell", ttsp.Spoken)
	}
}

func TestOrchestrator_TimeoutReturnsToListening(t *testing.T) {
	t.Parallel()

	waker := newFakeWaker()
	rec := &fakeRecorder{results: []recordResult{
		{outcome: recorder.NoSpeech, delay: 40 * time.Millisecond},
	}}
	sttp := &sttmock.Provider{}
	llmp := &llmmock.Provider{}
	ttsp := &ttsmock.Provider{}

	o := convo.New(waker, rec, sttp, llmp, ttsp, nil, convo.Config{Timeout: 30 * time.Millisecond})
	runConversation(t, o, waker)

	if waker.Calls() != 2 {
		t.Errorf("waker.Listen called %d times, want 2: a timeout resumes listening", waker.Calls())
	}
}

func TestOrchestrator_TimeoutFarewell(t *testing.T) {
	t.Parallel()

	waker := newFakeWaker()
	// Every Record takes 20 ms and hears nothing; with a 30 ms timeout the
	// second loop iteration finds the session expired.
	rec := &fakeRecorder{}
	sttp := &sttmock.Provider{}
	llmp := &llmmock.Provider{}
	ttsp := &ttsmock.Provider{}
	status := &statusmock.Publisher{}

	o := convo.New(waker, rec, sttp, llmp, ttsp, status, convo.Config{Timeout: 30 * time.Millisecond})
	rec.results = []recordResult{
		{outcome: recorder.NoSpeech, delay: 40 * time.Millisecond},
	}
	runConversation(t, o, waker)

	if len(ttsp.Spoken) != 1 || ttsp.Spoken[0] != "Catch you later." {
		t.Fatalf("Spoken = %v, want the timeout farewell", ttsp.Spoken)
	}
	if status.Last(statusbus.TopicEmotion) != statusbus.EmotionNeutral {
		t.Errorf("final emotion = %q, want idle neutral after sleep", status.Last(statusbus.TopicEmotion))
	}
	emotions := status.On(statusbus.TopicEmotion)
	var sawSleep bool
	for _, e := range emotions {
		if e == statusbus.EmotionSleep {
			sawSleep = true
		}
	}
	if !sawSleep {
		t.Errorf("emotions %v missing sleep", emotions)
	}
}

func TestOrchestrator_EmptyInputRecordsAgain(t *testing.T) {
	t.Parallel()

	waker := newFakeWaker()
	rec := &fakeRecorder{results: []recordResult{
		{outcome: recorder.NoSpeech},
		speech(),
	}}
	sttp := &sttmock.Provider{Results: []string{"stop"}}
	llmp := &llmmock.Provider{}
	ttsp := &ttsmock.Provider{}

	o := convo.New(waker, rec, sttp, llmp, ttsp, nil, convo.Config{Timeout: time.Minute})
	runConversation(t, o, waker)

	if rec.Calls() != 2 {
		t.Errorf("recorder calls = %d, want 2 (silent turn retries)", rec.Calls())
	}
	if len(llmp.Calls) != 0 {
		t.Errorf("llm calls = %d, want 0", len(llmp.Calls))
	}
	if len(ttsp.Spoken) != 1 || ttsp.Spoken[0] != "Bye." {
		t.Errorf("Spoken = %v", ttsp.Spoken)
	}
}

func TestOrchestrator_PunctuationOnlyTranscriptIgnored(t *testing.T) {
	t.Parallel()

	waker := newFakeWaker()
	rec := &fakeRecorder{results: []recordResult{speech(), speech()}}
	sttp := &sttmock.Provider{Results: []string{"...", "stop"}}
	llmp := &llmmock.Provider{}
	ttsp := &ttsmock.Provider{}

	o := convo.New(waker, rec, sttp, llmp, ttsp, nil, convo.Config{Timeout: time.Minute})
	runConversation(t, o, waker)

	if len(llmp.Calls) != 0 {
		t.Errorf("punctuation-only transcript reached the llm: %+v", llmp.Calls)
	}
}

func TestOrchestrator_LLMFailureSpeaksFallback(t *testing.T) {
	t.Parallel()

	waker := newFakeWaker()
	rec := &fakeRecorder{results: []recordResult{speech(), speech(), speech()}}
	sttp := &sttmock.Provider{Results: []string{"first question", "second question", "stop"}}
	llmp := &flakyLLM{failFirst: true, reply: "A real answer."}
	ttsp := &ttsmock.Provider{}

	o := convo.New(waker, rec, sttp, llmp, ttsp, nil, convo.Config{Timeout: time.Minute})
	runConversation(t, o, waker)

	want := []string{"My brain is lagging.", "A real answer.", "Bye."}
	if len(ttsp.Spoken) != len(want) {
		t.Fatalf("Spoken = %v, want %v", ttsp.Spoken, want)
	}
	for i := range want {
		if ttsp.Spoken[i] != want[i] {
			t.Errorf("Spoken[%d] = %q, want %q", i, ttsp.Spoken[i], want[i])
		}
	}

	// The user's first question stays in history; only the canned reply is
	// forgotten.
	second := llmp.calls[1]
	if len(second) != 2 {
		t.Fatalf("second llm call saw %d messages %+v, want both user questions", len(second), second)
	}
	if second[0].Content != "first question" || second[1].Content != "second question" {
		t.Errorf("second llm call saw %+v, want the two user questions unpolluted", second)
	}
	for _, m := range second {
		if m.Content == "My brain is lagging." {
			t.Errorf("fallback reply leaked into history: %+v", second)
		}
	}
}

func TestOrchestrator_PersistFallbackKeepsHistory(t *testing.T) {
	t.Parallel()

	waker := newFakeWaker()
	rec := &fakeRecorder{results: []recordResult{speech(), speech(), speech()}}
	sttp := &sttmock.Provider{Results: []string{"first question", "second question", "stop"}}
	llmp := &flakyLLM{failFirst: true, reply: "A real answer."}
	ttsp := &ttsmock.Provider{}

	o := convo.New(waker, rec, sttp, llmp, ttsp, nil, convo.Config{
		Timeout:         time.Minute,
		PersistFallback: true,
	})
	runConversation(t, o, waker)

	second := llmp.calls[1]
	if len(second) != 3 {
		t.Fatalf("second llm call saw %d messages, want 3 (user, fallback, user)", len(second))
	}
	if second[1].Content != "My brain is lagging." {
		t.Errorf("history[1] = %q, want the persisted fallback", second[1].Content)
	}
}

func TestOrchestrator_StripsEmphasisBeforeSpeaking(t *testing.T) {
	t.Parallel()

	waker := newFakeWaker()
	rec := &fakeRecorder{results: []recordResult{speech(), speech()}}
	sttp := &sttmock.Provider{Results: []string{"hello", "stop"}}
	llmp := &llmmock.Provider{Replies: []string{"*Beep!* I am **so** ready."}}
	ttsp := &ttsmock.Provider{}

	o := convo.New(waker, rec, sttp, llmp, ttsp, nil, convo.Config{Timeout: time.Minute})
	runConversation(t, o, waker)

	if len(ttsp.Spoken) == 0 {
		t.Fatal("nothing spoken")
	}
	if strings.Contains(ttsp.Spoken[0], "*") {
		t.Errorf("Spoken[0] = %q, asterisks must be stripped", ttsp.Spoken[0])
	}
}

func TestOrchestrator_HistoryCap(t *testing.T) {
	t.Parallel()

	waker := newFakeWaker()
	rec := &fakeRecorder{results: []recordResult{speech(), speech(), speech(), speech()}}
	sttp := &sttmock.Provider{Results: []string{"one", "two", "three", "stop"}}
	llmp := &llmmock.Provider{Replies: []string{"r1", "r2", "r3"}}
	ttsp := &ttsmock.Provider{}

	o := convo.New(waker, rec, sttp, llmp, ttsp, nil, convo.Config{
		Timeout:    time.Minute,
		HistoryCap: 3,
	})
	runConversation(t, o, waker)

	if len(llmp.Calls) != 3 {
		t.Fatalf("llm calls = %d, want 3", len(llmp.Calls))
	}
	third := llmp.Calls[2].Messages
	want := []string{"two", "r2", "three"}
	if len(third) != len(want) {
		t.Fatalf("third call saw %d messages %+v, want %v", len(third), third, want)
	}
	for i := range want {
		if third[i].Content != want[i] {
			t.Errorf("third call msg[%d] = %q, want %q", i, third[i].Content, want[i])
		}
	}
}

func TestOrchestrator_VoicelessLogsInsteadOfSpeaking(t *testing.T) {
	t.Parallel()

	waker := newFakeWaker()
	rec := &fakeRecorder{results: []recordResult{speech(), speech()}}
	sttp := &sttmock.Provider{Results: []string{"hello", "stop"}}
	llmp := &llmmock.Provider{Replies: []string{"written reply"}}

	o := convo.New(waker, rec, sttp, llmp, nil, nil, convo.Config{Timeout: time.Minute})
	runConversation(t, o, waker)

	// No panic and the conversation still completed both turns.
	if len(llmp.Calls) != 1 {
		t.Errorf("llm calls = %d, want 1", len(llmp.Calls))
	}
}

func TestOrchestrator_SpeakingStatePublishedAroundReply(t *testing.T) {
	t.Parallel()

	waker := newFakeWaker()
	rec := &fakeRecorder{results: []recordResult{speech(), speech()}}
	sttp := &sttmock.Provider{Results: []string{"hello", "stop"}}
	llmp := &llmmock.Provider{Replies: []string{"hi"}}
	ttsp := &ttsmock.Provider{}
	status := &statusmock.Publisher{}

	o := convo.New(waker, rec, sttp, llmp, ttsp, status, convo.Config{Timeout: time.Minute})
	runConversation(t, o, waker)

	states := status.On(statusbus.TopicState)
	if len(states) < 2 {
		t.Fatalf("states = %v, want speaking/silent pairs", states)
	}
	for i := 0; i+1 < len(states); i += 2 {
		if states[i] != statusbus.StateSpeaking || states[i+1] != statusbus.StateSilent {
			t.Errorf("states[%d:%d] = %v, want speaking then silent", i, i+2, states[i:i+2])
		}
	}
}

// flakyLLM fails its first call and records the history of every call.
type flakyLLM struct {
	mu        sync.Mutex
	failFirst bool
	reply     string
	calls     [][]llm.Message
}

func (f *flakyLLM) Chat(ctx context.Context, system string, msgs []llm.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	cp := make([]llm.Message, len(msgs))
	copy(cp, msgs)
	f.calls = append(f.calls, cp)

	if f.failFirst && len(f.calls) == 1 {
		return "", errors.New("model offline")
	}
	return f.reply, nil
}
