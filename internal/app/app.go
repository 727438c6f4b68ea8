// Package app wires all wren subsystems into a running agent.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run executes the conversation loop, and Shutdown tears
// everything down in order.
//
// For testing, inject mock implementations via functional options
// (WithSource, WithStatus, etc.). When an option is not provided, New
// creates real implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wrenrobotics/wren/internal/config"
	"github.com/wrenrobotics/wren/internal/convo"
	"github.com/wrenrobotics/wren/internal/observe"
	"github.com/wrenrobotics/wren/pkg/audio"
	audiomalgo "github.com/wrenrobotics/wren/pkg/audio/malgo"
	"github.com/wrenrobotics/wren/pkg/provider/llm"
	"github.com/wrenrobotics/wren/pkg/provider/stt"
	"github.com/wrenrobotics/wren/pkg/provider/tts"
	"github.com/wrenrobotics/wren/pkg/recorder"
	"github.com/wrenrobotics/wren/pkg/statusbus"
	statusmqtt "github.com/wrenrobotics/wren/pkg/statusbus/mqtt"
	"github.com/wrenrobotics/wren/pkg/statusbus/wsface"
	"github.com/wrenrobotics/wren/pkg/wake"
	"github.com/wrenrobotics/wren/pkg/wake/mww"
)

// Providers holds one interface value per provider slot. TTS may be nil for
// a voiceless deployment. Populated by main.go via the config registry.
type Providers struct {
	STT stt.Provider
	LLM llm.Provider
	TTS tts.Provider
}

// App owns all subsystem lifetimes and drives the wren voice pipeline.
type App struct {
	cfg       *config.Config
	providers *Providers

	source audio.Source
	status statusbus.Publisher
	orch   *convo.Orchestrator

	metricsSrv *http.Server

	// closers are called in reverse order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithSource injects a frame source instead of opening the capture device.
// The source must deliver frames at the configured native rate.
func WithSource(s audio.Source) Option {
	return func(a *App) { a.source = s }
}

// WithStatus injects a status publisher instead of building one from config.
func WithStatus(p statusbus.Publisher) Option {
	return func(a *App) { a.status = p }
}

// New creates an App by wiring all subsystems together. The providers struct
// comes from main.go (populated via the config registry).
//
// New performs all initialisation synchronously: status bus connections,
// capture device, wake scorer, recorder, and orchestrator assembly, plus a
// warm-up ping to the LLM so the first real turn does not pay the model
// load time.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if providers == nil || providers.STT == nil || providers.LLM == nil {
		return nil, errors.New("app: STT and LLM providers are required")
	}
	a := &App{
		cfg:       cfg,
		providers: providers,
	}
	for _, o := range opts {
		o(a)
	}

	if err := a.initStatus(ctx); err != nil {
		return nil, fmt.Errorf("app: init status bus: %w", err)
	}
	if err := a.initSource(); err != nil {
		return nil, fmt.Errorf("app: init capture: %w", err)
	}
	if err := a.initPipeline(); err != nil {
		return nil, fmt.Errorf("app: init pipeline: %w", err)
	}
	a.initMetricsServer()

	a.warmUpLLM(ctx)

	return a, nil
}

// initStatus builds the status publisher from config. Multiple sinks fan
// out; none at all degrades to a no-op.
func (a *App) initStatus(ctx context.Context) error {
	if a.status != nil {
		return nil // injected
	}

	var sinks []statusbus.Publisher

	if mc := a.cfg.Status.MQTT; mc != nil {
		pub, err := statusmqtt.New(mc.BrokerURL, mc.ClientID)
		if err != nil {
			// The face going dark must not keep the robot from talking.
			slog.Warn("mqtt status sink unavailable, continuing without it", "error", err)
		} else {
			sinks = append(sinks, pub)
			a.closers = append(a.closers, pub.Close)
		}
	}
	if url := a.cfg.Status.FaceURL; url != "" {
		pub, err := wsface.Dial(ctx, url)
		if err != nil {
			slog.Warn("face status sink unavailable, continuing without it", "error", err)
		} else {
			sinks = append(sinks, pub)
			a.closers = append(a.closers, pub.Close)
		}
	}

	switch len(sinks) {
	case 0:
		a.status = statusbus.Noop{}
	case 1:
		a.status = sinks[0]
	default:
		a.status = multiPublisher(sinks)
	}
	return nil
}

// initSource opens the capture device unless one was injected.
func (a *App) initSource() error {
	if a.source != nil {
		return nil // injected
	}
	met := observe.DefaultMetrics()
	cap, err := audiomalgo.NewCapture(audiomalgo.CaptureConfig{
		SampleRate:   a.cfg.Audio.SampleRate,
		Channels:     a.cfg.Audio.Channels,
		FrameSamples: a.cfg.Audio.FrameSamples,
		OnDrop: func(n int) {
			met.DroppedFrames.Add(context.Background(), int64(n))
		},
	})
	if err != nil {
		return err
	}
	a.source = cap
	a.closers = append(a.closers, cap.Close)
	return nil
}

// initPipeline assembles the wake monitor, recorder, and orchestrator over
// a shared mono stream at the wake target rate.
func (a *App) initPipeline() error {
	mono := audio.SelectSource(a.source, a.cfg.Audio.Channel)
	stream := audio.DownsampleSource(mono, a.cfg.Wake.TargetRate)

	scorer, err := mww.New(a.cfg.Wake.Keywords)
	if err != nil {
		return fmt.Errorf("load wake models: %w", err)
	}

	monitor := wake.NewMonitor(stream, scorer, wake.Config{
		Sensitivity: a.cfg.Wake.Sensitivity,
		Cooldown:    a.cfg.Wake.Cooldown.Std(),
		TargetRate:  a.cfg.Wake.TargetRate,
	})

	var rec convo.UtteranceRecorder = recorder.New(stream, recorder.Config{
		MaxDuration:     a.cfg.Recorder.MaxDuration.Std(),
		SilenceLimit:    a.cfg.Recorder.SilenceLimit.Std(),
		EnergyThreshold: a.cfg.Recorder.EnergyThreshold,
		PreRoll:         a.cfg.Recorder.PreRoll.Std(),
	})
	if a.cfg.Recorder.DebugDump {
		rec = &dumpingRecorder{inner: rec, dir: os.TempDir()}
	}

	a.orch = convo.New(monitor, rec, a.providers.STT, a.providers.LLM, a.providers.TTS, a.status, convo.Config{
		SystemPrompt:    string(a.cfg.Conversation.SystemPrompt),
		Timeout:         a.cfg.Conversation.Timeout.Std(),
		HistoryCap:      a.cfg.Conversation.HistoryCap,
		PersistFallback: a.cfg.Conversation.PersistFallback,
	})
	return nil
}

// initMetricsServer prepares the Prometheus scrape endpoint when configured.
func (a *App) initMetricsServer() {
	if a.cfg.Server.MetricsAddr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", observe.MetricsHandler())
	a.metricsSrv = &http.Server{
		Addr:              a.cfg.Server.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// warmUpLLM sends a throwaway completion so local backends load the model
// before the first real turn. Failure is logged, never fatal.
func (a *App) warmUpLLM(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	start := time.Now()
	_, err := a.providers.LLM.Chat(ctx, "", []llm.Message{{Role: llm.RoleUser, Content: "hi"}})
	if err != nil {
		slog.Warn("llm warm-up failed", "error", err)
		return
	}
	slog.Info("llm warmed up", "took", time.Since(start))
}

// Run blocks until ctx is cancelled or a subsystem fails fatally.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := a.orch.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if a.metricsSrv != nil {
		g.Go(func() error {
			slog.Info("metrics endpoint listening", "addr", a.metricsSrv.Addr)
			if err := a.metricsSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return a.metricsSrv.Shutdown(shCtx)
		})
	}

	return g.Wait()
}

// Shutdown releases all resources in reverse acquisition order. Safe to call
// more than once.
func (a *App) Shutdown() {
	a.stopOnce.Do(func() {
		for i := len(a.closers) - 1; i >= 0; i-- {
			if err := a.closers[i](); err != nil {
				slog.Warn("shutdown close failed", "error", err)
			}
		}
	})
}

// multiPublisher fans one status update out to several sinks.
type multiPublisher []statusbus.Publisher

func (m multiPublisher) Publish(topic, payload string) {
	for _, p := range m {
		p.Publish(topic, payload)
	}
}

// dumpingRecorder writes every captured utterance to a WAV file for offline
// inspection of what the robot actually heard.
type dumpingRecorder struct {
	inner convo.UtteranceRecorder
	dir   string
	seq   int
}

func (d *dumpingRecorder) Record(ctx context.Context) (*audio.Clip, recorder.Outcome, error) {
	clip, outcome, err := d.inner.Record(ctx)
	if err == nil && clip != nil {
		d.seq++
		path := filepath.Join(d.dir, fmt.Sprintf("wren-utterance-%03d.wav", d.seq))
		if werr := audio.WriteWAVFile(path, clip); werr != nil {
			slog.Warn("debug wav dump failed", "path", path, "error", werr)
		} else {
			slog.Debug("utterance dumped", "path", path, "duration", clip.Duration())
		}
	}
	return clip, outcome, err
}
