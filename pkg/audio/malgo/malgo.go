// Package malgo adapts the miniaudio library (github.com/gen2brain/malgo)
// to the audio.Source and audio.Player interfaces.
//
// Capture runs on miniaudio's own real-time thread, which pushes fixed-size
// frames into a bounded single-producer/single-consumer queue. The consumer
// (wake monitor or recorder) drains the queue through ReadFrame. When the
// consumer falls behind, the oldest queued frame is dropped and counted;
// overflow is a logged condition, never a crash.
package malgo

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"

	"github.com/wrenrobotics/wren/pkg/audio"
)

// CaptureConfig describes the capture device to open.
type CaptureConfig struct {
	// SampleRate is the device native rate in Hz (typical: 48000).
	SampleRate int

	// Channels is the device channel count. The working channel is selected
	// downstream via audio.SelectSource, not here.
	Channels int

	// FrameSamples is the number of samples per channel in each delivered
	// frame (e.g., 3840 for an 80 ms frame at 48 kHz).
	FrameSamples int

	// QueueDepth is the capacity of the frame queue between the device
	// thread and ReadFrame. Defaults to 16 frames.
	QueueDepth int

	// OnDrop, when set, is called with the number of frames discarded each
	// time the queue overflows. It runs on the device thread and must not
	// block.
	OnDrop func(n int)
}

// Capture is an audio.Source backed by a miniaudio capture device.
type Capture struct {
	ctx    *malgo.AllocatedContext
	device *malgo.Device
	cfg    CaptureConfig

	frames  chan audio.Frame
	dropped atomic.Int64

	// pending accumulates device callback data until a full frame is ready.
	pending []int16

	closeOnce sync.Once
	closeErr  error
}

// NewCapture opens the default capture device and starts streaming.
// The returned Capture delivers frames immediately; call Close to release
// the device.
func NewCapture(cfg CaptureConfig) (*Capture, error) {
	if cfg.SampleRate <= 0 || cfg.Channels <= 0 || cfg.FrameSamples <= 0 {
		return nil, fmt.Errorf("malgo: invalid capture config %+v", cfg)
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = 16
	}

	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		slog.Debug("miniaudio", "msg", message)
	})
	if err != nil {
		return nil, fmt.Errorf("malgo: init context: %w", err)
	}

	c := &Capture{
		ctx:    mctx,
		cfg:    cfg,
		frames: make(chan audio.Frame, cfg.QueueDepth),
	}

	devCfg := malgo.DefaultDeviceConfig(malgo.Capture)
	devCfg.Capture.Format = malgo.FormatS16
	devCfg.Capture.Channels = uint32(cfg.Channels)
	devCfg.SampleRate = uint32(cfg.SampleRate)
	devCfg.PeriodSizeInFrames = uint32(cfg.FrameSamples)

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, frameCount uint32) {
			c.onData(input, frameCount)
		},
	}

	device, err := malgo.InitDevice(mctx.Context, devCfg, callbacks)
	if err != nil {
		mctx.Uninit()
		mctx.Free()
		return nil, fmt.Errorf("malgo: init capture device: %w", err)
	}
	c.device = device

	if err := device.Start(); err != nil {
		device.Uninit()
		mctx.Uninit()
		mctx.Free()
		return nil, fmt.Errorf("malgo: start capture device: %w", err)
	}

	slog.Info("capture device started",
		"sample_rate", cfg.SampleRate,
		"channels", cfg.Channels,
		"frame_samples", cfg.FrameSamples,
	)
	return c, nil
}

// onData runs on the miniaudio device thread. It must never block: when the
// frame queue is full the oldest frame is discarded to make room.
func (c *Capture) onData(input []byte, frameCount uint32) {
	n := int(frameCount) * c.cfg.Channels
	if len(input) < n*2 {
		n = len(input) / 2
	}
	for i := range n {
		c.pending = append(c.pending, int16(uint16(input[i*2])|uint16(input[i*2+1])<<8))
	}

	full := c.cfg.FrameSamples * c.cfg.Channels
	for len(c.pending) >= full {
		samples := make([]int16, full)
		copy(samples, c.pending[:full])
		c.pending = c.pending[full:]

		frame := audio.Frame{
			Samples:    samples,
			SampleRate: c.cfg.SampleRate,
			Channels:   c.cfg.Channels,
		}
		select {
		case c.frames <- frame:
		default:
			// Consumer is behind: drop the oldest frame, keep the newest.
			select {
			case <-c.frames:
			default:
			}
			select {
			case c.frames <- frame:
			default:
			}
			if c.cfg.OnDrop != nil {
				c.cfg.OnDrop(1)
			}
			if c.dropped.Add(1)%100 == 1 {
				slog.Warn("capture queue overflow, dropping frames", "dropped_total", c.dropped.Load())
			}
		}
	}
}

// ReadFrame implements audio.Source.
func (c *Capture) ReadFrame(ctx context.Context) (audio.Frame, error) {
	select {
	case f, ok := <-c.frames:
		if !ok {
			return audio.Frame{}, audio.ErrSourceClosed
		}
		return f, nil
	case <-ctx.Done():
		return audio.Frame{}, ctx.Err()
	}
}

// Dropped returns the total number of frames discarded due to overflow.
func (c *Capture) Dropped() int64 { return c.dropped.Load() }

// Close stops the device and releases the miniaudio context. Safe to call
// more than once.
func (c *Capture) Close() error {
	c.closeOnce.Do(func() {
		if c.device != nil {
			c.device.Uninit()
		}
		close(c.frames)
		if c.ctx != nil {
			if err := c.ctx.Uninit(); err != nil {
				c.closeErr = fmt.Errorf("malgo: uninit context: %w", err)
			}
			c.ctx.Free()
		}
		if n := c.dropped.Load(); n > 0 {
			slog.Info("capture device closed", "dropped_frames", n)
		}
	})
	return c.closeErr
}
