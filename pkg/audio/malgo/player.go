package malgo

import (
	"context"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/wrenrobotics/wren/pkg/audio"
)

// Player renders mono clips through the default playback device. Each Play
// call opens a short-lived playback device, streams the clip, and waits for
// the final sample before returning, matching the blocking contract of
// audio.Player.
type Player struct {
	// SampleRate is the playback device rate. Clips at other rates are
	// resampled before rendering.
	SampleRate int

	mu   sync.Mutex
	mctx *malgo.AllocatedContext
}

// NewPlayer creates a player rendering at sampleRate Hz.
func NewPlayer(sampleRate int) (*Player, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("malgo: invalid playback sample rate %d", sampleRate)
	}
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("malgo: init playback context: %w", err)
	}
	return &Player{SampleRate: sampleRate, mctx: mctx}, nil
}

// Play implements audio.Player. Playback is serialised: concurrent calls
// queue behind the mutex so speech segments never overlap.
func (p *Player) Play(ctx context.Context, clip *audio.Clip) error {
	if clip == nil || len(clip.Samples) == 0 {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	samples := clip.Samples
	if clip.SampleRate != p.SampleRate {
		samples = audio.ResampleMono(samples, clip.SampleRate, p.SampleRate)
	}
	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		pcm[i*2] = byte(s)
		pcm[i*2+1] = byte(uint16(s) >> 8)
	}

	devCfg := malgo.DefaultDeviceConfig(malgo.Playback)
	devCfg.Playback.Format = malgo.FormatS16
	devCfg.Playback.Channels = 1
	devCfg.SampleRate = uint32(p.SampleRate)

	done := make(chan struct{})
	var offset int
	callbacks := malgo.DeviceCallbacks{
		Data: func(output, _ []byte, frameCount uint32) {
			n := copy(output, pcm[offset:])
			offset += n
			if offset >= len(pcm) {
				select {
				case <-done:
				default:
					close(done)
				}
			}
		},
	}

	device, err := malgo.InitDevice(p.mctx.Context, devCfg, callbacks)
	if err != nil {
		return fmt.Errorf("malgo: init playback device: %w", err)
	}
	defer device.Uninit()

	if err := device.Start(); err != nil {
		return fmt.Errorf("malgo: start playback device: %w", err)
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close releases the playback context.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.mctx != nil {
		err := p.mctx.Uninit()
		p.mctx.Free()
		p.mctx = nil
		if err != nil {
			return fmt.Errorf("malgo: uninit playback context: %w", err)
		}
	}
	return nil
}
