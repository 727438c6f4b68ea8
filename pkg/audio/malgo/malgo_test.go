package malgo

import (
	"testing"

	"github.com/wrenrobotics/wren/pkg/audio"
)

// pcmBytes lays out int16 samples as S16LE, the way the device callback
// receives them.
func pcmBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		out[i*2] = byte(s)
		out[i*2+1] = byte(uint16(s) >> 8)
	}
	return out
}

func TestOnData_AccumulatesIntoFrames(t *testing.T) {
	t.Parallel()

	c := &Capture{
		cfg:    CaptureConfig{SampleRate: 16000, Channels: 1, FrameSamples: 4},
		frames: make(chan audio.Frame, 4),
	}

	// Deliver six samples in two callbacks; only one full frame is ready,
	// the remainder stays pending for the next callback.
	c.onData(pcmBytes([]int16{1, 2, 3}), 3)
	if len(c.frames) != 0 {
		t.Fatalf("frame emitted from a partial fill")
	}
	c.onData(pcmBytes([]int16{4, 5, 6}), 3)
	if len(c.frames) != 1 {
		t.Fatalf("queued frames = %d, want 1", len(c.frames))
	}

	f := <-c.frames
	want := []int16{1, 2, 3, 4}
	for i, w := range want {
		if f.Samples[i] != w {
			t.Errorf("frame sample[%d] = %d, want %d", i, f.Samples[i], w)
		}
	}
	if f.SampleRate != 16000 || f.Channels != 1 {
		t.Errorf("frame rate/channels = %d/%d", f.SampleRate, f.Channels)
	}
}

func TestOnData_OverflowDropsOldestAndReports(t *testing.T) {
	t.Parallel()

	var drops int
	c := &Capture{
		cfg: CaptureConfig{
			SampleRate:   16000,
			Channels:     1,
			FrameSamples: 4,
			OnDrop:       func(n int) { drops += n },
		},
		frames: make(chan audio.Frame, 1),
	}

	// Three full frames against a depth-1 queue: two overflows, and the
	// newest frame is the one that survives.
	samples := make([]int16, 12)
	for i := range samples {
		samples[i] = int16(i)
	}
	c.onData(pcmBytes(samples), 12)

	if drops != 2 {
		t.Errorf("OnDrop total = %d, want 2", drops)
	}
	if c.Dropped() != 2 {
		t.Errorf("Dropped() = %d, want 2", c.Dropped())
	}
	f := <-c.frames
	if f.Samples[0] != 8 {
		t.Errorf("surviving frame starts at sample %d, want 8 (newest kept)", f.Samples[0])
	}
}
