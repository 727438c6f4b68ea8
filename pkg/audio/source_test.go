package audio_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wrenrobotics/wren/pkg/audio"
	"github.com/wrenrobotics/wren/pkg/audio/mock"
)

func TestSelectSource_NarrowsToWorkingChannel(t *testing.T) {
	t.Parallel()

	src := &mock.Source{Frames: []audio.Frame{
		{Samples: []int16{10, 20, 11, 21, 12, 22}, SampleRate: 48000, Channels: 2},
	}}
	mono := audio.SelectSource(src, 1)

	f, err := mono.ReadFrame(context.Background())
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if f.Channels != 1 {
		t.Errorf("Channels = %d, want 1", f.Channels)
	}
	want := []int16{20, 21, 22}
	if len(f.Samples) != len(want) {
		t.Fatalf("Samples = %v, want %v", f.Samples, want)
	}
	for i := range want {
		if f.Samples[i] != want[i] {
			t.Errorf("sample[%d] = %d, want %d", i, f.Samples[i], want[i])
		}
	}
}

func TestSelectSource_MonoPassthrough(t *testing.T) {
	t.Parallel()

	src := &mock.Source{Frames: []audio.Frame{
		{Samples: []int16{1, 2, 3}, SampleRate: 16000, Channels: 1},
	}}
	mono := audio.SelectSource(src, 0)

	f, err := mono.ReadFrame(context.Background())
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if len(f.Samples) != 3 {
		t.Errorf("mono frame should pass through unchanged, got %v", f.Samples)
	}
}

func TestDownsampleSource(t *testing.T) {
	t.Parallel()

	src := &mock.Source{Frames: []audio.Frame{
		{Samples: make([]int16, 3840), SampleRate: 48000, Channels: 1},
	}}
	down := audio.DownsampleSource(src, 16000)

	f, err := down.ReadFrame(context.Background())
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if f.SampleRate != 16000 {
		t.Errorf("SampleRate = %d, want 16000", f.SampleRate)
	}
	if len(f.Samples) != 1280 {
		t.Errorf("len(Samples) = %d, want 1280", len(f.Samples))
	}
}

func TestDownsampleSource_AtTargetPassthrough(t *testing.T) {
	t.Parallel()

	src := &mock.Source{Frames: []audio.Frame{
		{Samples: make([]int16, 1280), SampleRate: 16000, Channels: 1},
	}}
	down := audio.DownsampleSource(src, 16000)

	f, err := down.ReadFrame(context.Background())
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if len(f.Samples) != 1280 || f.SampleRate != 16000 {
		t.Errorf("frame at target rate should pass through, got %d samples at %d Hz", len(f.Samples), f.SampleRate)
	}
}

func TestSourceWrappers_PropagateErrors(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("device gone")
	src := &mock.Source{FinalErr: wantErr}
	wrapped := audio.DownsampleSource(audio.SelectSource(src, 0), 16000)

	if _, err := wrapped.ReadFrame(context.Background()); !errors.Is(err, wantErr) {
		t.Errorf("ReadFrame error = %v, want %v", err, wantErr)
	}
	if err := wrapped.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if !src.Closed {
		t.Error("Close should reach the underlying source")
	}
}

func TestMockSource_BlocksWhenExhausted(t *testing.T) {
	t.Parallel()

	src := &mock.Source{}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := src.ReadFrame(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("exhausted source should block until ctx ends, got %v", err)
	}
}
