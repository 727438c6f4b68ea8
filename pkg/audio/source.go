// Package audio defines the frame types and sample-level transforms shared by
// the wren capture pipeline, together with the [Source] interface that device
// adapters implement.
//
// The capture device (pkg/audio/malgo) pushes frames at a fixed real-time
// rate; everything downstream of [Source.ReadFrame] must drain at least as
// fast as frames arrive or accept dropped frames as a logged, non-fatal
// condition. Pure transforms (Decimate, SelectChannel, RMS) are kept free of
// device concerns so the wake monitor and recorder can be tested against
// scripted sources.
package audio

import (
	"context"
	"errors"
)

// ErrSourceClosed is returned by [Source.ReadFrame] once the underlying
// stream has been closed or has failed permanently.
var ErrSourceClosed = errors.New("audio: source closed")

// Source delivers fixed-size frames from a live input stream.
//
// ReadFrame blocks until a full frame is available, the context is cancelled,
// or the source fails. Implementations must return ctx.Err() promptly on
// cancellation and [ErrSourceClosed] (possibly wrapped) after Close.
type Source interface {
	ReadFrame(ctx context.Context) (Frame, error)
	Close() error
}

// Player renders a mono clip through the output device, blocking until
// playback completes or ctx is cancelled.
type Player interface {
	Play(ctx context.Context, clip *Clip) error
}

// channelSource narrows a multi-channel source to one working channel.
type channelSource struct {
	src     Source
	channel int
}

// SelectSource wraps src so that every frame read from it is reduced to the
// single designated channel (mono output). Selecting from an already-mono
// source is a no-op passthrough of the samples.
func SelectSource(src Source, channel int) Source {
	return &channelSource{src: src, channel: channel}
}

func (c *channelSource) ReadFrame(ctx context.Context) (Frame, error) {
	f, err := c.src.ReadFrame(ctx)
	if err != nil {
		return Frame{}, err
	}
	if f.Channels <= 1 {
		return f, nil
	}
	return Frame{
		Samples:    SelectChannel(f.Samples, f.Channels, c.channel),
		SampleRate: f.SampleRate,
		Channels:   1,
	}, nil
}

func (c *channelSource) Close() error { return c.src.Close() }

// downsampleSource decimates mono frames to a lower target rate.
type downsampleSource struct {
	src        Source
	targetRate int
}

// DownsampleSource wraps src so that frames are decimated to targetRate.
// The source rate must be an integer multiple of targetRate; frames already
// at or below the target pass through unchanged.
func DownsampleSource(src Source, targetRate int) Source {
	return &downsampleSource{src: src, targetRate: targetRate}
}

func (d *downsampleSource) ReadFrame(ctx context.Context) (Frame, error) {
	f, err := d.src.ReadFrame(ctx)
	if err != nil {
		return Frame{}, err
	}
	if d.targetRate <= 0 || f.SampleRate <= d.targetRate {
		return f, nil
	}
	return DecimateFrame(f, f.SampleRate/d.targetRate), nil
}

func (d *downsampleSource) Close() error { return d.src.Close() }
