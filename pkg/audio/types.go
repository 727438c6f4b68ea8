package audio

import "time"

// Frame represents a single block of audio samples flowing through the
// pipeline. Frames are the atomic unit of audio transport: captured from the
// input device, decimated for the wake-word scorer, and accumulated by the
// utterance recorder.
//
// A Frame is immutable once produced. Stages must not modify Samples in
// place; transforms return new frames.
type Frame struct {
	// Samples is interleaved signed 16-bit PCM. For a multi-channel frame
	// the layout is [ch0, ch1, …, ch0, ch1, …].
	Samples []int16

	// SampleRate in Hz (e.g., 48000 for the mic array, 16000 for the
	// wake-word scorer).
	SampleRate int

	// Channels is the number of interleaved channels. 1 for mono.
	Channels int
}

// Duration returns the wall-clock length of the frame.
func (f Frame) Duration() time.Duration {
	if f.SampleRate <= 0 || f.Channels <= 0 {
		return 0
	}
	perChannel := len(f.Samples) / f.Channels
	return time.Duration(perChannel) * time.Second / time.Duration(f.SampleRate)
}

// Clip is a complete captured audio segment: one utterance from detected
// onset to detected end-of-speech, always mono.
type Clip struct {
	Samples    []int16
	SampleRate int
}

// Duration returns the wall-clock length of the clip.
func (c *Clip) Duration() time.Duration {
	if c == nil || c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(c.Samples)) * time.Second / time.Duration(c.SampleRate)
}
