package audio

// Decimate reduces the sample rate of a mono block by keeping every
// factor-th sample and dropping the rest. This matches the behaviour the
// wake-word scorer was trained against; no anti-alias filtering is applied.
// A factor ≤ 1 returns the input unchanged.
func Decimate(samples []int16, factor int) []int16 {
	if factor <= 1 || len(samples) == 0 {
		return samples
	}
	out := make([]int16, 0, (len(samples)+factor-1)/factor)
	for i := 0; i < len(samples); i += factor {
		out = append(out, samples[i])
	}
	return out
}

// DecimateFrame applies Decimate to a mono frame and stamps the new rate.
// The frame must already be mono; use SelectChannel first for multi-channel
// input.
func DecimateFrame(f Frame, factor int) Frame {
	if factor <= 1 {
		return f
	}
	return Frame{
		Samples:    Decimate(f.Samples, factor),
		SampleRate: f.SampleRate / factor,
		Channels:   1,
	}
}

// ResampleMono resamples 16-bit mono samples from srcRate to dstRate using
// linear interpolation. Used on the playback path, where synthesis output
// (typically 22050 Hz) must be brought up to the device rate. If srcRate ==
// dstRate the input is returned unchanged.
func ResampleMono(samples []int16, srcRate, dstRate int) []int16 {
	if srcRate <= 0 || dstRate <= 0 {
		return samples
	}
	if srcRate == dstRate || len(samples) < 2 {
		return samples
	}
	dstLen := int(int64(len(samples)) * int64(dstRate) / int64(srcRate))
	if dstLen == 0 {
		return nil
	}

	out := make([]int16, dstLen)
	ratio := float64(srcRate) / float64(dstRate)

	for i := range dstLen {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := srcPos - float64(srcIdx)

		s0 := samples[srcIdx]
		s1 := s0
		if srcIdx+1 < len(samples) {
			s1 = samples[srcIdx+1]
		}
		out[i] = int16(float64(s0)*(1-frac) + float64(s1)*frac)
	}
	return out
}

// SelectChannel extracts a single channel from interleaved multi-channel
// samples. On the robot's mic array channel 0 carries the beamformed signal.
// Passing channels ≤ 1 returns the input unchanged; an out-of-range index is
// clamped to the last channel.
func SelectChannel(samples []int16, channels, index int) []int16 {
	if channels <= 1 {
		return samples
	}
	if index < 0 {
		index = 0
	}
	if index >= channels {
		index = channels - 1
	}
	n := len(samples) / channels
	out := make([]int16, n)
	for i := range n {
		out[i] = samples[i*channels+index]
	}
	return out
}
