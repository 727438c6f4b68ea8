package audio

import "math"

// RMS returns the root-mean-square energy of a block of 16-bit samples.
// The result is expressed in the same units as PCM sample values (0–32767).
// Returns 0 for an empty block.
func RMS(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}
