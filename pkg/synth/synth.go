// SPDX-License-Identifier: MIT
//
// Package synth generates deterministic test signals as normalized float64 samples.
// The generators are used by tests across the module and by the synthetic tone
// source, so every generator is reproducible for a given set of arguments.
package synth

import (
	"math"
	"math/rand/v2"
)

// Sine returns size samples of a sine wave at frequency Hz with peak amplitude amp.
func Sine(size int, sampleRate, frequency, amp float64) []float64 {
	buffer := make([]float64, size)
	SineInto(buffer, 0, sampleRate, frequency, amp)
	return buffer
}

// SineInto fills dst with a sine wave starting at sample index start, so that
// consecutive calls with advancing start produce a continuous signal.
func SineInto(dst []float64, start int64, sampleRate, frequency, amp float64) {
	for i := range dst {
		t := float64(start+int64(i)) / sampleRate
		dst[i] = amp * math.Sin(2*math.Pi*frequency*t)
	}
}

// Harmonic returns a tone with its first three harmonics weighted 0.5, 0.3 and 0.2,
// scaled so the peak stays within amp.
func Harmonic(size int, sampleRate, fundamental, amp float64) []float64 {
	buffer := make([]float64, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		signal := math.Sin(2*math.Pi*fundamental*t)*0.5 +
			math.Sin(2*math.Pi*2*fundamental*t)*0.3 +
			math.Sin(2*math.Pi*3*fundamental*t)*0.2
		buffer[i] = signal * amp
	}
	return buffer
}

// Noise returns uniform white noise in [-amp, amp) from a seeded generator.
func Noise(size int, amp float64, seed uint64) []float64 {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	buffer := make([]float64, size)
	for i := range buffer {
		buffer[i] = (rng.Float64()*2 - 1) * amp
	}
	return buffer
}

// RMS returns the root-mean-square level of buffer, 0 for an empty buffer.
func RMS(buffer []float64) float64 {
	if len(buffer) == 0 {
		return 0
	}
	var sumSquare float64
	for _, v := range buffer {
		sumSquare += v * v
	}
	return math.Sqrt(sumSquare / float64(len(buffer)))
}

// ToPCM16 scales normalized samples to signed 16-bit integers, clipping at full scale.
func ToPCM16(buffer []float64) []int {
	out := make([]int, len(buffer))
	for i, v := range buffer {
		v = math.Max(-1, math.Min(1, v))
		out[i] = int(math.Round(v * math.MaxInt16))
	}
	return out
}
