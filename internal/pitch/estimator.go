// SPDX-License-Identifier: MIT
/*
Package pitch estimates the fundamental frequency of a live audio signal.

The package has two parts:
  - Estimate, a pure autocorrelation pitch detector over one block of samples
  - Session, a sequential sampling loop that pulls a block from a Source on every
    Scheduler tick, runs Estimate and hands the Result to a Sink

Thread Safety:
  - Estimate holds no state and may be called from any goroutine
  - A Session never runs two ticks at once; the next tick is scheduled only after
    the current one, including the sink, has returned
*/
package pitch

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

const (
	// SilenceThreshold is the RMS level below which a block is treated as silence.
	SilenceThreshold = 0.01

	// CorrelationThreshold is the minimum normalized correlation a lag must reach
	// to count as a period candidate.
	CorrelationThreshold = 0.9
)

// Estimate returns the fundamental frequency of buffer in Hz, or false when no
// reliable pitch is present. The buffer is only read.
//
// The scan compares the first half of the block against itself shifted by each
// candidate lag and stops at the first correlation peak that rises above
// CorrelationThreshold, so the shortest strong period wins over a later, possibly
// stronger, multiple of it.
//
// Cost is quadratic in len(buffer).
func Estimate(buffer []float64, sampleRate float64) (float64, bool) {
	size := len(buffer)
	if size == 0 || sampleRate <= 0 {
		return 0, false
	}

	rms := math.Sqrt(floats.Dot(buffer, buffer) / float64(size))
	if rms < SilenceThreshold {
		return 0, false
	}

	maxLag := size / 2
	bestOffset := -1
	bestCorrelation := 0.0
	foundGoodCorrelation := false
	lastCorrelation := 1.0

	for offset := range maxLag {
		correlation := 1 - sumAbsDiff(buffer[:maxLag], buffer[offset:offset+maxLag])/float64(maxLag)

		if correlation > CorrelationThreshold && correlation > lastCorrelation {
			foundGoodCorrelation = true
			if correlation > bestCorrelation {
				bestCorrelation = correlation
				bestOffset = offset
			}
		} else if foundGoodCorrelation {
			return frequencyFor(sampleRate, bestOffset)
		}

		lastCorrelation = correlation
	}

	if bestCorrelation > CorrelationThreshold {
		return frequencyFor(sampleRate, bestOffset)
	}
	return 0, false
}

// sumAbsDiff returns the sum of |a[i] - b[i]|. Both slices have the same length.
func sumAbsDiff(a, b []float64) float64 {
	var sum float64
	for i, v := range a {
		sum += math.Abs(v - b[i])
	}
	return sum
}

// frequencyFor converts a lag in samples to Hz. Lag 0 is a trivial self match.
func frequencyFor(sampleRate float64, offset int) (float64, bool) {
	if offset <= 0 {
		return 0, false
	}
	return sampleRate / float64(offset), true
}
