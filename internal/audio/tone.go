// SPDX-License-Identifier: MIT
package audio

import (
	"sync"

	"voicepitch/pkg/synth"
)

// ToneSource produces a continuous sine wave. Each CurrentBlock call advances
// the phase by hop samples, as a live source would between frames.
type ToneSource struct {
	mu         sync.Mutex
	sampleRate float64
	frequency  float64
	amplitude  float64
	block      []float64
	hop        int
	pos        int64
}

// NewToneSource returns a tone at frequency Hz. A hop <= 0 advances by a
// whole block.
func NewToneSource(sampleRate, frequency, amplitude float64, blockSize, hop int) *ToneSource {
	if hop <= 0 {
		hop = blockSize
	}
	return &ToneSource{
		sampleRate: sampleRate,
		frequency:  frequency,
		amplitude:  amplitude,
		block:      make([]float64, blockSize),
		hop:        hop,
	}
}

func (t *ToneSource) CurrentBlock() []float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	synth.SineInto(t.block, t.pos, t.sampleRate, t.frequency, t.amplitude)
	t.pos += int64(t.hop)
	return t.block
}

func (t *ToneSource) SampleRate() float64 {
	return t.sampleRate
}

// Frequency returns the generated frequency in Hz.
func (t *ToneSource) Frequency() float64 {
	return t.frequency
}
