// SPDX-License-Identifier: MIT
package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicepitch/internal/pitch"
	"voicepitch/pkg/synth"
)

func TestToneSourceIsContinuous(t *testing.T) {
	src := NewToneSource(8000, 100, 0.5, 64, 16)
	first := append([]float64(nil), src.CurrentBlock()...)
	second := src.CurrentBlock()

	// The second window starts hop samples after the first.
	assert.InDeltaSlice(t, first[16:], second[:48], 1e-12)

	want := synth.Sine(80, 8000, 100, 0.5)
	assert.InDeltaSlice(t, want[16:80], second, 1e-12)
}

func TestToneSourceEstimates(t *testing.T) {
	src := NewToneSource(44100, 330, 0.3, 2048, 735)
	assert.Equal(t, 330.0, src.Frequency())

	for range 5 {
		hz, ok := pitch.Estimate(src.CurrentBlock(), src.SampleRate())
		require.True(t, ok)
		assert.InEpsilon(t, 330, hz, 0.02)
	}
}
