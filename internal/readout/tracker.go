// SPDX-License-Identifier: MIT
//
// Package readout turns pitch results into what a person looks at: the current
// estimate, the running maximum since the session started, note names and
// summaries of a finished analysis.
package readout

import (
	"sync"

	"voicepitch/internal/pitch"
)

// Tracker keeps the latest estimate and the running maximum of a session.
// It is a pitch.Sink; Reset is called by the session on start.
type Tracker struct {
	mu       sync.RWMutex
	current  float64
	detected bool
	max      float64
	ticks    uint64
	hits     uint64
}

// NewTracker returns a Tracker with a zero running maximum.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Reset clears the running maximum and counters.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.current, t.detected, t.max = 0, false, 0
	t.ticks, t.hits = 0, 0
}

// Observe records r. Only detected estimates can raise the maximum.
func (t *Tracker) Observe(r pitch.Result) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ticks++
	t.current = r.Frequency
	t.detected = r.Detected
	if !r.Detected {
		t.current = 0
		return
	}

	t.hits++
	if r.Frequency > t.max {
		t.max = r.Frequency
	}
}

// Current returns the latest estimate and whether it was a detection.
func (t *Tracker) Current() (float64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current, t.detected
}

// Max returns the largest detected frequency since the last Reset, or 0.
func (t *Tracker) Max() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.max
}

// Counts returns the number of observed ticks and how many of them detected a pitch.
func (t *Tracker) Counts() (ticks, detected uint64) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ticks, t.hits
}

var _ pitch.Sink = (*Tracker)(nil)
