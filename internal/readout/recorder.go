// SPDX-License-Identifier: MIT
package readout

import (
	"sync"

	"voicepitch/internal/pitch"
)

// DefaultHistory is roughly half an hour of results at 60 frames per second.
const DefaultHistory = 1 << 17

// Recorder is a pitch.Sink that keeps the most recent results of a session
// for a Summary. Reset clears the history.
type Recorder struct {
	mu      sync.Mutex
	limit   int
	results []pitch.Result
}

// NewRecorder keeps at most limit results; limit <= 0 uses DefaultHistory.
func NewRecorder(limit int) *Recorder {
	if limit <= 0 {
		limit = DefaultHistory
	}
	return &Recorder{limit: limit}
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	r.results = r.results[:0]
	r.mu.Unlock()
}

func (r *Recorder) Observe(res pitch.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Compact once the slice holds two windows, keeping the newest.
	if len(r.results) == 2*r.limit {
		n := copy(r.results, r.results[r.limit:])
		r.results = r.results[:n]
	}
	r.results = append(r.results, res)
}

// Results returns a copy of the retained results, at most limit of them,
// oldest first.
func (r *Recorder) Results() []pitch.Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := max(len(r.results)-r.limit, 0)
	out := make([]pitch.Result, len(r.results)-start)
	copy(out, r.results[start:])
	return out
}

// Summary summarizes the retained results.
func (r *Recorder) Summary() Summary {
	return Summarize(r.Results())
}
