// SPDX-License-Identifier: MIT
package audio

import (
	"sync"

	"voicepitch/pkg/bitint"
)

// Ring keeps the most recent mono samples written by the capture callback.
// Capacity is rounded up to a power of two so positions wrap with a mask.
type Ring struct {
	mu      sync.Mutex
	buf     []float64
	mask    int
	pos     int    // next write index
	written uint64 // total samples ever written
}

// NewRing returns a Ring holding at least capacity samples.
func NewRing(capacity int) *Ring {
	size := bitint.NextPowerOfTwo(capacity)
	return &Ring{
		buf:  make([]float64, size),
		mask: size - 1,
	}
}

// Cap returns the number of samples the ring retains.
func (r *Ring) Cap() int {
	return len(r.buf)
}

// Written returns how many samples have been written since creation.
func (r *Ring) Written() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.written
}

// Write appends samples, overwriting the oldest once the ring is full.
func (r *Ring) Write(samples []float32) {
	r.mu.Lock()
	for _, s := range samples {
		r.buf[r.pos] = float64(s)
		r.pos = (r.pos + 1) & r.mask
	}
	r.written += uint64(len(samples))
	r.mu.Unlock()
}

// Latest fills dst with the newest len(dst) samples, oldest first. When fewer
// samples are available the front of dst is zero-filled. It returns the
// number of real samples copied.
func (r *Ring) Latest(dst []float64) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(dst)
	if n > len(r.buf) {
		n = len(r.buf)
	}
	if r.written < uint64(n) {
		n = int(r.written)
	}

	pad := len(dst) - n
	clear(dst[:pad])

	start := (r.pos - n) & r.mask
	for i := range n {
		dst[pad+i] = r.buf[(start+i)&r.mask]
	}
	return n
}

// Reset discards all samples.
func (r *Ring) Reset() {
	r.mu.Lock()
	clear(r.buf)
	r.pos = 0
	r.written = 0
	r.mu.Unlock()
}
