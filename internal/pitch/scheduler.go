// SPDX-License-Identifier: MIT
package pitch

import (
	"sync"
	"time"
)

// DefaultTimerInterval is used by NewTimerScheduler when the interval is not positive.
const DefaultTimerInterval = 16 * time.Millisecond

// Handle identifies one scheduled callback. The zero Handle is never issued.
type Handle uint64

// Scheduler runs a callback once at the next scheduling opportunity.
// Cancel must be a no-op for unknown or already-run handles.
type Scheduler interface {
	ScheduleNext(callback func()) Handle
	Cancel(h Handle)
}

// FrameScheduler defers callbacks to the next display frame. The render loop owns
// the cadence and calls Frame once per refresh, so callbacks run on the render
// loop's goroutine.
type FrameScheduler struct {
	mu      sync.Mutex
	next    Handle
	pending map[Handle]func()
	order   []Handle
}

// NewFrameScheduler returns an empty FrameScheduler.
func NewFrameScheduler() *FrameScheduler {
	return &FrameScheduler{pending: make(map[Handle]func())}
}

// ScheduleNext queues callback for the next call to Frame.
func (f *FrameScheduler) ScheduleNext(callback func()) Handle {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.next++
	f.pending[f.next] = callback
	f.order = append(f.order, f.next)
	return f.next
}

// Cancel drops a queued callback.
func (f *FrameScheduler) Cancel(h Handle) {
	f.mu.Lock()
	delete(f.pending, h)
	f.mu.Unlock()
}

// Frame runs, in scheduling order, every callback queued before it was called.
// Callbacks scheduled while the frame runs wait for the next frame. It returns
// the number of callbacks run.
func (f *FrameScheduler) Frame() int {
	f.mu.Lock()
	order := f.order
	f.order = nil
	f.mu.Unlock()

	ran := 0
	for _, h := range order {
		// Look the handle up again: an earlier callback in this frame may have
		// cancelled it.
		f.mu.Lock()
		callback, ok := f.pending[h]
		delete(f.pending, h)
		f.mu.Unlock()

		if ok {
			callback()
			ran++
		}
	}
	return ran
}

// Pending returns the number of callbacks waiting for a frame.
func (f *FrameScheduler) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}

// TimerScheduler runs each callback after a fixed interval on a timer goroutine.
type TimerScheduler struct {
	interval time.Duration

	mu     sync.Mutex
	next   Handle
	timers map[Handle]*time.Timer
}

// NewTimerScheduler returns a TimerScheduler. Intervals <= 0 fall back to
// DefaultTimerInterval.
func NewTimerScheduler(interval time.Duration) *TimerScheduler {
	if interval <= 0 {
		interval = DefaultTimerInterval
	}
	return &TimerScheduler{
		interval: interval,
		timers:   make(map[Handle]*time.Timer),
	}
}

// Interval returns the delay between scheduling and running a callback.
func (t *TimerScheduler) Interval() time.Duration {
	return t.interval
}

// ScheduleNext arms a timer for callback.
func (t *TimerScheduler) ScheduleNext(callback func()) Handle {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.next++
	h := t.next
	t.timers[h] = time.AfterFunc(t.interval, func() {
		t.mu.Lock()
		_, live := t.timers[h]
		delete(t.timers, h)
		t.mu.Unlock()

		if live {
			callback()
		}
	})
	return h
}

// Cancel stops the timer behind h if it has not fired yet.
func (t *TimerScheduler) Cancel(h Handle) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if timer, ok := t.timers[h]; ok {
		timer.Stop()
		delete(t.timers, h)
	}
}

// Compile-time checks for interface implementations.
var _ Scheduler = (*FrameScheduler)(nil)
var _ Scheduler = (*TimerScheduler)(nil)
