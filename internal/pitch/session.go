// SPDX-License-Identifier: MIT
package pitch

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

var (
	ErrNilSource         = errors.New("pitch: source cannot be nil")
	ErrNilScheduler      = errors.New("pitch: scheduler cannot be nil")
	ErrNilSink           = errors.New("pitch: sink cannot be nil")
	ErrInvalidSampleRate = errors.New("pitch: sample rate must be positive")
)

// Source provides the most recent block of mono samples. The returned slice may be
// reused by the next call, so it is only valid until then. A Source that also
// implements io.Closer is closed when the session stops.
type Source interface {
	CurrentBlock() []float64
	SampleRate() float64
}

// Result is the outcome of one tick.
type Result struct {
	Seq       uint64    // 1 for the first tick of a session.
	Time      time.Time // When the estimate was produced.
	Frequency float64   // Hz, 0 when Detected is false.
	Detected  bool      // False when no reliable pitch was found.
}

// Sink consumes results. Reset is called once when a session starts, Observe once
// per tick, both from the goroutine running the session's ticks.
type Sink interface {
	Reset()
	Observe(r Result)
}

// Session is one run of the sampling loop. It owns its source until Stop.
type Session struct {
	scheduler  Scheduler
	sink       Sink
	sampleRate float64

	mu         sync.Mutex
	source     Source
	analyzing  bool
	pending    Handle
	hasPending bool
	seq        uint64
}

// Start validates its arguments, notifies sink that a session began and schedules
// the first tick.
func Start(source Source, scheduler Scheduler, sink Sink) (*Session, error) {
	if source == nil {
		return nil, ErrNilSource
	}
	if scheduler == nil {
		return nil, ErrNilScheduler
	}
	if sink == nil {
		return nil, ErrNilSink
	}

	sampleRate := source.SampleRate()
	if !(sampleRate > 0) {
		return nil, fmt.Errorf("%w, got %v", ErrInvalidSampleRate, sampleRate)
	}

	s := &Session{
		scheduler:  scheduler,
		sink:       sink,
		sampleRate: sampleRate,
		source:     source,
		analyzing:  true,
	}

	sink.Reset()

	s.mu.Lock()
	s.schedule()
	s.mu.Unlock()

	return s, nil
}

// schedule arms the next tick. Callers hold s.mu.
func (s *Session) schedule() {
	s.pending = s.scheduler.ScheduleNext(s.tick)
	s.hasPending = true
}

// tick runs one fetch, estimate, observe cycle and then schedules the next one.
func (s *Session) tick() {
	s.mu.Lock()
	if !s.analyzing {
		s.mu.Unlock()
		return
	}
	s.hasPending = false
	source := s.source
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	hz, ok := Estimate(source.CurrentBlock(), s.sampleRate)
	s.sink.Observe(Result{
		Seq:       seq,
		Time:      time.Now(),
		Frequency: hz,
		Detected:  ok,
	})

	s.mu.Lock()
	if s.analyzing {
		s.schedule()
	}
	s.mu.Unlock()
}

// Stop halts the loop, cancels the pending tick and releases the source, closing it
// if it is an io.Closer. A tick already running completes, but no further tick is
// scheduled. Stop is safe to call more than once.
func (s *Session) Stop() error {
	s.mu.Lock()
	if !s.analyzing {
		s.mu.Unlock()
		return nil
	}
	s.analyzing = false
	if s.hasPending {
		s.scheduler.Cancel(s.pending)
		s.hasPending = false
	}
	source := s.source
	s.source = nil
	s.mu.Unlock()

	if closer, ok := source.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			return fmt.Errorf("pitch: failed to close source: %w", err)
		}
	}
	return nil
}

// Analyzing reports whether the session is still scheduling ticks.
func (s *Session) Analyzing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.analyzing
}

// Ticks returns the number of ticks that have started.
func (s *Session) Ticks() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// SampleRate returns the sample rate fixed at Start.
func (s *Session) SampleRate() float64 {
	return s.sampleRate
}

type multiSink []Sink

func (m multiSink) Reset() {
	for _, sink := range m {
		sink.Reset()
	}
}

func (m multiSink) Observe(r Result) {
	for _, sink := range m {
		sink.Observe(r)
	}
}

// Sinks fans results out to every non-nil sink, in argument order.
func Sinks(sinks ...Sink) Sink {
	out := make(multiSink, 0, len(sinks))
	for _, sink := range sinks {
		if sink != nil {
			out = append(out, sink)
		}
	}
	return out
}

// SinkFunc adapts a function to a Sink with a no-op Reset.
type SinkFunc func(Result)

func (f SinkFunc) Reset() {}

func (f SinkFunc) Observe(r Result) { f(r) }
