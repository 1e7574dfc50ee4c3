// SPDX-License-Identifier: MIT
package pitch

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicepitch/pkg/synth"
)

// scriptedSource returns one scripted block per call and repeats the last one.
type scriptedSource struct {
	blocks     [][]float64
	sampleRate float64
	calls      int
	closed     int
	closeErr   error
}

func (s *scriptedSource) CurrentBlock() []float64 {
	i := min(s.calls, len(s.blocks)-1)
	s.calls++
	return s.blocks[i]
}

func (s *scriptedSource) SampleRate() float64 { return s.sampleRate }

func (s *scriptedSource) Close() error {
	s.closed++
	return s.closeErr
}

// recordingSink records every call and flags overlapping Observe calls.
type recordingSink struct {
	mu       sync.Mutex
	resets   int
	results  []Result
	inside   atomic.Int32
	overlaps atomic.Int32
	onResult func(Result)
}

func (r *recordingSink) Reset() {
	r.mu.Lock()
	r.resets++
	r.mu.Unlock()
}

func (r *recordingSink) Observe(res Result) {
	if r.inside.Add(1) > 1 {
		r.overlaps.Add(1)
	}
	defer r.inside.Add(-1)

	r.mu.Lock()
	r.results = append(r.results, res)
	r.mu.Unlock()

	if r.onResult != nil {
		r.onResult(res)
	}
}

func (r *recordingSink) snapshot() []Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Result(nil), r.results...)
}

func toneBlocks(frequencies ...float64) [][]float64 {
	blocks := make([][]float64, len(frequencies))
	for i, f := range frequencies {
		if f == 0 {
			blocks[i] = make([]float64, testBlockSize)
			continue
		}
		blocks[i] = synth.Sine(testBlockSize, testSampleRate, f, 0.5)
	}
	return blocks
}

func TestStartValidatesArguments(t *testing.T) {
	source := &scriptedSource{blocks: toneBlocks(440), sampleRate: testSampleRate}
	frames := NewFrameScheduler()
	sink := &recordingSink{}

	tests := []struct {
		name    string
		source  Source
		sched   Scheduler
		sink    Sink
		wantErr error
	}{
		{"Nil source", nil, frames, sink, ErrNilSource},
		{"Nil scheduler", source, nil, sink, ErrNilScheduler},
		{"Nil sink", source, frames, nil, ErrNilSink},
		{"Zero sample rate", &scriptedSource{blocks: toneBlocks(440)}, frames, sink, ErrInvalidSampleRate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, err := Start(tt.source, tt.sched, tt.sink)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, session)
		})
	}
	assert.Zero(t, frames.Pending(), "failed starts must not schedule ticks")
}

func TestStartResetsSinkAndSchedulesFirstTick(t *testing.T) {
	source := &scriptedSource{blocks: toneBlocks(440), sampleRate: testSampleRate}
	frames := NewFrameScheduler()
	sink := &recordingSink{}

	session, err := Start(source, frames, sink)
	require.NoError(t, err)

	assert.True(t, session.Analyzing())
	assert.Equal(t, 1, sink.resets)
	assert.Equal(t, 1, frames.Pending())
	assert.Zero(t, source.calls, "no block is pulled before the first frame")
	assert.Empty(t, sink.snapshot())
}

func TestLoopSequencing(t *testing.T) {
	frequencies := []float64{440, 0, 220, 330, 0, 261.63}
	source := &scriptedSource{blocks: toneBlocks(frequencies...), sampleRate: testSampleRate}
	frames := NewFrameScheduler()
	sink := &recordingSink{}

	session, err := Start(source, frames, sink)
	require.NoError(t, err)

	for i := range frequencies {
		require.Equal(t, 1, frames.Frame(), "frame %d", i)
	}

	results := sink.snapshot()
	require.Len(t, results, len(frequencies))
	for i, res := range results {
		assert.Equal(t, uint64(i+1), res.Seq)
		if frequencies[i] == 0 {
			assert.False(t, res.Detected, "tick %d", i)
			assert.Zero(t, res.Frequency, "tick %d", i)
			continue
		}
		assert.True(t, res.Detected, "tick %d", i)
		assert.InEpsilon(t, frequencies[i], res.Frequency, 0.02, "tick %d", i)
	}
	assert.Zero(t, sink.overlaps.Load())
	assert.Equal(t, uint64(len(frequencies)), session.Ticks())

	require.NoError(t, session.Stop())
	for range 100 {
		frames.Frame()
	}
	assert.Len(t, sink.snapshot(), len(frequencies), "no results after Stop")
	assert.Equal(t, len(frequencies), source.calls)
}

func TestStopReleasesSource(t *testing.T) {
	source := &scriptedSource{blocks: toneBlocks(440), sampleRate: testSampleRate}
	frames := NewFrameScheduler()

	session, err := Start(source, frames, &recordingSink{})
	require.NoError(t, err)

	require.NoError(t, session.Stop())
	assert.False(t, session.Analyzing())
	assert.Equal(t, 1, source.closed)
	assert.Zero(t, frames.Pending(), "pending tick is cancelled")
}

func TestStopIsIdempotent(t *testing.T) {
	source := &scriptedSource{blocks: toneBlocks(440), sampleRate: testSampleRate}
	session, err := Start(source, NewFrameScheduler(), &recordingSink{})
	require.NoError(t, err)

	for range 3 {
		assert.NoError(t, session.Stop())
	}
	assert.Equal(t, 1, source.closed)
}

func TestStopReportsCloseError(t *testing.T) {
	closeErr := errors.New("device busy")
	source := &scriptedSource{blocks: toneBlocks(440), sampleRate: testSampleRate, closeErr: closeErr}
	session, err := Start(source, NewFrameScheduler(), &recordingSink{})
	require.NoError(t, err)

	assert.ErrorIs(t, session.Stop(), closeErr)
	assert.NoError(t, session.Stop())
}

func TestStopFromSinkFinishesCurrentTick(t *testing.T) {
	source := &scriptedSource{blocks: toneBlocks(440), sampleRate: testSampleRate}
	frames := NewFrameScheduler()
	sink := &recordingSink{}

	var session *Session
	sink.onResult = func(r Result) {
		if r.Seq == 2 {
			assert.NoError(t, session.Stop())
		}
	}

	var err error
	session, err = Start(source, frames, sink)
	require.NoError(t, err)

	for range 10 {
		frames.Frame()
	}
	assert.Len(t, sink.snapshot(), 2)
	assert.Zero(t, frames.Pending())
}

func TestSessionsAreIndependent(t *testing.T) {
	frames := NewFrameScheduler()
	sinkA := &recordingSink{}
	sinkB := &recordingSink{}

	a, err := Start(&scriptedSource{blocks: toneBlocks(440), sampleRate: testSampleRate}, frames, sinkA)
	require.NoError(t, err)
	b, err := Start(&scriptedSource{blocks: toneBlocks(220), sampleRate: testSampleRate}, frames, sinkB)
	require.NoError(t, err)

	frames.Frame()
	require.NoError(t, a.Stop())
	frames.Frame()
	frames.Frame()

	assert.Len(t, sinkA.snapshot(), 1)
	assert.Len(t, sinkB.snapshot(), 3)
	assert.True(t, b.Analyzing())
	require.NoError(t, b.Stop())
}

func TestLoopWithTimerScheduler(t *testing.T) {
	source := &scriptedSource{blocks: toneBlocks(440), sampleRate: testSampleRate}
	sink := &recordingSink{}
	ticks := make(chan struct{}, 64)
	sink.onResult = func(Result) {
		select {
		case ticks <- struct{}{}:
		default:
		}
	}

	session, err := Start(source, NewTimerScheduler(time.Millisecond), sink)
	require.NoError(t, err)

	for range 5 {
		select {
		case <-ticks:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for tick")
		}
	}
	require.NoError(t, session.Stop())

	// A tick that began before Stop may still land; give it time to finish.
	time.Sleep(10 * time.Millisecond)
	stopped := len(sink.snapshot())
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, sink.snapshot(), stopped, "no results after Stop")
	assert.Zero(t, sink.overlaps.Load())

	for i, res := range sink.snapshot() {
		assert.Equal(t, uint64(i+1), res.Seq)
	}
}

func TestSinks(t *testing.T) {
	var order []string
	first := SinkFunc(func(Result) { order = append(order, "first") })
	second := &recordingSink{onResult: func(Result) { order = append(order, "second") }}

	sink := Sinks(first, nil, second)
	sink.Reset()
	sink.Observe(Result{Seq: 1})

	assert.Equal(t, []string{"first", "second"}, order)
	assert.Equal(t, 1, second.resets)
}
