// SPDX-License-Identifier: MIT
/*
Package audio provides the sample sources the pitch loop reads from:
- Engine captures a PortAudio input stream into a rolling ring buffer
- FileSource serves windows of a decoded WAV or MP3 file
- ToneSource synthesises a sine wave for demos without hardware

Thread Safety:
- The PortAudio callback only downmixes and writes into the Ring
- CurrentBlock is called from the sampling loop and copies out of the Ring
- Recording state is switched atomically and guarded while writing
*/
package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/gordonklaus/portaudio"

	"voicepitch/internal/config"
	applog "voicepitch/internal/log"
)

var logger = applog.With("AudioEngine")

// ringBlocks is how many callback buffers the ring retains beyond one block.
const ringBlocks = 4

type Engine struct {
	// Core configuration.
	config     *config.Config
	channels   int
	sampleRate float64

	// Audio input handling.
	inputDevice  *portaudio.DeviceInfo
	inputLatency time.Duration
	inputStream  *portaudio.Stream

	// Capture buffers. mono is reused by the callback, block by CurrentBlock.
	mono  []float32
	ring  *Ring
	block []float64

	// Recording state and buffers.
	isRecording int32 // Atomic flag for thread-safe state
	recMu       sync.Mutex
	outputFile  *os.File
	wavEncoder  *wav.Encoder
	sampleBuf   *audio.IntBuffer // Reusable buffer for format conversion
	sampleScale float64          // Full-scale integer value for the bit depth
}

// NewEngine resolves the configured input device and allocates capture buffers.
// PortAudio must already be initialized.
func NewEngine(cfg *config.Config) (*Engine, error) {
	inputDevice, err := InputDevice(cfg.Audio.InputDevice)
	if err != nil {
		return nil, err
	}

	engine := newEngine(cfg)
	engine.inputDevice = inputDevice

	if cfg.Audio.LowLatency {
		engine.inputLatency = inputDevice.DefaultLowInputLatency
	} else {
		engine.inputLatency = inputDevice.DefaultHighInputLatency
	}

	return engine, nil
}

// newEngine builds an Engine without touching PortAudio.
func newEngine(cfg *config.Config) *Engine {
	frames := cfg.Audio.FramesPerBuffer
	block := cfg.Analysis.BlockSize
	return &Engine{
		config:     cfg,
		channels:   cfg.Audio.InputChannels,
		sampleRate: cfg.Audio.SampleRate,
		mono:       make([]float32, frames),
		ring:       NewRing(max(block, ringBlocks*frames)),
		block:      make([]float64, block),
	}
}

// OpenEngine creates an Engine, starts its input stream and, when configured,
// starts recording. The returned Engine must be closed.
func OpenEngine(cfg *config.Config) (*Engine, error) {
	engine, err := NewEngine(cfg)
	if err != nil {
		return nil, err
	}
	if err := engine.StartInputStream(); err != nil {
		return nil, fmt.Errorf("failed to start input stream on %q: %w", engine.inputDevice.Name, err)
	}
	if cfg.Recording.Enabled {
		path := cfg.RecordingPath(time.Now())
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			engine.Close()
			return nil, fmt.Errorf("failed to create recording directory: %w", err)
		}
		if err := engine.StartRecording(path); err != nil {
			engine.Close()
			return nil, fmt.Errorf("failed to start recording: %w", err)
		}
		logger.Infof("recording input to %s", path)
	}
	logger.Infof("capturing from %q at %.0f Hz, %d channel(s)", engine.inputDevice.Name, engine.sampleRate, engine.channels)
	return engine, nil
}

func (e *Engine) StartInputStream() error {
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: e.channels,
			Device:   e.inputDevice,
			Latency:  e.inputLatency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0, // No output device
			Device:   nil,
		},
		FramesPerBuffer: e.config.Audio.FramesPerBuffer,
		SampleRate:      e.sampleRate,
	}

	stream, err := portaudio.OpenStream(params, e.processInputStream)
	if err != nil {
		return err
	}
	e.inputStream = stream

	if err := e.inputStream.Start(); err != nil {
		e.inputStream.Close()
		e.inputStream = nil
		return err
	}

	return nil
}

func (e *Engine) StopInputStream() error {
	if e.inputStream != nil {
		if err := e.inputStream.Stop(); err != nil {
			return err
		}

		if err := e.inputStream.Close(); err != nil {
			return err
		}

		e.inputStream = nil
	}

	return nil
}

// processInputStream is the PortAudio callback. It uses pre-allocated
// buffers only.
func (e *Engine) processInputStream(in []float32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	e.ring.Write(e.downmix(in))

	if atomic.LoadInt32(&e.isRecording) == 1 {
		e.writeRecording(in)
	}
}

// downmix averages interleaved frames into e.mono and returns the filled part.
func (e *Engine) downmix(in []float32) []float32 {
	if e.channels <= 1 {
		return in
	}
	frames := len(in) / e.channels
	if frames > len(e.mono) {
		frames = len(e.mono)
	}
	scale := 1 / float32(e.channels)
	for i := range frames {
		var sum float32
		for _, s := range in[i*e.channels : (i+1)*e.channels] {
			sum += s
		}
		e.mono[i] = sum * scale
	}
	return e.mono[:frames]
}

// CurrentBlock returns the newest block of captured mono samples. The slice is
// reused by the next call.
func (e *Engine) CurrentBlock() []float64 {
	e.ring.Latest(e.block)
	return e.block
}

// SampleRate returns the stream's sample rate in Hz.
func (e *Engine) SampleRate() float64 {
	return e.sampleRate
}

// Close stops recording and the input stream.
func (e *Engine) Close() error {
	if err := e.StopRecording(); err != nil {
		return err
	}

	if err := e.StopInputStream(); err != nil {
		return err
	}

	return nil
}
