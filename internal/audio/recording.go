// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"math"
	"os"
	"sync/atomic"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// StartRecording writes the raw interleaved input to a WAV file at the
// configured bit depth until StopRecording or Close.
func (e *Engine) StartRecording(filename string) error {
	if atomic.LoadInt32(&e.isRecording) == 1 {
		return fmt.Errorf("already recording")
	}

	bitDepth := e.config.Recording.BitDepth

	file, err := os.Create(filename)
	if err != nil {
		return err
	}

	e.recMu.Lock()
	e.outputFile = file
	e.wavEncoder = wav.NewEncoder(file, int(e.sampleRate), bitDepth, e.channels, 1)
	e.sampleBuf = &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: e.channels,
			SampleRate:  int(e.sampleRate),
		},
		Data:           make([]int, e.config.Audio.FramesPerBuffer*e.channels),
		SourceBitDepth: bitDepth,
	}
	e.sampleScale = float64(int(1)<<(bitDepth-1) - 1)
	e.recMu.Unlock()

	atomic.StoreInt32(&e.isRecording, 1)

	return nil
}

// writeRecording converts float samples in [-1, 1] to integers and encodes
// them. Errors are logged; the capture callback cannot return them.
func (e *Engine) writeRecording(in []float32) {
	e.recMu.Lock()
	defer e.recMu.Unlock()

	if e.wavEncoder == nil {
		return
	}

	if cap(e.sampleBuf.Data) < len(in) {
		e.sampleBuf.Data = make([]int, len(in))
	}
	e.sampleBuf.Data = e.sampleBuf.Data[:len(in)]
	for i, sample := range in {
		e.sampleBuf.Data[i] = pcm(sample, e.sampleScale)
	}

	if err := e.wavEncoder.Write(e.sampleBuf); err != nil {
		logger.Errorf("error writing to WAV file: %v", err)
	}
}

// pcm scales a normalized sample to a signed integer, clipping at full scale.
func pcm(sample float32, scale float64) int {
	v := math.Max(-1, math.Min(1, float64(sample)))
	return int(math.Round(v * scale))
}

func (e *Engine) StopRecording() error {
	if !atomic.CompareAndSwapInt32(&e.isRecording, 1, 0) {
		return nil
	}

	e.recMu.Lock()
	defer e.recMu.Unlock()

	if e.wavEncoder != nil {
		if err := e.wavEncoder.Close(); err != nil {
			return err
		}
		e.wavEncoder = nil
	}

	if e.outputFile != nil {
		if err := e.outputFile.Close(); err != nil {
			return err
		}
		e.outputFile = nil
	}

	return nil
}
