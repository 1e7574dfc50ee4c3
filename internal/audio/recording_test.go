// SPDX-License-Identifier: MIT
package audio

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"voicepitch/pkg/synth"
)

func TestRecordingStartStopHotPath(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "test_recording.wav")
	engine := newTestEngine(2)

	if err := engine.StartRecording(filename); err != nil {
		t.Fatalf("Failed to start recording: %v", err)
	}

	if atomic.LoadInt32(&engine.isRecording) != 1 {
		t.Error("Engine should be in recording state")
	}

	if engine.outputFile == nil || engine.wavEncoder == nil || engine.sampleBuf == nil {
		t.Fatal("Recording resources should be initialized")
	}

	if engine.sampleBuf.Format.NumChannels != 2 {
		t.Errorf("Buffer channels mismatch: got %d, want 2", engine.sampleBuf.Format.NumChannels)
	}

	if engine.sampleBuf.Format.SampleRate != testSampleRate {
		t.Errorf("Buffer sample rate mismatch: got %d, want %d",
			engine.sampleBuf.Format.SampleRate, testSampleRate)
	}

	if len(engine.sampleBuf.Data) != testFrameSize*2 {
		t.Errorf("Buffer size mismatch: got %d, want %d", len(engine.sampleBuf.Data), testFrameSize*2)
	}

	// Store reference to check file closure.
	outputFile := engine.outputFile

	if err := engine.StopRecording(); err != nil {
		t.Fatalf("Failed to stop recording: %v", err)
	}

	if atomic.LoadInt32(&engine.isRecording) != 0 {
		t.Error("Engine should not be in recording state after stopping")
	}

	if engine.outputFile != nil || engine.wavEncoder != nil {
		t.Error("Recording resources should be released after stopping")
	}

	if err := outputFile.Close(); err == nil {
		t.Error("File should already be closed")
	}

	if _, err := os.Stat(filename); os.IsNotExist(err) {
		t.Error("Recording file was not created")
	}
}

func TestRecordingErrorCases(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		desc          string
		filename      string
		isRecording   int32
		expectError   bool
		errorContains string
	}{
		{"Already recording", filepath.Join(dir, "valid.wav"), 1, true, "already recording"},
		{"Invalid path", "/nonexistent/path/file.wav", 0, true, ""},
		{"Valid path", filepath.Join(dir, "test.wav"), 0, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			engine := newTestEngine(1)
			atomic.StoreInt32(&engine.isRecording, tt.isRecording)

			err := engine.StartRecording(tt.filename)
			if err == nil {
				_ = engine.StopRecording()
			}

			if tt.expectError && err == nil {
				t.Errorf("Expected error but got none")
			}

			if !tt.expectError && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}

			if tt.errorContains != "" && err != nil && !strings.Contains(err.Error(), tt.errorContains) {
				t.Errorf("Error %q does not contain %q", err.Error(), tt.errorContains)
			}
		})
	}

	t.Run("Stop when not recording", func(t *testing.T) {
		if err := newTestEngine(1).StopRecording(); err != nil {
			t.Errorf("Unexpected error: %v", err)
		}
	})
}

// TestRecordingRoundTrip records captured frames and decodes the file again.
func TestRecordingRoundTrip(t *testing.T) {
	for _, bitDepth := range []int{16, 24} {
		t.Run(depthName(bitDepth), func(t *testing.T) {
			filename := filepath.Join(t.TempDir(), "take.wav")
			engine := newTestEngine(2)
			engine.config.Recording.BitDepth = bitDepth

			if err := engine.StartRecording(filename); err != nil {
				t.Fatalf("Failed to start recording: %v", err)
			}

			signal := synth.Sine(testFrameSize*8, testSampleRate, 330, 0.5)
			frames := interleave(signal, 2)
			for start := 0; start < len(frames); start += testFrameSize * 2 {
				engine.processInputStream(frames[start : start+testFrameSize*2])
			}

			if err := engine.Close(); err != nil {
				t.Fatalf("Failed to close engine: %v", err)
			}

			samples, rate, err := DecodeFile(filename)
			if err != nil {
				t.Fatalf("DecodeFile() error = %v", err)
			}
			if rate != testSampleRate || len(samples) != len(signal) {
				t.Fatalf("decoded %d samples at %v Hz, want %d at %d", len(samples), rate, len(signal), testSampleRate)
			}
			for i := range signal {
				if math.Abs(samples[i]-signal[i]) > 1e-3 {
					t.Fatalf("sample %d = %v, want %v", i, samples[i], signal[i])
				}
			}
		})
	}
}

func depthName(bitDepth int) string {
	if bitDepth == 24 {
		return "24-bit"
	}
	return "16-bit"
}

func TestCloseEngineWithRecording(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "test_close_engine.wav")
	engine := newTestEngine(1)

	if err := engine.StartRecording(filename); err != nil {
		t.Fatalf("Failed to start recording: %v", err)
	}

	if err := engine.Close(); err != nil {
		t.Fatalf("Failed to close engine: %v", err)
	}

	if atomic.LoadInt32(&engine.isRecording) != 0 {
		t.Error("Engine should not be in recording state after Close()")
	}

	if engine.outputFile != nil || engine.wavEncoder != nil {
		t.Error("Recording resources should be nil after Close()")
	}
}

func TestPCMClips(t *testing.T) {
	scale := float64(math.MaxInt16)
	tests := []struct {
		in   float32
		want int
	}{
		{0, 0},
		{1, math.MaxInt16},
		{2, math.MaxInt16},
		{-1, -math.MaxInt16},
		{-3, -math.MaxInt16},
		{0.5, 16384},
	}
	for _, tt := range tests {
		if got := pcm(tt.in, scale); got != tt.want {
			t.Errorf("pcm(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func BenchmarkRecordingStartStopHotPath(b *testing.B) {
	engine := newTestEngine(2)
	filename := filepath.Join(b.TempDir(), "bench.wav")

	b.ReportAllocs()
	for b.Loop() {
		_ = engine.StartRecording(filename)
		_ = engine.StopRecording()
	}
}
