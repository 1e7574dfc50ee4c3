// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"voicepitch/pkg/bitint"
)

// Core configuration constants that define the boundaries and defaults
// for the pitch tracker.
const (
	DefaultChannels        = 1                     // Mono input
	DefaultDeviceID        = MinDeviceID           // System default device
	DefaultFramesPerBuffer = 512                   // Balanced latency/performance
	DefaultBlockSize       = 2048                  // Samples per pitch estimate
	DefaultLowLatency      = false                 // Standard latency mode
	DefaultSampleRate      = 44100                 // CD-quality audio
	DefaultFrameInterval   = 16 * time.Millisecond // ~60 Hz display refresh
	DefaultFormat          = "wav"                 // Recording format
	DefaultBitDepth        = 16                    // Recording bit depth
	DefaultOutputDir       = "./recordings"        // Recording directory
	DefaultLogLevel        = "info"
	DefaultWebSocketAddr   = "127.0.0.1:8080"

	// Hardware and processing limits
	MinDeviceID     = -1     // -1 represents system default device
	MinSampleRate   = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate   = 192000 // Maximum supported sample rate (Hz)
	MaxBufferFrames = 8192   // Maximum frames per buffer (power of 2)
	MinBlockSize    = 256    // Smallest block that still resolves ~170 Hz at 44.1k
	MaxBlockSize    = 16384  // Estimation cost is quadratic in block size
	MaxChannels     = 32
)

// Config represents the application configuration, loaded from YAML and then
// overridden by environment variables and command line flags.
type Config struct {
	Debug     bool            `yaml:"debug"`     // Enable debug logging.
	LogLevel  string          `yaml:"log_level"` // "debug", "info", "warn" or "error".
	LogFile   string          `yaml:"log_file"`  // Log destination in TUI mode; empty discards logs there.
	Audio     AudioConfig     `yaml:"audio"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Recording RecordingConfig `yaml:"recording"`
	Transport TransportConfig `yaml:"transport"`
}

// AudioConfig holds settings related to audio input.
type AudioConfig struct {
	InputDevice     int     `yaml:"input_device"`      // PortAudio device index for audio input (-1 for default).
	SampleRate      float64 `yaml:"sample_rate"`       // Sample rate in Hz (e.g., 44100, 48000).
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // Frames per PortAudio callback (affects latency).
	LowLatency      bool    `yaml:"low_latency"`       // Request low latency settings from the device.
	InputChannels   int     `yaml:"input_channels"`    // Channels to capture; mixed to mono for analysis.
}

// AnalysisConfig holds settings for the sampling loop.
type AnalysisConfig struct {
	BlockSize     int           `yaml:"block_size"`     // Samples handed to the estimator per tick.
	FrameInterval time.Duration `yaml:"frame_interval"` // Display refresh period, also the headless tick period.
}

// RecordingConfig holds settings related to input recording.
type RecordingConfig struct {
	Enabled    bool   `yaml:"enabled"`     // Record the raw input while analysing.
	OutputDir  string `yaml:"output_dir"`  // Directory for generated recording names.
	OutputFile string `yaml:"output_file"` // Explicit output path; generated when empty.
	Format     string `yaml:"format"`      // File format, only "wav".
	BitDepth   int    `yaml:"bit_depth"`   // 16 or 24.
}

// TransportConfig holds settings for forwarding estimates to remote displays.
type TransportConfig struct {
	WebSocketEnabled bool   `yaml:"websocket_enabled"` // Serve estimates on ws://<addr>/pitch.
	WebSocketAddress string `yaml:"websocket_address"` // Listen address, host:port.
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		Audio: AudioConfig{
			InputDevice:     DefaultDeviceID,
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFramesPerBuffer,
			LowLatency:      DefaultLowLatency,
			InputChannels:   DefaultChannels,
		},
		Analysis: AnalysisConfig{
			BlockSize:     DefaultBlockSize,
			FrameInterval: DefaultFrameInterval,
		},
		Recording: RecordingConfig{
			OutputDir: DefaultOutputDir,
			Format:    DefaultFormat,
			BitDepth:  DefaultBitDepth,
		},
		Transport: TransportConfig{
			WebSocketAddress: DefaultWebSocketAddr,
		},
	}
}

// Validate reports every invalid setting, joined into one error.
func (c *Config) Validate() error {
	var errs []error

	if c.Audio.InputDevice < MinDeviceID {
		errs = append(errs, fmt.Errorf("audio.input_device must be >= %d, got %d", MinDeviceID, c.Audio.InputDevice))
	}
	if c.Audio.SampleRate < MinSampleRate || c.Audio.SampleRate > MaxSampleRate {
		errs = append(errs, fmt.Errorf("audio.sample_rate must be within [%d, %d], got %.0f",
			MinSampleRate, MaxSampleRate, c.Audio.SampleRate))
	}
	if !bitint.IsPowerOfTwo(c.Audio.FramesPerBuffer) || c.Audio.FramesPerBuffer > MaxBufferFrames {
		errs = append(errs, fmt.Errorf("audio.frames_per_buffer must be a power of 2 up to %d, got %d",
			MaxBufferFrames, c.Audio.FramesPerBuffer))
	}
	if c.Audio.InputChannels < 1 || c.Audio.InputChannels > MaxChannels {
		errs = append(errs, fmt.Errorf("audio.input_channels must be within [1, %d], got %d",
			MaxChannels, c.Audio.InputChannels))
	}
	if !bitint.IsPowerOfTwo(c.Analysis.BlockSize) ||
		c.Analysis.BlockSize < MinBlockSize || c.Analysis.BlockSize > MaxBlockSize {
		errs = append(errs, fmt.Errorf("analysis.block_size must be a power of 2 within [%d, %d], got %d",
			MinBlockSize, MaxBlockSize, c.Analysis.BlockSize))
	}
	if c.Analysis.FrameInterval <= 0 {
		errs = append(errs, fmt.Errorf("analysis.frame_interval must be positive, got %s", c.Analysis.FrameInterval))
	}
	if c.Recording.Format != "wav" {
		errs = append(errs, fmt.Errorf("recording.format %q is not supported", c.Recording.Format))
	}
	if c.Recording.BitDepth != 16 && c.Recording.BitDepth != 24 {
		errs = append(errs, fmt.Errorf("recording.bit_depth must be 16 or 24, got %d", c.Recording.BitDepth))
	}
	if c.Transport.WebSocketEnabled && c.Transport.WebSocketAddress == "" {
		errs = append(errs, errors.New("transport.websocket_address must be set when the websocket is enabled"))
	}

	return errors.Join(errs...)
}

// RecordingPath returns the explicit output file or a timestamped name in the
// output directory.
func (c *Config) RecordingPath(now time.Time) string {
	if c.Recording.OutputFile != "" {
		return c.Recording.OutputFile
	}
	name := "recording-" + now.UTC().Format("02-01-2006-150405") + "." + c.Recording.Format
	return filepath.Join(c.Recording.OutputDir, name)
}
