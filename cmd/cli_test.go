// SPDX-License-Identifier: MIT
package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicepitch/internal/config"
)

func TestParseArgsDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	opts, err := ParseArgs(nil)
	require.NoError(t, err)
	require.NotNil(t, opts)

	assert.Equal(t, CommandRun, opts.Command)
	assert.False(t, opts.Headless)
	assert.Equal(t, config.DefaultBlockSize, opts.Config.Analysis.BlockSize)
	assert.Equal(t, float64(config.DefaultSampleRate), opts.Config.Audio.SampleRate)
	assert.Equal(t, config.DefaultDeviceID, opts.Config.Audio.InputDevice)
}

func TestParseArgsFlags(t *testing.T) {
	t.Chdir(t.TempDir())

	opts, err := ParseArgs([]string{
		"--device", "2",
		"--channels", "2",
		"--sample-rate", "48000",
		"--frames-per-buffer", "1024",
		"--block-size", "4096",
		"--low-latency",
		"--record", "-o", "take.wav",
		"--ws", "--ws-addr", ":9001",
		"--headless", "--tone", "330", "-v",
	})
	require.NoError(t, err)

	cfg := opts.Config
	assert.Equal(t, 2, cfg.Audio.InputDevice)
	assert.Equal(t, 2, cfg.Audio.InputChannels)
	assert.Equal(t, 48000.0, cfg.Audio.SampleRate)
	assert.Equal(t, 1024, cfg.Audio.FramesPerBuffer)
	assert.Equal(t, 4096, cfg.Analysis.BlockSize)
	assert.True(t, cfg.Audio.LowLatency)
	assert.True(t, cfg.Recording.Enabled)
	assert.Equal(t, "take.wav", cfg.Recording.OutputFile)
	assert.True(t, cfg.Transport.WebSocketEnabled)
	assert.Equal(t, ":9001", cfg.Transport.WebSocketAddress)
	assert.True(t, opts.Headless)
	assert.True(t, opts.Verbose)
	assert.Equal(t, 330.0, opts.Tone)
}

func TestParseArgsFlagsOverrideConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "pitch.yaml")
	require.NoError(t, os.WriteFile(path, []byte("audio:\n  sample_rate: 22050\n  input_device: 4\n"), 0o644))

	opts, err := ParseArgs([]string{"--config", path, "--sample-rate", "48000"})
	require.NoError(t, err)

	assert.Equal(t, 48000.0, opts.Config.Audio.SampleRate, "flag wins over file")
	assert.Equal(t, 4, opts.Config.Audio.InputDevice, "file wins over default")
}

func TestParseArgsSubcommands(t *testing.T) {
	t.Chdir(t.TempDir())

	opts, err := ParseArgs([]string{"list"})
	require.NoError(t, err)
	assert.Equal(t, CommandList, opts.Command)

	opts, err = ParseArgs([]string{"analyze", "voice.wav", "--block-size", "1024"})
	require.NoError(t, err)
	assert.Equal(t, CommandAnalyze, opts.Command)
	assert.Equal(t, "voice.wav", opts.File)
	assert.Equal(t, 1024, opts.Config.Analysis.BlockSize)
}

func TestParseArgsErrors(t *testing.T) {
	t.Chdir(t.TempDir())

	tests := []struct {
		name string
		args []string
	}{
		{"analyze without file", []string{"analyze"}},
		{"block size not a power of two", []string{"--block-size", "1000"}},
		{"file and tone", []string{"--file", "a.wav", "--tone", "220"}},
		{"negative tone", []string{"--tone=-5"}},
		{"unknown flag", []string{"--nope"}},
		{"missing config", []string{"--config", "missing.yaml"}},
		{"stray argument", []string{"extra"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := ParseArgs(tt.args)
			assert.Error(t, err)
			assert.Nil(t, opts)
		})
	}
}

func TestParseArgsHelp(t *testing.T) {
	t.Chdir(t.TempDir())

	opts, err := ParseArgs([]string{"--help"})
	require.NoError(t, err)
	assert.Nil(t, opts)
}
