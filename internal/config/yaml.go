// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	applog "voicepitch/internal/log"
)

// DefaultConfigFile is looked up in the working directory when no path is given.
const DefaultConfigFile = "config.yaml"

// LoadConfig loads configuration from a YAML file specified by path. If path is
// empty, it tries DefaultConfigFile and falls back to built-in defaults when that
// does not exist. A .env file next to the config file (or in the working
// directory) is loaded into the environment without replacing variables that are
// already set. Environment overrides are applied last, then the result is
// validated.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			path = DefaultConfigFile
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := loadDotEnv(filepath.Dir(path)); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadDotEnv loads dir/.env if present. A missing file is not an error.
func loadDotEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides replaces settings from ENV_* variables. Values that do not
// parse are logged and ignored.
func (cfg *Config) applyEnvOverrides() {
	// ENV_{...}
	// These are general overrides.

	// ENV_DEBUG
	envBool("ENV_DEBUG", &cfg.Debug)
	// ENV_LOG_LEVEL
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		cfg.LogLevel = val
	}

	// ENV_{AUDIO,ANALYSIS}_{...}
	// These are specific to capture and the sampling loop.

	// ENV_INPUT_DEVICE
	envInt("ENV_INPUT_DEVICE", &cfg.Audio.InputDevice)
	// ENV_SAMPLE_RATE
	if val, ok := os.LookupEnv("ENV_SAMPLE_RATE"); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Audio.SampleRate = f
		} else {
			applog.Warnf("configuration: ignoring ENV_SAMPLE_RATE=%q: %v", val, err)
		}
	}
	// ENV_BLOCK_SIZE
	envInt("ENV_BLOCK_SIZE", &cfg.Analysis.BlockSize)
	// ENV_FRAME_INTERVAL
	if val, ok := os.LookupEnv("ENV_FRAME_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			cfg.Analysis.FrameInterval = dur
		} else {
			applog.Warnf("configuration: ignoring ENV_FRAME_INTERVAL=%q: %v", val, err)
		}
	}

	// ENV_WS_{...}
	// These are specific to the transport layer.

	// ENV_WS_ENABLED
	envBool("ENV_WS_ENABLED", &cfg.Transport.WebSocketEnabled)
	// ENV_WS_ADDRESS
	if val, ok := os.LookupEnv("ENV_WS_ADDRESS"); ok {
		cfg.Transport.WebSocketAddress = val
	}
}

func envBool(name string, dst *bool) {
	val, ok := os.LookupEnv(name)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		applog.Warnf("configuration: ignoring %s=%q: %v", name, val, err)
		return
	}
	*dst = b
	applog.Debugf("configuration: overriding from %s: %v", name, b)
}

func envInt(name string, dst *int) {
	val, ok := os.LookupEnv(name)
	if !ok {
		return
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		applog.Warnf("configuration: ignoring %s=%q: %v", name, val, err)
		return
	}
	*dst = n
	applog.Debugf("configuration: overriding from %s: %d", name, n)
}
