// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"voicepitch/internal/audio"
	"voicepitch/internal/config"
	applog "voicepitch/internal/log"
	"voicepitch/internal/pitch"
	"voicepitch/internal/readout"
	"voicepitch/internal/transport"
	"voicepitch/internal/tui"
)

// toneAmplitude keeps synthetic tones well above the silence gate.
const toneAmplitude = 0.5

// donePoll is how often headless mode checks whether a file source ran out.
const donePoll = 50 * time.Millisecond

var logger = applog.With("Main")

// Run executes the command selected by opts and writes user-facing output to
// stdout. It returns when the command finishes or ctx is cancelled.
func Run(ctx context.Context, opts *Options, stdout io.Writer) error {
	cfg := opts.Config

	switch opts.Command {
	case CommandList:
		return withPortAudio(func() error {
			return audio.ListDevices(stdout)
		})

	case CommandAnalyze:
		return Analyze(opts.File, cfg, stdout)
	}

	if opts.usesMicrophone() {
		return withPortAudio(func() error {
			if opts.Pick {
				if err := pickDevice(cfg); err != nil {
					return err
				}
			}
			return runLive(ctx, opts, stdout)
		})
	}
	return runLive(ctx, opts, stdout)
}

func (o *Options) usesMicrophone() bool {
	return o.File == "" && o.Tone == 0
}

// withPortAudio brackets fn with PortAudio initialization.
func withPortAudio(fn func() error) error {
	if err := audio.Initialize(); err != nil {
		return err
	}
	defer func() {
		if err := audio.Terminate(); err != nil {
			logger.Warnf("%v", err)
		}
	}()
	return fn()
}

func pickDevice(cfg *config.Config) error {
	selection, err := tui.PickDevice(audio.HostDevices)
	if err != nil {
		return fmt.Errorf("device picker: %w", err)
	}
	if !selection.Chosen {
		return fmt.Errorf("no input device chosen")
	}
	cfg.Audio.InputDevice = selection.DeviceID
	cfg.Audio.SampleRate = selection.SampleRate
	cfg.Audio.InputChannels = selection.Channels
	logger.Infof("using %q at %.0f Hz", selection.Name, selection.SampleRate)
	return cfg.Validate()
}

// hopFor is the number of samples that pass during one frame interval.
func hopFor(sampleRate float64, interval time.Duration) int {
	return max(int(math.Round(sampleRate*interval.Seconds())), 1)
}

// opener returns how the live source is acquired for each session.
func opener(opts *Options) tui.Opener {
	cfg := opts.Config
	block := cfg.Analysis.BlockSize
	interval := cfg.Analysis.FrameInterval

	switch {
	case opts.File != "":
		return func() (pitch.Source, error) {
			samples, rate, err := audio.DecodeFile(opts.File)
			if err != nil {
				return nil, err
			}
			return audio.NewFileSource(samples, rate, block, hopFor(rate, interval)), nil
		}
	case opts.Tone > 0:
		return func() (pitch.Source, error) {
			rate := cfg.Audio.SampleRate
			return audio.NewToneSource(rate, opts.Tone, toneAmplitude, block, hopFor(rate, interval)), nil
		}
	default:
		return func() (pitch.Source, error) {
			return audio.OpenEngine(cfg)
		}
	}
}

// outputs builds the sinks shared by every mode besides the readout itself.
// The returned close function shuts down transports.
func outputs(cfg *config.Config) ([]pitch.Sink, func(), error) {
	sinks := []pitch.Sink{transport.NewLogging()}
	closeAll := func() {}

	if cfg.Transport.WebSocketEnabled {
		ws := transport.NewWebSocket(cfg.Transport.WebSocketAddress)
		if err := ws.Start(); err != nil {
			ws.Close()
			return nil, nil, err
		}
		publisher := transport.NewPublisher(ws)
		sinks = append(sinks, publisher)
		closeAll = func() {
			if err := publisher.Close(); err != nil {
				logger.Warnf("failed to close websocket: %v", err)
			}
		}
	}
	return sinks, closeAll, nil
}

func runLive(ctx context.Context, opts *Options, stdout io.Writer) error {
	cfg := opts.Config
	sinks, closeOutputs, err := outputs(cfg)
	if err != nil {
		return err
	}
	defer closeOutputs()

	if opts.Headless {
		return runHeadless(ctx, opener(opts), cfg.Analysis.FrameInterval, sinks, stdout)
	}
	return runMeter(opener(opts), cfg, sinks, stdout)
}

func runMeter(open tui.Opener, cfg *config.Config, sinks []pitch.Sink, stdout io.Writer) error {
	// Log lines would tear the screen; send them to the log file or nowhere.
	restore, err := redirectLogs(cfg.LogFile)
	if err != nil {
		return err
	}
	defer restore()

	final, err := tui.RunMeter(tui.MeterOptions{
		Title:    "Voice Pitch",
		Open:     open,
		Sinks:    sinks,
		Interval: cfg.Analysis.FrameInterval,
	})
	if err != nil {
		return fmt.Errorf("terminal meter: %w", err)
	}

	maxHz := final.Tracker().Max()
	_, err = fmt.Fprintf(stdout, "Max frequency: %s Hz\n", readout.FormatHz(maxHz, maxHz > 0))
	return err
}

func redirectLogs(path string) (func(), error) {
	if path == "" {
		applog.SetOutput(io.Discard)
		return func() { applog.SetOutput(os.Stderr) }, nil
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	applog.SetOutput(file)
	return func() {
		applog.SetOutput(os.Stderr)
		file.Close()
	}, nil
}

// finite is implemented by sources that run out, such as files.
type finite interface {
	Done() bool
}

// runHeadless runs one session on a timer until ctx is cancelled or a finite
// source is exhausted, then prints a summary.
func runHeadless(ctx context.Context, open tui.Opener, interval time.Duration, sinks []pitch.Sink, stdout io.Writer) error {
	source, err := open()
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}

	recorder := readout.NewRecorder(0)
	session, err := pitch.Start(source, pitch.NewTimerScheduler(interval), pitch.Sinks(append(sinks, recorder)...))
	if err != nil {
		return err
	}
	logger.Infof("%s", tui.StatusAnalyzing)

	waitHeadless(ctx, source)

	if err := session.Stop(); err != nil {
		return err
	}
	logger.Infof("%s", tui.StatusStopped)

	return recorder.Summary().Write(stdout)
}

func waitHeadless(ctx context.Context, source pitch.Source) {
	f, ok := source.(finite)
	if !ok {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(donePoll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if f.Done() {
				return
			}
		}
	}
}

// Analyze estimates the pitch of every frame of a file as fast as possible and
// writes a summary to w. Frames advance by one frame interval of audio, so the
// result matches what the live meter would have shown.
func Analyze(path string, cfg *config.Config, w io.Writer) error {
	samples, rate, err := audio.DecodeFile(path)
	if err != nil {
		return err
	}
	source := audio.NewFileSource(samples, rate, cfg.Analysis.BlockSize, hopFor(rate, cfg.Analysis.FrameInterval))

	frames := pitch.NewFrameScheduler()
	recorder := readout.NewRecorder(source.Windows())
	session, err := pitch.Start(source, frames, pitch.Sinks(recorder, transport.NewLogging()))
	if err != nil {
		return err
	}
	for !source.Done() {
		frames.Frame()
	}
	if err := session.Stop(); err != nil {
		return err
	}

	duration := time.Duration(float64(source.Len()) / rate * float64(time.Second))
	if _, err := fmt.Fprintf(w, "File:             %s (%.0f Hz, %s)\n", path, rate, duration.Round(time.Millisecond)); err != nil {
		return err
	}
	return recorder.Summary().Write(w)
}
