// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"voicepitch/internal/config"
	"voicepitch/pkg/build"
)

// Commands selected on the command line.
const (
	CommandRun     = "run"
	CommandList    = "list"
	CommandAnalyze = "analyze"
)

// Options is the parsed command line: the merged configuration plus what to
// run. A nil *Options from ParseArgs means help or version was printed.
type Options struct {
	Config   *config.Config
	Command  string
	File     string  // Live file source for run, input file for analyze.
	Tone     float64 // Synthetic tone in Hz, 0 when unused.
	Headless bool
	Pick     bool
	Verbose  bool
}

// flagValues holds raw flag values until the config file is loaded.
type flagValues struct {
	configPath      string
	device          int
	channels        int
	sampleRate      float64
	framesPerBuffer int
	blockSize       int
	lowLatency      bool
	record          bool
	output          string
	ws              bool
	wsAddr          string
}

// ParseArgs parses args (without the program name). Settings are layered as
// defaults, config file, .env and environment, then explicitly set flags.
func ParseArgs(args []string) (*Options, error) {
	buildInfo := build.GetBuildFlags()
	opts := &Options{Command: CommandRun}
	var flags flagValues
	ran := false

	rootCmd := &cobra.Command{
		Use:           "voicepitch",
		Short:         "Real-time voice pitch meter",
		Long:          "Estimates the fundamental frequency of a live voice by autocorrelation\nand shows it in the terminal, on a websocket or in the log.",
		Version:       buildInfo.String(),
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(flags.configPath)
			if err != nil {
				return err
			}
			applyFlags(cmd, &flags, cfg)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			opts.Config = cfg
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.File != "" && opts.Tone > 0 {
				return fmt.Errorf("--file and --tone are mutually exclusive")
			}
			if opts.Tone < 0 {
				return fmt.Errorf("--tone must be positive, got %v", opts.Tone)
			}
			ran = true
			return nil
		},
	}
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	// List command
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Command = CommandList
			ran = true
			return nil
		},
	}
	rootCmd.AddCommand(listCmd)

	// Analyze command
	analyzeCmd := &cobra.Command{
		Use:   "analyze FILE",
		Short: "Estimate the pitch of a WAV or MP3 file and print a summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Command = CommandAnalyze
			opts.File = args[0]
			ran = true
			return nil
		},
	}
	rootCmd.AddCommand(analyzeCmd)

	pf := rootCmd.PersistentFlags()

	// Configuration file
	pf.StringVar(&flags.configPath, "config", "",
		"Path to a YAML configuration file (default ./config.yaml if present)")

	// Audio Device Configuration
	pf.IntVarP(&flags.device, "device", "d", config.DefaultDeviceID,
		"Specify input device ID. Use 'list' command to see available devices.")
	pf.IntVarP(&flags.channels, "channels", "c", config.DefaultChannels,
		"Number of channels to capture (mixed to mono for analysis)")
	pf.Float64VarP(&flags.sampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Sample rate, measured in Hertz (Hz)")
	pf.IntVarP(&flags.framesPerBuffer, "frames-per-buffer", "b", config.DefaultFramesPerBuffer,
		"The number of frames per buffer (affects latency)")
	pf.BoolVarP(&flags.lowLatency, "low-latency", "l", config.DefaultLowLatency,
		"Use low latency mode for real-time processing")

	// Analysis Configuration
	pf.IntVar(&flags.blockSize, "block-size", config.DefaultBlockSize,
		"Samples per pitch estimate (power of 2)")

	// Recording Configuration
	pf.BoolVarP(&flags.record, "record", "r", false,
		"Record audio from the specified input device")
	pf.StringVarP(&flags.output, "output", "o", "",
		"Output file name. Default is recordings/recording-DD-MM-YYYY-HHMMSS.wav")

	// Transport Configuration
	pf.BoolVar(&flags.ws, "ws", false,
		"Serve estimates to websocket clients on /pitch")
	pf.StringVar(&flags.wsAddr, "ws-addr", config.DefaultWebSocketAddr,
		"Websocket listen address")

	// Source and mode selection
	rootCmd.Flags().StringVar(&opts.File, "file", "",
		"Analyse a WAV or MP3 file in real time instead of the microphone")
	rootCmd.Flags().Float64Var(&opts.Tone, "tone", 0,
		"Analyse a synthetic sine tone of this frequency in Hz")
	rootCmd.Flags().BoolVar(&opts.Headless, "headless", false,
		"Log estimates instead of showing the terminal meter")
	rootCmd.Flags().BoolVar(&opts.Pick, "pick", false,
		"Choose the input device and sample rate interactively")

	// Debug Configuration
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false,
		"Show verbose output")

	// Execute the CLI
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}
	if !ran {
		return nil, nil
	}

	return opts, nil
}

// applyFlags copies explicitly set flags over the loaded configuration.
func applyFlags(cmd *cobra.Command, f *flagValues, cfg *config.Config) {
	changed := cmd.Flags().Changed

	if changed("device") {
		cfg.Audio.InputDevice = f.device
	}
	if changed("channels") {
		cfg.Audio.InputChannels = f.channels
	}
	if changed("sample-rate") {
		cfg.Audio.SampleRate = f.sampleRate
	}
	if changed("frames-per-buffer") {
		cfg.Audio.FramesPerBuffer = f.framesPerBuffer
	}
	if changed("low-latency") {
		cfg.Audio.LowLatency = f.lowLatency
	}
	if changed("block-size") {
		cfg.Analysis.BlockSize = f.blockSize
	}
	if changed("record") {
		cfg.Recording.Enabled = f.record
	}
	if changed("output") {
		cfg.Recording.OutputFile = f.output
	}
	if changed("ws") {
		cfg.Transport.WebSocketEnabled = f.ws
	}
	if changed("ws-addr") {
		cfg.Transport.WebSocketAddress = f.wsAddr
	}
}
