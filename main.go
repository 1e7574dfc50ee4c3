// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"voicepitch/cmd"
	applog "voicepitch/internal/log"
	"voicepitch/pkg/build"
)

// main is the entry point for the pitch meter.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Configure runtime settings
//   - Parse command line arguments and load configuration
//   - Configure logging
//
// 2. Concurrent Phase (Hot Path):
//   - Open the sample source (PortAudio is initialized only when needed)
//   - Run the sampling loop under the terminal meter or a timer
//   - Forward estimates to the configured sinks
//
// 3. Shutdown Phase (Cold Path):
//   - Handle termination signals
//   - Stop the session, which closes the source and any recording
//   - Print a summary
func main() {
	// ==================== STARTUP PHASE (Cold Path) ====================

	// Development builds carry no ldflags; report "unknown" rather than fail.
	if err := build.Initialize(); err != nil {
		applog.Debugf("build info: %v", err)
	}

	// One thread for the capture callback, one for the loop and UI.
	runtime.GOMAXPROCS(2)

	opts, err := cmd.ParseArgs(os.Args[1:])
	if err != nil {
		applog.Fatalf("%v", err)
	}
	if opts == nil {
		return // help or version
	}

	if err := applog.Configure(opts.Config.LogLevel, opts.Config.Debug || opts.Verbose); err != nil {
		applog.Warnf("%v, using INFO", err)
	}

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = cmd.Run(ctx, opts, os.Stdout)

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	// Run has already stopped its session and printed the summary.
	stop()
	if err != nil {
		applog.Fatalf("%v", err)
	}
}
