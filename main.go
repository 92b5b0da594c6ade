// SPDX-License-Identifier: MIT
package main

import (
	"datawave/cmd"
	"datawave/internal/log"
	"datawave/pkg/build"
	"os"
	"runtime"
)

// main is the entry point for the datawave engine.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Parse command line arguments and load the configuration
//   - Execute one-off commands (list, render, probe, tune)
//   - Build the engine: tuning cache, backend selection, impulse pair
//
// 2. Concurrent Phase (Hot Path):
//   - Start the PortAudio duplex stream; the callback runs engine.Process
//   - Run the monitor, transports and recorder on their own goroutines
//
// 3. Shutdown Phase (Cold Path):
//   - Handle termination signals (SIGINT, SIGTERM, SIGHUP, SIGQUIT)
//   - Stop the stream, then the monitor and its outputs
//   - Close the engine and save the tuning cache
func main() {
	// ==================== STARTUP PHASE (Cold Path) ====================

	// Missing link-time flags only mean a development build.
	if err := build.Initialize(); err != nil {
		log.Debugf("Build: %v, using development defaults", err)
	}

	// One thread for the locked audio callback, one for the monitor and I/O.
	runtime.GOMAXPROCS(2)

	inv, err := cmd.ParseArgs(os.Args[1:])
	if err != nil {
		log.Fatalf("%v (%s)", err, cmd.Usage())
	}
	if inv == nil {
		return
	}
	if inv.Config.LogFile != "" {
		f, err := log.OpenFile(inv.Config.LogFile)
		if err != nil {
			log.Fatalf("%v", err)
		}
		defer f.Close()
	}
	log.Infof("%s", build.GetBuildFlags())

	switch inv.Command {
	case cmd.CommandList:
		err = listDevices(os.Stdout)
	case cmd.CommandTune:
		err = tune(inv)
	case cmd.CommandRender:
		err = render(inv)
	case cmd.CommandProbe:
		err = probe(inv)
	default:
		err = run(inv.Config)
	}
	if err != nil {
		log.Fatalf("%s: %v", inv.Command, err)
	}
}
