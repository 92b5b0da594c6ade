// SPDX-License-Identifier: MIT
//
// Package build carries the metadata embedded into the binary at link time:
// application name, build timestamp, Git commit and semantic version. The
// name doubles as the audio stream name and the log prefix, the way a JACK
// client takes its name from argv[0].
package build

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrMissingFlag is returned by Initialize when a linker flag was not set.
var ErrMissingFlag = errors.New("build flag is required")

type ldFlags struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

// Package-level variables for build information. These are populated by
// -ldflags during compilation, for example:
//
//	go build -ldflags "-X datawave/pkg/build.buildName=datawave -X datawave/pkg/build.buildVersion=0.1.0"
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildFlags   = defaultFlags()
)

func defaultFlags() *ldFlags {
	name := "datawave"
	if len(os.Args) > 0 && os.Args[0] != "" {
		name = filepath.Base(os.Args[0])
	}
	return &ldFlags{
		Name:        name,
		Description: "Real-time spectral codec for audio streams",
		Time:        "unknown",
		Commit:      "unknown",
		Version:     "dev",
	}
}

// Initialize validates and copies build information from the ldflags
// variables. On error the development defaults stay in place, so callers may
// log the error and carry on.
func Initialize() error {
	switch {
	case buildName == "":
		return fmt.Errorf("BuildName: %w", ErrMissingFlag)
	case buildTime == "":
		return fmt.Errorf("BuildTime: %w", ErrMissingFlag)
	case buildCommit == "":
		return fmt.Errorf("BuildCommit: %w", ErrMissingFlag)
	case buildVersion == "":
		return fmt.Errorf("BuildVersion: %w", ErrMissingFlag)
	}

	buildFlags.Name = buildName
	buildFlags.Time = buildTime
	buildFlags.Commit = buildCommit
	buildFlags.Version = buildVersion

	return nil
}

// GetBuildFlags returns the current build information.
func GetBuildFlags() *ldFlags {
	return buildFlags
}

// String formats the build information for version output and logs.
func (f *ldFlags) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", f.Name, f.Version, f.Commit, f.Time)
}
