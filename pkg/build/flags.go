// SPDX-License-Identifier: MIT
//
// Package build exposes metadata embedded at link time, such as the
// application name, build timestamp, commit hash and semantic version:
//
//	go build -ldflags "-X voicepitch/pkg/build.buildName=voicepitch \
//	    -X voicepitch/pkg/build.buildVersion=0.1.0 ..."
//
// Development builds report "unknown" for every field.
package build

import "fmt"

// Info is the build metadata of the running binary.
type Info struct {
	Name    string
	Time    string
	Commit  string
	Version string
}

// String formats Info for `voicepitch --version`.
func (i Info) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", i.Name, i.Version, i.Commit, i.Time)
}

// Package-level variables for build information. These are populated by -ldflags
// during compilation. Default values of "unknown" are used during development.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildFlags   = &Info{
		Name:    "unknown",
		Time:    "unknown",
		Commit:  "unknown",
		Version: "unknown",
	}
)

// Initialize validates and copies build information from ldflags variables
// into the buildFlags struct. It should be called early in program startup.
// Returns an error if any build flag is missing, in which case the "unknown"
// defaults remain in place.
func Initialize() error {
	if buildName == "" {
		return fmt.Errorf("BuildName is required")
	}
	if buildTime == "" {
		return fmt.Errorf("BuildTime is required")
	}
	if buildCommit == "" {
		return fmt.Errorf("BuildCommit is required")
	}
	if buildVersion == "" {
		return fmt.Errorf("BuildVersion is required")
	}

	buildFlags.Name = buildName
	buildFlags.Time = buildTime
	buildFlags.Commit = buildCommit
	buildFlags.Version = buildVersion

	return nil
}

// GetBuildFlags returns a copy of the current build information.
func GetBuildFlags() Info {
	return *buildFlags
}
