// Package misc keeps program identity: name, version and VCS revision.
package misc

import (
	"runtime/debug"
)

const appName = "compssr"

// Set by linker: -X compssr/misc.version=...
var (
	version = "dev"
	gitHash string
)

func GetAppName() string {
	return appName
}

func GetVersion() string {
	return version
}

// GetGitHash returns VCS revision either set by linker or recorded by the Go
// toolchain in build info.
func GetGitHash() string {
	if gitHash != "" {
		return gitHash
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" {
				gitHash = s.Value
				return gitHash
			}
		}
	}
	return "unknown"
}
