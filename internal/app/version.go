package app

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Version and Commit can be set with -ldflags "-X"; otherwise they are read
// from the module build info.
var (
	Version = ""
	Commit  = ""
)

// VersionInfo identifies the running binary.
type VersionInfo struct {
	Version   string
	Commit    string
	GoVersion string
}

// GetVersionInfo returns the current version information.
func GetVersionInfo() VersionInfo {
	info := VersionInfo{Version: Version, Commit: Commit, GoVersion: runtime.Version()}

	if bi, ok := debug.ReadBuildInfo(); ok {
		if info.Version == "" && bi.Main.Version != "(devel)" {
			info.Version = bi.Main.Version
		}
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" && info.Commit == "" {
				info.Commit = s.Value
			}
		}
	}

	if info.Version == "" {
		info.Version = "dev"
	}
	if len(info.Commit) > 12 {
		info.Commit = info.Commit[:12]
	}
	return info
}

// String is the short form shown by --version.
func (v VersionInfo) String() string {
	if v.Commit == "" {
		return v.Version
	}
	return fmt.Sprintf("%s (%s)", v.Version, v.Commit)
}

// FullString returns a detailed version string for logging.
func (v VersionInfo) FullString() string {
	return fmt.Sprintf("audiobars %s, %s", v.String(), v.GoVersion)
}
