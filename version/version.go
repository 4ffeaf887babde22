package version

import (
	"runtime/debug"
	"strings"
)

// Overridden at release time with
// -ldflags "-X macroclock/version.Version=... -X macroclock/version.CommitHash=... -X macroclock/version.BuildTime=..."
var (
	Version    = "0.3.0"
	CommitHash = ""
	BuildTime  = ""
)

func init() {
	if CommitHash != "" && BuildTime != "" {
		return
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	for _, s := range info.Settings {
		switch {
		case s.Key == "vcs.revision" && CommitHash == "":
			CommitHash = s.Value
		case s.Key == "vcs.time" && BuildTime == "":
			BuildTime = s.Value
		}
	}
}

// GetVersion returns the release version of the bridge.
func GetVersion() string {
	return Version
}

// GetFullVersion appends the short commit when one is known.
func GetFullVersion() string {
	if len(CommitHash) < 7 {
		return Version
	}
	return Version + " (" + CommitHash[:7] + ")"
}

// GetBuildInfo is the text printed by --version.
func GetBuildInfo() string {
	var b strings.Builder
	b.WriteString("MacroClock settings bridge " + GetFullVersion())
	if CommitHash != "" {
		b.WriteString("\ncommit: " + CommitHash)
	}
	if BuildTime != "" {
		b.WriteString("\nbuilt:  " + BuildTime)
	}
	return b.String()
}
