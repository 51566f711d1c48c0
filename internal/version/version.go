package version

import (
	"fmt"
	"runtime/debug"
)

// Set with -ldflags "-X pkce-relay/internal/version.Version=..." at build time.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func init() {
	if GitCommit != "unknown" {
		return
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			GitCommit = setting.Value
		case "vcs.time":
			BuildTime = setting.Value
		}
	}
}

// Info formats the build information for --version output.
func Info(program string) string {
	return fmt.Sprintf("%s version %s, commit %s, built at %s", program, Version, GitCommit, BuildTime)
}
