package build

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	_ "embed"
)

//go:embed VERSION
var rawVersion []byte

// Set with -ldflags "-X github.com/looplj/shellstate/internal/build.Version=...".
var (
	Version   = ""
	Commit    = ""
	BuildTime = ""
	StartTime = time.Now()
)

//nolint:gochecknoinits // resolve version and vcs stamps once.
func init() {
	if Version == "" {
		Version = strings.TrimSpace(string(rawVersion))
	}

	if Commit != "" && BuildTime != "" {
		return
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	for _, s := range bi.Settings {
		switch {
		case s.Key == "vcs.revision" && Commit == "":
			Commit = s.Value
		case s.Key == "vcs.time" && BuildTime == "":
			BuildTime = s.Value
		}
	}
}

// Info describes the running binary.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildTime string `json:"build_time,omitempty"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
	Uptime    string `json:"uptime"`
}

func GetBuildInfo() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		Uptime:    time.Since(StartTime).Truncate(time.Second).String(),
	}
}

func (i Info) String() string {
	rows := [][2]string{
		{"Version", i.Version},
		{"Commit", i.Commit},
		{"Build Time", i.BuildTime},
		{"Go Version", i.GoVersion},
		{"Platform", i.Platform},
		{"Uptime", i.Uptime},
	}

	var sb strings.Builder

	for _, row := range rows {
		if row[1] == "" {
			continue
		}

		fmt.Fprintf(&sb, "%s: %s\n", row[0], row[1])
	}

	return sb.String()
}
