// Package version holds build metadata of the mdb binary.
// The variables can be overridden at build time via -ldflags; commit and
// date otherwise come from the VCS stamp of the Go toolchain.
package version

import (
	"runtime/debug"
	"strings"

	"github.com/fatih/color"
)

var (
	// Version is the semantic version of the CLI.
	Version = "0.1.0-dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

var readBuildInfo = debug.ReadBuildInfo

var partColors = []*color.Color{
	color.New(color.FgYellow, color.Bold),
	color.New(color.FgGreen, color.Bold),
	color.New(color.FgBlue, color.Bold),
}

// Colored renders v with major, minor and patch in distinct colors. The
// pre-release suffix and anything that is not a dotted triple stay plain.
func Colored(v string, enabled bool) string {
	core, suffix := v, ""
	if i := strings.IndexAny(v, "-+"); i >= 0 {
		core, suffix = v[:i], v[i:]
	}
	parts := strings.Split(core, ".")
	if !enabled || len(parts) != len(partColors) {
		return v
	}
	for i, p := range parts {
		c := *partColors[i]
		c.EnableColor()
		parts[i] = c.Sprint(p)
	}
	return strings.Join(parts, ".") + suffix
}

// Info is the build metadata of the running binary.
type Info struct {
	Version string
	Commit  string // abbreviated to 12 characters
	Date    string
}

// Get collects the build metadata.
func Get() Info {
	info := Info{
		Version: strings.TrimSpace(Version),
		Commit:  strings.TrimSpace(GitCommit),
		Date:    strings.TrimSpace(BuildDate),
	}
	if info.Version == "" {
		info.Version = "dev"
	}
	if bi, ok := readBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch {
			case s.Key == "vcs.revision" && info.Commit == "":
				info.Commit = s.Value
			case s.Key == "vcs.time" && info.Date == "":
				info.Date = s.Value
			}
		}
	}
	if len(info.Commit) > 12 {
		info.Commit = info.Commit[:12]
	}
	return info
}

// Line renders the metadata as `mdb version` prints it. Unknown commit
// and date are left out.
func (i Info) Line(colored bool) string {
	line := "mdb " + Colored(i.Version, colored)
	var extra []string
	for _, s := range []string{i.Commit, i.Date} {
		if s != "" {
			extra = append(extra, s)
		}
	}
	if len(extra) > 0 {
		line += " (" + strings.Join(extra, ", ") + ")"
	}
	return line
}
