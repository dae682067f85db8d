package buildinfo

import (
	"fmt"
	"runtime/debug"
)

// Set at link time, for example:
//
//	-X 'github.com/m3rciful/quotebot/core/buildinfo.Version=v1.2.3'
//	-X 'github.com/m3rciful/quotebot/core/buildinfo.Commit=abcdef0'
//	-X 'github.com/m3rciful/quotebot/core/buildinfo.Date=2025-08-30T12:00:00Z'
//
// When they are left at their defaults the VCS stamp embedded by the Go
// toolchain is used instead.
var (
	Version = "dev"
	Commit  = "local"
	Date    = ""
)

// Info is the resolved build description.
type Info struct {
	Version string
	Commit  string
	Date    string
	Dirty   bool
}

// Current merges the link-time values with the embedded VCS settings.
func Current() Info {
	info := Info{Version: Version, Commit: Commit, Date: Date}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "local" && s.Value != "" {
				info.Commit = shortRev(s.Value)
			}
		case "vcs.time":
			if info.Date == "" {
				info.Date = s.Value
			}
		case "vcs.modified":
			info.Dirty = s.Value == "true"
		}
	}
	return info
}

// String renders a one-line build description such as "v1.2.3 (abcdef0, 2025-08-30T12:00:00Z)".
func (i Info) String() string {
	commit := i.Commit
	if i.Dirty {
		commit += "+dirty"
	}
	if i.Date == "" {
		return fmt.Sprintf("%s (%s)", i.Version, commit)
	}
	return fmt.Sprintf("%s (%s, %s)", i.Version, commit, i.Date)
}

// String describes the running binary.
func String() string { return Current().String() }

func shortRev(rev string) string {
	if len(rev) > 7 {
		return rev[:7]
	}
	return rev
}
