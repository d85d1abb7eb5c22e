// Package version reports what vetprice build is running.
//
// Release builds stamp the variables below with ldflags:
//
//	go build -ldflags "-X github.com/jmylchreest/vetprice/internal/version.Version=1.0.0 ..."
//
// Unstamped builds fall back to the VCS data the toolchain embeds.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sort"
	"strings"
)

// Set via ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	Dirty     = "false"
	BuildDate = "unknown"
)

// scrapingModules are the dependencies whose versions explain how pages are
// fetched and parsed, so they are reported alongside the build.
var scrapingModules = []string{
	"github.com/gocolly/colly/v2",
	"github.com/chromedp/chromedp",
	"github.com/go-rod/rod",
	"github.com/PuerkitoBio/goquery",
}

// Info is a snapshot of the running build.
type Info struct {
	Version   string            `json:"version"`
	Commit    string            `json:"commit"`
	Dirty     bool              `json:"dirty"`
	BuildDate string            `json:"build_date"`
	GoVersion string            `json:"go_version"`
	Platform  string            `json:"platform"`
	Modules   map[string]string `json:"modules,omitempty"`
}

// Get returns the build snapshot, filling unset ldflags from the embedded
// build info where possible.
func Get() Info {
	info := Info{
		Version:   Version,
		Commit:    Commit,
		Dirty:     Dirty == "true",
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "unknown" {
				info.Commit = s.Value
			}
		case "vcs.modified":
			if s.Value == "true" {
				info.Dirty = true
			}
		case "vcs.time":
			if info.BuildDate == "unknown" {
				info.BuildDate = s.Value
			}
		}
	}
	for _, dep := range bi.Deps {
		for _, name := range scrapingModules {
			if dep.Path == name {
				if info.Modules == nil {
					info.Modules = make(map[string]string)
				}
				info.Modules[name] = dep.Version
			}
		}
	}
	return info
}

// String returns the version, suffixed with -dirty for modified trees.
func String() string {
	return Get().String()
}

func (i Info) String() string {
	if i.Dirty {
		return i.Version + "-dirty"
	}
	return i.Version
}

// ShortCommit returns the first seven characters of the commit.
func (i Info) ShortCommit() string {
	if len(i.Commit) > 7 {
		return i.Commit[:7]
	}
	return i.Commit
}

// Label identifies this build in logs and run summaries.
func Label() string {
	i := Get()
	return fmt.Sprintf("vetprice/%s (%s)", i.String(), i.ShortCommit())
}

// Full renders every field, one per line.
func Full() string {
	i := Get()
	var sb strings.Builder
	fmt.Fprintf(&sb, "vetprice %s\n", i.String())
	fmt.Fprintf(&sb, "  Commit:     %s\n", i.Commit)
	fmt.Fprintf(&sb, "  Built:      %s\n", i.BuildDate)
	fmt.Fprintf(&sb, "  Go version: %s\n", i.GoVersion)
	fmt.Fprintf(&sb, "  OS/Arch:    %s", i.Platform)

	names := make([]string, 0, len(i.Modules))
	for name := range i.Modules {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&sb, "\n  %s %s", name, i.Modules[name])
	}
	return sb.String()
}
