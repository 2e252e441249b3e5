// Package version provides version information and the version command for relbuild.
package version

import (
	"fmt"
	"runtime/debug"
	"sort"
	"strings"

	goversion "github.com/caarlos0/go-version"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Build-time variables injected via ldflags:
//
//	-X github.com/b-harvest/relbuild/internal/version.Version={{.Version}}
//	-X github.com/b-harvest/relbuild/internal/version.GitCommit={{.FullCommit}}
//	-X github.com/b-harvest/relbuild/internal/version.BuildDate={{.Date}}
var (
	// Version is the semantic version of the application.
	Version = "0.1.0-dev"

	// GitCommit is the git commit hash of the build.
	GitCommit = "unknown"

	// BuildDate is the date when the binary was built.
	BuildDate = "unknown"
)

const (
	appName        = "relbuild"
	appDescription = "Reproducible build and release pipeline for the gh-jj CLI"
	appURL         = "https://github.com/b-harvest/relbuild"
)

// Info contains all version and build information.
type Info struct {
	Name      string   `json:"name" yaml:"name"`
	Version   string   `json:"version" yaml:"version"`
	GitCommit string   `json:"commit" yaml:"commit"`
	BuildDate string   `json:"build_date,omitempty" yaml:"build_date,omitempty"`
	GoVersion string   `json:"go" yaml:"go"`
	Platform  string   `json:"platform" yaml:"platform"`
	BuildDeps []string `json:"build_deps,omitempty" yaml:"build_deps,omitempty"`

	details goversion.Info
}

// NewInfo collects version information, preferring ldflags values over
// what the Go runtime embedded in the binary.
func NewInfo() Info {
	details := goversion.GetVersionInfo(
		goversion.WithAppDetails(appName, appDescription, appURL),
		func(i *goversion.Info) {
			if Version != "" {
				i.GitVersion = Version
			}
			if GitCommit != "" && GitCommit != "unknown" {
				i.GitCommit = GitCommit
			}
			if BuildDate != "" && BuildDate != "unknown" {
				i.BuildDate = BuildDate
			}
		},
	)

	return Info{
		Name:      appName,
		Version:   details.GitVersion,
		GitCommit: details.GitCommit,
		BuildDate: details.BuildDate,
		GoVersion: details.GoVersion,
		Platform:  details.Platform,
		details:   details,
	}
}

// WithBuildDeps populates the module dependencies from runtime/debug.
func (i Info) WithBuildDeps() Info {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return i
	}

	deps := make([]string, 0, len(buildInfo.Deps))
	for _, dep := range buildInfo.Deps {
		depStr := fmt.Sprintf("%s@%s", dep.Path, dep.Version)
		if dep.Replace != nil {
			depStr = fmt.Sprintf("%s@%s => %s@%s", dep.Path, dep.Version, dep.Replace.Path, dep.Replace.Version)
		}
		deps = append(deps, depStr)
	}
	sort.Strings(deps)
	i.BuildDeps = deps
	return i
}

// String returns a short human readable summary.
func (i Info) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s version %s\n", i.Name, i.Version))
	sb.WriteString(fmt.Sprintf("  commit:     %s\n", i.GitCommit))
	sb.WriteString(fmt.Sprintf("  build date: %s\n", i.BuildDate))
	sb.WriteString(fmt.Sprintf("  go:         %s\n", i.GoVersion))
	sb.WriteString(fmt.Sprintf("  platform:   %s\n", i.Platform))
	return sb.String()
}

// LongString returns a YAML document including build dependencies.
func (i Info) LongString() string {
	data, err := yaml.Marshal(i)
	if err != nil {
		return i.String()
	}
	return string(data)
}

// JSON returns the version info as a JSON string.
func (i Info) JSON() (string, error) {
	return i.details.JSONString()
}

// NewCmd creates the version command.
func NewCmd() *cobra.Command {
	var (
		long       bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  "Print version information including build details. Use --long for dependency info.",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := NewInfo()
			out := cmd.OutOrStdout()

			if jsonOutput {
				s, err := info.JSON()
				if err != nil {
					return err
				}
				fmt.Fprintln(out, s)
				return nil
			}

			if long {
				fmt.Fprint(out, info.WithBuildDeps().LongString())
				return nil
			}
			fmt.Fprint(out, info.String())
			return nil
		},
	}

	cmd.Flags().BoolVar(&long, "long", false, "Show detailed version info including build dependencies")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info in JSON format")

	return cmd
}
