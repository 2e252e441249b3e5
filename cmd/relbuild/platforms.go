package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/b-harvest/relbuild/internal/domain/platform"
)

// NewPlatformsCmd creates the platforms command.
func NewPlatformsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "platforms",
		Short: "List the known release platforms",
		Long: `List every release platform relbuild knows, with the compiler triple that
produces binaries for it. Select one with --platform, or set the triple and
tag independently with --triple/--tag (COMPILER_TRIPLE/PLATFORM_TAG).`,
		Args: cobra.NoArgs,
		RunE: runPlatforms,
	}
}

func runPlatforms(cmd *cobra.Command, args []string) error {
	all := platform.All()
	out := cmd.OutOrStdout()

	if cfg.JSON.Value {
		data, err := json.MarshalIndent(all, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PLATFORM\tTRIPLE\tOS\tARCH")
	for _, p := range all {
		name := p.Name
		if name == platform.DefaultTag {
			name += " (default)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", name, p.Triple, p.OS, p.Arch)
	}
	return tw.Flush()
}

func completePlatforms(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return platform.Names(), cobra.ShellCompDirectiveNoFileComp
}
