package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/b-harvest/relbuild/internal/application/dto"
	"github.com/b-harvest/relbuild/internal/output"
)

// NewCacheCmd creates the cache command group.
func NewCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the dependency store",
		Long: `Manage the store of compiled third-party dependencies.

Entries are keyed by the dependency fingerprint (manifest and lockfile) and
the compiler triple. A build reuses an entry instead of recompiling the
dependencies; changing the lockfile or the triple produces a new entry.

Examples:
  # List entries
  relbuild cache list

  # Show one entry
  relbuild cache info <key>

  # Remove entries older than cache_ttl (default 168h)
  relbuild cache clean`,
	}

	cmd.AddCommand(
		NewCacheListCmd(),
		NewCacheInfoCmd(),
		NewCacheCleanCmd(),
	)
	return cmd
}

// NewCacheListCmd creates the cache list command.
func NewCacheListCmd() *cobra.Command {
	var triple string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List dependency store entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheList(cmd, triple)
		},
	}
	cmd.Flags().StringVar(&triple, "triple", "", "Only entries for this compiler triple")
	return cmd
}

func runCacheList(cmd *cobra.Command, triple string) error {
	result, err := newContainer().CacheListUseCase().Execute(cmd.Context(), dto.CacheListInput{Triple: triple})
	if err != nil {
		return handleCommandError(cmd, err)
	}

	out := cmd.OutOrStdout()
	if cfg.JSON.Value {
		return writeJSON(out, result)
	}
	if len(result.Entries) == 0 {
		fmt.Fprintln(out, "No cached dependency builds found.")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Dependencies are cached the first time you run:")
		fmt.Fprintln(out, "  relbuild build")
		return nil
	}

	output.Bold("Cached Dependency Builds")
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tTRIPLE\tCREATED\tSIZE")
	for _, e := range result.Entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			e.Key, e.Triple, e.CreatedAt.Local().Format("2006-01-02 15:04:05"), output.FormatBytes(e.Size))
	}
	tw.Flush()
	fmt.Fprintf(out, "\nTotal: %d entries, %s\n", len(result.Entries), output.FormatBytes(result.TotalSize))
	return nil
}

// NewCacheInfoCmd creates the cache info command.
func NewCacheInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info [key]",
		Short: "Show a dependency store entry, or store totals",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runCacheInfo,
	}
}

func runCacheInfo(cmd *cobra.Command, args []string) error {
	input := dto.CacheInfoInput{}
	if len(args) == 1 {
		input.Key = args[0]
	}

	result, err := newContainer().CacheInfoUseCase().Execute(cmd.Context(), input)
	if err != nil {
		return handleCommandError(cmd, err)
	}

	out := cmd.OutOrStdout()
	if cfg.JSON.Value {
		return writeJSON(out, result)
	}
	if e := result.Entry; e != nil {
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "Key:\t%s\n", e.Key)
		fmt.Fprintf(tw, "Triple:\t%s\n", e.Triple)
		fmt.Fprintf(tw, "Fingerprint:\t%s\n", e.Fingerprint)
		fmt.Fprintf(tw, "Created:\t%s (%s ago)\n", e.CreatedAt.Local().Format(time.RFC3339), time.Since(e.CreatedAt).Round(time.Second))
		fmt.Fprintf(tw, "Run:\t%s\n", e.RunID)
		fmt.Fprintf(tw, "Size:\t%s\n", output.FormatBytes(e.Size))
		fmt.Fprintf(tw, "Path:\t%s\n", e.Path)
		tw.Flush()
		fmt.Fprintln(out)
	}
	fmt.Fprintf(out, "Store: %d entries, %s\n", result.TotalEntries, output.FormatBytes(result.TotalSize))
	return nil
}

// NewCacheCleanCmd creates the cache clean command.
func NewCacheCleanCmd() *cobra.Command {
	var (
		olderThan time.Duration
		all       bool
		force     bool
	)

	cmd := &cobra.Command{
		Use:   "clean [key...]",
		Short: "Remove dependency store entries",
		Long: `Remove dependency store entries.

With keys, removes exactly those entries. Otherwise removes every entry older
than --older-than (default: the cache_ttl setting), or every entry with --all.
The next build recompiles whatever it needs.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheClean(cmd, args, olderThan, all, force)
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Remove entries older than this age (default: cache_ttl)")
	cmd.Flags().BoolVar(&all, "all", false, "Remove every entry")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation prompt")
	cmd.MarkFlagsMutuallyExclusive("older-than", "all")

	return cmd
}

func runCacheClean(cmd *cobra.Command, keys []string, olderThan time.Duration, all, force bool) error {
	input := dto.CacheCleanInput{Keys: keys}
	var what string
	switch {
	case len(keys) > 0:
		what = fmt.Sprintf("%d cache entries", len(keys))
	case all:
		what = "every cache entry"
	default:
		if !cmd.Flags().Changed("older-than") {
			age, err := cfg.CacheAge()
			if err != nil {
				return handleCommandError(cmd, err)
			}
			olderThan = age
		}
		input.OlderThan = olderThan
		what = fmt.Sprintf("cache entries older than %s", olderThan)
	}

	if !force {
		ok, err := output.ConfirmPrompt(fmt.Sprintf("Remove %s", what))
		if err != nil {
			return handleCommandError(cmd, err)
		}
		if !ok {
			output.Info("Operation cancelled.")
			return nil
		}
	}

	result, err := newContainer().CacheCleanUseCase().Execute(cmd.Context(), input)
	if err != nil {
		return handleCommandError(cmd, err)
	}

	if cfg.JSON.Value {
		return writeJSON(cmd.OutOrStdout(), result)
	}
	if len(result.Removed) == 0 {
		output.Info("Nothing to remove.")
		return nil
	}
	output.Success("Removed %d entries, freed %s", len(result.Removed), output.FormatBytes(result.SpaceFreed))
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
