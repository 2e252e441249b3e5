package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/b-harvest/relbuild/internal/config"
	"github.com/b-harvest/relbuild/internal/domain/common"
	"github.com/b-harvest/relbuild/internal/output"
)

// errAlreadyReported signals failure after the message has been printed.
var errAlreadyReported = errors.New("")

// handleCommandError prints err with its component and recovery hint and
// returns an error that only sets the exit code.
func handleCommandError(cmd *cobra.Command, err error) error {
	if err == nil {
		return nil
	}
	if common.ShouldSilenceUsage(err) {
		cmd.SilenceUsage = true
	}
	printCommandError(cmd.ErrOrStderr(), err)
	cmd.SilenceErrors = true
	return errAlreadyReported
}

func printCommandError(w io.Writer, err error) {
	fmt.Fprintln(w, output.RedSeparator())
	if component := common.GetComponent(err); component != "" {
		fmt.Fprintf(w, "Error [%s]: %s\n", component, common.GetUserMessage(err))
	} else {
		fmt.Fprintf(w, "Error: %s\n", common.GetUserMessage(err))
	}
	if hint := common.GetRecoveryHint(err); hint != "" {
		fmt.Fprintf(w, "\nHint: %s\n", hint)
	}
	fmt.Fprintln(w, output.RedSeparator())
}

// wrapInteractiveError treats a cancelled prompt as a clean exit.
func wrapInteractiveError(cmd *cobra.Command, err error) error {
	if errors.Is(err, config.ErrSetupCancelled) {
		output.Info("Operation cancelled.")
		return nil
	}
	return handleCommandError(cmd, err)
}
