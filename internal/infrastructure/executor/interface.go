package executor

import (
	"context"
	"io"
	"strings"
	"time"
)

// Command is one subprocess invocation.
type Command struct {
	Name string
	Args []string
	Dir  string
	// Env entries are appended to the current process environment.
	Env []string
	// Stream, if set, receives stdout and stderr as they are produced in
	// addition to the captured copies.
	Stream io.Writer
}

// String renders the command line for logs.
func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Result is the captured outcome of a command that was started.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// CommandExecutor abstracts command execution for testing.
//
// Run returns a non-nil Result whenever the process was started, even if it
// exited non-zero; in that case the error is an *ExitError. Failures to start
// the process return a nil Result.
type CommandExecutor interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}
