package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"
)

// ExitError reports a command that ran and exited with a non-zero status.
type ExitError struct {
	Command  string
	ExitCode int
	Err      error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Command, e.ExitCode)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// OSCommandExecutor implements CommandExecutor using the os/exec package.
type OSCommandExecutor struct{}

// NewOSCommandExecutor creates a new command executor using the real OS exec package.
func NewOSCommandExecutor() *OSCommandExecutor {
	return &OSCommandExecutor{}
}

// Run executes cmd with exec.CommandContext. The process is killed when ctx
// is cancelled.
func (e *OSCommandExecutor) Run(ctx context.Context, cmd Command) (*Result, error) {
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}

	var stdout, stderr bytes.Buffer
	if cmd.Stream != nil {
		c.Stdout = io.MultiWriter(&stdout, cmd.Stream)
		c.Stderr = io.MultiWriter(&stderr, cmd.Stream)
	} else {
		c.Stdout = &stdout
		c.Stderr = &stderr
	}

	start := time.Now()
	err := c.Run()
	res := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if err == nil {
		return res, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, &ExitError{Command: cmd.String(), ExitCode: res.ExitCode, Err: err}
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("%s: %w", cmd.String(), ctx.Err())
	}
	return nil, fmt.Errorf("failed to run %s: %w", cmd.String(), err)
}
