package output

import (
	"io"
	"os"
	"time"

	"github.com/fatih/color"
)

// Progress provides progress indication for multi-step operations.
type Progress struct {
	out      io.Writer
	total    int
	current  int
	jsonMode bool
	started  time.Time
}

// NewProgress creates a new Progress instance with the given total steps.
func NewProgress(total int) *Progress {
	return &Progress{
		out:     os.Stdout,
		total:   total,
		started: time.Now(),
	}
}

// NewProgressWithWriter creates a Progress that writes to w.
func NewProgressWithWriter(w io.Writer, total int) *Progress {
	p := NewProgress(total)
	p.out = w
	return p
}

// SetJSONMode enables JSON output mode (suppresses text output).
func (p *Progress) SetJSONMode(jsonMode bool) {
	p.jsonMode = jsonMode
}

// Stage prints a progress stage message in format [N/M] Description...
func (p *Progress) Stage(description string) {
	p.current++
	if p.jsonMode {
		return
	}
	cyan := color.New(color.FgCyan)
	cyan.Fprintf(p.out, "[%d/%d] %s...\n", p.current, p.total, description)
}

// SetTotal updates the total number of steps.
func (p *Progress) SetTotal(total int) {
	p.total = total
}

// Current returns the current step number.
func (p *Progress) Current() int {
	return p.current
}

// Total returns the total number of steps.
func (p *Progress) Total() int {
	return p.total
}

// Elapsed returns the time since the progress was created.
func (p *Progress) Elapsed() time.Duration {
	return time.Since(p.started)
}

// Done prints a completion message.
func (p *Progress) Done(message string) {
	if p.jsonMode {
		return
	}
	green := color.New(color.FgGreen)
	green.Fprintf(p.out, "\n✓ %s (%s)\n", message, p.Elapsed().Round(time.Millisecond))
}
