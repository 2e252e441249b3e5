package main

import (
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/b-harvest/relbuild/internal/application/ports"
	"github.com/b-harvest/relbuild/internal/domain/release"
	"github.com/b-harvest/relbuild/internal/output"
)

// stageReporter renders pipeline stages as "[N/M] stage..." lines and gate
// checks as indented status lines. Gate checks report concurrently.
type stageReporter struct {
	mu       sync.Mutex
	progress *output.Progress
	logger   *output.Logger
}

func newStageReporter(total int, logger *output.Logger) *stageReporter {
	p := output.NewProgressWithWriter(logger.Writer(), total)
	p.SetJSONMode(logger.IsJSONMode())
	return &stageReporter{progress: p, logger: logger}
}

// ReportStep implements ports.ProgressReporter.
func (r *stageReporter) ReportStep(step ports.StepProgress) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, isCheck := release.ParseCheckName(step.Name); isCheck {
		r.reportCheck(step)
		return
	}

	switch step.Status {
	case ports.StepRunning:
		r.progress.Stage(step.Name)
	case ports.StepCompleted:
		if step.Detail != "" {
			r.logger.Debug("%s: %s", step.Name, step.Detail)
		}
	case ports.StepFailed:
		r.logger.Debug("%s failed: %s", step.Name, step.Error)
	}
}

func (r *stageReporter) reportCheck(step ports.StepProgress) {
	switch step.Status {
	case ports.StepRunning:
		r.logger.Debug("  %s: running", step.Name)
	case ports.StepCompleted:
		r.logger.Println("  %s %s", output.PassFail(true), step.Name)
	case ports.StepFailed:
		r.logger.Println("  %s %s %s", output.PassFail(false), step.Name,
			color.New(color.FgHiBlack).Sprint(firstLine(step.Error)))
	}
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
