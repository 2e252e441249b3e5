package ports

// StepProgress represents progress for one pipeline stage.
type StepProgress struct {
	Name   string // "Building dependencies", "Packaging", etc.
	Status string // "running", "completed", "failed"
	Detail string // "from cache", "gh-jj-linux-amd64", etc.
	Error  string
}

// Step status values.
const (
	StepRunning   = "running"
	StepCompleted = "completed"
	StepFailed    = "failed"
)

// ProgressReporter allows operations to report progress updates.
type ProgressReporter interface {
	ReportStep(step StepProgress)
}

// ProgressFunc is a simple function adapter for ProgressReporter.
type ProgressFunc func(step StepProgress)

// ReportStep implements ProgressReporter.
func (f ProgressFunc) ReportStep(step StepProgress) {
	if f != nil {
		f(step)
	}
}

// NilProgressReporter is a no-op progress reporter for when progress isn't needed.
var NilProgressReporter ProgressReporter = ProgressFunc(nil)
