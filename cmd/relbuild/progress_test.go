package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/b-harvest/relbuild/internal/application/pipeline"
	"github.com/b-harvest/relbuild/internal/application/ports"
	"github.com/b-harvest/relbuild/internal/output"
)

func TestStageReporter(t *testing.T) {
	var out bytes.Buffer
	logger := output.NewLoggerWithWriters(&out, &out)
	logger.SetNoColor(true)

	r := newStageReporter(2, logger)
	r.ReportStep(ports.StepProgress{Name: pipeline.StepSnapshot, Status: ports.StepRunning})
	r.ReportStep(ports.StepProgress{Name: "lint", Status: ports.StepFailed, Error: "clippy reported 2 errors\nwarning: unused"})
	r.ReportStep(ports.StepProgress{Name: "format", Status: ports.StepCompleted})
	r.ReportStep(ports.StepProgress{Name: pipeline.StepDeps, Status: ports.StepRunning})

	got := out.String()
	assert.Contains(t, got, "[1/2] "+pipeline.StepSnapshot+"...")
	assert.Contains(t, got, "[2/2] "+pipeline.StepDeps+"...")
	assert.Contains(t, got, "FAIL lint clippy reported 2 errors")
	assert.NotContains(t, got, "warning: unused")
	assert.Contains(t, got, "PASS format")
}

func TestStageReporter_JSONModeIsSilent(t *testing.T) {
	var out bytes.Buffer
	logger := output.NewLoggerWithWriters(&out, &out)
	logger.SetJSONMode(true)

	r := newStageReporter(1, logger)
	r.ReportStep(ports.StepProgress{Name: pipeline.StepSnapshot, Status: ports.StepRunning})
	r.ReportStep(ports.StepProgress{Name: "build", Status: ports.StepCompleted})
	assert.Empty(t, out.String())
}
