// Package ports defines the interfaces (ports) that the application layer
// requires from the infrastructure layer.
package ports

import "io"

// Logger defines the logging interface for the application layer.
type Logger interface {
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
	Debug(format string, args ...interface{})
	Success(format string, args ...interface{})

	Print(format string, args ...interface{})
	Println(format string, args ...interface{})

	SetVerbose(verbose bool)
	IsVerbose() bool

	// Writer access for streaming toolchain output
	Writer() io.Writer
	ErrWriter() io.Writer
}
