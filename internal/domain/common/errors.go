// Package common provides error behaviours shared by every relbuild component.
package common

import "errors"

// The interfaces below describe how an error should be presented. The
// presentation layer checks for them; domain and infrastructure errors
// implement whichever apply.

// SilenceUsageError is implemented by errors that should NOT trigger
// CLI usage information: the command syntax was correct but the
// operation failed.
type SilenceUsageError interface {
	error
	ShouldSilenceUsage() bool
}

// UserFacingError is implemented by errors that carry a message meant to be
// shown to the user instead of the raw error chain.
type UserFacingError interface {
	error
	UserMessage() string
}

// RecoverableError is implemented by errors that suggest a recovery action.
type RecoverableError interface {
	error
	RecoveryHint() string
}

// ComponentError is implemented by errors raised by a named pipeline
// component (resolver, dependency cache builder, project builder, validation
// gate, release packager).
type ComponentError interface {
	error
	Component() string
}

// ShouldSilenceUsage checks if an error anywhere in the chain asks to
// silence CLI usage output.
func ShouldSilenceUsage(err error) bool {
	var sue SilenceUsageError
	if errors.As(err, &sue) {
		return sue.ShouldSilenceUsage()
	}
	return false
}

// GetUserMessage extracts a user-friendly message from an error, falling
// back to the standard Error() text.
func GetUserMessage(err error) string {
	if err == nil {
		return ""
	}
	var ufe UserFacingError
	if errors.As(err, &ufe) {
		if msg := ufe.UserMessage(); msg != "" {
			return msg
		}
	}
	return err.Error()
}

// GetRecoveryHint extracts a recovery hint from an error.
// Returns empty string if no hint is available.
func GetRecoveryHint(err error) string {
	var re RecoverableError
	if errors.As(err, &re) {
		return re.RecoveryHint()
	}
	return ""
}

// GetComponent returns the name of the component that raised err, if any.
func GetComponent(err error) string {
	var ce ComponentError
	if errors.As(err, &ce) {
		return ce.Component()
	}
	return ""
}
