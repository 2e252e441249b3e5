package output

import (
	"errors"
	"fmt"

	"github.com/manifoldco/promptui"
)

// ErrPromptUnavailable is returned when confirmation is required but stdin is not a terminal.
var ErrPromptUnavailable = errors.New("confirmation required but stdin is not a terminal (use --force)")

// ConfirmPrompt asks for user confirmation and returns true if confirmed.
// A declined or aborted prompt is reported as false without an error.
func ConfirmPrompt(message string) (bool, error) {
	if !IsInteractive() {
		return false, ErrPromptUnavailable
	}

	prompt := promptui.Prompt{
		Label:     message,
		IsConfirm: true,
	}

	_, err := prompt.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrAbort) || errors.Is(err, promptui.ErrInterrupt) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read response: %w", err)
	}
	return true, nil
}
