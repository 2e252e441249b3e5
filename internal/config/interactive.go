package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/manifoldco/promptui"
	"golang.org/x/term"

	"github.com/b-harvest/relbuild/internal/domain/platform"
)

// InteractiveSetup walks the user through the main relbuild.toml keys.
type InteractiveSetup struct {
	writer   *ConfigWriter
	defaults *FileConfig
	out      io.Writer
}

// NewInteractiveSetup creates a new InteractiveSetup writing into dir.
func NewInteractiveSetup(dir string) *InteractiveSetup {
	return &InteractiveSetup{
		writer:   NewConfigWriter(dir),
		defaults: &FileConfig{},
		out:      os.Stdout,
	}
}

// IsInteractive returns true if the terminal supports interactive input.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Writer returns the writer the setup saves through.
func (s *InteractiveSetup) Writer() *ConfigWriter {
	return s.writer
}

// LoadDefaults loads an existing relbuild.toml to seed the prompts.
func (s *InteractiveSetup) LoadDefaults() *FileConfig {
	if !s.writer.Exists() {
		return s.defaults
	}
	cfg, err := LoadFile(s.writer.Path())
	if err != nil {
		return s.defaults
	}
	s.defaults = cfg
	return cfg
}

// Run executes the interactive configuration flow.
func (s *InteractiveSetup) Run() (*FileConfig, error) {
	cfg := s.LoadDefaults()

	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, "relbuild project setup. Press Ctrl+C at any time to cancel.")
	fmt.Fprintln(s.out)

	p, err := s.promptPlatform(cfg)
	if err != nil {
		return nil, err
	}
	cfg.Platform = &p
	// the platform entry supersedes any separately stored pair
	cfg.CompilerTriple = nil
	cfg.PlatformTag = nil

	output, err := s.promptString("Release output directory", cfg.OutputDir, "release")
	if err != nil {
		return nil, err
	}
	cfg.OutputDir = &output

	requireChecks, err := s.promptYesNo("Require validation checks before packaging", cfg.RequireChecks)
	if err != nil {
		return nil, err
	}
	cfg.RequireChecks = &requireChecks

	jobs, err := s.promptJobs(cfg)
	if err != nil {
		return nil, err
	}
	cfg.Jobs = &jobs

	return cfg, nil
}

// RunWithDefaults returns the starter config used when stdin is not a terminal.
func (s *InteractiveSetup) RunWithDefaults() *FileConfig {
	name := platform.DefaultTag
	output := "release"
	return &FileConfig{
		Platform:  &name,
		OutputDir: &output,
	}
}

// WriteConfig writes the configuration to relbuild.toml.
func (s *InteractiveSetup) WriteConfig(cfg *FileConfig) error {
	return s.writer.Write(cfg)
}

func (s *InteractiveSetup) promptPlatform(cfg *FileConfig) (string, error) {
	all := platform.All()
	cursor := 0
	current := platform.DefaultTag
	if cfg.Platform != nil {
		current = *cfg.Platform
	}
	for i, p := range all {
		if p.Name == current {
			cursor = i
		}
	}

	prompt := promptui.Select{
		Label:     "Select release platform",
		Items:     all,
		CursorPos: cursor,
		Size:      len(all),
		Templates: &promptui.SelectTemplates{
			Label:    "{{ . }}",
			Active:   "▸ {{ .Name | cyan }} ({{ .Triple }})",
			Inactive: "  {{ .Name }} ({{ .Triple }})",
			Selected: "✓ Platform: {{ .Name | green }}",
		},
	}
	idx, _, err := prompt.Run()
	if err != nil {
		return "", handlePromptError(err)
	}
	return all[idx].Name, nil
}

func (s *InteractiveSetup) promptString(label string, current *string, def string) (string, error) {
	if current != nil {
		def = *current
	}
	prompt := promptui.Prompt{
		Label:   label,
		Default: def,
		Validate: func(input string) error {
			if input == "" {
				return errors.New("value must not be empty")
			}
			return nil
		},
	}
	result, err := prompt.Run()
	if err != nil {
		return "", handlePromptError(err)
	}
	return result, nil
}

func (s *InteractiveSetup) promptYesNo(label string, current *bool) (bool, error) {
	items := []string{"no", "yes"}
	cursor := 0
	if current != nil && *current {
		cursor = 1
	}
	prompt := promptui.Select{
		Label:     label,
		Items:     items,
		CursorPos: cursor,
	}
	_, result, err := prompt.Run()
	if err != nil {
		return false, handlePromptError(err)
	}
	return result == "yes", nil
}

func (s *InteractiveSetup) promptJobs(cfg *FileConfig) (int, error) {
	def := DefaultJobs
	if cfg.Jobs != nil {
		def = *cfg.Jobs
	}
	prompt := promptui.Prompt{
		Label:   "Parallel validation checks (0 = unlimited)",
		Default: strconv.Itoa(def),
		Validate: func(input string) error {
			n, err := strconv.Atoi(input)
			if err != nil {
				return errors.New("must be a number")
			}
			return validateJobs(n)
		},
	}
	result, err := prompt.Run()
	if err != nil {
		return 0, handlePromptError(err)
	}
	return strconv.Atoi(result)
}

// handlePromptError converts promptui errors to user-friendly messages.
func handlePromptError(err error) error {
	switch {
	case errors.Is(err, promptui.ErrInterrupt):
		return ErrSetupCancelled
	case errors.Is(err, promptui.ErrEOF):
		return fmt.Errorf("%w (EOF)", ErrSetupCancelled)
	}
	return err
}

// ErrSetupCancelled is returned when the user aborts an interactive prompt.
var ErrSetupCancelled = errors.New("configuration cancelled")
