package output

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

const (
	// SeparatorWidth is the width of separator lines.
	SeparatorWidth = 60

	SeparatorChar = "─"
)

// Separator returns a separator line of the default width.
func Separator() string {
	return strings.Repeat(SeparatorChar, SeparatorWidth)
}

// ColoredSeparator returns a colored separator line.
func ColoredSeparator(c *color.Color) string {
	return c.Sprint(Separator())
}

// RedSeparator returns a red separator line for errors.
func RedSeparator() string {
	return ColoredSeparator(color.New(color.FgRed))
}

// FormatBytes renders a byte count with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// PassFail renders a check status word, green for pass and red for fail.
func PassFail(passed bool) string {
	if passed {
		return color.New(color.FgGreen).Sprint("PASS")
	}
	return color.New(color.FgRed).Sprint("FAIL")
}
