// Package tomlutil checks TOML documents against relbuild's canonical layout.
package tomlutil

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Violation is one deviation from the canonical layout.
type Violation struct {
	Line    int // 1-based; 0 for whole-document problems
	Message string
}

func (v Violation) String() string {
	if v.Line == 0 {
		return v.Message
	}
	return fmt.Sprintf("line %d: %s", v.Line, v.Message)
}

// Check returns every violation in data. A document that does not parse is
// reported as a single violation.
//
// Canonical layout:
//   - no tabs in indentation and no trailing whitespace
//   - table headers unindented and written without inner padding
//   - exactly one space on each side of '=' in key/value pairs
//   - no leading blank lines and never two blank lines in a row
//   - exactly one trailing newline
//
// Lines inside multi-line strings are exempt from the line rules.
func Check(data []byte) []Violation {
	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return []Violation{{Message: "invalid TOML: " + err.Error()}}
	}
	if len(data) == 0 {
		return nil
	}

	var out []Violation
	lines := strings.Split(string(data), "\n")
	// A trailing newline yields a final empty element that is not a line.
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	sc := &scanner{}
	blankRun := 0
	for i, line := range lines {
		n := i + 1
		if sc.inMultiline() {
			sc.scan(line)
			continue
		}

		if strings.TrimSpace(line) == "" {
			blankRun++
			if n == 1 {
				out = append(out, Violation{n, "leading blank line"})
			} else if blankRun == 2 {
				out = append(out, Violation{n, "more than one consecutive blank line"})
			}
			if line != "" {
				out = append(out, Violation{n, "trailing whitespace"})
			}
			continue
		}
		blankRun = 0

		if strings.TrimRight(line, " \t") != line {
			out = append(out, Violation{n, "trailing whitespace"})
		}
		indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		if strings.Contains(indent, "\t") {
			out = append(out, Violation{n, "tab in indentation"})
		}

		body := strings.TrimSpace(line)
		if sc.depth == 0 && strings.HasPrefix(body, "[") {
			out = append(out, checkHeader(n, indent, body)...)
			continue
		}
		if sc.depth == 0 && !strings.HasPrefix(body, "#") {
			if v, ok := checkAssignment(n, body); !ok {
				out = append(out, v)
			}
		}
		sc.scan(line)
	}

	switch {
	case !bytes.HasSuffix(data, []byte("\n")):
		out = append(out, Violation{Message: "missing final newline"})
	case bytes.HasSuffix(data, []byte("\n\n")):
		out = append(out, Violation{Message: "trailing blank lines at end of file"})
	}
	return out
}

func checkHeader(n int, indent, body string) []Violation {
	var out []Violation
	if indent != "" {
		out = append(out, Violation{n, "indented table header"})
	}
	header := stripComment(body)
	open, close := "[", "]"
	if strings.HasPrefix(header, "[[") {
		open, close = "[[", "]]"
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(header, open), close)
	if inner != strings.TrimSpace(inner) {
		out = append(out, Violation{n, fmt.Sprintf("padding inside table header %s", header)})
	}
	return out
}

// checkAssignment verifies "key = value" spacing on a key/value line.
func checkAssignment(n int, body string) (Violation, bool) {
	eq := indexOutsideQuotes(body, '=')
	if eq < 0 {
		return Violation{}, true
	}
	left, right := body[:eq], body[eq+1:]
	if !strings.HasSuffix(left, " ") || strings.HasSuffix(left, "  ") ||
		!strings.HasPrefix(right, " ") || strings.HasPrefix(right, "  ") {
		return Violation{n, "expected exactly one space around '='"}, false
	}
	return Violation{}, true
}

// stripComment removes a trailing comment outside of strings.
func stripComment(s string) string {
	if i := indexOutsideQuotes(s, '#'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}

func indexOutsideQuotes(s string, target byte) int {
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote == '"' && c == '\\':
			i++
		case quote != 0 && c == quote:
			quote = 0
		case quote != 0:
		case c == '"' || c == '\'':
			quote = c
		case c == target:
			return i
		}
	}
	return -1
}

// scanner tracks multi-line strings and open arrays across lines.
type scanner struct {
	multiline string // `"""` or `'''` while inside a multi-line string
	depth     int    // open '[' of multi-line array values
}

func (s *scanner) inMultiline() bool {
	return s.multiline != ""
}

func (s *scanner) scan(line string) {
	for i := 0; i < len(line); i++ {
		if s.multiline != "" {
			if s.multiline == `"""` && line[i] == '\\' {
				i++
				continue
			}
			if strings.HasPrefix(line[i:], s.multiline) {
				i += 2
				s.multiline = ""
			}
			continue
		}
		c := line[i]
		switch {
		case c == '#':
			return
		case strings.HasPrefix(line[i:], `"""`), strings.HasPrefix(line[i:], `'''`):
			s.multiline = line[i : i+3]
			i += 2
		case c == '"' || c == '\'':
			i = skipString(line, i)
		case c == '[':
			s.depth++
		case c == ']':
			if s.depth > 0 {
				s.depth--
			}
		}
	}
}

// skipString returns the index of the closing quote of the single-line
// string starting at i.
func skipString(line string, i int) int {
	q := line[i]
	for j := i + 1; j < len(line); j++ {
		if q == '"' && line[j] == '\\' {
			j++
			continue
		}
		if line[j] == q {
			return j
		}
	}
	return len(line)
}

// Format rewrites data to the canonical layout. Lines inside multi-line
// strings are kept verbatim.
func Format(data []byte) ([]byte, error) {
	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid TOML: %w", err)
	}

	var out []string
	sc := &scanner{}
	for _, line := range strings.Split(string(data), "\n") {
		if sc.inMultiline() {
			out = append(out, line)
			sc.scan(line)
			continue
		}
		if strings.TrimSpace(line) == "" {
			if len(out) > 0 && out[len(out)-1] != "" {
				out = append(out, "")
			}
			continue
		}

		trimmed := strings.TrimRight(line, " \t")
		body := strings.TrimLeft(trimmed, " \t")
		indent := strings.ReplaceAll(trimmed[:len(trimmed)-len(body)], "\t", "    ")

		switch {
		case sc.depth == 0 && strings.HasPrefix(body, "["):
			out = append(out, formatHeader(body))
		case sc.depth == 0 && !strings.HasPrefix(body, "#"):
			if eq := indexOutsideQuotes(body, '='); eq >= 0 {
				body = strings.TrimRight(body[:eq], " \t") + " = " + strings.TrimLeft(body[eq+1:], " \t")
			}
			out = append(out, indent+body)
		default:
			out = append(out, indent+body)
		}
		sc.scan(line)
	}

	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	if len(out) == 0 {
		return []byte{}, nil
	}
	return []byte(strings.Join(out, "\n") + "\n"), nil
}

func formatHeader(body string) string {
	var comment string
	if i := indexOutsideQuotes(body, '#'); i >= 0 {
		comment = " " + body[i:]
		body = strings.TrimSpace(body[:i])
	}
	open, close := "[", "]"
	if strings.HasPrefix(body, "[[") {
		open, close = "[[", "]]"
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(body, open), close)
	return open + strings.TrimSpace(inner) + close + comment
}

// Checker adapts Check to the config format checking port.
type Checker struct{}

// NewChecker creates a Checker.
func NewChecker() *Checker {
	return &Checker{}
}

// Check implements ports.ConfigFormatChecker.
func (Checker) Check(name string, data []byte) []string {
	violations := Check(data)
	out := make([]string, len(violations))
	for i, v := range violations {
		out[i] = name + ": " + v.String()
	}
	return out
}
