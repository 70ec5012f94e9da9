package toolset

import (
	"fmt"
	"os"
	"strings"
)

// DefaultContextLines is the context window applied when a tool call
// omits or zeroes the parameter.
const DefaultContextLines = 5

// SearchWindow returns every line of one file containing text, each
// with contextLines of surrounding context, numbered and delimited.
// "no matches" is a valid result, not an error; unreadable paths
// degrade to an error string.
func (t *Toolset) SearchWindow(path, text string, contextLines int) string {
	if text == "" {
		return "error: empty search text"
	}
	if contextLines < 0 {
		contextLines = DefaultContextLines
	}

	abs, err := t.resolve(path)
	if err != nil {
		return fmt.Sprintf("error: %v", err)
	}
	content, err := os.ReadFile(abs)
	if err != nil {
		return fmt.Sprintf("error: could not read %s: %v", path, err)
	}

	lines := strings.Split(string(content), "\n")
	var matches []int
	for i, line := range lines {
		if strings.Contains(line, text) {
			matches = append(matches, i)
		}
	}

	if len(matches) == 0 {
		return fmt.Sprintf("no matches for %q in %s", text, path)
	}

	return renderWindows(path, lines, matches, contextLines)
}

// renderWindows formats match windows, merging overlapping ranges and
// marking matched lines with >. Shared by SearchWindow and the
// repository search so both delegation paths emit one shape.
func renderWindows(path string, lines []string, matches []int, contextLines int) string {
	matched := make(map[int]bool, len(matches))
	for _, m := range matches {
		matched[m] = true
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s:\n", path)

	prevEnd := -1
	for _, m := range matches {
		start := m - contextLines
		if start < 0 {
			start = 0
		}
		end := m + contextLines
		if end > len(lines)-1 {
			end = len(lines) - 1
		}
		if start <= prevEnd {
			start = prevEnd + 1
		}
		if start > prevEnd+1 && prevEnd >= 0 {
			b.WriteString("  --\n")
		}
		for i := start; i <= end; i++ {
			marker := " "
			if matched[i] {
				marker = ">"
			}
			fmt.Fprintf(&b, "%s%5d: %s\n", marker, i+1, lines[i])
		}
		prevEnd = end
	}

	return b.String()
}
