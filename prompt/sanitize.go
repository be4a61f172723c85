package prompt

import (
	"regexp"
	"strings"
)

// ansiColor matches the SGR and cursor-column escape sequences that notebook
// kernels emit around tracebacks.
var ansiColor = regexp.MustCompile(`\x1b\[[0-9;]*[mG]`)

// Sanitize strips ANSI color sequences from captured error output and trims
// the surrounding whitespace of every line.
func Sanitize(raw string) string {
	if raw == "" {
		return ""
	}

	// Removing one sequence can join the halves of another, so repeat until stable.
	cleaned := raw
	for ansiColor.MatchString(cleaned) {
		cleaned = ansiColor.ReplaceAllString(cleaned, "")
	}

	lines := strings.Split(cleaned, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.Join(lines, "\n")
}
