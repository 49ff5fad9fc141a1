package common

import (
	"regexp"
	"strconv"
	"strings"
)

// ansiRegex matches ANSI escape sequences (colors, cursor movement, etc.)
var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// leadingNumber matches the numeric prefix of a value such as "15400 [C]"
var leadingNumber = regexp.MustCompile(`^[-+]?\d+(\.\d+)?`)

// StripANSI removes ANSI escape codes from a string.
// Useful for parsing CLI output that may contain terminal formatting.
func StripANSI(s string) string {
	return ansiRegex.ReplaceAllString(s, "")
}

// CleanResponse removes the command echo and any prompt lines from a framed
// response, leaving only the command output. Only the first non-blank line
// that is not a prompt is treated as the echo.
func CleanResponse(unit, command string, prompt *regexp.Regexp) string {
	command = strings.TrimSpace(command)
	seenFirst := false
	var cleaned []string
	for _, line := range strings.Split(StripANSI(unit), "\n") {
		trimmed := strings.TrimSpace(line)
		if prompt != nil && prompt.MatchString(trimmed) {
			continue
		}
		if trimmed != "" && !seenFirst {
			seenFirst = true
			if command != "" && strings.HasSuffix(trimmed, command) {
				continue
			}
		}
		cleaned = append(cleaned, line)
	}
	return strings.Trim(strings.Join(cleaned, "\n"), "\n")
}

// DropLinesContaining removes every line containing any of the markers
func DropLinesContaining(text string, markers ...string) string {
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		drop := false
		for _, m := range markers {
			if m != "" && strings.Contains(line, m) {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// LastLine returns the last non-empty line of text, trimmed
func LastLine(text string) string {
	lines := strings.Split(strings.TrimRight(text, " \t\n"), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

// ParseLeadingFloat parses the number a CLI value starts with
func ParseLeadingFloat(s string) (float64, bool) {
	m := leadingNumber.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseLeadingInt parses the integer a CLI value starts with
func ParseLeadingInt(s string) (int, bool) {
	v, ok := ParseLeadingFloat(s)
	if !ok {
		return 0, false
	}
	return int(v), true
}
