package repair

import "strings"

// mapLines rewrites code line by line, preserving the trailing-newline shape
// of the input. fn returns the replacement line.
func mapLines(code string, fn func(line string) string) (string, bool) {
	hadTrailing := strings.HasSuffix(code, "\n")
	lines := strings.Split(strings.TrimSuffix(code, "\n"), "\n")
	changed := false
	for i, line := range lines {
		next := fn(line)
		if next != line {
			lines[i] = next
			changed = true
		}
	}
	out := strings.Join(lines, "\n")
	if hadTrailing {
		out += "\n"
	}
	return out, changed
}

// firstContentLine returns the first non-empty, non-comment line of code.
// commentPrefix may be empty when the grammar has no line comments to skip.
func firstContentLine(code, commentPrefix string) string {
	for _, line := range strings.Split(code, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if commentPrefix != "" && strings.HasPrefix(trimmed, commentPrefix) {
			continue
		}
		return trimmed
	}
	return ""
}

// braceBalance counts { minus } outside of double-quoted strings.
func braceBalance(code string) int {
	depth := 0
	inQuote := false
	escaped := false
	for _, r := range code {
		if escaped {
			escaped = false
			continue
		}
		switch r {
		case '\\':
			escaped = inQuote
		case '"':
			inQuote = !inQuote
		case '{':
			if !inQuote {
				depth++
			}
		case '}':
			if !inQuote {
				depth--
			}
		}
	}
	return depth
}

// appendLines appends lines to code, preserving whether the code ended with
// a newline.
func appendLines(code string, lines ...string) string {
	hadTrailing := strings.HasSuffix(code, "\n")
	out := strings.TrimSuffix(code, "\n")
	for _, l := range lines {
		if out != "" {
			out += "\n"
		}
		out += l
	}
	if hadTrailing {
		out += "\n"
	}
	return out
}
