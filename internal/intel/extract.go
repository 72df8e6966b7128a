// ABOUTME: Extracts the first balanced JSON array from free-form model output.
// ABOUTME: Isolated as one named function because the strategy is pragmatic but brittle.
package intel

import "fmt"

// ExtractJSONArray returns the first balanced `[...]` substring of s.
//
// Generative models wrap their JSON in prose, markdown fences, or multiple
// text blocks, so callers concatenate all blocks and hand the result here.
// The scan is string-aware: brackets inside JSON string literals (and escaped
// quotes inside those) do not affect nesting depth. Absence of a balanced
// array is ErrUpstreamFormat — a generation failure, never a panic.
func ExtractJSONArray(s string) (string, error) {
	start := -1
	for i := 0; i < len(s); i++ {
		if s[i] == '[' {
			start = i
			break
		}
	}
	if start == -1 {
		return "", fmt.Errorf("%w: no '[' in %d bytes of output", ErrUpstreamFormat, len(s))
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return s[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("%w: unterminated JSON array", ErrUpstreamFormat)
}
