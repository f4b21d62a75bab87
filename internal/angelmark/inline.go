package angelmark

import "strings"

// escapable is the set of characters a backslash can escape inside
// RawText, per §4.4.
const escapable = `\_*` + "`" + `|`

// parseInline parses one line's worth of formatted text into a sequence
// of TextContent nodes: runs of RawText interspersed with Bold, Italic,
// and Monospace spans. Markers are balanced pairs, found by scanning
// forward for a matching closer; a marker with no closer is left as
// literal text, which is how the parser stays total over any input.
func parseInline(s string) []TextContent {
	runes := []rune(s)
	var out []TextContent
	var raw strings.Builder

	flush := func() {
		if raw.Len() > 0 {
			out = append(out, RawText{Text: raw.String()})
			raw.Reset()
		}
	}

	i := 0
	for i < len(runes) {
		c := runes[i]

		if c == '\\' && i+1 < len(runes) && strings.ContainsRune(escapable, runes[i+1]) {
			raw.WriteRune(runes[i+1])
			i += 2
			continue
		}

		if c == '*' && i+1 < len(runes) && runes[i+1] == '*' {
			if end := findClosingPair(runes, i+2, '*', '*'); end != -1 {
				flush()
				out = append(out, Bold{Content: parseInline(string(runes[i+2 : end]))})
				i = end + 2
				continue
			}
		}

		if c == '*' || c == '_' {
			if end := findClosingSingle(runes, i+1, c); end != -1 {
				flush()
				out = append(out, Italic{Content: parseInline(string(runes[i+1 : end]))})
				i = end + 1
				continue
			}
		}

		if c == '`' {
			if end := findClosingSingle(runes, i+1, '`'); end != -1 {
				flush()
				out = append(out, Monospace{Content: parseInline(string(runes[i+1 : end]))})
				i = end + 1
				continue
			}
		}

		raw.WriteRune(c)
		i++
	}
	flush()
	return out
}

// findClosingSingle returns the index of the first unescaped occurrence
// of marker at or after from, or -1 if there is none.
func findClosingSingle(runes []rune, from int, marker rune) int {
	for i := from; i < len(runes); i++ {
		if runes[i] == '\\' {
			i++
			continue
		}
		if runes[i] == marker {
			return i
		}
	}
	return -1
}

// findClosingPair returns the index of the first unescaped occurrence of
// two consecutive marker runes at or after from, or -1 if there is none.
func findClosingPair(runes []rune, from int, a, b rune) int {
	for i := from; i+1 < len(runes); i++ {
		if runes[i] == '\\' {
			i++
			continue
		}
		if runes[i] == a && runes[i+1] == b {
			return i
		}
	}
	return -1
}
