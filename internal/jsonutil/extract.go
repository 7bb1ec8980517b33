// Package jsonutil recovers a single JSON object candidate from unreliable
// model output. Generated text routinely arrives wrapped in code fences,
// prefixed with commentary, truncated mid-structure, or littered with
// trailing commas; the extractor cuts out the best brace-delimited span and
// repairs it into a bracket-balanced candidate. The result is balanced by
// construction but not guaranteed to be semantically valid JSON.
package jsonutil

import "strings"

const fence = "```"

// ExtractFirstJSON returns a best-effort JSON object candidate recovered
// from raw, or the sentinel "{}" when no opening brace exists at all.
func ExtractFirstJSON(raw string) string {
	t := stripBOM(raw)
	t = stripFences(t)
	t = strings.TrimSpace(t)

	start := strings.IndexByte(t, '{')
	if start < 0 {
		return "{}"
	}

	// Prefer the first closing brace alone on its own line: it isolates one
	// top-level object from trailing commentary. Otherwise cut at the last
	// '}' after the opening brace, or take the remainder (truncated output).
	var cand string
	if e := strings.Index(t[start:], "\n}\n"); e >= 0 {
		cand = t[start : start+e+2]
	} else if last := strings.LastIndexByte(t, '}'); last > start {
		cand = t[start : last+1]
	} else {
		cand = t[start:]
	}

	cand = removeDanglingCommas(cand)
	return strings.TrimSpace(balance(cand))
}

// LooksLikeJSON reports whether s, after trimming surrounding whitespace,
// starts with '{' and ends with '}'.
func LooksLikeJSON(s string) bool {
	t := strings.TrimSpace(s)
	return len(t) >= 2 && t[0] == '{' && t[len(t)-1] == '}'
}

// stripBOM removes a leading UTF-8 byte-order mark.
func stripBOM(s string) string {
	return strings.TrimPrefix(s, "\xef\xbb\xbf")
}

// stripFences keeps only the content strictly between the first and last
// code fence when the fence appears at least twice. A language tag after the
// opening fence is left in place; the brace search skips it anyway.
func stripFences(s string) string {
	a := strings.Index(s, fence)
	if a < 0 {
		return s
	}
	b := strings.LastIndex(s, fence)
	if b <= a {
		return s
	}
	return s[a+len(fence) : b]
}

// removeDanglingCommas deletes ",}" / ",]" artifacts until none remain.
func removeDanglingCommas(s string) string {
	for {
		next := strings.ReplaceAll(s, ",}", "}")
		next = strings.ReplaceAll(next, ",]", "]")
		if next == s {
			return s
		}
		s = next
	}
}

// balance appends the closers missing from s, tallying unclosed '{' and '['
// while skipping the interior of quoted strings (backslash escapes honored).
// Pending ']' are emitted before pending '}'. The aggregate counts are a
// deliberate heuristic: when arrays and objects are interleaved at the
// truncation point the closers can come out in the wrong order, because the
// tally does not record which opener kind is innermost.
func balance(s string) string {
	var curly, square int
	var inStr, esc bool

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inStr {
			switch {
			case esc:
				esc = false
			case c == '\\':
				esc = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			curly++
		case '}':
			if curly > 0 {
				curly--
			}
		case '[':
			square++
		case ']':
			if square > 0 {
				square--
			}
		}
	}

	if curly == 0 && square == 0 {
		return s
	}

	var sb strings.Builder
	sb.Grow(len(s) + curly + square)
	sb.WriteString(s)
	for ; square > 0; square-- {
		sb.WriteByte(']')
	}
	for ; curly > 0; curly-- {
		sb.WriteByte('}')
	}
	return sb.String()
}
