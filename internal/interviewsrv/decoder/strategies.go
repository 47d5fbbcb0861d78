package decoder

import (
	"regexp"
	"strings"
)

// Strategy pulls one candidate JSON text out of raw model output. ok is false
// when the strategy does not apply.
type Strategy struct {
	Stage   Stage
	Extract func(raw string) (candidate string, ok bool)
}

// DefaultStrategies is the recovery order used by New with no arguments.
var DefaultStrategies = []Strategy{
	{Stage: StageDirect, Extract: extractDirect},
	{Stage: StageFenced, Extract: extractFenced},
	{Stage: StageBraceSpan, Extract: extractBraceSpan},
	{Stage: StageSanitized, Extract: extractSanitized},
}

func extractDirect(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	return s, s != ""
}

var fencePattern = regexp.MustCompile("(?s)```[a-zA-Z0-9_-]*[ \t]*\r?\n?(.*?)```")

// extractFenced returns the first fenced block whose body looks like an object.
func extractFenced(raw string) (string, bool) {
	for _, m := range fencePattern.FindAllStringSubmatch(raw, -1) {
		body := strings.TrimSpace(m[1])
		if strings.HasPrefix(body, "{") {
			return body, true
		}
	}
	return "", false
}

func extractBraceSpan(raw string) (string, bool) {
	return BraceSpan(raw)
}

// BraceSpan returns the text from the first '{' to the '}' that closes it.
// Braces inside quoted strings do not count, and backslash escapes inside
// strings are honored.
func BraceSpan(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
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
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// extractSanitized repairs the common ways model output breaks JSON and then
// takes the brace span of the result.
func extractSanitized(raw string) (string, bool) {
	s := normalizeQuotes(raw)
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	s = escapeFencesInStrings(s[start:])
	if span, ok := BraceSpan(s); ok {
		s = span
	} else {
		s = strings.TrimSpace(s)
	}
	s = escapeRawControlsInStrings(s)
	s = stripTrailingCommas(s)
	return s, true
}

var quoteReplacer = strings.NewReplacer(
	"“", `"`, "”", `"`, "„", `"`, "‟", `"`,
	"″", `"`, "«", `"`, "»", `"`,
	"‘", "'", "’", "'", "‚", "'", "‛", "'",
)

func normalizeQuotes(s string) string {
	return quoteReplacer.Replace(s)
}

// escapeFencesInStrings finds ``` blocks that open inside a string value and
// escapes their quotes and raw whitespace controls until the closing fence.
func escapeFencesInStrings(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 16)
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString && !escaped && strings.HasPrefix(s[i:], "```") {
			rest := s[i+3:]
			body, closing := rest, ""
			if end := strings.Index(rest, "```"); end >= 0 {
				body, closing = rest[:end], "```"
			}
			b.WriteString("```")
			b.WriteString(escapeSnippet(body))
			b.WriteString(closing)
			i += 3 + len(body) + len(closing) - 1
			continue
		}
		b.WriteByte(c)
		if !inString {
			if c == '"' {
				inString = true
			}
			continue
		}
		switch {
		case escaped:
			escaped = false
		case c == '\\':
			escaped = true
		case c == '"':
			inString = false
		}
	}
	return b.String()
}

func escapeSnippet(body string) string {
	var b strings.Builder
	prevBackslash := false
	for i := 0; i < len(body); i++ {
		c := body[i]
		switch c {
		case '"':
			if !prevBackslash {
				b.WriteByte('\\')
			}
			b.WriteByte(c)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteByte(c)
		}
		prevBackslash = c == '\\' && !prevBackslash
	}
	return b.String()
}

// escapeRawControlsInStrings replaces unescaped newlines, carriage returns and
// tabs that occur inside quoted strings with their escape sequences.
func escapeRawControlsInStrings(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 16)
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !inString {
			if c == '"' {
				inString = true
			}
			b.WriteByte(c)
			continue
		}
		if escaped {
			escaped = false
			b.WriteByte(c)
			continue
		}
		switch c {
		case '\\':
			escaped = true
			b.WriteByte(c)
		case '"':
			inString = false
			b.WriteByte(c)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

var trailingComma = regexp.MustCompile(`,(\s*[}\]])`)

// stripTrailingCommas removes commas directly before a closing bracket when
// they sit outside strings.
func stripTrailingCommas(s string) string {
	if !trailingComma.MatchString(s) {
		return s
	}
	var b strings.Builder
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
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
			b.WriteByte(c)
			continue
		}
		if c == '"' {
			inString = true
		}
		if c == ',' {
			j := i + 1
			for j < len(s) && (s[j] == ' ' || s[j] == '\n' || s[j] == '\r' || s[j] == '\t') {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}
