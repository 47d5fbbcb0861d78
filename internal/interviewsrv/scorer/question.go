package scorer

import (
	"regexp"
	"strings"
)

const minQuestionLen = 20

// questionField matches a "question" value inside JSON that failed to parse.
var questionField = regexp.MustCompile(`"(?:question|nextQuestion|next_question)"\s*:\s*"((?:[^"\\\n]|\\.)+)"`)

var linePrefix = regexp.MustCompile(`^\s*(?:[-*•>#]+|\d+[.)]|(?i:q(?:uestion)?\s*\d*\s*[:.)-]))\s*`)

// RecoverQuestion pulls a usable question out of text that failed to decode.
// It prefers the first line ending in '?', then the first line long enough to
// stand alone. ok is false when neither exists.
func RecoverQuestion(raw string) (question string, ok bool) {
	if m := questionField.FindStringSubmatch(raw); m != nil {
		if q := strings.TrimSpace(strings.ReplaceAll(m[1], `\"`, `"`)); q != "" {
			return q, true
		}
	}
	var firstLong string
	for _, line := range strings.Split(raw, "\n") {
		line = cleanLine(line)
		if line == "" {
			continue
		}
		if strings.HasSuffix(line, "?") {
			return line, true
		}
		if firstLong == "" && len(line) >= minQuestionLen && !looksStructural(line) {
			firstLong = line
		}
	}
	if firstLong != "" {
		return firstLong, true
	}
	return "", false
}

func cleanLine(line string) string {
	line = strings.TrimSpace(line)
	line = linePrefix.ReplaceAllString(line, "")
	line = strings.Trim(line, "\"'`*_ ")
	return strings.TrimSpace(line)
}

// looksStructural skips JSON fragments and fence markers.
func looksStructural(line string) bool {
	return strings.HasPrefix(line, "{") || strings.HasPrefix(line, "}") ||
		strings.HasPrefix(line, "[") || strings.HasPrefix(line, "```") ||
		strings.Contains(line, `":`)
}

// Continuation picks a generic prompt from prompts for the question at index.
// The rotation keeps consecutive fallbacks from repeating.
func Continuation(prompts []string, index int) string {
	if len(prompts) == 0 {
		return "Tell me about a recent project you are proud of and the role you played in it."
	}
	if index < 0 {
		index = -index
	}
	return prompts[index%len(prompts)]
}

// NextQuestion recovers a question from raw, falling back to a continuation
// prompt. The bool reports whether raw contributed.
func NextQuestion(raw string, prompts []string, index int) (string, bool) {
	if q, ok := RecoverQuestion(raw); ok {
		return q, true
	}
	return Continuation(prompts, index), false
}
