// Package decoder recovers a typed object from text produced by a language
// model. Candidates are extracted by an ordered list of strategies, each one
// more aggressive than the last; the first candidate that parses, normalizes
// and validates against the expected schema wins. Decoding never panics and
// never returns a partially filled value: callers branch on Result.OK.
package decoder

// Stage names the strategy that produced a candidate.
type Stage string

const (
	StageDirect     Stage = "direct"
	StageFenced     Stage = "fenced"
	StageBraceSpan  Stage = "brace-span"
	StageSanitized  Stage = "sanitized"
	StageStructured Stage = "structured"
)

// Result is either Decoded (OK, Value set) or Failed (Reason set, Value zero).
type Result[T any] struct {
	Value  T
	OK     bool
	Stage  Stage
	Reason string
}

// Decoded is a successful result produced by stage.
func Decoded[T any](v T, stage Stage) Result[T] {
	return Result[T]{Value: v, OK: true, Stage: stage}
}

// Failed is an unsuccessful result carrying reason.
func Failed[T any](reason string) Result[T] {
	return Result[T]{Reason: reason}
}
