// Package scorer produces feedback and questions without the text-generation
// service. Everything here is deterministic, so an interview can always move
// forward when generation or decoding fails.
package scorer

import (
	"regexp"
	"strings"

	"github.com/tansive/mockinterview/internal/interviewsrv/models"
)

const (
	shortAnswerWords = 50
	longAnswerWords  = 100
	maxCues          = 3
)

const Source = "heuristic"

type cue struct {
	pattern *regexp.Regexp
	message string
}

var outcomeCue = regexp.MustCompile(`\b(result(ed)?|outcome|impact|reduced|improved|increased|saved)\b`)

var strengthCues = []cue{
	{regexp.MustCompile(`\d+(\.\d+)?\s*(%|percent|ms|x\b|users|requests|hours|days|weeks|k\b|million)`), "Backed the answer with concrete numbers and measurable results."},
	{regexp.MustCompile(`\b(first|second|then|finally|next|step)\b`), "Answer followed a clear, step-by-step structure."},
	{regexp.MustCompile(`\b(i (led|built|designed|implemented|owned|decided|wrote|drove|proposed))\b`), "Took clear personal ownership of the work described."},
	{regexp.MustCompile(`\b(for example|for instance|in my (last|previous) (role|job|project)|at my)\b`), "Grounded the answer in a specific real-world example."},
	{regexp.MustCompile(`\b(trade-?off|because|instead of|rather than|the reason)\b`), "Explained the reasoning and trade-offs behind decisions."},
	{outcomeCue, "Connected the work to its outcome and impact."},
}

var hedgeCues = []cue{
	{regexp.MustCompile(`\b(i think|maybe|probably|i guess|not sure|kind of|sort of|perhaps)\b`), "Reduce hedging language and state conclusions with confidence."},
	{regexp.MustCompile(`\b(stuff|things|etc|whatever|something like that)\b`), "Replace vague wording with precise technical terms."},
	{regexp.MustCompile(`\b(we did|we just|the team did)\b`), "Clarify your individual contribution rather than the team's."},
}

const (
	defaultStrength    = "Responded directly to the question asked."
	defaultImprovement = "Add a specific example with a measurable outcome to strengthen the answer."
	shortImprovement   = "Expand the answer with more detail; aim for a complete situation, action and result."
	outcomeImprovement = "Close with the result or what you learned."
)

// Words counts whitespace-separated words.
func Words(text string) int {
	return len(strings.Fields(text))
}

// Rate scores an answer on models.RatingMin..models.RatingMax from its
// length, nudged by quality and hedging cues. Short answers never exceed the
// mid-scale.
func Rate(answer string) int {
	lower := strings.ToLower(answer)
	words := Words(answer)

	base := models.RatingMid
	switch {
	case words == 0:
		return models.RatingMin
	case words < shortAnswerWords:
		base = models.RatingMid - 1
	case words > longAnswerWords:
		base = models.RatingMid + 2
	}

	bonus := 0
	for _, c := range strengthCues {
		if c.pattern.MatchString(lower) {
			bonus++
		}
	}
	if bonus > 2 {
		bonus = 2
	}
	penalty := 0
	for _, c := range hedgeCues {
		if c.pattern.MatchString(lower) {
			penalty = 1
			break
		}
	}

	rating := base + bonus - penalty
	if words < shortAnswerWords && rating > models.RatingMid {
		rating = models.RatingMid
	}
	return clamp(rating)
}

func clamp(r int) int {
	if r < models.RatingMin {
		return models.RatingMin
	}
	if r > models.RatingMax {
		return models.RatingMax
	}
	return r
}

// Clamp bounds an externally produced rating.
func Clamp(r int) int {
	return clamp(r)
}

// Feedback derives complete feedback for answer. Strengths and improvements
// always hold between one and three entries.
func Feedback(answer string) *models.Feedback {
	lower := strings.ToLower(answer)
	words := Words(answer)

	var strengths []string
	for _, c := range strengthCues {
		if len(strengths) == maxCues {
			break
		}
		if c.pattern.MatchString(lower) {
			strengths = append(strengths, c.message)
		}
	}

	var improvements []string
	for _, c := range hedgeCues {
		if c.pattern.MatchString(lower) {
			improvements = append(improvements, c.message)
		}
	}
	if words < shortAnswerWords {
		improvements = append(improvements, shortImprovement)
	}
	if !outcomeCue.MatchString(lower) {
		improvements = append(improvements, outcomeImprovement)
	}
	if len(improvements) > maxCues {
		improvements = improvements[:maxCues]
	}

	if len(strengths) == 0 {
		strengths = []string{defaultStrength}
	}
	if len(improvements) == 0 {
		improvements = []string{defaultImprovement}
	}

	return &models.Feedback{
		Strengths:    strengths,
		Improvements: improvements,
		Rating:       Rate(answer),
		STAR:         detectSTAR(lower),
		Source:       Source,
	}
}

var (
	situationCue = regexp.MustCompile(`\b(when i was|at my (last|previous)|in my (last|previous)|we were facing|the situation|there was a)\b`)
	taskCue      = regexp.MustCompile(`\b(my (task|goal|job|responsibility) was|i was (asked|responsible|tasked)|needed to)\b`)
	actionCue    = regexp.MustCompile(`\bi (led|built|designed|implemented|wrote|decided|created|set up|organized|refactored|introduced)\b`)
	resultCue    = regexp.MustCompile(`\b(as a result|resulted in|which (reduced|improved|increased|saved)|in the end|ultimately)\b`)
)

// detectSTAR only marks components that a cue positively identifies; the rest
// stay nil. It returns nil when nothing was found.
func detectSTAR(lower string) *models.STAR {
	mark := func(re *regexp.Regexp) *bool {
		if re.MatchString(lower) {
			v := true
			return &v
		}
		return nil
	}
	s := &models.STAR{
		Situation: mark(situationCue),
		Task:      mark(taskCue),
		Action:    mark(actionCue),
		Result:    mark(resultCue),
	}
	if s.Situation == nil && s.Task == nil && s.Action == nil && s.Result == nil {
		return nil
	}
	return s
}
