package prompt

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tansive/mockinterview/internal/interviewsrv/generate"
	"github.com/tansive/mockinterview/internal/interviewsrv/models"
)

const maxIntroduction = 600

// Seed is the system message that opens every conversation.
func (c *Catalog) Seed(kind models.Kind, settings models.Settings, introduction string) generate.Message {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(c.kind(kind).Persona))
	fmt.Fprintf(&b, "\n\nInterview type: %s. Difficulty: %s. Target length: %s.", kind, orDefault(settings.Difficulty, "medium"), orDefault(settings.Duration, "medium"))
	if settings.QuestionCount > 0 {
		fmt.Fprintf(&b, " Plan for %d questions.", settings.QuestionCount)
	}
	if len(settings.FocusAreas) > 0 {
		fmt.Fprintf(&b, " Focus areas: %s.", strings.Join(settings.FocusAreas, ", "))
	}
	if introduction != "" {
		fmt.Fprintf(&b, "\n\nThe candidate introduced themselves as follows; use it to personalize questions:\n%s", introduction)
	}
	b.WriteString("\n\n")
	b.WriteString(strings.TrimSpace(c.TurnContract))
	return generate.System(b.String())
}

// FirstTurn asks for the opening question.
func (c *Catalog) FirstTurn() generate.Message {
	return generate.User("Begin the interview. Ask the first question.")
}

// AnswerTurn carries the candidate's answer to question index and asks for
// feedback plus the next question.
func (c *Catalog) AnswerTurn(index int, question, answer string, nextIndex int) generate.Message {
	return generate.User(fmt.Sprintf(
		"Candidate answer to question %d (%q):\n%s\n\nEvaluate this answer and ask question %d.",
		index+1, question, strings.TrimSpace(answer), nextIndex+1))
}

// RegenerateTurn asks for a different question at the same position.
func (c *Catalog) RegenerateTurn(index int) generate.Message {
	return generate.User(fmt.Sprintf("Ask a different question %d instead. Omit feedback.", index+1))
}

// ClosingTurn carries the final answer and asks for closing remarks.
func (c *Catalog) ClosingTurn(answer string) generate.Message {
	var b strings.Builder
	if a := strings.TrimSpace(answer); a != "" {
		fmt.Fprintf(&b, "Candidate's final answer:\n%s\n\n", a)
	}
	b.WriteString(strings.TrimSpace(c.Closing))
	return generate.User(b.String())
}

// Results builds the single-shot request for the final report.
func (c *Catalog) Results(s *models.Session) []generate.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Interview type: %s. Difficulty: %s.\n", s.Kind, orDefault(s.Settings.Difficulty, "medium"))
	fmt.Fprintf(&b, "Score these skills: %s.\n\nTranscript:\n", strings.Join(c.Skills(s.Kind, s.Settings.FocusAreas), ", "))
	for _, q := range s.Questions {
		fmt.Fprintf(&b, "\nQ%d: %s\n", q.Index+1, q.Question)
		if q.Answer != nil {
			fmt.Fprintf(&b, "A%d: %s\n", q.Index+1, strings.TrimSpace(*q.Answer))
		} else {
			fmt.Fprintf(&b, "A%d: (no answer)\n", q.Index+1)
		}
		if q.Feedback != nil {
			fmt.Fprintf(&b, "Rating: %d/10\n", q.Feedback.Rating)
		}
	}
	return []generate.Message{
		generate.System("You are an interview evaluator producing a final report.\n\n" + strings.TrimSpace(c.ResultsContract)),
		generate.User(b.String()),
	}
}

// Rebuild reconstructs a conversation from persisted records, for sessions
// whose in-memory context was lost.
func (c *Catalog) Rebuild(s *models.Session) []generate.Message {
	var out []generate.Message
	for _, q := range s.Questions {
		if q.Question != "" && q.Question != models.UntitledQuestion {
			out = append(out, generate.Assistant(q.Question))
		}
		if q.Answer != nil {
			out = append(out, generate.User(*q.Answer))
		}
	}
	return out
}

var (
	nameCue       = regexp.MustCompile(`\b(?:[Mm]y name is|I am|I'm)\s+([A-Z][a-zA-Z'-]+(?:\s+[A-Z][a-zA-Z'-]+)?)`)
	experienceCue = regexp.MustCompile(`(?i)\b(\d{1,2})\+?\s+years?\b`)
)

// Introduction distills the candidate's opening message into a short note for
// the seed prompt. It returns "" when the message carries no introduction.
func Introduction(opening string) string {
	text := strings.Join(strings.Fields(opening), " ")
	if len(strings.Fields(text)) < 4 {
		return ""
	}
	var notes []string
	if m := nameCue.FindStringSubmatch(text); m != nil {
		notes = append(notes, "Name: "+m[1]+".")
	}
	if m := experienceCue.FindStringSubmatch(text); m != nil {
		notes = append(notes, "Experience: "+m[1]+" years.")
	}
	if r := []rune(text); len(r) > maxIntroduction {
		text = strings.TrimSpace(string(r[:maxIntroduction])) + "..."
	}
	notes = append(notes, text)
	return strings.Join(notes, " ")
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
