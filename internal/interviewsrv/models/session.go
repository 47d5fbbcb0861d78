// Package models defines the interview documents shared by the orchestrator,
// the stores and the HTTP layer. A Session is persisted as one document.
package models

import (
	"time"

	"github.com/tansive/mockinterview/internal/common/uuid"
)

type Kind string

const (
	KindTechnical  Kind = "technical"
	KindBehavioral Kind = "behavioral"
	KindScreening  Kind = "screening"
)

func (k Kind) Valid() bool {
	switch k {
	case KindTechnical, KindBehavioral, KindScreening:
		return true
	}
	return false
}

type Status string

const (
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusAbandoned  Status = "abandoned"
)

// Terminal reports whether no further turn may mutate the session.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusAbandoned
}

// Phase is the conversational position of a session, derived from its
// status and question records rather than stored.
type Phase string

const (
	PhaseAwaitingFirstQuestion Phase = "awaiting-first-question"
	PhaseInProgress            Phase = "in-progress"
	PhaseClosing               Phase = "closing"
	PhaseCompleted             Phase = "completed"
	PhaseAbandoned             Phase = "abandoned"
)

const (
	RatingMin = 1
	RatingMax = 10
	RatingMid = 5
)

// UntitledQuestion stands in for the text of a record created from an answer
// whose question was never recorded.
const UntitledQuestion = "Untitled question"

type Settings struct {
	Difficulty    string   `json:"difficulty" yaml:"difficulty"`
	Duration      string   `json:"duration" yaml:"duration"`
	FocusAreas    []string `json:"focusAreas,omitempty" yaml:"focusAreas,omitempty"`
	QuestionCount int      `json:"questionCount" yaml:"questionCount"`
}

// STAR marks which situation/task/action/result components an answer covered.
// A nil field means nothing could be said about that component.
type STAR struct {
	Situation *bool `json:"situation" mapstructure:"situation"`
	Task      *bool `json:"task" mapstructure:"task"`
	Action    *bool `json:"action" mapstructure:"action"`
	Result    *bool `json:"result" mapstructure:"result"`
}

type Feedback struct {
	Strengths    []string `json:"strengths" mapstructure:"strengths"`
	Improvements []string `json:"improvements" mapstructure:"improvements"`
	Rating       int      `json:"rating" mapstructure:"rating"`
	STAR         *STAR    `json:"star,omitempty" mapstructure:"star"`
	Source       string   `json:"source,omitempty" mapstructure:"-"`
}

type QuestionRecord struct {
	Index      int        `json:"index"`
	Question   string     `json:"question"`
	Answer     *string    `json:"answer,omitempty"`
	Feedback   *Feedback  `json:"feedback,omitempty"`
	AskedAt    time.Time  `json:"askedAt"`
	AnsweredAt *time.Time `json:"answeredAt,omitempty"`
}

type Report struct {
	OverallScore    float64        `json:"overallScore"`
	SkillScores     map[string]int `json:"skillScores"`
	Strengths       []string       `json:"strengths"`
	Weaknesses      []string       `json:"weaknesses"`
	ImprovementTips []string       `json:"improvementTips"`
	Summary         string         `json:"summary"`
	Source          string         `json:"source,omitempty"`
	GeneratedAt     time.Time      `json:"generatedAt"`
}

type Session struct {
	ID           uuid.UUID        `json:"id"`
	OwnerID      string           `json:"ownerId"`
	Kind         Kind             `json:"kind"`
	Settings     Settings         `json:"settings"`
	Status       Status           `json:"status"`
	Introduction string           `json:"introduction,omitempty"`
	Questions    []QuestionRecord `json:"questions"`
	Report       *Report          `json:"report,omitempty"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`
	CompletedAt  *time.Time       `json:"completedAt,omitempty"`
}

func (s *Session) Phase() Phase {
	switch s.Status {
	case StatusCompleted:
		return PhaseCompleted
	case StatusAbandoned:
		return PhaseAbandoned
	}
	if len(s.Questions) == 0 {
		return PhaseAwaitingFirstQuestion
	}
	if s.Settings.QuestionCount > 0 && s.AnsweredCount() >= s.Settings.QuestionCount {
		return PhaseClosing
	}
	return PhaseInProgress
}

func (s *Session) AnsweredCount() int {
	n := 0
	for i := range s.Questions {
		if s.Questions[i].Answer != nil {
			n++
		}
	}
	return n
}

// Record returns the question record at index, or nil.
func (s *Session) Record(index int) *QuestionRecord {
	for i := range s.Questions {
		if s.Questions[i].Index == index {
			return &s.Questions[i]
		}
	}
	return nil
}

// EnsureRecord returns the record at index, inserting a placeholder in index
// order when none exists.
func (s *Session) EnsureRecord(index int, now time.Time) *QuestionRecord {
	if r := s.Record(index); r != nil {
		return r
	}
	rec := QuestionRecord{Index: index, Question: UntitledQuestion, AskedAt: now}
	pos := len(s.Questions)
	for i := range s.Questions {
		if s.Questions[i].Index > index {
			pos = i
			break
		}
	}
	s.Questions = append(s.Questions, QuestionRecord{})
	copy(s.Questions[pos+1:], s.Questions[pos:])
	s.Questions[pos] = rec
	return &s.Questions[pos]
}

// NextIndex is one past the highest recorded index.
func (s *Session) NextIndex() int {
	next := 0
	for i := range s.Questions {
		if s.Questions[i].Index >= next {
			next = s.Questions[i].Index + 1
		}
	}
	return next
}

// Ratings returns the ratings of every scored record in index order.
func (s *Session) Ratings() []int {
	var out []int
	for i := range s.Questions {
		if f := s.Questions[i].Feedback; f != nil {
			out = append(out, f.Rating)
		}
	}
	return out
}
