package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tansive/mockinterview/internal/common/uuid"
)

func TestEnsureRecordKeepsIndexOrder(t *testing.T) {
	s := &Session{ID: uuid.New(), Status: StatusInProgress}
	now := time.Now()

	s.EnsureRecord(2, now)
	s.EnsureRecord(0, now)
	r := s.EnsureRecord(1, now)
	r.Question = "Tell me about a hard bug."

	require.Len(t, s.Questions, 3)
	for i, q := range s.Questions {
		assert.Equal(t, i, q.Index)
	}
	assert.Equal(t, UntitledQuestion, s.Questions[0].Question)
	assert.Equal(t, "Tell me about a hard bug.", s.Record(1).Question)

	again := s.EnsureRecord(1, now)
	assert.Equal(t, "Tell me about a hard bug.", again.Question)
	assert.Len(t, s.Questions, 3)
	assert.Equal(t, 3, s.NextIndex())
}

func TestPhase(t *testing.T) {
	s := &Session{Status: StatusInProgress, Settings: Settings{QuestionCount: 1}}
	assert.Equal(t, PhaseAwaitingFirstQuestion, s.Phase())

	s.EnsureRecord(0, time.Now())
	assert.Equal(t, PhaseInProgress, s.Phase())

	answer := "I led the migration."
	s.Questions[0].Answer = &answer
	assert.Equal(t, PhaseClosing, s.Phase())

	s.Status = StatusCompleted
	assert.Equal(t, PhaseCompleted, s.Phase())
	assert.True(t, s.Status.Terminal())
	assert.False(t, StatusInProgress.Terminal())
}

func TestCloneIsDeep(t *testing.T) {
	yes := true
	answer := "answer"
	s := &Session{
		ID:       uuid.New(),
		Settings: Settings{FocusAreas: []string{"go"}},
		Questions: []QuestionRecord{{
			Index:    0,
			Question: "q",
			Answer:   &answer,
			Feedback: &Feedback{Strengths: []string{"s"}, Improvements: []string{"i"}, Rating: 6, STAR: &STAR{Action: &yes}},
		}},
		Report: &Report{SkillScores: map[string]int{"Go": 6}, Strengths: []string{"s"}},
	}
	cp := s.Clone()
	*cp.Questions[0].Answer = "changed"
	cp.Questions[0].Feedback.Strengths[0] = "changed"
	*cp.Questions[0].Feedback.STAR.Action = false
	cp.Report.SkillScores["Go"] = 1
	cp.Settings.FocusAreas[0] = "rust"

	assert.Equal(t, "answer", *s.Questions[0].Answer)
	assert.Equal(t, "s", s.Questions[0].Feedback.Strengths[0])
	assert.True(t, *s.Questions[0].Feedback.STAR.Action)
	assert.Equal(t, 6, s.Report.SkillScores["Go"])
	assert.Equal(t, "go", s.Settings.FocusAreas[0])
	assert.Equal(t, []int{6}, s.Ratings())
}
