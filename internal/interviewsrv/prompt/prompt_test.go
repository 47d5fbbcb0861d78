package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tansive/mockinterview/internal/interviewsrv/generate"
	"github.com/tansive/mockinterview/internal/interviewsrv/models"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()
	for _, k := range []models.Kind{models.KindTechnical, models.KindBehavioral, models.KindScreening} {
		assert.NotEmpty(t, c.Kinds[k].Persona, k)
		assert.NotEmpty(t, c.Continuations(k), k)
		assert.NotEmpty(t, c.Skills(k, nil), k)
	}
	assert.NotEmpty(t, c.DefaultTips)
	assert.NotEmpty(t, c.ClosingFallback)
}

func TestSkillsMergesFocusAreas(t *testing.T) {
	c := Default()
	skills := c.Skills(models.KindTechnical, []string{"distributed systems", "Problem Solving", " "})
	assert.Equal(t, []string{"Problem Solving", "Technical Knowledge", "System Design", "Communication", "Distributed Systems"}, skills)
}

func TestSeed(t *testing.T) {
	c := Default()
	msg := c.Seed(models.KindBehavioral, models.Settings{Difficulty: "hard", Duration: "short", QuestionCount: 3, FocusAreas: []string{"leadership"}}, "Name: Sam.")
	assert.Equal(t, generate.RoleSystem, msg.Role)
	assert.Contains(t, msg.Content, "behavioral")
	assert.Contains(t, msg.Content, "Difficulty: hard")
	assert.Contains(t, msg.Content, "Plan for 3 questions")
	assert.Contains(t, msg.Content, "leadership")
	assert.Contains(t, msg.Content, "Name: Sam.")
	assert.Contains(t, msg.Content, `"question"`)
}

func TestResultsTranscript(t *testing.T) {
	c := Default()
	answer := "I built a queue."
	s := &models.Session{
		Kind: models.KindTechnical,
		Questions: []models.QuestionRecord{
			{Index: 0, Question: "Design a queue.", Answer: &answer, Feedback: &models.Feedback{Rating: 6}},
			{Index: 1, Question: "Why Go?"},
		},
	}
	msgs := c.Results(s)
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0].Content, "overallScore")
	assert.Contains(t, msgs[1].Content, "Q1: Design a queue.")
	assert.Contains(t, msgs[1].Content, "A1: I built a queue.")
	assert.Contains(t, msgs[1].Content, "Rating: 6/10")
	assert.Contains(t, msgs[1].Content, "A2: (no answer)")
}

func TestRebuild(t *testing.T) {
	c := Default()
	answer := "Because of goroutines."
	s := &models.Session{Questions: []models.QuestionRecord{
		{Index: 0, Question: "Why Go?", Answer: &answer},
		{Index: 1, Question: models.UntitledQuestion},
	}}
	msgs := c.Rebuild(s)
	require.Len(t, msgs, 2)
	assert.Equal(t, generate.RoleAssistant, msgs[0].Role)
	assert.Equal(t, "Why Go?", msgs[0].Content)
	assert.Equal(t, generate.User(answer), msgs[1])
}

func TestIntroduction(t *testing.T) {
	assert.Equal(t, "", Introduction("hi there"))

	intro := Introduction("Hello! My name is Alex Kim and I have 6 years of backend experience.")
	assert.True(t, strings.HasPrefix(intro, "Name: Alex Kim. Experience: 6 years."))

	long := Introduction(strings.Repeat("word ", 400))
	assert.True(t, strings.HasSuffix(long, "..."))
}

func TestLoadOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
kinds:
  screening:
    persona: "Custom recruiter."
    skills: [motivation]
    continuations: ["Why us?"]
`), 0600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Custom recruiter.", c.Kinds[models.KindScreening].Persona)
	assert.Equal(t, []string{"Why us?"}, c.Continuations(models.KindScreening))
	assert.NotEmpty(t, c.Kinds[models.KindTechnical].Persona)
	assert.NotEmpty(t, c.TurnContract)

	require.NoError(t, os.WriteFile(path, []byte("kinds:\n  poetry: {}\n"), 0600))
	_, err = Load(path)
	assert.Error(t, err)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
