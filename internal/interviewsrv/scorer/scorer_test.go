package scorer

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tansive/mockinterview/internal/interviewsrv/models"
)

func repeatWords(n int, word string) string {
	return strings.TrimSpace(strings.Repeat(word+" ", n))
}

func TestRateByLength(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		min    int
		max    int
	}{
		{name: "empty", answer: "   ", min: models.RatingMin, max: models.RatingMin},
		{name: "ten words", answer: "I would use a cache to make it faster overall", min: models.RatingMin, max: models.RatingMid},
		{name: "short with cues still capped", answer: "First I led the redesign because latency was 300ms, which reduced costs 40%.", min: models.RatingMin, max: models.RatingMid},
		{name: "mid length", answer: repeatWords(70, "answer"), min: models.RatingMid, max: models.RatingMid},
		{name: "long", answer: repeatWords(120, "answer"), min: models.RatingMid + 2, max: models.RatingMid + 2},
		{name: "long hedged", answer: repeatWords(120, "maybe"), min: models.RatingMid + 1, max: models.RatingMid + 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Rate(tt.answer)
			assert.GreaterOrEqual(t, r, tt.min)
			assert.LessOrEqual(t, r, tt.max)
		})
	}
}

func TestFeedbackAlwaysComplete(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	vocab := []string{"i", "think", "we", "did", "stuff", "first", "then", "led", "the", "project", "reduced",
		"latency", "by", "40%", "because", "for", "example", "maybe", "system", "users", "design", "?", "!"}
	for i := 0; i < 300; i++ {
		n := 1 + r.Intn(160)
		parts := make([]string, n)
		for j := range parts {
			parts[j] = vocab[r.Intn(len(vocab))]
		}
		fb := Feedback(strings.Join(parts, " "))
		require.NotNil(t, fb)
		assert.NotEmpty(t, fb.Strengths)
		assert.NotEmpty(t, fb.Improvements)
		assert.LessOrEqual(t, len(fb.Strengths), 3)
		assert.LessOrEqual(t, len(fb.Improvements), 3)
		assert.GreaterOrEqual(t, fb.Rating, models.RatingMin)
		assert.LessOrEqual(t, fb.Rating, models.RatingMax)
		assert.Equal(t, Source, fb.Source)
	}
}

func TestFeedbackCues(t *testing.T) {
	fb := Feedback("I think we did stuff.")
	assert.Equal(t, []string{defaultStrength}, fb.Strengths)
	assert.Contains(t, fb.Improvements, "Reduce hedging language and state conclusions with confidence.")
	assert.Len(t, fb.Improvements, 3)
	assert.Nil(t, fb.STAR)

	fb = Feedback("When I was at my last company, my task was to cut build times. I led a rewrite of the pipeline and as a result builds dropped by 60%.")
	assert.Contains(t, fb.Strengths, "Backed the answer with concrete numbers and measurable results.")
	require.NotNil(t, fb.STAR)
	for _, c := range []*bool{fb.STAR.Situation, fb.STAR.Task, fb.STAR.Action, fb.STAR.Result} {
		require.NotNil(t, c)
		assert.True(t, *c)
	}
}

func TestRecoverQuestion(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{name: "question line", raw: "Great answer.\n\n1. How would you scale this to ten regions?\nThanks", want: "How would you scale this to ten regions?", ok: true},
		{name: "broken json field", raw: `{"question": "Why did you choose \"Postgres\"?", "feedback": {`, want: `Why did you choose "Postgres"?`, ok: true},
		{name: "long line", raw: "ok\nDescribe your approach to on-call rotations", want: "Describe your approach to on-call rotations", ok: true},
		{name: "json fragments only", raw: "{\n\"a\": 1\n}", ok: false},
		{name: "nothing usable", raw: "ok\nsure", ok: false},
		{name: "empty", raw: "", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := RecoverQuestion(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextQuestionFallsBack(t *testing.T) {
	prompts := []string{"A?", "B?"}
	q, fromRaw := NextQuestion("", prompts, 3)
	assert.False(t, fromRaw)
	assert.Equal(t, "B?", q)

	q, _ = NextQuestion("", nil, 0)
	assert.NotEmpty(t, q)

	q, fromRaw = NextQuestion("What is a goroutine?", prompts, 0)
	assert.True(t, fromRaw)
	assert.Equal(t, "What is a goroutine?", q)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, models.RatingMin, Clamp(-4))
	assert.Equal(t, models.RatingMax, Clamp(42))
	assert.Equal(t, 7, Clamp(7))
}
