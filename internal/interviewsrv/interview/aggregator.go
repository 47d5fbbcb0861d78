package interview

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tansive/mockinterview/internal/interviewsrv/decoder"
	"github.com/tansive/mockinterview/internal/interviewsrv/generate"
	"github.com/tansive/mockinterview/internal/interviewsrv/models"
	"github.com/tansive/mockinterview/internal/interviewsrv/prompt"
	"github.com/tansive/mockinterview/internal/interviewsrv/scorer"
)

const (
	ReportSourceGenerated = "generated"
	maxReportItems        = 5
	maxDerivedTips        = 2
)

type resultsReply struct {
	OverallScore    float64            `mapstructure:"overallScore"`
	SkillScores     map[string]float64 `mapstructure:"skillScores"`
	Strengths       []string           `mapstructure:"strengths"`
	Weaknesses      []string           `mapstructure:"weaknesses"`
	ImprovementTips []string           `mapstructure:"improvementTips"`
	Feedback        string             `mapstructure:"feedback"`
}

// Aggregator turns a finished transcript into a Report. It asks the
// generator once and fills whatever the reply leaves out from the recorded
// per-question feedback.
type Aggregator struct {
	gen     generate.Generator
	prompts *prompt.Catalog
	decoder *decoder.Decoder
	now     func() time.Time
}

// NewAggregator returns an Aggregator that bounds each generation by timeout.
func NewAggregator(gen generate.Generator, prompts *prompt.Catalog, timeout time.Duration) *Aggregator {
	if prompts == nil {
		prompts = prompt.Default()
	}
	return &Aggregator{
		gen:     bounded{gen: gen, timeout: timeout},
		prompts: prompts,
		decoder: decoder.Default(),
		now:     time.Now,
	}
}

// Aggregate always returns a report. fallback reports whether any part of it
// was derived heuristically.
func (a *Aggregator) Aggregate(ctx context.Context, s *models.Session) (report *models.Report, fallback bool) {
	base := a.Fallback(s)

	raw, err := a.gen.Generate(ctx, a.prompts.Results(s))
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("report generation failed, using heuristic report")
		return base, true
	}
	res := decoder.Decode[resultsReply](a.decoder, raw, decoder.ResultsSchema)
	if !res.OK {
		log.Ctx(ctx).Warn().Str("reason", res.Reason).Msg("report reply not decodable, using heuristic report")
		return base, true
	}
	log.Ctx(ctx).Debug().Str("stage", string(res.Stage)).Msg("report decoded")
	return a.merge(res.Value, base)
}

func (a *Aggregator) merge(r resultsReply, base *models.Report) (*models.Report, bool) {
	out := &models.Report{
		OverallScore:    roundScore(r.OverallScore),
		SkillScores:     map[string]int{},
		Strengths:       limit(dedupe(r.Strengths), maxReportItems),
		Weaknesses:      limit(dedupe(r.Weaknesses), maxReportItems),
		ImprovementTips: limit(dedupe(r.ImprovementTips), maxReportItems),
		Summary:         strings.TrimSpace(r.Feedback),
		Source:          ReportSourceGenerated,
		GeneratedAt:     base.GeneratedAt,
	}
	for skill, score := range r.SkillScores {
		if skill = strings.TrimSpace(skill); skill != "" {
			out.SkillScores[skill] = scorer.Clamp(int(math.Round(score)))
		}
	}

	filled := false
	if len(out.SkillScores) == 0 {
		out.SkillScores, filled = base.SkillScores, true
	}
	if len(out.Strengths) == 0 {
		out.Strengths, filled = base.Strengths, true
	}
	if len(out.Weaknesses) == 0 {
		out.Weaknesses, filled = base.Weaknesses, true
	}
	if len(out.ImprovementTips) == 0 {
		out.ImprovementTips, filled = base.ImprovementTips, true
	}
	if out.Summary == "" {
		out.Summary, filled = base.Summary, true
	}
	return out, filled
}

// Fallback derives a report purely from the recorded feedback.
func (a *Aggregator) Fallback(s *models.Session) *models.Report {
	ratings := s.Ratings()
	overall := float64(models.RatingMid)
	if len(ratings) > 0 {
		sum := 0
		for _, r := range ratings {
			sum += r
		}
		overall = float64(sum) / float64(len(ratings))
	}
	overall = roundScore(overall)

	skills := map[string]int{}
	for _, skill := range a.prompts.Skills(s.Kind, s.Settings.FocusAreas) {
		skills[skill] = scorer.Clamp(int(math.Round(overall)))
	}

	var strengths, improvements []string
	for _, q := range s.Questions {
		if q.Feedback == nil {
			continue
		}
		strengths = append(strengths, q.Feedback.Strengths...)
		improvements = append(improvements, q.Feedback.Improvements...)
	}
	strengths = limit(dedupe(strengths), maxReportItems)
	improvements = limit(dedupe(improvements), maxReportItems)
	if len(strengths) == 0 {
		strengths = []string{"Completed the interview and engaged with every question asked."}
	}
	if len(improvements) == 0 {
		improvements = []string{"Give longer, more specific answers so they can be assessed in depth."}
	}

	tips := make([]string, 0, maxReportItems)
	tips = append(tips, limit(improvements, maxDerivedTips)...)
	tips = limit(dedupe(append(tips, a.prompts.DefaultTips...)), maxReportItems)

	return &models.Report{
		OverallScore:    overall,
		SkillScores:     skills,
		Strengths:       strengths,
		Weaknesses:      improvements,
		ImprovementTips: tips,
		Summary:         summary(s, overall),
		Source:          scorer.Source,
		GeneratedAt:     a.now().UTC(),
	}
}

func summary(s *models.Session, overall float64) string {
	answered := s.AnsweredCount()
	asked := len(s.Questions)
	var verdict string
	switch {
	case overall >= 8:
		verdict = "a strong performance"
	case overall >= 6:
		verdict = "a solid performance with room to sharpen a few answers"
	case overall >= 4:
		verdict = "a developing performance; more depth and structure will help"
	default:
		verdict = "an early-stage performance; practice fuller, example-driven answers"
	}
	return fmt.Sprintf("You answered %d of %d %s questions with an average rating of %.1f out of %d, %s.",
		answered, asked, s.Kind, overall, models.RatingMax, verdict)
}

func roundScore(v float64) float64 {
	if math.IsNaN(v) {
		v = models.RatingMid
	}
	v = math.Max(models.RatingMin, math.Min(models.RatingMax, v))
	return math.Round(v*10) / 10
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if s == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}

func limit(in []string, n int) []string {
	if len(in) > n {
		return in[:n]
	}
	return in
}
