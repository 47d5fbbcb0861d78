package models

import "time"

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

func cloneBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func (s *STAR) Clone() *STAR {
	if s == nil {
		return nil
	}
	return &STAR{
		Situation: cloneBool(s.Situation),
		Task:      cloneBool(s.Task),
		Action:    cloneBool(s.Action),
		Result:    cloneBool(s.Result),
	}
}

func (f *Feedback) Clone() *Feedback {
	if f == nil {
		return nil
	}
	cp := *f
	cp.Strengths = cloneStrings(f.Strengths)
	cp.Improvements = cloneStrings(f.Improvements)
	cp.STAR = f.STAR.Clone()
	return &cp
}

func (r *Report) Clone() *Report {
	if r == nil {
		return nil
	}
	cp := *r
	if r.SkillScores != nil {
		cp.SkillScores = make(map[string]int, len(r.SkillScores))
		for k, v := range r.SkillScores {
			cp.SkillScores[k] = v
		}
	}
	cp.Strengths = cloneStrings(r.Strengths)
	cp.Weaknesses = cloneStrings(r.Weaknesses)
	cp.ImprovementTips = cloneStrings(r.ImprovementTips)
	return &cp
}

func (q QuestionRecord) Clone() QuestionRecord {
	cp := q
	if q.Answer != nil {
		a := *q.Answer
		cp.Answer = &a
	}
	cp.Feedback = q.Feedback.Clone()
	cp.AnsweredAt = cloneTime(q.AnsweredAt)
	return cp
}

// Clone returns a deep copy; stores hand out clones so callers never share
// memory with the stored document.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Settings.FocusAreas = cloneStrings(s.Settings.FocusAreas)
	if s.Questions != nil {
		cp.Questions = make([]QuestionRecord, len(s.Questions))
		for i := range s.Questions {
			cp.Questions[i] = s.Questions[i].Clone()
		}
	}
	cp.Report = s.Report.Clone()
	cp.CompletedAt = cloneTime(s.CompletedAt)
	return &cp
}
