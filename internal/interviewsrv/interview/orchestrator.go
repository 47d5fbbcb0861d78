// Package interview drives a session through its question/answer turns. Each
// turn runs under a per-session lock: load the session, ask the generator,
// decode or fall back to heuristics, save once, then commit the conversation
// context.
package interview

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tansive/mockinterview/internal/common/apperrors"
	"github.com/tansive/mockinterview/internal/common/keylock"
	"github.com/tansive/mockinterview/internal/common/uuid"
	"github.com/tansive/mockinterview/internal/interviewsrv/convctx"
	"github.com/tansive/mockinterview/internal/interviewsrv/decoder"
	"github.com/tansive/mockinterview/internal/interviewsrv/generate"
	"github.com/tansive/mockinterview/internal/interviewsrv/models"
	"github.com/tansive/mockinterview/internal/interviewsrv/prompt"
	"github.com/tansive/mockinterview/internal/interviewsrv/scorer"
	"github.com/tansive/mockinterview/internal/interviewsrv/store"
)

const (
	FeedbackSourceGenerated = "generated"
	DefaultQuestionCount    = 5
)

// Options tunes an Orchestrator. Zero values select defaults.
type Options struct {
	GenerateTimeout      time.Duration
	DefaultQuestionCount int
	Now                  func() time.Time
}

// Orchestrator runs interview sessions one turn at a time. Turns on the same
// session are serialized.
type Orchestrator struct {
	store      store.Store
	contexts   convctx.Store
	gen        generate.Generator
	prompts    *prompt.Catalog
	decoder    *decoder.Decoder
	aggregator *Aggregator
	locks      *keylock.KeyLock
	opts       Options
}

// New returns an Orchestrator. A nil gen fails every generation, so all turns
// use the heuristic fallbacks.
func New(st store.Store, contexts convctx.Store, gen generate.Generator, prompts *prompt.Catalog, opts Options) *Orchestrator {
	if gen == nil {
		gen = generate.Unavailable{}
	}
	if prompts == nil {
		prompts = prompt.Default()
	}
	if opts.DefaultQuestionCount <= 0 {
		opts.DefaultQuestionCount = DefaultQuestionCount
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	agg := NewAggregator(gen, prompts, opts.GenerateTimeout)
	agg.now = opts.Now
	return &Orchestrator{
		store:      st,
		contexts:   contexts,
		gen:        bounded{gen: gen, timeout: opts.GenerateTimeout},
		prompts:    prompts,
		decoder:    decoder.Default(),
		aggregator: agg,
		locks:      keylock.New(),
		opts:       opts,
	}
}

func (o *Orchestrator) now() time.Time {
	return o.opts.Now().UTC()
}

// StartSession creates and stores an in-progress session with no questions.
func (o *Orchestrator) StartSession(ctx context.Context, req StartRequest) (*models.Session, apperrors.Error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}
	now := o.now()
	s := &models.Session{
		ID:      uuid.New(),
		OwnerID: req.OwnerID,
		Kind:    req.Kind,
		Settings: models.Settings{
			Difficulty:    req.Settings.Difficulty,
			Duration:      req.Settings.Duration,
			FocusAreas:    req.Settings.FocusAreas,
			QuestionCount: questionCount(req.Settings, o.opts.DefaultQuestionCount),
		},
		Status:    models.StatusInProgress,
		Questions: []models.QuestionRecord{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := o.store.Save(ctx, s); err != nil {
		return nil, ErrStore.Err(err)
	}
	log.Ctx(ctx).Info().Str("session_id", s.ID.String()).Str("kind", string(s.Kind)).Msg("interview session started")
	return s.Clone(), nil
}

// load fetches a session and checks that owner may act on it.
func (o *Orchestrator) load(ctx context.Context, id uuid.UUID, owner string) (*models.Session, apperrors.Error) {
	s, err := o.store.Load(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, ErrStore.Err(err)
	}
	if s.OwnerID != owner {
		return nil, ErrNotOwner
	}
	return s, nil
}

// GetSession returns the session if owner owns it.
func (o *Orchestrator) GetSession(ctx context.Context, id uuid.UUID, owner string) (*models.Session, apperrors.Error) {
	return o.load(ctx, id, owner)
}

// ListSessions returns owner's sessions, newest first.
func (o *Orchestrator) ListSessions(ctx context.Context, owner string, limit int) ([]*models.Session, apperrors.Error) {
	if owner == "" {
		return nil, ErrInvalidRequest.Msg("owner is required")
	}
	list, err := o.store.ListByOwner(ctx, owner, limit)
	if err != nil {
		return nil, ErrStore.Err(err)
	}
	return list, nil
}

// Abandon ends an in-progress session without a report. Abandoning a session
// that already ended returns it unchanged.
func (o *Orchestrator) Abandon(ctx context.Context, id uuid.UUID, owner string) (*models.Session, apperrors.Error) {
	unlock := o.locks.Lock(id.String())
	defer unlock()

	s, err := o.load(ctx, id, owner)
	if err != nil {
		return nil, err
	}
	if s.Status.Terminal() {
		return s, nil
	}
	now := o.now()
	s.Status = models.StatusAbandoned
	s.UpdatedAt = now
	s.CompletedAt = &now
	if err := o.store.Save(context.WithoutCancel(ctx), s); err != nil {
		return nil, ErrStore.Err(err)
	}
	o.contexts.Clear(ctx, id.String())
	log.Ctx(ctx).Info().Str("session_id", id.String()).Msg("interview session abandoned")
	return s.Clone(), nil
}

// turn accumulates the outcome of one ProcessTurn call.
type turn struct {
	req         *TurnRequest
	sess        *models.Session
	now         time.Time
	resetCtx    bool
	rebuildCtx  bool
	pending     []generate.Message
	diagnostics []string
	resp        TurnResponse
}

func (t *turn) degrade(code string) {
	for _, d := range t.diagnostics {
		if d == code {
			return
		}
	}
	t.diagnostics = append(t.diagnostics, code)
}

// ProcessTurn records the candidate's message and produces the next
// question, or closes the interview when the request marks the last question.
func (o *Orchestrator) ProcessTurn(ctx context.Context, req TurnRequest) (*TurnResponse, apperrors.Error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	id := req.SessionID.String()
	ctx = log.Ctx(ctx).With().Str("session_id", id).Logger().WithContext(ctx)

	unlock := o.locks.Lock(id)
	defer unlock()

	sess, err := o.load(ctx, req.SessionID, req.OwnerID)
	if err != nil {
		return nil, err
	}
	if sess.Status.Terminal() {
		return terminalResponse(sess), nil
	}

	t := &turn{req: &req, sess: sess, now: o.now()}
	switch {
	case req.IsFirstQuestion || len(sess.Questions) == 0:
		o.firstTurn(ctx, t)
	case req.IsLastQuestion:
		o.closingTurn(ctx, t)
	default:
		o.answerTurn(ctx, t)
	}

	sess.UpdatedAt = t.now
	if err := o.store.Save(context.WithoutCancel(ctx), sess); err != nil {
		log.Ctx(ctx).Error().Str("error", err.ErrorAll()).Msg("failed to save session")
		return nil, ErrStore.Err(err)
	}
	o.commitContext(ctx, t)

	t.resp.SessionID = sess.ID
	t.resp.Status = sess.Status
	t.resp.Degraded = len(t.diagnostics) > 0
	t.resp.Diagnostics = t.diagnostics
	if t.resp.Degraded {
		log.Ctx(ctx).Warn().Strs("diagnostics", t.diagnostics).Msg("turn completed in degraded mode")
	}
	return &t.resp, nil
}

func terminalResponse(s *models.Session) *TurnResponse {
	return &TurnResponse{
		SessionID:     s.ID,
		Status:        s.Status,
		QuestionIndex: s.NextIndex(),
		Terminal:      true,
		Report:        s.Report.Clone(),
	}
}

func (o *Orchestrator) seed(s *models.Session) generate.Message {
	return o.prompts.Seed(s.Kind, s.Settings, s.Introduction)
}

// history returns the generation context for a session, rebuilding it from
// the persisted records when the volatile copy is gone.
func (o *Orchestrator) history(ctx context.Context, s *models.Session) []generate.Message {
	id := s.ID.String()
	h, created := o.contexts.GetOrCreate(ctx, id, o.seed(s))
	if !created {
		return h
	}
	rebuilt := o.prompts.Rebuild(s)
	if len(rebuilt) == 0 {
		return h
	}
	log.Ctx(ctx).Info().Int("messages", len(rebuilt)).Msg("rebuilt conversation context from stored session")
	if err := o.contexts.Append(ctx, id, rebuilt...); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("failed to store rebuilt context")
	}
	return append(h, rebuilt...)
}

func (o *Orchestrator) commitContext(ctx context.Context, t *turn) {
	id := t.sess.ID.String()
	if t.sess.Status.Terminal() {
		o.contexts.Clear(ctx, id)
		return
	}
	if t.resetCtx || t.rebuildCtx {
		o.contexts.Clear(ctx, id)
		o.contexts.GetOrCreate(ctx, id, o.seed(t.sess))
	}
	if t.rebuildCtx {
		// A replay rewrote history; drop the superseded exchanges.
		if err := o.contexts.Append(ctx, id, o.prompts.Rebuild(t.sess)...); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("failed to rebuild conversation context")
		}
		return
	}
	if len(t.pending) == 0 {
		return
	}
	if err := o.contexts.Append(ctx, id, t.pending...); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("failed to commit conversation context")
	}
}

// generate asks for a completion and records a diagnostic on failure.
func (o *Orchestrator) generate(ctx context.Context, t *turn, msgs []generate.Message) string {
	raw, err := o.gen.Generate(ctx, msgs)
	if err != nil {
		var ae apperrors.Error
		if errors.As(err, &ae) {
			log.Ctx(ctx).Warn().Str("error", ae.ErrorAll()).Msg("generation failed")
		} else {
			log.Ctx(ctx).Warn().Err(err).Msg("generation failed")
		}
		t.degrade(DiagGenerationFailed)
		return ""
	}
	return raw
}

type questionReply struct {
	Question string `mapstructure:"question"`
	Feedback any    `mapstructure:"feedback"`
}

type closingReply struct {
	Closing  string `mapstructure:"closing"`
	Feedback any    `mapstructure:"feedback"`
}

func (o *Orchestrator) firstTurn(ctx context.Context, t *turn) {
	s := t.sess
	if intro := prompt.Introduction(t.req.Answer); intro != "" {
		s.Introduction = intro
	}
	ask := o.prompts.FirstTurn()
	msgs := []generate.Message{o.seed(s), ask}
	raw := o.generate(ctx, t, msgs)
	q := o.question(ctx, t, raw, 0)

	o.ask(t, 0, q)
	t.resetCtx = true
	t.pending = []generate.Message{ask, generate.Assistant(q)}
	t.resp.Question = q
	t.resp.QuestionIndex = 0
}

func (o *Orchestrator) answerTurn(ctx context.Context, t *turn) {
	s, req := t.sess, t.req
	idx := *req.QuestionIndex
	target := idx + 1
	if req.ForceNewQuestion {
		target = idx
	}
	if req.NextQuestionIndex != nil {
		target = *req.NextQuestionIndex
	}

	// An answered slot is never re-asked by a plain answer turn, so a stale
	// retry cannot erase answers recorded after it.
	var keep bool
	var kept string
	if next := s.Record(target); next != nil {
		t.rebuildCtx = true
		if !req.ForceNewQuestion && next.Answer != nil {
			keep, kept = true, next.Question
		}
	}
	if prev := s.Record(idx); prev != nil && prev.Answer != nil {
		t.rebuildCtx = true
	}

	base := o.history(ctx, s)
	var ask generate.Message
	if req.ForceNewQuestion {
		ask = o.prompts.RegenerateTurn(target)
	} else {
		rec := o.recordAnswer(t, idx)
		ask = o.prompts.AnswerTurn(idx, rec.Question, req.Answer, target)
	}
	msgs := append(base, ask)
	raw := o.generate(ctx, t, msgs)

	res := decoder.Decode[questionReply](o.decoder, raw, decoder.QuestionSchema)
	if raw != "" && !res.OK {
		log.Ctx(ctx).Debug().Str("reason", res.Reason).Msg("turn reply not decodable")
	}
	if !req.ForceNewQuestion {
		fb := o.feedback(ctx, t, res.OK, res.Value.Feedback, raw)
		s.Record(idx).Feedback = fb
		t.resp.Feedback = fb.Clone()
	}

	t.resp.QuestionIndex = target
	if keep {
		log.Ctx(ctx).Info().Int("index", idx).Int("next_index", target).Msg("replayed answer; keeping answered next question")
		t.resp.Question = kept
		return
	}
	q := strings.TrimSpace(res.Value.Question)
	if !res.OK || q == "" {
		q = o.question(ctx, t, raw, target)
	}
	o.ask(t, target, q)
	if !t.rebuildCtx {
		t.pending = []generate.Message{ask, generate.Assistant(q)}
	}
	t.resp.Question = q
}

func (o *Orchestrator) closingTurn(ctx context.Context, t *turn) {
	s, req := t.sess, t.req
	idx := *req.QuestionIndex
	base := o.history(ctx, s)
	answered := !req.ForceNewQuestion
	if answered {
		o.recordAnswer(t, idx)
	}

	ask := o.prompts.ClosingTurn(req.Answer)
	msgs := append(base, ask)
	raw := o.generate(ctx, t, msgs)
	res := decoder.Decode[closingReply](o.decoder, raw, decoder.ClosingSchema)

	if answered {
		fb := o.feedback(ctx, t, res.OK, res.Value.Feedback, raw)
		s.Record(idx).Feedback = fb
		t.resp.Feedback = fb.Clone()
	}

	remarks := strings.TrimSpace(res.Value.Closing)
	if !res.OK || remarks == "" {
		if raw != "" {
			t.degrade(DiagDecodeFailed)
		}
		remarks = strings.TrimSpace(o.prompts.ClosingFallback)
	}

	report, fallback := o.aggregator.Aggregate(ctx, s)
	if fallback {
		t.degrade(DiagReportFallback)
	}
	s.Report = report
	s.Status = models.StatusCompleted
	completed := t.now
	s.CompletedAt = &completed
	log.Ctx(ctx).Info().Float64("overall_score", report.OverallScore).Str("source", report.Source).Msg("interview completed")

	t.resp.Terminal = true
	t.resp.QuestionIndex = s.NextIndex()
	t.resp.ClosingRemarks = remarks
	t.resp.Report = report.Clone()
}

// recordAnswer stores the answer at idx, creating a placeholder record when
// the question was never recorded. Replays overwrite.
func (o *Orchestrator) recordAnswer(t *turn, idx int) *models.QuestionRecord {
	rec := t.sess.EnsureRecord(idx, t.now)
	answer := t.req.Answer
	answeredAt := t.now
	rec.Answer = &answer
	rec.AnsweredAt = &answeredAt
	rec.Feedback = nil
	return rec
}

// ask places question q at index, resetting any answer left from an earlier
// question in that slot. Plain answer turns only reach it for unanswered slots.
func (o *Orchestrator) ask(t *turn, index int, q string) {
	rec := t.sess.EnsureRecord(index, t.now)
	rec.Question = q
	rec.Answer = nil
	rec.AnsweredAt = nil
	rec.Feedback = nil
	rec.AskedAt = t.now
}

// feedback types the decoded feedback or falls back to the heuristic scorer.
func (o *Orchestrator) feedback(ctx context.Context, t *turn, decoded bool, v any, raw string) *models.Feedback {
	if decoded {
		res := decoder.FromValue[models.Feedback](v, decoder.FeedbackSchema)
		if res.OK {
			fb := res.Value
			fb.Rating = scorer.Clamp(fb.Rating)
			fb.Source = FeedbackSourceGenerated
			return &fb
		}
		log.Ctx(ctx).Debug().Str("reason", res.Reason).Msg("feedback not decodable")
	}
	if raw != "" {
		t.degrade(DiagDecodeFailed)
	}
	return scorer.Feedback(t.req.Answer)
}

// question recovers a question from raw text or picks a canned continuation.
func (o *Orchestrator) question(ctx context.Context, t *turn, raw string, index int) string {
	if raw != "" {
		res := decoder.Decode[questionReply](o.decoder, raw, decoder.QuestionSchema)
		if q := strings.TrimSpace(res.Value.Question); res.OK && q != "" {
			return q
		}
	}
	q, recovered := scorer.NextQuestion(raw, o.prompts.Continuations(t.sess.Kind), index)
	if !recovered {
		if raw != "" {
			t.degrade(DiagDecodeFailed)
		}
		if e := log.Ctx(ctx).Debug(); e.Enabled() {
			e.Int("index", index).Msg("using canned question")
		}
	}
	return q
}
