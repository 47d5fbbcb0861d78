// Package convctx keeps the volatile per-session message history that is fed
// to the text-generation service. Nothing here is persisted: after a restart
// a session simply has no context and the orchestrator rebuilds one.
package convctx

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tansive/mockinterview/internal/common/apperrors"
	"github.com/tansive/mockinterview/internal/common/keylock"
	"github.com/tansive/mockinterview/internal/interviewsrv/generate"
)

var (
	ErrContext         apperrors.Error = apperrors.New("conversation context error").SetStatusCode(http.StatusInternalServerError)
	ErrContextNotFound apperrors.Error = ErrContext.New("no conversation context for session").SetStatusCode(http.StatusNotFound)
)

// Store is the contract the orchestrator depends on. Histories are returned
// as copies; all mutation goes through Append and Clear, which are serialized
// per session.
type Store interface {
	// GetOrCreate returns the history for sessionID, creating it from seed if
	// absent. created reports whether seed was used.
	GetOrCreate(ctx context.Context, sessionID string, seed ...generate.Message) (history []generate.Message, created bool)
	Append(ctx context.Context, sessionID string, msgs ...generate.Message) error
	Clear(ctx context.Context, sessionID string)
}

type history struct {
	seedLen  int
	messages []generate.Message
	touched  time.Time
}

// Memory is an in-process Store. When maxMessages is positive, histories are
// trimmed to the seed plus the most recent messages.
type Memory struct {
	mu          sync.RWMutex
	sessions    map[string]*history
	locks       *keylock.KeyLock
	maxMessages int
	now         func() time.Time
}

// NewMemory returns an empty context store. maxMessages <= 0 disables trimming.
func NewMemory(maxMessages int) *Memory {
	return &Memory{
		sessions:    make(map[string]*history),
		locks:       keylock.New(),
		maxMessages: maxMessages,
		now:         time.Now,
	}
}

func (m *Memory) get(sessionID string) *history {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[sessionID]
}

func (m *Memory) GetOrCreate(ctx context.Context, sessionID string, seed ...generate.Message) ([]generate.Message, bool) {
	unlock := m.locks.Lock(sessionID)
	defer unlock()

	if h := m.get(sessionID); h != nil {
		return copyMessages(h.messages), false
	}
	h := &history{
		seedLen:  len(seed),
		messages: copyMessages(seed),
		touched:  m.now(),
	}
	m.mu.Lock()
	m.sessions[sessionID] = h
	m.mu.Unlock()
	log.Ctx(ctx).Debug().Str("session_id", sessionID).Int("seed", len(seed)).Msg("created conversation context")
	return copyMessages(h.messages), true
}

func (m *Memory) Append(ctx context.Context, sessionID string, msgs ...generate.Message) error {
	unlock := m.locks.Lock(sessionID)
	defer unlock()

	h := m.get(sessionID)
	if h == nil {
		return ErrContextNotFound.Msg("no conversation context for session " + sessionID)
	}
	h.messages = append(h.messages, msgs...)
	h.touched = m.now()
	m.trim(h)
	return nil
}

// trim drops the oldest non-seed messages beyond the bound.
func (m *Memory) trim(h *history) {
	if m.maxMessages <= 0 || len(h.messages) <= m.maxMessages {
		return
	}
	keep := m.maxMessages - h.seedLen
	if keep < 0 {
		keep = 0
	}
	tail := h.messages[len(h.messages)-keep:]
	trimmed := make([]generate.Message, 0, h.seedLen+keep)
	trimmed = append(trimmed, h.messages[:h.seedLen]...)
	trimmed = append(trimmed, tail...)
	h.messages = trimmed
}

func (m *Memory) Clear(ctx context.Context, sessionID string) {
	unlock := m.locks.Lock(sessionID)
	defer unlock()

	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()
	log.Ctx(ctx).Debug().Str("session_id", sessionID).Msg("cleared conversation context")
}

// Len is the number of sessions holding a context.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func copyMessages(in []generate.Message) []generate.Message {
	out := make([]generate.Message, len(in))
	copy(out, in)
	return out
}
