package store

import (
	"context"
	"sort"
	"sync"

	"github.com/tansive/mockinterview/internal/common/apperrors"
	"github.com/tansive/mockinterview/internal/common/uuid"
	"github.com/tansive/mockinterview/internal/interviewsrv/models"
)

// Memory keeps deep copies of sessions in a map.
type Memory struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*models.Session
}

// NewMemory returns an empty in-process store.
func NewMemory() *Memory {
	return &Memory{sessions: make(map[uuid.UUID]*models.Session)}
}

func (m *Memory) Load(ctx context.Context, id uuid.UUID) (*models.Session, apperrors.Error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s.Clone(), nil
}

func (m *Memory) Save(ctx context.Context, s *models.Session) apperrors.Error {
	if err := validate(s); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s.Clone()
	return nil
}

func (m *Memory) ListByOwner(ctx context.Context, ownerID string, limit int) ([]*models.Session, apperrors.Error) {
	m.mu.RLock()
	var out []*models.Session
	for _, s := range m.sessions {
		if s.OwnerID == ownerID {
			out = append(out, s.Clone())
		}
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if n := listLimit(limit); len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func (m *Memory) Close() error {
	return nil
}
