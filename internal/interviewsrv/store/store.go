// Package store persists interview sessions as whole documents. Load and Save
// are atomic per document; the orchestrator reads a session, mutates it in
// memory and writes it back once per turn.
package store

import (
	"context"
	"net/http"

	"github.com/tansive/mockinterview/internal/common/apperrors"
	"github.com/tansive/mockinterview/internal/common/uuid"
	"github.com/tansive/mockinterview/internal/interviewsrv/models"
)

var (
	ErrStore        apperrors.Error = apperrors.New("session store error").SetStatusCode(http.StatusInternalServerError)
	ErrNotFound     apperrors.Error = ErrStore.New("session not found").SetStatusCode(http.StatusNotFound)
	ErrInvalidInput apperrors.Error = ErrStore.New("invalid session document").SetStatusCode(http.StatusBadRequest)
	ErrConflict     apperrors.Error = ErrStore.New("concurrent session update").SetStatusCode(http.StatusConflict)
)

const DefaultListLimit = 50

type Store interface {
	Load(ctx context.Context, id uuid.UUID) (*models.Session, apperrors.Error)
	Save(ctx context.Context, s *models.Session) apperrors.Error
	// ListByOwner returns the owner's sessions, newest first.
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]*models.Session, apperrors.Error)
	Close() error
}

func validate(s *models.Session) apperrors.Error {
	if s == nil || s.ID == uuid.Nil {
		return ErrInvalidInput.Msg("session id is required")
	}
	if s.OwnerID == "" {
		return ErrInvalidInput.Msg("session owner is required")
	}
	return nil
}

func listLimit(limit int) int {
	if limit <= 0 || limit > DefaultListLimit {
		return DefaultListLimit
	}
	return limit
}
