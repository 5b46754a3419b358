// Package pipeline orchestrates detection, substitution, and persistence
// for whole documents.
package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Gunoch/anonimatizacao/internal/mapping"
)

// Session binds a mapping table to its persistent store. One session covers
// one anonymization job, which may span several documents that must share
// substitutions.
type Session struct {
	table *mapping.Table
	store *mapping.Store
}

// NewSession creates a session with a fresh table and a generated ID.
func NewSession(store *mapping.Store, mode mapping.Mode) *Session {
	id := uuid.NewString()
	log.Info().Str("session_id", id).Str("mode", string(mode)).Msg("starting session")
	return &Session{
		table: mapping.NewTable(id, mode),
		store: store,
	}
}

// ResumeSession loads an existing session's table from the store.
func ResumeSession(ctx context.Context, store *mapping.Store, sessionID string) (*Session, error) {
	table, err := store.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("resuming session %s: %w", sessionID, err)
	}
	return &Session{table: table, store: store}, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.table.SessionID() }

// Table returns the session's mapping table.
func (s *Session) Table() *mapping.Table { return s.table }

// Save persists the table's current state.
func (s *Session) Save(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	return s.store.Save(ctx, s.table)
}
