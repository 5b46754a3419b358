package mapping

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Gunoch/anonimatizacao/internal/detect"
	anonotel "github.com/Gunoch/anonimatizacao/internal/otel"
)

var tracer = anonotel.Tracer("github.com/Gunoch/anonimatizacao/internal/mapping")

// Store persists mapping tables in SQLite, one row per entry keyed by
// session. Saving a session is transactional: the stored table is always
// either the previous complete version or the new complete version.
type Store struct {
	db *sql.DB
}

// SessionInfo summarizes a stored session for listings.
type SessionInfo struct {
	SessionID  string    `json:"session_id"`
	Mode       Mode      `json:"mode"`
	CreatedAt  time.Time `json:"created_at"`
	EntryCount int       `json:"entry_count"`
}

// NewStore opens (and if needed initializes) the mapping database.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening mapping database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		session_id TEXT PRIMARY KEY,
		mode TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS entries (
		session_id TEXT NOT NULL REFERENCES sessions(session_id) ON DELETE CASCADE,
		original TEXT NOT NULL,
		synthetic TEXT NOT NULL,
		category TEXT NOT NULL,
		first_seen_offset INTEGER NOT NULL,
		PRIMARY KEY (session_id, original, category)
	);

	CREATE INDEX IF NOT EXISTS idx_entries_session ON entries(session_id);
	`

	if _, err := db.ExecContext(context.Background(), schema); err != nil {
		return nil, fmt.Errorf("creating mapping schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save writes the table for its session, replacing any previous version
// atomically.
func (s *Store) Save(ctx context.Context, t *Table) error {
	ctx, span := tracer.Start(ctx, "mapping.save",
		trace.WithAttributes(
			attribute.String("session_id", t.SessionID()),
			attribute.Int("entry_count", t.Len()),
		))
	defer span.End()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning mapping save: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (session_id, mode, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET mode = excluded.mode, created_at = excluded.created_at`,
		t.SessionID(), string(t.Mode()), t.CreatedAt(),
	)
	if err != nil {
		return fmt.Errorf("saving session: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE session_id = ?`, t.SessionID()); err != nil {
		return fmt.Errorf("clearing previous entries: %w", err)
	}

	insert := `INSERT INTO entries (session_id, original, synthetic, category, first_seen_offset)
	           VALUES (?, ?, ?, ?, ?)`
	for _, e := range t.Entries() {
		if _, err := tx.ExecContext(ctx, insert,
			t.SessionID(), e.Original, e.Synthetic, string(e.Category), e.FirstSeenOffset,
		); err != nil {
			return fmt.Errorf("saving entry for %q: %w", e.Original, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing mapping save: %w", err)
	}
	return nil
}

// Load rebuilds a session's table. An unknown session is a DataError; so is
// a stored row that no longer satisfies the table invariants.
func (s *Store) Load(ctx context.Context, sessionID string) (*Table, error) {
	ctx, span := tracer.Start(ctx, "mapping.load",
		trace.WithAttributes(attribute.String("session_id", sessionID)))
	defer span.End()

	var mode string
	var createdAt time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT mode, created_at FROM sessions WHERE session_id = ?`, sessionID,
	).Scan(&mode, &createdAt)
	if err == sql.ErrNoRows {
		return nil, &DataError{Source: sessionID, Err: fmt.Errorf("session not found")}
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}

	parsedMode, ok := ParseMode(mode)
	if !ok {
		return nil, &DataError{Source: sessionID, Err: fmt.Errorf("unknown mode %q", mode)}
	}

	t := NewTable(sessionID, parsedMode)
	t.createdAt = createdAt

	rows, err := s.db.QueryContext(ctx,
		`SELECT original, synthetic, category, first_seen_offset
		 FROM entries WHERE session_id = ? ORDER BY first_seen_offset, original`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e Entry
		var category string
		if err := rows.Scan(&e.Original, &e.Synthetic, &category, &e.FirstSeenOffset); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		cat, err := detect.ParseCategory(category)
		if err != nil {
			return nil, &DataError{Source: sessionID, Err: err}
		}
		e.Category = cat
		if e.Original == "" || e.Synthetic == "" {
			return nil, &DataError{Source: sessionID, Err: fmt.Errorf("empty original or synthetic value")}
		}
		t.entries[tableKey{e.Original, e.Category}] = e
		t.inUse[e.Synthetic] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading entries: %w", err)
	}

	span.SetAttributes(attribute.Int("entry_count", t.Len()))
	return t, nil
}

// ListSessions returns stored sessions, newest first.
func (s *Store) ListSessions(ctx context.Context) ([]SessionInfo, error) {
	ctx, span := tracer.Start(ctx, "mapping.list_sessions")
	defer span.End()

	rows, err := s.db.QueryContext(ctx, `
		SELECT s.session_id, s.mode, s.created_at, COUNT(e.original)
		FROM sessions s LEFT JOIN entries e ON e.session_id = s.session_id
		GROUP BY s.session_id ORDER BY s.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var results []SessionInfo
	for rows.Next() {
		var info SessionInfo
		var mode string
		if err := rows.Scan(&info.SessionID, &mode, &info.CreatedAt, &info.EntryCount); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		info.Mode = Mode(mode)
		results = append(results, info)
	}
	span.SetAttributes(attribute.Int("session_count", len(results)))
	return results, rows.Err()
}

// DeleteSession removes a session and its entries.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	ctx, span := tracer.Start(ctx, "mapping.delete_session",
		trace.WithAttributes(attribute.String("session_id", sessionID)))
	defer span.End()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("deleting entries: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}
