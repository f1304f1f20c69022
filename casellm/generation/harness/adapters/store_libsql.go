package adapters

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	ports "github.com/SCADASolve/CASE/casellm/generation/harness/ports"
)

// LibSQLTranscriptStore implements TranscriptStore using LibSQL.
type LibSQLTranscriptStore struct {
	db *sql.DB
}

// NewLibSQLTranscriptStore takes ownership of db; Close closes it.
func NewLibSQLTranscriptStore(db *sql.DB) *LibSQLTranscriptStore {
	return &LibSQLTranscriptStore{
		db: db,
	}
}

// StartSession records a new session row.
func (s *LibSQLTranscriptStore) StartSession(ctx context.Context, sessionID, model string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, model, started_at) VALUES (?, ?, ?)`,
		sessionID, model, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	return nil
}

// SaveTurn saves a turn to the database.
func (s *LibSQLTranscriptStore) SaveTurn(ctx context.Context, sessionID string, turn ports.Turn) error {
	createdAt := turn.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := `
		INSERT INTO turns (session_id, turn_index, role, input, output, elapsed_ns, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		sessionID, turn.Index, turn.Role, turn.Input, turn.Output, turn.Elapsed.Nanoseconds(), createdAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to save turn: %w", err)
	}

	return nil
}

// LoadTurns returns every turn of a session in order.
func (s *LibSQLTranscriptStore) LoadTurns(ctx context.Context, sessionID string) ([]ports.Turn, error) {
	query := `
		SELECT turn_index, role, input, output, elapsed_ns, created_at FROM turns
		WHERE session_id = ?
		ORDER BY turn_index ASC
	`

	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	var turns []ports.Turn
	for rows.Next() {
		var (
			turn      ports.Turn
			elapsed   int64
			createdAt string
		)
		if err := rows.Scan(&turn.Index, &turn.Role, &turn.Input, &turn.Output, &elapsed, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		turn.Elapsed = time.Duration(elapsed)
		if turn.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse turn timestamp %q: %w", createdAt, err)
		}
		turns = append(turns, turn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating turns: %w", err)
	}

	return turns, nil
}

func (s *LibSQLTranscriptStore) Close() error {
	return s.db.Close()
}

// NoopStore is used when transcripts are disabled.
type NoopStore struct{}

func (NoopStore) StartSession(context.Context, string, string) error { return nil }

func (NoopStore) SaveTurn(context.Context, string, ports.Turn) error { return nil }

func (NoopStore) LoadTurns(context.Context, string) ([]ports.Turn, error) { return nil, nil }

func (NoopStore) Close() error { return nil }

var (
	_ ports.TranscriptStore = (*LibSQLTranscriptStore)(nil)
	_ ports.TranscriptStore = NoopStore{}
)
