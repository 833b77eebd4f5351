package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/we-promise/sure-sub001/internal/ledger"
)

// Store persists the diagnostic snapshot of each connection's most recent
// discovery fetch.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) SaveSnapshot(ctx context.Context, connectionID uuid.UUID, raw json.RawMessage) error {
	query := `
		INSERT INTO sync_snapshots (connection_id, payload, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		ON CONFLICT (connection_id) DO UPDATE
		SET payload = EXCLUDED.payload, updated_at = NOW()
	`

	if _, err := s.db.ExecContext(ctx, query, connectionID, []byte(raw)); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}

	return nil
}

func (s *Store) GetSnapshot(ctx context.Context, connectionID uuid.UUID) (json.RawMessage, error) {
	query := `SELECT payload FROM sync_snapshots WHERE connection_id = $1`

	var payload []byte

	err := s.db.QueryRowContext(ctx, query, connectionID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledger.ErrNotFound
		}

		return nil, fmt.Errorf("getting snapshot: %w", err)
	}

	return payload, nil
}
