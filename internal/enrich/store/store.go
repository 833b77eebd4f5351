package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/we-promise/sure-sub001/internal/enrich"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// attributeColumns whitelists the enrichable attribute to column mapping for
// the entry entity. A miss here is a programming error.
var attributeColumns = map[string]map[string]string{
	"entry": {
		"description": "description",
		"merchant":    "merchant",
		"category":    "category",
		"notes":       "notes",
	},
}

func column(entityType, attribute string) (string, error) {
	cols, ok := attributeColumns[entityType]
	if !ok {
		return "", fmt.Errorf("unknown enrichable entity type %q", entityType)
	}

	col, ok := cols[attribute]
	if !ok {
		return "", fmt.Errorf("entity %q has no enrichable attribute %q", entityType, attribute)
	}

	return col, nil
}

func tableFor(entityType string) (string, error) {
	if entityType == "entry" {
		return "entries", nil
	}

	return "", fmt.Errorf("unknown enrichable entity type %q", entityType)
}

// Apply writes the changed attributes onto the entity row and upserts one
// enrichment record per change, all in one transaction.
func (s *Store) Apply(ctx context.Context, entity enrich.Enrichable, changes []enrich.Change, source enrich.Source, metadata map[string]any) error {
	table, err := tableFor(entity.EnrichableType())
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning enrichment tx: %w", err)
	}
	defer tx.Rollback()

	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}

	recordQuery := `
		INSERT INTO enrichments (entity_type, entity_id, attribute, value, source, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (entity_type, entity_id, attribute, source) DO UPDATE
		SET value = EXCLUDED.value, metadata = EXCLUDED.metadata, updated_at = NOW()
	`

	for _, c := range changes {
		col, err := column(entity.EnrichableType(), c.Attribute)
		if err != nil {
			return err
		}

		attrQuery := fmt.Sprintf(`UPDATE %s SET %s = $1, updated_at = NOW() WHERE id = $2`, table, col)
		if _, err := tx.ExecContext(ctx, attrQuery, c.Value, entity.EnrichableID()); err != nil {
			return fmt.Errorf("writing attribute %s: %w", c.Attribute, err)
		}

		if _, err := tx.ExecContext(ctx, recordQuery,
			entity.EnrichableType(), entity.EnrichableID(), c.Attribute, c.Value, string(source), metadataJSON,
		); err != nil {
			return fmt.Errorf("recording enrichment of %s: %w", c.Attribute, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing enrichment: %w", err)
	}

	return nil
}

func (s *Store) SaveLocks(ctx context.Context, entity enrich.Enrichable) error {
	table, err := tableFor(entity.EnrichableType())
	if err != nil {
		return err
	}

	locks, err := json.Marshal(entity.LockedAttrs())
	if err != nil {
		return fmt.Errorf("encoding locked attributes: %w", err)
	}

	query := fmt.Sprintf(`UPDATE %s SET locked_attributes = $1, updated_at = NOW() WHERE id = $2`, table)

	if _, err := s.db.ExecContext(ctx, query, locks, entity.EnrichableID()); err != nil {
		return fmt.Errorf("saving locked attributes: %w", err)
	}

	return nil
}

// ClearSource releases every lock the source holds and deletes its records,
// in one transaction. Each lock names its holder, so locks taken over by
// another source, the user above all, are left exactly as they are.
func (s *Store) ClearSource(ctx context.Context, entityType string, source enrich.Source) error {
	table, err := tableFor(entityType)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning cache clear tx: %w", err)
	}
	defer tx.Rollback()

	unlockQuery := fmt.Sprintf(`
		UPDATE %s t
		SET locked_attributes = COALESCE((
			SELECT jsonb_object_agg(l.key, l.value)
			FROM jsonb_each(t.locked_attributes) l
			WHERE l.value->>'source' <> $1
		), '{}'::jsonb), updated_at = NOW()
		WHERE t.locked_attributes IS NOT NULL
		AND EXISTS (
			SELECT 1 FROM jsonb_each(t.locked_attributes) l
			WHERE l.value->>'source' = $1
		)
	`, table)

	if _, err := tx.ExecContext(ctx, unlockQuery, string(source)); err != nil {
		return fmt.Errorf("unlocking attributes: %w", err)
	}

	deleteQuery := `DELETE FROM enrichments WHERE entity_type = $1 AND source = $2`

	if _, err := tx.ExecContext(ctx, deleteQuery, entityType, string(source)); err != nil {
		return fmt.Errorf("deleting enrichment records: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing cache clear: %w", err)
	}

	return nil
}

// ClearSourceFor is ClearSource scoped to one entity row.
func (s *Store) ClearSourceFor(ctx context.Context, entityType string, entityID uuid.UUID, source enrich.Source) error {
	table, err := tableFor(entityType)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning cache clear tx: %w", err)
	}
	defer tx.Rollback()

	unlockQuery := fmt.Sprintf(`
		UPDATE %s t
		SET locked_attributes = COALESCE((
			SELECT jsonb_object_agg(l.key, l.value)
			FROM jsonb_each(t.locked_attributes) l
			WHERE l.value->>'source' <> $1
		), '{}'::jsonb), updated_at = NOW()
		WHERE t.id = $2 AND t.locked_attributes IS NOT NULL
	`, table)

	if _, err := tx.ExecContext(ctx, unlockQuery, string(source), entityID); err != nil {
		return fmt.Errorf("unlocking attributes: %w", err)
	}

	deleteQuery := `DELETE FROM enrichments WHERE entity_type = $1 AND entity_id = $2 AND source = $3`

	if _, err := tx.ExecContext(ctx, deleteQuery, entityType, entityID, string(source)); err != nil {
		return fmt.Errorf("deleting enrichment records: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing cache clear: %w", err)
	}

	return nil
}
