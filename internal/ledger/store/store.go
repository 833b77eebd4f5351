package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/we-promise/sure-sub001/internal/ledger"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const selectEntryColumns = `
	e.id, e.account_id, e.date, e.amount, e.currency, e.kind,
	e.description, e.raw_description, e.external_id, e.balance,
	e.merchant, e.category, e.notes, e.locked_attributes, e.pending,
	e.created_at, e.updated_at
`

// scanEntry reads an entry row in selectEntryColumns order.
func scanEntry(s scanner) (*ledger.Entry, error) {
	var (
		e          ledger.Entry
		kind       string
		externalID sql.NullString
		balance    decimal.NullDecimal
		merchant   sql.NullString
		category   sql.NullString
		notes      sql.NullString
		locks      []byte
	)

	if err := s.Scan(
		&e.ID, &e.AccountID, &e.Date, &e.Amount, &e.Currency, &kind,
		&e.Description, &e.RawDescription, &externalID, &balance,
		&merchant, &category, &notes, &locks, &e.Pending,
		&e.CreatedAt, &e.UpdatedAt,
	); err != nil {
		return nil, err
	}

	e.Kind = ledger.Kind(kind)
	e.ExternalID = externalID.String
	e.Merchant = merchant.String
	e.Category = category.String
	e.Notes = notes.String

	if balance.Valid {
		e.Balance = &balance.Decimal
	}

	if len(locks) > 0 {
		if err := json.Unmarshal(locks, &e.LockedAttributes); err != nil {
			return nil, fmt.Errorf("decoding locked attributes: %w", err)
		}
	}

	return &e, nil
}

func (s *Store) CreateEntry(ctx context.Context, e *ledger.Entry) error {
	query := `
		INSERT INTO entries (account_id, date, amount, currency, kind, description, raw_description,
			external_id, balance, merchant, category, notes, pending, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, NULLIF($10, ''), NULLIF($11, ''), NULLIF($12, ''), $13, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	var balance decimal.NullDecimal
	if e.Balance != nil {
		balance = decimal.NewNullDecimal(*e.Balance)
	}

	err := s.db.QueryRowContext(ctx, query,
		e.AccountID, e.Date, e.Amount, e.Currency, string(e.Kind),
		e.Description, e.RawDescription, e.ExternalID, balance,
		e.Merchant, e.Category, e.Notes, e.Pending,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating entry: %w", err)
	}

	return nil
}

func (s *Store) UpdateEntryExternalID(ctx context.Context, id uuid.UUID, externalID string) error {
	// Identity is only ever assigned to an entry that has none: once a
	// stable id is set it is never reassigned.
	query := `
		UPDATE entries
		SET external_id = $1, updated_at = NOW()
		WHERE id = $2 AND external_id IS NULL
	`

	if _, err := s.db.ExecContext(ctx, query, externalID, id); err != nil {
		return fmt.Errorf("updating entry external id: %w", err)
	}

	return nil
}

func (s *Store) ListEntriesByDateRange(ctx context.Context, accountID uuid.UUID, start, end time.Time) ([]*ledger.Entry, error) {
	query := `SELECT ` + selectEntryColumns + `
		FROM entries e
		WHERE e.account_id = $1 AND e.date >= $2 AND e.date <= $3
		ORDER BY e.date ASC`

	return s.listEntries(ctx, query, accountID, start, end)
}

func (s *Store) ListEntries(ctx context.Context, accountID uuid.UUID) ([]*ledger.Entry, error) {
	query := `SELECT ` + selectEntryColumns + `
		FROM entries e
		WHERE e.account_id = $1
		ORDER BY e.date ASC`

	return s.listEntries(ctx, query, accountID)
}

func (s *Store) listEntries(ctx context.Context, query string, args ...any) ([]*ledger.Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	defer rows.Close()

	var entries []*ledger.Entry

	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entry rows: %w", err)
	}

	return entries, nil
}

const selectAccountColumns = `
	a.id, a.name, a.currency, a.provider_account_id,
	a.current_balance, a.available_balance, a.created_at, a.updated_at
`

func scanAccount(s scanner) (*ledger.Account, error) {
	var (
		a          ledger.Account
		providerID sql.NullString
	)

	if err := s.Scan(
		&a.ID, &a.Name, &a.Currency, &providerID,
		&a.CurrentBalance, &a.AvailableBalance, &a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return nil, err
	}

	a.ProviderAccountID = providerID.String

	return &a, nil
}

func (s *Store) GetAccount(ctx context.Context, id uuid.UUID) (*ledger.Account, error) {
	query := `SELECT ` + selectAccountColumns + ` FROM accounts a WHERE a.id = $1`

	a, err := scanAccount(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledger.ErrNotFound
		}

		return nil, fmt.Errorf("getting account: %w", err)
	}

	return a, nil
}

func (s *Store) GetAccountByProviderID(ctx context.Context, providerAccountID string) (*ledger.Account, error) {
	query := `SELECT ` + selectAccountColumns + ` FROM accounts a WHERE a.provider_account_id = $1`

	a, err := scanAccount(s.db.QueryRowContext(ctx, query, providerAccountID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledger.ErrNotFound
		}

		return nil, fmt.Errorf("getting account by provider id: %w", err)
	}

	return a, nil
}

func (s *Store) UpsertAccount(ctx context.Context, a *ledger.Account) error {
	query := `
		INSERT INTO accounts (name, currency, provider_account_id, current_balance, available_balance, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, NOW(), NOW())
		ON CONFLICT (provider_account_id) DO UPDATE
		SET name = EXCLUDED.name, current_balance = EXCLUDED.current_balance,
			available_balance = EXCLUDED.available_balance, updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	err := s.db.QueryRowContext(ctx, query,
		a.Name, a.Currency, a.ProviderAccountID, a.CurrentBalance, a.AvailableBalance,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upserting account: %w", err)
	}

	return nil
}

func (s *Store) UpdateAccountBalance(ctx context.Context, id uuid.UUID, current, available decimal.Decimal) error {
	query := `
		UPDATE accounts
		SET current_balance = $1, available_balance = $2, updated_at = NOW()
		WHERE id = $3
	`

	if _, err := s.db.ExecContext(ctx, query, current, available, id); err != nil {
		return fmt.Errorf("updating account balance: %w", err)
	}

	return nil
}

func (s *Store) FindAnchor(ctx context.Context, accountID uuid.UUID) (*ledger.Entry, error) {
	query := `SELECT ` + selectEntryColumns + `
		FROM entries e
		WHERE e.account_id = $1 AND e.kind = $2
		LIMIT 1`

	e, err := scanEntry(s.db.QueryRowContext(ctx, query, accountID, string(ledger.KindOpeningAnchor)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledger.ErrNotFound
		}

		return nil, fmt.Errorf("finding opening anchor: %w", err)
	}

	return e, nil
}

func (s *Store) UpdateAnchor(ctx context.Context, entryID uuid.UUID, date time.Time, balance decimal.Decimal) error {
	query := `
		UPDATE entries
		SET date = $1, balance = $2, updated_at = NOW()
		WHERE id = $3 AND kind = $4 AND date >= $1
	`

	if _, err := s.db.ExecContext(ctx, query, date, balance, entryID, string(ledger.KindOpeningAnchor)); err != nil {
		return fmt.Errorf("updating opening anchor: %w", err)
	}

	return nil
}
