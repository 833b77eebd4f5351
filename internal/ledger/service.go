package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/we-promise/sure-sub001/internal/provider"
)

var ErrNotFound = errors.New("not found")

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=ledger
type Repository interface {
	CreateEntry(ctx context.Context, e *Entry) error
	UpdateEntryExternalID(ctx context.Context, id uuid.UUID, externalID string) error
	ListEntriesByDateRange(ctx context.Context, accountID uuid.UUID, start, end time.Time) ([]*Entry, error)
	ListEntries(ctx context.Context, accountID uuid.UUID) ([]*Entry, error)

	GetAccount(ctx context.Context, id uuid.UUID) (*Account, error)
	GetAccountByProviderID(ctx context.Context, providerAccountID string) (*Account, error)
	UpsertAccount(ctx context.Context, a *Account) error
	UpdateAccountBalance(ctx context.Context, id uuid.UUID, current, available decimal.Decimal) error

	FindAnchor(ctx context.Context, accountID uuid.UUID) (*Entry, error)
	UpdateAnchor(ctx context.Context, entryID uuid.UUID, date time.Time, balance decimal.Decimal) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// LinkAccount upserts a ledger account for a provider account payload and
// refreshes its balances.
func (s *Service) LinkAccount(ctx context.Context, na provider.NormalizedAccount) (*Account, error) {
	account, err := s.repo.GetAccountByProviderID(ctx, na.ProviderAccountID)

	switch {
	case errors.Is(err, ErrNotFound):
		account = &Account{
			Name:              na.Name,
			Currency:          na.Currency,
			ProviderAccountID: na.ProviderAccountID,
			CurrentBalance:    na.CurrentBalance,
			AvailableBalance:  na.AvailableBalance,
		}
		if err := s.repo.UpsertAccount(ctx, account); err != nil {
			return nil, fmt.Errorf("creating account: %w", err)
		}

		return account, nil
	case err != nil:
		return nil, fmt.Errorf("finding account: %w", err)
	}

	if err := s.repo.UpdateAccountBalance(ctx, account.ID, na.CurrentBalance, na.AvailableBalance); err != nil {
		return nil, fmt.Errorf("updating balance: %w", err)
	}

	account.CurrentBalance = na.CurrentBalance
	account.AvailableBalance = na.AvailableBalance

	return account, nil
}

func (s *Service) GetAccount(ctx context.Context, id uuid.UUID) (*Account, error) {
	return s.repo.GetAccount(ctx, id)
}

func (s *Service) ListEntries(ctx context.Context, accountID uuid.UUID) ([]*Entry, error) {
	return s.repo.ListEntries(ctx, accountID)
}
