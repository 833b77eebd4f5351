package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// NormalizedRecord is the provider-agnostic transaction shape every mapper
// must produce. Amount is signed: positive = outflow, negative = inflow.
type NormalizedRecord struct {
	ProviderAccountID string
	Amount            decimal.Decimal
	Currency          string
	Date              time.Time
	Description       string

	// ExternalID is the provider's stable transaction id, empty while the
	// transaction is still pending on the provider side.
	ExternalID string

	// FallbackID is a secondary identifier (e.g. a bank FITID) used when no
	// stable id is available.
	FallbackID string

	// Pending reports the provider's provisional vs posted state.
	Pending bool

	// Optional fields the provider is allowed to enrich, subject to locks.
	Merchant string
	Category string
}

// NormalizedAccount is the provider-agnostic account shape.
type NormalizedAccount struct {
	ProviderAccountID string
	Name              string
	Currency          string
	CurrentBalance    decimal.Decimal
	AvailableBalance  decimal.Decimal

	// ErrorMessage carries a provider-embedded partial failure for this one
	// account inside an otherwise successful response. Non-empty means the
	// account must be skipped, not the whole sync.
	ErrorMessage string
}

// Client fetches raw payloads from a provider. Implementations must honor the
// window bounds they are given.
type Client interface {
	ListAccounts(ctx context.Context) ([]json.RawMessage, error)
	ListTransactions(ctx context.Context, providerAccountID string, start, end time.Time) ([]json.RawMessage, error)
}

// Mapper converts a provider's raw payloads into normalized shapes. The sync
// engine treats it as a black box.
type Mapper interface {
	NormalizeAccount(raw json.RawMessage) (NormalizedAccount, error)
	NormalizeTransaction(raw json.RawMessage, currency string) (NormalizedRecord, error)
}

// AuthError is a connection-fatal failure: expired or revoked credentials,
// malformed base configuration. Callers should prompt re-authentication
// instead of retrying.
type AuthError struct {
	Provider string
	Reason   string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: authentication failed: %s", e.Provider, e.Reason)
}
