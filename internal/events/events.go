package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SyncCompleted is emitted after every connection-level sync run, including
// partially successful ones.
type SyncCompleted struct {
	ConnectionID         uuid.UUID `json:"connection_id"`
	Provider             string    `json:"provider"`
	AccountsProcessed    int       `json:"accounts_processed"`
	TransactionsImported int       `json:"transactions_imported"`
	SkippedAccounts      int       `json:"skipped_accounts"`
	CompletedAt          time.Time `json:"completed_at"`
}

type Publisher interface {
	PublishSyncCompleted(ctx context.Context, ev SyncCompleted) error
}

// Noop is the publisher used when eventing is disabled.
type Noop struct{}

func (Noop) PublishSyncCompleted(context.Context, SyncCompleted) error { return nil }
