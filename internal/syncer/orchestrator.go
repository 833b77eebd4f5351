package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/we-promise/sure-sub001/internal/ledger"
	"github.com/we-promise/sure-sub001/internal/provider"
)

// ErrSyncInProgress means another run already holds the account's sync token.
var ErrSyncInProgress = errors.New("sync already in progress")

// Connection identifies one provider link and its backfill settings.
type Connection struct {
	ID            uuid.UUID
	ProviderName  string
	LookbackStart time.Time
	MaxWindowDays int
}

// SkippedAccount records one account that could not be processed in a run.
type SkippedAccount struct {
	ProviderAccountID string `json:"provider_account_id"`
	Reason            string `json:"reason"`
}

// SyncSummary is the outcome of one connection-level run. Partial success is
// the expected steady state: skipped accounts do not fail the run.
type SyncSummary struct {
	ConnectionID         uuid.UUID        `json:"connection_id"`
	Provider             string           `json:"provider"`
	AccountsProcessed    int              `json:"accounts_processed"`
	TransactionsImported int              `json:"transactions_imported"`
	Duplicates           int              `json:"duplicates"`
	Upgraded             int              `json:"upgraded"`
	RecordErrors         int              `json:"record_errors"`
	AmbiguousMatches     int              `json:"ambiguous_matches"`
	SkippedAccounts      []SkippedAccount `json:"skipped_accounts"`
	LookbackTruncated    bool             `json:"lookback_truncated"`
	FirstChunkSnapshot   json.RawMessage  `json:"-"`
	StartedAt            time.Time        `json:"started_at"`
	CompletedAt          time.Time        `json:"completed_at"`
}

// SnapshotStore persists the diagnostic snapshot of the most recent sync's
// discovery fetch, overwriting the previous one.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, connectionID uuid.UUID, raw json.RawMessage) error
	GetSnapshot(ctx context.Context, connectionID uuid.UUID) (json.RawMessage, error)
}

// Options bound the orchestrator's concurrency and lookback.
type Options struct {
	// MaxConcurrentAccounts caps the account-level task pool.
	MaxConcurrentAccounts int

	// AbsoluteLookbackCap is the oldest date any backfill may reach.
	// Zero means uncapped.
	AbsoluteLookbackCap time.Time
}

// Orchestrator runs one Account Processor per linked account of a connection,
// bounded-concurrently, and aggregates the results. Accounts are independent
// write domains: a failure in one never aborts the others.
type Orchestrator struct {
	client    provider.Client
	mapper    provider.Mapper
	ledgerSvc *ledger.Service
	processor *Processor
	snapshots SnapshotStore
	opts      Options
	logger    *slog.Logger

	mu     sync.Mutex
	active map[uuid.UUID]struct{}
}

func NewOrchestrator(
	client provider.Client,
	mapper provider.Mapper,
	ledgerSvc *ledger.Service,
	processor *Processor,
	snapshots SnapshotStore,
	opts Options,
	logger *slog.Logger,
) *Orchestrator {
	if opts.MaxConcurrentAccounts <= 0 {
		opts.MaxConcurrentAccounts = 4
	}

	return &Orchestrator{
		client:    client,
		mapper:    mapper,
		ledgerSvc: ledgerSvc,
		processor: processor,
		snapshots: snapshots,
		opts:      opts,
		logger:    logger,
		active:    make(map[uuid.UUID]struct{}),
	}
}

// Run syncs every linked account of the connection and returns the summary.
// Connection-fatal errors (credentials, base configuration) are returned as a
// *provider.AuthError before any account task starts; everything narrower is
// captured in the summary instead.
func (o *Orchestrator) Run(ctx context.Context, conn Connection) (*SyncSummary, error) {
	summary := &SyncSummary{
		ConnectionID: conn.ID,
		Provider:     conn.ProviderName,
		StartedAt:    time.Now(),
	}

	rawAccounts, err := o.client.ListAccounts(ctx)
	if err != nil {
		var authErr *provider.AuthError
		if errors.As(err, &authErr) {
			return nil, authErr
		}

		return nil, fmt.Errorf("listing provider accounts: %w", err)
	}

	var accounts []*ledger.Account

	for _, raw := range rawAccounts {
		na, err := o.mapper.NormalizeAccount(raw)
		if err != nil {
			summary.SkippedAccounts = append(summary.SkippedAccounts, SkippedAccount{
				Reason: fmt.Sprintf("mapping account payload: %v", err),
			})

			continue
		}

		// Providers may embed per-account failures in an otherwise
		// successful response.
		if na.ErrorMessage != "" {
			summary.SkippedAccounts = append(summary.SkippedAccounts, SkippedAccount{
				ProviderAccountID: na.ProviderAccountID,
				Reason:            na.ErrorMessage,
			})

			continue
		}

		account, err := o.ledgerSvc.LinkAccount(ctx, na)
		if err != nil {
			summary.SkippedAccounts = append(summary.SkippedAccounts, SkippedAccount{
				ProviderAccountID: na.ProviderAccountID,
				Reason:            fmt.Sprintf("linking account: %v", err),
			})

			continue
		}

		accounts = append(accounts, account)
	}

	results := make([]AccountResult, len(accounts))

	var (
		wg           sync.WaitGroup
		sem          = make(chan struct{}, o.opts.MaxConcurrentAccounts)
		snapshotOnce sync.Once
	)

	now := time.Now()

	summary.LookbackTruncated = NewPlan(now, conn.LookbackStart, conn.MaxWindowDays, o.opts.AbsoluteLookbackCap).Truncated()

	for i, account := range accounts {
		// A connection-level cancellation stops scheduling new account
		// tasks; started ones finish or time out on their own.
		if ctx.Err() != nil {
			results[i] = AccountResult{
				ProviderAccountID: account.ProviderAccountID,
				Status:            StatusSkipped,
				SkipReason:        "run cancelled",
			}

			continue
		}

		wg.Add(1)

		go func(i int, account *ledger.Account) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			if !o.acquire(account.ID) {
				results[i] = AccountResult{
					ProviderAccountID: account.ProviderAccountID,
					Status:            StatusSkipped,
					SkipReason:        ErrSyncInProgress.Error(),
				}

				return
			}
			defer o.release(account.ID)

			plan := NewPlan(now, conn.LookbackStart, conn.MaxWindowDays, o.opts.AbsoluteLookbackCap)

			onDiscovery := func(raws []json.RawMessage) {
				snapshotOnce.Do(func() {
					o.saveSnapshot(ctx, conn.ID, raws, summary)
				})
			}

			results[i] = o.processor.Process(ctx, account, plan, onDiscovery)
		}(i, account)
	}

	wg.Wait()

	for _, r := range results {
		if r.Status == StatusSkipped {
			summary.SkippedAccounts = append(summary.SkippedAccounts, SkippedAccount{
				ProviderAccountID: r.ProviderAccountID,
				Reason:            r.SkipReason,
			})

			o.logger.Warn("account skipped",
				"connection", conn.ID,
				"provider_account", r.ProviderAccountID,
				"reason", r.SkipReason,
			)

			continue
		}

		summary.AccountsProcessed++
		summary.TransactionsImported += r.Imported
		summary.Duplicates += r.Duplicates
		summary.Upgraded += r.Upgraded
		summary.RecordErrors += r.RecordErrors
		summary.AmbiguousMatches += r.Ambiguous
	}

	summary.CompletedAt = time.Now()

	o.logger.Info("sync completed",
		"connection", conn.ID,
		"provider", conn.ProviderName,
		"accounts", summary.AccountsProcessed,
		"imported", summary.TransactionsImported,
		"skipped", len(summary.SkippedAccounts),
	)

	return summary, nil
}

// Snapshot returns the diagnostic snapshot of the connection's most recent
// discovery fetch.
func (o *Orchestrator) Snapshot(ctx context.Context, connectionID uuid.UUID) (json.RawMessage, error) {
	return o.snapshots.GetSnapshot(ctx, connectionID)
}

func (o *Orchestrator) saveSnapshot(ctx context.Context, connectionID uuid.UUID, raws []json.RawMessage, summary *SyncSummary) {
	raw, err := json.Marshal(raws)
	if err != nil {
		o.logger.Warn("marshaling snapshot", "connection", connectionID, "error", err)
		return
	}

	summary.FirstChunkSnapshot = raw

	if err := o.snapshots.SaveSnapshot(ctx, connectionID, raw); err != nil {
		// Diagnostics only; never fails the run.
		o.logger.Warn("saving snapshot", "connection", connectionID, "error", err)
	}
}

func (o *Orchestrator) acquire(accountID uuid.UUID) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, busy := o.active[accountID]; busy {
		return false
	}

	o.active[accountID] = struct{}{}

	return true
}

func (o *Orchestrator) release(accountID uuid.UUID) {
	o.mu.Lock()
	defer o.mu.Unlock()

	delete(o.active, accountID)
}
