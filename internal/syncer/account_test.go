package syncer_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/we-promise/sure-sub001/internal/enrich"
	"github.com/we-promise/sure-sub001/internal/ingest"
	"github.com/we-promise/sure-sub001/internal/ledger"
	"github.com/we-promise/sure-sub001/internal/provider"
	"github.com/we-promise/sure-sub001/internal/syncer"
)

// fakeClient serves canned raw payloads per provider account id.
type fakeClient struct {
	mu           sync.Mutex
	accounts     []json.RawMessage
	accountsErr  error
	transactions map[string][]json.RawMessage
	fetchErr     map[string]error
	fetches      int

	// blockFetch, when set, runs at the top of every transaction fetch so
	// a test can hold a run mid-flight.
	blockFetch func(providerAccountID string)
}

func (c *fakeClient) ListAccounts(context.Context) ([]json.RawMessage, error) {
	if c.accountsErr != nil {
		return nil, c.accountsErr
	}

	return c.accounts, nil
}

func (c *fakeClient) ListTransactions(_ context.Context, providerAccountID string, _, _ time.Time) ([]json.RawMessage, error) {
	c.mu.Lock()
	c.fetches++
	block := c.blockFetch
	c.mu.Unlock()

	if block != nil {
		block(providerAccountID)
	}

	if err := c.fetchErr[providerAccountID]; err != nil {
		return nil, err
	}

	// Everything is served in the first window; later windows are empty.
	c.mu.Lock()
	raws := c.transactions[providerAccountID]
	delete(c.transactions, providerAccountID)
	c.mu.Unlock()

	return raws, nil
}

// fakeMapper decodes the minimal payload shapes the fake client serves.
type fakeMapper struct{}

type fakeAccountPayload struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Error string `json:"error"`
}

type fakeTransactionPayload struct {
	ID          string `json:"id"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Category    string `json:"category"`
	Malformed   bool   `json:"malformed"`
}

func (fakeMapper) NormalizeAccount(raw json.RawMessage) (provider.NormalizedAccount, error) {
	var p fakeAccountPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return provider.NormalizedAccount{}, err
	}

	return provider.NormalizedAccount{
		ProviderAccountID: p.ID,
		Name:              p.Name,
		Currency:          "EUR",
		ErrorMessage:      p.Error,
	}, nil
}

func (fakeMapper) NormalizeTransaction(raw json.RawMessage, currency string) (provider.NormalizedRecord, error) {
	var p fakeTransactionPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return provider.NormalizedRecord{}, err
	}

	if p.Malformed {
		return provider.NormalizedRecord{}, errors.New("transaction missing posted date")
	}

	date, err := time.Parse(time.DateOnly, p.Date)
	if err != nil {
		return provider.NormalizedRecord{}, err
	}

	return provider.NormalizedRecord{
		Amount:      decimal.RequireFromString(p.Amount),
		Currency:    currency,
		Date:        date,
		Description: p.Description,
		ExternalID:  p.ID,
		Category:    p.Category,
	}, nil
}

func accountRaw(id, name string) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{"id":%q,"name":%q}`, id, name))
}

func erroredAccountRaw(id, message string) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{"id":%q,"error":%q}`, id, message))
}

func transactionRaw(id, amount, description, date string) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(
		`{"id":%q,"amount":%q,"description":%q,"date":%q}`,
		id, amount, description, date,
	))
}

// fakeSnapshots keeps the last saved snapshot per connection.
type fakeSnapshots struct {
	mu    sync.Mutex
	saved map[uuid.UUID]json.RawMessage
	calls int
}

func newFakeSnapshots() *fakeSnapshots {
	return &fakeSnapshots{saved: make(map[uuid.UUID]json.RawMessage)}
}

func (s *fakeSnapshots) SaveSnapshot(_ context.Context, connectionID uuid.UUID, raw json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.saved[connectionID] = raw
	s.calls++

	return nil
}

func (s *fakeSnapshots) GetSnapshot(_ context.Context, connectionID uuid.UUID) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok := s.saved[connectionID]
	if !ok {
		return nil, ledger.ErrNotFound
	}

	return raw, nil
}

// permissiveLedgerRepo wires a MockRepository loose enough for end-to-end
// processor runs: entries are created, nothing pre-exists.
func permissiveLedgerRepo(ctrl *gomock.Controller) *ledger.MockRepository {
	repo := ledger.NewMockRepository(ctrl)

	repo.EXPECT().
		ListEntriesByDateRange(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, nil).
		AnyTimes()
	repo.EXPECT().
		CreateEntry(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, e *ledger.Entry) error {
			e.ID = uuid.New()
			return nil
		}).
		AnyTimes()
	repo.EXPECT().
		FindAnchor(gomock.Any(), gomock.Any()).
		Return(nil, ledger.ErrNotFound).
		AnyTimes()
	repo.EXPECT().
		GetAccountByProviderID(gomock.Any(), gomock.Any()).
		Return(nil, ledger.ErrNotFound).
		AnyTimes()
	repo.EXPECT().
		UpsertAccount(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, a *ledger.Account) error {
			a.ID = uuid.New()
			return nil
		}).
		AnyTimes()

	return repo
}

func permissiveEnrichRepo(ctrl *gomock.Controller) *enrich.MockRepository {
	repo := enrich.NewMockRepository(ctrl)

	repo.EXPECT().
		Apply(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil).
		AnyTimes()

	return repo
}

func newProcessor(ledgerRepo *ledger.MockRepository, enrichRepo *enrich.MockRepository, client provider.Client) *syncer.Processor {
	return syncer.NewProcessor(
		client,
		fakeMapper{},
		ingest.NewService(ledgerRepo),
		enrich.NewService(enrichRepo),
		ledger.NewAnchorManager(ledgerRepo),
		"testprov",
		time.Second,
	)
}

func TestProcessor_Process(t *testing.T) {
	account := &ledger.Account{ID: uuid.New(), ProviderAccountID: "a1", Currency: "EUR"}
	now := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	t.Run("ImportsAcrossWindows", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		client := &fakeClient{
			transactions: map[string][]json.RawMessage{
				"a1": {
					transactionRaw("tx1", "4.50", "COFFEE SHOP", "2026-08-30"),
					transactionRaw("tx2", "12.00", "GROCERIES", "2026-08-29"),
				},
			},
		}

		p := newProcessor(permissiveLedgerRepo(ctrl), permissiveEnrichRepo(ctrl), client)

		plan := syncer.NewPlan(now, now.AddDate(0, 0, -90), 30, time.Time{})
		result := p.Process(context.Background(), account, plan, nil)

		assert.Equal(t, syncer.StatusDone, result.Status)
		assert.Equal(t, 2, result.Imported)
		assert.Zero(t, result.RecordErrors)
		assert.Equal(t, 3, client.fetches)
	})

	t.Run("MalformedRecordIsRecordScoped", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		client := &fakeClient{
			transactions: map[string][]json.RawMessage{
				"a1": {
					transactionRaw("tx1", "4.50", "COFFEE SHOP", "2026-08-30"),
					json.RawMessage(`{"malformed":true}`),
				},
			},
		}

		p := newProcessor(permissiveLedgerRepo(ctrl), permissiveEnrichRepo(ctrl), client)

		plan := syncer.NewPlan(now, now.AddDate(0, 0, -30), 30, time.Time{})
		result := p.Process(context.Background(), account, plan, nil)

		assert.Equal(t, syncer.StatusDone, result.Status)
		assert.Equal(t, 1, result.Imported)
		assert.Equal(t, 1, result.RecordErrors)
	})

	t.Run("FetchErrorSkipsAccount", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		client := &fakeClient{
			fetchErr: map[string]error{"a1": errors.New("connection reset")},
		}

		p := newProcessor(permissiveLedgerRepo(ctrl), permissiveEnrichRepo(ctrl), client)

		plan := syncer.NewPlan(now, now.AddDate(0, 0, -30), 30, time.Time{})
		result := p.Process(context.Background(), account, plan, nil)

		assert.Equal(t, syncer.StatusSkipped, result.Status)
		assert.Contains(t, result.SkipReason, "connection reset")
		// The reason names the window that failed.
		assert.Contains(t, result.SkipReason, "window 2026-08-02 to 2026-09-01")
	})

	t.Run("TimeoutReason", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		client := &fakeClient{
			fetchErr: map[string]error{"a1": context.DeadlineExceeded},
		}

		p := newProcessor(permissiveLedgerRepo(ctrl), permissiveEnrichRepo(ctrl), client)

		plan := syncer.NewPlan(now, now.AddDate(0, 0, -30), 30, time.Time{})
		result := p.Process(context.Background(), account, plan, nil)

		assert.Equal(t, syncer.StatusSkipped, result.Status)
		assert.Contains(t, result.SkipReason, "timeout")
		assert.Contains(t, result.SkipReason, "window 2026-08-02 to 2026-09-01")
	})

	t.Run("DiscoveryGetsFirstChunkOnly", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		client := &fakeClient{
			transactions: map[string][]json.RawMessage{
				"a1": {transactionRaw("tx1", "4.50", "COFFEE SHOP", "2026-08-30")},
			},
		}

		p := newProcessor(permissiveLedgerRepo(ctrl), permissiveEnrichRepo(ctrl), client)

		var chunks [][]json.RawMessage

		plan := syncer.NewPlan(now, now.AddDate(0, 0, -90), 30, time.Time{})
		result := p.Process(context.Background(), account, plan, func(raws []json.RawMessage) {
			chunks = append(chunks, raws)
		})

		assert.Equal(t, syncer.StatusDone, result.Status)
		require.Len(t, chunks, 1)
		assert.Len(t, chunks[0], 1)
	})

	t.Run("ProviderCategoryFlowsThroughEnrichment", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		ledgerRepo := permissiveLedgerRepo(ctrl)

		enrichRepo := enrich.NewMockRepository(ctrl)
		enrichRepo.EXPECT().
			Apply(gomock.Any(), gomock.Any(), gomock.Any(), enrich.Source("testprov"), gomock.Any()).
			DoAndReturn(func(_ context.Context, entity enrich.Enrichable, changes []enrich.Change, _ enrich.Source, _ map[string]any) error {
				require.Len(t, changes, 1)
				assert.Equal(t, "category", changes[0].Attribute)
				assert.Equal(t, "dining", changes[0].Value)
				return nil
			})

		client := &fakeClient{
			transactions: map[string][]json.RawMessage{
				"a1": {json.RawMessage(`{"id":"tx1","amount":"4.50","description":"COFFEE SHOP","date":"2026-08-30","category":"dining"}`)},
			},
		}

		p := newProcessor(ledgerRepo, enrichRepo, client)

		plan := syncer.NewPlan(now, now.AddDate(0, 0, -30), 30, time.Time{})
		result := p.Process(context.Background(), account, plan, nil)

		assert.Equal(t, syncer.StatusDone, result.Status)
	})
}
