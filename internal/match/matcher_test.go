package match_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/we-promise/sure-sub001/internal/ledger"
	"github.com/we-promise/sure-sub001/internal/match"
	"github.com/we-promise/sure-sub001/internal/provider"
)

func entry(externalID, description string, amount string, date time.Time) *ledger.Entry {
	return &ledger.Entry{
		ID:             uuid.New(),
		Date:           date,
		Amount:         decimal.RequireFromString(amount),
		Currency:       "EUR",
		Kind:           ledger.KindTransaction,
		Description:    description,
		RawDescription: description,
		ExternalID:     externalID,
	}
}

func record(externalID, fallbackID, description, amount string, date time.Time) provider.NormalizedRecord {
	return provider.NormalizedRecord{
		Amount:      decimal.RequireFromString(amount),
		Currency:    "EUR",
		Date:        date,
		Description: description,
		ExternalID:  externalID,
		FallbackID:  fallbackID,
	}
}

func TestIndex_Match(t *testing.T) {
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	type testCase struct {
		name       string
		existing   []*ledger.Entry
		record     provider.NormalizedRecord
		wantAction match.Action
	}

	tests := []testCase{
		{
			name:       "StableIDHit",
			existing:   []*ledger.Entry{entry("simplefin_tx1", "COFFEE SHOP", "4.50", day)},
			record:     record("tx1", "", "COFFEE SHOP", "4.50", day),
			wantAction: match.ActionDuplicate,
		},
		{
			name:       "StableIDHitDespiteChangedDescription",
			existing:   []*ledger.Entry{entry("simplefin_tx1", "PENDING CARD AUTH", "4.50", day)},
			record:     record("tx1", "", "COFFEE SHOP AMSTERDAM", "4.50", day),
			wantAction: match.ActionDuplicate,
		},
		{
			name:       "FallbackIDHit",
			existing:   []*ledger.Entry{entry("simplefin_fit_9001", "SALARY", "-2500.00", day)},
			record:     record("", "9001", "SALARY", "-2500.00", day),
			wantAction: match.ActionDuplicate,
		},
		{
			name:       "UnknownStableIDUpgradesPendingTwin",
			existing:   []*ledger.Entry{entry("", "COFFEE SHOP", "4.50", day)},
			record:     record("tx1", "", "COFFEE SHOP AMSTERDAM NL", "4.50", day),
			wantAction: match.ActionUpgrade,
		},
		{
			name:       "UnknownStableIDIgnoresIdentifiedTwin",
			existing:   []*ledger.Entry{entry("simplefin_tx9", "COFFEE SHOP", "4.50", day)},
			record:     record("tx1", "", "COFFEE SHOP", "4.50", day),
			wantAction: match.ActionNew,
		},
		{
			name:       "FallbackIDNeverUpgrades",
			existing:   []*ledger.Entry{entry("", "COFFEE SHOP", "4.50", day)},
			record:     record("", "9001", "COFFEE SHOP", "4.50", day),
			wantAction: match.ActionDuplicate,
		},
		{
			name:       "CompositeHit",
			existing:   []*ledger.Entry{entry("", "Coffee  Shop", "4.50", day)},
			record:     record("", "", "coffee shop", "4.50", day),
			wantAction: match.ActionDuplicate,
		},
		{
			name:       "CompositeSubstringEitherWay",
			existing:   []*ledger.Entry{entry("", "COFFEE SHOP AMSTERDAM NL", "4.50", day)},
			record:     record("", "", "coffee shop", "4.50", day),
			wantAction: match.ActionDuplicate,
		},
		{
			name:       "CompositeRejectsDifferentAmount",
			existing:   []*ledger.Entry{entry("", "COFFEE SHOP", "4.50", day)},
			record:     record("", "", "COFFEE SHOP", "4.51", day),
			wantAction: match.ActionNew,
		},
		{
			name: "CompositeRejectsDifferentDay",
			existing: []*ledger.Entry{
				entry("", "COFFEE SHOP", "4.50", day.AddDate(0, 0, -1)),
			},
			record:     record("", "", "COFFEE SHOP", "4.50", day),
			wantAction: match.ActionNew,
		},
		{
			name: "CompositeRejectsDifferentCurrency",
			existing: []*ledger.Entry{
				func() *ledger.Entry {
					e := entry("", "COFFEE SHOP", "4.50", day)
					e.Currency = "USD"
					return e
				}(),
			},
			record:     record("", "", "COFFEE SHOP", "4.50", day),
			wantAction: match.ActionNew,
		},
		{
			name:       "NoIDsNoCandidates",
			existing:   nil,
			record:     record("", "", "COFFEE SHOP", "4.50", day),
			wantAction: match.ActionNew,
		},
		{
			name: "TwoCandidatesIsAmbiguous",
			existing: []*ledger.Entry{
				entry("", "COFFEE SHOP", "4.50", day),
				entry("", "COFFEE SHOP", "4.50", day),
			},
			record:     record("", "", "COFFEE SHOP", "4.50", day),
			wantAction: match.ActionAmbiguous,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ix := match.NewIndex("simplefin", tt.existing)

			got := ix.Match(tt.record)

			assert.Equal(t, tt.wantAction, got.Action)

			switch got.Action {
			case match.ActionDuplicate, match.ActionUpgrade:
				assert.NotNil(t, got.Existing)
			case match.ActionAmbiguous:
				assert.GreaterOrEqual(t, len(got.Candidates), 2)
			}
		})
	}
}

func TestIndex_Match_Deterministic(t *testing.T) {
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	ix := match.NewIndex("simplefin", []*ledger.Entry{
		entry("", "COFFEE SHOP", "4.50", day),
	})

	rec := record("", "", "COFFEE SHOP", "4.50", day)

	first := ix.Match(rec)
	second := ix.Match(rec)

	assert.Equal(t, first.Action, second.Action)
	assert.Equal(t, first.Existing, second.Existing)
}

func TestIndex_UpgradeThenRematch(t *testing.T) {
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	pending := entry("", "COFFEE SHOP", "4.50", day)
	ix := match.NewIndex("simplefin", []*ledger.Entry{pending})

	rec := record("tx1", "", "COFFEE SHOP", "4.50", day)

	got := ix.Match(rec)
	require.Equal(t, match.ActionUpgrade, got.Action)
	require.Same(t, pending, got.Existing)

	ix.SetExternalID(pending, ledger.StableExternalID("simplefin", rec.ExternalID))

	// The posted record now dedupes against its upgraded entry.
	again := ix.Match(rec)
	assert.Equal(t, match.ActionDuplicate, again.Action)
	assert.Same(t, pending, again.Existing)
}

func TestIndex_Add_JoinsCandidateSet(t *testing.T) {
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	ix := match.NewIndex("simplefin", nil)

	rec := record("", "", "COFFEE SHOP", "4.50", day)
	require.Equal(t, match.ActionNew, ix.Match(rec).Action)

	created := entry("", "COFFEE SHOP", "4.50", day)
	ix.Add(created)

	assert.Equal(t, match.ActionDuplicate, ix.Match(rec).Action)
}
