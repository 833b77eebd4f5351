// Package ingest writes normalized provider records into the ledger through
// the identity matcher: one entry per new record, one identity mutation per
// pending upgrade, nothing for duplicates.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/we-promise/sure-sub001/internal/ledger"
	"github.com/we-promise/sure-sub001/internal/match"
	"github.com/we-promise/sure-sub001/internal/provider"
)

// AmbiguousMatch is a record the composite matcher could not resolve to a
// single entry. Surfaced for a human-triggered merge, never guessed.
type AmbiguousMatch struct {
	Record     provider.NormalizedRecord
	Candidates []*ledger.Entry
}

// Imported pairs a created entry with the record that produced it, so
// callers can apply source-attributed enrichment after the write.
type Imported struct {
	Entry  *ledger.Entry
	Record provider.NormalizedRecord
}

type Result struct {
	Imported   []Imported
	Duplicates int
	Upgraded   int
	Ambiguous  []AmbiguousMatch
}

// Entries returns just the created entries.
func (r *Result) Entries() []*ledger.Entry {
	entries := make([]*ledger.Entry, len(r.Imported))
	for i, imp := range r.Imported {
		entries[i] = imp.Entry
	}

	return entries
}

type Service struct {
	repo ledger.Repository
}

func NewService(repo ledger.Repository) *Service {
	return &Service{repo: repo}
}

// IngestRecords matches each record against the account's existing entries
// and applies the verdicts. Entries created earlier in the batch join the
// candidate set, so a batch containing the same record twice still produces
// one entry. Re-running the whole batch never changes the entry count.
func (s *Service) IngestRecords(ctx context.Context, account *ledger.Account, providerName string, records []provider.NormalizedRecord) (*Result, error) {
	if len(records) == 0 {
		return &Result{}, nil
	}

	minDate, maxDate := dateRange(records)

	existing, err := s.repo.ListEntriesByDateRange(ctx, account.ID, minDate, maxDate)
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}

	ix := match.NewIndex(providerName, existing)
	result := &Result{}

	for _, rec := range records {
		verdict := ix.Match(rec)

		switch verdict.Action {
		case match.ActionNew:
			entry := entryFromRecord(account, providerName, rec)
			if err := s.repo.CreateEntry(ctx, entry); err != nil {
				return nil, fmt.Errorf("creating entry: %w", err)
			}

			ix.Add(entry)

			result.Imported = append(result.Imported, Imported{Entry: entry, Record: rec})
		case match.ActionDuplicate:
			result.Duplicates++
		case match.ActionUpgrade:
			stableID := ledger.StableExternalID(providerName, rec.ExternalID)
			if err := s.repo.UpdateEntryExternalID(ctx, verdict.Existing.ID, stableID); err != nil {
				return nil, fmt.Errorf("upgrading entry identity: %w", err)
			}

			ix.SetExternalID(verdict.Existing, stableID)

			result.Upgraded++
		case match.ActionAmbiguous:
			result.Ambiguous = append(result.Ambiguous, AmbiguousMatch{
				Record:     rec,
				Candidates: verdict.Candidates,
			})
		}
	}

	return result, nil
}

func entryFromRecord(account *ledger.Account, providerName string, rec provider.NormalizedRecord) *ledger.Entry {
	externalID := ""

	switch {
	case rec.ExternalID != "":
		externalID = ledger.StableExternalID(providerName, rec.ExternalID)
	case rec.FallbackID != "":
		externalID = ledger.FallbackExternalID(providerName, rec.FallbackID)
	}

	return &ledger.Entry{
		AccountID:      account.ID,
		Date:           rec.Date,
		Amount:         rec.Amount,
		Currency:       rec.Currency,
		Kind:           ledger.KindTransaction,
		Description:    rec.Description,
		RawDescription: rec.Description,
		ExternalID:     externalID,
		Pending:        rec.Pending,
	}
}

func dateRange(records []provider.NormalizedRecord) (time.Time, time.Time) {
	minDate := records[0].Date
	maxDate := records[0].Date

	for _, r := range records[1:] {
		if r.Date.Before(minDate) {
			minDate = r.Date
		}

		if r.Date.After(maxDate) {
			maxDate = r.Date
		}
	}

	return minDate, maxDate
}
