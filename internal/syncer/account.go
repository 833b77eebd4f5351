package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/we-promise/sure-sub001/internal/enrich"
	"github.com/we-promise/sure-sub001/internal/ingest"
	"github.com/we-promise/sure-sub001/internal/ledger"
	"github.com/we-promise/sure-sub001/internal/provider"
)

// Status is the per-account state within one sync run.
type Status string

const (
	StatusPending  Status = "pending"
	StatusFetching Status = "fetching"
	StatusMapping  Status = "mapping"
	StatusMatching Status = "matching"
	StatusDone     Status = "done"
	StatusSkipped  Status = "skipped"
)

// AccountResult is the outcome of processing one linked account.
type AccountResult struct {
	ProviderAccountID string
	Status            Status
	Imported          int
	Duplicates        int
	Upgraded          int
	RecordErrors      int
	Ambiguous         int
	SkipReason        string
}

// Processor runs the fetch, map, match and enrich loop for one account,
// window by window. Failures here are account-scoped: the processor records
// them and returns, it never aborts sibling accounts.
type Processor struct {
	client       provider.Client
	mapper       provider.Mapper
	ingestor     *ingest.Service
	enricher     *enrich.Service
	anchors      *ledger.AnchorManager
	providerName string
	fetchTimeout time.Duration
}

func NewProcessor(
	client provider.Client,
	mapper provider.Mapper,
	ingestor *ingest.Service,
	enricher *enrich.Service,
	anchors *ledger.AnchorManager,
	providerName string,
	fetchTimeout time.Duration,
) *Processor {
	return &Processor{
		client:       client,
		mapper:       mapper,
		ingestor:     ingestor,
		enricher:     enricher,
		anchors:      anchors,
		providerName: providerName,
		fetchTimeout: fetchTimeout,
	}
}

// Process walks the plan's windows in order. onDiscovery, if set, receives
// the raw payloads of the first fetched chunk for the diagnostic snapshot.
func (p *Processor) Process(ctx context.Context, account *ledger.Account, plan *Plan, onDiscovery func([]json.RawMessage)) AccountResult {
	result := AccountResult{
		ProviderAccountID: account.ProviderAccountID,
		Status:            StatusPending,
	}

	var imported []*ledger.Entry

	first := true

	for {
		window, ok := plan.Next()
		if !ok {
			break
		}

		result.Status = StatusFetching

		raws, err := p.fetchWindow(ctx, account.ProviderAccountID, window)
		if err != nil {
			return skip(result, fetchReason(window, err))
		}

		if first {
			first = false

			if onDiscovery != nil {
				onDiscovery(raws)
			}
		}

		result.Status = StatusMapping

		records := make([]provider.NormalizedRecord, 0, len(raws))

		for _, raw := range raws {
			rec, err := p.mapper.NormalizeTransaction(raw, account.Currency)
			if err != nil {
				// One malformed transaction inside a valid payload is
				// record-scoped: count it and keep going.
				result.RecordErrors++
				continue
			}

			records = append(records, rec)
		}

		result.Status = StatusMatching

		ingested, err := p.ingestor.IngestRecords(ctx, account, p.providerName, records)
		if err != nil {
			return skip(result, fmt.Sprintf("writing ledger: %v", err))
		}

		result.Imported += len(ingested.Imported)
		result.Duplicates += ingested.Duplicates
		result.Upgraded += ingested.Upgraded
		result.Ambiguous += len(ingested.Ambiguous)

		imported = append(imported, ingested.Entries()...)

		for _, imp := range ingested.Imported {
			attrs := providerAttrs(imp.Record)
			if len(attrs) == 0 {
				continue
			}

			if _, err := p.enricher.Enrich(ctx, imp.Entry, attrs, enrich.Source(p.providerName), nil); err != nil {
				return skip(result, fmt.Sprintf("enriching entry: %v", err))
			}
		}
	}

	if err := p.anchors.Reconcile(ctx, account, imported, nil); err != nil {
		return skip(result, fmt.Sprintf("reconciling opening anchor: %v", err))
	}

	result.Status = StatusDone

	return result
}

func (p *Processor) fetchWindow(ctx context.Context, providerAccountID string, window Window) ([]json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, p.fetchTimeout)
	defer cancel()

	return p.client.ListTransactions(ctx, providerAccountID, window.Start, window.End)
}

// providerAttrs collects the attributes a provider is allowed to set on a
// freshly created entry.
func providerAttrs(rec provider.NormalizedRecord) map[string]string {
	attrs := make(map[string]string)

	if rec.Merchant != "" {
		attrs["merchant"] = rec.Merchant
	}

	if rec.Category != "" {
		attrs["category"] = rec.Category
	}

	return attrs
}

func skip(result AccountResult, reason string) AccountResult {
	result.Status = StatusSkipped
	result.SkipReason = reason

	return result
}

// fetchReason names the failed window so a skipped account can be traced to
// the exact range that failed.
func fetchReason(window Window, err error) string {
	bounds := fmt.Sprintf("window %s to %s",
		window.Start.Format(time.DateOnly), window.End.Format(time.DateOnly))

	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout fetching " + bounds
	}

	return fmt.Sprintf("fetching transactions for %s: %v", bounds, err)
}
