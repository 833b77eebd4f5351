// Package match decides whether an incoming provider record is new, a
// duplicate of an existing entry, or an upgrade of a pending entry that has
// since been posted. Pure decision logic, no I/O.
package match

import (
	"strings"
	"time"

	"github.com/we-promise/sure-sub001/internal/ledger"
	"github.com/we-promise/sure-sub001/internal/provider"
)

// Action is the matcher's verdict for one incoming record.
type Action string

const (
	// ActionNew means no existing entry corresponds to the record.
	ActionNew Action = "new"
	// ActionDuplicate means the record was already ingested; no write.
	ActionDuplicate Action = "duplicate"
	// ActionUpgrade means a pending entry without an external id matches
	// and should receive the record's now-known stable id.
	ActionUpgrade Action = "upgrade"
	// ActionAmbiguous means more than one candidate matched. Never
	// auto-merged; surfaced for a human-triggered merge instead.
	ActionAmbiguous Action = "ambiguous"
)

// Result carries the verdict plus the entry to mutate (upgrade), the entry
// already holding the record (duplicate), or the competing candidates
// (ambiguous).
type Result struct {
	Action     Action
	Existing   *ledger.Entry
	Candidates []*ledger.Entry
}

// Index holds one account's entries keyed for matching. Build it once per
// batch, then Add newly created entries so records later in the same batch
// dedupe against them.
type Index struct {
	providerName string
	byExternalID map[string]*ledger.Entry
	byDay        map[string][]*ledger.Entry
}

func NewIndex(providerName string, entries []*ledger.Entry) *Index {
	ix := &Index{
		providerName: providerName,
		byExternalID: make(map[string]*ledger.Entry),
		byDay:        make(map[string][]*ledger.Entry),
	}

	for _, e := range entries {
		ix.Add(e)
	}

	return ix
}

func (ix *Index) Add(e *ledger.Entry) {
	if e.ExternalID != "" {
		ix.byExternalID[e.ExternalID] = e
	}

	day := dayKey(e.Date)
	ix.byDay[day] = append(ix.byDay[day], e)
}

// SetExternalID records an upgraded identity in the index. The entry itself
// is mutated by the caller; this only keeps lookups consistent.
func (ix *Index) SetExternalID(e *ledger.Entry, externalID string) {
	e.ExternalID = externalID
	ix.byExternalID[externalID] = e
}

// Match evaluates strategies in strict order: stable id, fallback id,
// composite fuzzy. First match wins. Calling it repeatedly with the same
// record always yields the same verdict against an unchanged index.
func (ix *Index) Match(rec provider.NormalizedRecord) Result {
	if rec.ExternalID != "" {
		key := ledger.StableExternalID(ix.providerName, rec.ExternalID)
		if e, ok := ix.byExternalID[key]; ok {
			return Result{Action: ActionDuplicate, Existing: e}
		}

		// The id is unknown. The record may still be the posted form of a
		// pending entry ingested before the provider assigned it an id, so
		// composite-match against entries that carry no identity at all.
		return ix.composite(rec, true, key)
	}

	if rec.FallbackID != "" {
		key := ledger.FallbackExternalID(ix.providerName, rec.FallbackID)
		if e, ok := ix.byExternalID[key]; ok {
			return Result{Action: ActionDuplicate, Existing: e}
		}

		// Same pending check, but a fallback id never upgrades identity.
		return ix.composite(rec, true, "")
	}

	return ix.composite(rec, false, "")
}

// composite searches the record's day for an entry with identical amount and
// currency and a normalized-description match. identifiedOnly restricts
// candidates to entries without any external id (the only ones an identified
// record could be the posted twin of). upgradeID, when non-empty, is assigned
// to a unique candidate via ActionUpgrade.
func (ix *Index) composite(rec provider.NormalizedRecord, identifiedOnly bool, upgradeID string) Result {
	var candidates []*ledger.Entry

	for _, e := range ix.byDay[dayKey(rec.Date)] {
		if identifiedOnly && e.ExternalID != "" {
			continue
		}

		if !e.Amount.Equal(rec.Amount) {
			continue
		}

		if !strings.EqualFold(e.Currency, rec.Currency) {
			continue
		}

		if !descriptionsMatch(e.RawDescription, rec.Description) {
			continue
		}

		candidates = append(candidates, e)
	}

	switch len(candidates) {
	case 0:
		return Result{Action: ActionNew}
	case 1:
		if upgradeID != "" && candidates[0].ExternalID == "" {
			return Result{Action: ActionUpgrade, Existing: candidates[0]}
		}

		return Result{Action: ActionDuplicate, Existing: candidates[0]}
	default:
		return Result{Action: ActionAmbiguous, Candidates: candidates}
	}
}

// descriptionsMatch compares two descriptions after lowercasing and
// whitespace normalization. Equal or substring either way counts as a match.
func descriptionsMatch(a, b string) bool {
	na := normalizeDescription(a)
	nb := normalizeDescription(b)

	if na == "" || nb == "" {
		return na == nb
	}

	return strings.Contains(na, nb) || strings.Contains(nb, na)
}

func normalizeDescription(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func dayKey(t time.Time) string {
	return t.Format(time.DateOnly)
}
