package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/we-promise/sure-sub001/internal/enrich"
)

// Kind discriminates the entryable payload carried by an Entry.
type Kind string

const (
	KindTransaction   Kind = "transaction"
	KindTrade         Kind = "trade"
	KindValuation     Kind = "valuation"
	KindOpeningAnchor Kind = "opening_anchor"
)

// Entry is a single dated, signed ledger line on one account.
// Sign convention: positive = outflow/debit, negative = inflow/credit.
type Entry struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	Date      time.Time
	Amount    decimal.Decimal
	Currency  string
	Kind      Kind

	// Description is the display name; RawDescription keeps what the
	// provider originally sent.
	Description    string
	RawDescription string

	// ExternalID correlates the entry to one upstream provider record.
	// Empty for entries that arrived without an id (pending, file imports
	// without a FITID). At most one entry per (account, external id).
	ExternalID string

	// Balance is set for valuation and opening anchor kinds.
	Balance *decimal.Decimal

	// Transaction payload fields, enrichable subject to locks.
	Merchant string
	Category string
	Notes    string

	// LockedAttributes maps attribute name to its lock, which names the
	// holding source. A locked attribute rejects enrichment until
	// explicitly unlocked, and only the holder's cache clear releases it.
	LockedAttributes map[string]enrich.Lock

	Pending   bool
	CreatedAt time.Time
	UpdatedAt *time.Time
}

// StableExternalID builds the namespaced dedup key for a provider's stable
// transaction id.
func StableExternalID(providerName, id string) string {
	return providerName + "_" + id
}

// FallbackExternalID builds the namespaced key for a secondary identifier
// such as a bank FITID. The "fit" segment keeps the stable and fallback id
// spaces from ever colliding.
func FallbackExternalID(providerName, id string) string {
	return providerName + "_fit_" + id
}

// Account is one linked ledger account.
type Account struct {
	ID                uuid.UUID
	Name              string
	Currency          string
	ProviderAccountID string
	CurrentBalance    decimal.Decimal
	AvailableBalance  decimal.Decimal
	CreatedAt         time.Time
	UpdatedAt         *time.Time
}

// Enrichable attribute surface of an Entry.

func (e *Entry) EnrichableType() string { return "entry" }

func (e *Entry) EnrichableID() uuid.UUID { return e.ID }

// AttrValue returns the current value of a named enrichable attribute.
// Unknown names are programming errors and fail loudly.
func (e *Entry) AttrValue(name string) (string, error) {
	switch name {
	case "description":
		return e.Description, nil
	case "merchant":
		return e.Merchant, nil
	case "category":
		return e.Category, nil
	case "notes":
		return e.Notes, nil
	}

	return "", fmt.Errorf("entry has no enrichable attribute %q", name)
}

func (e *Entry) SetAttrValue(name, value string) error {
	switch name {
	case "description":
		e.Description = value
	case "merchant":
		e.Merchant = value
	case "category":
		e.Category = value
	case "notes":
		e.Notes = value
	default:
		return fmt.Errorf("entry has no enrichable attribute %q", name)
	}

	return nil
}

func (e *Entry) Locked(name string) bool {
	_, ok := e.LockedAttributes[name]
	return ok
}

func (e *Entry) LockAttr(name string, l enrich.Lock) {
	if e.LockedAttributes == nil {
		e.LockedAttributes = make(map[string]enrich.Lock)
	}

	e.LockedAttributes[name] = l
}

func (e *Entry) UnlockAttr(name string) {
	delete(e.LockedAttributes, name)
}

func (e *Entry) LockedAttrs() map[string]enrich.Lock {
	return e.LockedAttributes
}
