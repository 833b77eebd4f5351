// Package simplefin maps the SimpleFIN bridge wire format onto the engine's
// normalized shapes and provides a thin client for the accounts endpoint.
package simplefin

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/we-promise/sure-sub001/internal/provider"
)

// Name is the source string stored on external identities and enrichments.
const Name = "simplefin"

type accountPayload struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Currency         string `json:"currency"`
	Balance          string `json:"balance"`
	AvailableBalance string `json:"available-balance"`

	// Error is a per-account failure embedded in an otherwise successful
	// response ("connection needs attention" and the like).
	Error string `json:"error,omitempty"`
}

type transactionPayload struct {
	ID          string `json:"id"`
	FITID       string `json:"fitid,omitempty"`
	Posted      int64  `json:"posted"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	Payee       string `json:"payee,omitempty"`
	Pending     bool   `json:"pending,omitempty"`
	Extra       struct {
		Category string `json:"category,omitempty"`
	} `json:"extra,omitempty"`
}

type Mapper struct{}

func NewMapper() *Mapper {
	return &Mapper{}
}

func (m *Mapper) NormalizeAccount(raw json.RawMessage) (provider.NormalizedAccount, error) {
	var p accountPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return provider.NormalizedAccount{}, fmt.Errorf("decoding account: %w", err)
	}

	if p.ID == "" {
		return provider.NormalizedAccount{}, fmt.Errorf("account payload missing id")
	}

	na := provider.NormalizedAccount{
		ProviderAccountID: p.ID,
		Name:              p.Name,
		Currency:          p.Currency,
		ErrorMessage:      p.Error,
	}

	if p.Error != "" {
		// Balances are unreliable on an errored account; skip parsing.
		return na, nil
	}

	balance, err := decimal.NewFromString(p.Balance)
	if err != nil {
		return provider.NormalizedAccount{}, fmt.Errorf("parsing balance %q: %w", p.Balance, err)
	}

	na.CurrentBalance = balance
	na.AvailableBalance = balance

	if p.AvailableBalance != "" {
		available, err := decimal.NewFromString(p.AvailableBalance)
		if err != nil {
			return provider.NormalizedAccount{}, fmt.Errorf("parsing available balance %q: %w", p.AvailableBalance, err)
		}

		na.AvailableBalance = available
	}

	return na, nil
}

func (m *Mapper) NormalizeTransaction(raw json.RawMessage, currency string) (provider.NormalizedRecord, error) {
	var p transactionPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return provider.NormalizedRecord{}, fmt.Errorf("decoding transaction: %w", err)
	}

	if p.Posted == 0 {
		return provider.NormalizedRecord{}, fmt.Errorf("transaction missing posted date")
	}

	amount, err := decimal.NewFromString(p.Amount)
	if err != nil {
		return provider.NormalizedRecord{}, fmt.Errorf("parsing amount %q: %w", p.Amount, err)
	}

	posted := time.Unix(p.Posted, 0).UTC()

	rec := provider.NormalizedRecord{
		Amount: amount.Neg(), // SimpleFIN: negative = outflow; ledger: positive = outflow
		// Ledger dates are day-granular.
		Date:        time.Date(posted.Year(), posted.Month(), posted.Day(), 0, 0, 0, 0, time.UTC),
		Currency:    currency,
		Description: p.Description,
		ExternalID:  p.ID,
		FallbackID:  p.FITID,
		Pending:     p.Pending,
		Merchant:    p.Payee,
		Category:    p.Extra.Category,
	}

	if rec.Description == "" {
		return provider.NormalizedRecord{}, fmt.Errorf("transaction missing description")
	}

	return rec, nil
}
