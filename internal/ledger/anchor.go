package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// AnchorManager reconciles an account's synthetic opening balance marker
// against newly imported entries that predate it. The anchor only ever moves
// earlier: moving it forward would silently drop historical balance
// information.
type AnchorManager struct {
	repo Repository
}

func NewAnchorManager(repo Repository) *AnchorManager {
	return &AnchorManager{repo: repo}
}

// Reconcile runs once after a batch import. openingBalance is the explicit
// opening balance supplied by the import source, if any (QIF's opening
// balance pseudo-transaction); nil means unknown, which anchors at zero.
func (m *AnchorManager) Reconcile(ctx context.Context, account *Account, imported []*Entry, openingBalance *decimal.Decimal) error {
	if len(imported) == 0 {
		return nil
	}

	earliest := imported[0]
	for _, e := range imported[1:] {
		if e.Date.Before(earliest.Date) {
			earliest = e
		}
	}

	anchor, err := m.repo.FindAnchor(ctx, account.ID)

	switch {
	case errors.Is(err, ErrNotFound):
		balance := decimal.Zero
		if openingBalance != nil {
			balance = *openingBalance
		}

		entry := &Entry{
			AccountID:   account.ID,
			Date:        earliest.Date.AddDate(0, 0, -1),
			Amount:      decimal.Zero,
			Currency:    account.Currency,
			Kind:        KindOpeningAnchor,
			Description: "Opening balance",
			Balance:     &balance,
		}

		if err := m.repo.CreateEntry(ctx, entry); err != nil {
			return fmt.Errorf("creating opening anchor: %w", err)
		}

		return nil
	case err != nil:
		return fmt.Errorf("finding opening anchor: %w", err)
	}

	if earliest.Date.After(anchor.Date) {
		return nil
	}

	// Move the anchor one day before the newly discovered earliest entry
	// and rebuild its balance so the running balance at the old anchor
	// date is unchanged. With positive amounts as outflows, the balance
	// at the new date is the old anchor balance plus everything spent
	// between the two dates.
	newDate := earliest.Date.AddDate(0, 0, -1)

	oldBalance := decimal.Zero
	if anchor.Balance != nil {
		oldBalance = *anchor.Balance
	}

	delta := decimal.Zero

	for _, e := range imported {
		if e.Date.After(newDate) && !e.Date.After(anchor.Date) {
			delta = delta.Add(e.Amount)
		}
	}

	newBalance := oldBalance.Add(delta)

	if err := m.repo.UpdateAnchor(ctx, anchor.ID, newDate, newBalance); err != nil {
		return fmt.Errorf("moving opening anchor: %w", err)
	}

	return nil
}
