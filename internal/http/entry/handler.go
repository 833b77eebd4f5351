package entry

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/we-promise/sure-sub001/internal/ledger"
)

type Handler struct {
	ledgerSvc *ledger.Service
}

func NewHandler(ledgerSvc *ledger.Service) *Handler {
	return &Handler{ledgerSvc: ledgerSvc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/{id}/entries", h.listEntries)
}

type entryResponse struct {
	ID          uuid.UUID       `json:"id"`
	Date        time.Time       `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Kind        ledger.Kind     `json:"kind"`
	Description string          `json:"description"`
	ExternalID  string          `json:"external_id,omitempty"`
	Merchant    string          `json:"merchant,omitempty"`
	Category    string          `json:"category,omitempty"`
	Notes       string          `json:"notes,omitempty"`
	Pending     bool            `json:"pending,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (h *Handler) listEntries(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid account id", http.StatusBadRequest)
		return
	}

	if _, err := h.ledgerSvc.GetAccount(r.Context(), id); err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			http.Error(w, "account not found", http.StatusNotFound)
			return
		}

		http.Error(w, err.Error(), http.StatusInternalServerError)

		return
	}

	entries, err := h.ledgerSvc.ListEntries(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := make([]entryResponse, 0, len(entries))

	for _, e := range entries {
		resp = append(resp, entryResponse{
			ID:          e.ID,
			Date:        e.Date,
			Amount:      e.Amount,
			Currency:    e.Currency,
			Kind:        e.Kind,
			Description: e.Description,
			ExternalID:  e.ExternalID,
			Merchant:    e.Merchant,
			Category:    e.Category,
			Notes:       e.Notes,
			Pending:     e.Pending,
			CreatedAt:   e.CreatedAt,
		})
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("encoding entries", "error", err)
	}
}
