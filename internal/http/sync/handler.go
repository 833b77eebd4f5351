package sync

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/we-promise/sure-sub001/internal/events"
	"github.com/we-promise/sure-sub001/internal/ledger"
	"github.com/we-promise/sure-sub001/internal/provider"
	"github.com/we-promise/sure-sub001/internal/syncer"
)

type Handler struct {
	orch           *syncer.Orchestrator
	publisher      events.Publisher
	providerName   string
	lookbackMonths int
	maxWindowDays  int
}

func NewHandler(orch *syncer.Orchestrator, publisher events.Publisher, providerName string, lookbackMonths, maxWindowDays int) *Handler {
	return &Handler{
		orch:           orch,
		publisher:      publisher,
		providerName:   providerName,
		lookbackMonths: lookbackMonths,
		maxWindowDays:  maxWindowDays,
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/{id}/sync", h.runSync)
	r.Get("/{id}/snapshot", h.getSnapshot)
}

func (h *Handler) runSync(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid connection id", http.StatusBadRequest)
		return
	}

	conn := syncer.Connection{
		ID:            id,
		ProviderName:  h.providerName,
		LookbackStart: time.Now().AddDate(0, -h.lookbackMonths, 0),
		MaxWindowDays: h.maxWindowDays,
	}

	summary, err := h.orch.Run(r.Context(), conn)
	if err != nil {
		var authErr *provider.AuthError
		if errors.As(err, &authErr) {
			// Distinct status so the UI can prompt re-authentication.
			http.Error(w, authErr.Error(), http.StatusUnauthorized)
			return
		}

		http.Error(w, err.Error(), http.StatusBadGateway)

		return
	}

	ev := events.SyncCompleted{
		ConnectionID:         summary.ConnectionID,
		Provider:             summary.Provider,
		AccountsProcessed:    summary.AccountsProcessed,
		TransactionsImported: summary.TransactionsImported,
		SkippedAccounts:      len(summary.SkippedAccounts),
		CompletedAt:          summary.CompletedAt,
	}
	if err := h.publisher.PublishSyncCompleted(r.Context(), ev); err != nil {
		// Eventing is best-effort; the sync itself succeeded.
		slog.Error("publishing sync completed event", "connection", id, "error", err)
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(summary); err != nil {
		slog.Error("encoding sync summary", "error", err)
	}
}

func (h *Handler) getSnapshot(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid connection id", http.StatusBadRequest)
		return
	}

	snapshot, err := h.orch.Snapshot(r.Context(), id)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			http.Error(w, "no snapshot for connection", http.StatusNotFound)
			return
		}

		http.Error(w, err.Error(), http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")

	if _, err := w.Write(snapshot); err != nil {
		slog.Error("writing snapshot", "error", err)
	}
}
