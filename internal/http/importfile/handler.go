package importfile

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/we-promise/sure-sub001/internal/enrich"
	"github.com/we-promise/sure-sub001/internal/importer"
	"github.com/we-promise/sure-sub001/internal/ingest"
	"github.com/we-promise/sure-sub001/internal/ledger"
)

type Handler struct {
	importSvc *importer.Service
	ledgerSvc *ledger.Service
	ingestSvc *ingest.Service
	enricher  *enrich.Service
	anchors   *ledger.AnchorManager
}

func NewHandler(
	importSvc *importer.Service,
	ledgerSvc *ledger.Service,
	ingestSvc *ingest.Service,
	enricher *enrich.Service,
	anchors *ledger.AnchorManager,
) *Handler {
	return &Handler{
		importSvc: importSvc,
		ledgerSvc: ledgerSvc,
		ingestSvc: ingestSvc,
		enricher:  enricher,
		anchors:   anchors,
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.importFile)
}

type importResponse struct {
	Imported   int `json:"imported"`
	Duplicates int `json:"duplicates"`
	Upgraded   int `json:"upgraded"`
	Ambiguous  int `json:"ambiguous"`
}

func (h *Handler) importFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		http.Error(w, "failed to parse form: "+err.Error(), http.StatusBadRequest)
		return
	}

	format := importer.Format(r.FormValue("format"))
	if format == "" {
		http.Error(w, "format field is required", http.StatusBadRequest)
		return
	}

	accountID, err := uuid.Parse(r.FormValue("account_id"))
	if err != nil {
		http.Error(w, "account_id field is required", http.StatusBadRequest)
		return
	}

	account, err := h.ledgerSvc.GetAccount(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			http.Error(w, "account not found", http.StatusNotFound)
			return
		}

		http.Error(w, err.Error(), http.StatusInternalServerError)

		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	parsed, err := h.importSvc.Import(format, file, account.Currency)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.ingestSvc.IngestRecords(r.Context(), account, string(format), parsed.Records)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// The file's category column flows through the enrichment ledger like
	// any other automated source, so user-set categories stay untouched.
	for _, imp := range result.Imported {
		if imp.Record.Category == "" {
			continue
		}

		attrs := map[string]string{"category": imp.Record.Category}
		if _, err := h.enricher.Enrich(r.Context(), imp.Entry, attrs, enrich.Source(format), nil); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}

	if err := h.anchors.Reconcile(r.Context(), account, result.Entries(), parsed.OpeningBalance); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	resp := importResponse{
		Imported:   len(result.Imported),
		Duplicates: result.Duplicates,
		Upgraded:   result.Upgraded,
		Ambiguous:  len(result.Ambiguous),
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("encoding import response", "error", err)
	}
}
