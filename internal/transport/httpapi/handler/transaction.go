package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kvasha/bookkeeper/internal/ledger"
)

// TransactionHandler admits transactions into a book's log and serves log
// reads. Validation failures are expected and frequent: they map to 422, not
// to server errors.
type TransactionHandler struct {
	svc *ledger.Service
}

// NewTransactionHandler creates a transaction handler.
func NewTransactionHandler(svc *ledger.Service) *TransactionHandler {
	return &TransactionHandler{svc: svc}
}

type createTransactionRequest struct {
	ID      string            `json:"id"`
	Date    string            `json:"date"`
	Order   int               `json:"order"`
	Notes   string            `json:"notes"`
	Details []json.RawMessage `json:"details"`
}

type createTransactionResponse struct {
	ID       ledger.TransactionID `json:"id"`
	Position ledger.Position      `json:"position"`
}

// CreateTransaction validates and appends one transaction atomically.
func (h *TransactionHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	book := ledger.BookID(chi.URLParam(r, "bookID"))

	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		respondError(w, "date must be YYYY-MM-DD or RFC 3339", http.StatusBadRequest)
		return
	}

	tx := &ledger.Transaction{
		ID:    ledger.TransactionID(req.ID),
		Date:  date,
		Order: req.Order,
		Notes: req.Notes,
	}
	if tx.ID == "" {
		tx.ID = ledger.NewTransactionID()
	}
	for _, raw := range req.Details {
		d, err := ledger.UnmarshalDetail(raw)
		if err != nil {
			respondError(w, "invalid detail: "+err.Error(), http.StatusBadRequest)
			return
		}
		tx.Details = append(tx.Details, d)
	}

	vtx, err := h.svc.ValidateTransaction(book, tx)
	if err != nil {
		respondError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	pos, err := h.svc.AppendTransaction(r.Context(), book, vtx)
	if err != nil {
		respondAppendError(w, err)
		return
	}

	respondJSON(w, createTransactionResponse{ID: tx.ID, Position: pos}, http.StatusCreated)
}

// ListTransactions streams a book's log, optionally bounded by ?from and ?to
// dates, in log order.
func (h *TransactionHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	book := ledger.BookID(chi.URLParam(r, "bookID"))

	log, err := h.svc.Log(book)
	if err != nil {
		respondError(w, err.Error(), http.StatusNotFound)
		return
	}

	var from, to time.Time
	if s := r.URL.Query().Get("from"); s != "" {
		if from, err = parseDate(s); err != nil {
			respondError(w, "from must be YYYY-MM-DD or RFC 3339", http.StatusBadRequest)
			return
		}
	}
	if s := r.URL.Query().Get("to"); s != "" {
		if to, err = parseDate(s); err != nil {
			respondError(w, "to must be YYYY-MM-DD or RFC 3339", http.StatusBadRequest)
			return
		}
	}

	txs := make([]*ledger.Transaction, 0)
	for tx := range log.IterBetween(from, to) {
		txs = append(txs, tx)
	}
	respondJSON(w, map[string]interface{}{
		"version":      log.SnapshotVersion(),
		"transactions": txs,
	}, http.StatusOK)
}

func respondAppendError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrUnknownBook):
		respondError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ledger.ErrStorageUnavailable):
		respondError(w, err.Error(), http.StatusServiceUnavailable)
	default:
		respondError(w, err.Error(), http.StatusInternalServerError)
	}
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
