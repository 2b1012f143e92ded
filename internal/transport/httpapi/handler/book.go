package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kvasha/bookkeeper/internal/ledger"
	"github.com/kvasha/bookkeeper/internal/transport/httpapi/middleware"
)

// BookHandler manages book, account, bucket and currency registration. The
// registry backs the core's resolver ports; the service owns the logs.
type BookHandler struct {
	registry *ledger.Registry
	svc      *ledger.Service
}

// NewBookHandler creates a book handler.
func NewBookHandler(registry *ledger.Registry, svc *ledger.Service) *BookHandler {
	return &BookHandler{registry: registry, svc: svc}
}

type createBookRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CreateBook registers a book namespace and opens its log.
func (h *BookHandler) CreateBook(w http.ResponseWriter, r *http.Request) {
	var req createBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		respondError(w, "name is required", http.StatusBadRequest)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	owner, _ := middleware.GetUserIDFromContext(r.Context())
	book := &ledger.Book{
		ID:    ledger.BookID(req.ID),
		Name:  req.Name,
		Owner: ledger.UserID(owner),
	}
	if err := h.registry.AddBook(book); err != nil {
		respondError(w, err.Error(), http.StatusConflict)
		return
	}
	if err := h.svc.OpenBook(r.Context(), book.ID); err != nil {
		respondError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	respondJSON(w, book, http.StatusCreated)
}

type createCurrencyRequest struct {
	ID        string `json:"id"`
	Precision int32  `json:"precision"`
}

// CreateCurrency declares a currency and its default precision.
func (h *BookHandler) CreateCurrency(w http.ResponseWriter, r *http.Request) {
	var req createCurrencyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ID == "" {
		respondError(w, "id is required", http.StatusBadRequest)
		return
	}
	if req.Precision < 0 {
		respondError(w, "precision must not be negative", http.StatusBadRequest)
		return
	}
	h.registry.AddCurrency(ledger.CurrencyID(req.ID), req.Precision)
	respondJSON(w, req, http.StatusCreated)
}

type createAccountRequest struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Currency  string `json:"currency"`
	Precision *int32 `json:"precision,omitempty"`
}

// CreateAccount registers an account in a book.
func (h *BookHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	book := ledger.BookID(chi.URLParam(r, "bookID"))

	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.Currency == "" {
		respondError(w, "name and currency are required", http.StatusBadRequest)
		return
	}
	accountType := ledger.AccountType(req.Type)
	switch accountType {
	case ledger.AccountCash, ledger.AccountCredit, ledger.AccountBrokerage:
	default:
		respondError(w, "type must be CASH, CREDIT or BROKERAGE", http.StatusBadRequest)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	account := &ledger.Account{
		ID:        ledger.AccountID(req.ID),
		Book:      book,
		Name:      req.Name,
		Type:      accountType,
		Currency:  ledger.CurrencyID(req.Currency),
		Precision: req.Precision,
	}
	if err := h.registry.AddAccount(account); err != nil {
		respondError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	respondJSON(w, account, http.StatusCreated)
}

type createBucketRequest struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Currency string `json:"currency"`
}

// CreateBucket registers a bucket in a book.
func (h *BookHandler) CreateBucket(w http.ResponseWriter, r *http.Request) {
	book := ledger.BookID(chi.URLParam(r, "bookID"))

	var req createBucketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.Currency == "" {
		respondError(w, "name and currency are required", http.StatusBadRequest)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	bucket := &ledger.Bucket{
		ID:       ledger.BucketID(req.ID),
		Book:     book,
		Name:     req.Name,
		Currency: ledger.CurrencyID(req.Currency),
	}
	if err := h.registry.AddBucket(bucket); err != nil {
		respondError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	respondJSON(w, bucket, http.StatusCreated)
}
