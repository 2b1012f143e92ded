package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvasha/bookkeeper/internal/ledger"
	"github.com/kvasha/bookkeeper/internal/transport/httpapi/handler"
)

func newTestService(t *testing.T) *ledger.Service {
	t.Helper()

	registry := ledger.NewRegistry()
	registry.AddCurrency("AUD", 2)
	require.NoError(t, registry.AddBook(&ledger.Book{ID: "book-1", Name: "household", Owner: "user-1"}))
	require.NoError(t, registry.AddAccount(&ledger.Account{ID: "acc-main", Book: "book-1", Name: "Everyday", Type: ledger.AccountCash, Currency: "AUD"}))
	require.NoError(t, registry.AddBucket(&ledger.Bucket{ID: "salary", Book: "book-1", Name: "Salary", Currency: "AUD"}))

	svc := ledger.NewService(registry, registry)
	require.NoError(t, svc.OpenBook(context.Background(), "book-1"))
	return svc
}

func newTestRouter(svc *ledger.Service) *chi.Mux {
	h := handler.NewTransactionHandler(svc)
	r := chi.NewRouter()
	r.Post("/books/{bookID}/transactions", h.CreateTransaction)
	r.Get("/books/{bookID}/transactions", h.ListTransactions)
	return r
}

func TestCreateTransaction(t *testing.T) {
	router := newTestRouter(newTestService(t))

	body := `{
		"id": "t1",
		"date": "2024-03-01",
		"details": [
			{"type":"income","from":"salary","to":"acc-main","amount":{"amount":"1000.00","currency":"AUD"}}
		]
	}`
	req := httptest.NewRequest(http.MethodPost, "/books/book-1/transactions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		ID       string `json:"id"`
		Position struct {
			Seq uint64 `json:"seq"`
		} `json:"position"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "t1", resp.ID)
	assert.Equal(t, uint64(1), resp.Position.Seq)
}

func TestCreateTransaction_GeneratesID(t *testing.T) {
	router := newTestRouter(newTestService(t))

	body := `{
		"date": "2024-03-01",
		"details": [
			{"type":"income","from":"salary","to":"acc-main","amount":{"amount":"1000.00","currency":"AUD"}}
		]
	}`
	req := httptest.NewRequest(http.MethodPost, "/books/book-1/transactions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ID)
}

func TestCreateTransaction_ValidationFailure(t *testing.T) {
	router := newTestRouter(newTestService(t))

	// Unknown account: rejected wholesale, nothing is logged.
	body := `{
		"date": "2024-03-01",
		"details": [
			{"type":"income","from":"salary","to":"acc-missing","amount":{"amount":"1000.00","currency":"AUD"}}
		]
	}`
	req := httptest.NewRequest(http.MethodPost, "/books/book-1/transactions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	listReq := httptest.NewRequest(http.MethodGet, "/books/book-1/transactions", nil)
	listRec := httptest.NewRecorder()
	router.ServeHTTP(listRec, listReq)

	var list struct {
		Version      uint64            `json:"version"`
		Transactions []json.RawMessage `json:"transactions"`
	}
	require.NoError(t, json.Unmarshal(listRec.Body.Bytes(), &list))
	assert.Equal(t, uint64(0), list.Version)
	assert.Empty(t, list.Transactions)
}

func TestCreateTransaction_BadDetail(t *testing.T) {
	router := newTestRouter(newTestService(t))

	body := `{
		"date": "2024-03-01",
		"details": [{"type":"dividend"}]
	}`
	req := httptest.NewRequest(http.MethodPost, "/books/book-1/transactions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateTransaction_BadDate(t *testing.T) {
	router := newTestRouter(newTestService(t))

	body := `{"date": "03/01/2024", "details": []}`
	req := httptest.NewRequest(http.MethodPost, "/books/book-1/transactions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListTransactions_DateRange(t *testing.T) {
	svc := newTestService(t)
	router := newTestRouter(svc)

	for _, d := range []string{"2024-03-01", "2024-03-05", "2024-03-10"} {
		body := `{
			"date": "` + d + `",
			"details": [
				{"type":"income","from":"salary","to":"acc-main","amount":{"amount":"10.00","currency":"AUD"}}
			]
		}`
		req := httptest.NewRequest(http.MethodPost, "/books/book-1/transactions", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/books/book-1/transactions?from=2024-03-02&to=2024-03-06", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Version      uint64            `json:"version"`
		Transactions []json.RawMessage `json:"transactions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, uint64(3), list.Version)
	assert.Len(t, list.Transactions, 1)
}

func TestListTransactions_UnknownBook(t *testing.T) {
	router := newTestRouter(newTestService(t))

	req := httptest.NewRequest(http.MethodGet, "/books/nope/transactions", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
