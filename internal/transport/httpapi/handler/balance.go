package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kvasha/bookkeeper/internal/ledger"
	"github.com/kvasha/bookkeeper/pkg/logger"
)

// SnapshotCache is the read-side cache for published snapshots. Cache
// failures are logged and ignored: the log is always authoritative.
type SnapshotCache interface {
	Get(ctx context.Context, book ledger.BookID, version uint64) (*ledger.Balances, bool, error)
	Set(ctx context.Context, book ledger.BookID, b *ledger.Balances) error
}

// BalanceHandler serves derived balance snapshots and reconciliation
// verdicts.
type BalanceHandler struct {
	svc   *ledger.Service
	cache SnapshotCache
	log   *logger.Logger
}

// NewBalanceHandler creates a balance handler. cache may be nil.
func NewBalanceHandler(svc *ledger.Service, cache SnapshotCache, log *logger.Logger) *BalanceHandler {
	return &BalanceHandler{svc: svc, cache: cache, log: log.WithField("handler", "balance")}
}

// GetBalances returns the book's balances at the current log version. The
// default path patches the last published snapshot incrementally;
// ?full=true forces a recompute from zero.
func (h *BalanceHandler) GetBalances(w http.ResponseWriter, r *http.Request) {
	book := ledger.BookID(chi.URLParam(r, "bookID"))
	ctx := context.WithValue(r.Context(), logger.BookIDKey, string(book))
	reqLog := h.log.WithContext(ctx)

	log, err := h.svc.Log(book)
	if err != nil {
		respondError(w, err.Error(), http.StatusNotFound)
		return
	}
	version := log.SnapshotVersion()

	if h.cache != nil && r.URL.Query().Get("full") != "true" {
		if cached, ok, err := h.cache.Get(ctx, book, version); err == nil && ok {
			respondJSON(w, cached, http.StatusOK)
			return
		}
	}

	start := time.Now()
	b, err := h.computeBalances(book, r.URL.Query().Get("full") == "true")
	if err != nil {
		respondBalanceError(w, err)
		return
	}
	reqLog.WithDuration(time.Since(start)).Debug("balances computed", "version", b.Version)

	if h.cache != nil {
		if err := h.cache.Set(ctx, book, b); err != nil {
			reqLog.WithError(err).Warn("snapshot cache write failed")
		}
	}
	respondJSON(w, b, http.StatusOK)
}

func (h *BalanceHandler) computeBalances(book ledger.BookID, full bool) (*ledger.Balances, error) {
	if full {
		return h.svc.RecomputeBalances(book)
	}
	prev, ok := h.svc.Snapshot(book)
	if !ok {
		return h.svc.RecomputeBalances(book)
	}
	return h.svc.UpdateBalances(book, prev)
}

type reconcileResponse struct {
	Consistent      bool                   `json:"consistent"`
	Version         uint64                 `json:"version"`
	Inconsistencies []ledger.Inconsistency `json:"inconsistencies"`
}

// Reconcile checks the book's current snapshot against the ledger
// invariants. Inconsistencies are reported, never fatal.
func (h *BalanceHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	book := ledger.BookID(chi.URLParam(r, "bookID"))

	b, err := h.computeBalances(book, false)
	if err != nil {
		respondBalanceError(w, err)
		return
	}
	findings, err := h.svc.Reconcile(book, b)
	if err != nil {
		respondBalanceError(w, err)
		return
	}
	if findings == nil {
		findings = []ledger.Inconsistency{}
	}
	respondJSON(w, reconcileResponse{
		Consistent:      len(findings) == 0,
		Version:         b.Version,
		Inconsistencies: findings,
	}, http.StatusOK)
}

func respondBalanceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrUnknownBook):
		respondError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ledger.ErrArithmeticOverflow):
		// The previous snapshot stays authoritative; the recompute alone failed.
		respondError(w, err.Error(), http.StatusConflict)
	default:
		respondError(w, err.Error(), http.StatusInternalServerError)
	}
}
