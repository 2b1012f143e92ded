package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memLogStore is an in-memory LogStore for exercising persistence wiring.
type memLogStore struct {
	entries map[BookID][]memEntry
	failing bool
}

type memEntry struct {
	seq uint64
	tx  *Transaction
}

func newMemLogStore() *memLogStore {
	return &memLogStore{entries: make(map[BookID][]memEntry)}
}

func (s *memLogStore) Append(_ context.Context, book BookID, seq uint64, tx *Transaction) error {
	if s.failing {
		return errors.New("connection refused")
	}
	s.entries[book] = append(s.entries[book], memEntry{seq: seq, tx: tx})
	return nil
}

func (s *memLogStore) Scan(_ context.Context, book BookID, fn func(seq uint64, tx *Transaction) error) error {
	if s.failing {
		return errors.New("connection refused")
	}
	for _, e := range s.entries[book] {
		if err := fn(e.seq, e.tx); err != nil {
			return err
		}
	}
	return nil
}

func TestService_EndToEnd(t *testing.T) {
	ctx := context.Background()
	registry := newTestRegistry(t)
	svc := NewService(registry, registry)
	require.NoError(t, svc.OpenBook(ctx, testBook))

	vtx, err := svc.ValidateTransaction(testBook, tx("t1", day(1), 0,
		Income{From: "salary", To: "acc-main", Amount: aud("5000.00")}))
	require.NoError(t, err)

	pos, err := svc.AppendTransaction(ctx, testBook, vtx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), pos.Seq)

	prev, err := svc.RecomputeBalances(testBook)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), prev.Version)

	vtx, err = svc.ValidateTransaction(testBook, tx("t2", day(2), 0,
		Expense{From: "acc-main", To: "groceries", Amount: aud("120.40")}))
	require.NoError(t, err)
	_, err = svc.AppendTransaction(ctx, testBook, vtx)
	require.NoError(t, err)

	patched, err := svc.UpdateBalances(testBook, prev)
	require.NoError(t, err)

	full, err := svc.RecomputeBalances(testBook)
	require.NoError(t, err)
	assertBalancesEqual(t, full, patched)

	snap, ok := svc.Snapshot(testBook)
	require.True(t, ok)
	assert.Equal(t, uint64(2), snap.Version)

	found, err := svc.Reconcile(testBook, nil)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestService_ValidationFailureLeavesLogUntouched(t *testing.T) {
	ctx := context.Background()
	registry := newTestRegistry(t)
	svc := NewService(registry, registry)
	require.NoError(t, svc.OpenBook(ctx, testBook))

	_, err := svc.ValidateTransaction(testBook, tx("bad", day(1), 0,
		Transfer{From: "acc-missing", To: "acc-save", FromAmount: aud("10.00"), ToAmount: aud("10.00")}))
	require.ErrorIs(t, err, ErrUnknownEntity)

	log, err := svc.Log(testBook)
	require.NoError(t, err)
	assert.Equal(t, 0, log.Len())
}

func TestService_UnknownBook(t *testing.T) {
	registry := newTestRegistry(t)
	svc := NewService(registry, registry)

	vtx, err := svc.ValidateTransaction(testBook, tx("t1", day(1), 0,
		Income{From: "salary", To: "acc-main", Amount: aud("1.00")}))
	require.NoError(t, err)

	_, err = svc.AppendTransaction(context.Background(), testBook, vtx)
	require.ErrorIs(t, err, ErrUnknownBook)

	_, err = svc.RecomputeBalances(testBook)
	require.ErrorIs(t, err, ErrUnknownBook)
}

func TestService_OpenBookIdempotent(t *testing.T) {
	ctx := context.Background()
	registry := newTestRegistry(t)
	svc := NewService(registry, registry)

	require.NoError(t, svc.OpenBook(ctx, testBook))

	vtx, err := svc.ValidateTransaction(testBook, tx("t1", day(1), 0,
		Income{From: "salary", To: "acc-main", Amount: aud("1.00")}))
	require.NoError(t, err)
	_, err = svc.AppendTransaction(ctx, testBook, vtx)
	require.NoError(t, err)

	require.NoError(t, svc.OpenBook(ctx, testBook))
	log, err := svc.Log(testBook)
	require.NoError(t, err)
	assert.Equal(t, 1, log.Len())
}

func TestService_StoreReplay(t *testing.T) {
	ctx := context.Background()
	registry := newTestRegistry(t)
	store := newMemLogStore()

	svc := NewService(registry, registry, WithLogStore(store))
	require.NoError(t, svc.OpenBook(ctx, testBook))
	for _, vtx := range buildSampleLog(t, NewValidator(registry, registry)) {
		_, err := svc.AppendTransaction(ctx, testBook, vtx)
		require.NoError(t, err)
	}
	want, err := svc.RecomputeBalances(testBook)
	require.NoError(t, err)

	// A fresh service over the same store sees the same ledger.
	reopened := NewService(registry, registry, WithLogStore(store))
	require.NoError(t, reopened.OpenBook(ctx, testBook))
	got, err := reopened.RecomputeBalances(testBook)
	require.NoError(t, err)

	assertBalancesEqual(t, want, got)
}

func TestService_StoreFailureLeavesMemoryUntouched(t *testing.T) {
	ctx := context.Background()
	registry := newTestRegistry(t)
	store := newMemLogStore()

	svc := NewService(registry, registry, WithLogStore(store))
	require.NoError(t, svc.OpenBook(ctx, testBook))

	vtx, err := svc.ValidateTransaction(testBook, tx("t1", day(1), 0,
		Income{From: "salary", To: "acc-main", Amount: aud("1.00")}))
	require.NoError(t, err)

	store.failing = true
	_, err = svc.AppendTransaction(ctx, testBook, vtx)
	require.ErrorIs(t, err, ErrStorageUnavailable)

	log, err := svc.Log(testBook)
	require.NoError(t, err)
	assert.Equal(t, 0, log.Len())
	assert.Equal(t, uint64(0), log.SnapshotVersion())

	// The append can be retried once storage recovers.
	store.failing = false
	pos, err := svc.AppendTransaction(ctx, testBook, vtx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), pos.Seq)
}

func TestService_OpenBookRetryReplaysAfterStoreFailure(t *testing.T) {
	ctx := context.Background()
	registry := newTestRegistry(t)
	store := newMemLogStore()

	// Persist one transaction through a healthy service.
	seed := NewService(registry, registry, WithLogStore(store))
	require.NoError(t, seed.OpenBook(ctx, testBook))
	vtx, err := seed.ValidateTransaction(testBook, tx("t1", day(1), 0,
		Income{From: "salary", To: "acc-main", Amount: aud("1000.00")}))
	require.NoError(t, err)
	_, err = seed.AppendTransaction(ctx, testBook, vtx)
	require.NoError(t, err)

	store.failing = true
	svc := NewService(registry, registry, WithLogStore(store))
	err = svc.OpenBook(ctx, testBook)
	require.ErrorIs(t, err, ErrStorageUnavailable)

	// The failed open leaves no book behind.
	_, err = svc.Log(testBook)
	require.ErrorIs(t, err, ErrUnknownBook)

	// The retry starts from scratch and sees the persisted history.
	store.failing = false
	require.NoError(t, svc.OpenBook(ctx, testBook))
	log, err := svc.Log(testBook)
	require.NoError(t, err)
	assert.Equal(t, 1, log.Len())
	assert.Equal(t, uint64(1), log.SnapshotVersion())
}
