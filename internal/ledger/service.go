package ledger

import (
	"context"
	"fmt"
	"sync"
)

// Service is the facade the surrounding application talks to: it wires the
// validator, log, engine and checker together and serializes appends per
// book. Entity and currency resolution stay with the caller-supplied ports.
type Service struct {
	entities   EntityResolver
	currencies CurrencyResolver
	validator  *Validator
	engine     *Engine
	checker    *Checker
	store      LogStore

	mu    sync.RWMutex
	books map[BookID]*bookState
}

// bookState carries one book's log and its latest snapshot. appendMu
// enforces the single-writer-per-book discipline; snapshots are immutable
// and swapped wholesale.
type bookState struct {
	appendMu sync.Mutex
	log      *Log

	snapMu   sync.RWMutex
	snapshot *Balances
}

// Option configures a Service.
type Option func(*Service)

// WithLogStore attaches a persistence backend for the per-book logs. Appends
// reach the store before they become visible in memory.
func WithLogStore(store LogStore) Option {
	return func(s *Service) { s.store = store }
}

// NewService creates a ledger service over the given resolvers.
func NewService(entities EntityResolver, currencies CurrencyResolver, opts ...Option) *Service {
	s := &Service{
		entities:   entities,
		currencies: currencies,
		validator:  NewValidator(entities, currencies),
		engine:     NewEngine(),
		checker:    NewChecker(entities, currencies),
		books:      make(map[BookID]*bookState),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OpenBook prepares a book's log, replaying persisted transactions when a
// store is attached. It is idempotent. The book becomes visible only after a
// complete replay: a failed open leaves no state behind, so the caller can
// simply retry.
func (s *Service) OpenBook(ctx context.Context, book BookID) error {
	s.mu.RLock()
	_, ok := s.books[book]
	s.mu.RUnlock()
	if ok {
		return nil
	}

	st := &bookState{log: NewLog(book)}
	if s.store != nil {
		err := s.store.Scan(ctx, book, func(seq uint64, tx *Transaction) error {
			st.log.Restore(seq, tx)
			return nil
		})
		if err != nil {
			return fmt.Errorf("%w: replaying book %s: %v", ErrStorageUnavailable, book, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.books[book]; !ok {
		s.books[book] = st
	}
	return nil
}

func (s *Service) book(book BookID) (*bookState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.books[book]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBook, book)
	}
	return st, nil
}

// ValidateTransaction runs the admission checks without touching the log.
func (s *Service) ValidateTransaction(book BookID, tx *Transaction) (*ValidatedTransaction, error) {
	return s.validator.Validate(book, tx)
}

// AppendTransaction admits a validated transaction into the book's log.
// The whole transaction becomes visible at once; a storage failure leaves
// the in-memory log untouched so the caller can retry.
func (s *Service) AppendTransaction(ctx context.Context, book BookID, vtx *ValidatedTransaction) (Position, error) {
	st, err := s.book(book)
	if err != nil {
		return Position{}, err
	}

	st.appendMu.Lock()
	defer st.appendMu.Unlock()

	if s.store != nil {
		seq := st.log.SnapshotVersion() + 1
		if err := s.store.Append(ctx, book, seq, vtx.Transaction()); err != nil {
			return Position{}, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}
	}
	return st.log.Append(vtx), nil
}

// RecomputeBalances folds the whole log into a fresh snapshot and publishes
// it. On failure the previous snapshot remains authoritative.
func (s *Service) RecomputeBalances(book BookID) (*Balances, error) {
	st, err := s.book(book)
	if err != nil {
		return nil, err
	}
	b, err := s.engine.Recompute(st.log)
	if err != nil {
		return nil, err
	}
	st.publish(b)
	return b, nil
}

// UpdateBalances patches a previous snapshot with the log entries appended
// since its version, producing the same result a full recompute would.
func (s *Service) UpdateBalances(book BookID, prev *Balances) (*Balances, error) {
	st, err := s.book(book)
	if err != nil {
		return nil, err
	}
	b, err := s.engine.Update(prev, st.log)
	if err != nil {
		return nil, err
	}
	st.publish(b)
	return b, nil
}

// Snapshot returns the latest published snapshot, if any.
func (s *Service) Snapshot(book BookID) (*Balances, bool) {
	st, err := s.book(book)
	if err != nil {
		return nil, false
	}
	st.snapMu.RLock()
	defer st.snapMu.RUnlock()
	return st.snapshot, st.snapshot != nil
}

// Reconcile checks a snapshot against the ledger invariants. With a nil
// snapshot the latest published one is checked.
func (s *Service) Reconcile(book BookID, b *Balances) ([]Inconsistency, error) {
	if b == nil {
		var ok bool
		if b, ok = s.Snapshot(book); !ok {
			var err error
			if b, err = s.RecomputeBalances(book); err != nil {
				return nil, err
			}
		}
	}
	return s.checker.Check(book, b), nil
}

// Log exposes a book's log for range iteration and version queries.
func (s *Service) Log(book BookID) (*Log, error) {
	st, err := s.book(book)
	if err != nil {
		return nil, err
	}
	return st.log, nil
}

// publish swaps in a newer snapshot, last writer wins at snapshot-version
// granularity.
func (st *bookState) publish(b *Balances) {
	st.snapMu.Lock()
	defer st.snapMu.Unlock()
	if st.snapshot == nil || b.Version >= st.snapshot.Version {
		st.snapshot = b
	}
}
