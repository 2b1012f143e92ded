package ledger

import (
	"iter"
	"sort"
	"sync"
	"time"
)

// Position locates an admitted transaction in a book's log. Seq is the
// snapshot version at which the transaction became visible.
type Position struct {
	Seq uint64 `json:"seq"`
}

type logEntry struct {
	seq uint64
	tx  *Transaction
}

// entryLess orders the log by (date, order, insertion sequence) ascending.
// Order ties across transactions are broken by insertion sequence.
func entryLess(a, b logEntry) bool {
	if !a.tx.Date.Equal(b.tx.Date) {
		return a.tx.Date.Before(b.tx.Date)
	}
	if a.tx.Order != b.tx.Order {
		return a.tx.Order < b.tx.Order
	}
	return a.seq < b.seq
}

// Log is the append-only, totally ordered transaction sequence of one book.
// No deletion or in-place edit exists; corrections are new transactions.
// Appends must be serialized by the caller; reads may run concurrently.
type Log struct {
	mu      sync.RWMutex
	book    BookID
	entries []logEntry
	version uint64
}

// NewLog creates an empty log for a book.
func NewLog(book BookID) *Log {
	return &Log{book: book}
}

// Book returns the owning book id.
func (l *Log) Book() BookID { return l.book }

// Append admits a validated transaction. It never fails at this layer: once
// validated, a transaction always enters the log. The entry is placed at its
// (date, order) position while the sequence counter keeps append order.
func (l *Log) Append(vtx *ValidatedTransaction) Position {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.version++
	e := logEntry{seq: l.version, tx: vtx.Transaction()}
	l.insert(e)
	return Position{Seq: e.seq}
}

// Restore replays a previously persisted entry, keeping its stored sequence.
// Used when loading a book from a LogStore.
func (l *Log) Restore(seq uint64, tx *Transaction) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if seq > l.version {
		l.version = seq
	}
	l.insert(logEntry{seq: seq, tx: tx})
}

func (l *Log) insert(e logEntry) {
	i := sort.Search(len(l.entries), func(i int) bool {
		return entryLess(e, l.entries[i])
	})
	l.entries = append(l.entries, logEntry{})
	copy(l.entries[i+1:], l.entries[i:])
	l.entries[i] = e
}

// SnapshotVersion is a monotonic counter bumped on every append. The engine
// uses it to detect staleness for incremental recompute.
func (l *Log) SnapshotVersion() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.version
}

// Len returns the number of admitted transactions.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// snapshot copies the entry slice so iteration sequences are restartable and
// never observe a concurrent append mid-way.
func (l *Log) snapshot() []logEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]logEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// All yields (sequence, transaction) pairs in log order.
func (l *Log) All() iter.Seq2[uint64, *Transaction] {
	entries := l.snapshot()
	return func(yield func(uint64, *Transaction) bool) {
		for _, e := range entries {
			if !yield(e.seq, e.tx) {
				return
			}
		}
	}
}

// IterBetween yields transactions dated within [from, to] in log order.
// A zero bound leaves that side of the range open.
func (l *Log) IterBetween(from, to time.Time) iter.Seq[*Transaction] {
	entries := l.snapshot()
	return func(yield func(*Transaction) bool) {
		for _, e := range entries {
			if !from.IsZero() && e.tx.Date.Before(from) {
				continue
			}
			if !to.IsZero() && e.tx.Date.After(to) {
				continue
			}
			if !yield(e.tx) {
				return
			}
		}
	}
}

// Since yields entries appended after the given snapshot version, in log
// order. It feeds the engine's incremental update.
func (l *Log) Since(version uint64) iter.Seq2[uint64, *Transaction] {
	entries := l.snapshot()
	return func(yield func(uint64, *Transaction) bool) {
		for _, e := range entries {
			if e.seq <= version {
				continue
			}
			if !yield(e.seq, e.tx) {
				return
			}
		}
	}
}
