package ledger

import "context"

// EntityResolver resolves account and bucket references within a book. The
// surrounding application owns entity storage; the core only looks up.
type EntityResolver interface {
	Account(book BookID, id AccountID) (*Account, bool)
	Bucket(book BookID, id BucketID) (*Bucket, bool)
}

// CurrencyResolver supplies the default number of decimal places for a
// currency. Accounts may override it (brokerage accounts often need finer
// precision than the currency's canonical one).
type CurrencyResolver interface {
	Precision(currency CurrencyID) (int32, bool)
}

// LogStore persists admitted transactions. The core defines the ordering and
// append-only contract; the store owns the format. Append must make the
// whole transaction visible at once.
type LogStore interface {
	Append(ctx context.Context, book BookID, seq uint64, tx *Transaction) error
	// Scan replays a book's transactions in (date, order, seq) order.
	Scan(ctx context.Context, book BookID, fn func(seq uint64, tx *Transaction) error) error
}
