package ledger

import (
	"fmt"
	"sync"
)

// Registry is an in-memory entity and currency catalog implementing the
// resolver ports. The surrounding application may substitute its own backed
// storage; the core only ever resolves through the interfaces.
type Registry struct {
	mu         sync.RWMutex
	books      map[BookID]*Book
	accounts   map[BookID]map[AccountID]*Account
	buckets    map[BookID]map[BucketID]*Bucket
	currencies map[CurrencyID]int32
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		books:      make(map[BookID]*Book),
		accounts:   make(map[BookID]map[AccountID]*Account),
		buckets:    make(map[BookID]map[BucketID]*Bucket),
		currencies: make(map[CurrencyID]int32),
	}
}

// AddCurrency declares a currency with its default number of decimal places.
func (r *Registry) AddCurrency(cur CurrencyID, precision int32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.currencies[cur] = precision
}

// Precision implements CurrencyResolver.
func (r *Registry) Precision(cur CurrencyID) (int32, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.currencies[cur]
	return p, ok
}

// AddBook registers a book namespace.
func (r *Registry) AddBook(b *Book) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.books[b.ID]; exists {
		return fmt.Errorf("book %s already exists", b.ID)
	}
	r.books[b.ID] = b
	r.accounts[b.ID] = make(map[AccountID]*Account)
	r.buckets[b.ID] = make(map[BucketID]*Bucket)
	return nil
}

// Book looks up a book by id.
func (r *Registry) Book(id BookID) (*Book, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.books[id]
	return b, ok
}

// AddAccount registers an account. The owning book must already exist.
func (r *Registry) AddAccount(a *Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	accounts, ok := r.accounts[a.Book]
	if !ok {
		return fmt.Errorf("%w: book %s", ErrUnknownBook, a.Book)
	}
	if _, exists := accounts[a.ID]; exists {
		return fmt.Errorf("account %s already exists in book %s", a.ID, a.Book)
	}
	if _, ok := r.currencies[a.Currency]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCurrency, a.Currency)
	}
	accounts[a.ID] = a
	return nil
}

// AddBucket registers a bucket. The owning book must already exist.
func (r *Registry) AddBucket(b *Bucket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	buckets, ok := r.buckets[b.Book]
	if !ok {
		return fmt.Errorf("%w: book %s", ErrUnknownBook, b.Book)
	}
	if _, exists := buckets[b.ID]; exists {
		return fmt.Errorf("bucket %s already exists in book %s", b.ID, b.Book)
	}
	if _, ok := r.currencies[b.Currency]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCurrency, b.Currency)
	}
	buckets[b.ID] = b
	return nil
}

// Account implements EntityResolver.
func (r *Registry) Account(book BookID, id AccountID) (*Account, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.accounts[book][id]
	return a, ok
}

// Bucket implements EntityResolver.
func (r *Registry) Bucket(book BookID, id BucketID) (*Bucket, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.buckets[book][id]
	return b, ok
}

// RemoveAccount drops an account from the catalog. Cascade rules are the
// caller's responsibility; the reconciler will flag balances that still
// reference it.
func (r *Registry) RemoveAccount(book BookID, id AccountID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.accounts[book], id)
}

// RemoveBucket drops a bucket from the catalog.
func (r *Registry) RemoveBucket(book BookID, id BucketID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.buckets[book], id)
}
