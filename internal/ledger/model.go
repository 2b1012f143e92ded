// Package ledger is the balance computation and consistency core: it admits
// transactions into an append-only per-book log, folds the log into derived
// per-account, per-bucket and per-currency balances, and verifies that the
// derived snapshot is still reconcilable against the log.
package ledger

import (
	"time"

	"github.com/google/uuid"

	"github.com/kvasha/bookkeeper/pkg/money"
)

// Identifiers are opaque, immutable strings; equality is string equality.
type (
	BookID        string
	AccountID     string
	BucketID      string
	TransactionID string
	UserID        string
	CurrencyID    string
	TickerSymbol  string
)

// NewTransactionID generates a fresh transaction identifier.
func NewTransactionID() TransactionID {
	return TransactionID(uuid.NewString())
}

// AccountType classifies an account. Assets and liabilities are deliberately
// not differentiated to keep debit/credit terminology out of the model.
type AccountType string

const (
	AccountCash      AccountType = "CASH"
	AccountCredit    AccountType = "CREDIT"
	AccountBrokerage AccountType = "BROKERAGE"
)

// Permission is a collaborator capability on a book. Enforcement happens in
// the surrounding application, not here.
type Permission string

const (
	PermissionView Permission = "VIEW"
)

// Collaborator grants a user permissions on a book.
type Collaborator struct {
	User        UserID       `json:"user"`
	Permissions []Permission `json:"permissions"`
}

// Book is a ledger namespace. Every account, bucket and transaction belongs
// to exactly one book.
type Book struct {
	ID            BookID         `json:"id"`
	Name          string         `json:"name"`
	Owner         UserID         `json:"owner"`
	Collaborators []Collaborator `json:"collaborators,omitempty"`
}

// Account models a single-currency asset or liability holding. Brokerage
// accounts additionally accrue security positions, tracked separately from
// the cash balance.
type Account struct {
	ID       AccountID   `json:"id"`
	Book     BookID      `json:"book"`
	Name     string      `json:"name"`
	Type     AccountType `json:"type"`
	Currency CurrencyID  `json:"currency"`

	// Precision overrides the currency's default number of decimal places
	// when set. Fixed at creation; every amount posted to the account must
	// round-trip losslessly at the effective precision.
	Precision *int32 `json:"precision,omitempty"`
}

// EffectivePrecision resolves the account's precision against the currency
// default.
func (a *Account) EffectivePrecision(currencyDefault int32) int32 {
	if a.Precision != nil {
		return *a.Precision
	}
	return currencyDefault
}

// Bucket models an income/expense/equity category. It never holds a cash
// balance directly, it only accumulates in/out totals.
type Bucket struct {
	ID       BucketID   `json:"id"`
	Book     BookID     `json:"book"`
	Name     string     `json:"name"`
	Currency CurrencyID `json:"currency"`
}

// Transaction is an atomic, dated, ordered unit of the ledger. Transactions
// are immutable once admitted; corrections are new transactions.
type Transaction struct {
	ID    TransactionID `json:"id"`
	Date  time.Time     `json:"date"`
	Order int           `json:"order"` // disambiguates same-day sequencing, lower first
	Notes string        `json:"notes,omitempty"`

	// Details is the non-empty ordered sequence of movements. A transaction
	// with zero details is never admitted.
	Details []Detail `json:"details"`
}

// DetailKind tags a transaction detail variant.
type DetailKind string

const (
	KindTransfer DetailKind = "transfer"
	KindIncome   DetailKind = "income"
	KindExpense  DetailKind = "expense"
	KindSecurity DetailKind = "security"
)

// Detail is one typed movement within a transaction. All Money fields are
// non-negative magnitudes; direction is carried by from/to, never by sign,
// except Security quantity which is signed.
type Detail interface {
	Kind() DetailKind
}

// Transfer moves value between two accounts. The legs differ only when the
// account currencies differ (cross-currency transfer).
type Transfer struct {
	From       AccountID   `json:"from"`
	To         AccountID   `json:"to"`
	FromAmount money.Money `json:"from_amount"`
	ToAmount   money.Money `json:"to_amount"`
}

func (Transfer) Kind() DetailKind { return KindTransfer }

// Income brings value into the tracked system from an external/equity source.
type Income struct {
	From   BucketID    `json:"from"`
	To     AccountID   `json:"to"`
	Amount money.Money `json:"amount"`
}

func (Income) Kind() DetailKind { return KindIncome }

// Expense takes value out of the tracked system.
type Expense struct {
	From   AccountID   `json:"from"`
	To     BucketID    `json:"to"`
	Amount money.Money `json:"amount"`
}

func (Expense) Kind() DetailKind { return KindExpense }

// Security is a brokerage trade: Amount is the cash leg settled against the
// settlement account, Quantity is the signed position delta for the ticker
// (positive buys, negative sells). Fees are a separate Expense.
type Security struct {
	SettlementAccount AccountID      `json:"settlement_account"`
	Ticker            TickerSymbol   `json:"ticker"`
	Quantity          money.Quantity `json:"quantity"`
	Amount            money.Money    `json:"amount"`
}

func (Security) Kind() DetailKind { return KindSecurity }
