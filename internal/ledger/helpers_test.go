package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kvasha/bookkeeper/pkg/money"
)

const testBook = BookID("book-1")

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()

	r := NewRegistry()
	r.AddCurrency("AUD", 2)
	r.AddCurrency("USD", 2)

	require.NoError(t, r.AddBook(&Book{ID: testBook, Name: "household", Owner: "user-1"}))

	brokeragePrecision := int32(4)
	accounts := []*Account{
		{ID: "acc-main", Book: testBook, Name: "Everyday", Type: AccountCash, Currency: "AUD"},
		{ID: "acc-save", Book: testBook, Name: "Savings", Type: AccountCash, Currency: "AUD"},
		{ID: "acc-usd", Book: testBook, Name: "USD Wallet", Type: AccountCash, Currency: "USD"},
		{ID: "acc-card", Book: testBook, Name: "Card", Type: AccountCredit, Currency: "AUD"},
		{ID: "acc-broker", Book: testBook, Name: "Broker", Type: AccountBrokerage, Currency: "AUD", Precision: &brokeragePrecision},
	}
	for _, a := range accounts {
		require.NoError(t, r.AddAccount(a))
	}

	buckets := []*Bucket{
		{ID: "salary", Book: testBook, Name: "Salary", Currency: "AUD"},
		{ID: "groceries", Book: testBook, Name: "Groceries", Currency: "AUD"},
	}
	for _, b := range buckets {
		require.NoError(t, r.AddBucket(b))
	}
	return r
}

func day(d int) time.Time {
	return time.Date(2024, time.March, d, 0, 0, 0, 0, time.UTC)
}

func aud(s string) money.Money { return money.MustParse(s, "AUD") }
func usd(s string) money.Money { return money.MustParse(s, "USD") }

func tx(id string, date time.Time, order int, details ...Detail) *Transaction {
	return &Transaction{
		ID:      TransactionID(id),
		Date:    date,
		Order:   order,
		Details: details,
	}
}

func mustValidate(t *testing.T, v *Validator, transaction *Transaction) *ValidatedTransaction {
	t.Helper()
	vtx, err := v.Validate(testBook, transaction)
	require.NoError(t, err)
	return vtx
}
