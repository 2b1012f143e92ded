package ledger

import (
	"github.com/kvasha/bookkeeper/pkg/money"
)

// Balance is a monotonically accumulating in/out pair. The current balance
// is always computed on read, never stored, so the accumulation history
// stays auditable.
type Balance struct {
	TotalIn  money.Money `json:"total_in"`
	TotalOut money.Money `json:"total_out"`
}

// Current returns TotalIn - TotalOut.
func (b Balance) Current() (money.Money, error) {
	return b.TotalIn.Sub(b.TotalOut)
}

func (b Balance) addIn(m money.Money) (Balance, error) {
	in, err := b.TotalIn.Add(m)
	if err != nil {
		return Balance{}, err
	}
	return Balance{TotalIn: in, TotalOut: b.TotalOut}, nil
}

func (b Balance) addOut(m money.Money) (Balance, error) {
	out, err := b.TotalOut.Add(m)
	if err != nil {
		return Balance{}, err
	}
	return Balance{TotalIn: b.TotalIn, TotalOut: out}, nil
}

// Balances is a derived, recomputable snapshot of a book. It is rebuilt or
// patched wholesale by the engine and never hand-edited; the log remains the
// source of truth.
type Balances struct {
	// Version is the log snapshot version this snapshot reflects.
	Version uint64 `json:"version"`

	// Floating holds per-currency totals not attributed to any account: the
	// conservation check's slack. Non-zero entries are expected whenever
	// cross-currency transfers exist.
	Floating map[CurrencyID]Balance `json:"floating_balances"`

	// Buckets accumulates per bucket, per currency in/out totals.
	Buckets map[BucketID]map[CurrencyID]Balance `json:"bucket_balances"`

	// Accounts accumulates per account in/out totals in the account's own
	// currency.
	Accounts map[AccountID]Balance `json:"account_balances"`

	// Positions is the brokerage sub-ledger: signed security quantity per
	// (settlement account, ticker), independent of the cash balances.
	Positions map[AccountID]map[TickerSymbol]money.Quantity `json:"positions"`

	// Conversions records the cross-currency transfer deltas that produced
	// the floating balances. The reconciler compares the two maps instead of
	// demanding a zero float.
	Conversions map[CurrencyID]Balance `json:"conversion_deltas"`

	// Holdings records, per currency, the cash settled into (buys) and out of
	// (sells) security positions. The value itself lives in Positions; this
	// balance keeps the per-currency books closed over trades.
	Holdings map[CurrencyID]Balance `json:"holdings"`
}

// NewBalances returns an empty snapshot at version 0.
func NewBalances() *Balances {
	return &Balances{
		Floating:    make(map[CurrencyID]Balance),
		Buckets:     make(map[BucketID]map[CurrencyID]Balance),
		Accounts:    make(map[AccountID]Balance),
		Positions:   make(map[AccountID]map[TickerSymbol]money.Quantity),
		Conversions: make(map[CurrencyID]Balance),
		Holdings:    make(map[CurrencyID]Balance),
	}
}

// Clone deep-copies the snapshot so an incremental update can patch a copy
// and swap, leaving readers of the previous snapshot undisturbed.
func (b *Balances) Clone() *Balances {
	out := &Balances{
		Version:     b.Version,
		Floating:    make(map[CurrencyID]Balance, len(b.Floating)),
		Buckets:     make(map[BucketID]map[CurrencyID]Balance, len(b.Buckets)),
		Accounts:    make(map[AccountID]Balance, len(b.Accounts)),
		Positions:   make(map[AccountID]map[TickerSymbol]money.Quantity, len(b.Positions)),
		Conversions: make(map[CurrencyID]Balance, len(b.Conversions)),
		Holdings:    make(map[CurrencyID]Balance, len(b.Holdings)),
	}
	for k, v := range b.Floating {
		out.Floating[k] = v
	}
	for k, v := range b.Holdings {
		out.Holdings[k] = v
	}
	for k, v := range b.Accounts {
		out.Accounts[k] = v
	}
	for k, v := range b.Conversions {
		out.Conversions[k] = v
	}
	for bucket, byCur := range b.Buckets {
		m := make(map[CurrencyID]Balance, len(byCur))
		for k, v := range byCur {
			m[k] = v
		}
		out.Buckets[bucket] = m
	}
	for account, byTicker := range b.Positions {
		m := make(map[TickerSymbol]money.Quantity, len(byTicker))
		for k, v := range byTicker {
			m[k] = v
		}
		out.Positions[account] = m
	}
	return out
}

// Position returns the signed quantity held for a ticker in a settlement
// account.
func (b *Balances) Position(account AccountID, ticker TickerSymbol) money.Quantity {
	return b.Positions[account][ticker]
}
