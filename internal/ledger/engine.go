package ledger

import (
	"errors"
	"fmt"

	"github.com/kvasha/bookkeeper/pkg/money"
)

// Engine folds a log into a Balances snapshot. The fold is pure: it reads
// only the amounts carried by the transactions themselves, so it never fails
// on validated input except for arithmetic overflow. Snapshots are built
// copy-then-swap; an abandoned recompute leaves no side effects.
type Engine struct{}

// NewEngine creates a balance engine.
func NewEngine() *Engine { return &Engine{} }

// Recompute folds the whole log from zero. Details are processed in their
// declared sequence and transactions in log order, so the intermediate state
// trace is deterministic for replay, even though the final totals are
// order-independent.
func (e *Engine) Recompute(log *Log) (*Balances, error) {
	b := NewBalances()
	for seq, tx := range log.All() {
		if err := e.apply(b, tx); err != nil {
			return nil, err
		}
		if seq > b.Version {
			b.Version = seq
		}
	}
	return b, nil
}

// Update patches a previous snapshot with the log entries appended since its
// version. The result is identical to a full recompute over the whole log.
// The previous snapshot is never mutated.
func (e *Engine) Update(prev *Balances, log *Log) (*Balances, error) {
	if prev == nil {
		return e.Recompute(log)
	}
	if prev.Version > log.SnapshotVersion() {
		return nil, fmt.Errorf("%w: snapshot at %d, log at %d",
			ErrStaleSnapshot, prev.Version, log.SnapshotVersion())
	}
	next := prev.Clone()
	for seq, tx := range log.Since(prev.Version) {
		if err := e.apply(next, tx); err != nil {
			return nil, err
		}
		if seq > next.Version {
			next.Version = seq
		}
	}
	return next, nil
}

func (e *Engine) apply(b *Balances, tx *Transaction) error {
	for i, d := range tx.Details {
		var err error
		switch det := d.(type) {
		case Transfer:
			err = e.applyTransfer(b, det)
		case Income:
			err = e.applyIncome(b, det)
		case Expense:
			err = e.applyExpense(b, det)
		case Security:
			err = e.applySecurity(b, det)
		default:
			err = fmt.Errorf("unsupported detail kind %q", d.Kind())
		}
		if err != nil {
			if errors.Is(err, money.ErrOverflow) {
				return fmt.Errorf("%w: transaction %s detail %d: %v",
					ErrArithmeticOverflow, tx.ID, i, err)
			}
			return fmt.Errorf("transaction %s detail %d: %w", tx.ID, i, err)
		}
	}
	return nil
}

func (e *Engine) applyTransfer(b *Balances, t Transfer) error {
	if err := e.accountOut(b, t.From, t.FromAmount); err != nil {
		return err
	}
	if err := e.accountIn(b, t.To, t.ToAmount); err != nil {
		return err
	}
	if t.FromAmount.Currency() == t.ToAmount.Currency() {
		return nil
	}
	// Cross-currency transfer: record the converted-away value per currency
	// so each currency's book still balances without a conversion rate.
	if err := e.floatingOut(b, t.FromAmount); err != nil {
		return err
	}
	return e.floatingIn(b, t.ToAmount)
}

func (e *Engine) applyIncome(b *Balances, in Income) error {
	if err := e.bucketOut(b, in.From, in.Amount); err != nil {
		return err
	}
	return e.accountIn(b, in.To, in.Amount)
}

func (e *Engine) applyExpense(b *Balances, ex Expense) error {
	if err := e.accountOut(b, ex.From, ex.Amount); err != nil {
		return err
	}
	return e.bucketIn(b, ex.To, ex.Amount)
}

func (e *Engine) applySecurity(b *Balances, s Security) error {
	// Cash leg: cost leaves on a buy, proceeds enter on a sell. The same
	// amount moves into or out of the holdings balance so the currency's
	// book stays closed.
	cur := CurrencyID(s.Amount.Currency())
	if s.Quantity.IsPositive() {
		if err := e.accountOut(b, s.SettlementAccount, s.Amount); err != nil {
			return err
		}
		held, err := b.Holdings[cur].addIn(s.Amount)
		if err != nil {
			return err
		}
		b.Holdings[cur] = held
	} else {
		if err := e.accountIn(b, s.SettlementAccount, s.Amount); err != nil {
			return err
		}
		held, err := b.Holdings[cur].addOut(s.Amount)
		if err != nil {
			return err
		}
		b.Holdings[cur] = held
	}

	// Position leg, independent of the cash balances.
	byTicker := b.Positions[s.SettlementAccount]
	if byTicker == nil {
		byTicker = make(map[TickerSymbol]money.Quantity)
		b.Positions[s.SettlementAccount] = byTicker
	}
	byTicker[s.Ticker] = byTicker[s.Ticker].Add(s.Quantity)
	return nil
}

func (e *Engine) accountIn(b *Balances, id AccountID, m money.Money) error {
	next, err := b.Accounts[id].addIn(m)
	if err != nil {
		return err
	}
	b.Accounts[id] = next
	return nil
}

func (e *Engine) accountOut(b *Balances, id AccountID, m money.Money) error {
	next, err := b.Accounts[id].addOut(m)
	if err != nil {
		return err
	}
	b.Accounts[id] = next
	return nil
}

func (e *Engine) bucketIn(b *Balances, id BucketID, m money.Money) error {
	byCur := b.Buckets[id]
	if byCur == nil {
		byCur = make(map[CurrencyID]Balance)
		b.Buckets[id] = byCur
	}
	cur := CurrencyID(m.Currency())
	next, err := byCur[cur].addIn(m)
	if err != nil {
		return err
	}
	byCur[cur] = next
	return nil
}

func (e *Engine) bucketOut(b *Balances, id BucketID, m money.Money) error {
	byCur := b.Buckets[id]
	if byCur == nil {
		byCur = make(map[CurrencyID]Balance)
		b.Buckets[id] = byCur
	}
	cur := CurrencyID(m.Currency())
	next, err := byCur[cur].addOut(m)
	if err != nil {
		return err
	}
	byCur[cur] = next
	return nil
}

func (e *Engine) floatingIn(b *Balances, m money.Money) error {
	cur := CurrencyID(m.Currency())
	next, err := b.Floating[cur].addIn(m)
	if err != nil {
		return err
	}
	b.Floating[cur] = next

	conv, err := b.Conversions[cur].addIn(m)
	if err != nil {
		return err
	}
	b.Conversions[cur] = conv
	return nil
}

func (e *Engine) floatingOut(b *Balances, m money.Money) error {
	cur := CurrencyID(m.Currency())
	next, err := b.Floating[cur].addOut(m)
	if err != nil {
		return err
	}
	b.Floating[cur] = next

	conv, err := b.Conversions[cur].addOut(m)
	if err != nil {
		return err
	}
	b.Conversions[cur] = conv
	return nil
}
