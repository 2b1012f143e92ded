package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// InconsistencyKind classifies a reconciliation finding.
type InconsistencyKind string

const (
	// InconsistencyFloatingDrift means a floating balance no longer equals
	// the recorded conversion deltas. A non-zero float by itself is valid
	// whenever conversions exist; drift between the two maps is not.
	InconsistencyFloatingDrift InconsistencyKind = "floating_drift"

	// InconsistencyConservation means a currency's account, bucket and
	// holdings nets do not add up to its floating slack.
	InconsistencyConservation InconsistencyKind = "conservation_break"

	// InconsistencyOrphan means a balance entry references an entity that no
	// longer resolves.
	InconsistencyOrphan InconsistencyKind = "orphaned_reference"

	// InconsistencyPrecision means a balance total violates the owning
	// entity's precision, or carries a negative total.
	InconsistencyPrecision InconsistencyKind = "precision_violation"
)

// Inconsistency is a single reconciliation finding. Findings never block
// operation; callers decide severity.
type Inconsistency struct {
	Kind    InconsistencyKind `json:"kind"`
	Ref     string            `json:"ref"`
	Message string            `json:"message"`
}

func (i Inconsistency) String() string {
	return fmt.Sprintf("%s (%s): %s", i.Kind, i.Ref, i.Message)
}

// Checker verifies a Balances snapshot against the ledger invariants and
// returns every inconsistency found, not just the first.
type Checker struct {
	entities   EntityResolver
	currencies CurrencyResolver
}

// NewChecker creates a reconciliation checker over the given lookups.
func NewChecker(entities EntityResolver, currencies CurrencyResolver) *Checker {
	return &Checker{entities: entities, currencies: currencies}
}

// Check reconciles a snapshot. An empty result means the snapshot is
// consistent with the invariants.
func (c *Checker) Check(book BookID, b *Balances) []Inconsistency {
	var out []Inconsistency
	out = append(out, c.checkFloating(b)...)
	out = append(out, c.checkConservation(b)...)
	out = append(out, c.checkReferences(book, b)...)
	out = append(out, c.checkPrecision(book, b)...)
	return out
}

// checkFloating verifies floating magnitude equals the recorded conversion
// deltas, in both map directions.
func (c *Checker) checkFloating(b *Balances) []Inconsistency {
	var out []Inconsistency
	seen := make(map[CurrencyID]bool, len(b.Floating))
	for cur, f := range b.Floating {
		seen[cur] = true
		conv := b.Conversions[cur]
		if !f.TotalIn.Equal(conv.TotalIn) || !f.TotalOut.Equal(conv.TotalOut) {
			out = append(out, Inconsistency{
				Kind: InconsistencyFloatingDrift,
				Ref:  string(cur),
				Message: fmt.Sprintf("floating in=%s out=%s, conversion deltas in=%s out=%s",
					f.TotalIn, f.TotalOut, conv.TotalIn, conv.TotalOut),
			})
		}
	}
	for cur, conv := range b.Conversions {
		if seen[cur] || (conv.TotalIn.IsZero() && conv.TotalOut.IsZero()) {
			continue
		}
		out = append(out, Inconsistency{
			Kind:    InconsistencyFloatingDrift,
			Ref:     string(cur),
			Message: fmt.Sprintf("conversion deltas in=%s out=%s with no floating balance", conv.TotalIn, conv.TotalOut),
		})
	}
	return out
}

// checkConservation verifies, per currency, that account, bucket and
// holdings nets sum to the floating slack. With no cross-currency
// conversions the slack is zero and this is plain conservation.
func (c *Checker) checkConservation(b *Balances) []Inconsistency {
	nets := make(map[CurrencyID]decimal.Decimal)
	addNet := func(cur CurrencyID, bal Balance) {
		if cur == "" {
			return
		}
		net := bal.TotalIn.Amount().Sub(bal.TotalOut.Amount())
		nets[cur] = nets[cur].Add(net)
	}

	for _, bal := range b.Accounts {
		addNet(balanceCurrency(bal), bal)
	}
	for _, byCur := range b.Buckets {
		for cur, bal := range byCur {
			addNet(cur, bal)
		}
	}
	// Cash parked in security positions still belongs to its currency.
	for cur, bal := range b.Holdings {
		addNet(cur, bal)
	}

	var out []Inconsistency
	checked := make(map[CurrencyID]bool)
	for cur, f := range b.Floating {
		checked[cur] = true
		slack := f.TotalIn.Amount().Sub(f.TotalOut.Amount())
		if !nets[cur].Equal(slack) {
			out = append(out, Inconsistency{
				Kind:    InconsistencyConservation,
				Ref:     string(cur),
				Message: fmt.Sprintf("account and bucket nets sum to %s, floating slack is %s", nets[cur], slack),
			})
		}
	}
	for cur, net := range nets {
		if checked[cur] {
			continue
		}
		if !net.IsZero() {
			out = append(out, Inconsistency{
				Kind:    InconsistencyConservation,
				Ref:     string(cur),
				Message: fmt.Sprintf("account and bucket nets sum to %s with no floating slack", net),
			})
		}
	}
	return out
}

func (c *Checker) checkReferences(book BookID, b *Balances) []Inconsistency {
	var out []Inconsistency
	for id := range b.Accounts {
		if _, ok := c.entities.Account(book, id); !ok {
			out = append(out, Inconsistency{
				Kind:    InconsistencyOrphan,
				Ref:     string(id),
				Message: "account balance references an unknown account",
			})
		}
	}
	for id := range b.Buckets {
		if _, ok := c.entities.Bucket(book, id); !ok {
			out = append(out, Inconsistency{
				Kind:    InconsistencyOrphan,
				Ref:     string(id),
				Message: "bucket balance references an unknown bucket",
			})
		}
	}
	for id := range b.Positions {
		if _, ok := c.entities.Account(book, id); !ok {
			out = append(out, Inconsistency{
				Kind:    InconsistencyOrphan,
				Ref:     string(id),
				Message: "position references an unknown settlement account",
			})
		}
	}
	return out
}

func (c *Checker) checkPrecision(book BookID, b *Balances) []Inconsistency {
	var out []Inconsistency
	for id, bal := range b.Accounts {
		acc, ok := c.entities.Account(book, id)
		if !ok {
			continue // already reported as orphaned
		}
		def, ok := c.currencies.Precision(acc.Currency)
		if !ok {
			continue
		}
		p := acc.EffectivePrecision(def)
		if bal.TotalIn.IsNegative() || bal.TotalOut.IsNegative() {
			out = append(out, Inconsistency{
				Kind:    InconsistencyPrecision,
				Ref:     string(id),
				Message: fmt.Sprintf("negative accumulated total: in=%s out=%s", bal.TotalIn, bal.TotalOut),
			})
			continue
		}
		if !bal.TotalIn.FitsPrecision(p) || !bal.TotalOut.FitsPrecision(p) {
			out = append(out, Inconsistency{
				Kind:    InconsistencyPrecision,
				Ref:     string(id),
				Message: fmt.Sprintf("totals in=%s out=%s exceed precision %d", bal.TotalIn, bal.TotalOut, p),
			})
		}
	}
	for id, byCur := range b.Buckets {
		if _, ok := c.entities.Bucket(book, id); !ok {
			continue
		}
		for cur, bal := range byCur {
			p, ok := c.currencies.Precision(cur)
			if !ok {
				continue
			}
			if bal.TotalIn.IsNegative() || bal.TotalOut.IsNegative() {
				out = append(out, Inconsistency{
					Kind:    InconsistencyPrecision,
					Ref:     fmt.Sprintf("%s/%s", id, cur),
					Message: fmt.Sprintf("negative accumulated total: in=%s out=%s", bal.TotalIn, bal.TotalOut),
				})
				continue
			}
			if !bal.TotalIn.FitsPrecision(p) || !bal.TotalOut.FitsPrecision(p) {
				out = append(out, Inconsistency{
					Kind:    InconsistencyPrecision,
					Ref:     fmt.Sprintf("%s/%s", id, cur),
					Message: fmt.Sprintf("totals in=%s out=%s exceed precision %d", bal.TotalIn, bal.TotalOut, p),
				})
			}
		}
	}
	return out
}

// balanceCurrency extracts the currency a balance accumulates in. Either
// side may be a currency-less zero when nothing moved that way yet.
func balanceCurrency(b Balance) CurrencyID {
	if b.TotalIn.Currency() != "" {
		return CurrencyID(b.TotalIn.Currency())
	}
	return CurrencyID(b.TotalOut.Currency())
}
