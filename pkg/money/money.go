// Package money provides a currency-tagged exact decimal amount and a signed
// quantity for fractional security positions. All arithmetic is integer
// arithmetic on a scaled coefficient; floating point never enters the ledger.
package money

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrCurrencyMismatch is returned when two amounts of different
	// currencies are combined.
	ErrCurrencyMismatch = errors.New("currency mismatch")

	// ErrPrecisionLoss is returned when rounding would discard non-zero
	// digits. Amounts are never silently truncated.
	ErrPrecisionLoss = errors.New("precision loss")

	// ErrOverflow is returned when an amount exceeds the representable
	// decimal range.
	ErrOverflow = errors.New("amount overflow")

	errInvalidAmount = errors.New("invalid amount")
)

// maxDigits bounds the coefficient to the widest fixed decimal the backing
// stores accept (NUMERIC(38)). The coefficient itself is arbitrary precision,
// so the range check is explicit.
const maxDigits = 38

// Money is an immutable amount tagged with a currency. The zero value is a
// currency-less zero that combines weakly with any currency, so map
// accumulation can start from Money{}.
type Money struct {
	amount   decimal.Decimal
	currency string
}

// New builds an amount from a decimal value and currency code.
func New(amount decimal.Decimal, currency string) Money {
	return Money{amount: amount, currency: currency}
}

// Zero returns the zero amount in the given currency.
func Zero(currency string) Money {
	return Money{currency: currency}
}

// Parse builds an amount from its decimal string form, e.g. ("1000.00", "AUD").
func Parse(amount, currency string) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", errInvalidAmount, amount)
	}
	m := Money{amount: d, currency: currency}
	if err := m.checkRange(); err != nil {
		return Money{}, err
	}
	return m, nil
}

// MustParse is Parse for static amounts; it panics on malformed input.
func MustParse(amount, currency string) Money {
	m, err := Parse(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Money) Currency() string        { return m.currency }
func (m Money) Amount() decimal.Decimal { return m.amount }
func (m Money) IsZero() bool            { return m.amount.IsZero() }
func (m Money) IsNegative() bool        { return m.amount.IsNegative() }
func (m Money) IsPositive() bool        { return m.amount.IsPositive() }

// Neg returns the amount with its sign flipped.
func (m Money) Neg() Money { return Money{amount: m.amount.Neg(), currency: m.currency} }

// String renders the amount followed by its currency, e.g. "1000.00 AUD".
func (m Money) String() string {
	if m.currency == "" {
		return m.amount.String()
	}
	return m.amount.String() + " " + m.currency
}

// mergeCurrency resolves the result currency of a binary operation. A
// currency-less operand adopts the other side's currency; two distinct
// currencies never combine.
func mergeCurrency(a, b Money) (string, error) {
	if a.currency == "" {
		return b.currency, nil
	}
	if b.currency == "" || a.currency == b.currency {
		return a.currency, nil
	}
	return "", fmt.Errorf("%w: %s != %s", ErrCurrencyMismatch, a.currency, b.currency)
}

// Add returns m + n, failing on mismatched currencies or range overflow.
func (m Money) Add(n Money) (Money, error) {
	cur, err := mergeCurrency(m, n)
	if err != nil {
		return Money{}, err
	}
	out := Money{amount: m.amount.Add(n.amount), currency: cur}
	if err := out.checkRange(); err != nil {
		return Money{}, err
	}
	return out, nil
}

// Sub returns m - n, failing on mismatched currencies or range overflow.
func (m Money) Sub(n Money) (Money, error) {
	cur, err := mergeCurrency(m, n)
	if err != nil {
		return Money{}, err
	}
	out := Money{amount: m.amount.Sub(n.amount), currency: cur}
	if err := out.checkRange(); err != nil {
		return Money{}, err
	}
	return out, nil
}

// Cmp compares two amounts of the same currency: -1 if m < n, 0 if equal,
// +1 if m > n.
func (m Money) Cmp(n Money) (int, error) {
	if _, err := mergeCurrency(m, n); err != nil {
		return 0, err
	}
	return m.amount.Cmp(n.amount), nil
}

// Equal reports whether both the numeric value and the currency match.
// A currency-less zero equals the zero of any currency.
func (m Money) Equal(n Money) bool {
	if !m.amount.Equal(n.amount) {
		return false
	}
	return m.currency == n.currency || m.currency == "" || n.currency == ""
}

// RoundTo returns the amount at the given number of decimal places. If the
// amount carries non-zero digits beyond that precision the rounding is
// refused with ErrPrecisionLoss.
func (m Money) RoundTo(precision int32) (Money, error) {
	truncated := m.amount.Truncate(precision)
	if !truncated.Equal(m.amount) {
		return Money{}, fmt.Errorf("%w: %s at precision %d", ErrPrecisionLoss, m.String(), precision)
	}
	return Money{amount: truncated, currency: m.currency}, nil
}

// FitsPrecision reports whether the amount round-trips losslessly at the
// given number of decimal places.
func (m Money) FitsPrecision(precision int32) bool {
	_, err := m.RoundTo(precision)
	return err == nil
}

func (m Money) checkRange() error {
	if m.amount.NumDigits() > maxDigits {
		return fmt.Errorf("%w: %s exceeds %d digits", ErrOverflow, m.amount.String(), maxDigits)
	}
	return nil
}

type moneyJSON struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// MarshalJSON encodes the amount as {"amount":"1000.00","currency":"AUD"}.
// The amount travels as a string to survive JSON number parsing.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{Amount: m.amount, Currency: m.currency})
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Money) UnmarshalJSON(data []byte) error {
	var raw moneyJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.amount = raw.Amount
	m.currency = raw.Currency
	return m.checkRange()
}
