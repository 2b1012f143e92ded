package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Quantity is a signed, fractional-capable security position delta.
// Positive acquires, negative disposes; direction lives in the sign here,
// unlike Money where direction is carried by the movement.
type Quantity struct {
	value decimal.Decimal
}

// NewQuantity builds a quantity from a decimal value.
func NewQuantity(value decimal.Decimal) Quantity {
	return Quantity{value: value}
}

// ParseQuantity builds a quantity from its decimal string form, e.g. "10.5".
func ParseQuantity(s string) (Quantity, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Quantity{}, fmt.Errorf("%w: %q", errInvalidAmount, s)
	}
	return Quantity{value: d}, nil
}

// MustParseQuantity is ParseQuantity for static values; it panics on
// malformed input.
func MustParseQuantity(s string) Quantity {
	q, err := ParseQuantity(s)
	if err != nil {
		panic(err)
	}
	return q
}

func (q Quantity) Value() decimal.Decimal { return q.value }
func (q Quantity) IsZero() bool           { return q.value.IsZero() }
func (q Quantity) IsNegative() bool       { return q.value.IsNegative() }
func (q Quantity) IsPositive() bool       { return q.value.IsPositive() }
func (q Quantity) Equal(p Quantity) bool  { return q.value.Equal(p.value) }
func (q Quantity) String() string         { return q.value.String() }

// Add returns q + p.
func (q Quantity) Add(p Quantity) Quantity {
	return Quantity{value: q.value.Add(p.value)}
}

// FitsPrecision reports whether the quantity round-trips losslessly at the
// given number of decimal places.
func (q Quantity) FitsPrecision(precision int32) bool {
	return q.value.Truncate(precision).Equal(q.value)
}

// MarshalJSON encodes the quantity as a decimal string.
func (q Quantity) MarshalJSON() ([]byte, error) {
	return q.value.MarshalJSON()
}

// UnmarshalJSON implements json.Unmarshaler.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	return q.value.UnmarshalJSON(data)
}
