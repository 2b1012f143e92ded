package money

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	m, err := Parse("1000.00", "AUD")
	require.NoError(t, err)
	assert.Equal(t, "AUD", m.Currency())
	assert.True(t, m.Amount().Equal(decimal.RequireFromString("1000.00")))
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse("not-a-number", "AUD")
	require.Error(t, err)
}

func TestAdd_SameCurrency(t *testing.T) {
	a := MustParse("10.50", "AUD")
	b := MustParse("4.50", "AUD")

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.True(t, sum.Equal(MustParse("15.00", "AUD")))
}

func TestAdd_CurrencyMismatch(t *testing.T) {
	a := MustParse("10.00", "AUD")
	b := MustParse("10.00", "USD")

	_, err := a.Add(b)
	require.ErrorIs(t, err, ErrCurrencyMismatch)
}

func TestAdd_WeakZero(t *testing.T) {
	// Accumulation starts from the zero value of a map entry.
	var zero Money
	sum, err := zero.Add(MustParse("5.25", "USD"))
	require.NoError(t, err)
	assert.Equal(t, "USD", sum.Currency())
	assert.True(t, sum.Equal(MustParse("5.25", "USD")))
}

func TestSub(t *testing.T) {
	a := MustParse("10.00", "AUD")
	b := MustParse("4.25", "AUD")

	diff, err := a.Sub(b)
	require.NoError(t, err)
	assert.True(t, diff.Equal(MustParse("5.75", "AUD")))
}

func TestSub_Negative(t *testing.T) {
	a := MustParse("1.00", "AUD")
	b := MustParse("2.00", "AUD")

	diff, err := a.Sub(b)
	require.NoError(t, err)
	assert.True(t, diff.IsNegative())
}

func TestCmp(t *testing.T) {
	a := MustParse("1.00", "AUD")
	b := MustParse("2.00", "AUD")

	c, err := a.Cmp(b)
	require.NoError(t, err)
	assert.Equal(t, -1, c)

	_, err = a.Cmp(MustParse("1.00", "USD"))
	require.ErrorIs(t, err, ErrCurrencyMismatch)
}

func TestRoundTo_Lossless(t *testing.T) {
	m := MustParse("1000.00", "AUD")
	r, err := m.RoundTo(2)
	require.NoError(t, err)
	assert.True(t, r.Equal(m))
}

func TestRoundTo_PrecisionLoss(t *testing.T) {
	m := MustParse("10.005", "AUD")
	_, err := m.RoundTo(2)
	require.ErrorIs(t, err, ErrPrecisionLoss)
}

func TestRoundTo_TrailingZerosOK(t *testing.T) {
	// 1.500 at precision 2 discards only a zero digit.
	m := MustParse("1.500", "AUD")
	r, err := m.RoundTo(2)
	require.NoError(t, err)
	assert.True(t, r.Equal(MustParse("1.50", "AUD")))
}

func TestFitsPrecision(t *testing.T) {
	assert.True(t, MustParse("0.00000001", "BTC").FitsPrecision(8))
	assert.False(t, MustParse("0.000000015", "BTC").FitsPrecision(8))
}

func TestOverflowGuard(t *testing.T) {
	huge := strings.Repeat("9", 38)
	m, err := Parse(huge, "USD")
	require.NoError(t, err)

	_, err = m.Add(MustParse("1", "USD"))
	require.ErrorIs(t, err, ErrOverflow)
}

func TestParse_TooWide(t *testing.T) {
	_, err := Parse(strings.Repeat("9", 39), "USD")
	require.ErrorIs(t, err, ErrOverflow)
}

func TestJSONRoundTrip(t *testing.T) {
	m := MustParse("150.75", "AUD")
	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"150.75","currency":"AUD"}`, string(data))

	var back Money
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, back.Equal(m))
}

func TestQuantity_Signs(t *testing.T) {
	buy := MustParseQuantity("10.5")
	sell := MustParseQuantity("-4.5")

	assert.True(t, buy.IsPositive())
	assert.True(t, sell.IsNegative())
	assert.True(t, buy.Add(sell).Equal(MustParseQuantity("6")))
}

func TestQuantity_FitsPrecision(t *testing.T) {
	assert.True(t, MustParseQuantity("10.5").FitsPrecision(4))
	assert.False(t, MustParseQuantity("10.00001").FitsPrecision(4))
}
