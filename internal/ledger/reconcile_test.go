package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvasha/bookkeeper/pkg/money"
)

func kinds(found []Inconsistency) []InconsistencyKind {
	var out []InconsistencyKind
	for _, i := range found {
		out = append(out, i.Kind)
	}
	return out
}

func TestChecker_CleanBook(t *testing.T) {
	registry := newTestRegistry(t)
	v := NewValidator(registry, registry)
	log := NewLog(testBook)
	for _, vtx := range buildSampleLog(t, v) {
		log.Append(vtx)
	}
	b, err := NewEngine().Recompute(log)
	require.NoError(t, err)

	found := NewChecker(registry, registry).Check(testBook, b)
	assert.Empty(t, found)
}

func TestChecker_OrphanedReferences(t *testing.T) {
	registry := newTestRegistry(t)
	v := NewValidator(registry, registry)
	log := NewLog(testBook)
	for _, vtx := range buildSampleLog(t, v) {
		log.Append(vtx)
	}
	b, err := NewEngine().Recompute(log)
	require.NoError(t, err)

	// The entity catalog moved on after the snapshot was built.
	registry.RemoveAccount(testBook, "acc-usd")
	registry.RemoveAccount(testBook, "acc-broker")
	registry.RemoveBucket(testBook, "groceries")

	found := NewChecker(registry, registry).Check(testBook, b)
	refs := make(map[string]bool)
	for _, i := range found {
		require.Equal(t, InconsistencyOrphan, i.Kind)
		refs[i.Ref] = true
	}
	// acc-broker is reported twice: account balance and position.
	assert.True(t, refs["acc-usd"])
	assert.True(t, refs["acc-broker"])
	assert.True(t, refs["groceries"])
	assert.Len(t, found, 4)
}

func TestChecker_FloatingDrift(t *testing.T) {
	registry := newTestRegistry(t)
	v := NewValidator(registry, registry)
	log := NewLog(testBook)
	log.Append(mustValidate(t, v, tx("t1", day(1), 0,
		Transfer{From: "acc-usd", To: "acc-main", FromAmount: usd("100.00"), ToAmount: aud("150.00")})))
	b, err := NewEngine().Recompute(log)
	require.NoError(t, err)

	// Corrupt the float without touching the conversion record.
	f := b.Floating[CurrencyID("USD")]
	bumped, err := f.TotalOut.Add(usd("1.00"))
	require.NoError(t, err)
	f.TotalOut = bumped
	b.Floating[CurrencyID("USD")] = f

	found := NewChecker(registry, registry).Check(testBook, b)
	require.NotEmpty(t, found)
	assert.Contains(t, kinds(found), InconsistencyFloatingDrift)
}

func TestChecker_ConservationBreak(t *testing.T) {
	registry := newTestRegistry(t)
	v := NewValidator(registry, registry)
	log := NewLog(testBook)
	log.Append(mustValidate(t, v, tx("t1", day(1), 0,
		Income{From: "salary", To: "acc-main", Amount: aud("1000.00")})))
	b, err := NewEngine().Recompute(log)
	require.NoError(t, err)

	// Inflate an account total so the AUD nets no longer cancel.
	acc := b.Accounts["acc-main"]
	bumped, err := acc.TotalIn.Add(aud("0.01"))
	require.NoError(t, err)
	acc.TotalIn = bumped
	b.Accounts["acc-main"] = acc

	found := NewChecker(registry, registry).Check(testBook, b)
	require.NotEmpty(t, found)
	assert.Contains(t, kinds(found), InconsistencyConservation)
}

func TestChecker_PrecisionViolation(t *testing.T) {
	registry := newTestRegistry(t)

	b := NewBalances()
	b.Accounts["acc-main"] = Balance{
		TotalIn:  money.MustParse("10.005", "AUD"),
		TotalOut: money.MustParse("10.005", "AUD"),
	}

	found := NewChecker(registry, registry).Check(testBook, b)
	require.NotEmpty(t, found)
	assert.Contains(t, kinds(found), InconsistencyPrecision)
}

func TestChecker_NegativeTotalReported(t *testing.T) {
	registry := newTestRegistry(t)

	b := NewBalances()
	b.Accounts["acc-main"] = Balance{
		TotalIn:  money.MustParse("-5.00", "AUD"),
		TotalOut: money.MustParse("5.00", "AUD"),
	}

	found := NewChecker(registry, registry).Check(testBook, b)
	var hit bool
	for _, i := range found {
		if i.Kind == InconsistencyPrecision && i.Ref == "acc-main" {
			hit = true
		}
	}
	assert.True(t, hit, "negative accumulated totals must be flagged")
}

func TestChecker_BrokeragePrecisionOverride(t *testing.T) {
	registry := newTestRegistry(t)
	v := NewValidator(registry, registry)
	log := NewLog(testBook)

	// Four decimal places are fine for the brokerage account even though the
	// AUD default is two.
	log.Append(mustValidate(t, v, tx("t1", day(1), 0,
		Security{SettlementAccount: "acc-broker", Ticker: "VAS", Quantity: money.MustParseQuantity("1"), Amount: aud("10.0001")})))
	b, err := NewEngine().Recompute(log)
	require.NoError(t, err)

	found := NewChecker(registry, registry).Check(testBook, b)
	assert.Empty(t, found)
}
