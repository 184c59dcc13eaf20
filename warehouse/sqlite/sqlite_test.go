package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aashima-91/crypto-investment-platform-pipeline/dimensional"
	"github.com/Aashima-91/crypto-investment-platform-pipeline/model"
	"github.com/Aashima-91/crypto-investment-platform-pipeline/warehouse/sqlite"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func d(year, month, day int) dimensional.Date {
	return dimensional.NewDate(year, time.Month(month), day)
}

func dec(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func nd(s string) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: dec(s), Valid: true}
}

func insertOf(key string, attrs map[string]string, start dimensional.Date) dimensional.Delta {
	return dimensional.Delta{
		Dimension: "dim_customer",
		RunDate:   start,
		Inserts:   []dimensional.Insert{{Key: dimensional.NaturalKey(key), Attrs: attrs, EffectiveStart: start}},
	}
}

// =============================================================================
// DIMENSION APPLY / SNAPSHOT
// =============================================================================

func TestApplyDelta_InsertThenSnapshot(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	attrs := map[string]string{"customer_name": "Alice", "email": "a@x.com"}
	result, err := store.ApplyDelta(ctx, "dim_customer", insertOf("1", attrs, d(2023, 1, 1)))
	require.NoError(t, err)
	require.Len(t, result.Inserted, 1)
	assert.NotZero(t, result.Inserted[0].SK, "store issues the surrogate key")

	rows, err := store.Snapshot(ctx, "dim_customer")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, dimensional.NaturalKey("1"), rows[0].Key)
	assert.Equal(t, "Alice", rows[0].Attrs["customer_name"])
	assert.True(t, rows[0].IsCurrent)
	assert.True(t, rows[0].EffectiveEnd.IsInfinity())
}

func TestApplyDelta_CloseAndInsert_NewVersion(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	result, err := store.ApplyDelta(ctx, "dim_customer",
		insertOf("1", map[string]string{"email": "a@x.com"}, d(2023, 1, 1)))
	require.NoError(t, err)
	sk := result.Inserted[0].SK

	change := dimensional.Delta{
		Dimension: "dim_customer",
		RunDate:   d(2023, 6, 1),
		Closures:  []dimensional.Closure{{SK: sk, Key: "1", EffectiveEnd: d(2023, 6, 1)}},
		Inserts: []dimensional.Insert{
			{Key: "1", Attrs: map[string]string{"email": "b@x.com"}, EffectiveStart: d(2023, 6, 1)},
		},
	}
	applied, err := store.ApplyDelta(ctx, "dim_customer", change)
	require.NoError(t, err)
	assert.Equal(t, 1, applied.Closed)
	require.Len(t, applied.Inserted, 1)

	rows, err := store.Snapshot(ctx, "dim_customer")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.NoError(t, dimensional.Validate(rows))
}

func TestApplyDelta_StaleClosure_Conflict(t *testing.T) {
	// GIVEN: A row already closed by a faster writer
	// WHEN: Applying a delta that tries to close it again
	// THEN: ErrConcurrentModification, nothing else committed

	store := newTestStore(t)
	ctx := context.Background()

	result, err := store.ApplyDelta(ctx, "dim_customer",
		insertOf("1", map[string]string{"email": "a@x.com"}, d(2023, 1, 1)))
	require.NoError(t, err)
	sk := result.Inserted[0].SK

	closeIt := dimensional.Delta{
		Dimension: "dim_customer",
		RunDate:   d(2023, 6, 1),
		Closures:  []dimensional.Closure{{SK: sk, Key: "1", EffectiveEnd: d(2023, 6, 1)}},
	}
	_, err = store.ApplyDelta(ctx, "dim_customer", closeIt)
	require.NoError(t, err)

	// The same closure again is stale.
	stale := dimensional.Delta{
		Dimension: "dim_customer",
		RunDate:   d(2023, 7, 1),
		Closures:  []dimensional.Closure{{SK: sk, Key: "1", EffectiveEnd: d(2023, 7, 1)}},
		Inserts: []dimensional.Insert{
			{Key: "1", Attrs: map[string]string{"email": "c@x.com"}, EffectiveStart: d(2023, 7, 1)},
		},
	}
	_, err = store.ApplyDelta(ctx, "dim_customer", stale)
	assert.ErrorIs(t, err, dimensional.ErrConcurrentModification)

	// The insert half must have rolled back with the failed closure.
	rows, err := store.Snapshot(ctx, "dim_customer")
	require.NoError(t, err)
	assert.Len(t, rows, 1, "stale delta must not leave partial rows")
}

func TestApplyDelta_SecondCurrentRow_Conflict(t *testing.T) {
	// Two runs computed an insert for the same new key from the same stale
	// snapshot. The partial unique index rejects the second.

	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.ApplyDelta(ctx, "dim_asset",
		dimensional.Delta{Dimension: "dim_asset", RunDate: d(2023, 1, 1),
			Inserts: []dimensional.Insert{{Key: "btc", EffectiveStart: d(2023, 1, 1)}}})
	require.NoError(t, err)

	_, err = store.ApplyDelta(ctx, "dim_asset",
		dimensional.Delta{Dimension: "dim_asset", RunDate: d(2023, 1, 1),
			Inserts: []dimensional.Insert{{Key: "btc", EffectiveStart: d(2023, 1, 1)}}})
	assert.ErrorIs(t, err, dimensional.ErrConcurrentModification)
}

func TestApplyDelta_DimensionsAreIndependent(t *testing.T) {
	// The same natural key may be current in two different dimensions.
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.ApplyDelta(ctx, "dim_customer",
		insertOf("1", nil, d(2023, 1, 1)))
	require.NoError(t, err)

	_, err = store.ApplyDelta(ctx, "dim_asset",
		dimensional.Delta{Dimension: "dim_asset", RunDate: d(2023, 1, 1),
			Inserts: []dimensional.Insert{{Key: "1", EffectiveStart: d(2023, 1, 1)}}})
	require.NoError(t, err)

	customers, err := store.Snapshot(ctx, "dim_customer")
	require.NoError(t, err)
	assert.Len(t, customers, 1)

	assets, err := store.Snapshot(ctx, "dim_asset")
	require.NoError(t, err)
	assert.Len(t, assets, 1)
}

// =============================================================================
// CALENDAR
// =============================================================================

func TestCalendar_ReplaceAndRead(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rows, err := dimensional.BuildCalendar(d(2023, 1, 1), d(2023, 1, 31))
	require.NoError(t, err)
	require.NoError(t, store.ReplaceCalendar(ctx, rows))

	got, err := store.Calendar(ctx)
	require.NoError(t, err)
	assert.Equal(t, rows, got)

	// Replacing with a different range leaves no stale rows behind.
	shorter, err := dimensional.BuildCalendar(d(2023, 2, 1), d(2023, 2, 10))
	require.NoError(t, err)
	require.NoError(t, store.ReplaceCalendar(ctx, shorter))

	got, err = store.Calendar(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 10)
}

// =============================================================================
// FACT RELATIONS
// =============================================================================

func TestFactPortfolioValue_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	facts := []model.FactPortfolioValue{
		{CustomerSK: 1, AssetSK: 2, DateSK: 3, Quantity: dec("2.5"), PriceUSD: nd("30000"), PositionValueUSD: nd("75000")},
		{CustomerSK: 1, AssetSK: 4, DateSK: 3, Quantity: dec("10")}, // null valuation
	}
	require.NoError(t, store.ReplacePortfolioValues(ctx, facts))

	got, err := store.PortfolioValues(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].PositionValueUSD.Valid)
	assert.True(t, got[0].PositionValueUSD.Decimal.Equal(dec("75000")))
	assert.False(t, got[1].PriceUSD.Valid, "null decimals survive the round trip")
}

func TestFactMarketPrices_ReplaceIsWholesale(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := []model.FactMarketPrice{
		{AssetSK: 1, DateSK: 1, Open: dec("1"), High: dec("1"), Low: dec("1"), Close: dec("1"), Volume: dec("1")},
		{AssetSK: 1, DateSK: 2, Open: dec("2"), High: dec("2"), Low: dec("2"), Close: dec("2"), Volume: dec("2"), DailyReturnPct: nd("100"), VolatilityFlag: true},
	}
	require.NoError(t, store.ReplaceMarketPrices(ctx, first))

	second := first[:1]
	require.NoError(t, store.ReplaceMarketPrices(ctx, second))

	got, err := store.MarketPrices(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1, "replace removes rows absent from the new relation")
}

func TestFactTransactions_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	facts := []model.FactTransaction{
		{CustomerSK: 1, AssetSK: 2, DateSK: 3, TransactionID: "t-1", TransactionType: "buy",
			Quantity: dec("0.5"), PriceUSD: dec("30000"), AmountUSD: dec("15000")},
	}
	require.NoError(t, store.ReplaceTransactions(ctx, facts))

	got, err := store.FactTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "t-1", got[0].TransactionID)
	assert.True(t, got[0].AmountUSD.Equal(dec("15000")))
}
