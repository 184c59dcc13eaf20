package enrich_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aashima-91/crypto-investment-platform-pipeline/dimensional"
	"github.com/Aashima-91/crypto-investment-platform-pipeline/enrich"
	"github.com/Aashima-91/crypto-investment-platform-pipeline/model"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

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

func hist(asset string, date dimensional.Date, close string) model.MarketHistory {
	c := dec(close)
	return model.MarketHistory{
		Asset:  asset,
		Date:   date,
		Open:   c,
		High:   c,
		Low:    c,
		Close:  c,
		Volume: dec("1000"),
	}
}

func zeroThreshold() decimal.Decimal { return decimal.Decimal{} }

// =============================================================================
// DAILY RETURNS
// =============================================================================

func TestAssetPricesDaily_ReturnSeries(t *testing.T) {
	// GIVEN: Closes 100 -> 110 -> 104.5 on consecutive days
	// THEN: Returns are null, +10.0000, -5.0000

	history := []model.MarketHistory{
		hist("btc", d(2023, 1, 1), "100"),
		hist("btc", d(2023, 1, 2), "110"),
		hist("btc", d(2023, 1, 3), "104.5"),
	}

	rows := enrich.AssetPricesDaily(history, zeroThreshold())
	require.Len(t, rows, 3)

	assert.False(t, rows[0].DailyReturnPct.Valid, "first day has no previous close")
	assert.False(t, rows[0].VolatilityFlag)

	require.True(t, rows[1].DailyReturnPct.Valid)
	assert.True(t, rows[1].DailyReturnPct.Decimal.Equal(dec("10")))
	assert.True(t, rows[1].VolatilityFlag, "10% exceeds the 5% threshold")

	require.True(t, rows[2].DailyReturnPct.Valid)
	assert.True(t, rows[2].DailyReturnPct.Decimal.Equal(dec("-5")))
	assert.False(t, rows[2].VolatilityFlag, "exactly -5% is not volatile (exclusive boundary)")
}

func TestAssetPricesDaily_VolatilityBoundaryExclusive(t *testing.T) {
	// 100 -> 105 is exactly 5%: not volatile. 100 -> 105.01 is.
	history := []model.MarketHistory{
		hist("btc", d(2023, 1, 1), "100"),
		hist("btc", d(2023, 1, 2), "105"),
		hist("eth", d(2023, 1, 1), "100"),
		hist("eth", d(2023, 1, 2), "105.01"),
	}

	rows := enrich.AssetPricesDaily(history, zeroThreshold())
	require.Len(t, rows, 4)

	// Sorted by asset: btc rows first.
	assert.False(t, rows[1].VolatilityFlag, "exactly 5.0000 is not flagged")
	assert.True(t, rows[3].VolatilityFlag, "5.0100 is flagged")
}

func TestAssetPricesDaily_ZeroPreviousClose_NullReturn(t *testing.T) {
	// A zero previous close would divide by zero. The return stays null
	// and the run keeps going.
	history := []model.MarketHistory{
		hist("btc", d(2023, 1, 1), "0"),
		hist("btc", d(2023, 1, 2), "100"),
	}

	rows := enrich.AssetPricesDaily(history, zeroThreshold())
	require.Len(t, rows, 2)
	require.True(t, rows[1].PreviousClose.Valid)
	assert.True(t, rows[1].PreviousClose.Decimal.IsZero())
	assert.False(t, rows[1].DailyReturnPct.Valid)
	assert.False(t, rows[1].VolatilityFlag)
}

func TestAssetPricesDaily_LagDoesNotCrossAssets(t *testing.T) {
	// The first row of each asset is null even when another asset's row
	// precedes it in the sorted stream.
	history := []model.MarketHistory{
		hist("btc", d(2023, 1, 1), "100"),
		hist("eth", d(2023, 1, 1), "2000"),
	}

	rows := enrich.AssetPricesDaily(history, zeroThreshold())
	require.Len(t, rows, 2)
	assert.False(t, rows[0].DailyReturnPct.Valid)
	assert.False(t, rows[1].DailyReturnPct.Valid)
}

func TestAssetPricesDaily_RoundedToFourPlaces(t *testing.T) {
	// (4 - 3) / 3 * 100 repeats forever; stored value is cut at 4 places.
	history := []model.MarketHistory{
		hist("btc", d(2023, 1, 1), "3"),
		hist("btc", d(2023, 1, 2), "4"),
	}

	rows := enrich.AssetPricesDaily(history, zeroThreshold())
	require.True(t, rows[1].DailyReturnPct.Valid)
	assert.Equal(t, "33.3333", rows[1].DailyReturnPct.Decimal.String())
}

func TestAssetPricesDaily_CustomThreshold(t *testing.T) {
	history := []model.MarketHistory{
		hist("btc", d(2023, 1, 1), "100"),
		hist("btc", d(2023, 1, 2), "102"),
	}

	rows := enrich.AssetPricesDaily(history, dec("1.5"))
	assert.True(t, rows[1].VolatilityFlag, "2% exceeds a 1.5% threshold")
}

func TestAssetPricesDaily_DeterministicAcrossInputOrder(t *testing.T) {
	history := []model.MarketHistory{
		hist("eth", d(2023, 1, 2), "2100"),
		hist("btc", d(2023, 1, 1), "100"),
		hist("eth", d(2023, 1, 1), "2000"),
		hist("btc", d(2023, 1, 2), "110"),
	}
	shuffled := []model.MarketHistory{history[3], history[2], history[0], history[1]}

	a := enrich.AssetPricesDaily(history, zeroThreshold())
	b := enrich.AssetPricesDaily(shuffled, zeroThreshold())
	assert.Equal(t, a, b)
}

// =============================================================================
// LATEST PRICES
// =============================================================================

func TestLatestPrices_MaxDatePerAsset(t *testing.T) {
	history := []model.MarketHistory{
		hist("btc", d(2023, 1, 1), "100"),
		hist("btc", d(2023, 1, 3), "120"),
		hist("btc", d(2023, 1, 2), "110"),
		hist("ETH", d(2023, 1, 1), "2000"),
	}

	latest := enrich.LatestPrices(history)
	require.Len(t, latest, 2)
	assert.True(t, latest["btc"].Equal(dec("120")))
	assert.True(t, latest["eth"].Equal(dec("2000")), "symbols are normalized to lower case")
}

func TestLatestPrices_TieOnDate_HighestClose(t *testing.T) {
	history := []model.MarketHistory{
		hist("btc", d(2023, 1, 3), "118"),
		hist("btc", d(2023, 1, 3), "121"),
		hist("btc", d(2023, 1, 3), "120"),
	}

	latest := enrich.LatestPrices(history)
	assert.True(t, latest["btc"].Equal(dec("121")))
}

func TestLatestPrices_EmptyHistory(t *testing.T) {
	latest := enrich.LatestPrices(nil)
	assert.Empty(t, latest)
}
