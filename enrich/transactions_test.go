package enrich_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aashima-91/crypto-investment-platform-pipeline/enrich"
	"github.com/Aashima-91/crypto-investment-platform-pipeline/model"
)

func TestEnrichTransactions_AmountAndType(t *testing.T) {
	txs := []model.Transaction{
		{
			TransactionID: "t-1",
			CustomerID:    1,
			Asset:         "btc",
			Type:          "BUY",
			Quantity:      dec("0.5"),
			Price:         dec("30000"),
			Date:          d(2023, 3, 1),
		},
	}

	out := enrich.EnrichTransactions(txs)
	require.Len(t, out, 1)
	assert.Equal(t, enrich.TxBuy, out[0].TransactionType)
	assert.True(t, out[0].AmountUSD.Equal(dec("15000")))
}

func TestEnrichTransactions_UnknownTypePassesThroughFolded(t *testing.T) {
	// Unknown types are business data, not structure. They survive the run.
	txs := []model.Transaction{
		{TransactionID: "t-1", CustomerID: 1, Asset: "btc", Type: " Airdrop ", Quantity: dec("1"), Price: dec("1")},
	}

	out := enrich.EnrichTransactions(txs)
	assert.Equal(t, "airdrop", out[0].TransactionType)
}

func TestEnrichTransactions_StableOrder(t *testing.T) {
	txs := []model.Transaction{
		{TransactionID: "t-2", CustomerID: 1, Quantity: dec("1"), Price: dec("1")},
		{TransactionID: "t-1", CustomerID: 2, Quantity: dec("1"), Price: dec("1")},
		{TransactionID: "t-1", CustomerID: 1, Quantity: dec("1"), Price: dec("1")},
	}

	out := enrich.EnrichTransactions(txs)
	require.Len(t, out, 3)
	assert.Equal(t, "t-1", out[0].TransactionID)
	assert.Equal(t, 1, out[0].CustomerID)
	assert.Equal(t, "t-1", out[1].TransactionID)
	assert.Equal(t, 2, out[1].CustomerID)
	assert.Equal(t, "t-2", out[2].TransactionID)
}

func TestPositions_ValuedAtLatestClose(t *testing.T) {
	portfolios := []model.PortfolioPosition{
		{CustomerID: 1, Asset: "BTC", Quantity: dec("2")},
	}
	latest := map[string]decimal.Decimal{"btc": dec("30000")}

	out := enrich.Positions(portfolios, latest)
	require.Len(t, out, 1)
	require.True(t, out[0].PositionValueUSD.Valid)
	assert.True(t, out[0].PositionValueUSD.Decimal.Equal(dec("60000")))
	assert.True(t, out[0].LatestClosePrice.Decimal.Equal(dec("30000")))
}

func TestPositions_NoPriceHistory_NullValuation(t *testing.T) {
	// Left-join semantics: the holding survives with a null valuation.
	portfolios := []model.PortfolioPosition{
		{CustomerID: 1, Asset: "doge", Quantity: dec("1000")},
	}

	out := enrich.Positions(portfolios, map[string]decimal.Decimal{"btc": dec("30000")})
	require.Len(t, out, 1)
	assert.False(t, out[0].LatestClosePrice.Valid)
	assert.False(t, out[0].PositionValueUSD.Valid)
	assert.True(t, out[0].Quantity.Equal(dec("1000")), "quantity is kept even without a price")
}

func TestEnrich_FullStage(t *testing.T) {
	clean := model.CleanRelations{
		MarketHistory: []model.MarketHistory{
			hist("btc", d(2023, 1, 1), "100"),
			hist("btc", d(2023, 1, 2), "110"),
		},
		Portfolios: []model.PortfolioPosition{
			{CustomerID: 1, Asset: "btc", Quantity: dec("3")},
		},
		Transactions: []model.Transaction{
			{TransactionID: "t-1", CustomerID: 1, Asset: "btc", Type: "sell", Quantity: dec("1"), Price: dec("110"), Date: d(2023, 1, 2)},
		},
	}

	out := enrich.Enrich(clean, decimal.Decimal{})

	require.Len(t, out.AssetPricesDaily, 2)
	require.Len(t, out.Positions, 1)
	require.Len(t, out.Transactions, 1)

	// Position valued at the latest close (110), not the first (100).
	assert.True(t, out.Positions[0].PositionValueUSD.Decimal.Equal(dec("330")))
	assert.Equal(t, enrich.TxSell, out.Transactions[0].TransactionType)
}
