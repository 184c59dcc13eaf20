package model

import (
	"github.com/shopspring/decimal"

	"github.com/Aashima-91/crypto-investment-platform-pipeline/dimensional"
)

// =============================================================================
// ENRICHED RELATIONS - Pure per-run derivations, no cross-version state
// =============================================================================

// AssetPriceDaily is one daily OHLCV row enriched with the previous close,
// the daily return and the volatility flag.
//
// The first date for an asset has no previous close: PreviousClose and
// DailyReturnPct are null and VolatilityFlag is false. A previous close of
// zero also yields a null return (never a division crash).
type AssetPriceDaily struct {
	Asset          string
	Date           dimensional.Date
	Open           decimal.Decimal
	High           decimal.Decimal
	Low            decimal.Decimal
	Close          decimal.Decimal
	Volume         decimal.Decimal
	PreviousClose  decimal.NullDecimal
	DailyReturnPct decimal.NullDecimal
	VolatilityFlag bool
}

// CustomerPosition is a customer's holding valued at the asset's latest
// close. Assets with no price history keep null price and value (the
// position still exists; its valuation is unknown).
type CustomerPosition struct {
	CustomerID       int
	Asset            string
	Quantity         decimal.Decimal
	LatestClosePrice decimal.NullDecimal
	PositionValueUSD decimal.NullDecimal
}

// EnrichedTransaction adds the transaction amount and the normalized type.
type EnrichedTransaction struct {
	TransactionID   string
	CustomerID      int
	Asset           string
	TransactionType string
	Quantity        decimal.Decimal
	PriceUSD        decimal.Decimal
	AmountUSD       decimal.Decimal
	TransactionDate dimensional.Date
}

// EnrichedRelations bundles the enrichment stage's output for one run.
type EnrichedRelations struct {
	AssetPricesDaily []AssetPriceDaily
	Positions        []CustomerPosition
	Transactions     []EnrichedTransaction
}
