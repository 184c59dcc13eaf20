package model

import (
	"github.com/shopspring/decimal"

	"github.com/Aashima-91/crypto-investment-platform-pipeline/dimensional"
)

// =============================================================================
// FACT RELATIONS - Reference dimensions by surrogate key only
// =============================================================================
// Facts are rebuilt wholesale per run: a pure, recomputable projection of
// current dimension state plus enriched business data. They carry no
// independent lifecycle and never reference natural keys.

// FactPortfolioValue is one customer/asset position valued as of the run
// date. DateSK is the run date's calendar key.
type FactPortfolioValue struct {
	CustomerSK       dimensional.SurrogateKey
	AssetSK          dimensional.SurrogateKey
	DateSK           int64
	Quantity         decimal.Decimal
	PriceUSD         decimal.NullDecimal
	PositionValueUSD decimal.NullDecimal
}

// FactTransaction is one enriched transaction keyed to dimensions.
type FactTransaction struct {
	CustomerSK      dimensional.SurrogateKey
	AssetSK         dimensional.SurrogateKey
	DateSK          int64
	TransactionID   string
	TransactionType string
	Quantity        decimal.Decimal
	PriceUSD        decimal.Decimal
	AmountUSD       decimal.Decimal
}

// FactMarketPrice is one daily market observation keyed to dimensions.
type FactMarketPrice struct {
	AssetSK        dimensional.SurrogateKey
	DateSK         int64
	Open           decimal.Decimal
	High           decimal.Decimal
	Low            decimal.Decimal
	Close          decimal.Decimal
	Volume         decimal.Decimal
	DailyReturnPct decimal.NullDecimal
	VolatilityFlag bool
}
