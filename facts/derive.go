/*
Package facts implements the fact derivation engine.

PURPOSE:
  Joins enriched business relations against the CURRENT version of each
  dimension (is_current=true) and the calendar dimension, producing fact
  relations that reference surrogate keys only - never natural keys.

JOIN POLICY:
  Inner-join semantics: a row whose natural key has no current dimension
  match, or whose date is outside the calendar range, is silently dropped.
  Referential gaps produce missing facts, not errors - but every drop is
  counted per fact table and per cause so callers can monitor data quality.

REBUILD SEMANTICS:
  Facts are rebuilt wholesale per run; there is no incremental append.
  Output ordering is fixed by the enrichment stage's stable sort plus the
  derivation order here, so rerunning with unchanged inputs yields a
  byte-identical relation.

OWNERSHIP:
  This engine is read-only with respect to dimensions and the sole writer
  of fact relations (via Store.Replace*).

SEE ALSO:
  - dimensional/reconcile.go: Maintains the dimensions joined here
  - store.go: Wholesale-replace persistence contract
*/
package facts

import (
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/Aashima-91/crypto-investment-platform-pipeline/dimensional"
	"github.com/Aashima-91/crypto-investment-platform-pipeline/model"
)

// Dimension names as stored in the warehouse.
const (
	DimCustomer = "dim_customer"
	DimAsset    = "dim_asset"
)

// JoinStats counts the fate of every input row of one fact derivation.
type JoinStats struct {
	Input             int `json:"input"`
	Emitted           int `json:"emitted"`
	DroppedNoCustomer int `json:"dropped_no_customer"`
	DroppedNoAsset    int `json:"dropped_no_asset"`
	DroppedNoDate     int `json:"dropped_no_date"`
}

// Dropped is the total number of rows lost to referential gaps.
func (s JoinStats) Dropped() int {
	return s.DroppedNoCustomer + s.DroppedNoAsset + s.DroppedNoDate
}

// Stats aggregates the join statistics of one full derivation run.
type Stats struct {
	PortfolioValue JoinStats `json:"fact_portfolio_value"`
	Transactions   JoinStats `json:"fact_transactions"`
	MarketPrices   JoinStats `json:"fact_market_prices"`
}

// Inputs is everything the derivation joins: enriched relations plus the
// current dimension rows and the calendar.
type Inputs struct {
	Enriched  model.EnrichedRelations
	Customers map[dimensional.NaturalKey]dimensional.Row
	Assets    map[dimensional.NaturalKey]dimensional.Row
	Calendar  map[string]int64
	RunDate   dimensional.Date
}

// Output is the full fact layer of one run.
type Output struct {
	PortfolioValues []model.FactPortfolioValue
	Transactions    []model.FactTransaction
	MarketPrices    []model.FactMarketPrice
	Stats           Stats
}

// Derive builds all three fact relations.
func Derive(in Inputs) Output {
	var out Output
	out.PortfolioValues, out.Stats.PortfolioValue = derivePortfolioValues(in)
	out.Transactions, out.Stats.Transactions = deriveTransactions(in)
	out.MarketPrices, out.Stats.MarketPrices = deriveMarketPrices(in)
	return out
}

// derivePortfolioValues values every position as of the run date. All rows
// carry the run date's calendar key; a run date outside the calendar range
// drops every row (and the counter shows it).
func derivePortfolioValues(in Inputs) ([]model.FactPortfolioValue, JoinStats) {
	stats := JoinStats{Input: len(in.Enriched.Positions)}
	rows := make([]model.FactPortfolioValue, 0, len(in.Enriched.Positions))

	dateSK, dateOK := in.Calendar[in.RunDate.String()]
	for _, pos := range in.Enriched.Positions {
		customer, ok := in.Customers[customerKey(pos.CustomerID)]
		if !ok {
			stats.DroppedNoCustomer++
			continue
		}
		asset, ok := in.Assets[dimensional.NormalizeKey(pos.Asset)]
		if !ok {
			stats.DroppedNoAsset++
			continue
		}
		if !dateOK {
			stats.DroppedNoDate++
			continue
		}

		var value decimal.NullDecimal
		if pos.LatestClosePrice.Valid {
			value = decimal.NullDecimal{
				Decimal: pos.Quantity.Mul(pos.LatestClosePrice.Decimal),
				Valid:   true,
			}
		}
		rows = append(rows, model.FactPortfolioValue{
			CustomerSK:       customer.SK,
			AssetSK:          asset.SK,
			DateSK:           dateSK,
			Quantity:         pos.Quantity,
			PriceUSD:         pos.LatestClosePrice,
			PositionValueUSD: value,
		})
		stats.Emitted++
	}
	return rows, stats
}

func deriveTransactions(in Inputs) ([]model.FactTransaction, JoinStats) {
	stats := JoinStats{Input: len(in.Enriched.Transactions)}
	rows := make([]model.FactTransaction, 0, len(in.Enriched.Transactions))

	for _, t := range in.Enriched.Transactions {
		customer, ok := in.Customers[customerKey(t.CustomerID)]
		if !ok {
			stats.DroppedNoCustomer++
			continue
		}
		asset, ok := in.Assets[dimensional.NormalizeKey(t.Asset)]
		if !ok {
			stats.DroppedNoAsset++
			continue
		}
		dateSK, ok := in.Calendar[t.TransactionDate.String()]
		if !ok {
			stats.DroppedNoDate++
			continue
		}

		rows = append(rows, model.FactTransaction{
			CustomerSK:      customer.SK,
			AssetSK:         asset.SK,
			DateSK:          dateSK,
			TransactionID:   t.TransactionID,
			TransactionType: t.TransactionType,
			Quantity:        t.Quantity,
			PriceUSD:        t.PriceUSD,
			AmountUSD:       t.AmountUSD,
		})
		stats.Emitted++
	}
	return rows, stats
}

func deriveMarketPrices(in Inputs) ([]model.FactMarketPrice, JoinStats) {
	stats := JoinStats{Input: len(in.Enriched.AssetPricesDaily)}
	rows := make([]model.FactMarketPrice, 0, len(in.Enriched.AssetPricesDaily))

	for _, p := range in.Enriched.AssetPricesDaily {
		asset, ok := in.Assets[dimensional.NormalizeKey(p.Asset)]
		if !ok {
			stats.DroppedNoAsset++
			continue
		}
		dateSK, ok := in.Calendar[p.Date.String()]
		if !ok {
			stats.DroppedNoDate++
			continue
		}

		rows = append(rows, model.FactMarketPrice{
			AssetSK:        asset.SK,
			DateSK:         dateSK,
			Open:           p.Open,
			High:           p.High,
			Low:            p.Low,
			Close:          p.Close,
			Volume:         p.Volume,
			DailyReturnPct: p.DailyReturnPct,
			VolatilityFlag: p.VolatilityFlag,
		})
		stats.Emitted++
	}
	return rows, stats
}

// customerKey renders a customer id as a dimension natural key.
func customerKey(id int) dimensional.NaturalKey {
	return dimensional.NaturalKey(strconv.Itoa(id))
}

// CustomerKey is the exported form used when building dimension sources.
func CustomerKey(id int) dimensional.NaturalKey { return customerKey(id) }
