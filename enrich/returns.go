/*
Package enrich implements the business enrichment stage: pure per-run
derivations over clean relations. No cross-version state, no history; the
same input always produces the same output.

returns.go - Daily returns, volatility flags, latest price per asset

PURPOSE:
  Reimplements the window-function lookups of the analytics layer as
  explicit per-asset ordered passes:
  - previous close  = prior row in the asset's date-ascending series
  - daily return    = (close - prev) / prev * 100, rounded to 4 places
  - volatility flag = |return| strictly greater than the threshold
  - latest price    = close of the asset's max-date row

NULL SEMANTICS:
  The first date of an asset has no previous close: return is null and the
  volatility flag is false. A previous close of zero also yields a null
  return; a divide-by-zero must never crash the run.

ORDERING:
  Rows sharing (asset, date) have no defined upstream order. We impose a
  deterministic secondary sort (close, then volume, ascending) so reruns
  are byte-identical; the latest price tie-breaks to the highest close of
  the max date.
*/
package enrich

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Aashima-91/crypto-investment-platform-pipeline/model"
)

// DefaultVolatilityThreshold is the |daily return %| above which a row is
// flagged volatile. The boundary is exclusive: exactly 5% is not volatile.
var DefaultVolatilityThreshold = decimal.NewFromFloat(5.0)

var hundred = decimal.NewFromInt(100)

// AssetPricesDaily derives the per-day return series for every asset in the
// market history. threshold <= 0 selects DefaultVolatilityThreshold.
func AssetPricesDaily(history []model.MarketHistory, threshold decimal.Decimal) []model.AssetPriceDaily {
	if threshold.LessThanOrEqual(decimal.Zero) {
		threshold = DefaultVolatilityThreshold
	}

	ordered := orderHistory(history)

	out := make([]model.AssetPriceDaily, 0, len(ordered))
	var prevAsset string
	var prevClose decimal.Decimal
	var havePrev bool

	for _, h := range ordered {
		asset := normalizeAsset(h.Asset)
		if asset != prevAsset {
			prevAsset = asset
			havePrev = false
		}

		row := model.AssetPriceDaily{
			Asset:  h.Asset,
			Date:   h.Date,
			Open:   h.Open,
			High:   h.High,
			Low:    h.Low,
			Close:  h.Close,
			Volume: h.Volume,
		}

		if havePrev {
			row.PreviousClose = decimal.NullDecimal{Decimal: prevClose, Valid: true}
			if !prevClose.IsZero() {
				pct := h.Close.Sub(prevClose).Div(prevClose).Mul(hundred).Round(4)
				row.DailyReturnPct = decimal.NullDecimal{Decimal: pct, Valid: true}
				row.VolatilityFlag = pct.Abs().GreaterThan(threshold)
			}
		}

		prevClose = h.Close
		havePrev = true
		out = append(out, row)
	}
	return out
}

// LatestPrices returns the latest close per asset (normalized symbol). The
// latest row is the max date; ties on date resolve to the highest close.
func LatestPrices(history []model.MarketHistory) map[string]decimal.Decimal {
	latest := make(map[string]model.MarketHistory)
	for _, h := range history {
		asset := normalizeAsset(h.Asset)
		best, seen := latest[asset]
		switch {
		case !seen:
			latest[asset] = h
		case h.Date.After(best.Date):
			latest[asset] = h
		case h.Date.Equal(best.Date) && h.Close.GreaterThan(best.Close):
			latest[asset] = h
		}
	}

	out := make(map[string]decimal.Decimal, len(latest))
	for asset, h := range latest {
		out[asset] = h.Close
	}
	return out
}

// orderHistory sorts a copy of the history by asset, date, then the
// deterministic secondary keys.
func orderHistory(history []model.MarketHistory) []model.MarketHistory {
	ordered := make([]model.MarketHistory, len(history))
	copy(ordered, history)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		na, nb := normalizeAsset(a.Asset), normalizeAsset(b.Asset)
		if na != nb {
			return na < nb
		}
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if !a.Close.Equal(b.Close) {
			return a.Close.LessThan(b.Close)
		}
		return a.Volume.LessThan(b.Volume)
	})
	return ordered
}

func normalizeAsset(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
