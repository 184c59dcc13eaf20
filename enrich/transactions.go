/*
transactions.go - Transaction enrichment and position valuation

PURPOSE:
  - EnrichTransactions: amount = quantity x unit price, transaction type
    case-folded into the small fixed vocabulary used downstream.
  - Positions: each portfolio holding valued at its asset's latest close.
    Holdings of assets with no price history keep a null valuation
    (left-join semantics); the fact engine still keys them to dimensions.
*/
package enrich

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Aashima-91/crypto-investment-platform-pipeline/model"
)

// Transaction type vocabulary. Unknown raw types pass through case-folded
// rather than failing the run; they are business data, not structure.
const (
	TxBuy      = "buy"
	TxSell     = "sell"
	TxTransfer = "transfer"
)

// EnrichTransactions derives amount and normalized type per transaction.
// Output order: transaction id, then customer id (stable across reruns).
func EnrichTransactions(txs []model.Transaction) []model.EnrichedTransaction {
	out := make([]model.EnrichedTransaction, 0, len(txs))
	for _, t := range txs {
		out = append(out, model.EnrichedTransaction{
			TransactionID:   t.TransactionID,
			CustomerID:      t.CustomerID,
			Asset:           t.Asset,
			TransactionType: NormalizeType(t.Type),
			Quantity:        t.Quantity,
			PriceUSD:        t.Price,
			AmountUSD:       t.Quantity.Mul(t.Price),
			TransactionDate: t.Date,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TransactionID != out[j].TransactionID {
			return out[i].TransactionID < out[j].TransactionID
		}
		return out[i].CustomerID < out[j].CustomerID
	})
	return out
}

// NormalizeType case-folds a raw transaction type.
func NormalizeType(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// Positions values every portfolio holding at the asset's latest close.
// latest is keyed by normalized asset symbol (see LatestPrices).
func Positions(portfolios []model.PortfolioPosition, latest map[string]decimal.Decimal) []model.CustomerPosition {
	out := make([]model.CustomerPosition, 0, len(portfolios))
	for _, p := range portfolios {
		pos := model.CustomerPosition{
			CustomerID: p.CustomerID,
			Asset:      p.Asset,
			Quantity:   p.Quantity,
		}
		if price, ok := latest[normalizeAsset(p.Asset)]; ok {
			pos.LatestClosePrice = decimal.NullDecimal{Decimal: price, Valid: true}
			pos.PositionValueUSD = decimal.NullDecimal{Decimal: p.Quantity.Mul(price), Valid: true}
		}
		out = append(out, pos)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CustomerID != out[j].CustomerID {
			return out[i].CustomerID < out[j].CustomerID
		}
		return normalizeAsset(out[i].Asset) < normalizeAsset(out[j].Asset)
	})
	return out
}

// Enrich runs the whole enrichment stage over the clean relations.
func Enrich(clean model.CleanRelations, threshold decimal.Decimal) model.EnrichedRelations {
	latest := LatestPrices(clean.MarketHistory)
	return model.EnrichedRelations{
		AssetPricesDaily: AssetPricesDaily(clean.MarketHistory, threshold),
		Positions:        Positions(clean.Portfolios, latest),
		Transactions:     EnrichTransactions(clean.Transactions),
	}
}
