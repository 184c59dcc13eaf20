/*
store.go - Wholesale-replace persistence contract for fact relations

Each Replace* call atomically swaps the whole relation: after a failed
replace the previously committed rows are still intact and visible.
*/
package facts

import (
	"context"

	"github.com/Aashima-91/crypto-investment-platform-pipeline/model"
)

// Store persists fact relations. The fact engine is its only writer.
type Store interface {
	ReplacePortfolioValues(ctx context.Context, rows []model.FactPortfolioValue) error
	ReplaceTransactions(ctx context.Context, rows []model.FactTransaction) error
	ReplaceMarketPrices(ctx context.Context, rows []model.FactMarketPrice) error

	PortfolioValues(ctx context.Context) ([]model.FactPortfolioValue, error)
	FactTransactions(ctx context.Context) ([]model.FactTransaction, error)
	MarketPrices(ctx context.Context) ([]model.FactMarketPrice, error)
}
