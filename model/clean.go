/*
Package model defines the row shapes that flow through the pipeline:
clean relations in (produced by the cleaning stage), enriched relations in
the middle, fact relations out.

Clean rows are typed, deduplicated projections of the landing data. They
carry no history and no derived values; those belong to the enrichment
stage and the dimensional engine.
*/
package model

import (
	"github.com/shopspring/decimal"

	"github.com/Aashima-91/crypto-investment-platform-pipeline/dimensional"
)

// Customer is one row of the cleaned customers relation.
type Customer struct {
	CustomerID  int
	Name        string
	Email       string
	Country     string
	RiskProfile string
}

// PortfolioPosition is one row of the cleaned customer_portfolios relation:
// a customer's holding of one asset.
type PortfolioPosition struct {
	CustomerID      int
	Asset           string
	Quantity        decimal.Decimal
	AcquisitionDate dimensional.Date
}

// Transaction is one row of the cleaned transactions relation.
type Transaction struct {
	TransactionID string
	CustomerID    int
	Asset         string
	Type          string
	Quantity      decimal.Decimal
	Price         decimal.Decimal
	Date          dimensional.Date
}

// MarketHistory is one daily OHLCV row of the cleaned market history.
type MarketHistory struct {
	Asset  string
	Date   dimensional.Date
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume decimal.Decimal
}

// PriceSnapshot is one row of the cleaned market price snapshot. Feeds the
// asset dimension's natural key space; its prices are not joined into facts.
type PriceSnapshot struct {
	Asset        string
	PriceUSD     decimal.Decimal
	PriceAUD     decimal.Decimal
	Change24h    decimal.Decimal
	MarketCapUSD decimal.Decimal
}

// CleanRelations bundles the full clean-layer input of one pipeline run.
type CleanRelations struct {
	Customers     []Customer
	Portfolios    []PortfolioPosition
	Transactions  []Transaction
	MarketHistory []MarketHistory
	PriceSnapshot []PriceSnapshot
}
