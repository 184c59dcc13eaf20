/*
Package ingest loads landing CSV files and projects them into the typed,
deduplicated clean relations the pipeline consumes.

PURPOSE:
  File-based replacement for the landing layer: one CSV per relation, read
  by header name (column order in the files is not relied on), exact
  duplicate rows collapsed. Pure I/O and filtering - no temporal logic, no
  derived values.

FILES (under one data directory):
  customers.csv              customer_id,name,email,country,risk_profile
  customer_portfolios.csv    customer_id,asset,quantity,acquisition_date
  transactions.csv           transaction_id,customer_id,asset,type,quantity,price,date
  crypto_history.csv         asset,date,open,high,low,close,volume
  market_prices_snapshot.csv asset,price_usd,price_aud,change_24h,market_cap_usd

Missing files are not an error: the corresponding relation is empty. Rows
that fail to parse fail the load; silently skipping bad business data would
hide upstream defects.
*/
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Aashima-91/crypto-investment-platform-pipeline/dimensional"
	"github.com/Aashima-91/crypto-investment-platform-pipeline/model"
)

// Landing file names.
const (
	FileCustomers     = "customers.csv"
	FilePortfolios    = "customer_portfolios.csv"
	FileTransactions  = "transactions.csv"
	FileMarketHistory = "crypto_history.csv"
	FilePriceSnapshot = "market_prices_snapshot.csv"
)

// LoadDir loads every landing file under dir into clean relations.
func LoadDir(dir string) (model.CleanRelations, error) {
	var clean model.CleanRelations
	var err error

	if clean.Customers, err = LoadCustomers(filepath.Join(dir, FileCustomers)); err != nil {
		return clean, err
	}
	if clean.Portfolios, err = LoadPortfolios(filepath.Join(dir, FilePortfolios)); err != nil {
		return clean, err
	}
	if clean.Transactions, err = LoadTransactions(filepath.Join(dir, FileTransactions)); err != nil {
		return clean, err
	}
	if clean.MarketHistory, err = LoadMarketHistory(filepath.Join(dir, FileMarketHistory)); err != nil {
		return clean, err
	}
	if clean.PriceSnapshot, err = LoadPriceSnapshot(filepath.Join(dir, FilePriceSnapshot)); err != nil {
		return clean, err
	}
	return clean, nil
}

// LoadCustomers reads and deduplicates the customers relation.
func LoadCustomers(path string) ([]model.Customer, error) {
	var out []model.Customer
	err := readCSV(path, func(rec record) error {
		id, err := rec.int("customer_id")
		if err != nil {
			return err
		}
		out = append(out, model.Customer{
			CustomerID:  id,
			Name:        rec.get("name"),
			Email:       rec.get("email"),
			Country:     rec.get("country"),
			RiskProfile: rec.get("risk_profile"),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dedupe(out, func(c model.Customer) string {
		return fmt.Sprintf("%d|%s|%s|%s|%s", c.CustomerID, c.Name, c.Email, c.Country, c.RiskProfile)
	}), nil
}

// LoadPortfolios reads and deduplicates the customer portfolios relation.
func LoadPortfolios(path string) ([]model.PortfolioPosition, error) {
	var out []model.PortfolioPosition
	err := readCSV(path, func(rec record) error {
		id, err := rec.int("customer_id")
		if err != nil {
			return err
		}
		quantity, err := rec.decimal("quantity")
		if err != nil {
			return err
		}
		acquired, err := rec.date("acquisition_date")
		if err != nil {
			return err
		}
		out = append(out, model.PortfolioPosition{
			CustomerID:      id,
			Asset:           rec.get("asset"),
			Quantity:        quantity,
			AcquisitionDate: acquired,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dedupe(out, func(p model.PortfolioPosition) string {
		return fmt.Sprintf("%d|%s|%s|%s", p.CustomerID, p.Asset, p.Quantity.String(), p.AcquisitionDate)
	}), nil
}

// LoadTransactions reads and deduplicates the transactions relation.
func LoadTransactions(path string) ([]model.Transaction, error) {
	var out []model.Transaction
	err := readCSV(path, func(rec record) error {
		id, err := rec.int("customer_id")
		if err != nil {
			return err
		}
		quantity, err := rec.decimal("quantity")
		if err != nil {
			return err
		}
		price, err := rec.decimal("price")
		if err != nil {
			return err
		}
		date, err := rec.date("date")
		if err != nil {
			return err
		}
		out = append(out, model.Transaction{
			TransactionID: rec.get("transaction_id"),
			CustomerID:    id,
			Asset:         rec.get("asset"),
			Type:          rec.get("type"),
			Quantity:      quantity,
			Price:         price,
			Date:          date,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dedupe(out, func(t model.Transaction) string {
		return fmt.Sprintf("%s|%d|%s|%s|%s|%s|%s",
			t.TransactionID, t.CustomerID, t.Asset, t.Type,
			t.Quantity.String(), t.Price.String(), t.Date)
	}), nil
}

// LoadMarketHistory reads and deduplicates the daily OHLCV relation.
func LoadMarketHistory(path string) ([]model.MarketHistory, error) {
	var out []model.MarketHistory
	err := readCSV(path, func(rec record) error {
		date, err := rec.date("date")
		if err != nil {
			return err
		}
		row := model.MarketHistory{Asset: rec.get("asset"), Date: date}
		for _, f := range []struct {
			name string
			dst  *decimal.Decimal
		}{
			{"open", &row.Open}, {"high", &row.High}, {"low", &row.Low},
			{"close", &row.Close}, {"volume", &row.Volume},
		} {
			if *f.dst, err = rec.decimal(f.name); err != nil {
				return err
			}
		}
		out = append(out, row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dedupe(out, func(h model.MarketHistory) string {
		return fmt.Sprintf("%s|%s|%s|%s|%s|%s|%s",
			h.Asset, h.Date, h.Open.String(), h.High.String(),
			h.Low.String(), h.Close.String(), h.Volume.String())
	}), nil
}

// LoadPriceSnapshot reads and deduplicates the market price snapshot.
func LoadPriceSnapshot(path string) ([]model.PriceSnapshot, error) {
	var out []model.PriceSnapshot
	err := readCSV(path, func(rec record) error {
		row := model.PriceSnapshot{Asset: rec.get("asset")}
		var err error
		for _, f := range []struct {
			name string
			dst  *decimal.Decimal
		}{
			{"price_usd", &row.PriceUSD}, {"price_aud", &row.PriceAUD},
			{"change_24h", &row.Change24h}, {"market_cap_usd", &row.MarketCapUSD},
		} {
			if *f.dst, err = rec.decimal(f.name); err != nil {
				return err
			}
		}
		out = append(out, row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dedupe(out, func(p model.PriceSnapshot) string {
		return fmt.Sprintf("%s|%s|%s|%s|%s",
			p.Asset, p.PriceUSD.String(), p.PriceAUD.String(),
			p.Change24h.String(), p.MarketCapUSD.String())
	}), nil
}

// =============================================================================
// CSV PLUMBING
// =============================================================================

// record is one CSV row addressed by header name.
type record struct {
	header map[string]int
	fields []string
	line   int
	path   string
}

func (r record) get(name string) string {
	idx, ok := r.header[name]
	if !ok || idx >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[idx])
}

func (r record) int(name string) (int, error) {
	v, err := strconv.Atoi(r.get(name))
	if err != nil {
		return 0, fmt.Errorf("%s line %d: column %q: %w", r.path, r.line, name, err)
	}
	return v, nil
}

func (r record) decimal(name string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(r.get(name))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s line %d: column %q: %w", r.path, r.line, name, err)
	}
	return v, nil
}

func (r record) date(name string) (dimensional.Date, error) {
	v, err := dimensional.ParseDate(r.get(name))
	if err != nil {
		return dimensional.Date{}, fmt.Errorf("%s line %d: column %q: %w", r.path, r.line, name, err)
	}
	return v, nil
}

// readCSV streams rows through fn. A missing file yields zero rows.
func readCSV(path string, fn func(record) error) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true

	headerRow, err := reader.Read()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading %s header: %w", path, err)
	}

	header := make(map[string]int, len(headerRow))
	for i, name := range headerRow {
		header[strings.ToLower(strings.TrimSpace(name))] = i
	}

	line := 1
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		line++
		if err := fn(record{header: header, fields: fields, line: line, path: path}); err != nil {
			return err
		}
	}
}

// dedupe drops exact duplicate rows, preserving first-seen order.
func dedupe[T any](rows []T, key func(T) string) []T {
	seen := make(map[string]bool, len(rows))
	out := rows[:0]
	for _, r := range rows {
		k := key(r)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, r)
	}
	return out
}
