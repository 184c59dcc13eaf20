/*
Package sqlite provides the SQLite-backed warehouse store.

PURPOSE:
  Implements every persistence contract of the pipeline against a single
  SQLite database: clean relations, SCD2 dimension rows, the calendar
  dimension, fact relations and the pipeline run log. In production the
  same patterns apply to PostgreSQL - only minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  dimensional.DimensionStore: Snapshot + atomic conditional ApplyDelta
  dimensional.CalendarStore:  Wholesale calendar replace
  facts.Store:                Wholesale fact replace

ATOMIC MERGE ENFORCEMENT:
  ApplyDelta runs inside one SQL transaction. Closures are conditional
  UPDATEs (WHERE is_current=1) whose affected-row count is checked; inserts
  are covered by a partial unique index on (dimension, natural_key) WHERE
  is_current=1. Any violated precondition rolls the whole delta back with
  ErrConcurrentModification, so two overlapping runs can never both install
  a current row for the same natural key.

WHOLESALE REPLACE:
  Fact, calendar and clean relations are swapped with DELETE + INSERT in
  one transaction: readers see the old relation or the new one, never a
  partial mix.

KEY TABLES:
  dimension_rows:       All SCD2 versions of every dimension
  dim_date:             Calendar dimension
  fact_portfolio_value, fact_transactions, fact_market_prices
  clean_*:              Typed, deduplicated input relations
  pipeline_runs:        Run bookkeeping and data-quality counters

SURROGATE KEYS:
  dimension_rows.sk is INTEGER PRIMARY KEY AUTOINCREMENT: monotonically
  increasing and never reused, shared across dimensions.

CONCURRENCY:
  Uses sync.RWMutex for single-writer semantics within the process, plus
  WAL mode for crash recovery. Cross-process serialization belongs to the
  orchestration layer.

USAGE:
  store, err := sqlite.New("./data/warehouse.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - dimensional/store.go: The apply contract this enforces
  - pipeline/runner.go: The only caller that writes through this store
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/Aashima-91/crypto-investment-platform-pipeline/dimensional"
	"github.com/Aashima-91/crypto-investment-platform-pipeline/facts"
	"github.com/Aashima-91/crypto-investment-platform-pipeline/model"
)

// Store implements all warehouse persistence against SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var (
	_ dimensional.DimensionStore = (*Store)(nil)
	_ dimensional.CalendarStore  = (*Store)(nil)
	_ facts.Store                = (*Store)(nil)
)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite has a single writer, and a ":memory:" database exists per
	// connection. One pooled connection serves both.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- SCD2 dimension rows (all versions of all dimensions)
	CREATE TABLE IF NOT EXISTS dimension_rows (
		sk INTEGER PRIMARY KEY AUTOINCREMENT,
		dimension TEXT NOT NULL,
		natural_key TEXT NOT NULL,
		attrs_json TEXT NOT NULL,
		effective_start TEXT NOT NULL,
		effective_end TEXT NOT NULL,
		is_current BOOLEAN NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_dimension_rows_dim_key
		ON dimension_rows(dimension, natural_key);

	-- CRITICAL: exactly one current version per natural key.
	-- Concurrent reconciliations racing to insert a current row for the
	-- same key hit this index; the loser's whole delta rolls back.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_dimension_rows_one_current
		ON dimension_rows(dimension, natural_key)
		WHERE is_current = 1;

	-- Calendar dimension
	CREATE TABLE IF NOT EXISTS dim_date (
		date_sk INTEGER PRIMARY KEY,
		date TEXT NOT NULL UNIQUE,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		day INTEGER NOT NULL,
		day_name TEXT NOT NULL,
		quarter INTEGER NOT NULL
	);

	-- Fact relations (wholesale-replaced per run, surrogate keys only)
	CREATE TABLE IF NOT EXISTS fact_portfolio_value (
		customer_sk INTEGER NOT NULL,
		asset_sk INTEGER NOT NULL,
		date_sk INTEGER NOT NULL,
		quantity TEXT NOT NULL,
		price_usd TEXT,
		position_value_usd TEXT
	);

	CREATE TABLE IF NOT EXISTS fact_transactions (
		customer_sk INTEGER NOT NULL,
		asset_sk INTEGER NOT NULL,
		date_sk INTEGER NOT NULL,
		transaction_id TEXT NOT NULL,
		transaction_type TEXT NOT NULL,
		quantity TEXT NOT NULL,
		price_usd TEXT NOT NULL,
		amount_usd TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS fact_market_prices (
		asset_sk INTEGER NOT NULL,
		date_sk INTEGER NOT NULL,
		open TEXT NOT NULL,
		high TEXT NOT NULL,
		low TEXT NOT NULL,
		close TEXT NOT NULL,
		volume TEXT NOT NULL,
		daily_return_pct TEXT,
		volatility_flag BOOLEAN NOT NULL
	);

	-- Clean relations (typed, deduplicated inputs)
	CREATE TABLE IF NOT EXISTS clean_customers (
		customer_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		country TEXT NOT NULL,
		risk_profile TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS clean_portfolios (
		customer_id INTEGER NOT NULL,
		asset TEXT NOT NULL,
		quantity TEXT NOT NULL,
		acquisition_date TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS clean_transactions (
		transaction_id TEXT NOT NULL,
		customer_id INTEGER NOT NULL,
		asset TEXT NOT NULL,
		type TEXT NOT NULL,
		quantity TEXT NOT NULL,
		price TEXT NOT NULL,
		date TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS clean_market_history (
		asset TEXT NOT NULL,
		date TEXT NOT NULL,
		open TEXT NOT NULL,
		high TEXT NOT NULL,
		low TEXT NOT NULL,
		close TEXT NOT NULL,
		volume TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS clean_market_prices (
		asset TEXT NOT NULL,
		price_usd TEXT NOT NULL,
		price_aud TEXT NOT NULL,
		change_24h TEXT NOT NULL,
		market_cap_usd TEXT NOT NULL
	);

	-- Pipeline run log
	CREATE TABLE IF NOT EXISTS pipeline_runs (
		id TEXT PRIMARY KEY,
		run_date TEXT NOT NULL,
		status TEXT NOT NULL,
		error TEXT,
		stats_json TEXT,
		started_at TEXT NOT NULL,
		completed_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_pipeline_runs_started
		ON pipeline_runs(started_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// DIMENSION STORE (dimensional.DimensionStore interface)
// =============================================================================

// Snapshot returns the full history of a dimension ordered by surrogate key.
func (s *Store) Snapshot(ctx context.Context, dimension string) ([]dimensional.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT sk, natural_key, attrs_json, effective_start, effective_end, is_current
		FROM dimension_rows
		WHERE dimension = ?
		ORDER BY sk ASC
	`

	rows, err := s.db.QueryContext(ctx, query, dimension)
	if err != nil {
		return nil, fmt.Errorf("failed to query dimension %s: %w", dimension, err)
	}
	defer rows.Close()

	var result []dimensional.Row
	for rows.Next() {
		row, err := scanDimensionRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// ApplyDelta applies closures and inserts in one SQL transaction, checking
// every precondition. See the package comment for the conflict semantics.
func (s *Store) ApplyDelta(ctx context.Context, dimension string, delta dimensional.Delta) (dimensional.ApplyResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result dimensional.ApplyResult

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("%w: begin: %v", dimensional.ErrWriteFailed, err)
	}
	defer sqlTx.Rollback()

	for _, c := range delta.Closures {
		res, err := sqlTx.ExecContext(ctx, `
			UPDATE dimension_rows
			SET effective_end = ?, is_current = 0
			WHERE dimension = ? AND sk = ? AND is_current = 1
		`, c.EffectiveEnd.String(), dimension, int64(c.SK))
		if err != nil {
			return dimensional.ApplyResult{}, fmt.Errorf("%w: close sk=%d: %v", dimensional.ErrWriteFailed, c.SK, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return dimensional.ApplyResult{}, fmt.Errorf("%w: close sk=%d: %v", dimensional.ErrWriteFailed, c.SK, err)
		}
		if n != 1 {
			// The row is no longer current: the snapshot this delta was
			// computed from is stale.
			return dimensional.ApplyResult{}, dimensional.ErrConcurrentModification
		}
		result.Closed++
	}

	for _, ins := range delta.Inserts {
		attrsJSON, err := json.Marshal(ins.Attrs)
		if err != nil {
			return dimensional.ApplyResult{}, fmt.Errorf("%w: marshal attrs: %v", dimensional.ErrWriteFailed, err)
		}

		res, err := sqlTx.ExecContext(ctx, `
			INSERT INTO dimension_rows
			(dimension, natural_key, attrs_json, effective_start, effective_end, is_current)
			VALUES (?, ?, ?, ?, ?, 1)
		`, dimension, string(ins.Key), string(attrsJSON),
			ins.EffectiveStart.String(), dimensional.Infinity().String())
		if err != nil {
			if isUniqueConstraintError(err) {
				return dimensional.ApplyResult{}, dimensional.ErrConcurrentModification
			}
			return dimensional.ApplyResult{}, fmt.Errorf("%w: insert %q: %v", dimensional.ErrWriteFailed, ins.Key, err)
		}
		sk, err := res.LastInsertId()
		if err != nil {
			return dimensional.ApplyResult{}, fmt.Errorf("%w: insert %q: %v", dimensional.ErrWriteFailed, ins.Key, err)
		}

		result.Inserted = append(result.Inserted, dimensional.Row{
			SK:             dimensional.SurrogateKey(sk),
			Key:            ins.Key,
			Attrs:          ins.Attrs,
			EffectiveStart: ins.EffectiveStart,
			EffectiveEnd:   dimensional.Infinity(),
			IsCurrent:      true,
		})
	}

	if err := sqlTx.Commit(); err != nil {
		return dimensional.ApplyResult{}, fmt.Errorf("%w: commit: %v", dimensional.ErrWriteFailed, err)
	}
	return result, nil
}

func scanDimensionRow(rows *sql.Rows) (dimensional.Row, error) {
	var (
		row       dimensional.Row
		sk        int64
		key       string
		attrsJSON string
		start     string
		end       string
	)

	if err := rows.Scan(&sk, &key, &attrsJSON, &start, &end, &row.IsCurrent); err != nil {
		return row, fmt.Errorf("failed to scan dimension row: %w", err)
	}

	row.SK = dimensional.SurrogateKey(sk)
	row.Key = dimensional.NaturalKey(key)
	if attrsJSON != "" {
		json.Unmarshal([]byte(attrsJSON), &row.Attrs)
	}
	row.EffectiveStart = mustParseDate(start)
	row.EffectiveEnd = mustParseDate(end)
	return row, nil
}

// =============================================================================
// CALENDAR STORE (dimensional.CalendarStore interface)
// =============================================================================

// ReplaceCalendar swaps the calendar dimension wholesale.
func (s *Store) ReplaceCalendar(ctx context.Context, rows []dimensional.CalendarRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.replace(ctx, "dim_date", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO dim_date (date_sk, date, year, month, day, day_name, quarter)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, r := range rows {
			if _, err := stmt.ExecContext(ctx, r.DateSK, r.Date.String(),
				r.Year, r.Month, r.Day, r.DayName, r.Quarter); err != nil {
				return err
			}
		}
		return nil
	})
}

// Calendar returns the calendar dimension ordered by date.
func (s *Store) Calendar(ctx context.Context) ([]dimensional.CalendarRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT date_sk, date, year, month, day, day_name, quarter
		FROM dim_date ORDER BY date ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []dimensional.CalendarRow
	for rows.Next() {
		var r dimensional.CalendarRow
		var date string
		if err := rows.Scan(&r.DateSK, &date, &r.Year, &r.Month, &r.Day, &r.DayName, &r.Quarter); err != nil {
			return nil, err
		}
		r.Date = mustParseDate(date)
		result = append(result, r)
	}
	return result, rows.Err()
}

// =============================================================================
// FACT STORE (facts.Store interface)
// =============================================================================

// ReplacePortfolioValues swaps the portfolio value fact relation wholesale.
func (s *Store) ReplacePortfolioValues(ctx context.Context, rows []model.FactPortfolioValue) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.replace(ctx, "fact_portfolio_value", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO fact_portfolio_value
			(customer_sk, asset_sk, date_sk, quantity, price_usd, position_value_usd)
			VALUES (?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, r := range rows {
			if _, err := stmt.ExecContext(ctx,
				int64(r.CustomerSK), int64(r.AssetSK), r.DateSK,
				r.Quantity.String(),
				nullDecimalString(r.PriceUSD),
				nullDecimalString(r.PositionValueUSD),
			); err != nil {
				return err
			}
		}
		return nil
	})
}

// PortfolioValues returns the portfolio value fact relation.
func (s *Store) PortfolioValues(ctx context.Context) ([]model.FactPortfolioValue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT customer_sk, asset_sk, date_sk, quantity, price_usd, position_value_usd
		FROM fact_portfolio_value
		ORDER BY customer_sk, asset_sk
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.FactPortfolioValue
	for rows.Next() {
		var r model.FactPortfolioValue
		var customerSK, assetSK int64
		var quantity string
		var price, value sql.NullString
		if err := rows.Scan(&customerSK, &assetSK, &r.DateSK, &quantity, &price, &value); err != nil {
			return nil, err
		}
		r.CustomerSK = dimensional.SurrogateKey(customerSK)
		r.AssetSK = dimensional.SurrogateKey(assetSK)
		r.Quantity = mustParseDecimal(quantity)
		r.PriceUSD = parseNullDecimal(price)
		r.PositionValueUSD = parseNullDecimal(value)
		result = append(result, r)
	}
	return result, rows.Err()
}

// ReplaceTransactions swaps the transactions fact relation wholesale.
func (s *Store) ReplaceTransactions(ctx context.Context, rows []model.FactTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.replace(ctx, "fact_transactions", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO fact_transactions
			(customer_sk, asset_sk, date_sk, transaction_id, transaction_type, quantity, price_usd, amount_usd)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, r := range rows {
			if _, err := stmt.ExecContext(ctx,
				int64(r.CustomerSK), int64(r.AssetSK), r.DateSK,
				r.TransactionID, r.TransactionType,
				r.Quantity.String(), r.PriceUSD.String(), r.AmountUSD.String(),
			); err != nil {
				return err
			}
		}
		return nil
	})
}

// FactTransactions returns the transactions fact relation.
func (s *Store) FactTransactions(ctx context.Context) ([]model.FactTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT customer_sk, asset_sk, date_sk, transaction_id, transaction_type, quantity, price_usd, amount_usd
		FROM fact_transactions
		ORDER BY transaction_id, customer_sk
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.FactTransaction
	for rows.Next() {
		var r model.FactTransaction
		var customerSK, assetSK int64
		var quantity, price, amount string
		if err := rows.Scan(&customerSK, &assetSK, &r.DateSK, &r.TransactionID,
			&r.TransactionType, &quantity, &price, &amount); err != nil {
			return nil, err
		}
		r.CustomerSK = dimensional.SurrogateKey(customerSK)
		r.AssetSK = dimensional.SurrogateKey(assetSK)
		r.Quantity = mustParseDecimal(quantity)
		r.PriceUSD = mustParseDecimal(price)
		r.AmountUSD = mustParseDecimal(amount)
		result = append(result, r)
	}
	return result, rows.Err()
}

// ReplaceMarketPrices swaps the market prices fact relation wholesale.
func (s *Store) ReplaceMarketPrices(ctx context.Context, rows []model.FactMarketPrice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.replace(ctx, "fact_market_prices", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO fact_market_prices
			(asset_sk, date_sk, open, high, low, close, volume, daily_return_pct, volatility_flag)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, r := range rows {
			if _, err := stmt.ExecContext(ctx,
				int64(r.AssetSK), r.DateSK,
				r.Open.String(), r.High.String(), r.Low.String(), r.Close.String(), r.Volume.String(),
				nullDecimalString(r.DailyReturnPct), r.VolatilityFlag,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

// MarketPrices returns the market prices fact relation.
func (s *Store) MarketPrices(ctx context.Context) ([]model.FactMarketPrice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT asset_sk, date_sk, open, high, low, close, volume, daily_return_pct, volatility_flag
		FROM fact_market_prices
		ORDER BY asset_sk, date_sk
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.FactMarketPrice
	for rows.Next() {
		var r model.FactMarketPrice
		var assetSK int64
		var open, high, low, close_, volume string
		var ret sql.NullString
		if err := rows.Scan(&assetSK, &r.DateSK, &open, &high, &low, &close_, &volume,
			&ret, &r.VolatilityFlag); err != nil {
			return nil, err
		}
		r.AssetSK = dimensional.SurrogateKey(assetSK)
		r.Open = mustParseDecimal(open)
		r.High = mustParseDecimal(high)
		r.Low = mustParseDecimal(low)
		r.Close = mustParseDecimal(close_)
		r.Volume = mustParseDecimal(volume)
		r.DailyReturnPct = parseNullDecimal(ret)
		result = append(result, r)
	}
	return result, rows.Err()
}

// replace swaps a whole relation in one transaction: delete + insert, all
// rows or none.
func (s *Store) replace(ctx context.Context, table string, insert func(*sql.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", dimensional.ErrWriteFailed, err)
	}
	defer sqlTx.Rollback()

	if _, err := sqlTx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return fmt.Errorf("%w: clear %s: %v", dimensional.ErrWriteFailed, table, err)
	}
	if err := insert(sqlTx); err != nil {
		return fmt.Errorf("%w: fill %s: %v", dimensional.ErrWriteFailed, table, err)
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("%w: commit %s: %v", dimensional.ErrWriteFailed, table, err)
	}
	return nil
}

// Helper functions

func mustParseDate(s string) dimensional.Date {
	d, _ := dimensional.ParseDate(s)
	return d
}

func mustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func nullDecimalString(d decimal.NullDecimal) any {
	if !d.Valid {
		return nil
	}
	return d.Decimal.String()
}

func parseNullDecimal(s sql.NullString) decimal.NullDecimal {
	if !s.Valid {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: mustParseDecimal(s.String), Valid: true}
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key")
}
