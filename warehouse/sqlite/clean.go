/*
clean.go - Clean relation persistence

The cleaning stage's outputs land here as typed, deduplicated relations.
Each relation is wholesale-replaced: the pipeline always reads a complete,
consistent clean layer.
*/
package sqlite

import (
	"context"
	"database/sql"

	"github.com/Aashima-91/crypto-investment-platform-pipeline/model"
)

// ReplaceClean swaps the whole clean layer in one transaction per relation.
func (s *Store) ReplaceClean(ctx context.Context, clean model.CleanRelations) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.replace(ctx, "clean_customers", func(tx *sql.Tx) error {
		for _, c := range clean.Customers {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO clean_customers (customer_id, name, email, country, risk_profile)
				VALUES (?, ?, ?, ?, ?)
			`, c.CustomerID, c.Name, c.Email, c.Country, c.RiskProfile); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return err
	}

	if err := s.replace(ctx, "clean_portfolios", func(tx *sql.Tx) error {
		for _, p := range clean.Portfolios {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO clean_portfolios (customer_id, asset, quantity, acquisition_date)
				VALUES (?, ?, ?, ?)
			`, p.CustomerID, p.Asset, p.Quantity.String(), p.AcquisitionDate.String()); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return err
	}

	if err := s.replace(ctx, "clean_transactions", func(tx *sql.Tx) error {
		for _, t := range clean.Transactions {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO clean_transactions (transaction_id, customer_id, asset, type, quantity, price, date)
				VALUES (?, ?, ?, ?, ?, ?, ?)
			`, t.TransactionID, t.CustomerID, t.Asset, t.Type,
				t.Quantity.String(), t.Price.String(), t.Date.String()); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return err
	}

	if err := s.replace(ctx, "clean_market_history", func(tx *sql.Tx) error {
		for _, h := range clean.MarketHistory {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO clean_market_history (asset, date, open, high, low, close, volume)
				VALUES (?, ?, ?, ?, ?, ?, ?)
			`, h.Asset, h.Date.String(), h.Open.String(), h.High.String(),
				h.Low.String(), h.Close.String(), h.Volume.String()); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return err
	}

	return s.replace(ctx, "clean_market_prices", func(tx *sql.Tx) error {
		for _, p := range clean.PriceSnapshot {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO clean_market_prices (asset, price_usd, price_aud, change_24h, market_cap_usd)
				VALUES (?, ?, ?, ?, ?)
			`, p.Asset, p.PriceUSD.String(), p.PriceAUD.String(),
				p.Change24h.String(), p.MarketCapUSD.String()); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadClean reads the full clean layer.
func (s *Store) LoadClean(ctx context.Context) (model.CleanRelations, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var clean model.CleanRelations

	rows, err := s.db.QueryContext(ctx, `
		SELECT customer_id, name, email, country, risk_profile
		FROM clean_customers ORDER BY customer_id
	`)
	if err != nil {
		return clean, err
	}
	for rows.Next() {
		var c model.Customer
		if err := rows.Scan(&c.CustomerID, &c.Name, &c.Email, &c.Country, &c.RiskProfile); err != nil {
			rows.Close()
			return clean, err
		}
		clean.Customers = append(clean.Customers, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return clean, err
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT customer_id, asset, quantity, acquisition_date
		FROM clean_portfolios ORDER BY customer_id, asset
	`)
	if err != nil {
		return clean, err
	}
	for rows.Next() {
		var p model.PortfolioPosition
		var quantity, acquired string
		if err := rows.Scan(&p.CustomerID, &p.Asset, &quantity, &acquired); err != nil {
			rows.Close()
			return clean, err
		}
		p.Quantity = mustParseDecimal(quantity)
		p.AcquisitionDate = mustParseDate(acquired)
		clean.Portfolios = append(clean.Portfolios, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return clean, err
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT transaction_id, customer_id, asset, type, quantity, price, date
		FROM clean_transactions ORDER BY transaction_id
	`)
	if err != nil {
		return clean, err
	}
	for rows.Next() {
		var t model.Transaction
		var quantity, price, date string
		if err := rows.Scan(&t.TransactionID, &t.CustomerID, &t.Asset, &t.Type,
			&quantity, &price, &date); err != nil {
			rows.Close()
			return clean, err
		}
		t.Quantity = mustParseDecimal(quantity)
		t.Price = mustParseDecimal(price)
		t.Date = mustParseDate(date)
		clean.Transactions = append(clean.Transactions, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return clean, err
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT asset, date, open, high, low, close, volume
		FROM clean_market_history ORDER BY asset, date
	`)
	if err != nil {
		return clean, err
	}
	for rows.Next() {
		var h model.MarketHistory
		var date, open, high, low, close_, volume string
		if err := rows.Scan(&h.Asset, &date, &open, &high, &low, &close_, &volume); err != nil {
			rows.Close()
			return clean, err
		}
		h.Date = mustParseDate(date)
		h.Open = mustParseDecimal(open)
		h.High = mustParseDecimal(high)
		h.Low = mustParseDecimal(low)
		h.Close = mustParseDecimal(close_)
		h.Volume = mustParseDecimal(volume)
		clean.MarketHistory = append(clean.MarketHistory, h)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return clean, err
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT asset, price_usd, price_aud, change_24h, market_cap_usd
		FROM clean_market_prices ORDER BY asset
	`)
	if err != nil {
		return clean, err
	}
	for rows.Next() {
		var p model.PriceSnapshot
		var usd, aud, change, cap string
		if err := rows.Scan(&p.Asset, &usd, &aud, &change, &cap); err != nil {
			rows.Close()
			return clean, err
		}
		p.PriceUSD = mustParseDecimal(usd)
		p.PriceAUD = mustParseDecimal(aud)
		p.Change24h = mustParseDecimal(change)
		p.MarketCapUSD = mustParseDecimal(cap)
		clean.PriceSnapshot = append(clean.PriceSnapshot, p)
	}
	rows.Close()
	return clean, rows.Err()
}
