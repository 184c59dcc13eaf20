package ingest_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aashima-91/crypto-investment-platform-pipeline/ingest"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

// =============================================================================
// LOADERS
// =============================================================================

func TestLoadCustomers_ByHeaderName(t *testing.T) {
	// Columns deliberately out of canonical order: the loader reads by
	// header name, not position.
	dir := t.TempDir()
	writeFile(t, dir, ingest.FileCustomers,
		"email,customer_id,risk_profile,name,country\n"+
			"a@x.com,1,low,Alice,AU\n"+
			"b@x.com,2,high,Bob,NZ\n")

	customers, err := ingest.LoadCustomers(filepath.Join(dir, ingest.FileCustomers))
	require.NoError(t, err)
	require.Len(t, customers, 2)
	assert.Equal(t, 1, customers[0].CustomerID)
	assert.Equal(t, "Alice", customers[0].Name)
	assert.Equal(t, "high", customers[1].RiskProfile)
}

func TestLoadCustomers_ExactDuplicatesCollapse(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ingest.FileCustomers,
		"customer_id,name,email,country,risk_profile\n"+
			"1,Alice,a@x.com,AU,low\n"+
			"1,Alice,a@x.com,AU,low\n"+
			"1,Alice,other@x.com,AU,low\n")

	customers, err := ingest.LoadCustomers(filepath.Join(dir, ingest.FileCustomers))
	require.NoError(t, err)
	// Exact duplicate collapses; the differing row is kept (the
	// reconciler decides what to do with conflicting duplicates).
	assert.Len(t, customers, 2)
}

func TestLoadCustomers_BadID_FailsWithLocation(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ingest.FileCustomers,
		"customer_id,name,email,country,risk_profile\n"+
			"1,Alice,a@x.com,AU,low\n"+
			"not-a-number,Bob,b@x.com,NZ,high\n")

	_, err := ingest.LoadCustomers(filepath.Join(dir, ingest.FileCustomers))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 3")
	assert.Contains(t, err.Error(), "customer_id")
}

func TestLoadMarketHistory_ParsesOHLCV(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ingest.FileMarketHistory,
		"asset,date,open,high,low,close,volume\n"+
			"BTC,2023-02-01,27500,28100,27400,28000,12000\n")

	history, err := ingest.LoadMarketHistory(filepath.Join(dir, ingest.FileMarketHistory))
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "BTC", history[0].Asset)
	assert.Equal(t, "2023-02-01", history[0].Date.String())
	assert.Equal(t, "28000", history[0].Close.String())
}

func TestLoadTransactions_BadDate_Fails(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ingest.FileTransactions,
		"transaction_id,customer_id,asset,type,quantity,price,date\n"+
			"t-1,1,btc,buy,1,100,02/01/2023\n")

	_, err := ingest.LoadTransactions(filepath.Join(dir, ingest.FileTransactions))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "date")
}

// =============================================================================
// DIRECTORY LOADING
// =============================================================================

func TestLoadDir_MissingFilesAreEmptyRelations(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ingest.FileCustomers,
		"customer_id,name,email,country,risk_profile\n"+
			"1,Alice,a@x.com,AU,low\n")

	clean, err := ingest.LoadDir(dir)
	require.NoError(t, err)
	assert.Len(t, clean.Customers, 1)
	assert.Empty(t, clean.Portfolios)
	assert.Empty(t, clean.Transactions)
	assert.Empty(t, clean.MarketHistory)
	assert.Empty(t, clean.PriceSnapshot)
}

func TestLoadDir_AllRelations(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ingest.FileCustomers,
		"customer_id,name,email,country,risk_profile\n1,Alice,a@x.com,AU,low\n")
	writeFile(t, dir, ingest.FilePortfolios,
		"customer_id,asset,quantity,acquisition_date\n1,btc,0.5,2023-02-01\n")
	writeFile(t, dir, ingest.FileTransactions,
		"transaction_id,customer_id,asset,type,quantity,price,date\n"+
			"t-1,1,btc,buy,0.5,28000,2023-02-01\n")
	writeFile(t, dir, ingest.FileMarketHistory,
		"asset,date,open,high,low,close,volume\n"+
			"btc,2023-02-01,27500,28100,27400,28000,12000\n")
	writeFile(t, dir, ingest.FilePriceSnapshot,
		"asset,price_usd,price_aud,change_24h,market_cap_usd\n"+
			"btc,28000,42000,1.8,540000000000\n")

	clean, err := ingest.LoadDir(dir)
	require.NoError(t, err)
	assert.Len(t, clean.Customers, 1)
	assert.Len(t, clean.Portfolios, 1)
	assert.Len(t, clean.Transactions, 1)
	assert.Len(t, clean.MarketHistory, 1)
	assert.Len(t, clean.PriceSnapshot, 1)

	assert.True(t, clean.Portfolios[0].Quantity.Equal(clean.Transactions[0].Quantity))
	assert.Equal(t, "540000000000", clean.PriceSnapshot[0].MarketCapUSD.String())
}

func TestLoadDir_EmptyFileWithHeaderOnly(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ingest.FileCustomers,
		"customer_id,name,email,country,risk_profile\n")

	clean, err := ingest.LoadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, clean.Customers)
}
