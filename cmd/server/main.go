/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the crypto investment warehouse pipeline server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Initialize SQLite warehouse
  3. Optionally ingest cleaned CSV sources from -data
  4. Create pipeline runner and API handler
  5. Configure HTTP router and optional run scheduler
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port           HTTP server port (default: 8080)
  -db             SQLite database path (default: warehouse.db)
                  Use ":memory:" for in-memory database
  -data           Directory of cleaned CSV sources to ingest on startup
  -schedule       Interval for scheduled runs, e.g. 6h (default: disabled)
  -volatility     |daily return %| threshold for the volatility flag
  -close-missing  Close dimension rows absent from the source snapshot
  -calendar-from  Calendar range start, YYYY-MM-DD
  -calendar-to    Calendar range end, YYYY-MM-DD

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection
  5. Exit

EXAMPLES:
  # Ingest sources and serve
  ./server -db="./data/warehouse.db" -data="./data/clean"

  # Scheduled runs every 6 hours
  ./server -schedule=6h

SEE ALSO:
  - api/server.go: Router configuration
  - pipeline/runner.go: Run orchestration
  - ingest/csv.go: CSV source loading
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Aashima-91/crypto-investment-platform-pipeline/api"
	"github.com/Aashima-91/crypto-investment-platform-pipeline/dimensional"
	"github.com/Aashima-91/crypto-investment-platform-pipeline/ingest"
	"github.com/Aashima-91/crypto-investment-platform-pipeline/pipeline"
	"github.com/Aashima-91/crypto-investment-platform-pipeline/warehouse/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "warehouse.db", "SQLite database path")
	dataDir := flag.String("data", "", "directory of cleaned CSV sources to ingest on startup")
	schedule := flag.Duration("schedule", 0, "interval for scheduled runs (0 disables)")
	volatility := flag.String("volatility", "", "volatility threshold in percent (default 5)")
	closeMissing := flag.Bool("close-missing", false, "close dimension rows absent from the source")
	calendarFrom := flag.String("calendar-from", "", "calendar range start (YYYY-MM-DD)")
	calendarTo := flag.String("calendar-to", "", "calendar range end (YYYY-MM-DD)")
	flag.Parse()

	// Initialize warehouse
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Ingest cleaned sources when requested
	if *dataDir != "" {
		clean, err := ingest.LoadDir(*dataDir)
		if err != nil {
			log.Fatalf("Failed to load sources from %s: %v", *dataDir, err)
		}
		if err := store.ReplaceClean(context.Background(), clean); err != nil {
			log.Fatalf("Failed to store sources: %v", err)
		}
		log.Printf("Ingested sources: %d customers, %d portfolios, %d transactions, %d history rows, %d snapshot rows",
			len(clean.Customers), len(clean.Portfolios), len(clean.Transactions),
			len(clean.MarketHistory), len(clean.PriceSnapshot))
	}

	cfg := pipeline.Config{CloseMissing: *closeMissing}
	if *volatility != "" {
		threshold, err := decimal.NewFromString(*volatility)
		if err != nil {
			log.Fatalf("Invalid -volatility: %v", err)
		}
		cfg.VolatilityThreshold = threshold
	}
	if *calendarFrom != "" || *calendarTo != "" {
		from, err := dimensional.ParseDate(*calendarFrom)
		if err != nil {
			log.Fatalf("Invalid -calendar-from: %v", err)
		}
		to, err := dimensional.ParseDate(*calendarTo)
		if err != nil {
			log.Fatalf("Invalid -calendar-to: %v", err)
		}
		cfg.CalendarFrom, cfg.CalendarTo = from, to
	}

	runner := pipeline.NewRunner(store, cfg)
	handler := api.NewHandler(store, runner)
	router := api.NewRouter(handler)

	scheduler := api.NewRunScheduler(runner, *schedule)
	scheduler.Start()

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("🚀 Server starting on http://localhost:%d", *port)
		log.Printf("📊 API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
