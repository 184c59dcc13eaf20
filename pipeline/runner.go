/*
runner.go - One pipeline pass, stage by stage

PURPOSE:
  Runs the layered pipeline sequentially within one pass:
    clean layer -> enrichment -> {dimension reconciliation, calendar} ->
    fact derivation -> published fact/dimension relations
  and records the run in the pipeline log with its data-quality counters.

RUN DATE:
  A single injectable run date drives dimension effective dates and the
  portfolio-value fact's calendar key. Defaults to today; tests and
  backfills pass their own.

FAILURE SEMANTICS:
  Structural anomalies (ambiguous source, write failure, merge conflict)
  abort the run; the run log records the failure and every relation keeps
  its previously committed state. Data-quality anomalies (dropped fact
  rows, null returns) never abort: they are counted and published with the
  run record.

SEE ALSO:
  - sources.go: Dimension specs and snapshot projection
  - warehouse/sqlite: The store every stage reads from and writes to
*/
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Aashima-91/crypto-investment-platform-pipeline/dimensional"
	"github.com/Aashima-91/crypto-investment-platform-pipeline/enrich"
	"github.com/Aashima-91/crypto-investment-platform-pipeline/facts"
	"github.com/Aashima-91/crypto-investment-platform-pipeline/warehouse/sqlite"
)

// Config holds the pipeline's policy knobs.
type Config struct {
	// VolatilityThreshold is the |daily return %| above which a price row is
	// flagged volatile. Zero selects the default (5.0, exclusive boundary).
	VolatilityThreshold decimal.Decimal

	// CalendarFrom/CalendarTo bound the calendar dimension. Zero values
	// select the default range.
	CalendarFrom dimensional.Date
	CalendarTo   dimensional.Date

	// CloseMissing closes dimension rows whose natural key disappeared from
	// the source snapshot. Off by default: absence is not deletion.
	CloseMissing bool
}

// DimStats reports what reconciliation did to one dimension.
type DimStats struct {
	SourceKeys int `json:"source_keys"`
	Closed     int `json:"closed"`
	Inserted   int `json:"inserted"`
}

// RunStats is the observable outcome of one run, serialized into the run log.
type RunStats struct {
	Customers    DimStats    `json:"dim_customer"`
	Assets       DimStats    `json:"dim_asset"`
	CalendarRows int         `json:"calendar_rows"`
	Facts        facts.Stats `json:"facts"`
}

// Result pairs a run's identity with its stats.
type Result struct {
	RunID   string
	RunDate dimensional.Date
	Stats   RunStats
}

// Runner executes pipeline passes against the warehouse.
type Runner struct {
	Store  *sqlite.Store
	Config Config
}

func NewRunner(store *sqlite.Store, cfg Config) *Runner {
	return &Runner{Store: store, Config: cfg}
}

// Run executes one full pass as of runDate. A zero runDate means today.
func (r *Runner) Run(ctx context.Context, runDate dimensional.Date) (*Result, error) {
	if runDate.IsZero() {
		runDate = dimensional.Today()
	}

	record := sqlite.RunRecord{
		ID:        uuid.NewString(),
		RunDate:   runDate.String(),
		Status:    sqlite.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := r.Store.SaveRun(ctx, record); err != nil {
		return nil, fmt.Errorf("recording run start: %w", err)
	}

	result, err := r.run(ctx, runDate)
	now := time.Now().UTC()
	record.CompletedAt = &now
	if err != nil {
		record.Status = sqlite.RunStatusFailed
		record.Error = err.Error()
		r.Store.SaveRun(ctx, record)
		return nil, err
	}

	record.Status = sqlite.RunStatusCompleted
	if statsJSON, jsonErr := json.Marshal(result.Stats); jsonErr == nil {
		record.StatsJSON = string(statsJSON)
	}
	if err := r.Store.SaveRun(ctx, record); err != nil {
		return nil, fmt.Errorf("recording run completion: %w", err)
	}

	result.RunID = record.ID
	return result, nil
}

func (r *Runner) run(ctx context.Context, runDate dimensional.Date) (*Result, error) {
	result := &Result{RunDate: runDate}

	// Stage 1: load the clean layer.
	clean, err := r.Store.LoadClean(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading clean relations: %w", err)
	}

	// Stage 2: enrichment (pure).
	enriched := enrich.Enrich(clean, r.Config.VolatilityThreshold)

	// Stage 3a: calendar dimension.
	calendar, err := r.ensureCalendar(ctx)
	if err != nil {
		return nil, err
	}
	result.Stats.CalendarRows = len(calendar)

	// Stage 3b: dimension reconciliation.
	customerStats, err := r.reconcile(ctx, CustomerSpec(), CustomerSource(clean.Customers), runDate)
	if err != nil {
		return nil, fmt.Errorf("reconciling %s: %w", facts.DimCustomer, err)
	}
	result.Stats.Customers = customerStats

	assetStats, err := r.reconcile(ctx, AssetSpec(), AssetSource(clean.MarketHistory, clean.PriceSnapshot), runDate)
	if err != nil {
		return nil, fmt.Errorf("reconciling %s: %w", facts.DimAsset, err)
	}
	result.Stats.Assets = assetStats

	// Stage 4: fact derivation against current dimension rows.
	customerRows, err := r.Store.Snapshot(ctx, facts.DimCustomer)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", facts.DimCustomer, err)
	}
	assetRows, err := r.Store.Snapshot(ctx, facts.DimAsset)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", facts.DimAsset, err)
	}

	derived := facts.Derive(facts.Inputs{
		Enriched:  enriched,
		Customers: dimensional.CurrentRows(customerRows),
		Assets:    dimensional.CurrentRows(assetRows),
		Calendar:  dimensional.IndexCalendar(calendar),
		RunDate:   runDate,
	})
	result.Stats.Facts = derived.Stats

	// Stage 5: publish facts (wholesale replace).
	if err := r.Store.ReplacePortfolioValues(ctx, derived.PortfolioValues); err != nil {
		return nil, fmt.Errorf("publishing fact_portfolio_value: %w", err)
	}
	if err := r.Store.ReplaceTransactions(ctx, derived.Transactions); err != nil {
		return nil, fmt.Errorf("publishing fact_transactions: %w", err)
	}
	if err := r.Store.ReplaceMarketPrices(ctx, derived.MarketPrices); err != nil {
		return nil, fmt.Errorf("publishing fact_market_prices: %w", err)
	}

	return result, nil
}

// reconcile runs one dimension's plan/apply cycle.
func (r *Runner) reconcile(ctx context.Context, spec dimensional.Spec, source []dimensional.SourceRow, runDate dimensional.Date) (DimStats, error) {
	snapshot, err := r.Store.Snapshot(ctx, spec.Name)
	if err != nil {
		return DimStats{}, err
	}

	delta, err := dimensional.Reconcile(snapshot, source, runDate, spec,
		dimensional.Options{CloseMissing: r.Config.CloseMissing})
	if err != nil {
		return DimStats{}, err
	}

	stats := DimStats{SourceKeys: len(source)}
	if delta.Empty() {
		return stats, nil
	}

	applied, err := r.Store.ApplyDelta(ctx, spec.Name, delta)
	if err != nil {
		return DimStats{}, err
	}
	stats.Closed = applied.Closed
	stats.Inserted = len(applied.Inserted)
	return stats, nil
}

// ensureCalendar builds the calendar dimension when it is absent or its
// range differs from the configured one.
func (r *Runner) ensureCalendar(ctx context.Context) ([]dimensional.CalendarRow, error) {
	from, to := r.Config.CalendarFrom, r.Config.CalendarTo
	if from.IsZero() || to.IsZero() {
		from, to = dimensional.DefaultCalendarRange()
	}

	existing, err := r.Store.Calendar(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading calendar: %w", err)
	}
	if len(existing) > 0 &&
		existing[0].Date.Equal(from) &&
		existing[len(existing)-1].Date.Equal(to) {
		return existing, nil
	}

	rows, err := dimensional.BuildCalendar(from, to)
	if err != nil {
		return nil, err
	}
	if err := r.Store.ReplaceCalendar(ctx, rows); err != nil {
		return nil, fmt.Errorf("publishing calendar: %w", err)
	}
	return rows, nil
}
