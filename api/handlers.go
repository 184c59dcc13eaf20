/*
handlers.go - HTTP API handlers for the warehouse pipeline

PURPOSE:
  Exposes the star-schema warehouse and the pipeline runner via REST API.
  Handles HTTP request/response, JSON serialization, and delegates to
  domain logic.

ENDPOINTS:
  Runs:
    POST   /api/runs                   Trigger a pipeline run
    GET    /api/runs                   List recent runs
    GET    /api/runs/{id}              Get one run

  Dimensions:
    GET    /api/dimensions/{name}      Full version history of a dimension
                                       (?current=true for current rows only)

  Facts:
    GET    /api/facts/portfolio-value  Portfolio valuation facts
    GET    /api/facts/transactions     Transaction facts
    GET    /api/facts/market-prices    Daily market price facts

  Calendar:
    GET    /api/calendar               Calendar dimension rows

  Quality:
    GET    /api/quality                Drop counters of the latest run

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Warehouse access
  - Runner: Pipeline execution

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Conflict (concurrent writer detected mid-run)
  - 422: Source data rejected (ambiguous attributes)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - pipeline/runner.go: Run orchestration
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Aashima-91/crypto-investment-platform-pipeline/dimensional"
	"github.com/Aashima-91/crypto-investment-platform-pipeline/facts"
	"github.com/Aashima-91/crypto-investment-platform-pipeline/pipeline"
	"github.com/Aashima-91/crypto-investment-platform-pipeline/warehouse/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  *sqlite.Store
	Runner *pipeline.Runner
}

// NewHandler creates a new handler with the given store and runner.
func NewHandler(store *sqlite.Store, runner *pipeline.Runner) *Handler {
	return &Handler{Store: store, Runner: runner}
}

// =============================================================================
// RUN HANDLERS
// =============================================================================

// TriggerRun starts a synchronous pipeline run.
func (h *Handler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	var req TriggerRunRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	var runDate dimensional.Date
	if req.RunDate != "" {
		d, err := dimensional.ParseDate(req.RunDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid run_date format (use YYYY-MM-DD)", err)
			return
		}
		runDate = d
	}

	result, err := h.Runner.Run(r.Context(), runDate)
	if err != nil {
		writeError(w, runStatusCode(err), "Pipeline run failed", err)
		return
	}

	record, err := h.Store.GetRun(r.Context(), result.RunID)
	if err != nil || record == nil {
		writeError(w, http.StatusInternalServerError, "Failed to load run record", err)
		return
	}
	writeJSON(w, http.StatusCreated, toRunDTO(*record))
}

// ListRuns returns recent runs, newest first.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	records, err := h.Store.ListRuns(r.Context(), 0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list runs", err)
		return
	}

	dtos := make([]RunDTO, len(records))
	for i, rec := range records {
		dtos[i] = toRunDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetRun returns one run by ID.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	record, err := h.Store.GetRun(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get run", err)
		return
	}
	if record == nil {
		writeError(w, http.StatusNotFound, "Run not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toRunDTO(*record))
}

// =============================================================================
// DIMENSION HANDLERS
// =============================================================================

// GetDimension returns the version history of one dimension. With
// ?current=true only the open versions are returned.
func (h *Handler) GetDimension(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name != facts.DimCustomer && name != facts.DimAsset {
		writeError(w, http.StatusNotFound, "Unknown dimension", nil)
		return
	}

	rows, err := h.Store.Snapshot(r.Context(), name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read dimension", err)
		return
	}

	if r.URL.Query().Get("current") == "true" {
		filtered := rows[:0]
		for _, row := range rows {
			if row.IsCurrent {
				filtered = append(filtered, row)
			}
		}
		rows = filtered
	}

	dtos := make([]DimensionRowDTO, len(rows))
	for i, row := range rows {
		dtos[i] = toDimensionRowDTO(row)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// FACT HANDLERS
// =============================================================================

// GetPortfolioValues returns the portfolio valuation fact table.
func (h *Handler) GetPortfolioValues(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Store.PortfolioValues(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read portfolio values", err)
		return
	}
	dtos := make([]PortfolioValueDTO, len(rows))
	for i, row := range rows {
		dtos[i] = toPortfolioValueDTO(row)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetTransactions returns the transaction fact table.
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Store.FactTransactions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read transactions", err)
		return
	}
	dtos := make([]TransactionFactDTO, len(rows))
	for i, row := range rows {
		dtos[i] = toTransactionFactDTO(row)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetMarketPrices returns the daily market price fact table.
func (h *Handler) GetMarketPrices(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Store.MarketPrices(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read market prices", err)
		return
	}
	dtos := make([]MarketPriceDTO, len(rows))
	for i, row := range rows {
		dtos[i] = toMarketPriceDTO(row)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// CALENDAR HANDLER
// =============================================================================

// GetCalendar returns the calendar dimension.
func (h *Handler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Store.Calendar(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read calendar", err)
		return
	}
	dtos := make([]CalendarDayDTO, len(rows))
	for i, row := range rows {
		dtos[i] = toCalendarDayDTO(row)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// QUALITY HANDLER
// =============================================================================

// GetQuality returns the referential drop counters of the latest
// completed run.
func (h *Handler) GetQuality(w http.ResponseWriter, r *http.Request) {
	record, err := h.Store.LatestRun(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get latest run", err)
		return
	}
	if record == nil || record.StatsJSON == "" {
		writeError(w, http.StatusNotFound, "No completed run yet", nil)
		return
	}

	var stats pipeline.RunStats
	if err := json.Unmarshal([]byte(record.StatsJSON), &stats); err != nil {
		writeError(w, http.StatusInternalServerError, "Corrupt run stats", err)
		return
	}

	writeJSON(w, http.StatusOK, QualityDTO{
		RunID:   record.ID,
		RunDate: record.RunDate,
		Facts:   stats.Facts,
		RowsDropped: stats.Facts.PortfolioValue.Dropped() +
			stats.Facts.Transactions.Dropped() +
			stats.Facts.MarketPrices.Dropped(),
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func runStatusCode(err error) int {
	switch {
	case errors.Is(err, dimensional.ErrConcurrentModification):
		return http.StatusConflict
	case errors.Is(err, dimensional.ErrAmbiguousSource),
		errors.Is(err, dimensional.ErrCorruptDimension):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
