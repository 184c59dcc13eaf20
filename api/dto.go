/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal warehouse model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific formatting (dates as YYYY-MM-DD strings, decimals as strings)
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Runs:
    RunDTO, TriggerRunRequest

  Dimensions:
    DimensionRowDTO

  Facts:
    PortfolioValueDTO, TransactionFactDTO, MarketPriceDTO

  Calendar:
    CalendarDayDTO

  Quality:
    QualityDTO

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - pipeline/runner.go: RunStats embedded in RunDTO
*/
package api

import (
	"encoding/json"
	"time"

	"github.com/Aashima-91/crypto-investment-platform-pipeline/dimensional"
	"github.com/Aashima-91/crypto-investment-platform-pipeline/facts"
	"github.com/Aashima-91/crypto-investment-platform-pipeline/model"
	"github.com/Aashima-91/crypto-investment-platform-pipeline/pipeline"
	"github.com/Aashima-91/crypto-investment-platform-pipeline/warehouse/sqlite"
	"github.com/shopspring/decimal"
)

// =============================================================================
// RUNS
// =============================================================================

// TriggerRunRequest is the request to start a pipeline run.
type TriggerRunRequest struct {
	// RunDate is optional; empty means today.
	RunDate string `json:"run_date,omitempty"`
}

// RunDTO represents one pipeline run in API responses.
type RunDTO struct {
	ID          string             `json:"id"`
	RunDate     string             `json:"run_date"`
	Status      string             `json:"status"`
	Error       string             `json:"error,omitempty"`
	Stats       *pipeline.RunStats `json:"stats,omitempty"`
	StartedAt   string             `json:"started_at"`
	CompletedAt string             `json:"completed_at,omitempty"`
}

// =============================================================================
// DIMENSIONS
// =============================================================================

// DimensionRowDTO represents one version of a dimension member.
type DimensionRowDTO struct {
	SK             int64             `json:"sk"`
	NaturalKey     string            `json:"natural_key"`
	Attributes     map[string]string `json:"attributes"`
	EffectiveStart string            `json:"effective_start"`
	EffectiveEnd   string            `json:"effective_end"`
	IsCurrent      bool              `json:"is_current"`
}

func toDimensionRowDTO(row dimensional.Row) DimensionRowDTO {
	return DimensionRowDTO{
		SK:             int64(row.SK),
		NaturalKey:     string(row.Key),
		Attributes:     row.Attrs,
		EffectiveStart: row.EffectiveStart.String(),
		EffectiveEnd:   row.EffectiveEnd.String(),
		IsCurrent:      row.IsCurrent,
	}
}

// =============================================================================
// FACTS
// =============================================================================

// PortfolioValueDTO represents one portfolio valuation fact.
type PortfolioValueDTO struct {
	CustomerSK       int64   `json:"customer_sk"`
	AssetSK          int64   `json:"asset_sk"`
	DateSK           int64   `json:"date_sk"`
	Quantity         string  `json:"quantity"`
	PriceUSD         *string `json:"price_usd"`
	PositionValueUSD *string `json:"position_value_usd"`
}

func toPortfolioValueDTO(f model.FactPortfolioValue) PortfolioValueDTO {
	return PortfolioValueDTO{
		CustomerSK:       int64(f.CustomerSK),
		AssetSK:          int64(f.AssetSK),
		DateSK:           f.DateSK,
		Quantity:         f.Quantity.String(),
		PriceUSD:         nullDecimalPtr(f.PriceUSD),
		PositionValueUSD: nullDecimalPtr(f.PositionValueUSD),
	}
}

// TransactionFactDTO represents one transaction fact.
type TransactionFactDTO struct {
	CustomerSK      int64  `json:"customer_sk"`
	AssetSK         int64  `json:"asset_sk"`
	DateSK          int64  `json:"date_sk"`
	TransactionID   string `json:"transaction_id"`
	TransactionType string `json:"transaction_type"`
	Quantity        string `json:"quantity"`
	PriceUSD        string `json:"price_usd"`
	AmountUSD       string `json:"amount_usd"`
}

func toTransactionFactDTO(f model.FactTransaction) TransactionFactDTO {
	return TransactionFactDTO{
		CustomerSK:      int64(f.CustomerSK),
		AssetSK:         int64(f.AssetSK),
		DateSK:          f.DateSK,
		TransactionID:   f.TransactionID,
		TransactionType: f.TransactionType,
		Quantity:        f.Quantity.String(),
		PriceUSD:        f.PriceUSD.String(),
		AmountUSD:       f.AmountUSD.String(),
	}
}

// MarketPriceDTO represents one daily market price fact.
type MarketPriceDTO struct {
	AssetSK        int64   `json:"asset_sk"`
	DateSK         int64   `json:"date_sk"`
	Open           string  `json:"open"`
	High           string  `json:"high"`
	Low            string  `json:"low"`
	Close          string  `json:"close"`
	Volume         string  `json:"volume"`
	DailyReturnPct *string `json:"daily_return_pct"`
	VolatilityFlag bool    `json:"volatility_flag"`
}

func toMarketPriceDTO(f model.FactMarketPrice) MarketPriceDTO {
	return MarketPriceDTO{
		AssetSK:        int64(f.AssetSK),
		DateSK:         f.DateSK,
		Open:           f.Open.String(),
		High:           f.High.String(),
		Low:            f.Low.String(),
		Close:          f.Close.String(),
		Volume:         f.Volume.String(),
		DailyReturnPct: nullDecimalPtr(f.DailyReturnPct),
		VolatilityFlag: f.VolatilityFlag,
	}
}

// =============================================================================
// CALENDAR
// =============================================================================

// CalendarDayDTO represents one day of the calendar dimension.
type CalendarDayDTO struct {
	DateSK  int64  `json:"date_sk"`
	Date    string `json:"date"`
	Year    int    `json:"year"`
	Month   int    `json:"month"`
	Day     int    `json:"day"`
	DayName string `json:"day_name"`
	Quarter int    `json:"quarter"`
}

func toCalendarDayDTO(row dimensional.CalendarRow) CalendarDayDTO {
	return CalendarDayDTO{
		DateSK:  row.DateSK,
		Date:    row.Date.String(),
		Year:    row.Year,
		Month:   row.Month,
		Day:     row.Day,
		DayName: row.DayName,
		Quarter: row.Quarter,
	}
}

// =============================================================================
// QUALITY
// =============================================================================

// QualityDTO summarizes the referential health of the latest completed run.
type QualityDTO struct {
	RunID       string      `json:"run_id"`
	RunDate     string      `json:"run_date"`
	Facts       facts.Stats `json:"facts"`
	RowsDropped int         `json:"rows_dropped"`
}

// ErrorResponse is the standard error payload.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// HELPERS
// =============================================================================

func nullDecimalPtr(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	s := d.Decimal.String()
	return &s
}

func toRunDTO(r sqlite.RunRecord) RunDTO {
	dto := RunDTO{
		ID:        r.ID,
		RunDate:   r.RunDate,
		Status:    r.Status,
		Error:     r.Error,
		StartedAt: r.StartedAt.UTC().Format(time.RFC3339),
	}
	if r.CompletedAt != nil {
		dto.CompletedAt = r.CompletedAt.UTC().Format(time.RFC3339)
	}
	if r.StatsJSON != "" {
		var stats pipeline.RunStats
		if err := json.Unmarshal([]byte(r.StatsJSON), &stats); err == nil {
			dto.Stats = &stats
		}
	}
	return dto
}
