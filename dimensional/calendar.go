/*
calendar.go - Calendar dimension builder

PURPOSE:
  Generates one row per calendar day in a closed range, with attributes
  derived deterministically from the date alone. Pure function, trivially
  idempotent: regenerating the same range yields identical rows including
  date surrogate keys.

The calendar is a required join partner for every fact table. Facts whose
date falls outside the generated range are dropped by the fact engine and
counted, so size the range to cover the business data.
*/
package dimensional

// DefaultCalendarRange is the range the pipeline generates when not
// configured otherwise.
func DefaultCalendarRange() (Date, Date) {
	return NewDate(2023, 1, 1), NewDate(2023, 12, 31)
}

// BuildCalendar emits one CalendarRow per day in [from, to], date surrogate
// keys sequential from 0.
func BuildCalendar(from, to Date) ([]CalendarRow, error) {
	if to.Before(from) {
		return nil, ErrInvalidRange
	}

	rows := make([]CalendarRow, 0, DaysBetween(from, to)+1)
	sk := int64(0)
	for d := from; !d.After(to); d = d.AddDays(1) {
		rows = append(rows, CalendarRow{
			DateSK:  sk,
			Date:    d,
			Year:    d.Year(),
			Month:   int(d.Month()),
			Day:     d.Day(),
			DayName: d.Weekday().String(),
			Quarter: d.Quarter(),
		})
		sk++
	}
	return rows, nil
}

// IndexCalendar maps date (YYYY-MM-DD) to date surrogate key for fact joins.
func IndexCalendar(rows []CalendarRow) map[string]int64 {
	idx := make(map[string]int64, len(rows))
	for _, r := range rows {
		idx[r.Date.String()] = r.DateSK
	}
	return idx
}
