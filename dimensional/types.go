/*
Package dimensional provides the core dimensional-modeling engine.

PURPOSE:
  This package contains the types and algorithms for maintaining
  slowly-changing dimensions (SCD2): history-preserving entity tables with
  system-assigned surrogate keys, validity intervals, and a single current
  version per natural key. It also builds the calendar dimension that fact
  tables join against.

KEY CONCEPTS IN THIS FILE (types.go):
  - Date: A day-granularity point in time (validity interval bounds)
  - Row: One version of a dimension entity with its validity interval
  - SourceRow: The source-of-truth view of an entity for one run
  - Delta: The minimal close-set + insert-set produced by Reconcile
  - Spec: Which attributes of a dimension trigger a new version

DESIGN PRINCIPLES:
  1. Versions are immutable once closed: changes close + insert, never edit
  2. Surrogate keys are assigned by the store, monotonic, never reused
  3. The engine computes a plan (Delta); the store applies it atomically
  4. Natural keys are case-normalized before any matching

USAGE:
  delta, err := dimensional.Reconcile(current, source, runDate, spec, opts)
  if err != nil {
      // ambiguous source, corrupt snapshot - fatal, fix upstream
  }
  result, err := store.ApplyDelta(ctx, spec.Name, delta)

SEE ALSO:
  - reconcile.go: The SCD2 reconciliation algorithm
  - calendar.go: Calendar dimension builder
  - store.go: Atomic apply contract
*/
package dimensional

import (
	"strings"
	"time"
)

// =============================================================================
// DATE - Day-granularity time point for validity intervals
// =============================================================================

// Date is a calendar day in UTC. Validity intervals are half-open [start, end)
// at day granularity; the open-ended current version ends at Infinity().
type Date struct {
	Time time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current wall-clock date. Pipeline runs should take the
// run date as a parameter instead; Today is only the default.
func Today() Date {
	now := time.Now().UTC()
	return NewDate(now.Year(), now.Month(), now.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// Infinity is the open-ended sentinel for the current version's interval end.
func Infinity() Date {
	return NewDate(9999, time.December, 31)
}

// Comparison
func (d Date) Before(other Date) bool { return d.normalize().Before(other.normalize()) }
func (d Date) Equal(other Date) bool  { return d.normalize().Equal(other.normalize()) }
func (d Date) After(other Date) bool  { return d.normalize().After(other.normalize()) }
func (d Date) IsZero() bool           { return d.Time.IsZero() }
func (d Date) IsInfinity() bool       { return d.Equal(Infinity()) }

func (d Date) normalize() time.Time {
	return time.Date(d.Time.Year(), d.Time.Month(), d.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Arithmetic
func (d Date) AddDays(n int) Date { return Date{Time: d.normalize().AddDate(0, 0, n)} }

// Properties
func (d Date) Year() int             { return d.Time.Year() }
func (d Date) Month() time.Month     { return d.Time.Month() }
func (d Date) Day() int              { return d.Time.Day() }
func (d Date) Weekday() time.Weekday { return d.Time.Weekday() }
func (d Date) Quarter() int          { return (int(d.Time.Month())-1)/3 + 1 }

func (d Date) String() string { return d.normalize().Format("2006-01-02") }

// DaysBetween returns the number of days from d to other.
func DaysBetween(from, to Date) int {
	return int(to.normalize().Sub(from.normalize()).Hours() / 24)
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

// SurrogateKey identifies one version of a dimension entity. Assigned by the
// store, monotonically increasing, never reused, never reassigned.
type SurrogateKey int64

// NaturalKey is the business identity of an entity (customer id, asset
// symbol). Stable across versions. Always stored case-normalized.
type NaturalKey string

// NormalizeKey case-folds and trims a natural key before matching.
func NormalizeKey(raw string) NaturalKey {
	return NaturalKey(strings.ToLower(strings.TrimSpace(raw)))
}

// =============================================================================
// DIMENSION ROWS
// =============================================================================

// Row is one version of a dimension entity.
//
// INVARIANTS (per natural key):
//   - Exactly one row has IsCurrent=true and EffectiveEnd=Infinity()
//   - [EffectiveStart, EffectiveEnd) intervals tile time without gap or
//     overlap since the key's first appearance
//   - Closed rows are immutable
type Row struct {
	SK             SurrogateKey
	Key            NaturalKey
	Attrs          map[string]string
	EffectiveStart Date
	EffectiveEnd   Date
	IsCurrent      bool
}

// Attr returns a tracked attribute value ("" if absent).
func (r Row) Attr(name string) string { return r.Attrs[name] }

// SourceRow is the source-of-truth view of one entity for one run.
// Keys are normalized by Reconcile; attributes are compared verbatim.
type SourceRow struct {
	Key   NaturalKey
	Attrs map[string]string
}

// Spec describes a dimension: its name and which attributes trigger a new
// version when they change. A dimension with no tracked attributes (e.g. the
// asset dimension) only ever gains first-appearance rows.
type Spec struct {
	Name    string
	Tracked []string
}

// =============================================================================
// DELTA - The reconciliation plan
// =============================================================================

// Closure closes one current row. The store must verify the row is still
// current when applying; a stale snapshot is a conflict, not a no-op.
type Closure struct {
	SK           SurrogateKey
	Key          NaturalKey
	EffectiveEnd Date
}

// Insert opens a new current version. The store assigns the surrogate key,
// sets EffectiveEnd=Infinity() and IsCurrent=true.
type Insert struct {
	Key            NaturalKey
	Attrs          map[string]string
	EffectiveStart Date
}

// Delta is the minimal set of closures and inserts that brings a dimension in
// line with a source snapshot. Applied atomically: all rows or none.
type Delta struct {
	Dimension string
	RunDate   Date
	Closures  []Closure
	Inserts   []Insert
}

// Empty reports whether applying the delta would be a no-op.
func (d Delta) Empty() bool { return len(d.Closures) == 0 && len(d.Inserts) == 0 }

// ApplyResult reports what an atomic apply did, including the surrogate keys
// the store assigned to inserted versions.
type ApplyResult struct {
	Closed   int
	Inserted []Row
}

// =============================================================================
// CALENDAR DIMENSION
// =============================================================================

// CalendarRow is one day of the calendar dimension. Immutable; the whole
// relation is regenerated when the range changes.
type CalendarRow struct {
	DateSK  int64
	Date    Date
	Year    int
	Month   int
	Day     int
	DayName string
	Quarter int
}
