/*
store.go - Persistence contracts for dimension and calendar relations

PURPOSE:
  Defines the interface between the engine and the underlying transactional
  tabular store. The engine computes plans; the store applies them with the
  atomicity guarantees the plans rely on.

ATOMIC APPLY CONTRACT:
  ApplyDelta is a single atomic conditional merge:
  - All closures and inserts commit together, or none do.
  - Every closure must still target a current row; every insert must not
    collide with a current row it isn't closing. A violated precondition
    means the snapshot the delta was computed from is stale: the apply
    fails whole with ErrConcurrentModification.
  This is what prevents the central hazard: two overlapping runs both
  observing "no current row" and both inserting, leaving two is_current
  rows for one natural key.

OWNERSHIP:
  The reconciliation engine is the sole writer of dimension relations.
  Fact relations have their own stores (see the facts package); no
  component writes a relation it does not own.

IMPLEMENTATIONS:
  - dimensional/store: in-memory, for tests and dev
  - warehouse/sqlite: SQLite-backed, SQL transactions + partial unique index

SEE ALSO:
  - reconcile.go: Produces the deltas applied here
*/
package dimensional

import "context"

// DimensionStore persists SCD2 dimension relations.
type DimensionStore interface {
	// Snapshot returns the full history of a dimension (every version).
	Snapshot(ctx context.Context, dimension string) ([]Row, error)

	// ApplyDelta applies closures and inserts atomically, assigning
	// surrogate keys to inserted versions. Fails whole with
	// ErrConcurrentModification when the delta's preconditions no longer
	// hold, and with ErrWriteFailed when the commit itself fails. In both
	// cases prior committed state is unchanged.
	ApplyDelta(ctx context.Context, dimension string, delta Delta) (ApplyResult, error)
}

// CalendarStore persists the calendar dimension. Wholesale replace only.
type CalendarStore interface {
	// ReplaceCalendar atomically replaces the calendar relation.
	ReplaceCalendar(ctx context.Context, rows []CalendarRow) error

	// Calendar returns the calendar relation ordered by date.
	Calendar(ctx context.Context) ([]CalendarRow, error)
}
