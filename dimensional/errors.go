/*
errors.go - Centralized error types for the dimensional engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers wrap these with additional context.

ERROR CATEGORIES:
  1. Structural errors - Bad source data or corrupt snapshots. Fatal;
     surfaced whole to the caller, never auto-resolved.
  2. Store errors - Atomic apply/replace failures. Fatal; prior committed
     state must remain unchanged.
  3. Data-quality anomalies - Missing references, undefined returns. These
     are NOT errors here: they are recovered locally with a sentinel
     (dropped row, null value) and surfaced as counters.

USAGE:
  if errors.Is(err, dimensional.ErrAmbiguousSource) {
      // conflicting duplicates in one source snapshot - fix upstream
  }

SEE ALSO:
  - reconcile.go: Produces AmbiguousSourceError and CorruptDimensionError
  - store.go: Apply contract and conflict semantics
*/
package dimensional

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrAmbiguousSource is returned when a source snapshot contains the same
	// natural key twice with differing tracked attributes. The engine does
	// not guess which version is true.
	ErrAmbiguousSource = errors.New("ambiguous source: duplicate natural key with conflicting attributes")

	// ErrCorruptDimension is returned when the current snapshot violates the
	// exactly-one-current invariant. Reconciling on top of a corrupt
	// snapshot would compound the damage.
	ErrCorruptDimension = errors.New("corrupt dimension: multiple current rows for natural key")

	// ErrConcurrentModification is returned when an atomic apply detects that
	// the snapshot the delta was computed from is stale (another run closed
	// or inserted a current row in between). Retry with a fresh snapshot.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrWriteFailed is returned when an atomic apply or replace cannot
	// commit. No partial rows are visible.
	ErrWriteFailed = errors.New("relation write failed")

	// ErrInvalidRange is returned for a calendar range with end before start.
	ErrInvalidRange = errors.New("invalid calendar range: end before start")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// AmbiguousSourceError identifies the conflicting key and attribute.
type AmbiguousSourceError struct {
	Dimension string
	Key       NaturalKey
	Attribute string
	A, B      string
}

func (e *AmbiguousSourceError) Error() string {
	return fmt.Sprintf("dimension %s: key %q has conflicting values for %q (%q vs %q)",
		e.Dimension, e.Key, e.Attribute, e.A, e.B)
}

func (e *AmbiguousSourceError) Unwrap() error { return ErrAmbiguousSource }

// CorruptDimensionError identifies the key with more than one current row.
type CorruptDimensionError struct {
	Dimension string
	Key       NaturalKey
	Count     int
}

func (e *CorruptDimensionError) Error() string {
	return fmt.Sprintf("dimension %s: key %q has %d current rows, want exactly 1",
		e.Dimension, e.Key, e.Count)
}

func (e *CorruptDimensionError) Unwrap() error { return ErrCorruptDimension }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry with a fresh
// snapshot.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// IsSourceError returns true if the error is caused by bad input data rather
// than the store. These must be fixed upstream.
func IsSourceError(err error) bool {
	return errors.Is(err, ErrAmbiguousSource) || errors.Is(err, ErrCorruptDimension)
}
