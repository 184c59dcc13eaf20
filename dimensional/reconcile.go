/*
reconcile.go - SCD2 reconciliation algorithm

PURPOSE:
  Given a dimension's current snapshot and a new source-of-truth snapshot,
  compute the minimal set of closures and inserts that keeps the dimension
  history-correct and idempotent. This replaces the declarative
  MERGE ... WHEN MATCHED / WHEN NOT MATCHED with an explicit two-phase
  algorithm: (1) plan the close-set and insert-set, (2) the store applies
  both atomically.

ALGORITHM (per natural key, independently):
  - No current row            -> insert [runDate, infinity), is_current=true
  - Any tracked attr differs  -> close current at runDate + insert new version
  - All tracked attrs match   -> no-op
  - Key absent from source    -> untouched by default; closed only when
                                 Options.CloseMissing is set

CHANGE DETECTION:
  Attribute-by-attribute string equality over Spec.Tracked. Any single
  differing attribute triggers a full new version; there is no
  partial-attribute versioning. A dimension with no tracked attributes can
  only ever gain first-appearance rows.

IDEMPOTENCE:
  Re-running with identical source data yields an empty delta. Surrogate
  keys already issued never change.

SAME-DAY CHANGES:
  A value that changes twice on the same run date produces a closed row with
  an empty interval [d, d). The tiling invariant still holds: empty
  intervals overlap nothing.

SEE ALSO:
  - store.go: Atomic apply contract (the concurrency hazard lives there)
  - validate.go: Invariant checks over a full dimension snapshot
*/
package dimensional

import "sort"

// Options controls reconciliation policy knobs.
type Options struct {
	// CloseMissing closes the current row of any natural key absent from the
	// source snapshot (soft delete). Off by default: absence is not deletion.
	CloseMissing bool
}

// Reconcile computes the delta that brings the dimension described by spec in
// line with the source snapshot as of runDate.
//
// current must be the full snapshot of the dimension (all versions, or at
// minimum every current row). source is the source-of-truth snapshot for this
// run; duplicate keys with identical tracked attributes are collapsed,
// duplicates with conflicting attributes are an AmbiguousSourceError.
func Reconcile(current []Row, source []SourceRow, runDate Date, spec Spec, opts Options) (Delta, error) {
	delta := Delta{Dimension: spec.Name, RunDate: runDate}

	truth, err := collapseSource(source, spec)
	if err != nil {
		return Delta{}, err
	}

	currentByKey, err := indexCurrent(current, spec)
	if err != nil {
		return Delta{}, err
	}

	// Deterministic plan order: sorted natural keys.
	keys := make([]string, 0, len(truth))
	for k := range truth {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)

	for _, k := range keys {
		key := NaturalKey(k)
		src := truth[key]
		cur, exists := currentByKey[key]

		switch {
		case !exists:
			delta.Inserts = append(delta.Inserts, Insert{
				Key:            key,
				Attrs:          copyAttrs(src.Attrs),
				EffectiveStart: runDate,
			})
		case attrsDiffer(cur.Attrs, src.Attrs, spec.Tracked):
			delta.Closures = append(delta.Closures, Closure{
				SK:           cur.SK,
				Key:          key,
				EffectiveEnd: runDate,
			})
			delta.Inserts = append(delta.Inserts, Insert{
				Key:            key,
				Attrs:          copyAttrs(src.Attrs),
				EffectiveStart: runDate,
			})
		}
	}

	if opts.CloseMissing {
		missing := make([]string, 0)
		for k := range currentByKey {
			if _, ok := truth[k]; !ok {
				missing = append(missing, string(k))
			}
		}
		sort.Strings(missing)
		for _, k := range missing {
			cur := currentByKey[NaturalKey(k)]
			delta.Closures = append(delta.Closures, Closure{
				SK:           cur.SK,
				Key:          NaturalKey(k),
				EffectiveEnd: runDate,
			})
		}
	}

	return delta, nil
}

// collapseSource normalizes keys and deduplicates the source snapshot.
// Identical duplicates collapse; conflicting duplicates are fatal.
func collapseSource(source []SourceRow, spec Spec) (map[NaturalKey]SourceRow, error) {
	truth := make(map[NaturalKey]SourceRow, len(source))
	for _, row := range source {
		key := NormalizeKey(string(row.Key))
		if key == "" {
			continue
		}
		prev, seen := truth[key]
		if !seen {
			truth[key] = SourceRow{Key: key, Attrs: row.Attrs}
			continue
		}
		for _, attr := range spec.Tracked {
			if prev.Attrs[attr] != row.Attrs[attr] {
				return nil, &AmbiguousSourceError{
					Dimension: spec.Name,
					Key:       key,
					Attribute: attr,
					A:         prev.Attrs[attr],
					B:         row.Attrs[attr],
				}
			}
		}
	}
	return truth, nil
}

// indexCurrent maps natural key to its single current row, rejecting
// snapshots that already violate exactly-one-current.
func indexCurrent(current []Row, spec Spec) (map[NaturalKey]Row, error) {
	byKey := make(map[NaturalKey]Row)
	for _, row := range current {
		if !row.IsCurrent {
			continue
		}
		key := NormalizeKey(string(row.Key))
		if _, dup := byKey[key]; dup {
			return nil, &CorruptDimensionError{Dimension: spec.Name, Key: key, Count: 2}
		}
		byKey[key] = row
	}
	return byKey, nil
}

func attrsDiffer(current, source map[string]string, tracked []string) bool {
	for _, attr := range tracked {
		if current[attr] != source[attr] {
			return true
		}
	}
	return false
}

func copyAttrs(attrs map[string]string) map[string]string {
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}
