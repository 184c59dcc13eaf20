/*
validate.go - Dimension invariant checks

PURPOSE:
  Verifies the SCD2 invariants over a full dimension snapshot:
  1. At most one current row per natural key, ending at infinity
     (zero is legal only for keys retired by a close-missing run)
  2. Validity intervals tile time without gap or overlap since the key's
     first appearance
  3. Closed rows end where the next version starts

Used by tests and available to callers that want to audit a dimension after
external writes.
*/
package dimensional

import (
	"fmt"
	"sort"
)

// Validate checks the SCD2 invariants for every natural key present in rows.
// Returns nil when the dimension is history-correct.
func Validate(rows []Row) error {
	byKey := make(map[NaturalKey][]Row)
	for _, r := range rows {
		byKey[NormalizeKey(string(r.Key))] = append(byKey[NormalizeKey(string(r.Key))], r)
	}

	for key, versions := range byKey {
		sort.Slice(versions, func(i, j int) bool {
			if !versions[i].EffectiveStart.Equal(versions[j].EffectiveStart) {
				return versions[i].EffectiveStart.Before(versions[j].EffectiveStart)
			}
			return versions[i].SK < versions[j].SK
		})

		currents := 0
		for i, v := range versions {
			if v.EffectiveEnd.Before(v.EffectiveStart) {
				return fmt.Errorf("key %q: version sk=%d has end before start", key, v.SK)
			}
			if v.IsCurrent {
				currents++
				if !v.EffectiveEnd.IsInfinity() {
					return fmt.Errorf("key %q: current version sk=%d does not end at infinity", key, v.SK)
				}
				if i != len(versions)-1 {
					return fmt.Errorf("key %q: current version sk=%d is not the latest version", key, v.SK)
				}
			} else if v.EffectiveEnd.IsInfinity() {
				return fmt.Errorf("key %q: closed version sk=%d ends at infinity", key, v.SK)
			}
			if i > 0 {
				prev := versions[i-1]
				if !prev.EffectiveEnd.Equal(v.EffectiveStart) {
					return fmt.Errorf("key %q: gap or overlap between sk=%d (end %s) and sk=%d (start %s)",
						key, prev.SK, prev.EffectiveEnd, v.SK, v.EffectiveStart)
				}
			}
		}
		// Zero current rows is legal: the key was retired by a
		// close-missing run. More than one never is.
		if currents > 1 {
			return &CorruptDimensionError{Key: key, Count: currents}
		}
	}
	return nil
}

// CurrentRows filters a snapshot down to current versions, keyed by
// normalized natural key.
func CurrentRows(rows []Row) map[NaturalKey]Row {
	out := make(map[NaturalKey]Row)
	for _, r := range rows {
		if r.IsCurrent {
			out[NormalizeKey(string(r.Key))] = r
		}
	}
	return out
}
