// Package store provides in-memory implementations of the dimensional
// persistence contracts, for tests and dev.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/Aashima-91/crypto-investment-platform-pipeline/dimensional"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu       sync.RWMutex
	rows     map[string][]dimensional.Row // dimension -> all versions
	calendar []dimensional.CalendarRow
	nextSK   dimensional.SurrogateKey
}

var (
	_ dimensional.DimensionStore = (*Memory)(nil)
	_ dimensional.CalendarStore  = (*Memory)(nil)
)

func NewMemory() *Memory {
	return &Memory{rows: make(map[string][]dimensional.Row), nextSK: 1}
}

// Snapshot returns a copy of every version of the dimension.
func (m *Memory) Snapshot(_ context.Context, dimension string) ([]dimensional.Row, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]dimensional.Row, len(m.rows[dimension]))
	copy(result, m.rows[dimension])
	return result, nil
}

// ApplyDelta applies closures and inserts atomically against a working copy;
// the copy only becomes visible if every precondition holds.
func (m *Memory) ApplyDelta(_ context.Context, dimension string, delta dimensional.Delta) (dimensional.ApplyResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	working := make([]dimensional.Row, len(m.rows[dimension]))
	copy(working, m.rows[dimension])

	var result dimensional.ApplyResult

	// Close first: an insert may legitimately replace a row closed in the
	// same delta.
	for _, c := range delta.Closures {
		idx := -1
		for i, r := range working {
			if r.SK == c.SK && r.IsCurrent {
				idx = i
				break
			}
		}
		if idx < 0 {
			return dimensional.ApplyResult{}, dimensional.ErrConcurrentModification
		}
		working[idx].EffectiveEnd = c.EffectiveEnd
		working[idx].IsCurrent = false
		result.Closed++
	}

	sk := m.nextSK
	for _, ins := range delta.Inserts {
		for _, r := range working {
			if r.IsCurrent && dimensional.NormalizeKey(string(r.Key)) == ins.Key {
				return dimensional.ApplyResult{}, dimensional.ErrConcurrentModification
			}
		}
		row := dimensional.Row{
			SK:             sk,
			Key:            ins.Key,
			Attrs:          ins.Attrs,
			EffectiveStart: ins.EffectiveStart,
			EffectiveEnd:   dimensional.Infinity(),
			IsCurrent:      true,
		}
		sk++
		working = append(working, row)
		result.Inserted = append(result.Inserted, row)
	}

	sort.Slice(working, func(i, j int) bool { return working[i].SK < working[j].SK })

	// Commit
	m.rows[dimension] = working
	m.nextSK = sk
	return result, nil
}

// ReplaceCalendar swaps the calendar relation wholesale.
func (m *Memory) ReplaceCalendar(_ context.Context, rows []dimensional.CalendarRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calendar = make([]dimensional.CalendarRow, len(rows))
	copy(m.calendar, rows)
	return nil
}

func (m *Memory) Calendar(_ context.Context) ([]dimensional.CalendarRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]dimensional.CalendarRow, len(m.calendar))
	copy(result, m.calendar)
	return result, nil
}
