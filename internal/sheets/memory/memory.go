// Package memory is an in-process record mirror, used when no spreadsheet
// is configured and in tests.
package memory

import (
	"context"
	"sync"

	"expenses/internal/core"
	"expenses/internal/ports"
)

type Mirror struct {
	mu   sync.Mutex
	rows []core.ExpenseRecord
}

var _ ports.RecordMirror = (*Mirror)(nil)

func New() *Mirror { return &Mirror{} }

func (m *Mirror) AppendRecord(_ context.Context, rec core.ExpenseRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.indexLocked(rec.ID) >= 0 {
		return nil
	}
	m.rows = append(m.rows, rec)
	return nil
}

func (m *Mirror) DeleteRecord(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.indexLocked(id); i >= 0 {
		m.rows = append(m.rows[:i], m.rows[i+1:]...)
	}
	return nil
}

func (m *Mirror) MirroredIDs(_ context.Context) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int64, len(m.rows))
	for i, r := range m.rows {
		ids[i] = r.ID
	}
	return ids, nil
}

// Records returns a copy of the mirrored rows.
func (m *Mirror) Records() []core.ExpenseRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]core.ExpenseRecord, len(m.rows))
	copy(out, m.rows)
	return out
}

func (m *Mirror) indexLocked(id int64) int {
	for i, r := range m.rows {
		if r.ID == id {
			return i
		}
	}
	return -1
}
