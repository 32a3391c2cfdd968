// Package memory provides an in-process record store. Records are lost when
// the process exits.
package memory

import (
	"context"
	"sync"

	"expenses/internal/core"
	"expenses/internal/ports"
)

type Store struct {
	mu     sync.Mutex
	items  []core.ExpenseRecord
	nextID int64
}

var _ ports.RecordStore = (*Store)(nil)

func New() *Store {
	return &Store{nextID: 1}
}

// NewSeeded returns a store holding the given records. Seeded ids are kept
// and new ids continue after the largest one.
func NewSeeded(recs ...core.ExpenseRecord) *Store {
	s := New()
	for _, r := range recs {
		s.items = append(s.items, r)
		if r.ID >= s.nextID {
			s.nextID = r.ID + 1
		}
	}
	return s
}

func (s *Store) List(_ context.Context) ([]core.ExpenseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.ExpenseRecord, len(s.items))
	copy(out, s.items)
	return out, nil
}

func (s *Store) Create(_ context.Context, e core.NewExpense) (core.ExpenseRecord, error) {
	if err := e.Validate(); err != nil {
		return core.ExpenseRecord{}, err
	}
	e = e.Normalize()

	s.mu.Lock()
	defer s.mu.Unlock()
	rec := core.ExpenseRecord{
		ID:          s.nextID,
		Description: e.Description,
		Amount:      core.AmountFromCents(e.Amount.Cents()),
		Category:    e.Category,
	}
	s.nextID++
	s.items = append(s.items, rec)
	return rec, nil
}

func (s *Store) Delete(_ context.Context, id int64) (core.ExpenseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.items {
		if r.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return r, nil
		}
	}
	return core.ExpenseRecord{}, ports.ErrNotFound
}

func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() error { return nil }
