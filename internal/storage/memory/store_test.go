package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"expenses/internal/core"
	"expenses/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newExpense(desc string) core.NewExpense {
	return core.NewExpense{Description: desc, Amount: core.MustParseAmount("1.50"), Category: core.Groceries}
}

func TestCreateListDelete(t *testing.T) {
	ctx := context.Background()
	s := New()

	a, err := s.Create(ctx, newExpense("Apples"))
	require.NoError(t, err)
	b, err := s.Create(ctx, newExpense(" Bananas "))
	require.NoError(t, err)
	assert.Equal(t, int64(1), a.ID)
	assert.Equal(t, int64(2), b.ID)
	assert.Equal(t, "Bananas", b.Description)

	got, err := s.Delete(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a, got)

	recs, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []core.ExpenseRecord{b}, recs)

	_, err = s.Delete(ctx, a.ID)
	assert.ErrorIs(t, err, ports.ErrNotFound)
	recs, _ = s.List(ctx)
	assert.Len(t, recs, 1)
}

func TestCreateInvalid(t *testing.T) {
	s := New()
	_, err := s.Create(context.Background(), newExpense("no"))
	var ve *core.ValidationError
	require.True(t, errors.As(err, &ve))
	recs, _ := s.List(context.Background())
	assert.Empty(t, recs)
}

func TestListReturnsCopy(t *testing.T) {
	s := NewSeeded(core.ExpenseRecord{ID: 9, Description: "Seeded", Amount: core.AmountFromCents(1), Category: core.Utilities})
	recs, _ := s.List(context.Background())
	recs[0].Description = "changed"
	again, _ := s.List(context.Background())
	assert.Equal(t, "Seeded", again[0].Description)

	rec, err := s.Create(context.Background(), newExpense("After seed"))
	require.NoError(t, err)
	assert.Equal(t, int64(10), rec.ID)
}

func TestConcurrentCreatesGetUniqueIDs(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Create(context.Background(), newExpense("Parallel"))
		}()
	}
	wg.Wait()

	recs, _ := s.List(context.Background())
	seen := map[int64]bool{}
	for _, r := range recs {
		assert.False(t, seen[r.ID])
		seen[r.ID] = true
	}
	assert.Len(t, seen, 50)
}
