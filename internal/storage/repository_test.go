package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"expenses/internal/core"
	applog "expenses/internal/log"
	"expenses/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// RepositoryTestSuite runs the record store contract against a SQLite file.
type RepositoryTestSuite struct {
	suite.Suite
	path string
	repo *SQLiteRepository
	ctx  context.Context
}

func (s *RepositoryTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.path = filepath.Join(s.T().TempDir(), "nested", "expenses.db")
	repo, err := NewSQLiteRepository(s.path, nil)
	require.NoError(s.T(), err, "failed to create test database")
	s.repo = repo
}

func (s *RepositoryTestSuite) TearDownTest() {
	if s.repo != nil {
		s.repo.Close()
	}
}

func (s *RepositoryTestSuite) create(desc, amount string, cat core.Category) core.ExpenseRecord {
	rec, err := s.repo.Create(s.ctx, core.NewExpense{
		Description: desc,
		Amount:      core.MustParseAmount(amount),
		Category:    cat,
	})
	require.NoError(s.T(), err)
	return rec
}

func (s *RepositoryTestSuite) TestListEmpty() {
	recs, err := s.repo.List(s.ctx)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), recs)
	assert.NotNil(s.T(), recs)
}

func (s *RepositoryTestSuite) TestCreateRoundTrip() {
	rec := s.create("  Milk and eggs ", "12.5", core.Groceries)
	assert.Positive(s.T(), rec.ID)
	assert.Equal(s.T(), "Milk and eggs", rec.Description)
	assert.Equal(s.T(), int64(1250), rec.Amount.Cents())

	recs, err := s.repo.List(s.ctx)
	require.NoError(s.T(), err)
	require.Len(s.T(), recs, 1)
	assert.Equal(s.T(), rec, recs[0])
}

func (s *RepositoryTestSuite) TestCreateAssignsUniqueIDsInOrder() {
	a := s.create("Rent share", "400", core.Utilities)
	b := s.create("Cinema", "9.99", core.Entertainment)
	c := s.create("Bread", "2.10", core.Groceries)
	assert.Less(s.T(), a.ID, b.ID)
	assert.Less(s.T(), b.ID, c.ID)

	recs, err := s.repo.List(s.ctx)
	require.NoError(s.T(), err)
	require.Len(s.T(), recs, 3)
	assert.Equal(s.T(), []int64{a.ID, b.ID, c.ID}, []int64{recs[0].ID, recs[1].ID, recs[2].ID})
}

func (s *RepositoryTestSuite) TestCreateRejectsInvalidWithoutWriting() {
	cases := []core.NewExpense{
		{Description: "ab", Amount: core.MustParseAmount("1"), Category: core.Groceries},
		{Description: "    ", Amount: core.MustParseAmount("1"), Category: core.Groceries},
		{Description: "Coffee", Amount: core.MustParseAmount("1.234"), Category: core.Groceries},
		{Description: "Coffee", Amount: core.MustParseAmount("1"), Category: "Travel"},
	}
	for _, in := range cases {
		_, err := s.repo.Create(s.ctx, in)
		var ve *core.ValidationError
		assert.True(s.T(), errors.As(err, &ve), "input %+v", in)
	}
	recs, err := s.repo.List(s.ctx)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), recs)
}

func (s *RepositoryTestSuite) TestDeleteReturnsRecord() {
	a := s.create("Groceries run", "30", core.Groceries)
	b := s.create("Water bill", "45.20", core.Utilities)

	got, err := s.repo.Delete(s.ctx, a.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), a, got)

	recs, err := s.repo.List(s.ctx)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), []core.ExpenseRecord{b}, recs)
}

func (s *RepositoryTestSuite) TestDeleteMissingIsNotFoundAndDoesNotMutate() {
	a := s.create("Concert", "55", core.Entertainment)

	for _, id := range []int64{a.ID + 100, 0, -5} {
		_, err := s.repo.Delete(s.ctx, id)
		assert.ErrorIs(s.T(), err, ports.ErrNotFound)
	}

	recs, err := s.repo.List(s.ctx)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), []core.ExpenseRecord{a}, recs)

	_, err = s.repo.Delete(s.ctx, a.ID)
	require.NoError(s.T(), err)
	_, err = s.repo.Delete(s.ctx, a.ID)
	assert.ErrorIs(s.T(), err, ports.ErrNotFound)
}

func (s *RepositoryTestSuite) TestIDsAreNotReused() {
	a := s.create("First one", "1", core.Groceries)
	_, err := s.repo.Delete(s.ctx, a.ID)
	require.NoError(s.T(), err)
	b := s.create("Second one", "1", core.Groceries)
	assert.Greater(s.T(), b.ID, a.ID)
}

func (s *RepositoryTestSuite) TestReopenKeepsDataAndSchema() {
	a := s.create("Persisted", "3.30", core.Utilities)
	require.NoError(s.T(), s.repo.Close())

	repo, err := NewSQLiteRepository(s.path, nil)
	require.NoError(s.T(), err)
	s.repo = repo

	recs, err := s.repo.List(s.ctx)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), []core.ExpenseRecord{a}, recs)

	v, dirty, err := SchemaVersion(s.path)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), uint(1), v)
	assert.False(s.T(), dirty)
}

func (s *RepositoryTestSuite) TestPing() {
	assert.NoError(s.T(), s.repo.Ping(s.ctx))
}

func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}

func TestRepositoryLogsThroughComponentLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := applog.New(applog.Config{Level: slog.LevelInfo, Format: "json", Output: &buf})

	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "expenses.db"), logger)
	require.NoError(t, err)
	defer repo.Close()

	ctx := context.Background()
	rec, err := repo.Create(ctx, core.NewExpense{
		Description: "Milk",
		Amount:      core.MustParseAmount("1.99"),
		Category:    core.Groceries,
	})
	require.NoError(t, err)
	_, err = repo.Delete(ctx, rec.ID)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	for i, op := range []string{applog.OpCreate, applog.OpDelete} {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(lines[i]), &entry))
		assert.Equal(t, applog.ComponentStorage, entry[applog.FieldComponent])
		assert.Equal(t, op, entry[applog.FieldOperation])
		assert.EqualValues(t, rec.ID, entry[applog.FieldExpenseID])
		assert.EqualValues(t, 199, entry[applog.FieldAmountCents])
	}
}
