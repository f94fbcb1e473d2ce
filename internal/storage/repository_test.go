package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"myfinances/internal/core"
	"myfinances/internal/log"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "nested", "test.db"), log.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func labeled(date core.Date, text string, amount float64, label, sublabel string) core.LabeledTransaction {
	return core.LabeledTransaction{
		Transaction: core.Transaction{Date: date, Text: text, Amount: amount, Account: "Giro"},
		Label:       label,
		Sublabel:    sublabel,
	}
}

func TestSaveAndLoadImport(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	txs := []core.LabeledTransaction{
		labeled(core.NewDate(2024, 1, 3), "REWE;Einkauf", -12.34, "Food", "Groceries"),
		labeled(core.NewDate(2024, 1, 4), "Gehalt", 2500.1, "Income", "Salary"),
		labeled(core.NewDate(2024, 1, 5), "Rundung", 0.1, "Misc", "Other"),
	}
	imp, err := repo.SaveImport(ctx, "config/main.yaml", txs)
	require.NoError(t, err)
	assert.NotEmpty(t, imp.ID)
	assert.Equal(t, 3, imp.RowCount)

	got, err := repo.LoadTransactions(ctx, imp.ID)
	require.NoError(t, err)
	assert.Equal(t, txs, got)

	fetched, err := repo.GetImport(ctx, imp.ID)
	require.NoError(t, err)
	assert.Equal(t, imp.ID, fetched.ID)
	assert.Equal(t, "config/main.yaml", fetched.Source)
	assert.True(t, imp.CreatedAt.Equal(fetched.CreatedAt))
}

func TestLatestImport(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.LatestImport(ctx)
	assert.ErrorIs(t, err, ErrNoImports)
	_, _, err = repo.LoadLatest(ctx)
	assert.ErrorIs(t, err, ErrNoImports)

	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	var ids []string
	for i, ms := range []int{100, 120, 900} {
		repo.now = func() time.Time { return base.Add(time.Duration(ms) * time.Millisecond) }
		imp, err := repo.SaveImport(ctx, "run", []core.LabeledTransaction{
			labeled(core.NewDate(2024, 1, 1+i), "row", float64(-i), "L", "S"),
		})
		require.NoError(t, err)
		ids = append(ids, imp.ID)
	}

	imp, txs, err := repo.LoadLatest(ctx)
	require.NoError(t, err)
	assert.Equal(t, ids[2], imp.ID)
	require.Len(t, txs, 1)
	assert.Equal(t, core.NewDate(2024, 1, 3), txs[0].Date)
}

func TestPruneImports(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	var ids []string
	for i := range 4 {
		repo.now = func() time.Time { return base.Add(time.Duration(i) * time.Hour) }
		imp, err := repo.SaveImport(ctx, "run", []core.LabeledTransaction{
			labeled(core.NewDate(2024, 1, 1), "row", -1, "L", "S"),
		})
		require.NoError(t, err)
		ids = append(ids, imp.ID)
	}

	deleted, err := repo.PruneImports(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	for _, id := range ids[:2] {
		_, err := repo.GetImport(ctx, id)
		assert.ErrorIs(t, err, ErrNoImports)
		rows, err := repo.LoadTransactions(ctx, id)
		require.NoError(t, err)
		assert.Empty(t, rows)
	}
	for _, id := range ids[2:] {
		_, err := repo.GetImport(ctx, id)
		assert.NoError(t, err)
	}
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.db")
	require.NoError(t, RunMigrations(path))
	require.NoError(t, RunMigrations(path))
}
