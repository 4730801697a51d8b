package results

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abo-offspring-analyzer/internal/domain"
)

func setupTestSQLite(t *testing.T) *SQLiteStore {
	dbPath := filepath.Join(t.TempDir(), "data", "results.db")
	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_AppendAndList(t *testing.T) {
	store := setupTestSQLite(t)
	ctx := context.Background()

	in := sampleResults("s", 3)
	in[2].Percentages = nil
	in[2].Error = "mother: missing blood group"
	require.NoError(t, store.Append(ctx, in))

	listed, err := store.List(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, listed, 3)

	first := listed[0]
	assert.Equal(t, "s-1", first.ID)
	assert.Equal(t, "AB", first.Father)
	assert.Equal(t, "O", first.Mother)
	assert.Nil(t, first.FatherRh)
	require.NotNil(t, first.MotherRh)
	assert.Equal(t, domain.RhNegative, *first.MotherRh)
	assert.Equal(t, 50.0, first.Percentages[domain.PhenotypeA])
	assert.Equal(t, "batch.json", first.SourceFile)
	assert.Equal(t, 1, first.RecordIndex)
	assert.True(t, in[0].AnalyzedAt.Equal(first.AnalyzedAt))

	failed := listed[2]
	assert.Empty(t, failed.Percentages)
	assert.Equal(t, "mother: missing blood group", failed.Error)
	assert.False(t, failed.Succeeded())
}

func TestSQLiteStore_Pagination(t *testing.T) {
	store := setupTestSQLite(t)
	ctx := context.Background()
	require.NoError(t, store.Append(ctx, sampleResults("p", 5)))

	paged, err := store.List(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, paged, 2)
	assert.Equal(t, "p-3", paged[0].ID)
	assert.Equal(t, "p-4", paged[1].ID)

	rest, err := store.List(ctx, 0, 4)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "p-5", rest[0].ID)
}

func TestSQLiteStore_DuplicateIDsIgnored(t *testing.T) {
	store := setupTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, sampleResults("d", 2)))
	require.NoError(t, store.Append(ctx, sampleResults("d", 2)))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestSQLiteStore_Get(t *testing.T) {
	store := setupTestSQLite(t)
	ctx := context.Background()
	require.NoError(t, store.Append(ctx, sampleResults("g", 2)))

	r, err := store.Get(ctx, "g-2")
	require.NoError(t, err)
	assert.Equal(t, 2, r.RecordIndex)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSQLiteStore_ReopenKeepsHistory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "results.db")
	ctx := context.Background()

	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, store.Append(ctx, sampleResults("r", 2)))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer reopened.Close()

	count, err := reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
