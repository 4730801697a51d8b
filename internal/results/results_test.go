package results

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abo-offspring-analyzer/internal/domain"
)

func sampleResults(prefix string, n int) []*domain.AnalysisResult {
	rh := domain.RhNegative
	out := make([]*domain.AnalysisResult, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, &domain.AnalysisResult{
			ID:          fmt.Sprintf("%s-%d", prefix, i),
			AnalyzedAt:  time.Date(2024, 3, 1, 12, 0, i, 0, time.UTC),
			Father:      "AB",
			Mother:      "O",
			MotherRh:    &rh,
			Percentages: domain.Distribution{domain.PhenotypeA: 50, domain.PhenotypeB: 50},
			SourceFile:  "batch.json",
			RecordIndex: i,
		})
	}
	return out
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})
	return logger
}

func TestJSONFileStore_AppendMode(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "resultados", "resultados.json")

	store, err := NewJSONFileStore(path, true)
	require.NoError(t, err)
	assert.Equal(t, path, store.Path())

	require.NoError(t, store.Append(ctx, sampleResults("a", 2)))
	require.NoError(t, store.Append(ctx, sampleResults("b", 1)))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	listed, err := store.List(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, listed, 3)
	assert.Equal(t, "a-1", listed[0].ID)
	assert.Equal(t, "b-1", listed[2].ID)
	assert.Equal(t, 50.0, listed[0].Percentages[domain.PhenotypeB])
	require.NotNil(t, listed[0].MotherRh)
	assert.Nil(t, listed[0].FatherRh)

	paged, err := store.List(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, "a-2", paged[0].ID)

	empty, err := store.List(ctx, 10, 99)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestJSONFileStore_OverwriteMode(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "resultados.json")

	store, err := NewJSONFileStore(path, false)
	require.NoError(t, err)
	require.NoError(t, store.Append(ctx, sampleResults("a", 2)))
	require.NoError(t, store.Append(ctx, sampleResults("b", 1)))

	listed, err := store.List(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "b-1", listed[0].ID)
}

func TestJSONFileStore_PreservesForeignEntries(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "resultados.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"padre":"A","madre":"O","porcentajes":{"A":75,"O":25}}, 42]`), 0644))

	store, err := NewJSONFileStore(path, true)
	require.NoError(t, err)
	require.NoError(t, store.Append(ctx, sampleResults("new", 1)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw []json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Len(t, raw, 3)
	assert.Contains(t, string(raw[0]), `"padre"`)
	assert.JSONEq(t, `42`, string(raw[1]))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	// The bare number does not decode as a result and is skipped.
	listed, err := store.List(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, listed, 2)
	assert.Equal(t, "new-1", listed[1].ID)
}

func TestJSONFileStore_NonArrayFileStartsFresh(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "resultados.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"not":"a list"}`), 0644))

	store, err := NewJSONFileStore(path, true)
	require.NoError(t, err)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	require.NoError(t, store.Append(ctx, sampleResults("x", 1)))
	listed, err := store.List(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "x-1", listed[0].ID)
}

func TestJSONFileStore_EmptyAppendWritesArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resultados.json")
	store, err := NewJSONFileStore(path, false)
	require.NoError(t, err)
	require.NoError(t, store.Append(context.Background(), nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))
}

func TestJSONFileStore_ConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	store, err := NewJSONFileStore(filepath.Join(t.TempDir(), "resultados.json"), true)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, store.Append(ctx, sampleResults(fmt.Sprintf("g%d", i), 2)))
		}(i)
	}
	wg.Wait()

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(16), count)
}

func TestJSONFileStore_RequiresPath(t *testing.T) {
	_, err := NewJSONFileStore("", true)
	assert.Error(t, err)
}

func TestJSONFileStore_CancelledContext(t *testing.T) {
	store, err := NewJSONFileStore(filepath.Join(t.TempDir(), "r.json"), true)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, store.Append(ctx, sampleResults("c", 1)), context.Canceled)
}

func TestExportJSON(t *testing.T) {
	ctx := context.Background()
	store, err := NewJSONFileStore(filepath.Join(t.TempDir(), "r.json"), true)
	require.NoError(t, err)
	require.NoError(t, store.Append(ctx, sampleResults("e", 3)))

	var buf bytes.Buffer
	require.NoError(t, ExportJSON(ctx, store, &buf))

	var export Export
	require.NoError(t, json.Unmarshal(buf.Bytes(), &export))
	assert.Equal(t, "1.0", export.Version)
	assert.Equal(t, 3, export.Count)
	require.Len(t, export.Results, 3)
	assert.Equal(t, "e-3", export.Results[2].ID)
	assert.False(t, export.ExportedAt.IsZero())
}

// fakeStore records appends and fails on demand.
type fakeStore struct {
	mu       sync.Mutex
	appended []*domain.AnalysisResult
	err      error
	closeErr error
	calls    int
}

func (f *fakeStore) Append(_ context.Context, results []*domain.AnalysisResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.appended = append(f.appended, results...)
	return nil
}

func (f *fakeStore) List(_ context.Context, limit, offset int) ([]*domain.AnalysisResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return page(f.appended, limit, offset), nil
}

func (f *fakeStore) Count(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	return int64(len(f.appended)), nil
}

func (f *fakeStore) Close() error { return f.closeErr }

func TestMultiStore_MirrorsAppends(t *testing.T) {
	ctx := context.Background()
	primary := &fakeStore{}
	mirror := &fakeStore{}
	multi := NewMultiStore(primary, quietLogger(), mirror)

	require.NoError(t, multi.Append(ctx, sampleResults("m", 2)))
	assert.Len(t, primary.appended, 2)
	assert.Len(t, mirror.appended, 2)

	count, err := multi.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestMultiStore_SecondaryFailure(t *testing.T) {
	ctx := context.Background()
	primary := &fakeStore{}
	broken := &fakeStore{err: errors.New("connection refused")}
	healthy := &fakeStore{}
	multi := NewMultiStore(primary, quietLogger(), broken, healthy)

	err := multi.Append(ctx, sampleResults("m", 1))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSecondaryStore)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Len(t, primary.appended, 1)
	assert.Len(t, healthy.appended, 1)
}

func TestMultiStore_PrimaryFailureStops(t *testing.T) {
	primary := &fakeStore{err: errors.New("disk full")}
	mirror := &fakeStore{}
	multi := NewMultiStore(primary, nil, mirror)

	err := multi.Append(context.Background(), sampleResults("m", 1))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSecondaryStore)
	assert.Zero(t, mirror.calls)
}

func TestMultiStore_CloseJoinsErrors(t *testing.T) {
	multi := NewMultiStore(&fakeStore{closeErr: errors.New("a")}, nil, &fakeStore{closeErr: errors.New("b")})
	err := multi.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "primary: a")
	assert.Contains(t, err.Error(), "secondary 0: b")
}

func TestBreakerStore_OpensAfterFailures(t *testing.T) {
	ctx := context.Background()
	backend := &fakeStore{err: errors.New("timeout")}
	store := NewBreakerStore("postgres", backend, domain.BreakerConfig{
		FailureThreshold: 2,
		Timeout:          time.Minute,
	}, quietLogger())

	for i := 0; i < 2; i++ {
		err := store.Append(ctx, sampleResults("b", 1))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "timeout")
	}
	assert.Equal(t, gobreaker.StateOpen, store.State())

	err := store.Append(ctx, sampleResults("b", 1))
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 2, backend.calls)

	_, err = store.Count(ctx)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestBreakerStore_PassesThrough(t *testing.T) {
	ctx := context.Background()
	backend := &fakeStore{}
	store := NewBreakerStore("sqlite", backend, domain.BreakerConfig{}, nil)

	require.NoError(t, store.Append(ctx, sampleResults("p", 3)))
	listed, err := store.List(ctx, 2, 0)
	require.NoError(t, err)
	assert.Len(t, listed, 2)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.Equal(t, gobreaker.StateClosed, store.State())
	assert.NoError(t, store.Close())
}
