package results

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abo-offspring-analyzer/internal/domain"
)

func setupMockPostgres(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := NewPostgresStore(db)
	require.NoError(t, err)
	return store, mock
}

func TestNewPostgresStore_RequiresDB(t *testing.T) {
	_, err := NewPostgresStore(nil)
	assert.Error(t, err)
}

func TestPostgresStore_Append(t *testing.T) {
	store, mock := setupMockPostgres(t)
	in := sampleResults("pg", 2)

	mock.ExpectBegin()
	for _, r := range in {
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO analysis_results")).
			WithArgs(r.ID, sqlmock.AnyArg(), "AB", "O", nil, "-",
				`{"A":50,"B":50}`, "", "batch.json", r.RecordIndex).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	require.NoError(t, store.Append(context.Background(), in))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AppendRollsBackOnError(t *testing.T) {
	store, mock := setupMockPostgres(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO analysis_results")).
		WillReturnError(errors.New("relation does not exist"))
	mock.ExpectRollback()

	err := store.Append(context.Background(), sampleResults("pg", 1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pg-1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_List(t *testing.T) {
	store, mock := setupMockPostgres(t)
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{
		"id", "analyzed_at", "father", "mother", "father_rh", "mother_rh",
		"percentages", "error", "source_file", "record_index",
	}).
		AddRow("pg-1", at, "A", "O", "+", nil, `{"A":75,"O":25}`, "", "f.json", int64(1)).
		AddRow("pg-2", at, "C", "O", nil, nil, nil, "father: bad", "f.json", int64(2))

	mock.ExpectQuery("SELECT (.+) FROM analysis_results ORDER BY seq ASC OFFSET \\$1 LIMIT \\$2").
		WithArgs(0, 10).
		WillReturnRows(rows)

	listed, err := store.List(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, listed, 2)

	assert.Equal(t, "pg-1", listed[0].ID)
	assert.Equal(t, 75.0, listed[0].Percentages[domain.PhenotypeA])
	require.NotNil(t, listed[0].FatherRh)
	assert.Equal(t, domain.RhPositive, *listed[0].FatherRh)
	assert.Nil(t, listed[0].MotherRh)

	assert.Nil(t, listed[1].Percentages)
	assert.Equal(t, "father: bad", listed[1].Error)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListWithoutLimit(t *testing.T) {
	store, mock := setupMockPostgres(t)

	mock.ExpectQuery("SELECT (.+) FROM analysis_results ORDER BY seq ASC OFFSET \\$1\\s*$").
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	listed, err := store.List(context.Background(), 0, 5)
	require.NoError(t, err)
	assert.Empty(t, listed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListBadPercentages(t *testing.T) {
	store, mock := setupMockPostgres(t)

	rows := sqlmock.NewRows([]string{
		"id", "analyzed_at", "father", "mother", "father_rh", "mother_rh",
		"percentages", "error", "source_file", "record_index",
	}).AddRow("pg-1", time.Now(), "A", "O", nil, nil, `not json`, "", "", int64(0))
	mock.ExpectQuery("SELECT (.+) FROM analysis_results").WillReturnRows(rows)

	_, err := store.List(context.Background(), 0, 0)
	assert.Error(t, err)
}

func TestPostgresStore_Count(t *testing.T) {
	store, mock := setupMockPostgres(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM analysis_results")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(7)))

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), count)
}

func TestPostgresStore_CountError(t *testing.T) {
	store, mock := setupMockPostgres(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM analysis_results")).
		WillReturnError(sql.ErrConnDone)

	_, err := store.Count(context.Background())
	assert.ErrorIs(t, err, sql.ErrConnDone)
}
