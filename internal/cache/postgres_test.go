package cache

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FWeynschenk/dotsmap/internal/geo"
)

func newMockPostgres(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresFromPool(mock), mock
}

func TestPostgresStore_Migrate(t *testing.T) {
	store, mock := newMockPostgres(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS dot_cache_meta").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, store.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Get(t *testing.T) {
	store, mock := newMockPostgres(t)
	key := keyPrefix + "fp"
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT m.key, m.created, m.last_access").
		WithArgs(key).
		WillReturnRows(pgxmock.NewRows(
			[]string{"key", "created", "last_access", "size_bytes", "payload"},
		).AddRow(key, now, now, int64(42), []byte(`{"dots":[{"x":1,"y":2,"countryName":"A","coordinates":[5,5]}],"debugInfo":{"totalChecks":1}}`)))

	got, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, key, got.Key)
	assert.Equal(t, int64(42), got.SizeBytes)
	require.Len(t, got.Dots, 1)
	assert.Equal(t, "A", *got.Dots[0].CountryName)
	assert.Equal(t, int64(1), got.Debug.TotalChecks)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetMiss(t *testing.T) {
	store, mock := newMockPostgres(t)

	mock.ExpectQuery("SELECT m.key").
		WithArgs(keyPrefix + "missing").
		WillReturnError(pgx.ErrNoRows)

	got, err := store.Get(context.Background(), keyPrefix+"missing")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Put(t *testing.T) {
	store, mock := newMockPostgres(t)
	name := "A"
	e := &Entry{
		Key:        keyPrefix + "fp",
		Dots:       []geo.ClassificationResult{{X: 1, Y: 2, CountryName: &name}},
		Created:    time.Now().UTC(),
		LastAccess: time.Now().UTC(),
		SizeBytes:  64,
	}

	mock.ExpectExec("INSERT INTO dot_cache_meta").
		WithArgs(e.Key, e.Created, e.LastAccess, e.SizeBytes).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO dot_cache_payload").
		WithArgs(e.Key, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.Put(context.Background(), e))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Touch(t *testing.T) {
	store, mock := newMockPostgres(t)
	key := keyPrefix + "fp"
	at := time.Now().UTC()

	mock.ExpectExec("UPDATE dot_cache_meta SET last_access").
		WithArgs(at, key).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, store.Touch(context.Background(), key, at))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_EvictOlderThan(t *testing.T) {
	store, mock := newMockPostgres(t)
	cutoff := time.Now().UTC().Add(-24 * time.Hour)

	mock.ExpectExec("DELETE FROM dot_cache_meta WHERE created").
		WithArgs(cutoff).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	removed, err := store.EvictOlderThan(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_EvictOldestHalf(t *testing.T) {
	store, mock := newMockPostgres(t)

	mock.ExpectExec("DELETE FROM dot_cache_meta WHERE key IN").
		WillReturnResult(pgxmock.NewResult("DELETE", 2))

	removed, err := store.EvictOldestHalf(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Count(t *testing.T) {
	store, mock := newMockPostgres(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM dot_cache_meta`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(7))

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
