package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/map-version-watcher/internal/storage"
)

func newMockStore(t *testing.T) (*KVStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	store, err := NewKVStoreWithPool(mock, "kv_entries")
	require.NoError(t, err)
	return store, mock
}

func TestKVStorePutUpserts(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO kv_entries").
		WithArgs("versions", "2024-06-02", "2024").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.Put(context.Background(), "versions", "2024-06-02", "2024"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestKVStoreGetFound(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT value FROM kv_entries").
		WithArgs("versions", "2024-06-02").
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow("2024"))

	v, ok, err := store.Get(context.Background(), "versions", "2024-06-02")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "2024", v)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestKVStoreGetMissing(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT value FROM kv_entries").
		WithArgs("versions", "2024-06-01").
		WillReturnError(pgx.ErrNoRows)

	_, ok, err := store.Get(context.Background(), "versions", "2024-06-01")
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestKVStoreGetError(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT value FROM kv_entries").
		WithArgs("versions", "2024-06-01").
		WillReturnError(errors.New("connection refused"))

	_, _, err := store.Get(context.Background(), "versions", "2024-06-01")
	require.ErrorContains(t, err, "connection refused")
}

func TestKVStoreListOrdersByKey(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT key, value FROM kv_entries").
		WithArgs("changes").
		WillReturnRows(pgxmock.NewRows([]string{"key", "value"}).
			AddRow("2024-01-01", `{"created_at":1}`).
			AddRow("latest", "2024-01-01"))

	entries, err := store.List(context.Background(), "changes")
	require.NoError(t, err)
	require.Equal(t, []storage.Entry{
		{Key: "2024-01-01", Value: `{"created_at":1}`},
		{Key: "latest", Value: "2024-01-01"},
	}, entries)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestKVStoreEnsureSchema(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS kv_entries").
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	require.NoError(t, store.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestKVStorePing(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	store, err := NewKVStoreWithPool(mock, "")
	require.NoError(t, err)

	mock.ExpectPing()
	require.NoError(t, store.Ping(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewKVStoreWithPoolValidatesTable(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewKVStoreWithPool(mock, "kv; DROP TABLE users")
	require.Error(t, err)
	_, err = NewKVStoreWithPool(nil, "kv")
	require.Error(t, err)
}

func TestNewKVStoreRequiresDSN(t *testing.T) {
	t.Parallel()

	_, err := NewKVStore(context.Background(), KVStoreConfig{})
	require.Error(t, err)
}
