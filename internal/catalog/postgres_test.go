package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/choosepower/tdsp-resolver/internal/model"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return &PostgresStore{pool: mock}, mock
}

func TestPostgresMigrate(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS catalog_meta").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, store.Migrate(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMeta(t *testing.T) {
	store, mock := newMockStore(t)

	builtAt := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT version, built_at FROM catalog_meta").
		WillReturnRows(pgxmock.NewRows([]string{"version", "built_at"}).AddRow("seed-1", builtAt))

	version, got, err := store.Meta(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "seed-1", version)
	assert.Equal(t, builtAt, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSaveMinimalCatalog(t *testing.T) {
	store, mock := newMockStore(t)

	data := Data{
		Version: "test-1",
		BuiltAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		Territories: []model.Territory{
			{ID: OncorID, Name: "Oncor Electric Delivery", Zone: model.ZoneNorth},
		},
		Zips: []model.ZipEntry{
			{Zip: "75201", TerritoryID: OncorID, CitySlug: "dallas-tx"},
		},
	}

	mock.ExpectBegin()
	for _, table := range []string{"territories", "cities", "zips", "split_zips", "municipal"} {
		mock.ExpectExec("DELETE FROM " + table).WillReturnResult(pgxmock.NewResult("DELETE", 0))
	}
	mock.ExpectExec("INSERT INTO territories").
		WithArgs(OncorID, "Oncor Electric Delivery", model.ZoneNorth, []byte("null"), []byte("null")).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO zips").
		WithArgs("75201", OncorID, "dallas-tx").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO catalog_meta").
		WithArgs("test-1", data.BuiltAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()
	mock.ExpectRollback() // deferred rollback after commit is a no-op

	require.NoError(t, store.Save(context.Background(), data))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSaveRollsBackOnFailure(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM territories").WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := store.Save(context.Background(), Data{Version: "v"})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
