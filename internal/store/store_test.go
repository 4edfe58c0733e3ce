package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d-saikrishna/assam-tenders/internal/model"
	"github.com/d-saikrishna/assam-tenders/internal/worker"
)

func newTestDB(t *testing.T, opts ...Option) *DB {
	t.Helper()

	db, err := Open(context.Background(), model.DatabaseConfig{Driver: DriverSQLite, DSN: ":memory:"}, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Migrate(false))
	return db
}

func staticSpec() model.TableSpec {
	return model.TableSpec{
		Name: "tenders_static",
		Columns: []model.Column{
			{Name: "ocid", Type: model.ColumnText},
			{Name: "tender_title", Type: model.ColumnText},
			{Name: "tender_externalreference", Type: model.ColumnText},
			{Name: "tender_value_amount", Type: model.ColumnNumeric},
		},
		PrimaryKey: []string{"ocid"},
	}
}

func updateSpec() model.TableSpec {
	return model.TableSpec{
		Name: "tenders_update",
		Columns: []model.Column{
			{Name: "ocid", Type: model.ColumnText},
			{Name: "date", Type: model.ColumnTimestamp},
			{Name: "tender_stage", Type: model.ColumnText},
			{Name: "tender_status", Type: model.ColumnText},
		},
		PrimaryKey: []string{"ocid", "date"},
		ForeignKey: &model.ForeignKey{Column: "ocid", RefTable: "tenders_static", RefColumn: "ocid"},
	}
}

func TestDSN(t *testing.T) {
	dsn, err := DSN(model.DatabaseConfig{
		Driver:   DriverPostgres,
		Host:     "db",
		Port:     5432,
		User:     "etl",
		Password: "p w",
		Name:     "tenders",
		Schema:   "assam_procurements",
		SSLMode:  "disable",
	})
	require.NoError(t, err)
	assert.Equal(t, "host=db port=5432 user=etl password='p w' dbname=tenders sslmode=disable search_path=assam_procurements", dsn)

	dsn, err = DSN(model.DatabaseConfig{Driver: DriverSQLite, Name: "tenders.db"})
	require.NoError(t, err)
	assert.Equal(t, "tenders.db?_foreign_keys=on", dsn)

	_, err = DSN(model.DatabaseConfig{Driver: "mysql"})
	assert.Error(t, err)
}

func TestMigrate_Idempotent(t *testing.T) {
	db := newTestDB(t)
	assert.NoError(t, db.Migrate(false))

	entities, err := db.Entities(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entities)
}

func TestEnsureTable_AddsMissingColumns(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	spec := staticSpec()
	require.NoError(t, db.EnsureTable(ctx, spec))

	spec.Columns = append(spec.Columns, model.Column{Name: "tender_numberoftenderers", Type: model.ColumnInteger})
	require.NoError(t, db.EnsureTable(ctx, spec))

	cols, err := db.tableColumns(ctx, spec.Name)
	require.NoError(t, err)
	assert.True(t, cols["tender_numberoftenderers"])
	assert.Len(t, cols, 5)
}

func TestAppend_AndExistingKeys(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t, WithChunkSize(2), WithLimiter(worker.NewLimiter(0, 0)))

	spec := staticSpec()
	require.NoError(t, db.EnsureTable(ctx, spec))

	rows := [][]any{
		{"ocds-1", "Flood Embankment Repair", "WR/01", 10.5},
		{"ocds-2", "Repair of Brahmaputra River Bank", "WR/02", nil},
		{"ocds-3", "Driver Training Course", "PWD/03", 7.0},
	}
	n, err := db.Append(ctx, spec.Name, []string{"ocid", "tender_title", "tender_externalreference", "tender_value_amount"}, rows)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	found, err := db.ExistingKeys(ctx, spec.Name, "ocid", []string{"ocds-1", "ocds-3", "ocds-9"})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"ocds-1": true, "ocds-3": true}, found)
}

func TestAppend_AllOrNothing(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t, WithChunkSize(1))

	spec := staticSpec()
	require.NoError(t, db.EnsureTable(ctx, spec))

	cols := []string{"ocid", "tender_title"}
	_, err := db.Append(ctx, spec.Name, cols, [][]any{
		{"ocds-1", "a"},
		{"ocds-2", "b"},
		{"ocds-1", "duplicate key"},
	})
	require.Error(t, err)

	found, err := db.ExistingKeys(ctx, spec.Name, "ocid", []string{"ocds-1", "ocds-2"})
	require.NoError(t, err)
	assert.Empty(t, found, "failed append must leave no rows behind")
}

func TestExistingPairs_Window(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	require.NoError(t, db.EnsureTable(ctx, staticSpec()))
	require.NoError(t, db.EnsureTable(ctx, updateSpec()))

	_, err := db.Append(ctx, "tenders_static", []string{"ocid"}, [][]any{{"ocds-1"}})
	require.NoError(t, err)

	old := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2021, 4, 1, 10, 0, 0, 0, time.UTC)
	_, err = db.Append(ctx, "tenders_update", []string{"ocid", "date", "tender_stage", "tender_status"}, [][]any{
		{"ocds-1", old, "tender", "active"},
		{"ocds-1", recent, "award", "complete"},
	})
	require.NoError(t, err)

	pairs, err := db.ExistingPairs(ctx, "tenders_update", "ocid", "date", time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Len(t, pairs, 1)
	assert.True(t, pairs[model.NewUpdateKey("ocds-1", recent)])
}

func TestUpdateForeignKey_Enforced(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	require.NoError(t, db.EnsureTable(ctx, staticSpec()))
	require.NoError(t, db.EnsureTable(ctx, updateSpec()))

	_, err := db.Append(ctx, "tenders_update", []string{"ocid", "date"}, [][]any{{"orphan", time.Now().UTC()}})
	assert.Error(t, err)
}

func TestReferenceTables(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	require.NoError(t, db.EnsureTable(ctx, staticSpec()))
	_, err := db.Append(ctx, "tenders_static", []string{"ocid", "tender_title", "tender_externalreference"}, [][]any{
		{"ocds-2", "Repair of Brahmaputra River Bank", nil},
		{"ocds-1", "Flood Embankment Repair", "WR/01"},
		{"ocds-3", "Driver Training Course", "PWD/03"},
	})
	require.NoError(t, err)

	// Relevance is drop-and-rebuild
	require.NoError(t, db.ReplaceKeys(ctx, []string{"ocds-3"}))
	require.NoError(t, db.ReplaceKeys(ctx, []string{"ocds-1", "ocds-2"}))

	relevant, err := db.RelevantTenders(ctx)
	require.NoError(t, err)
	require.Len(t, relevant, 2)
	assert.Equal(t, "ocds-1", relevant[0].Key)
	assert.Equal(t, "WR/01", relevant[0].ExternalReference)
	assert.Equal(t, "", relevant[1].ExternalReference)

	all, err := db.StaticTenders(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	// Entities are append-only
	n, err := db.AppendEntities(ctx, []string{"Brahmaputra", "Kollong"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = db.AppendEntities(ctx, []string{"Kollong", "Jiadhal"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	entities, err := db.Entities(ctx)
	require.NoError(t, err)
	require.Len(t, entities, 3)
	assert.Equal(t, "Brahmaputra", entities[0].Name)

	// Links are drop-and-rebuild and reference existing entities
	require.NoError(t, db.ReplaceLinks(ctx, []model.Link{{Key: "ocds-2", EntityID: entities[0].ID}}))
	require.NoError(t, db.ReplaceLinks(ctx, []model.Link{{Key: "ocds-1", EntityID: entities[1].ID}}))

	var count int
	require.NoError(t, db.GetContext(ctx, &count, "SELECT COUNT(*) FROM tender_river"))
	assert.Equal(t, 1, count)

	err = db.ReplaceLinks(ctx, []model.Link{{Key: "ocds-1", EntityID: 999}})
	assert.Error(t, err, "link to unknown entity must fail")

	require.NoError(t, db.GetContext(ctx, &count, "SELECT COUNT(*) FROM tender_river"))
	assert.Equal(t, 1, count, "failed rebuild must keep previous links")
}
