package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d-saikrishna/assam-tenders/internal/cache"
	"github.com/d-saikrishna/assam-tenders/internal/model"
	"github.com/d-saikrishna/assam-tenders/internal/store"
	"github.com/d-saikrishna/assam-tenders/internal/worker"
)

var testHeader = []string{"OCID", "Date", "Tender Stage", "Tender Status", "Tender Title", "Tender ExternalReference"}

// threeRecords has two relevant tenders, one of them without an anchor,
// and one irrelevant tender whose update row carries no date
func threeRecords() *model.RawBatch {
	return &model.RawBatch{
		Source: "fixture.csv",
		Header: testHeader,
		Rows: [][]string{
			{"ocds-1", "2021-04-01T10:00:00Z", "tender", "active", "Protection of Brahmaputra river near Jorhat", "WR/JRT/1"},
			{"ocds-2", "2021-04-02T10:00:00Z", "tender", "active", "Flood Embankment Repair", "WR/DBR/2"},
			{"ocds-3", "", "tender", "active", "Supply of office stationery", "GAD/3"},
		},
	}
}

func newTestPipeline(t *testing.T) (*Pipeline, *store.DB) {
	t.Helper()

	cfg := model.DefaultConfig()
	cfg.Database = model.DatabaseConfig{Driver: store.DriverSQLite, DSN: ":memory:"}

	db, err := OpenStore(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewPipeline(cfg, db, WithCache(cache.NewMemoryCache(time.Minute, time.Minute))), db
}

func count(t *testing.T, db *store.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.Get(&n, "SELECT COUNT(*) FROM "+table))
	return n
}

func TestRun_EndToEnd(t *testing.T) {
	p, db := newTestPipeline(t)

	report, err := p.Run(context.Background(), threeRecords())
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.NotEmpty(t, report.BatchID)

	static := report.Stage(model.StageStatic)
	require.NotNil(t, static)
	assert.Equal(t, 3, static.Output)

	updates := report.Stage(model.StageUpdates)
	require.NotNil(t, updates)
	assert.Equal(t, 2, updates.Output)
	assert.Equal(t, 1, updates.Excluded["null_date"])

	classified := report.Stage(model.StageClassify)
	require.NotNil(t, classified)
	assert.Equal(t, 2, classified.Output)

	extracted := report.Stage(model.StageExtract)
	require.NotNil(t, extracted)
	assert.Equal(t, 1, extracted.Output)
	assert.Equal(t, 1, extracted.Excluded["no_anchor"])

	attributed := report.Stage(model.StageAttribute)
	require.NotNil(t, attributed)
	assert.Equal(t, 2, attributed.Input)
	assert.Equal(t, 1, attributed.Excluded["no_anchor"])
	assert.Equal(t, 1, attributed.Output)

	require.NotNil(t, report.Vocabulary)
	assert.Equal(t, 1, report.Vocabulary.Added)

	assert.Equal(t, 3, count(t, db, "tenders_static"))
	assert.Equal(t, 2, count(t, db, "tenders_update"))
	assert.Equal(t, 2, count(t, db, store.RelevantTable))
	assert.Equal(t, 1, count(t, db, store.LinkTable))

	entities, err := db.Entities(context.Background())
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, "Brahmaputra", entities[0].Name)
}

func TestRun_Idempotent(t *testing.T) {
	p, db := newTestPipeline(t)
	ctx := context.Background()

	_, err := p.Run(ctx, threeRecords())
	require.NoError(t, err)

	report, err := p.Run(ctx, threeRecords())
	require.NoError(t, err)

	assert.Equal(t, 0, report.Stage(model.StageStatic).Output)
	assert.Equal(t, 3, report.Stage(model.StageStatic).Skipped)
	assert.Equal(t, 0, report.Stage(model.StageUpdates).Output)
	assert.Equal(t, 2, report.Stage(model.StageUpdates).Skipped)
	assert.Equal(t, 0, report.Vocabulary.Added)

	assert.Equal(t, 3, count(t, db, "tenders_static"))
	assert.Equal(t, 2, count(t, db, "tenders_update"))
	assert.Equal(t, 1, count(t, db, store.EntityTable))
	assert.Equal(t, 1, count(t, db, store.LinkTable))
}

func TestRun_SchemaErrorNamesStage(t *testing.T) {
	p, db := newTestPipeline(t)

	raw := threeRecords()
	raw.Header = raw.Header[:5] // drop the reference column
	for i := range raw.Rows {
		raw.Rows[i] = raw.Rows[i][:5]
	}

	_, err := p.Run(context.Background(), raw)
	require.Error(t, err)

	var stageErr *model.StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, model.StageSchema, stageErr.Stage)

	var schemaErr *model.SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, "tender_externalreference", schemaErr.Column)

	var n int
	err = db.Get(&n, "SELECT COUNT(*) FROM tenders_static")
	assert.Error(t, err, "no table should exist after a rejected batch")
}

func TestLoad_MarkupKeysStayDistinct(t *testing.T) {
	p, db := newTestPipeline(t)

	raw := threeRecords()
	raw.Rows[1][0] = "ocds-1<br>"
	raw.Rows[2][0] = "<br>"

	_, err := p.Load(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, 3, count(t, db, "tenders_static"))
}

func TestLoadThenResolve(t *testing.T) {
	p, db := newTestPipeline(t)
	ctx := context.Background()

	report, err := p.Load(ctx, threeRecords())
	require.NoError(t, err)
	assert.Nil(t, report.Stage(model.StageClassify))
	assert.Equal(t, 0, count(t, db, store.RelevantTable))

	report, err = p.Resolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Stage(model.StageClassify).Output)
	assert.Equal(t, 1, count(t, db, store.LinkTable))
}

func TestRun_Cancelled(t *testing.T) {
	p, _ := newTestPipeline(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(ctx, threeRecords())
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func writeCSV(t *testing.T, dir, name string, raw *model.RawBatch) string {
	t.Helper()

	var b strings.Builder
	b.WriteString(strings.Join(raw.Header, ",") + "\n")
	for _, row := range raw.Rows {
		b.WriteString(strings.Join(row, ",") + "\n")
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0644))
	return path
}

func TestRunFile_AndBatch(t *testing.T) {
	p, db := newTestPipeline(t)
	dir := t.TempDir()

	first := writeCSV(t, dir, "week1.csv", threeRecords())

	second := threeRecords()
	second.Rows = append(second.Rows, []string{
		"ocds-4", "2021-04-09T10:00:00Z", "tender", "active", "Desilting of Kollong river at Morigaon", "WR/MRG/4",
	})
	secondPath := writeCSV(t, dir, "week2.csv", second)

	manifest := filepath.Join(dir, "manifest.txt")
	require.NoError(t, os.WriteFile(manifest, []byte("# weekly exports\nweek1.csv\n"+filepath.Base(secondPath)+"\n"), 0644))

	results, err := worker.NewBatchProcessor(p, true).ProcessManifest(context.Background(), manifest)
	require.NoError(t, err)
	require.Len(t, results, 2)

	for _, r := range results {
		require.NoError(t, r.Error, r.Path)
	}
	assert.Equal(t, first, results[0].Path)
	assert.Equal(t, 1, results[1].Report.Stage(model.StageStatic).Output)
	assert.NotNil(t, results[1].Report.Stage(model.StageRead))

	assert.Equal(t, 4, count(t, db, "tenders_static"))
	assert.Equal(t, 2, count(t, db, store.EntityTable))
	assert.Equal(t, 2, count(t, db, store.LinkTable))
}

func TestRunFile_Missing(t *testing.T) {
	p, _ := newTestPipeline(t)

	_, err := p.RunFile(context.Background(), filepath.Join(t.TempDir(), "absent.csv"))

	var stageErr *model.StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, model.StageRead, stageErr.Stage)
}

func TestRenderer(t *testing.T) {
	p, _ := newTestPipeline(t)

	report, err := p.Run(context.Background(), threeRecords())
	require.NoError(t, err)

	r := NewRenderer(true)

	var buf bytes.Buffer
	r.RenderSummary(&buf, report)
	out := buf.String()
	assert.Contains(t, out, report.RunID)
	assert.Contains(t, out, "attribute")
	assert.Contains(t, out, "no_anchor=1")

	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, r.RenderJSON(report, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded model.RunReport
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, report.RunID, decoded.RunID)
	assert.Len(t, decoded.Stages, len(report.Stages))
}
