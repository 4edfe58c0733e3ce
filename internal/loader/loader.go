package loader

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/d-saikrishna/assam-tenders/internal/logging"
	"github.com/d-saikrishna/assam-tenders/internal/model"
)

// Rejection reasons for update rows
const (
	ReasonOrphan   = "orphan_key"
	ReasonNullDate = "null_date"
)

// Store is the subset of the relational store the loader writes through
type Store interface {
	EnsureTable(ctx context.Context, spec model.TableSpec) error
	ExistingKeys(ctx context.Context, table, column string, keys []string) (map[string]bool, error)
	ExistingPairs(ctx context.Context, table, keyColumn, dateColumn string, since time.Time) (map[model.UpdateKey]bool, error)
	Append(ctx context.Context, table string, columns []string, rows [][]any) (int, error)
}

// LoadResult counts what happened to a projection
type LoadResult struct {
	Table    string
	Appended int
	Skipped  int            // already persisted
	Rejected map[string]int // per reason
}

// RejectedTotal sums rejections over all reasons
func (r LoadResult) RejectedTotal() int {
	total := 0
	for _, n := range r.Rejected {
		total += n
	}
	return total
}

// Loader appends only novel rows to the static and update tables
type Loader struct {
	store  Store
	cfg    model.LoaderConfig
	logger *logging.Logger

	mu        sync.Mutex
	committed map[string]bool // batch ids whose static rows are committed
}

// New creates a new loader
func New(store Store, cfg model.LoaderConfig, logger *logging.Logger) *Loader {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Loader{
		store:     store,
		cfg:       cfg,
		logger:    logger.With("component", "loader"),
		committed: make(map[string]bool),
	}
}

// LoadStatic appends static rows whose key is not yet persisted
func (l *Loader) LoadStatic(ctx context.Context, p *model.Projection) (LoadResult, error) {
	result := LoadResult{Table: l.cfg.StaticTable, Rejected: map[string]int{}}

	if len(p.KeyColumns) != 1 {
		return result, fmt.Errorf("static projection needs exactly one key column, got %v", p.KeyColumns)
	}
	keyCol := p.KeyColumns[0]
	keyIdx := p.Index(keyCol)
	if keyIdx < 0 {
		return result, fmt.Errorf("key column %s not in projection", keyCol)
	}

	// 1. Ensure table
	spec := model.TableSpec{
		Name:       l.cfg.StaticTable,
		Columns:    p.Columns,
		PrimaryKey: []string{keyCol},
	}
	if err := l.store.EnsureTable(ctx, spec); err != nil {
		return result, fmt.Errorf("ensure static table: %w", err)
	}

	// 2. Anti-join against persisted keys
	keys := make([]string, len(p.Rows))
	for i, row := range p.Rows {
		key, ok := row[keyIdx].(string)
		if !ok || key == "" {
			return result, &model.SchemaError{Column: keyCol, Row: i + 1, Reason: "empty key"}
		}
		keys[i] = key
	}
	existing, err := l.store.ExistingKeys(ctx, l.cfg.StaticTable, keyCol, keys)
	if err != nil {
		return result, fmt.Errorf("read existing keys: %w", err)
	}

	novel := make([][]any, 0, len(p.Rows))
	for i, row := range p.Rows {
		if existing[keys[i]] {
			result.Skipped++
			continue
		}
		novel = append(novel, row)
	}

	// 3. Append
	n, err := l.store.Append(ctx, l.cfg.StaticTable, p.ColumnNames(), novel)
	if err != nil {
		return result, fmt.Errorf("append static rows: %w", err)
	}
	result.Appended = n

	l.mu.Lock()
	l.committed[p.BatchID] = true
	l.mu.Unlock()

	l.logger.Info("static rows loaded",
		"batch", p.BatchID, "table", result.Table,
		"appended", result.Appended, "skipped", result.Skipped)

	return result, nil
}

// LoadUpdates appends update rows whose (key, date) pair is not yet persisted.
// The static rows of the same batch must have been committed first.
func (l *Loader) LoadUpdates(ctx context.Context, p *model.Projection) (LoadResult, error) {
	result := LoadResult{Table: l.cfg.UpdateTable, Rejected: map[string]int{}}

	l.mu.Lock()
	ready := l.committed[p.BatchID]
	l.mu.Unlock()
	if !ready {
		return result, &model.ReferentialOrderError{BatchID: p.BatchID, Table: l.cfg.UpdateTable}
	}

	if len(p.KeyColumns) != 2 {
		return result, fmt.Errorf("update projection needs (key, date), got %v", p.KeyColumns)
	}
	keyCol, dateCol := p.KeyColumns[0], p.KeyColumns[1]
	keyIdx, dateIdx := p.Index(keyCol), p.Index(dateCol)
	if keyIdx < 0 || dateIdx < 0 {
		return result, fmt.Errorf("compound key %v not in projection", p.KeyColumns)
	}

	// 1. Ensure table
	spec := model.TableSpec{
		Name:       l.cfg.UpdateTable,
		Columns:    p.Columns,
		PrimaryKey: []string{keyCol, dateCol},
		ForeignKey: &model.ForeignKey{Column: keyCol, RefTable: l.cfg.StaticTable, RefColumn: keyCol},
	}
	if err := l.store.EnsureTable(ctx, spec); err != nil {
		return result, fmt.Errorf("ensure update table: %w", err)
	}

	// 2. Drop rows that cannot form a compound key
	type candidate struct {
		row  []any
		key  string
		date time.Time
	}
	candidates := make([]candidate, 0, len(p.Rows))
	var minDate time.Time
	for i, row := range p.Rows {
		key, ok := row[keyIdx].(string)
		if !ok || key == "" {
			return result, &model.SchemaError{Column: keyCol, Row: i + 1, Reason: "empty key"}
		}
		date, ok := row[dateIdx].(time.Time)
		if !ok {
			result.Rejected[ReasonNullDate]++
			continue
		}
		if minDate.IsZero() || date.Before(minDate) {
			minDate = date
		}
		candidates = append(candidates, candidate{row: row, key: key, date: date})
	}
	if len(candidates) == 0 {
		l.logUpdates(p.BatchID, result)
		return result, nil
	}

	// 3. Reject orphans
	keys := make([]string, 0, len(candidates))
	for _, c := range candidates {
		keys = append(keys, c.key)
	}
	known, err := l.store.ExistingKeys(ctx, l.cfg.StaticTable, keyCol, keys)
	if err != nil {
		return result, fmt.Errorf("read static keys: %w", err)
	}

	// 4. Anti-join against persisted pairs inside the lookback window
	since := minDate.Add(-l.cfg.Lookback)
	existing, err := l.store.ExistingPairs(ctx, l.cfg.UpdateTable, keyCol, dateCol, since)
	if err != nil {
		return result, fmt.Errorf("read existing pairs: %w", err)
	}

	novel := make([][]any, 0, len(candidates))
	for _, c := range candidates {
		if !known[c.key] {
			result.Rejected[ReasonOrphan]++
			continue
		}
		if existing[model.NewUpdateKey(c.key, c.date)] {
			result.Skipped++
			continue
		}
		novel = append(novel, c.row)
	}

	// 5. Append
	n, err := l.store.Append(ctx, l.cfg.UpdateTable, p.ColumnNames(), novel)
	if err != nil {
		return result, fmt.Errorf("append update rows: %w", err)
	}
	result.Appended = n

	l.logUpdates(p.BatchID, result)
	return result, nil
}

func (l *Loader) logUpdates(batchID string, result LoadResult) {
	l.logger.Info("update rows loaded",
		"batch", batchID, "table", result.Table,
		"appended", result.Appended, "skipped", result.Skipped,
		"rejected", result.RejectedTotal())
}
