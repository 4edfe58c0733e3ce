package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/d-saikrishna/assam-tenders/internal/model"
)

// sqlType maps a projected column type to the driver's DDL type
func (db *DB) sqlType(t model.ColumnType) string {
	switch t {
	case model.ColumnInteger:
		if db.flavor == sqlbuilder.SQLite {
			return "INTEGER"
		}
		return "BIGINT"
	case model.ColumnNumeric:
		return "NUMERIC"
	case model.ColumnTimestamp:
		if db.flavor == sqlbuilder.SQLite {
			return "TIMESTAMP"
		}
		return "TIMESTAMPTZ"
	}
	return "TEXT"
}

// EnsureTable creates the table on first use and adds any columns a newer
// batch carries that the table lacks
func (db *DB) EnsureTable(ctx context.Context, spec model.TableSpec) error {
	ctb := db.flavor.NewCreateTableBuilder()
	ctb.CreateTable(db.quote(spec.Name)).IfNotExists()
	for _, col := range spec.Columns {
		def := []string{db.quote(col.Name), db.sqlType(col.Type)}
		if contains(spec.PrimaryKey, col.Name) {
			def = append(def, "NOT NULL")
		}
		ctb.Define(def...)
	}
	if len(spec.PrimaryKey) > 0 {
		ctb.Define("PRIMARY KEY", "("+strings.Join(db.quoteAll(spec.PrimaryKey), ", ")+")")
	}
	if fk := spec.ForeignKey; fk != nil {
		ctb.Define("FOREIGN KEY", "("+db.quote(fk.Column)+")", "REFERENCES",
			db.quote(fk.RefTable), "("+db.quote(fk.RefColumn)+")")
	}

	query, args := ctb.Build()
	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrapf(err, "create table %s", spec.Name)
	}

	existing, err := db.tableColumns(ctx, spec.Name)
	if err != nil {
		return err
	}
	for _, col := range spec.Columns {
		if existing[col.Name] {
			continue
		}
		alter := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", db.quote(spec.Name), db.quote(col.Name), db.sqlType(col.Type))
		if _, err := db.ExecContext(ctx, alter); err != nil {
			return errors.Wrapf(err, "add column %s.%s", spec.Name, col.Name)
		}
		db.logger.Info("added column", "table", spec.Name, "column", col.Name, "type", col.Type)
	}
	return nil
}

// tableColumns lists the columns a table currently has
func (db *DB) tableColumns(ctx context.Context, table string) (map[string]bool, error) {
	var query string
	if db.flavor == sqlbuilder.SQLite {
		query = "SELECT name FROM pragma_table_info(?)"
	} else {
		query = "SELECT column_name FROM information_schema.columns WHERE table_schema = current_schema() AND table_name = $1"
	}

	var names []string
	if err := db.SelectContext(ctx, &names, query, table); err != nil {
		return nil, errors.Wrapf(err, "list columns of %s", table)
	}

	cols := make(map[string]bool, len(names))
	for _, n := range names {
		cols[n] = true
	}
	return cols, nil
}

// ExistingKeys returns which of keys are already present in table.column,
// looked up in chunks
func (db *DB) ExistingKeys(ctx context.Context, table, column string, keys []string) (map[string]bool, error) {
	found := make(map[string]bool)

	for start := 0; start < len(keys); start += db.chunk {
		end := min(start+db.chunk, len(keys))

		values := make([]interface{}, 0, end-start)
		for _, k := range keys[start:end] {
			values = append(values, k)
		}

		sb := db.flavor.NewSelectBuilder()
		sb.Select(db.quote(column)).
			From(db.quote(table)).
			Where(sb.In(db.quote(column), values...))

		query, args := sb.Build()
		var present []string
		if err := db.SelectContext(ctx, &present, query, args...); err != nil {
			return nil, errors.Wrapf(err, "read keys from %s", table)
		}
		for _, k := range present {
			found[k] = true
		}
	}

	return found, nil
}

// ExistingPairs returns the (key, date) pairs persisted in table with date >= since
func (db *DB) ExistingPairs(ctx context.Context, table, keyColumn, dateColumn string, since time.Time) (map[model.UpdateKey]bool, error) {
	sb := db.flavor.NewSelectBuilder()
	sb.Select(sb.As(db.quote(keyColumn), "k"), sb.As(db.quote(dateColumn), "d")).
		From(db.quote(table)).
		Where(sb.GreaterEqualThan(db.quote(dateColumn), since.UTC()))

	query, args := sb.Build()
	rows, err := db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "read pairs from %s", table)
	}
	defer func() { _ = rows.Close() }()

	pairs := make(map[model.UpdateKey]bool)
	for rows.Next() {
		var (
			key  string
			date time.Time
		)
		if err := rows.Scan(&key, &date); err != nil {
			return nil, errors.Wrapf(err, "scan pair from %s", table)
		}
		pairs[model.NewUpdateKey(key, date)] = true
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "iterate pairs from %s", table)
	}
	return pairs, nil
}

// Append inserts rows into table in a single transaction; either every
// row lands or none does
func (db *DB) Append(ctx context.Context, table string, columns []string, rows [][]any) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	err := db.withTx(ctx, func(tx *sqlx.Tx) error {
		if db.flavor == sqlbuilder.PostgreSQL {
			return db.copyIn(ctx, tx, table, columns, rows)
		}
		return db.insertChunks(ctx, tx, table, columns, rows)
	})
	if err != nil {
		return 0, err
	}

	db.logger.Debug("appended rows", "table", table, "rows", len(rows))
	return len(rows), nil
}

// copyIn streams rows with COPY FROM STDIN
func (db *DB) copyIn(ctx context.Context, tx *sqlx.Tx, table string, columns []string, rows [][]any) error {
	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(table, columns...))
	if err != nil {
		return errors.Wrapf(err, "prepare copy into %s", table)
	}

	for i, row := range rows {
		if i%db.chunk == 0 {
			if err := db.throttle(ctx, table); err != nil {
				_ = stmt.Close()
				return err
			}
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			_ = stmt.Close()
			return errors.Wrapf(err, "copy row %d into %s", i+1, table)
		}
	}

	if _, err := stmt.ExecContext(ctx); err != nil {
		_ = stmt.Close()
		return errors.Wrapf(err, "flush copy into %s", table)
	}
	return errors.Wrap(stmt.Close(), "close copy statement")
}

// insertChunks writes rows with multi-row INSERT statements
func (db *DB) insertChunks(ctx context.Context, tx *sqlx.Tx, table string, columns []string, rows [][]any) error {
	per := db.rowsPerInsert(len(columns))
	quoted := db.quoteAll(columns)

	for start := 0; start < len(rows); start += per {
		end := min(start+per, len(rows))

		if err := db.throttle(ctx, table); err != nil {
			return err
		}

		ib := db.flavor.NewInsertBuilder()
		ib.InsertInto(db.quote(table)).Cols(quoted...)
		for _, row := range rows[start:end] {
			ib.Values(row...)
		}

		query, args := ib.Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return errors.Wrapf(err, "insert rows %d-%d into %s", start+1, end, table)
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
