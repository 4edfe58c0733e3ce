package store

import (
	"context"

	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/d-saikrishna/assam-tenders/internal/model"
)

// Reference tables created by migrations
const (
	RelevantTable = "tenders_flood"
	EntityTable   = "rivers"
	LinkTable     = "tender_river"
)

// ReplaceKeys rebuilds the relevant-tender table from keys in one transaction
func (db *DB) ReplaceKeys(ctx context.Context, keys []string) error {
	rows := make([][]any, len(keys))
	for i, k := range keys {
		rows[i] = []any{k}
	}

	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := db.truncate(ctx, tx, RelevantTable); err != nil {
			return err
		}
		return db.insertChunks(ctx, tx, RelevantTable, []string{"ocid"}, rows)
	})
}

// RelevantTenders returns the static rows flagged relevant, ordered by key
func (db *DB) RelevantTenders(ctx context.Context) ([]model.Tender, error) {
	sb := db.tenderSelect()
	sb.Join(db.quote(RelevantTable)+" f", "f."+db.quote("ocid")+" = s."+db.quote(db.tenders.Key))

	query, args := sb.Build()
	var tenders []model.Tender
	if err := db.SelectContext(ctx, &tenders, query, args...); err != nil {
		return nil, errors.Wrap(err, "read relevant tenders")
	}
	return tenders, nil
}

// StaticTenders returns every static row, ordered by key
func (db *DB) StaticTenders(ctx context.Context) ([]model.Tender, error) {
	query, args := db.tenderSelect().Build()
	var tenders []model.Tender
	if err := db.SelectContext(ctx, &tenders, query, args...); err != nil {
		return nil, errors.Wrap(err, "read static tenders")
	}
	return tenders, nil
}

func (db *DB) tenderSelect() *sqlbuilder.SelectBuilder {
	col := func(name string) string { return "s." + db.quote(name) }

	sb := db.flavor.NewSelectBuilder()
	sb.Select(
		sb.As(col(db.tenders.Key), "ocid"),
		sb.As("COALESCE("+col(db.tenders.Title)+", '')", "title"),
		sb.As("COALESCE("+col(db.tenders.Reference)+", '')", "reference"),
	).
		From(db.quote(db.tenders.Table) + " s").
		OrderBy(col(db.tenders.Key))
	return sb
}

// Entities returns every canonical entity ordered by id
func (db *DB) Entities(ctx context.Context) ([]model.Entity, error) {
	sb := db.flavor.NewSelectBuilder()
	sb.Select("id", "river_name").From(EntityTable).OrderBy("id")

	query, args := sb.Build()
	var entities []model.Entity
	if err := db.SelectContext(ctx, &entities, query, args...); err != nil {
		return nil, errors.Wrap(err, "read entities")
	}
	return entities, nil
}

// AppendEntities inserts names not yet present; existing entities keep their ids.
// It returns the number of names inserted.
func (db *DB) AppendEntities(ctx context.Context, names []string) (int, error) {
	if len(names) == 0 {
		return 0, nil
	}

	inserted := 0
	err := db.withTx(ctx, func(tx *sqlx.Tx) error {
		for start := 0; start < len(names); start += db.chunk {
			end := min(start+db.chunk, len(names))

			if err := db.throttle(ctx, EntityTable); err != nil {
				return err
			}

			ib := db.flavor.NewInsertBuilder()
			ib.InsertInto(EntityTable).Cols("river_name")
			for _, n := range names[start:end] {
				ib.Values(n)
			}
			ib.SQL("ON CONFLICT (river_name) DO NOTHING")

			query, args := ib.Build()
			res, err := tx.ExecContext(ctx, query, args...)
			if err != nil {
				return errors.Wrap(err, "insert entities")
			}
			if n, err := res.RowsAffected(); err == nil {
				inserted += int(n)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// ReplaceLinks rebuilds the tender-to-entity link table in one transaction
func (db *DB) ReplaceLinks(ctx context.Context, links []model.Link) error {
	rows := make([][]any, len(links))
	for i, l := range links {
		rows[i] = []any{l.Key, l.EntityID}
	}

	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := db.truncate(ctx, tx, LinkTable); err != nil {
			return err
		}
		return db.insertChunks(ctx, tx, LinkTable, []string{"ocid", "river_id"}, rows)
	})
}

// truncate empties a table inside tx; DELETE keeps it transactional on both drivers
func (db *DB) truncate(ctx context.Context, tx *sqlx.Tx, table string) error {
	del := db.flavor.NewDeleteBuilder()
	del.DeleteFrom(db.quote(table))

	query, args := del.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrapf(err, "clear %s", table)
	}
	return nil
}
