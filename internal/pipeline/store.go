package pipeline

import (
	"context"
	"fmt"

	"github.com/d-saikrishna/assam-tenders/internal/logging"
	"github.com/d-saikrishna/assam-tenders/internal/model"
	"github.com/d-saikrishna/assam-tenders/internal/store"
	"github.com/d-saikrishna/assam-tenders/internal/worker"
)

// OpenStore connects to the configured database, applies reference-table
// migrations and points resolution at the configured static table
func OpenStore(ctx context.Context, cfg *model.Config, logger *logging.Logger) (*store.DB, error) {
	if logger == nil {
		logger = logging.Nop()
	}

	db, err := store.Open(ctx, cfg.Database,
		store.WithLogger(logger.With("component", "store")),
		store.WithChunkSize(cfg.Loader.ChunkSize),
		store.WithLimiter(worker.NewLimiter(cfg.Loader.WriteRate, cfg.Loader.WriteBurst)),
		store.WithTenderColumns(store.TenderColumns{
			Table:     cfg.Loader.StaticTable,
			Key:       cfg.Schema.KeyColumn,
			Title:     cfg.Schema.TitleColumn,
			Reference: cfg.Schema.ReferenceColumn,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	if err := db.Migrate(false); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}
