package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/d-saikrishna/assam-tenders/internal/cache"
	"github.com/d-saikrishna/assam-tenders/internal/logging"
	"github.com/d-saikrishna/assam-tenders/internal/model"
	"github.com/d-saikrishna/assam-tenders/internal/pipeline"
	"github.com/d-saikrishna/assam-tenders/internal/store"
	"github.com/d-saikrishna/assam-tenders/internal/tracing"
)

// session holds everything a command needs against one store
type session struct {
	cfg      *model.Config
	logger   *logging.Logger
	db       *store.DB
	pipeline *pipeline.Pipeline
	tracing  func(context.Context) error
}

// openSession loads config and wires logger, tracing, store and pipeline
func openSession(ctx context.Context) (*session, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	shutdown, err := tracing.Init(ctx, cfg.Tracing.Enabled, "tenders", Version, nil)
	if err != nil {
		logger.Warn("tracing disabled", "error", err)
		shutdown = func(context.Context) error { return nil }
	}

	db, err := pipeline.OpenStore(ctx, cfg, logger)
	if err != nil {
		_ = shutdown(ctx)
		logger.Sync()
		return nil, err
	}

	var opts []pipeline.Option
	opts = append(opts, pipeline.WithLogger(logger))
	if cfg.Cache.Enabled {
		opts = append(opts, pipeline.WithCache(cache.NewMemoryCache(cfg.Cache.TTL, 2*cfg.Cache.TTL)))
	}

	return &session{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		pipeline: pipeline.NewPipeline(cfg, db, opts...),
		tracing:  shutdown,
	}, nil
}

// Close pushes metrics when configured, then releases the store
func (s *session) Close() {
	if url := s.cfg.Metrics.PushURL; url != "" {
		if err := s.pipeline.Metrics().Push(url, s.cfg.Metrics.Job); err != nil {
			s.logger.Warn("metrics push failed", "url", url, "error", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.tracing(ctx); err != nil {
		s.logger.Warn("tracing shutdown failed", "error", err)
	}

	if err := s.db.Close(); err != nil {
		s.logger.Warn("close store failed", "error", err)
	}
	s.logger.Sync()
}

// printBanner writes the command header to stderr
func printBanner(title string, rows ...[2]string) {
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  %s\n", title)
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	for _, r := range rows {
		fmt.Fprintf(os.Stderr, "  %-13s %s\n", r[0]+":", r[1])
	}
	if len(rows) > 0 {
		fmt.Fprintf(os.Stderr, "\n")
	}
}

// storeLabel describes the store without credentials
func storeLabel(cfg model.DatabaseConfig) string {
	if cfg.Driver == store.DriverSQLite {
		return fmt.Sprintf("%s %s", cfg.Driver, cfg.DSN)
	}
	return fmt.Sprintf("%s %s:%d/%s (schema %s)", cfg.Driver, cfg.Host, cfg.Port, cfg.Name, cfg.Schema)
}
