package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	attrib "github.com/d-saikrishna/assam-tenders/internal/attribute"
	"github.com/d-saikrishna/assam-tenders/internal/cache"
	"github.com/d-saikrishna/assam-tenders/internal/classify"
	"github.com/d-saikrishna/assam-tenders/internal/extract"
	"github.com/d-saikrishna/assam-tenders/internal/ingest"
	"github.com/d-saikrishna/assam-tenders/internal/loader"
	"github.com/d-saikrishna/assam-tenders/internal/logging"
	"github.com/d-saikrishna/assam-tenders/internal/metrics"
	"github.com/d-saikrishna/assam-tenders/internal/model"
	"github.com/d-saikrishna/assam-tenders/internal/schema"
	"github.com/d-saikrishna/assam-tenders/internal/score"
	"github.com/d-saikrishna/assam-tenders/internal/store"
	"github.com/d-saikrishna/assam-tenders/internal/tracing"
)

// Reason recorded when an anchored title yields no usable name
const ReasonNoName = "no_name"

// Pipeline orchestrates loading and resolution of tender batches
type Pipeline struct {
	db         *store.DB
	reader     *ingest.Reader
	mapper     *schema.Mapper
	loader     *loader.Loader
	keywords   *classify.Keywords
	extractor  *extract.Extractor
	picker     *extract.Picker
	canon      *score.Canonicalizer
	attributor *attrib.Attributor
	entities   *cache.EntityCache
	metrics    *metrics.Metrics
	logger     *logging.Logger
	config     *model.Config
}

// Option configures a Pipeline
type Option func(*options)

type options struct {
	logger  *logging.Logger
	metrics *metrics.Metrics
	cache   cache.Cache
}

// WithLogger sets the pipeline logger
func WithLogger(l *logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics records stage and run metrics into m
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithCache shares reference data across runs through c
func WithCache(c cache.Cache) Option {
	return func(o *options) { o.cache = c }
}

// NewPipeline creates a new pipeline over db with the given configuration
func NewPipeline(cfg *model.Config, db *store.DB, opts ...Option) *Pipeline {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logging.Nop()
	}
	if o.metrics == nil {
		o.metrics = metrics.New()
	}

	workers := cfg.Concurrency.Workers
	extractor := extract.NewExtractor(cfg.Extraction)

	return &Pipeline{
		db:         db,
		reader:     ingest.NewReader(""),
		mapper:     schema.NewMapper(cfg.Schema),
		loader:     loader.New(db, cfg.Loader, o.logger),
		keywords:   classify.NewKeywords(cfg.Keywords),
		extractor:  extractor,
		picker:     extract.NewPicker(cfg.Extraction),
		canon:      score.NewCanonicalizer(cfg.Canonical, workers, o.logger),
		attributor: attrib.NewAttributor(extractor, cfg.Attribution, workers, o.logger),
		entities:   cache.NewEntityCache(db, o.cache, cfg.Cache.TTL),
		metrics:    o.metrics,
		logger:     o.logger.With("component", "pipeline"),
		config:     cfg,
	}
}

// Metrics returns the collectors the pipeline records into
func (p *Pipeline) Metrics() *metrics.Metrics {
	return p.metrics
}

func newReport(source string) *model.RunReport {
	return &model.RunReport{
		RunID:     uuid.NewString(),
		Source:    source,
		StartedAt: time.Now().UTC(),
	}
}

// RunFile reads one export file and runs the full pipeline over it
func (p *Pipeline) RunFile(ctx context.Context, path string) (*model.RunReport, error) {
	return p.runFile(ctx, path, true)
}

// LoadFile reads one export file and loads it without resolving
func (p *Pipeline) LoadFile(ctx context.Context, path string) (*model.RunReport, error) {
	return p.runFile(ctx, path, false)
}

func (p *Pipeline) runFile(ctx context.Context, path string, resolve bool) (*model.RunReport, error) {
	report := newReport(path)

	var raw *model.RawBatch
	err := p.stage(ctx, report, model.StageRead, func(ctx context.Context, s *model.StageReport) error {
		var err error
		raw, err = p.reader.ReadFile(ctx, path)
		if err != nil {
			return err
		}
		s.Output = len(raw.Rows)
		return nil
	})
	if err != nil {
		return p.finish(report, err)
	}

	return p.finish(report, p.run(ctx, report, raw, resolve))
}

// Run loads a raw batch and resolves relevance, vocabulary and links
func (p *Pipeline) Run(ctx context.Context, raw *model.RawBatch) (*model.RunReport, error) {
	report := newReport(raw.Source)
	return p.finish(report, p.run(ctx, report, raw, true))
}

// Load maps and loads a raw batch without resolving
func (p *Pipeline) Load(ctx context.Context, raw *model.RawBatch) (*model.RunReport, error) {
	report := newReport(raw.Source)
	return p.finish(report, p.run(ctx, report, raw, false))
}

// Resolve recomputes relevance, vocabulary and links over persisted tenders
func (p *Pipeline) Resolve(ctx context.Context) (*model.RunReport, error) {
	report := newReport("")
	return p.finish(report, p.resolve(ctx, report))
}

func (p *Pipeline) run(ctx context.Context, report *model.RunReport, raw *model.RawBatch, resolve bool) error {
	// 1. Map the header and split projections
	var static, updates *model.Projection
	err := p.stage(ctx, report, model.StageSchema, func(ctx context.Context, s *model.StageReport) error {
		s.Input = len(raw.Rows)
		var err error
		static, updates, err = p.mapper.Map(raw)
		if err != nil {
			return err
		}
		report.BatchID = static.BatchID
		s.Output = static.Len()
		s.Skipped = s.Input - s.Output
		return nil
	})
	if err != nil {
		return err
	}

	// 2. Append novel static rows
	err = p.stage(ctx, report, model.StageStatic, func(ctx context.Context, s *model.StageReport) error {
		s.Input = static.Len()
		res, err := p.loader.LoadStatic(ctx, static)
		if err != nil {
			return err
		}
		s.Output, s.Skipped = res.Appended, res.Skipped
		return nil
	})
	if err != nil {
		return err
	}

	// 3. Append novel (key, date) updates
	err = p.stage(ctx, report, model.StageUpdates, func(ctx context.Context, s *model.StageReport) error {
		s.Input = updates.Len()
		res, err := p.loader.LoadUpdates(ctx, updates)
		if err != nil {
			return err
		}
		s.Output, s.Skipped = res.Appended, res.Skipped
		s.Excluded = res.Rejected
		return nil
	})
	if err != nil {
		return err
	}

	if !resolve {
		return nil
	}

	// 4. Classify, build vocabulary and attribute
	return p.resolve(ctx, report)
}

func (p *Pipeline) resolve(ctx context.Context, report *model.RunReport) error {
	// 1. Recompute relevance over every persisted tender
	err := p.stage(ctx, report, model.StageClassify, func(ctx context.Context, s *model.StageReport) error {
		tenders, err := p.db.StaticTenders(ctx)
		if err != nil {
			return err
		}
		keys, stats := classify.Classify(tenders, p.keywords)
		if err := p.db.ReplaceKeys(ctx, keys); err != nil {
			return err
		}
		if phrases := p.keywords.Phrases(); len(phrases) > 0 {
			p.logger.Debug("multi-word keywords never match single tokens", "phrases", phrases)
		}
		s.Input, s.Output, s.Excluded = stats.Input, stats.Relevant, stats.Excluded
		return nil
	})
	if err != nil {
		return err
	}

	// 2. Extract candidate names around the anchor
	var (
		relevant []model.Tender
		names    []string
	)
	err = p.stage(ctx, report, model.StageExtract, func(ctx context.Context, s *model.StageReport) error {
		var err error
		relevant, err = p.db.RelevantTenders(ctx)
		if err != nil {
			return err
		}
		candidates, noAnchor := p.extractor.ExtractAll(relevant)
		names = p.picker.PickAll(candidates)

		s.Input, s.Output = len(relevant), len(names)
		s.Excluded = excluded(map[string]int{
			attrib.ReasonNoAnchor: noAnchor,
			ReasonNoName:          len(candidates) - len(names),
		})
		return nil
	})
	if err != nil {
		return err
	}

	// 3. Build the canonical vocabulary and append new names
	err = p.stage(ctx, report, model.StageCanonical, func(ctx context.Context, s *model.StageReport) error {
		vocab, err := p.canon.Build(ctx, names)
		if err != nil {
			return err
		}
		persisted, err := p.entities.Entities(ctx)
		if err != nil {
			return err
		}
		existing := make([]string, len(persisted))
		for i, e := range persisted {
			existing[i] = e.Name
		}

		added, err := p.db.AppendEntities(ctx, score.MergeVocabulary(existing, vocab.Names))
		if err != nil {
			return err
		}
		if added > 0 {
			p.entities.Invalidate()
		}

		report.Vocabulary = &model.VocabularyReport{
			Candidates: len(names),
			Canonical:  len(vocab.Names),
			Added:      added,
			Passes:     vocab.Passes,
			Sizes:      vocab.Sizes,
			Converged:  vocab.Converged,
		}
		s.Input, s.Output = len(names), len(vocab.Names)
		return nil
	})
	if err != nil {
		return err
	}

	// 4. Attribute relevant tenders and rebuild links
	return p.stage(ctx, report, model.StageAttribute, func(ctx context.Context, s *model.StageReport) error {
		entities, err := p.entities.Entities(ctx)
		if err != nil {
			return err
		}
		links, stats, err := p.attributor.Attribute(ctx, relevant, entities)
		if err != nil {
			return err
		}
		if err := p.db.ReplaceLinks(ctx, links); err != nil {
			return err
		}
		s.Input, s.Output, s.Excluded = stats.Input, stats.Linked, excluded(stats.Excluded)
		return nil
	})
}

// stage runs fn as one named stage: traced, timed, reported and measured
func (p *Pipeline) stage(ctx context.Context, report *model.RunReport, name string, fn func(context.Context, *model.StageReport) error) error {
	if err := ctx.Err(); err != nil {
		return &model.StageError{Stage: name, Err: err}
	}

	ctx, span := tracing.StartSpan(ctx, "stage."+name,
		attribute.String("run_id", report.RunID),
		attribute.String("batch_id", report.BatchID))
	defer span.End()

	s := model.StageReport{Stage: name}
	start := time.Now()
	err := fn(ctx, &s)
	s.Duration = time.Since(start)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.logger.Error("stage failed", "stage", name, "batch_id", report.BatchID, "error", err)
		return &model.StageError{Stage: name, Err: err}
	}

	span.SetAttributes(attribute.Int("input", s.Input), attribute.Int("output", s.Output))
	report.Stages = append(report.Stages, s)
	p.metrics.ObserveStage(s)

	p.logger.Info("stage complete",
		"stage", name, "input", s.Input, "output", s.Output,
		"skipped", s.Skipped, "excluded", s.ExcludedTotal(), "duration", s.Duration)
	return nil
}

func (p *Pipeline) finish(report *model.RunReport, err error) (*model.RunReport, error) {
	report.Duration = time.Since(report.StartedAt)
	p.metrics.ObserveRun(report, err, report.Duration)
	if err != nil {
		return report, fmt.Errorf("run %s: %w", report.RunID, err)
	}
	return report, nil
}

// excluded drops zero counts
func excluded(counts map[string]int) map[string]int {
	out := make(map[string]int, len(counts))
	for reason, n := range counts {
		if n > 0 {
			out[reason] = n
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
