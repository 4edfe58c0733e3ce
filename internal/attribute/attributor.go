package attribute

import (
	"context"
	"fmt"
	"sort"

	"github.com/d-saikrishna/assam-tenders/internal/extract"
	"github.com/d-saikrishna/assam-tenders/internal/logging"
	"github.com/d-saikrishna/assam-tenders/internal/model"
	"github.com/d-saikrishna/assam-tenders/internal/score"
	"github.com/d-saikrishna/assam-tenders/internal/worker"
)

// Exclusion reasons
const (
	ReasonNoAnchor       = "no_anchor"
	ReasonAmbiguous      = "ambiguous"
	ReasonTie            = "tie"
	ReasonBelowThreshold = "below_threshold"
	ReasonUnmapped       = "unmapped"
)

// Stats counts attribution outcomes
type Stats struct {
	Input    int
	Linked   int
	Excluded map[string]int
}

// Attributor links records to canonical entities by scoring the tokens
// around the anchor against every entity name
type Attributor struct {
	extractor *extract.Extractor
	minScore  int
	preferPre bool
	workers   int
	logger    *logging.Logger
}

// NewAttributor creates a new attributor
func NewAttributor(extractor *extract.Extractor, cfg model.AttributionConfig, workers int, logger *logging.Logger) *Attributor {
	if logger == nil {
		logger = logging.Nop()
	}
	if workers <= 0 {
		workers = 1
	}
	return &Attributor{
		extractor: extractor,
		minScore:  cfg.MinScore,
		preferPre: cfg.PreferPrefixOnTie,
		workers:   workers,
		logger:    logger.With("component", "attributor"),
	}
}

// Attribute scores every record concurrently and returns links sorted by key
func (a *Attributor) Attribute(ctx context.Context, records []model.Tender, entities []model.Entity) ([]model.Link, Stats, error) {
	stats := Stats{Input: len(records), Excluded: make(map[string]int)}
	if len(records) == 0 {
		return nil, stats, nil
	}

	names := make([]string, len(entities))
	for i, e := range entities {
		names[i] = e.Name
	}

	pool := worker.NewPool(ctx, a.workers)
	pool.Start()

	for _, r := range records {
		job := &attributeJob{
			attributor: a,
			record:     r,
			entities:   entities,
			names:      names,
		}
		if !pool.Submit(job) {
			pool.Shutdown()
			return nil, stats, fmt.Errorf("attribute: %w", ctx.Err())
		}
	}

	results := pool.Wait()
	if err := ctx.Err(); err != nil {
		return nil, stats, fmt.Errorf("attribute: %w", err)
	}
	if len(results) != len(records) {
		return nil, stats, fmt.Errorf("attribute: %d of %d records scored", len(results), len(records))
	}

	var links []model.Link
	for _, res := range results {
		r := res.(*attributeResult)
		if r.reason != "" {
			stats.Excluded[r.reason]++
			continue
		}
		links = append(links, model.Link{Key: r.key, EntityID: r.entityID})
	}

	sort.Slice(links, func(i, j int) bool {
		if links[i].Key != links[j].Key {
			return links[i].Key < links[j].Key
		}
		return links[i].EntityID < links[j].EntityID
	})
	stats.Linked = len(links)

	a.logger.Debug("attribution complete", "input", stats.Input, "linked", stats.Linked, "excluded", stats.Excluded)

	return links, stats, nil
}

// Resolve decides the entity for one record. It returns the index into
// names, or an exclusion reason.
func (a *Attributor) Resolve(title string, names []string) (int, string) {
	c, ok := a.extractor.Extract(title)
	if !ok {
		return -1, ReasonNoAnchor
	}
	if len(names) == 0 {
		return -1, ReasonUnmapped
	}

	prefix := side(c.Prefix, c.HasPrefix, names)
	suffix := side(c.Suffix, c.HasSuffix, names)

	var win sideScore
	switch {
	case prefix.max > suffix.max:
		win = prefix
	case suffix.max > prefix.max:
		win = suffix
	case a.preferPre:
		win = prefix
	default:
		return -1, ReasonTie
	}

	if win.best < 0 || win.max < a.minScore {
		return -1, ReasonBelowThreshold
	}
	if win.count > 1 {
		return -1, ReasonAmbiguous
	}
	return win.best, ""
}

// sideScore is the best score of one token against all names
type sideScore struct {
	max   int
	best  int // first index achieving max
	count int // how many names achieve max
}

// side scores tok against names; an absent token scores 0 everywhere
func side(tok string, present bool, names []string) sideScore {
	s := sideScore{max: -1, best: -1}
	for i, n := range names {
		sc := 0
		if present {
			sc = score.Ratio(tok, n)
		}
		switch {
		case sc > s.max:
			s = sideScore{max: sc, best: i, count: 1}
		case sc == s.max:
			s.count++
		}
	}
	if s.max < 0 {
		s.max = 0
	}
	return s
}

type attributeJob struct {
	attributor *Attributor
	record     model.Tender
	entities   []model.Entity
	names      []string
}

type attributeResult struct {
	key      string
	entityID int64
	reason   string
}

func (r *attributeResult) GetError() error { return nil }

func (j *attributeJob) Execute(ctx context.Context) worker.Result {
	res := &attributeResult{key: j.record.Key}

	idx, reason := j.attributor.Resolve(j.record.Title, j.names)
	if reason != "" {
		res.reason = reason
		return res
	}

	id := j.entities[idx].ID
	if id == 0 {
		res.reason = ReasonUnmapped
		return res
	}
	res.entityID = id
	return res
}
