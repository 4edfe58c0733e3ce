package score

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/d-saikrishna/assam-tenders/internal/logging"
	"github.com/d-saikrishna/assam-tenders/internal/model"
)

// parallelMinNames is the row width from which scoring fans out
const parallelMinNames = 256

// maskedScore replaces perfect scores so a name never matches itself
const maskedScore = -1

// Vocabulary is the result of a canonicalization run
type Vocabulary struct {
	Names     []string          // canonical names, sorted, denylist removed
	Mapping   map[string]string // raw name -> canonical name
	Passes    int
	Sizes     []int // distinct names after each pass
	Converged bool
}

// Canonicalizer collapses spelling variants into canonical names by
// repeatedly replacing each name with its closest non-identical neighbour
type Canonicalizer struct {
	threshold int
	maxPasses int
	denylist  map[string]bool
	workers   int
	logger    *logging.Logger
}

// NewCanonicalizer creates a new canonicalizer
func NewCanonicalizer(cfg model.CanonicalConfig, workers int, logger *logging.Logger) *Canonicalizer {
	if logger == nil {
		logger = logging.Nop()
	}
	if workers <= 0 {
		workers = 1
	}
	maxPasses := cfg.MaxPasses
	if maxPasses <= 0 {
		maxPasses = 50
	}

	deny := make(map[string]bool, len(cfg.Denylist))
	for _, d := range cfg.Denylist {
		deny[d] = true
	}

	return &Canonicalizer{
		threshold: cfg.Threshold,
		maxPasses: maxPasses,
		denylist:  deny,
		workers:   workers,
		logger:    logger.With("component", "canonicalizer"),
	}
}

// assignment is one pass's view of the names: desc[k] and asc[k] hold the
// current name of slot k in the descending and ascending orderings
type assignment struct {
	desc []string
	asc  []string
}

func (a assignment) clone() assignment {
	return assignment{
		desc: append([]string(nil), a.desc...),
		asc:  append([]string(nil), a.asc...),
	}
}

// Build canonicalizes raw names until the distinct-name count stops shrinking
func (c *Canonicalizer) Build(ctx context.Context, raw []string) (Vocabulary, error) {
	distinct := uniqueSorted(raw)
	vocab := Vocabulary{Mapping: make(map[string]string, len(distinct))}
	if len(distinct) == 0 {
		vocab.Converged = true
		return vocab, nil
	}

	initial := assignment{
		desc: make([]string, len(distinct)),
		asc:  append([]string(nil), distinct...),
	}
	for i, n := range distinct {
		initial.desc[len(distinct)-1-i] = n
	}

	current := initial
	size := len(distinct)
	for vocab.Passes < c.maxPasses {
		next, err := c.pass(ctx, current)
		if err != nil {
			return Vocabulary{}, err
		}
		vocab.Passes++

		nextSize := countDistinct(next.asc)
		vocab.Sizes = append(vocab.Sizes, nextSize)
		current = next

		if nextSize == size {
			vocab.Converged = true
			break
		}
		size = nextSize
	}

	if !vocab.Converged {
		c.logger.Warn("canonicalization hit pass limit", "passes", vocab.Passes, "names", size)
	}

	names := make(map[string]bool)
	for k, raw := range initial.desc {
		canonical := current.desc[k]
		if c.denylist[canonical] {
			continue
		}
		vocab.Mapping[raw] = canonical
		names[canonical] = true
	}
	for n := range names {
		vocab.Names = append(vocab.Names, n)
	}
	sort.Strings(vocab.Names)

	c.logger.Debug("vocabulary built",
		"raw", len(distinct), "canonical", len(vocab.Names),
		"passes", vocab.Passes, "converged", vocab.Converged)

	return vocab, nil
}

// pass visits every descending slot in order and applies at most one swap per slot
func (c *Canonicalizer) pass(ctx context.Context, prev assignment) (assignment, error) {
	next := prev.clone()

	for k := range next.desc {
		if err := ctx.Err(); err != nil {
			return assignment{}, err
		}

		name := next.desc[k]
		scores, err := c.scoreRow(ctx, name, next.asc)
		if err != nil {
			return assignment{}, err
		}

		best, bestScore := -1, maskedScore
		for j, s := range scores {
			if s > bestScore {
				best, bestScore = j, s
			}
		}
		if best < 0 || bestScore < c.threshold {
			continue
		}

		change := next.asc[best]
		replaceFirst(next.desc, name, change)
		replaceFirst(next.asc, name, change)
	}

	return next, nil
}

// scoreRow scores name against every entry of asc, masking perfect scores
func (c *Canonicalizer) scoreRow(ctx context.Context, name string, asc []string) ([]int, error) {
	scores := make([]int, len(asc))

	if c.workers == 1 || len(asc) < parallelMinNames {
		for j, other := range asc {
			scores[j] = masked(Ratio(name, other))
		}
		return scores, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)

	chunk := (len(asc) + c.workers - 1) / c.workers
	for start := 0; start < len(asc); start += chunk {
		start, end := start, min(start+chunk, len(asc))
		g.Go(func() error {
			for j := start; j < end; j++ {
				if j%64 == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				scores[j] = masked(Ratio(name, asc[j]))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return scores, nil
}

func masked(score int) int {
	if score == 100 {
		return maskedScore
	}
	return score
}

func replaceFirst(names []string, old, replacement string) {
	for i, n := range names {
		if n == old {
			names[i] = replacement
			return
		}
	}
}

func uniqueSorted(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		if r == "" || seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

func countDistinct(names []string) int {
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		seen[n] = true
	}
	return len(seen)
}

// MergeVocabulary returns the built names not yet persisted, in built order.
// Persisted names are never renamed or removed.
func MergeVocabulary(persisted, built []string) []string {
	have := make(map[string]bool, len(persisted))
	for _, p := range persisted {
		have[p] = true
	}

	var added []string
	for _, b := range built {
		if have[b] {
			continue
		}
		have[b] = true
		added = append(added, b)
	}
	return added
}
