package extract

import (
	"strings"

	"github.com/d-saikrishna/assam-tenders/internal/model"
)

// Candidate holds the tokens around the anchor in a normalised title.
// Tokens keep their original case.
type Candidate struct {
	Key       string
	Prefix    string
	Suffix    string
	HasPrefix bool
	HasSuffix bool
}

// Extractor finds the anchor token in a title and returns its neighbours
type Extractor struct {
	anchor       string
	replacements []model.Replacement
}

// NewExtractor creates a new candidate extractor
func NewExtractor(cfg model.ExtractionConfig) *Extractor {
	return &Extractor{
		anchor:       cfg.Anchor,
		replacements: cfg.Replacements,
	}
}

// Normalize applies the configured substring rewrites in order
func (e *Extractor) Normalize(title string) string {
	for _, r := range e.replacements {
		if r.Old == "" {
			continue
		}
		title = strings.ReplaceAll(title, r.Old, r.New)
	}
	return title
}

// Extract returns the tokens before and after the first anchor token.
// The boolean is false when the title has no anchor.
func (e *Extractor) Extract(title string) (Candidate, bool) {
	tokens := strings.Fields(e.Normalize(title))

	for i, tok := range tokens {
		if tok != e.anchor {
			continue
		}
		var c Candidate
		if i > 0 {
			c.Prefix, c.HasPrefix = tokens[i-1], true
		}
		if i+1 < len(tokens) {
			c.Suffix, c.HasSuffix = tokens[i+1], true
		}
		return c, true
	}

	return Candidate{}, false
}

// ExtractAll extracts candidates for every record carrying the anchor
// and counts the records without one
func (e *Extractor) ExtractAll(records []model.Tender) ([]Candidate, int) {
	var (
		out      []Candidate
		noAnchor int
	)
	for _, r := range records {
		c, ok := e.Extract(r.Title)
		if !ok {
			noAnchor++
			continue
		}
		c.Key = r.Key
		out = append(out, c)
	}
	return out, noAnchor
}
