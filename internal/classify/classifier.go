package classify

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/d-saikrishna/assam-tenders/internal/model"
)

// Exclusion reasons
const (
	ReasonNoPositive = "no_positive"
	ReasonNegative   = "negative_hit"
)

// Keywords holds case-folded positive and negative keyword sets
type Keywords struct {
	positive map[string]bool
	negative map[string]bool
	phrases  []string
}

// NewKeywords folds and indexes the configured keywords
func NewKeywords(cfg model.KeywordConfig) *Keywords {
	k := &Keywords{
		positive: make(map[string]bool),
		negative: make(map[string]bool),
	}
	for _, w := range cfg.Positive {
		k.add(k.positive, w)
	}
	for _, w := range cfg.Negative {
		k.add(k.negative, w)
	}
	sort.Strings(k.phrases)
	return k
}

func (k *Keywords) add(set map[string]bool, word string) {
	word = strings.TrimSpace(word)
	if word == "" {
		return
	}
	if len(strings.Fields(word)) > 1 {
		k.phrases = append(k.phrases, word)
	}
	set[fold(word)] = true
}

// Phrases returns configured multi-word keywords. Matching is per token,
// so these never match.
func (k *Keywords) Phrases() []string {
	return k.phrases
}

// Stats counts classifier outcomes
type Stats struct {
	Input    int
	Relevant int
	Excluded map[string]int
}

// Classify returns the keys of records whose title or reference carries a
// positive keyword token and neither carries a negative one, in input order
func Classify(records []model.Tender, kw *Keywords) ([]string, Stats) {
	stats := Stats{Input: len(records), Excluded: map[string]int{}}
	var keys []string

	for _, r := range records {
		pos, neg := kw.scan(r.Title)
		pos2, neg2 := kw.scan(r.ExternalReference)

		switch {
		case neg || neg2:
			stats.Excluded[ReasonNegative]++
		case pos || pos2:
			keys = append(keys, r.Key)
		default:
			stats.Excluded[ReasonNoPositive]++
		}
	}

	stats.Relevant = len(keys)
	return keys, stats
}

// IsRelevant classifies a single record
func IsRelevant(r model.Tender, kw *Keywords) bool {
	keys, _ := Classify([]model.Tender{r}, kw)
	return len(keys) == 1
}

// scan reports whether text has a positive and a negative token
func (k *Keywords) scan(text string) (positive, negative bool) {
	for _, tok := range strings.Fields(text) {
		t := fold(tok)
		if k.positive[t] {
			positive = true
		}
		if k.negative[t] {
			negative = true
		}
	}
	return positive, negative
}

// fold applies Unicode case folding; cases.Caser is not safe for concurrent use
func fold(s string) string {
	return cases.Fold().String(s)
}
