package extract

import (
	"unicode"
	"unicode/utf8"

	"github.com/d-saikrishna/assam-tenders/internal/model"
)

// Picker chooses one raw name per candidate for the vocabulary build
type Picker struct {
	prefixes  map[string]bool
	suffixes  map[string]bool
	minLength int
}

// NewPicker creates a new picker
func NewPicker(cfg model.ExtractionConfig) *Picker {
	p := &Picker{
		prefixes:  make(map[string]bool),
		suffixes:  make(map[string]bool),
		minLength: cfg.MinNameLength,
	}
	for _, s := range cfg.LowercasePrefixes {
		p.prefixes[s] = true
	}
	for _, s := range cfg.LowercaseSuffixes {
		p.suffixes[s] = true
	}
	return p
}

// Pick applies, in order: allow-listed prefix, allow-listed suffix,
// capitalised suffix, capitalised prefix. A title ending in the anchor
// only yields an allow-listed prefix.
func (p *Picker) Pick(c Candidate) (string, bool) {
	switch {
	case c.HasPrefix && p.prefixes[c.Prefix]:
		return c.Prefix, true
	case !c.HasSuffix:
		return "", false
	case c.HasSuffix && p.suffixes[c.Suffix]:
		return c.Suffix, true
	case c.HasSuffix && p.isName(c.Suffix):
		return c.Suffix, true
	case c.HasPrefix && p.isName(c.Prefix):
		return c.Prefix, true
	}
	return "", false
}

// PickAll returns the picked raw names in candidate order
func (p *Picker) PickAll(candidates []Candidate) []string {
	names := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if name, ok := p.Pick(c); ok {
			names = append(names, name)
		}
	}
	return names
}

// isName reports a capitalised token of at least minLength runes
func (p *Picker) isName(tok string) bool {
	r, _ := utf8.DecodeRuneInString(tok)
	return unicode.IsUpper(r) && utf8.RuneCountInString(tok) >= p.minLength
}
