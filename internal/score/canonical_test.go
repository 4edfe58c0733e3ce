package score

import (
	"context"
	"fmt"
	"testing"

	"github.com/d-saikrishna/assam-tenders/internal/model"
)

func TestRatio(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"Brahmaputra", "Brahmaputra", 100},
		{"Brahmaputra", "Brahmaputr", 95},
		{"", "", 100},
		{"Kollong", "", 0},
		{"abc", "xyz", 0},
		{"kollong", "Kollong", 86},
		{"Beki", "Bekii", 89},
		{"abcdefgh", "aZZZZZZZ", 12}, // 12.5
		{"abcdefgh", "abcZZZZZ", 38}, // 37.5
	}

	for _, tt := range tests {
		if got := Ratio(tt.a, tt.b); got != tt.want {
			t.Errorf("Ratio(%q, %q): expected %d, got %d", tt.a, tt.b, tt.want, got)
		}
		if got := Ratio(tt.b, tt.a); got != tt.want {
			t.Errorf("Ratio(%q, %q) not symmetric: expected %d, got %d", tt.b, tt.a, tt.want, got)
		}
	}
}

func TestBestMatch(t *testing.T) {
	idx, score := BestMatch("Brahmaputr", []string{"Kollong", "Brahmaputra", "Brahmaputra"})
	if idx != 1 || score != 95 {
		t.Errorf("expected first best at 1 with 95, got %d with %d", idx, score)
	}

	idx, _ = BestMatch("x", nil)
	if idx != -1 {
		t.Errorf("expected -1 for empty list, got %d", idx)
	}
}

func newTestCanonicalizer(workers int) *Canonicalizer {
	return NewCanonicalizer(model.DefaultConfig().Canonical, workers, nil)
}

func TestCanonicalizer_CollapsesVariants(t *testing.T) {
	c := newTestCanonicalizer(1)

	vocab, err := c.Build(context.Background(), []string{"Brahmaputra", "Brahmaputr", "Kollong", "Kollong"})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if len(vocab.Names) != 2 {
		t.Fatalf("expected 2 canonical names, got %v", vocab.Names)
	}
	if vocab.Mapping["Brahmaputra"] != vocab.Mapping["Brahmaputr"] {
		t.Errorf("expected both spellings to share a canonical name, got %v", vocab.Mapping)
	}
	if vocab.Mapping["Kollong"] != "Kollong" {
		t.Errorf("expected Kollong to stay, got %q", vocab.Mapping["Kollong"])
	}
	if !vocab.Converged {
		t.Error("expected convergence")
	}
	if len(vocab.Sizes) != vocab.Passes {
		t.Errorf("expected one size per pass, got %d sizes for %d passes", len(vocab.Sizes), vocab.Passes)
	}
}

func TestCanonicalizer_FixedPointStable(t *testing.T) {
	c := newTestCanonicalizer(1)
	ctx := context.Background()

	first, err := c.Build(ctx, []string{"Brahmaputra", "Brahmaputr", "Kollong"})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	second, err := c.Build(ctx, first.Names)
	if err != nil {
		t.Fatalf("rebuild failed: %v", err)
	}

	if len(first.Names) != len(second.Names) {
		t.Fatalf("expected stable vocabulary, got %v then %v", first.Names, second.Names)
	}
	for i := range first.Names {
		if first.Names[i] != second.Names[i] {
			t.Errorf("expected stable vocabulary, got %v then %v", first.Names, second.Names)
		}
	}
	if second.Passes != 1 {
		t.Errorf("expected a fixed point to converge in one pass, got %d", second.Passes)
	}
}

func TestCanonicalizer_Denylist(t *testing.T) {
	c := newTestCanonicalizer(1)

	vocab, err := c.Build(context.Background(), []string{"Bank", "Kollong", "River", "Embankment"})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	for _, n := range vocab.Names {
		if n == "Bank" || n == "River" || n == "Embankment" {
			t.Errorf("expected %s to be denylisted", n)
		}
	}
	if _, ok := vocab.Mapping["Bank"]; ok {
		t.Error("expected denylisted name to be absent from mapping")
	}
}

func TestCanonicalizer_Empty(t *testing.T) {
	vocab, err := newTestCanonicalizer(1).Build(context.Background(), nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(vocab.Names) != 0 || !vocab.Converged {
		t.Errorf("unexpected vocabulary for empty input: %+v", vocab)
	}
}

func TestCanonicalizer_ParallelMatchesSequential(t *testing.T) {
	ctx := context.Background()

	// three-letter codes differ enough to stay apart; each has one close variant
	var raw []string
	for i := 0; i < 150; i++ {
		code := fmt.Sprintf("%c%c%c", 'A'+i/26%26, 'a'+i%26, 'a'+(i*7)%26)
		raw = append(raw, code, code+"x")
	}

	seq, err := newTestCanonicalizer(1).Build(ctx, raw)
	if err != nil {
		t.Fatalf("sequential build failed: %v", err)
	}
	par, err := newTestCanonicalizer(8).Build(ctx, raw)
	if err != nil {
		t.Fatalf("parallel build failed: %v", err)
	}

	if len(seq.Names) != len(par.Names) {
		t.Fatalf("expected same vocabulary size, got %d and %d", len(seq.Names), len(par.Names))
	}
	for i := range seq.Names {
		if seq.Names[i] != par.Names[i] {
			t.Fatalf("vocabularies differ at %d: %s vs %s", i, seq.Names[i], par.Names[i])
		}
	}
}

func TestCanonicalizer_PassLimit(t *testing.T) {
	cfg := model.DefaultConfig().Canonical
	cfg.MaxPasses = 1
	c := NewCanonicalizer(cfg, 1, nil)

	vocab, err := c.Build(context.Background(), []string{"Brahmaputra", "Brahmaputr", "Kollong"})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if vocab.Passes != 1 || vocab.Converged {
		t.Errorf("expected one unconverged pass, got passes=%d converged=%v", vocab.Passes, vocab.Converged)
	}
}

func TestCanonicalizer_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := newTestCanonicalizer(1).Build(ctx, []string{"a", "b"}); err == nil {
		t.Error("expected context error")
	}
}

func TestMergeVocabulary(t *testing.T) {
	added := MergeVocabulary([]string{"Brahmaputra", "Kollong"}, []string{"Kollong", "Jiadhal", "Dikhow", "Jiadhal"})

	if len(added) != 2 || added[0] != "Jiadhal" || added[1] != "Dikhow" {
		t.Errorf("expected [Jiadhal Dikhow], got %v", added)
	}
}
