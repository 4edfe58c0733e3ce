package classify

import (
	"testing"

	"github.com/d-saikrishna/assam-tenders/internal/model"
)

func defaultKeywords() *Keywords {
	return NewKeywords(model.DefaultConfig().Keywords)
}

func TestClassify_Examples(t *testing.T) {
	kw := defaultKeywords()

	if !IsRelevant(model.Tender{Key: "a", Title: "Flood Embankment Repair"}, kw) {
		t.Error("expected 'Flood Embankment Repair' to be relevant")
	}
	if IsRelevant(model.Tender{Key: "b", Title: "Driver Training Course"}, kw) {
		t.Error("expected 'Driver Training Course' to be irrelevant")
	}
}

func TestClassify_CaseInsensitive(t *testing.T) {
	kw := defaultKeywords()

	if !IsRelevant(model.Tender{Key: "a", Title: "construction of CULVERT at km 3"}, kw) {
		t.Error("expected upper-case keyword to match")
	}
	if IsRelevant(model.Tender{Key: "b", Title: "Protection work", ExternalReference: "sdrf/2021/7"}, kw) {
		t.Error("expected keyword glued to other characters not to match")
	}
}

func TestClassify_ReferenceCounts(t *testing.T) {
	kw := defaultKeywords()

	r := model.Tender{Key: "a", Title: "Supply of materials", ExternalReference: "SDRF 2021 07"}
	if !IsRelevant(r, kw) {
		t.Error("expected positive keyword in reference to count")
	}

	r = model.Tender{Key: "b", Title: "Flood relief", ExternalReference: "Driver hire"}
	if IsRelevant(r, kw) {
		t.Error("expected negative keyword in reference to exclude")
	}
}

func TestClassify_TokenOnly(t *testing.T) {
	kw := defaultKeywords()

	// substring of a token is not a hit
	if IsRelevant(model.Tender{Key: "a", Title: "Riverside park beautification"}, kw) {
		t.Error("expected substring match to be ignored")
	}
	// multi-word keyword never matches as a phrase, but its tokens are not keywords either
	if IsRelevant(model.Tender{Key: "b", Title: "Storm water management"}, kw) {
		t.Error("expected phrase keyword not to match")
	}
	// Floodlight is a negative token and wins over nothing
	if IsRelevant(model.Tender{Key: "c", Title: "Floodlight installation at river ghat"}, kw) {
		t.Error("expected negative token to exclude")
	}
}

func TestKeywords_Phrases(t *testing.T) {
	kw := defaultKeywords()

	phrases := kw.Phrases()
	if len(phrases) != 2 {
		t.Fatalf("expected 2 phrases, got %v", phrases)
	}
	if phrases[0] != "Flood Light" || phrases[1] != "Storm water drain" {
		t.Errorf("unexpected phrases: %v", phrases)
	}
}

func TestClassify_Stats(t *testing.T) {
	kw := defaultKeywords()
	records := []model.Tender{
		{Key: "1", Title: "Flood Embankment Repair"},
		{Key: "2", Title: "Driver Training Course"},
		{Key: "3", Title: "Office stationery"},
		{Key: "4", Title: "Repair of Brahmaputra River Bank"},
	}

	keys, stats := Classify(records, kw)

	if len(keys) != 2 || keys[0] != "1" || keys[1] != "4" {
		t.Errorf("expected keys [1 4], got %v", keys)
	}
	if stats.Input != 4 || stats.Relevant != 2 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.Excluded[ReasonNegative] != 1 || stats.Excluded[ReasonNoPositive] != 1 {
		t.Errorf("unexpected exclusions: %v", stats.Excluded)
	}
}
