package model

import "time"

// Stage names used in reports, errors and metrics
const (
	StageRead      = "read"
	StageSchema    = "schema"
	StageStatic    = "load_static"
	StageUpdates   = "load_updates"
	StageClassify  = "classify"
	StageExtract   = "extract"
	StageCanonical = "canonicalize"
	StageAttribute = "attribute"
)

// RunReport summarises one pipeline run
type RunReport struct {
	RunID      string            `json:"run_id"`
	BatchID    string            `json:"batch_id,omitempty"`
	Source     string            `json:"source,omitempty"`
	StartedAt  time.Time         `json:"started_at"`
	Duration   time.Duration     `json:"duration"`
	Stages     []StageReport     `json:"stages"`
	Vocabulary *VocabularyReport `json:"vocabulary,omitempty"`
}

// StageReport holds the counts for one stage
type StageReport struct {
	Stage    string         `json:"stage"`
	Input    int            `json:"input"`
	Output   int            `json:"output"`
	Skipped  int            `json:"skipped,omitempty"`  // already persisted
	Excluded map[string]int `json:"excluded,omitempty"` // record-level exclusions by reason
	Duration time.Duration  `json:"duration"`
}

// ExcludedTotal returns the number of records excluded for any reason
func (s StageReport) ExcludedTotal() int {
	total := 0
	for _, n := range s.Excluded {
		total += n
	}
	return total
}

// VocabularyReport describes a canonical vocabulary build
type VocabularyReport struct {
	Candidates int   `json:"candidates"`
	Canonical  int   `json:"canonical"`
	Added      int   `json:"added"`
	Passes     int   `json:"passes"`
	Sizes      []int `json:"sizes"`
	Converged  bool  `json:"converged"`
}

// Stage returns the report for a stage, or nil
func (r *RunReport) Stage(name string) *StageReport {
	for i := range r.Stages {
		if r.Stages[i].Stage == name {
			return &r.Stages[i]
		}
	}
	return nil
}
