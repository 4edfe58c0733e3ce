package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/d-saikrishna/assam-tenders/internal/model"
)

// Renderer writes run reports
type Renderer struct {
	verbose bool
}

// NewRenderer creates a new renderer; verbose adds per-reason exclusions
func NewRenderer(verbose bool) *Renderer {
	return &Renderer{verbose: verbose}
}

// RenderJSON writes the report as indented JSON to path
func (r *Renderer) RenderJSON(report *model.RunReport, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// RenderSummary prints a stage table for the report
func (r *Renderer) RenderSummary(w io.Writer, report *model.RunReport) {
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "  Run %s\n", report.RunID)
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "\n")
	if report.Source != "" {
		fmt.Fprintf(w, "  Source:     %s\n", report.Source)
	}
	if report.BatchID != "" {
		fmt.Fprintf(w, "  Batch:      %s\n", report.BatchID)
	}
	fmt.Fprintf(w, "  Duration:   %v\n", report.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "\n")

	fmt.Fprintf(w, "  %-14s %8s %8s %8s %8s\n", "STAGE", "IN", "OUT", "SKIPPED", "EXCLUDED")
	for _, s := range report.Stages {
		fmt.Fprintf(w, "  %-14s %8d %8d %8d %8d\n", s.Stage, s.Input, s.Output, s.Skipped, s.ExcludedTotal())
		if r.verbose && len(s.Excluded) > 0 {
			fmt.Fprintf(w, "  %-14s %s\n", "", formatReasons(s.Excluded))
		}
	}

	if v := report.Vocabulary; v != nil {
		fmt.Fprintf(w, "\n")
		fmt.Fprintf(w, "  Vocabulary: %d candidates → %d canonical (%d new)\n", v.Candidates, v.Canonical, v.Added)
		fmt.Fprintf(w, "  Passes:     %d %v", v.Passes, v.Sizes)
		if !v.Converged {
			fmt.Fprintf(w, " (pass limit reached)")
		}
		fmt.Fprintf(w, "\n")
	}
	fmt.Fprintf(w, "\n")
}

func formatReasons(counts map[string]int) string {
	reasons := make([]string, 0, len(counts))
	for reason := range counts {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)

	parts := make([]string, len(reasons))
	for i, reason := range reasons {
		parts[i] = fmt.Sprintf("%s=%d", reason, counts[reason])
	}
	return strings.Join(parts, " ")
}
