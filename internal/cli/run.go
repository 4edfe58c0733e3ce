package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/d-saikrishna/assam-tenders/internal/model"
	"github.com/d-saikrishna/assam-tenders/internal/pipeline"
)

var (
	outJSON    string
	runTimeout time.Duration
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Load one export file and resolve rivers",
	Long: `Run processes a single procurement export (.csv or .xlsx):
- Map the header and split static and status columns
- Append tenders and status changes not yet persisted
- Recompute which tenders concern flood management
- Grow the canonical river vocabulary
- Rebuild the tender to river links

Example:
  tenders run export-2021-04.csv
  tenders run export-2021-04.xlsx --json report.json`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&outJSON, "json", "", "output JSON report path (optional)")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 30*time.Minute, "overall run timeout")
}

func runRun(cmd *cobra.Command, args []string) error {
	return runOne(args[0], runTimeout, outJSON, func(p *pipeline.Pipeline, ctx context.Context, path string) (*model.RunReport, error) {
		return p.RunFile(ctx, path)
	})
}

// runOne executes a single-file command and renders its report
func runOne(path string, timeout time.Duration, jsonPath string, fn func(*pipeline.Pipeline, context.Context, string) (*model.RunReport, error)) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	printBanner("Tenders Run",
		[2]string{"Input file", path},
		[2]string{"Store", storeLabel(s.cfg.Database)},
		[2]string{"Timeout", timeout.String()},
	)

	report, err := fn(s.pipeline, ctx, path)
	renderer := pipeline.NewRenderer(verbose)
	if report != nil {
		renderer.RenderSummary(os.Stderr, report)
	}
	if err != nil {
		return err
	}

	if jsonPath != "" {
		if err := renderer.RenderJSON(report, jsonPath); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ Wrote JSON: %s\n", jsonPath)
	}
	return nil
}
