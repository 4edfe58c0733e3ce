package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/d-saikrishna/assam-tenders/internal/model"
	"github.com/d-saikrishna/assam-tenders/internal/pipeline"
	"github.com/d-saikrishna/assam-tenders/internal/worker"
)

var (
	outputDir    string
	batchTimeout time.Duration
	stopOnError  bool
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <manifest>",
	Short: "Run every export file listed in a manifest",
	Long: `Batch processes the export files listed in a manifest (one path per
line, '#' starts a comment). Files share one store and run one at a time
in manifest order, so later weeks see earlier weeks' tenders.

Relative paths resolve against the manifest's directory.

Example:
  tenders batch weeks.txt
  tenders batch weeks.txt --output-dir ./reports --stop-on-error`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringVar(&outputDir, "output-dir", "", "write one JSON report per file to this directory (optional)")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 2*time.Hour, "total timeout for batch processing")
	batchCmd.Flags().BoolVar(&stopOnError, "stop-on-error", false, "stop at the first failed file")
}

func runBatch(cmd *cobra.Command, args []string) error {
	manifest := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	printBanner("Tenders Batch Processing",
		[2]string{"Manifest", manifest},
		[2]string{"Store", storeLabel(s.cfg.Database)},
		[2]string{"Output dir", outputDir},
		[2]string{"Timeout", batchTimeout.String()},
	)

	if outputDir != "" {
		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	processor := worker.NewBatchProcessor(s.pipeline, stopOnError)
	results, err := processor.ProcessManifest(ctx, manifest)
	if err != nil {
		return fmt.Errorf("process manifest: %w", err)
	}

	renderer := pipeline.NewRenderer(verbose)
	successCount := 0
	failureCount := 0

	for _, result := range results {
		if result.Error != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Path, result.Error)
			continue
		}
		successCount++

		if outputDir != "" {
			jsonPath := filepath.Join(outputDir, reportName(result.Path))
			if err := renderer.RenderJSON(result.Report, jsonPath); err != nil {
				fmt.Fprintf(os.Stderr, "✗ %s: failed to write JSON: %v\n", result.Path, err)
				continue
			}
		}

		links := 0
		if st := result.Report.Stage(model.StageAttribute); st != nil {
			links = st.Output
		}
		fmt.Fprintf(os.Stderr, "✓ %s (%d new tenders, %d links)\n",
			result.Path, result.Report.Stage(model.StageStatic).Output, links)
	}

	// Summary
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d files\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "\n")

	if failureCount > 0 {
		return fmt.Errorf("%d of %d files failed", failureCount, len(results))
	}
	return nil
}

// reportName derives a JSON report file name from an export path
func reportName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".report.json"
}
