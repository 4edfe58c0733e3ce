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
	loadJSON    string
	loadTimeout time.Duration
)

// loadCmd represents the load command
var loadCmd = &cobra.Command{
	Use:   "load <file>",
	Short: "Load one export file without resolving",
	Long: `Load maps an export file and appends the tenders and status changes not
yet persisted. Relevance, vocabulary and links are left untouched; run
'tenders resolve' afterwards.

Example:
  tenders load export-2021-04.csv`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOne(args[0], loadTimeout, loadJSON, func(p *pipeline.Pipeline, ctx context.Context, path string) (*model.RunReport, error) {
			return p.LoadFile(ctx, path)
		})
	},
}

// resolveCmd represents the resolve command
var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Classify, build the vocabulary and attribute persisted tenders",
	Long: `Resolve recomputes relevance over every persisted tender, appends new
canonical river names and rebuilds the tender to river links.

Example:
  tenders resolve
  tenders resolve --json resolve.json`,
	Args: cobra.NoArgs,
	RunE: runResolve,
}

func init() {
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(resolveCmd)

	loadCmd.Flags().StringVar(&loadJSON, "json", "", "output JSON report path (optional)")
	loadCmd.Flags().DurationVar(&loadTimeout, "timeout", 30*time.Minute, "overall load timeout")

	resolveCmd.Flags().StringVar(&loadJSON, "json", "", "output JSON report path (optional)")
	resolveCmd.Flags().DurationVar(&loadTimeout, "timeout", 30*time.Minute, "overall resolve timeout")
}

func runResolve(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	printBanner("Tenders Resolve", [2]string{"Store", storeLabel(s.cfg.Database)})

	report, err := s.pipeline.Resolve(ctx)
	renderer := pipeline.NewRenderer(verbose)
	renderer.RenderSummary(os.Stderr, report)
	if err != nil {
		return err
	}

	if loadJSON != "" {
		if err := renderer.RenderJSON(report, loadJSON); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ Wrote JSON: %s\n", loadJSON)
	}
	return nil
}
