package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/d-saikrishna/assam-tenders/internal/model"
)

// Runner runs the full pipeline for one file
type Runner interface {
	RunFile(ctx context.Context, path string) (*model.RunReport, error)
}

// FileResult is the outcome of one manifest entry
type FileResult struct {
	Path   string
	Report *model.RunReport
	Error  error
}

// GetError returns the error from the file result
func (r *FileResult) GetError() error {
	return r.Error
}

// BatchProcessor runs a manifest of files through a Runner.
// Files share one store, so they are processed one at a time in manifest order.
type BatchProcessor struct {
	runner      Runner
	stopOnError bool
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(runner Runner, stopOnError bool) *BatchProcessor {
	return &BatchProcessor{
		runner:      runner,
		stopOnError: stopOnError,
	}
}

// ProcessFiles runs each file in order; a failed file does not abort the rest
// unless stopOnError is set
func (b *BatchProcessor) ProcessFiles(ctx context.Context, paths []string) []*FileResult {
	results := make([]*FileResult, 0, len(paths))

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			results = append(results, &FileResult{Path: path, Error: err})
			continue
		}

		report, err := b.runner.RunFile(ctx, path)
		results = append(results, &FileResult{Path: path, Report: report, Error: err})

		if err != nil && b.stopOnError {
			break
		}
	}

	return results
}

// ProcessManifest reads a manifest and processes the files it lists
func (b *BatchProcessor) ProcessManifest(ctx context.Context, manifest string) ([]*FileResult, error) {
	paths, err := ReadManifest(manifest)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	return b.ProcessFiles(ctx, paths), nil
}

// ReadManifest reads file paths from a manifest (one per line).
// Relative paths resolve against the manifest's directory.
func ReadManifest(manifest string) ([]string, error) {
	file, err := os.Open(manifest)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	base := filepath.Dir(manifest)
	var paths []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !filepath.IsAbs(line) {
			line = filepath.Join(base, line)
		}

		if !seen[line] {
			seen[line] = true
			paths = append(paths, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return paths, nil
}
