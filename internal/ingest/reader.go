package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/d-saikrishna/assam-tenders/internal/model"
)

// Reader reads tabular tender exports into raw batches
type Reader struct {
	sheet string // xlsx sheet name; empty selects the first sheet
}

// NewReader creates a new Reader
func NewReader(sheet string) *Reader {
	return &Reader{sheet: sheet}
}

// ReadFile reads a .csv or .xlsx file into a raw batch
func (r *Reader) ReadFile(ctx context.Context, path string) (*model.RawBatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		batch *model.RawBatch
		err   error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, openErr := os.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("open file: %w", openErr)
		}
		defer func() { _ = f.Close() }()
		batch, err = ReadCSV(f)
	case ".xlsx", ".xlsm":
		batch, err = ReadXLSX(path, r.sheet)
	default:
		return nil, fmt.Errorf("unsupported file type %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}

	batch.Source = path
	return batch, nil
}

// rectangular pads or truncates rows to the header width
func rectangular(header []string, rows [][]string) [][]string {
	width := len(header)
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		if isBlank(row) {
			continue
		}
		fixed := make([]string, width)
		copy(fixed, row)
		out = append(out, fixed)
	}
	return out
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
