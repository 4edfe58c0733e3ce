package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/d-saikrishna/assam-tenders/internal/model"
)

// ReadCSV reads a CSV stream with a header row
func ReadCSV(r io.Reader) (*model.RawBatch, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // exports are ragged; rows are padded to the header
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("empty file: no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	var rows [][]string
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(rows)+1, err)
		}
		rows = append(rows, record)
	}

	return &model.RawBatch{
		Header: header,
		Rows:   rectangular(header, rows),
	}, nil
}
