package ingest

import (
	"fmt"

	"github.com/d-saikrishna/assam-tenders/internal/model"
	"github.com/xuri/excelize/v2"
)

// ReadXLSX reads one sheet of a workbook; the first row is the header
func ReadXLSX(path string, sheet string) (*model.RawBatch, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty: no header row", sheet)
	}

	return &model.RawBatch{
		Header: rows[0],
		Rows:   rectangular(rows[0], rows[1:]),
	}, nil
}
