package schema

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/d-saikrishna/assam-tenders/internal/ingest"
	"github.com/d-saikrishna/assam-tenders/internal/model"
)

// timeLayouts are tried in order; zone-less values are read as UTC
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02-01-2006 15:04:05",
	"02-01-2006 15:04",
	"02-01-2006",
	"02/01/2006 15:04:05",
	"02/01/2006",
	"02-Jan-2006 03:04 PM",
	"02-Jan-2006",
}

// ParseTime parses a temporal cell and returns it in UTC
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp")
}

// coerce converts one cell to its column type; empty cells become nil
func coerce(typ model.ColumnType, cell string, sanitize bool) (any, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil, nil
	}

	switch typ {
	case model.ColumnTimestamp:
		return ParseTime(cell)
	case model.ColumnNumeric:
		f, err := strconv.ParseFloat(strings.ReplaceAll(cell, ",", ""), 64)
		if err != nil {
			return nil, fmt.Errorf("not a number")
		}
		return f, nil
	case model.ColumnInteger:
		n, err := strconv.ParseInt(cell, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("not an integer")
		}
		return n, nil
	}

	if sanitize {
		if text := ingest.SanitizeText(cell); text != "" {
			return text, nil
		}
		return nil, nil
	}
	return cell, nil
}

// inferType returns integer when every non-empty cell parses as int64, text otherwise.
// An all-empty column is text.
func inferType(rows [][]string, idx int) model.ColumnType {
	seen := false
	for _, row := range rows {
		cell := strings.TrimSpace(row[idx])
		if cell == "" {
			continue
		}
		if _, err := strconv.ParseInt(cell, 10, 64); err != nil {
			return model.ColumnText
		}
		seen = true
	}
	if !seen {
		return model.ColumnText
	}
	return model.ColumnInteger
}
