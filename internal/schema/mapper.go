package schema

import (
	"strings"

	"github.com/d-saikrishna/assam-tenders/internal/model"
	"github.com/google/uuid"
)

// Mapper turns a raw batch into the static and update projections
type Mapper struct {
	cfg      model.SchemaConfig
	temporal map[string]bool
	numeric  map[string]bool
}

// NewMapper creates a new schema mapper
func NewMapper(cfg model.SchemaConfig) *Mapper {
	m := &Mapper{
		cfg:      cfg,
		temporal: make(map[string]bool),
		numeric:  make(map[string]bool),
	}
	for _, c := range cfg.TemporalColumns {
		m.temporal[NormalizeName(c)] = true
	}
	for _, c := range cfg.NumericColumns {
		m.numeric[NormalizeName(c)] = true
	}
	return m
}

// NormalizeName lowercases a header and replaces spaces and slashes with underscores
func NormalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, " ", "_")
	return strings.ReplaceAll(name, "/", "_")
}

// Required returns the normalized names of the columns every batch must carry
func (m *Mapper) Required() []string {
	return []string{
		NormalizeName(m.cfg.KeyColumn),
		NormalizeName(m.cfg.DateColumn),
		NormalizeName(m.cfg.StageColumn),
		NormalizeName(m.cfg.StatusColumn),
		NormalizeName(m.cfg.TitleColumn),
		NormalizeName(m.cfg.ReferenceColumn),
	}
}

// Map validates a raw batch and splits it into the static projection
// (every column but the mutable trio) and the update projection
// (key, date, stage, status). Any malformed cell rejects the whole batch.
func (m *Mapper) Map(raw *model.RawBatch) (*model.Projection, *model.Projection, error) {
	// 1. Normalize header
	header := make([]string, len(raw.Header))
	seen := make(map[string]bool, len(raw.Header))
	for i, h := range raw.Header {
		name := NormalizeName(h)
		if name == "" {
			return nil, nil, &model.SchemaError{Column: h, Reason: "empty column name"}
		}
		if seen[name] {
			return nil, nil, &model.SchemaError{Column: name, Reason: "duplicate column after normalisation"}
		}
		seen[name] = true
		header[i] = name
	}

	// 2. Required columns
	for _, req := range m.Required() {
		if !seen[req] {
			return nil, nil, &model.SchemaError{Column: req, Reason: "required column missing"}
		}
	}

	keyName := NormalizeName(m.cfg.KeyColumn)
	keyIdx := indexOf(header, keyName)

	// 3. Deduplicate on the stored key value, first occurrence wins
	rows := make([][]string, 0, len(raw.Rows))
	rowNums := make([]int, 0, len(raw.Rows))
	keys := make(map[string]bool, len(raw.Rows))
	for i, row := range raw.Rows {
		key, ok := keyValue(row[keyIdx])
		if !ok {
			return nil, nil, &model.SchemaError{Column: keyName, Row: i + 1, Value: row[keyIdx], Reason: "empty key"}
		}
		if keys[key] {
			continue
		}
		keys[key] = true
		rows = append(rows, row)
		rowNums = append(rowNums, i+1)
	}

	// 4. Type columns and coerce cells
	columns := make([]model.Column, len(header))
	for i, name := range header {
		columns[i] = model.Column{Name: name, Type: m.columnType(name, rows, i)}
	}

	typed := make([][]any, len(rows))
	for r, row := range rows {
		values := make([]any, len(columns))
		for c, col := range columns {
			v, err := coerce(col.Type, row[c], m.sanitized(col.Name))
			if err != nil {
				return nil, nil, &model.SchemaError{
					Column: col.Name,
					Row:    rowNums[r],
					Value:  row[c],
					Reason: err.Error(),
				}
			}
			values[c] = v
		}
		typed[r] = values
	}

	// 5. Split
	batchID := uuid.NewString()
	mutable := map[string]bool{
		NormalizeName(m.cfg.DateColumn):   true,
		NormalizeName(m.cfg.StageColumn):  true,
		NormalizeName(m.cfg.StatusColumn): true,
	}

	var staticIdx []int
	for i, name := range header {
		if !mutable[name] {
			staticIdx = append(staticIdx, i)
		}
	}
	updateIdx := []int{
		keyIdx,
		indexOf(header, NormalizeName(m.cfg.DateColumn)),
		indexOf(header, NormalizeName(m.cfg.StageColumn)),
		indexOf(header, NormalizeName(m.cfg.StatusColumn)),
	}

	static := project(batchID, columns, typed, staticIdx)
	static.KeyColumns = []string{keyName}

	updates := project(batchID, columns, typed, updateIdx)
	updates.KeyColumns = []string{keyName, NormalizeName(m.cfg.DateColumn)}

	return static, updates, nil
}

// columnType decides the storage type of a column
func (m *Mapper) columnType(name string, rows [][]string, idx int) model.ColumnType {
	switch {
	case m.temporal[name]:
		return model.ColumnTimestamp
	case m.numeric[name]:
		return model.ColumnNumeric
	case m.isTextual(name):
		return model.ColumnText
	}
	return inferType(rows, idx)
}

// isTextual reports whether a column is always stored as text regardless of content
func (m *Mapper) isTextual(name string) bool {
	switch name {
	case NormalizeName(m.cfg.KeyColumn),
		NormalizeName(m.cfg.StageColumn),
		NormalizeName(m.cfg.StatusColumn),
		NormalizeName(m.cfg.TitleColumn),
		NormalizeName(m.cfg.ReferenceColumn):
		return true
	}
	return false
}

// sanitized reports whether markup is stripped from a column; only the
// title and reference columns qualify, never the key
func (m *Mapper) sanitized(name string) bool {
	if !m.cfg.StripTitleMarkup {
		return false
	}
	return name == NormalizeName(m.cfg.TitleColumn) || name == NormalizeName(m.cfg.ReferenceColumn)
}

// keyValue returns the key exactly as it is stored
func keyValue(cell string) (string, bool) {
	v, _ := coerce(model.ColumnText, cell, false)
	key, ok := v.(string)
	return key, ok && key != ""
}

func project(batchID string, columns []model.Column, rows [][]any, idx []int) *model.Projection {
	p := &model.Projection{
		BatchID: batchID,
		Columns: make([]model.Column, len(idx)),
		Rows:    make([][]any, len(rows)),
	}
	for i, c := range idx {
		p.Columns[i] = columns[c]
	}
	for r, row := range rows {
		out := make([]any, len(idx))
		for i, c := range idx {
			out[i] = row[c]
		}
		p.Rows[r] = out
	}
	return p
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}
