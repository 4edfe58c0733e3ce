package model

import "time"

// ColumnType is the storage type of a projected column
type ColumnType string

const (
	ColumnText      ColumnType = "text"
	ColumnInteger   ColumnType = "integer"
	ColumnNumeric   ColumnType = "numeric"
	ColumnTimestamp ColumnType = "timestamp"
)

// RawBatch is a rectangular record set exactly as read from a file
type RawBatch struct {
	Source string     // file the batch was read from
	Header []string   // column names as they appear in the file
	Rows   [][]string // data rows, each padded to len(Header)
}

// Column is a named, typed column of a projection
type Column struct {
	Name string
	Type ColumnType
}

// Projection is a typed, key-deduplicated row set destined for one table
type Projection struct {
	BatchID    string
	Columns    []Column
	KeyColumns []string // primary key (static) or compound novelty key (updates)
	Rows       [][]any  // values are string, int64, float64, time.Time or nil
}

// Index returns the position of a column, or -1
func (p *Projection) Index(name string) int {
	for i, c := range p.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// ColumnNames returns the column names in order
func (p *Projection) ColumnNames() []string {
	names := make([]string, len(p.Columns))
	for i, c := range p.Columns {
		names[i] = c.Name
	}
	return names
}

// Len returns the number of rows
func (p *Projection) Len() int {
	return len(p.Rows)
}

// Tender is the slice of a static row the classifier and resolver need
type Tender struct {
	Key               string `db:"ocid"`
	Title             string `db:"title"`
	ExternalReference string `db:"reference"`
}

// UpdateKey is the compound novelty key of the mutable relation.
// Dates compare at microsecond precision, the resolution of a SQL timestamp.
type UpdateKey struct {
	Key  string
	Date int64
}

// NewUpdateKey builds the compound key for a row
func NewUpdateKey(key string, date time.Time) UpdateKey {
	return UpdateKey{Key: key, Date: date.UTC().UnixMicro()}
}

// Entity is a canonical river
type Entity struct {
	ID   int64  `db:"id"`
	Name string `db:"river_name"`
}

// Link attributes a tender to a canonical river
type Link struct {
	Key      string `db:"ocid"`
	EntityID int64  `db:"river_id"`
}

// ForeignKey references the key column of another table
type ForeignKey struct {
	Column    string
	RefTable  string
	RefColumn string
}

// TableSpec describes a table the loader creates on first use
type TableSpec struct {
	Name       string
	Columns    []Column
	PrimaryKey []string
	ForeignKey *ForeignKey
}
