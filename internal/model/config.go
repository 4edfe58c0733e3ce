package model

import "time"

// Config holds all runtime configuration for the tenders pipeline
type Config struct {
	Database    DatabaseConfig    `yaml:"database" mapstructure:"database"`
	Schema      SchemaConfig      `yaml:"schema" mapstructure:"schema"`
	Loader      LoaderConfig      `yaml:"loader" mapstructure:"loader"`
	Keywords    KeywordConfig     `yaml:"keywords" mapstructure:"keywords"`
	Extraction  ExtractionConfig  `yaml:"extraction" mapstructure:"extraction"`
	Canonical   CanonicalConfig   `yaml:"canonical" mapstructure:"canonical"`
	Attribution AttributionConfig `yaml:"attribution" mapstructure:"attribution"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Logging     LoggingConfig     `yaml:"logging" mapstructure:"logging"`
	Metrics     MetricsConfig     `yaml:"metrics" mapstructure:"metrics"`
	Tracing     TracingConfig     `yaml:"tracing" mapstructure:"tracing"`
}

// DatabaseConfig selects and tunes the relational store
type DatabaseConfig struct {
	Driver          string        `yaml:"driver" mapstructure:"driver" validate:"oneof=postgres sqlite3"`
	DSN             string        `yaml:"dsn,omitempty" mapstructure:"dsn"`
	Host            string        `yaml:"host" mapstructure:"host"`
	Port            int           `yaml:"port" mapstructure:"port" validate:"gte=0,lte=65535"`
	User            string        `yaml:"user" mapstructure:"user"`
	Password        string        `yaml:"password,omitempty" mapstructure:"password"`
	Name            string        `yaml:"name" mapstructure:"name"`
	Schema          string        `yaml:"schema" mapstructure:"schema"`
	SSLMode         string        `yaml:"sslmode" mapstructure:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
}

// SchemaConfig names the columns the mapper relies on
type SchemaConfig struct {
	KeyColumn        string   `yaml:"key_column" mapstructure:"key_column" validate:"required"`
	DateColumn       string   `yaml:"date_column" mapstructure:"date_column" validate:"required"`
	StageColumn      string   `yaml:"stage_column" mapstructure:"stage_column" validate:"required"`
	StatusColumn     string   `yaml:"status_column" mapstructure:"status_column" validate:"required"`
	TitleColumn      string   `yaml:"title_column" mapstructure:"title_column" validate:"required"`
	ReferenceColumn  string   `yaml:"reference_column" mapstructure:"reference_column" validate:"required"`
	TemporalColumns  []string `yaml:"temporal_columns" mapstructure:"temporal_columns"`
	NumericColumns   []string `yaml:"numeric_columns" mapstructure:"numeric_columns"`
	StripTitleMarkup bool     `yaml:"strip_title_markup" mapstructure:"strip_title_markup"`
}

// LoaderConfig tunes the incremental loader
type LoaderConfig struct {
	StaticTable string        `yaml:"static_table" mapstructure:"static_table" validate:"required"`
	UpdateTable string        `yaml:"update_table" mapstructure:"update_table" validate:"required"`
	Lookback    time.Duration `yaml:"lookback" mapstructure:"lookback" validate:"gte=0"`
	ChunkSize   int           `yaml:"chunk_size" mapstructure:"chunk_size" validate:"gt=0"`
	WriteRate   float64       `yaml:"write_rate" mapstructure:"write_rate" validate:"gte=0"` // chunks per second per table, 0 = unlimited
	WriteBurst  int           `yaml:"write_burst" mapstructure:"write_burst" validate:"gte=0"`
}

// KeywordConfig holds the relevance keyword sets
type KeywordConfig struct {
	Positive []string `yaml:"positive" mapstructure:"positive" validate:"min=1"`
	Negative []string `yaml:"negative" mapstructure:"negative"`
}

// Replacement is an ordered substring rewrite applied to titles
type Replacement struct {
	Old string `yaml:"old" mapstructure:"old"`
	New string `yaml:"new" mapstructure:"new"`
}

// ExtractionConfig controls anchor normalisation and vocabulary candidate picking
type ExtractionConfig struct {
	Anchor            string        `yaml:"anchor" mapstructure:"anchor" validate:"required"`
	Replacements      []Replacement `yaml:"replacements" mapstructure:"replacements"`
	LowercasePrefixes []string      `yaml:"lowercase_prefixes" mapstructure:"lowercase_prefixes"`
	LowercaseSuffixes []string      `yaml:"lowercase_suffixes" mapstructure:"lowercase_suffixes"`
	MinNameLength     int           `yaml:"min_name_length" mapstructure:"min_name_length" validate:"gte=0"`
}

// CanonicalConfig tunes the fuzzy canonicalizer
type CanonicalConfig struct {
	Threshold int      `yaml:"threshold" mapstructure:"threshold" validate:"gte=0,lte=100"`
	MaxPasses int      `yaml:"max_passes" mapstructure:"max_passes" validate:"gt=0"`
	Denylist  []string `yaml:"denylist" mapstructure:"denylist"`
}

// AttributionConfig tunes entity attribution
type AttributionConfig struct {
	MinScore          int  `yaml:"min_score" mapstructure:"min_score" validate:"gte=0,lte=100"`
	PreferPrefixOnTie bool `yaml:"prefer_prefix_on_tie" mapstructure:"prefer_prefix_on_tie"`
}

// ConcurrencyConfig controls scoring fan-out
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers" validate:"gte=0"`
}

// CacheConfig controls the reference-data cache
type CacheConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	TTL     time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// LoggingConfig controls structured logging
type LoggingConfig struct {
	Mode       string `yaml:"mode" mapstructure:"mode" validate:"oneof=development production"`
	Level      string `yaml:"level" mapstructure:"level" validate:"oneof=debug info warn error"`
	File       string `yaml:"file,omitempty" mapstructure:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"`
}

// MetricsConfig controls prometheus metrics push
type MetricsConfig struct {
	PushURL string `yaml:"push_url,omitempty" mapstructure:"push_url" validate:"omitempty,url"`
	Job     string `yaml:"job" mapstructure:"job"`
}

// TracingConfig controls OpenTelemetry spans
type TracingConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// DefaultConfig returns defaults tuned for the Assam procurement (OCDS) export
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:          "postgres",
			Host:            "localhost",
			Port:            5432,
			Name:            "tenders",
			Schema:          "assam_procurements",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Schema: SchemaConfig{
			KeyColumn:       "ocid",
			DateColumn:      "date",
			StageColumn:     "tender_stage",
			StatusColumn:    "tender_status",
			TitleColumn:     "tender_title",
			ReferenceColumn: "tender_externalreference",
			TemporalColumns: []string{
				"date",
				"tender_bidopening_date",
				"tender_milestones",
				"tender_milestones_duedate",
				"tender_datepublished",
			},
			NumericColumns:   []string{"tender_value_amount"},
			StripTitleMarkup: true,
		},
		Loader: LoaderConfig{
			StaticTable: "tenders_static",
			UpdateTable: "tenders_update",
			Lookback:    30 * 24 * time.Hour,
			ChunkSize:   500,
		},
		Keywords: KeywordConfig{
			Positive: []string{
				"Flood", "Embankment", "embkt", "Relief", "Erosion", "SDRF", "River", "Inundation",
				"Hydrology", "Silt", "Siltation", "Bund", "Trench", "Drain", "Culvert", "Sluice",
				"Bridge", "Dyke", "Storm water drain",
			},
			Negative: []string{"Driver", "Floodlight", "Flood Light"},
		},
		Extraction: ExtractionConfig{
			Anchor: "river",
			Replacements: []Replacement{
				{Old: ",", New: " "},
				{Old: "_", New: " "},
				{Old: ".", New: " "},
				{Old: "ofriver", New: "river"},
				{Old: "Riverbank", New: "river"},
				{Old: "-", New: " "},
				{Old: "RIVER", New: "river"},
				{Old: "River", New: "river"},
			},
			LowercasePrefixes: []string{"samoka"},
			LowercaseSuffixes: []string{"brahmaputra", "kollong"},
			MinNameLength:     4,
		},
		Canonical: CanonicalConfig{
			Threshold: 80,
			MaxPasses: 50,
			Denylist:  []string{"Bank", "Training", "Erosion", "Front", "Course", "District", "River", "Embankment"},
		},
		Attribution: AttributionConfig{
			MinScore:          0,
			PreferPrefixOnTie: false,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     10 * time.Minute,
		},
		Logging: LoggingConfig{
			Mode:       "development",
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 3,
		},
		Metrics: MetricsConfig{
			Job: "assam_tenders",
		},
	}
}
