// Package config defines the configuration model of a dwetl run and the
// helpers that fill it from flags, environment and a config file.
//
// Every field has exactly one command line flag (see BindFlags). Values are
// layered flag > environment (DWETL_<FLAG_NAME>) > config file > default.
// A config file uses the flag names as keys:
//
//	destination: dremio
//	dremio-url: https://dremio.internal:9047
//	dremio-source: lake
//	ledger-kind: sqlite
//	ledger-dsn: /var/lib/dwetl/ledger.db
package config

import (
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"dwetl/internal/dataset"
	"dwetl/internal/datasource/s3store"
)

// Pipeline is the full configuration of one run.
type Pipeline struct {
	// Job labels metrics and log lines.
	Job string `yaml:"job" json:"job"`

	Source    Source         `yaml:"source" json:"source"`
	Parser    Parser         `yaml:"parser" json:"parser"`
	Transform Transform      `yaml:"transform" json:"transform"`
	Storage   Storage        `yaml:"storage" json:"storage"`
	Ledger    Ledger         `yaml:"ledger" json:"ledger"`
	S3        s3store.Config `yaml:"s3" json:"s3"`
	Runtime   RuntimeConfig  `yaml:"runtime" json:"runtime"`
}

// Source selects where bronze files are read from.
type Source struct {
	// Kind is one of "s3", "file" or "http".
	Kind    string `yaml:"kind" json:"kind"`
	Bucket  string `yaml:"bucket" json:"bucket"`
	Prefix  string `yaml:"prefix" json:"prefix"`
	Dir     string `yaml:"dir" json:"dir"`
	BaseURL string `yaml:"base_url" json:"base_url"`

	// HTTP source transport.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
	Retries int           `yaml:"retries" json:"retries"`
}

// Parser configures CSV loading.
type Parser struct {
	Delimiter string `yaml:"delimiter" json:"delimiter"`
	NoHeader  bool   `yaml:"no_header" json:"no_header"`

	// ColumnTypes pins column types, each entry "name=type".
	ColumnTypes []string `yaml:"column_types" json:"column_types"`
}

// Transform selects the transformation mode.
type Transform struct {
	Mode       string `yaml:"mode" json:"mode"`
	MinNonNull int    `yaml:"min_non_null" json:"min_non_null"`
}

// Storage selects the destination.
type Storage struct {
	// Kind is the destination kind: silver, dremio, postgres, sqlite, mssql
	// or mysql.
	Kind string `yaml:"kind" json:"kind"`

	// Table backends.
	DSN       string `yaml:"dsn" json:"dsn"`
	BatchSize int    `yaml:"batch_size" json:"batch_size"`

	// Silver: results go to Bucket (S3) or Dir (local) under Prefix.
	Bucket string `yaml:"bucket" json:"bucket"`
	Prefix string `yaml:"prefix" json:"prefix"`
	Dir    string `yaml:"dir" json:"dir"`

	Dremio Dremio `yaml:"dremio" json:"dremio"`
}

// Dremio holds the warehouse connection and batching settings.
type Dremio struct {
	URL          string        `yaml:"url" json:"url"`
	Username     string        `yaml:"username" json:"username"`
	Password     string        `yaml:"password" json:"password"`
	Insecure     bool          `yaml:"insecure" json:"insecure"`
	Timeout      time.Duration `yaml:"timeout" json:"timeout"`
	LoginRetries int           `yaml:"login_retries" json:"login_retries"`
	Wait         bool          `yaml:"wait" json:"wait"`
	PollInterval time.Duration `yaml:"poll_interval" json:"poll_interval"`

	// Source is the Dremio space or source tables are created in.
	Source string `yaml:"source" json:"source"`

	Ceiling        int           `yaml:"ceiling" json:"ceiling"`
	Pace           time.Duration `yaml:"pace" json:"pace"`
	RowsPerCommand int           `yaml:"rows_per_command" json:"rows_per_command"`
}

// Ledger selects the processed-file ledger.
type Ledger struct {
	Kind   string `yaml:"kind" json:"kind"`
	Policy string `yaml:"policy" json:"policy"`
	Bucket string `yaml:"bucket" json:"bucket"`
	Prefix string `yaml:"prefix" json:"prefix"`
	DSN    string `yaml:"dsn" json:"dsn"`
	Table  string `yaml:"table" json:"table"`
}

// RuntimeConfig controls logging, metrics and scheduling.
type RuntimeConfig struct {
	LogLevel string `yaml:"log_level" json:"log_level"`
	Verbose  bool   `yaml:"verbose" json:"verbose"`

	// Metrics is one of "none", "pushgateway" or "datadog".
	Metrics        string `yaml:"metrics" json:"metrics"`
	PushgatewayURL string `yaml:"pushgateway_url" json:"pushgateway_url"`
	DatadogAddr    string `yaml:"datadog_addr" json:"datadog_addr"`

	// Schedule is the cron spec used by watch.
	Schedule string `yaml:"schedule" json:"schedule"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Pipeline {
	return Pipeline{
		Job: "dwetl",
		Source: Source{
			Kind:    "s3",
			Timeout: 30 * time.Second,
			Retries: 3,
		},
		Parser:    Parser{Delimiter: ","},
		Transform: Transform{Mode: "structural-cleanup", MinNonNull: 2},
		Storage: Storage{
			Kind:      "dremio",
			BatchSize: 5000,
			Dremio: Dremio{
				Timeout:        60 * time.Second,
				LoginRetries:   3,
				PollInterval:   time.Second,
				Ceiling:        50 << 20,
				Pace:           5 * time.Second,
				RowsPerCommand: 1,
			},
		},
		Ledger: Ledger{
			Kind:   "s3",
			Policy: "fail-open",
			Prefix: "processed/",
			Table:  "processed_files",
		},
		S3:      s3store.Config{Region: "us-east-1"},
		Runtime: RuntimeConfig{LogLevel: "info", Metrics: "none", Schedule: "@every 10m"},
	}
}

// Comma returns the delimiter as a rune. "tab" and `\t` select a tab.
func (p Parser) Comma() (rune, error) {
	switch p.Delimiter {
	case "":
		return ',', nil
	case "tab", `\t`:
		return '\t', nil
	}
	if utf8.RuneCountInString(p.Delimiter) != 1 {
		return 0, fmt.Errorf("config: delimiter %q must be a single character", p.Delimiter)
	}
	r, _ := utf8.DecodeRuneInString(p.Delimiter)
	if r == '"' || r == '\r' || r == '\n' || r == utf8.RuneError {
		return 0, fmt.Errorf("config: delimiter %q is not allowed", p.Delimiter)
	}
	return r, nil
}

// TypeHints parses ColumnTypes into a column name to type map.
func (p Parser) TypeHints() (map[string]dataset.ColumnType, error) {
	if len(p.ColumnTypes) == 0 {
		return nil, nil
	}
	out := make(map[string]dataset.ColumnType, len(p.ColumnTypes))
	for _, kv := range p.ColumnTypes {
		name, typ, ok := strings.Cut(kv, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("config: column type %q must look like name=type", kv)
		}
		t, err := dataset.ParseType(strings.TrimSpace(typ))
		if err != nil {
			return nil, fmt.Errorf("config: column %q: %w", name, err)
		}
		out[name] = t
	}
	return out, nil
}

// Level returns the slog level; Verbose forces debug.
func (r RuntimeConfig) Level() (slog.Level, error) {
	if r.Verbose {
		return slog.LevelDebug, nil
	}
	var l slog.Level
	if r.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(r.LogLevel)); err != nil {
		return 0, fmt.Errorf("config: log level %q: %w", r.LogLevel, err)
	}
	return l, nil
}

const mask = "****"

// Masked returns a copy of p with passwords, keys and DSN credentials
// replaced, suitable for printing.
func (p Pipeline) Masked() Pipeline {
	if p.Storage.Dremio.Password != "" {
		p.Storage.Dremio.Password = mask
	}
	if p.S3.SecretKey != "" {
		p.S3.SecretKey = mask
	}
	p.Storage.DSN = maskDSN(p.Storage.DSN)
	p.Ledger.DSN = maskDSN(p.Ledger.DSN)
	return p
}

// maskDSN hides the password of URL-style DSNs. Other non-empty DSNs may
// embed credentials anywhere and are hidden entirely, except plain file
// paths used by SQLite.
func maskDSN(dsn string) string {
	if dsn == "" {
		return ""
	}
	if u, err := url.Parse(dsn); err == nil && u.Scheme != "" && u.Host != "" {
		return u.Redacted()
	}
	if !strings.ContainsAny(dsn, "@;=") {
		return dsn
	}
	return mask
}

// WriteYAML writes the masked configuration as YAML.
func WriteYAML(w io.Writer, p Pipeline) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(p.Masked()); err != nil {
		return fmt.Errorf("config: encode yaml: %w", err)
	}
	return enc.Close()
}
