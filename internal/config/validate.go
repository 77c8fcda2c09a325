package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"

	"dwetl/internal/ledger"
	"dwetl/internal/transformer"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration warning that should be surfaced
	// to users but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation/lint finding for a Pipeline.
//
// Path is a dotted path into the config (e.g. "storage.dremio.url"), Flag is
// the command line flag that sets it. Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Flag     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s (--%s): %s", i.Severity, i.Path, i.Flag, i.Message)
}

// HasErrors reports whether any issue has error severity.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Known destination kinds.
var destinations = map[string]bool{
	"silver": true, "dremio": true, "postgres": true, "sqlite": true, "mssql": true, "mysql": true,
}

// issues collects findings for one validation pass.
type issues []Issue

func (is *issues) errorf(path, flag, format string, args ...any) {
	*is = append(*is, Issue{Severity: SeverityError, Path: path, Flag: flag, Message: fmt.Sprintf(format, args...)})
}

func (is *issues) warnf(path, flag, format string, args ...any) {
	*is = append(*is, Issue{Severity: SeverityWarning, Path: path, Flag: flag, Message: fmt.Sprintf(format, args...)})
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

// ValidatePipeline performs static validation / linting of a Pipeline.
//
// It does not mutate the pipeline and performs no I/O. Any issue with error
// severity must stop the run before a source, ledger or destination is
// opened.
func ValidatePipeline(p Pipeline) []Issue {
	var is issues

	if blank(p.Job) {
		is.errorf("job", "job", "job must not be empty; it is used for metrics labeling and identifying runs")
	}
	validateSource(&is, p)
	validateParser(&is, p.Parser)
	validateTransform(&is, p.Transform)
	validateStorage(&is, p)
	validateLedger(&is, p)
	validateRuntime(&is, p.Runtime)
	return is
}

func validateSource(is *issues, p Pipeline) {
	s := p.Source
	switch s.Kind {
	case "s3":
		if blank(s.Bucket) {
			is.errorf("source.bucket", "source-bucket", "s3 source requires a bucket")
		}
	case "file":
		if blank(s.Dir) {
			is.errorf("source.dir", "source-dir", "file source requires a directory")
		}
	case "http":
		if s.BaseURL != "" {
			if u, err := url.Parse(s.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
				is.errorf("source.base_url", "source-base-url", "invalid base URL %q", s.BaseURL)
			}
		}
		if s.Retries < 0 {
			is.errorf("source.retries", "source-retries", "retries must not be negative")
		}
	case "":
		is.errorf("source.kind", "source-kind", "source kind must not be empty")
	default:
		is.errorf("source.kind", "source-kind", "unknown source kind %q (want s3, file or http)", s.Kind)
	}
}

func validateParser(is *issues, p Parser) {
	if _, err := p.Comma(); err != nil {
		is.errorf("parser.delimiter", "delimiter", "%v", err)
	}
	if _, err := p.TypeHints(); err != nil {
		is.errorf("parser.column_types", "column-type", "%v", err)
	}
}

func validateTransform(is *issues, t Transform) {
	if _, err := transformer.ParseMode(t.Mode); err != nil {
		is.errorf("transform.mode", "mode", "%v", err)
	}
	if t.MinNonNull < 0 {
		is.errorf("transform.min_non_null", "min-non-null", "min_non_null must not be negative")
	}
}

func validateStorage(is *issues, p Pipeline) {
	s := p.Storage
	if !destinations[s.Kind] {
		is.errorf("storage.kind", "destination", "unknown destination %q", s.Kind)
		return
	}

	switch s.Kind {
	case "silver":
		if blank(s.Bucket) && blank(s.Dir) {
			is.errorf("storage.bucket", "silver-bucket", "silver destination requires a bucket or a directory")
		}
		if !blank(s.Bucket) && !blank(s.Dir) {
			is.warnf("storage.dir", "silver-dir", "both silver bucket and directory set; the directory is used")
		}
	case "dremio":
		d := s.Dremio
		if u, err := url.Parse(d.URL); err != nil || u.Scheme == "" || u.Host == "" {
			is.errorf("storage.dremio.url", "dremio-url", "dremio destination requires a valid URL, got %q", d.URL)
		}
		if blank(d.Username) {
			is.errorf("storage.dremio.username", "dremio-user", "dremio destination requires a user name")
		}
		if d.Password == "" {
			is.warnf("storage.dremio.password", "dremio-password", "dremio password is empty")
		}
		if blank(d.Source) {
			is.errorf("storage.dremio.source", "dremio-source", "dremio destination requires the source tables are created in")
		}
		if d.Ceiling <= 0 {
			is.errorf("storage.dremio.ceiling", "ceiling", "ceiling must be positive, got %d", d.Ceiling)
		}
		if d.RowsPerCommand < 0 {
			is.errorf("storage.dremio.rows_per_command", "rows-per-command", "rows_per_command must not be negative")
		}
		if d.LoginRetries < 0 {
			is.errorf("storage.dremio.login_retries", "dremio-login-retries", "login_retries must not be negative")
		}
		if d.Insecure {
			is.warnf("storage.dremio.insecure", "dremio-insecure", "TLS verification is disabled for Dremio")
		}
	default:
		if blank(s.DSN) {
			is.errorf("storage.dsn", "dsn", "%s destination requires a DSN", s.Kind)
		}
		if s.BatchSize <= 0 {
			is.errorf("storage.batch_size", "batch-size", "batch_size must be positive, got %d", s.BatchSize)
		}
	}
}

func validateLedger(is *issues, p Pipeline) {
	l := p.Ledger
	if _, err := ledger.ParsePolicy(l.Policy); err != nil {
		is.errorf("ledger.policy", "ledger-policy", "%v", err)
	}
	switch l.Kind {
	case ledger.KindS3:
		if blank(l.Bucket) {
			is.errorf("ledger.bucket", "ledger-bucket", "s3 ledger requires a bucket")
		}
	case ledger.KindSQLite, ledger.KindPostgres:
		if blank(l.DSN) {
			is.errorf("ledger.dsn", "ledger-dsn", "%s ledger requires a DSN", l.Kind)
		}
		if blank(l.Table) {
			is.errorf("ledger.table", "ledger-table", "ledger table must not be empty")
		}
	case ledger.KindMemory:
		is.warnf("ledger.kind", "ledger-kind", "memory ledger is not persisted; every run reprocesses all files")
	default:
		is.errorf("ledger.kind", "ledger-kind", "unknown ledger kind %q", l.Kind)
	}
}

func validateRuntime(is *issues, r RuntimeConfig) {
	if _, err := r.Level(); err != nil {
		is.errorf("runtime.log_level", "log-level", "%v", err)
	}
	switch r.Metrics {
	case "", "none":
	case "pushgateway":
		if blank(r.PushgatewayURL) {
			is.errorf("runtime.pushgateway_url", "pushgateway-url", "pushgateway metrics require a URL")
		}
	case "datadog":
		if blank(r.DatadogAddr) {
			is.errorf("runtime.datadog_addr", "datadog-addr", "datadog metrics require an address")
		}
	default:
		is.errorf("runtime.metrics", "metrics-backend", "unknown metrics backend %q", r.Metrics)
	}
	if _, err := cron.ParseStandard(r.Schedule); err != nil {
		is.errorf("runtime.schedule", "schedule", "invalid schedule %q: %v", r.Schedule, err)
	}
}
