package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. DWETL_DREMIO_PASSWORD.
const EnvPrefix = "DWETL"

// BindFlags registers one flag per Pipeline field on fs. The current values
// of p are the flag defaults, and parsed values are stored straight into p.
func BindFlags(fs *pflag.FlagSet, p *Pipeline) {
	fs.StringVar(&p.Job, "job", p.Job, "Job name used to label metrics and logs.")

	fs.StringVar(&p.Source.Kind, "source-kind", p.Source.Kind, "Bronze source: s3, file or http.")
	fs.StringVar(&p.Source.Bucket, "source-bucket", p.Source.Bucket, "Bronze bucket (s3 source).")
	fs.StringVar(&p.Source.Prefix, "source-prefix", p.Source.Prefix, "Key prefix listed by --all.")
	fs.StringVar(&p.Source.Dir, "source-dir", p.Source.Dir, "Bronze directory (file source).")
	fs.StringVar(&p.Source.BaseURL, "source-base-url", p.Source.BaseURL, "Base URL relative ids are resolved against (http source).")
	fs.DurationVar(&p.Source.Timeout, "source-timeout", p.Source.Timeout, "HTTP source request timeout.")
	fs.IntVar(&p.Source.Retries, "source-retries", p.Source.Retries, "HTTP source retries on transient failures.")

	fs.StringVar(&p.Parser.Delimiter, "delimiter", p.Parser.Delimiter, `CSV field delimiter ("tab" for tabs).`)
	fs.BoolVar(&p.Parser.NoHeader, "no-header", p.Parser.NoHeader, "CSV files have no header row.")
	fs.StringSliceVar(&p.Parser.ColumnTypes, "column-type", p.Parser.ColumnTypes, "Pin a column type, name=type (repeatable).")

	fs.StringVar(&p.Transform.Mode, "mode", p.Transform.Mode, "Transform mode: none, structural-cleanup or statistical-preprocessing.")
	fs.IntVar(&p.Transform.MinNonNull, "min-non-null", p.Transform.MinNonNull, "Rows with fewer non-null values are dropped by structural cleanup.")

	fs.StringVar(&p.Storage.Kind, "destination", p.Storage.Kind, "Destination: silver, dremio, postgres, sqlite, mssql or mysql.")
	fs.StringVar(&p.Storage.DSN, "dsn", p.Storage.DSN, "Database DSN for table destinations.")
	fs.IntVar(&p.Storage.BatchSize, "batch-size", p.Storage.BatchSize, "Rows per bulk copy for table destinations.")
	fs.StringVar(&p.Storage.Bucket, "silver-bucket", p.Storage.Bucket, "Silver bucket (silver destination).")
	fs.StringVar(&p.Storage.Prefix, "silver-prefix", p.Storage.Prefix, "Key prefix of silver objects.")
	fs.StringVar(&p.Storage.Dir, "silver-dir", p.Storage.Dir, "Write silver objects to a local directory instead of a bucket.")

	d := &p.Storage.Dremio
	fs.StringVar(&d.URL, "dremio-url", d.URL, "Dremio base URL.")
	fs.StringVar(&d.Username, "dremio-user", d.Username, "Dremio user name.")
	fs.StringVar(&d.Password, "dremio-password", d.Password, "Dremio password.")
	fs.StringVar(&d.Source, "dremio-source", d.Source, "Dremio source or space tables are created in.")
	fs.BoolVar(&d.Insecure, "dremio-insecure", d.Insecure, "Skip TLS verification for Dremio.")
	fs.DurationVar(&d.Timeout, "dremio-timeout", d.Timeout, "Dremio request timeout.")
	fs.IntVar(&d.LoginRetries, "dremio-login-retries", d.LoginRetries, "Retries for Dremio login and job polling.")
	fs.BoolVar(&d.Wait, "dremio-wait", d.Wait, "Wait for each Dremio job and fail on job errors.")
	fs.DurationVar(&d.PollInterval, "dremio-poll-interval", d.PollInterval, "Job polling interval with --dremio-wait.")
	fs.IntVar(&d.Ceiling, "ceiling", d.Ceiling, "Maximum bytes per SQL request.")
	fs.DurationVar(&d.Pace, "pace", d.Pace, "Pause after every successful SQL request (negative disables).")
	fs.IntVar(&d.RowsPerCommand, "rows-per-command", d.RowsPerCommand, "Rows per serialized insert before assembly.")

	fs.StringVar(&p.Ledger.Kind, "ledger-kind", p.Ledger.Kind, "Ledger backend: s3, sqlite, postgres or memory.")
	fs.StringVar(&p.Ledger.Policy, "ledger-policy", p.Ledger.Policy, "On ledger lookup failure: fail-open or fail-closed.")
	fs.StringVar(&p.Ledger.Bucket, "ledger-bucket", p.Ledger.Bucket, "Bucket holding ledger markers (s3 ledger).")
	fs.StringVar(&p.Ledger.Prefix, "ledger-prefix", p.Ledger.Prefix, "Key prefix of ledger markers (s3 ledger).")
	fs.StringVar(&p.Ledger.DSN, "ledger-dsn", p.Ledger.DSN, "Ledger database DSN (sqlite or postgres ledger).")
	fs.StringVar(&p.Ledger.Table, "ledger-table", p.Ledger.Table, "Ledger table name.")

	fs.StringVar(&p.S3.Endpoint, "s3-endpoint", p.S3.Endpoint, "S3 endpoint, e.g. a MinIO URL.")
	fs.StringVar(&p.S3.Region, "s3-region", p.S3.Region, "S3 region.")
	fs.StringVar(&p.S3.AccessKey, "s3-access-key", p.S3.AccessKey, "S3 access key.")
	fs.StringVar(&p.S3.SecretKey, "s3-secret-key", p.S3.SecretKey, "S3 secret key.")
	fs.BoolVar(&p.S3.DisableSSL, "s3-disable-ssl", p.S3.DisableSSL, "Use plain HTTP for S3.")

	fs.StringVar(&p.Runtime.LogLevel, "log-level", p.Runtime.LogLevel, "Log level: debug, info, warn or error.")
	fs.BoolVarP(&p.Runtime.Verbose, "verbose", "v", p.Runtime.Verbose, "Debug logging.")
	fs.StringVar(&p.Runtime.Metrics, "metrics-backend", p.Runtime.Metrics, "Metrics backend: none, pushgateway or datadog.")
	fs.StringVar(&p.Runtime.PushgatewayURL, "pushgateway-url", p.Runtime.PushgatewayURL, "Prometheus Pushgateway URL.")
	fs.StringVar(&p.Runtime.DatadogAddr, "datadog-addr", p.Runtime.DatadogAddr, "DogStatsD address, e.g. 127.0.0.1:8125.")
	fs.StringVar(&p.Runtime.Schedule, "schedule", p.Runtime.Schedule, "Cron schedule for watch.")
}

// Load applies the environment and the config file named by the "config"
// flag to every flag of fs that was not set on the command line.
//
// Environment variables are the upper-cased flag names with dashes replaced
// by underscores, prefixed with EnvPrefix and an underscore. The config file
// type follows its extension (yaml, json or toml); keys that do not name a
// flag are an error.
func Load(v *viper.Viper, flags *pflag.FlagSet) error {
	// add cmd line flag def to viper
	if err := v.BindPFlags(flags); err != nil {
		return fmt.Errorf("config: bind flags: %w", err)
	}

	// add env to viper
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	validTags := make(map[string]bool)
	flags.VisitAll(func(f *pflag.Flag) {
		validTags[f.Name] = true
	})

	// add config file to viper
	if c := v.GetString("config"); c != "" {
		v.SetConfigFile(c)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("config: reading configuration file '%s': %w", c, err)
		}
		for _, key := range v.AllKeys() {
			if !validTags[key] {
				return fmt.Errorf("config: invalid option in configuration file: %v", key)
			}
		}
	}

	// set all values from viper
	var flagErr error
	flags.VisitAll(func(f *pflag.Flag) {
		if flagErr != nil || f.Changed {
			// A flag given on the command line wins; setting it again would
			// also append to slice values instead of replacing them.
			return
		}
		value := v.GetString(f.Name)
		if f.Value.Type() == "stringSlice" {
			// v.GetString returns "" for a real list from a config file.
			list := v.GetStringSlice(f.Name)
			if len(list) == 0 {
				return
			}
			value = strings.Join(list, ",")
		}
		if err := f.Value.Set(value); err != nil {
			flagErr = fmt.Errorf("config: option %s: %w", f.Name, err)
		}
	})
	return flagErr
}
