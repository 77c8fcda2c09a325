package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"dwetl/internal/config"
	"dwetl/internal/ddl"

	// register all backends with the storage factory.
	// config specifies which to use but we need to build in support for all of them.
	_ "dwetl/internal/storage/all"
)

// validateAnnotation selects how much of the configuration a command needs.
const validateAnnotation = "dwetl/validate"

const (
	validateAll    = "all"
	validateLedger = "ledger"
	validateNone   = "none"
)

// errInvalidConfig is returned when validation finds errors.
var errInvalidConfig = errors.New("configuration is invalid")

// app holds the state shared by all commands of one invocation.
type app struct {
	cfg    config.Pipeline
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	log    *slog.Logger
}

func NewRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	a := &app{cfg: config.Default(), stdin: stdin, stdout: stdout, stderr: stderr}
	rc := &cobra.Command{
		Use:   "dwetl",
		Short: "dwetl loads bronze CSV files into the silver tier or a SQL warehouse.",
		Long: `dwetl loads bronze CSV files into the silver tier or a SQL warehouse.

Each file is checked against the processed-file ledger, loaded, cleaned by
the selected transform mode, and published to the destination. A file is
marked processed only after it was published, so reruns skip it.

Every flag can also be set through the environment (DWETL_<FLAG>, dashes
become underscores) or a config file given with --config, whose keys are
the flag names.
`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	rc.PersistentFlags().StringP("config", "c", "", "Configuration file to read from (yaml, json or toml).")
	config.BindFlags(rc.PersistentFlags(), &a.cfg)

	rc.AddCommand(newRunCommand(a))
	rc.AddCommand(newWatchCommand(a))
	rc.AddCommand(newValidateCommand(a))
	rc.AddCommand(newConfigCommand(a))
	rc.AddCommand(newLedgerCommand(a))

	rc.SetIn(stdin)
	rc.SetOut(stdout)
	rc.SetErr(stderr)
	return rc
}

// setup layers the configuration, builds the logger and validates whatever
// part of the configuration cmd needs. Nothing here performs I/O beyond
// reading the config file.
func (a *app) setup(cmd *cobra.Command) error {
	if err := config.Load(viper.New(), cmd.Flags()); err != nil {
		return err
	}

	level, err := a.cfg.Runtime.Level()
	if err != nil {
		return err
	}
	a.log = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level}))

	if err := ddl.CheckAll(); err != nil {
		return fmt.Errorf("schema translator: %w", err)
	}

	scope := cmd.Annotations[validateAnnotation]
	if scope == "" {
		scope = validateAll
	}
	if scope == validateNone {
		return nil
	}
	issues := config.ValidatePipeline(a.cfg)
	if scope == validateLedger {
		issues = filterIssues(issues, "ledger.", "s3.", "runtime.log_level")
	}
	a.printIssues(issues)
	if config.HasErrors(issues) {
		return errInvalidConfig
	}
	return nil
}

func (a *app) printIssues(issues []config.Issue) {
	for _, iss := range issues {
		fmt.Fprintf(a.stderr, "%s: %s: %s (--%s)\n", iss.Severity, iss.Path, iss.Message, iss.Flag)
	}
}

// filterIssues keeps issues whose path starts with one of prefixes.
func filterIssues(issues []config.Issue, prefixes ...string) []config.Issue {
	var out []config.Issue
	for _, iss := range issues {
		for _, p := range prefixes {
			if strings.HasPrefix(iss.Path, p) {
				out = append(out, iss)
				break
			}
		}
	}
	return out
}

func newValidateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration and exit.",
		Long: `validate lints the effective configuration (flags, environment and
config file) and exits non-zero when it contains errors. Warnings are
printed but do not fail.
`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{validateAnnotation: validateNone},
		RunE: func(cmd *cobra.Command, args []string) error {
			issues := config.ValidatePipeline(a.cfg)
			a.printIssues(issues)
			if config.HasErrors(issues) {
				return errInvalidConfig
			}
			fmt.Fprintln(a.stdout, "configuration is valid")
			return nil
		},
	}
}

func newConfigCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration.",
		Long: `config prints the effective configuration as YAML to stdout, with
passwords, keys and DSN credentials masked.
`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{validateAnnotation: validateNone},
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.WriteYAML(a.stdout, a.cfg)
		},
	}
}
