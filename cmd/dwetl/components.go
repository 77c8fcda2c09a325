package main

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws/session"

	"dwetl/internal/datasource"
	"dwetl/internal/datasource/file"
	"dwetl/internal/datasource/httpds"
	"dwetl/internal/datasource/s3store"
	"dwetl/internal/dremio"
	"dwetl/internal/ledger"
	"dwetl/internal/metrics"
	"dwetl/internal/metrics/datadog"
	"dwetl/internal/metrics/prompush"
	"dwetl/internal/pipeline"
	"dwetl/internal/storage"
	"dwetl/internal/transformer"
	"dwetl/internal/transformer/builtin"
)

// Every client below is built per sweep and closed at its end.

// awsSession returns the AWS session, creating it on first use.
func (a *app) awsSession(sess **session.Session) (*session.Session, error) {
	if *sess != nil {
		return *sess, nil
	}
	s, err := s3store.NewSession(a.cfg.S3)
	if err != nil {
		return nil, err
	}
	*sess = s
	return s, nil
}

func (a *app) openSource(sess **session.Session) (datasource.Store, error) {
	src := a.cfg.Source
	switch src.Kind {
	case "s3":
		s, err := a.awsSession(sess)
		if err != nil {
			return nil, err
		}
		return s3store.New(s, src.Bucket), nil
	case "file":
		return file.NewDir(src.Dir), nil
	case "http":
		return &httpds.Store{
			Client: httpds.NewClient(httpds.Config{Timeout: src.Timeout, MaxRetries: src.Retries}),
			Base:   src.BaseURL,
		}, nil
	}
	return nil, fmt.Errorf("source: unknown kind %q", src.Kind)
}

func (a *app) openLedger(ctx context.Context, sess **session.Session) (*ledger.Ledger, error) {
	lc := a.cfg.Ledger
	policy, err := ledger.ParsePolicy(lc.Policy)
	if err != nil {
		return nil, err
	}
	opt := ledger.Options{Kind: lc.Kind, Prefix: lc.Prefix, DSN: lc.DSN, Table: lc.Table}
	if lc.Kind == ledger.KindS3 {
		s, err := a.awsSession(sess)
		if err != nil {
			return nil, err
		}
		opt.Bucket = s3store.New(s, lc.Bucket)
	}
	store, err := ledger.Open(ctx, opt)
	if err != nil {
		return nil, err
	}
	return ledger.New(store, policy, a.log), nil
}

func (a *app) openDestination(ctx context.Context, sess **session.Session) (storage.Destination, error) {
	sc := a.cfg.Storage
	d := sc.Dremio
	cfg := storage.Config{
		Kind:      sc.Kind,
		Job:       a.cfg.Job,
		Log:       a.log,
		DSN:       sc.DSN,
		BatchSize: sc.BatchSize,
		Dremio: dremio.Config{
			URL:                d.URL,
			Username:           d.Username,
			Password:           d.Password,
			InsecureSkipVerify: d.Insecure,
			Timeout:            d.Timeout,
			LoginRetries:       d.LoginRetries,
			WaitJobs:           d.Wait,
			PollInterval:       d.PollInterval,
		},
		Ceiling:        d.Ceiling,
		Pace:           d.Pace,
		RowsPerCommand: d.RowsPerCommand,
	}
	if sc.Kind == "silver" {
		if sc.Dir != "" {
			cfg.Writer = file.NewDir(sc.Dir)
		} else {
			s, err := a.awsSession(sess)
			if err != nil {
				return nil, err
			}
			cfg.Writer = s3store.New(s, sc.Bucket)
		}
	}
	return storage.New(ctx, cfg)
}

// pipelineOptions translates the configuration for pipeline.New.
func (a *app) pipelineOptions() (pipeline.Options, error) {
	comma, err := a.cfg.Parser.Comma()
	if err != nil {
		return pipeline.Options{}, err
	}
	hints, err := a.cfg.Parser.TypeHints()
	if err != nil {
		return pipeline.Options{}, err
	}
	mode, err := transformer.ParseMode(a.cfg.Transform.Mode)
	if err != nil {
		return pipeline.Options{}, err
	}
	chain, err := builtin.ForMode(mode, builtin.Options{MinNonNull: a.cfg.Transform.MinNonNull, Log: a.log})
	if err != nil {
		return pipeline.Options{}, err
	}

	opt := pipeline.Options{
		Job:          a.cfg.Job,
		Comma:        comma,
		NoHeader:     a.cfg.Parser.NoHeader,
		Types:        hints,
		Chain:        chain,
		ObjectPrefix: a.cfg.Storage.Prefix,
		Log:          a.log,
	}
	if a.cfg.Storage.Kind == "dremio" {
		opt.Namespace = a.cfg.Storage.Dremio.Source
	}
	return opt, nil
}

// setupMetrics installs the configured metrics backend. A backend that
// cannot be created is logged and metrics stay disabled.
func (a *app) setupMetrics() {
	rt := a.cfg.Runtime
	switch rt.Metrics {
	case "pushgateway":
		b, err := prompush.NewBackend(a.cfg.Job, rt.PushgatewayURL)
		if err != nil {
			a.log.Warn("metrics: failed to init prom push backend; using nop", "err", err)
			return
		}
		metrics.SetBackend(b)
		a.log.Info("metrics: enabled", "backend", rt.Metrics, "url", rt.PushgatewayURL, "job", a.cfg.Job)
	case "datadog":
		b, err := datadog.NewBackend(datadog.Config{
			Addr:       rt.DatadogAddr,
			Namespace:  "dwetl.",
			GlobalTags: []string{"job:" + a.cfg.Job},
		})
		if err != nil {
			a.log.Warn("metrics: failed to init datadog backend; using nop", "err", err)
			return
		}
		metrics.SetBackend(b)
		a.log.Info("metrics: enabled", "backend", rt.Metrics, "addr", rt.DatadogAddr)
	default:
		a.log.Debug("metrics: disabled", "backend", rt.Metrics)
	}
}

func (a *app) flushMetrics() {
	if err := metrics.Flush(); err != nil {
		a.log.Warn("metrics: flush error", "err", err)
	}
}
