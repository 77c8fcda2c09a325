package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

func newWatchCommand(a *app) *cobra.Command {
	var now bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the --all sweep on a cron schedule.",
		Long: `watch runs "run --all" every time --schedule fires until interrupted.
A tick that fires while the previous sweep is still running is skipped, so
files are never processed concurrently. Failed files are logged and picked
up again by the next sweep.

The schedule uses the standard cron syntax or descriptors such as
"@every 10m" and "@hourly".
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.setupMetrics()
			defer a.flushMetrics()
			return a.watch(cmd.Context(), now)
		},
	}
	cmd.Flags().BoolVar(&now, "now", false, "Run one sweep immediately before waiting for the schedule.")
	return cmd
}

// watch blocks until ctx is done, sweeping on every tick of the schedule.
func (a *app) watch(ctx context.Context, now bool) error {
	logger := cronLogger{a.log}
	c := cron.New(cron.WithLogger(logger), cron.WithChain(cron.SkipIfStillRunning(logger)))

	tick := func() {
		start := time.Now()
		sum, err := a.sweep(ctx, nil, true)
		if err == nil {
			err = sum.Err()
		}
		a.flushMetrics()
		if err != nil {
			a.log.Error("watch: sweep failed", "err", err, "took", time.Since(start).Truncate(time.Millisecond))
			return
		}
		a.log.Info("watch: sweep done", "processed", sum.Processed, "skipped", sum.Skipped, "took", time.Since(start).Truncate(time.Millisecond))
	}

	id, err := c.AddFunc(a.cfg.Runtime.Schedule, tick)
	if err != nil {
		return err
	}
	if now {
		tick()
	}
	c.Start()
	a.log.Info("watch: started", "schedule", a.cfg.Runtime.Schedule, "entry", int(id))

	<-ctx.Done()
	a.log.Info("watch: stopping, waiting for the running sweep")
	<-c.Stop().Done()
	return nil
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct{ log *slog.Logger }

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("cron: "+msg, append(keysAndValues, "err", err)...)
}
