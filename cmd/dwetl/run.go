package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/spf13/cobra"

	"dwetl/internal/datasource/file"
	"dwetl/internal/pipeline"
)

func newRunCommand(a *app) *cobra.Command {
	var (
		all     bool
		idsFile string
	)
	cmd := &cobra.Command{
		Use:   "run [id]...",
		Short: "Process the given files, or every unprocessed file with --all.",
		Long: `run processes each given file id once: ledger check, load, transform,
publish, mark. Ids are source keys (object keys, paths below --source-dir,
or URLs). With --all every CSV file under --source-prefix is considered.

The exit status is non-zero when any file failed; already processed files
are skipped and count as success.
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := append([]string(nil), args...)
			if idsFile != "" {
				list, err := file.ReadList(idsFile)
				if err != nil {
					return err
				}
				ids = append(ids, list...)
			}
			if !all && len(ids) == 0 {
				return errors.New("run: no files given; pass ids, --ids-file or --all")
			}

			a.setupMetrics()
			defer a.flushMetrics()

			sum, err := a.sweep(cmd.Context(), ids, all)
			if err != nil {
				return err
			}
			return sum.Err()
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Process every unprocessed CSV file under --source-prefix.")
	cmd.Flags().StringVar(&idsFile, "ids-file", "", "Read file ids from this file, one per line.")
	return cmd
}

// sweep opens the source, ledger and destination, processes ids (plus every
// discovered file when all is set), logs the summary and closes everything.
func (a *app) sweep(ctx context.Context, ids []string, all bool) (pipeline.Summary, error) {
	var sess *session.Session

	src, err := a.openSource(&sess)
	if err != nil {
		return pipeline.Summary{}, err
	}
	led, err := a.openLedger(ctx, &sess)
	if err != nil {
		return pipeline.Summary{}, err
	}
	defer led.Close()

	dest, err := a.openDestination(ctx, &sess)
	if err != nil {
		return pipeline.Summary{}, err
	}
	defer dest.Close()

	opt, err := a.pipelineOptions()
	if err != nil {
		return pipeline.Summary{}, err
	}
	r := pipeline.New(src, led, dest, opt)
	a.log.Info("pipeline: starting", "run_id", r.RunID(), "source", a.cfg.Source.Kind,
		"destination", dest.Kind(), "mode", a.cfg.Transform.Mode, "ledger", a.cfg.Ledger.Kind)

	if all {
		found, err := r.Discover(ctx, a.cfg.Source.Prefix)
		if err != nil {
			return pipeline.Summary{}, err
		}
		ids = mergeIDs(ids, found)
	}

	sum, err := r.Run(ctx, ids)
	sum.Log(a.log)
	if err != nil {
		return sum, fmt.Errorf("run interrupted: %w", err)
	}
	return sum, nil
}

// mergeIDs appends the ids of more missing from ids, keeping order.
func mergeIDs(ids, more []string) []string {
	seen := make(map[string]bool, len(ids)+len(more))
	out := make([]string, 0, len(ids)+len(more))
	for _, list := range [][]string{ids, more} {
		for _, id := range list {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}
