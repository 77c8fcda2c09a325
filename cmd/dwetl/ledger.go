package main

import (
	"fmt"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/spf13/cobra"
)

func newLedgerCommand(a *app) *cobra.Command {
	lc := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect or purge the processed-file ledger.",
	}
	lc.AddCommand(&cobra.Command{
		Use:         "list",
		Short:       "Print every id recorded as processed.",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{validateAnnotation: validateLedger},
		RunE: func(cmd *cobra.Command, args []string) error {
			var sess *session.Session
			led, err := a.openLedger(cmd.Context(), &sess)
			if err != nil {
				return err
			}
			defer led.Close()

			ids, err := led.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintln(a.stdout, id)
			}
			return nil
		},
	})
	lc.AddCommand(&cobra.Command{
		Use:   "purge <id>...",
		Short: "Forget the given ids so the next run processes them again.",
		Long: `purge removes ledger records. Purging a file that was published means
the next run publishes it again.
`,
		Args:        cobra.MinimumNArgs(1),
		Annotations: map[string]string{validateAnnotation: validateLedger},
		RunE: func(cmd *cobra.Command, args []string) error {
			var sess *session.Session
			led, err := a.openLedger(cmd.Context(), &sess)
			if err != nil {
				return err
			}
			defer led.Close()
			return led.Purge(cmd.Context(), args...)
		},
	})
	return lc
}
