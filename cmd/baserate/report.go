package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rickgao/baserate-arb/internal/report"
)

func newReportCmd(opts *rootOptions) *cobra.Command {
	var (
		period string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize paper-trading performance for a period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := report.ParsePeriod(period)
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(a *app) error {
				perf := report.Generate(a.ledger.Snapshot(), p, time.Now().UTC())
				if asJSON {
					return printJSON(cmd.OutOrStdout(), perf)
				}
				fmt.Fprint(cmd.OutOrStdout(), perf.Text())
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&period, "period", "p", "weekly", "daily, weekly, monthly or all_time")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}
