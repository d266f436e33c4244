package main

import (
	"github.com/spf13/cobra"
)

func newResearchCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "research MARKET_ID",
		Short: "Research a market's base rate now, ignoring cooldown and budget",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				rate, err := a.scheduler.ResearchMarket(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), rate)
			})
		},
	}
}
