package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/rickgao/baserate-arb/internal/sizing"
)

func newKellyCmd(opts *rootOptions) *cobra.Command {
	var (
		flags    criteriaFlags
		bankroll float64
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "kelly",
		Short: "Size a Kelly portfolio over ranked opportunities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(a *app) error {
				opps, err := flags.opportunities(cmd, a)
				if err != nil {
					return err
				}
				if len(opps) == 0 {
					return errNoOpportunities
				}

				b := a.ledger.Account().Balance
				if cmd.Flags().Changed("bankroll") {
					b = decimal.NewFromFloat(bankroll)
				}
				orders := sizing.Plan(b, opps)
				if asJSON {
					return printJSON(cmd.OutOrStdout(), map[string]any{
						"bankroll": b,
						"stakes":   sizing.Portfolio(b, opps),
						"orders":   orders,
					})
				}
				printOrders(cmd.OutOrStdout(), b, orders)
				return nil
			})
		},
	}
	flags.register(cmd.Flags())
	cmd.Flags().Float64Var(&bankroll, "bankroll", 0, "bankroll in dollars (defaults to the ledger balance)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func printOrders(w io.Writer, bankroll decimal.Decimal, orders []sizing.Order) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MARKET\tSIDE\tQTY\tPRICE\tSTAKE\tTITLE")
	total := decimal.Zero
	for _, o := range orders {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.1fc\t$%s\t%s\n",
			o.MarketID, o.Side, o.Quantity, o.Price, o.Stake.StringFixed(2), truncate(o.Title, 50))
		total = total.Add(o.Stake)
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "\ntotal $%s of $%s bankroll\n", total.StringFixed(2), bankroll.StringFixed(2))
}
