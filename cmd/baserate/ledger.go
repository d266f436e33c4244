package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/rickgao/baserate-arb/internal/ledger"
	"github.com/rickgao/baserate-arb/internal/model"
)

func newLedgerCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect and manage the paper-trading ledger",
	}
	cmd.AddCommand(
		newLedgerShowCmd(opts),
		newLedgerOpenCmd(opts),
		newLedgerSettleCmd(opts),
		newLedgerResetCmd(opts),
	)
	return cmd
}

// withApp loads config, wires the pipeline and runs fn.
func withApp(cmd *cobra.Command, opts *rootOptions, fn func(a *app) error) error {
	cfg, logger, err := opts.loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func newLedgerShowCmd(opts *rootOptions) *cobra.Command {
	var (
		status string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show balance and positions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(a *app) error {
				snap := a.ledger.Snapshot()
				if status != "" {
					snap.Positions = a.ledger.Positions(model.Status(status))
				}
				if asJSON {
					return printJSON(cmd.OutOrStdout(), snap)
				}
				printLedger(cmd.OutOrStdout(), snap)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "filter positions by status (OPEN, CLOSED_WIN, CLOSED_LOSS, CLOSED_VOID)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func newLedgerOpenCmd(opts *rootOptions) *cobra.Command {
	var (
		side    string
		price   float64
		qty     int
		average bool
	)
	cmd := &cobra.Command{
		Use:   "open MARKET_ID",
		Short: "Open a paper position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := model.ParseSide(side)
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(a *app) error {
				req := ledger.OpenRequest{MarketID: args[0], Side: s, Price: price, Quantity: qty, Average: average}
				if m, ok := a.registry.GetMarket(args[0]); ok {
					req.Platform = m.Platform
					req.Title = m.Title
				}
				pos, err := a.ledger.Open(cmd.Context(), req)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), pos)
			})
		},
	}
	cmd.Flags().StringVar(&side, "side", "", "YES or NO")
	cmd.Flags().Float64Var(&price, "price", 0, "entry price in cents")
	cmd.Flags().IntVar(&qty, "quantity", 0, "number of contracts")
	cmd.Flags().BoolVar(&average, "average", false, "add to an existing open position")
	_ = cmd.MarkFlagRequired("side")
	_ = cmd.MarkFlagRequired("price")
	_ = cmd.MarkFlagRequired("quantity")
	return cmd
}

func newLedgerSettleCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "settle MARKET_ID OUTCOME",
		Short: "Settle open positions on a market (YES, NO or VOID)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			outcome, err := model.ParseOutcome(args[1])
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(a *app) error {
				res, err := a.ledger.Settle(cmd.Context(), args[0], outcome)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
}

func newLedgerResetCmd(opts *rootOptions) *cobra.Command {
	var (
		balance float64
		yes     bool
	)
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Discard all positions and restart the account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return fmt.Errorf("reset discards every position; pass --yes to confirm")
			}
			return withApp(cmd, opts, func(a *app) error {
				b := decimal.NewFromFloat(a.cfg.Paper.InitialBalance)
				if cmd.Flags().Changed("balance") {
					b = decimal.NewFromFloat(balance)
				}
				if b.IsNegative() {
					return fmt.Errorf("balance must not be negative")
				}
				if err := a.ledger.Reset(cmd.Context(), b); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "ledger reset to $%s\n", b.StringFixed(2))
				return nil
			})
		},
	}
	cmd.Flags().Float64Var(&balance, "balance", 0, "starting balance (defaults to paper.initial_balance)")
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}

func printLedger(w io.Writer, snap ledger.Snapshot) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "balance\t$%s\n", snap.Balance.StringFixed(2))
	fmt.Fprintf(tw, "equity\t$%s\n", snap.Equity.StringFixed(2))
	fmt.Fprintf(tw, "realized\t$%s\n", snap.RealizedPnL.StringFixed(2))
	fmt.Fprintf(tw, "unrealized\t$%s\n", snap.UnrealizedPnL.StringFixed(2))
	fmt.Fprintf(tw, "record\t%dW %dL %dV (%.1f%%)\n", snap.Wins, snap.Losses, snap.Voids, snap.WinRate*100)
	_ = tw.Flush()

	if len(snap.Positions) == 0 {
		return
	}
	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MARKET\tSIDE\tQTY\tENTRY\tSTAKE\tSTATUS\tPNL")
	for _, p := range snap.Positions {
		pnl := p.PnL
		if p.Status == model.StatusOpen {
			pnl = p.UnrealizedPnL()
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.1fc\t$%s\t%s\t$%s\n",
			p.MarketID, p.Side, p.Quantity, p.EntryPrice, p.Stake.StringFixed(2), p.Status, pnl.StringFixed(2))
	}
	_ = tw.Flush()
}
