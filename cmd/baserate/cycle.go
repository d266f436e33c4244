package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rickgao/baserate-arb/internal/model"
	"github.com/rickgao/baserate-arb/internal/scheduler"
)

func newCycleCmd(opts *rootOptions) *cobra.Command {
	var (
		platforms []string
		run       scheduler.RunOptions
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "cycle",
		Short: "Run one fetch, research, analyze, trade and settle cycle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, name := range platforms {
				p, err := model.ParsePlatform(name)
				if err != nil {
					return err
				}
				run.Platforms = append(run.Platforms, p)
			}

			cfg, logger, err := opts.loadConfig()
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			rep, err := a.scheduler.RunCycle(cmd.Context(), run)
			if err != nil && rep.ID == "" {
				return err
			}
			if asJSON {
				if perr := printJSON(cmd.OutOrStdout(), rep); perr != nil {
					return perr
				}
			} else {
				printCycle(cmd.OutOrStdout(), rep)
			}
			return err
		},
	}

	f := cmd.Flags()
	f.StringSliceVar(&platforms, "platform", nil, "restrict to platforms (kalshi, polymarket)")
	f.IntVar(&run.ResearchBudget, "research-budget", 0, "override the research budget for this cycle")
	f.BoolVar(&run.SkipFetch, "skip-fetch", false, "reuse stored markets")
	f.BoolVar(&run.SkipResearch, "skip-research", false, "do not research missing base rates")
	f.BoolVar(&run.SkipTrading, "skip-trading", false, "do not open paper positions")
	f.BoolVar(&run.SkipSettlement, "skip-settlement", false, "do not settle resolved positions")
	f.BoolVar(&asJSON, "json", false, "print the full cycle report as JSON")
	return cmd
}

func printCycle(w io.Writer, rep scheduler.CycleReport) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "cycle\t%s\n", rep.ID)
	fmt.Fprintf(tw, "duration\t%dms\n", rep.DurationMS)
	if rep.Cancelled {
		fmt.Fprintf(tw, "cancelled\ttrue\n")
	}
	for p, n := range rep.Fetched {
		fmt.Fprintf(tw, "fetched %s\t%d\n", p, n)
	}
	fmt.Fprintf(tw, "markets created/updated\t%d/%d\n", rep.Created, rep.Updated)
	r := rep.Research
	fmt.Fprintf(tw, "research\t%d candidates, %d ok, %d failed, %d cooldown, %d deferred\n",
		r.Candidates, r.Succeeded, r.Failed, r.Cooldown, r.Deferred)
	fmt.Fprintf(tw, "evaluated\t%d (%d stale)\n", rep.Evaluated, rep.Stale)
	fmt.Fprintf(tw, "opportunities\t%d\n", len(rep.Opportunities))
	for _, t := range rep.Trades {
		fmt.Fprintf(tw, "trade %s\t%s %d @ %.1fc %s\n", t.MarketID, t.Side, t.Quantity, t.Price, t.Status)
	}
	for _, s := range rep.Settlements {
		fmt.Fprintf(tw, "settle %s\t%s %s\n", s.MarketID, s.Outcome, s.Status)
	}
	fmt.Fprintf(tw, "balance\t$%s\n", rep.Ledger.Balance.StringFixed(2))
	fmt.Fprintf(tw, "equity\t$%s\n", rep.Ledger.Equity.StringFixed(2))
	for _, e := range rep.Errors {
		subject := e.Subject
		if e.MarketID != "" {
			subject = strings.TrimSpace(subject + " " + e.MarketID)
		}
		fmt.Fprintf(tw, "error %s\t%s: %s\n", e.Stage, subject, e.Message)
	}
	_ = tw.Flush()
}
