package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/rickgao/baserate-arb/internal/model"
	"github.com/rickgao/baserate-arb/internal/rank"
	"github.com/rickgao/baserate-arb/internal/scheduler"
)

var errNoOpportunities = errors.New("no opportunities match the criteria")

// criteriaFlags binds filter flags shared by opportunities and kelly.
type criteriaFlags struct {
	c         rank.Criteria
	platforms []string
	refresh   bool
}

func (f *criteriaFlags) register(fs *pflag.FlagSet) {
	fs.Float64Var(&f.c.MinEdge, "min-edge", 0, "minimum edge in percentage points")
	fs.Float64Var(&f.c.MinEV, "min-ev", 0, "minimum expected value per dollar")
	fs.Float64Var(&f.c.MinEdgeRatio, "min-edge-ratio", 0, "minimum edge relative to fair probability")
	fs.Float64Var(&f.c.MinConfidence, "min-confidence", 0, "minimum base-rate confidence")
	fs.Float64Var(&f.c.MinKelly, "min-kelly", 0, "minimum applied Kelly fraction")
	fs.Float64Var(&f.c.MaxKelly, "max-kelly", 0, "maximum applied Kelly fraction")
	fs.IntVar(&f.c.MinQuantity, "min-quantity", 0, "minimum fillable contracts from the book")
	fs.StringSliceVar(&f.platforms, "platform", nil, "restrict to platforms (kalshi, polymarket)")
	fs.StringSliceVar(&f.c.Categories, "category", nil, "restrict to categories (substring match)")
	fs.IntVar(&f.c.Limit, "limit", 0, "maximum results")
	fs.BoolVar(&f.refresh, "refresh", false, "fetch and research before ranking")
}

func (f *criteriaFlags) criteria() (rank.Criteria, error) {
	c := f.c
	c.Platforms = nil
	for _, name := range f.platforms {
		p, err := model.ParsePlatform(name)
		if err != nil {
			return rank.Criteria{}, err
		}
		c.Platforms = append(c.Platforms, p)
	}
	return c, nil
}

// opportunities ranks stored markets, refreshing them first when asked.
func (f *criteriaFlags) opportunities(cmd *cobra.Command, a *app) ([]model.OpportunityAnalysis, error) {
	criteria, err := f.criteria()
	if err != nil {
		return nil, err
	}
	if f.refresh {
		if _, err := a.scheduler.RunCycle(cmd.Context(), scheduler.RunOptions{
			Platforms:      criteria.Platforms,
			SkipTrading:    true,
			SkipSettlement: true,
		}); err != nil {
			return nil, fmt.Errorf("refresh: %w", err)
		}
	}
	return a.scheduler.Opportunities(cmd.Context(), criteria)
}

func newOpportunitiesCmd(opts *rootOptions) *cobra.Command {
	var (
		flags  criteriaFlags
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:     "opportunities",
		Aliases: []string{"opps"},
		Short:   "Rank markets by edge against their base rates",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(a *app) error {
				opps, err := flags.opportunities(cmd, a)
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd.OutOrStdout(), map[string]any{
						"opportunities": opps,
						"summary":       rank.Summarize(opps),
					})
				}
				printOpportunities(cmd.OutOrStdout(), opps)
				return nil
			})
		},
	}
	flags.register(cmd.Flags())
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func printOpportunities(w io.Writer, opps []model.OpportunityAnalysis) {
	if len(opps) == 0 {
		fmt.Fprintln(w, errNoOpportunities.Error())
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MARKET\tPLATFORM\tSIDE\tFAIR\tPRICE\tEDGE\tEV\tKELLY\tDAYS\tTITLE")
	for _, o := range opps {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.1f%%\t%.1fc\t%+.1f\t%.3f\t%.3f\t%.0f\t%s\n",
			o.MarketID, o.Platform, o.Side,
			o.FairProbability*100, o.FillPrice, o.Edge, o.ExpectedValue, o.KellyFraction,
			o.DaysRemaining, truncate(o.Title, 50))
	}
	_ = tw.Flush()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
