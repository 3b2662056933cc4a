package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"trading-journal-go/internal/metrics"
	"trading-journal-go/internal/store"
)

func newStatsCmd(a *app) *cobra.Command {
	var (
		accountName string
		baseSize    float64
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print performance statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.loadStore(cmd.Context())
			if err != nil {
				return err
			}

			if accountName != "" {
				id, err := accountIDByName(st, accountName)
				if err != nil {
					return err
				}
				if err := st.SelectAccount(id); err != nil {
					return err
				}
			}
			if baseSize > 0 {
				st.SetReferenceBalanceOverride(decimal.NewFromFloat(baseSize))
			}

			summary := st.Stats()
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(summary)
			}
			printSummary(cmd, st.ReferenceBalance(), summary)
			return nil
		},
	}

	cmd.Flags().StringVarP(&accountName, "account", "a", "", "limit to one account (default all)")
	cmd.Flags().Float64Var(&baseSize, "base-size", 0, "account size used for percentages")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func accountIDByName(st *store.Store, name string) (string, error) {
	for _, acc := range st.Accounts() {
		if strings.EqualFold(acc.Name, name) {
			return acc.ID, nil
		}
	}
	return "", fmt.Errorf("no account named %q", name)
}

func printSummary(cmd *cobra.Command, balance decimal.Decimal, s metrics.Summary) {
	agg := s.Aggregate
	fmt.Fprintf(cmd.OutOrStdout(), "Trades:        %d (%d W / %d L / %d BE)\n",
		agg.TotalTrades, agg.WinCount, agg.LossCount, agg.BreakevenCount)
	fmt.Fprintf(cmd.OutOrStdout(), "Win rate:      %s%%\n", agg.WinRate.StringFixed(2))
	fmt.Fprintf(cmd.OutOrStdout(), "Profit factor: %s\n", agg.ProfitFactor.StringFixed(2))
	fmt.Fprintf(cmd.OutOrStdout(), "Average R:R:   %s\n", agg.AverageRealizedRR.StringFixed(2))
	fmt.Fprintf(cmd.OutOrStdout(), "Net P/L:       %s (%s%% of %s)\n",
		agg.NetPnL.StringFixed(2), agg.NetPnLPercent.StringFixed(2), balance.StringFixed(2))
	fmt.Fprintf(cmd.OutOrStdout(), "Best / worst:  %s / %s\n", agg.MaxWin.StringFixed(2), agg.MaxLoss.StringFixed(2))
	fmt.Fprintf(cmd.OutOrStdout(), "Commission:    %s\n", agg.TotalCommission.StringFixed(2))
	fmt.Fprintf(cmd.OutOrStdout(), "Streaks:       %d wins / %d losses\n",
		s.Streaks.MaxConsecutiveWins, s.Streaks.MaxConsecutiveLosses)
}
