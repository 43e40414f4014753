package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/vitos/options_flow/internal/domain"
	"github.com/vitos/options_flow/internal/infrastructure/logger"
	"github.com/vitos/options_flow/internal/infrastructure/marketdata"
	"github.com/vitos/options_flow/internal/usecase"
	"go.uber.org/zap"
)

type app struct {
	market *marketdata.YahooAdapter
	pricer *usecase.Pricer
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "scan",
		Short: "One-shot market scans for unusual options and equity volume activity",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log, err := logger.NewLogger("warn")
			if err != nil {
				return err
			}
			a.logger = log
			a.market = marketdata.NewYahooAdapter("")
			a.pricer = usecase.NewPricer()
			return nil
		},
	}

	root.AddCommand(newVolumeCmd(a))
	root.AddCommand(newOptionsCmd(a))
	return root
}

func newVolumeCmd(a *app) *cobra.Command {
	var (
		symbols []string
		index   string
	)

	cmd := &cobra.Command{
		Use:   "volume",
		Short: "Scan equities for unusual volume activity",
		RunE: func(cmd *cobra.Command, args []string) error {
			list := symbols
			if len(list) == 0 {
				list = usecase.IndexTickers(index)
			}

			scanner := usecase.NewVolumeScanner(a.market, usecase.DefaultScannerConfig(), a.logger)
			reports := scanner.Scan(context.Background(), list, func(progress string) {
				fmt.Fprintln(cmd.ErrOrStderr(), progress)
			})

			if len(reports) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No unusual activity found.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TICKER\tLEVEL\tSCORE\tVOLUME\tSPIKE\tCHANGE%\tVWAP DEV%")
			for _, r := range reports {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%.2fx\t%.2f\t%.2f\n",
					r.Ticker, r.ActivityType, r.RiskScore, r.CurrentVolume,
					r.VolumeSpikeRatio, r.PriceChangePct, r.VWAPDeviation)
			}
			w.Flush()

			summary := scanner.Summarize(reports)
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d alerts (high %d, moderate %d, low %d), avg score %.1f\n",
				summary.TotalAlerts, summary.HighRiskCount, summary.ModerateRiskCount,
				summary.LowRiskCount, summary.AvgRiskScore)
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&symbols, "symbols", "s", nil, "symbols to scan (default: index preset)")
	cmd.Flags().StringVarP(&index, "index", "i", "sp500", "index preset: sp500, nasdaq100, dow30")
	return cmd
}

func newOptionsCmd(a *app) *cobra.Command {
	var volumeThreshold int64

	cmd := &cobra.Command{
		Use:   "options [symbols...]",
		Short: "Scan option chains for high-volume contracts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			analyzer := usecase.NewChainAnalyzer(a.pricer)

			for _, symbol := range args {
				symbol = strings.ToUpper(symbol)

				snapshot, err := a.market.GetChainSnapshot(context.Background(), symbol)
				if err != nil {
					if errors.Is(err, domain.ErrNoOptionsData) {
						fmt.Fprintf(cmd.OutOrStdout(), "%s: no options data available\n", symbol)
						continue
					}
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", symbol, err)
					continue
				}

				payload := analyzer.Analyze(snapshot)
				printChain(cmd, payload, volumeThreshold)
			}
			return nil
		},
	}

	cmd.Flags().Int64VarP(&volumeThreshold, "volume-threshold", "t", 100, "minimum contract volume to display")
	return cmd
}

func printChain(cmd *cobra.Command, payload *domain.ChainPayload, threshold int64) {
	out := cmd.OutOrStdout()
	a := payload.Analytics

	fmt.Fprintf(out, "\n%s (current: $%.2f)\n", payload.Symbol, payload.CurrentPrice)
	fmt.Fprintf(out, "put/call ratio %.2f | max pain $%.2f | call vol %d | put vol %d\n",
		a.PutCallRatio, a.MaxPain, a.TotalCallVolume, a.TotalPutVolume)

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "EXP\tSTRIKE\tTYPE\tVOLUME\tOI\tLAST\tIV\tDELTA\tGAMMA\tTHETA")
	for _, key := range payload.Expirations {
		chain := payload.Chains[key]
		for _, rows := range [][]domain.EnrichedContract{chain.Calls, chain.Puts} {
			for _, c := range rows {
				if c.Volume < threshold {
					continue
				}
				fmt.Fprintf(w, "%s\t%.2f\t%s\t%d\t%d\t%.2f\t%.1f%%\t%.3f\t%.4f\t%.3f\n",
					c.Expiration, c.Strike, c.Type, c.Volume, c.OpenInterest,
					c.LastPrice, c.ImpliedVolatility*100,
					c.Greeks.Delta, c.Greeks.Gamma, c.Greeks.Theta)
			}
		}
	}
	w.Flush()
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
