package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trendscout/trendscout/internal/config"
	"github.com/trendscout/trendscout/internal/leaderboard"
	"github.com/trendscout/trendscout/internal/sweep"
	"github.com/trendscout/trendscout/internal/worker"
)

var (
	sweepSymbols    []string
	entryLookbacks  string
	exitLookbacks   string
	diverseClusters int
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Sweep the parameter grid over cached symbols and print the leaderboards",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			return err
		}
		setupLogger(cfg)

		if len(sweepSymbols) == 0 {
			return errors.New("at least one --symbol is required")
		}

		paramRanges := map[string][]string{}
		if values := sweep.ParseValues(entryLookbacks); values != nil {
			paramRanges[sweep.ParamEntryLookback] = values
		}
		if values := sweep.ParseValues(exitLookbacks); values != nil {
			paramRanges[sweep.ParamExitLookback] = values
		}
		grid, err := sweep.Build(paramRanges)
		if err != nil {
			return err
		}

		engine, st, err := buildEngine(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		go func() { _ = engine.Run(ctx) }()

		jobID := engine.RunSweep(grid, sweepSymbols)
		terminal := waitForTerminal(ctx, engine, jobID)

		switch u := terminal.(type) {
		case worker.CompletedUpdate:
			printSummary(engine, u.Result.(worker.SweepSummary))
			return nil
		case worker.FailedUpdate:
			return u.Err
		case worker.CancelledUpdate:
			fmt.Println("sweep cancelled")
			return nil
		default:
			return errors.New("worker stopped before the sweep finished")
		}
	},
}

func init() {
	sweepCmd.Flags().StringSliceVar(&sweepSymbols, "symbol", nil, "symbol to sweep, repeatable")
	sweepCmd.Flags().StringVar(&entryLookbacks, "entry-lookbacks", "", "comma-separated entry lookbacks (default 10,20,30,40,50)")
	sweepCmd.Flags().StringVar(&exitLookbacks, "exit-lookbacks", "", "comma-separated exit lookbacks (default 5,10,15,20,25)")
	sweepCmd.Flags().IntVar(&diverseClusters, "diverse-clusters", 0, "print a diverse top-N clustered into this many parameter regions")
}

func printSummary(engine *worker.Engine, summary worker.SweepSummary) {
	fmt.Printf("session %s: %d configurations evaluated\n", summary.SessionID, summary.Evaluated)
	for symbol, errMsg := range summary.Errors {
		fmt.Printf("  error %s: %s\n", symbol, errMsg)
	}

	for _, symbol := range sweepSymbols {
		entries := summary.PerSymbol[symbol]
		if diverseClusters > 0 {
			cfg := leaderboard.DefaultDiversityConfig()
			cfg.Clusters = diverseClusters
			entries = engine.DiverseLeaderboard(symbol, len(entries), cfg)
		}
		if len(entries) == 0 {
			continue
		}
		fmt.Printf("\n%s\n", symbol)
		for _, e := range entries {
			fmt.Printf("  %2d. %-18s sharpe=%6.2f cagr=%6.2f%% maxdd=%5.2f%% trades=%d\n",
				e.Rank, e.ConfigID, e.Metrics.Sharpe, e.Metrics.CAGR*100, e.Metrics.MaxDrawdown*100, e.Metrics.Trades)
		}
	}

	if len(summary.CrossSymbol) > 0 {
		fmt.Printf("\ncross-symbol\n")
		for _, e := range summary.CrossSymbol {
			fmt.Printf("  %2d. %-18s avg_sharpe=%6.2f geo_cagr=%6.2f%% worst_dd=%5.2f%%\n",
				e.Rank, e.ConfigID, e.Metrics.AvgSharpe, e.Metrics.GeoMeanCAGR*100, e.Metrics.WorstDrawdown*100)
		}
	}
}
