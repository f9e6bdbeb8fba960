package main

import (
	"go.uber.org/zap"

	"github.com/spf13/cobra"

	"github.com/trendscout/trendscout/internal/backtest"
	"github.com/trendscout/trendscout/internal/companion"
	"github.com/trendscout/trendscout/internal/config"
	"github.com/trendscout/trendscout/internal/fileio"
	"github.com/trendscout/trendscout/internal/provider"
	"github.com/trendscout/trendscout/internal/store"
	"github.com/trendscout/trendscout/internal/worker"
	"github.com/trendscout/trendscout/pkg/log"
)

// version is overridden at build time.
var version = "dev"

var (
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "trendscout",
	Short: "Strategy research worker: fetch market data, sweep parameters, rank configurations",
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(companionCmd)

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level, overrides TRENDSCOUT_LOG_LEVEL")
}

func setupLogger(cfg *config.Config) {
	level := cfg.Worker.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	logger := log.InitLog(log.AtomicLevelFromString(level))
	zap.ReplaceGlobals(logger)
}

// buildEngine wires the full worker stack from configuration.
func buildEngine(cfg *config.Config) (*worker.Engine, store.Store, error) {
	db, err := store.InitDB(cfg)
	if err != nil {
		return nil, nil, err
	}

	st := store.NewStore(db)
	if err := st.Seed(); err != nil {
		st.Close()
		return nil, nil, err
	}

	engine, err := worker.NewEngine(
		cfg,
		st,
		provider.NewSynthetic(),
		backtest.NewDonchian(),
		companion.NewClientFromEnv(),
		fileio.NewWriter(),
		version,
	)
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	return engine, st, nil
}
