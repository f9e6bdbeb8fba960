package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/trendscout/trendscout/internal/config"
	"github.com/trendscout/trendscout/internal/worker"
)

var (
	fetchSymbols []string
	fetchStart   string
	fetchEnd     string
	fetchForce   bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch daily bars into the local cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			return err
		}
		setupLogger(cfg)

		if len(fetchSymbols) == 0 {
			return errors.New("at least one --symbol is required")
		}
		start, err := time.Parse(time.DateOnly, fetchStart)
		if err != nil {
			return errors.Wrap(err, "parsing --start")
		}
		end, err := time.Parse(time.DateOnly, fetchEnd)
		if err != nil {
			return errors.Wrap(err, "parsing --end")
		}

		engine, st, err := buildEngine(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		go func() { _ = engine.Run(ctx) }()

		jobID := engine.Fetch(fetchSymbols, start, end, fetchForce)
		terminal := waitForTerminal(ctx, engine, jobID)

		log := zap.S()
		switch u := terminal.(type) {
		case worker.CompletedUpdate:
			result := u.Result.(worker.FetchResult)
			log.Infow("fetch complete",
				"fetched", result.Fetched, "skipped", result.Skipped, "errors", result.Errors)
			return nil
		case worker.FailedUpdate:
			return u.Err
		case worker.CancelledUpdate:
			log.Info("fetch cancelled")
			return nil
		default:
			return errors.New("worker stopped before the fetch finished")
		}
	},
}

func init() {
	fetchCmd.Flags().StringSliceVar(&fetchSymbols, "symbol", nil, "symbol to fetch, repeatable")
	fetchCmd.Flags().StringVar(&fetchStart, "start", time.Now().AddDate(-3, 0, 0).Format(time.DateOnly), "range start (YYYY-MM-DD)")
	fetchCmd.Flags().StringVar(&fetchEnd, "end", time.Now().Format(time.DateOnly), "range end (YYYY-MM-DD)")
	fetchCmd.Flags().BoolVar(&fetchForce, "force", false, "refetch even when the cache covers the range")
}

// waitForTerminal drains updates until the job finishes or the context is
// cancelled, logging progress along the way.
func waitForTerminal(ctx context.Context, engine *worker.Engine, jobID string) worker.Update {
	log := zap.S().Named("progress")
	for {
		select {
		case <-ctx.Done():
			engine.CancelJob(jobID)
			return nil
		case update, ok := <-engine.Updates():
			if !ok {
				return nil
			}
			switch u := update.(type) {
			case worker.ProgressUpdate:
				if u.JobID == jobID {
					log.Infow(u.Message, "completed", u.Completed, "total", u.Total)
				}
			case worker.CompletedUpdate:
				if u.JobID == jobID {
					return u
				}
			case worker.FailedUpdate:
				if u.JobID == jobID {
					return u
				}
			case worker.CancelledUpdate:
				if u.JobID == jobID {
					return u
				}
			}
		}
	}
}
