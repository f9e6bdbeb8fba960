package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/trendscout/trendscout/internal/config"
	"github.com/trendscout/trendscout/internal/worker"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the worker until interrupted, logging every update",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			return err
		}
		setupLogger(cfg)

		engine, st, err := buildEngine(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT)
		defer cancel()

		go logUpdates(engine)

		zap.S().Infow("worker running", "session_id", engine.SessionID())
		return engine.Run(ctx)
	},
}

func logUpdates(engine *worker.Engine) {
	log := zap.S().Named("updates")
	for update := range engine.Updates() {
		switch u := update.(type) {
		case worker.ProgressUpdate:
			log.Debugw("progress", "job_id", u.JobID, "completed", u.Completed, "total", u.Total, "message", u.Message)
		case worker.CompletedUpdate:
			log.Infow("completed", "job_id", u.JobID)
		case worker.FailedUpdate:
			log.Warnw("failed", "job_id", u.JobID, "error", u.Err)
		case worker.CancelledUpdate:
			log.Infow("cancelled", "job_id", u.JobID)
		}
	}
}
