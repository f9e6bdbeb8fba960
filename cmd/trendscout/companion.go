package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/trendscout/trendscout/internal/companion"
	"github.com/trendscout/trendscout/internal/config"
)

var companionCmd = &cobra.Command{
	Use:   "companion",
	Short: "Observe another trendscout process's job activity",
	Long: "Starts a companion server and prints every event a connected process mirrors to it.\n" +
		"Point the observed process at the printed address via " + companion.SocketEnv + ".",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			return err
		}
		setupLogger(cfg)

		server, err := companion.NewServer(cfg.Companion.Address)
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		fmt.Printf("listening on %s\n", server.Addr())
		fmt.Printf("export %s=%s\n", companion.SocketEnv, server.Addr())

		go printEvents(server)
		return server.Run(ctx)
	},
}

func printEvents(server *companion.Server) {
	for event := range server.Events() {
		switch event.Type {
		case companion.EventStarted:
			fmt.Printf("[started] pid=%d version=%s\n", event.PID, event.Version)
		case companion.EventStatus:
			fmt.Printf("[status] %s\n", event.Message)
		case companion.EventJobStarted:
			fmt.Printf("[job %s] started: %s\n", event.JobID, event.Message)
		case companion.EventJobProgress:
			fmt.Printf("[job %s] %d/%d %s\n", event.JobID, event.Completed, event.Total, event.Message)
		case companion.EventJobComplete:
			fmt.Printf("[job %s] complete: %s\n", event.JobID, event.Message)
		case companion.EventJobFailed:
			fmt.Printf("[job %s] failed: %s\n", event.JobID, event.Error)
		case companion.EventJobCancelled:
			fmt.Printf("[job %s] cancelled\n", event.JobID)
		case companion.EventShutdown:
			fmt.Println("[shutdown]")
		default:
			fmt.Printf("[%s]\n", event.Type)
		}
	}
}
