package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"kosning/internal/app/bootstrap"
)

var rootCmd = &cobra.Command{
	Use:   "events-api",
	Short: "Voting token issuance service",
	Long: `events-api authenticates members, checks election eligibility, mints
one-time voting tokens, and registers their hashes with the elections
service.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cmd.SilenceUsage = true

		slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
			TimeFormat: time.RFC3339,
		})))

		app, err := bootstrap.BuildEventsAPI()
		if err != nil {
			return err
		}
		defer app.Close()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return app.Run(ctx)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("events api exited", "error", err.Error())
		os.Exit(1)
	}
}
