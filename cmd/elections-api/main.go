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
	Use:   "elections-api",
	Short: "Election lifecycle and anonymous balloting service",
	Long: `elections-api owns elections, registered token hashes, and ballots.
It serves the member and admin APIs, the S2S registration endpoints, and
runs the scheduled-transition and orphan-sweep workers.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cmd.SilenceUsage = true

		slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
			TimeFormat: time.RFC3339,
		})))

		app, err := bootstrap.BuildElectionsAPI()
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
		slog.Error("elections api exited", "error", err.Error())
		os.Exit(1)
	}
}
