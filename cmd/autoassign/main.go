package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "autoassign",
		Short:        "Care Scheduler auto-assign CLI",
		Long:         `Fill open care shifts with eligible staff, from a JSON snapshot or from the configured database.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(planCmd())
	rootCmd.AddCommand(runCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
