package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/corates/billing/internal/interfaces/cli/migrate"
	"github.com/corates/billing/internal/interfaces/cli/reconcile"
	"github.com/corates/billing/internal/interfaces/cli/server"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "billing",
		Short: "Billing access and Stripe reconciliation service",
		Long:  `billing resolves organization plan access from subscriptions and grants, ingests Stripe webhooks, and reports stuck billing states.`,
	}

	rootCmd.AddCommand(
		server.NewCommand(),
		migrate.NewCommand(),
		reconcile.NewCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
