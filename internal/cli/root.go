package cli

import (
	"context"
	"fmt"

	"order_sync/internal/app"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// RootCmd assembles the order-sync command tree.
func RootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "order-sync",
		Short: "Sync store orders into Google Sheets and hand them to agents",
		Long: `order-sync pulls new WooCommerce and Shopify orders into a master Google Sheet,
distributes the new rows to agents and notifies each agent on WhatsApp.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(RunCmd())
	rootCmd.AddCommand(FetchCmd())
	rootCmd.AddCommand(DistributeCmd())
	rootCmd.AddCommand(NotifyCmd())
	rootCmd.AddCommand(CursorCmd())

	return rootCmd
}

// withServices loads configuration, builds the services and closes them afterwards.
func withServices(ctx context.Context, fn func(context.Context, *app.Services) error) error {
	cfg, err := app.LoadConfig()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	svc, err := app.InitializeServices(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer svc.Close()
	return fn(ctx, svc)
}

func logCommandError(name string, err error) error {
	if err != nil {
		log.Error().Err(err).Str("command", name).Msg("Command failed")
	}
	return err
}
