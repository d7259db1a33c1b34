package cli

import (
	"context"
	"fmt"
	"time"

	"order_sync/internal/app"
	"order_sync/internal/distribution"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func RunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch, sync, distribute and notify once",
		Long: `Runs every stage in order. With --interval the run repeats on a ticker until
the process is stopped; without it the command runs once, which suits cron.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			interval, _ := cmd.Flags().GetDuration("interval")
			return withServices(cmd.Context(), func(ctx context.Context, svc *app.Services) error {
				if interval <= 0 {
					_, err := svc.Runner.Run(ctx)
					return logCommandError("run", err)
				}

				log.Info().Dur("interval", interval).Msg("Repeating pipeline on interval")
				runEvery(ctx, interval, func(ctx context.Context) error {
					_, err := svc.Runner.Run(ctx)
					return err
				})
				return nil
			})
		},
	}
	cmd.Flags().Duration("interval", 0, "repeat the pipeline at this interval (0 runs once)")
	return cmd
}

// runEvery runs immediately and then on every tick until ctx is done. Run errors are
// logged and the loop carries on.
func runEvery(ctx context.Context, interval time.Duration, run func(context.Context) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := run(ctx); err != nil {
			log.Warn().Err(err).Msg("Pipeline run finished with errors")
		}
		if ctx.Err() != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func FetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Fetch new orders and append them to the master sheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), func(ctx context.Context, svc *app.Services) error {
				fetched, appended, err := svc.Runner.FetchAndSync(ctx)
				if err != nil {
					return logCommandError("fetch", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Fetched %d orders, appended %d rows\n", fetched, appended)
				return nil
			})
		},
	}
}

func DistributeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "distribute",
		Short: "Hand master sheet rows to agents",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "auto",
		Short: "Assign new rows round-robin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), func(ctx context.Context, svc *app.Services) error {
				n, err := svc.Distributor.Auto(ctx)
				if err != nil {
					return logCommandError("distribute auto", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Distributed %d rows\n", n)
				return nil
			})
		},
	})

	manual := &cobra.Command{
		Use:   "manual",
		Short: "Assign a row range to one agent",
		Long: `Copies data rows --start to --end (1-based, header excluded, inclusive) to the
agent's sheet and marks them on the master sheet.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			start, _ := cmd.Flags().GetInt("start")
			end, _ := cmd.Flags().GetInt("end")
			agent, _ := cmd.Flags().GetString("agent")
			a := distribution.Assignment{Start: start, End: end, Agent: agent}

			return withServices(cmd.Context(), func(ctx context.Context, svc *app.Services) error {
				n, err := svc.Distributor.Manual(ctx, a)
				if err != nil {
					return logCommandError("distribute manual", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Assigned %d rows to %s\n", n, agent)
				return nil
			})
		},
	}
	manual.Flags().Int("start", 0, "first data row")
	manual.Flags().Int("end", 0, "last data row")
	manual.Flags().String("agent", "", "agent name from the roster")
	_ = manual.MarkFlagRequired("start")
	_ = manual.MarkFlagRequired("end")
	_ = manual.MarkFlagRequired("agent")
	cmd.AddCommand(manual)

	return cmd
}

func NotifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "notify",
		Short: "Send WhatsApp messages for rows new on agent sheets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), func(ctx context.Context, svc *app.Services) error {
				if svc.Notifier == nil {
					return fmt.Errorf("notifications are disabled (NOTIFY_ENABLED=false)")
				}
				n, err := svc.Notifier.Run(ctx)
				fmt.Fprintf(cmd.OutOrStdout(), "Sent %d messages\n", n)
				return logCommandError("notify", err)
			})
		},
	}
}
