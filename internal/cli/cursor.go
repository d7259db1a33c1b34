package cli

import (
	"fmt"
	"os"
	"strconv"

	"order_sync/internal/app"
	"order_sync/internal/cursor"

	"github.com/spf13/cobra"
)

// CursorCmd inspects and repairs stored cursors. It needs only the state settings, not
// sheet or store credentials.
func CursorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cursor",
		Short: "Inspect or repair stored cursors",
		Long: `Cursor keys: last_order_id_<store>, last_distributed_row, last_sent_row_<agent>.
Row cursors are sheet row numbers with the header at row 1.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Print a cursor value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeFn, err := openCursors(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			v, err := store.Get(cmd.Context(), args[0], -1)
			if err != nil {
				return err
			}
			if v < 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is not set\n", args[0])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %d\n", args[0], v)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Overwrite a cursor value",
		Long:  "Overwrites the value as given, including moving it backwards to replay work.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid cursor value %q: %w", args[1], err)
			}
			if value < 0 {
				return cursor.ErrNegativeValue
			}

			store, closeFn, err := openCursors(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			if err := store.Set(cmd.Context(), args[0], value); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %d\n", args[0], value)
			return nil
		},
	})

	return cmd
}

func openCursors(cmd *cobra.Command) (cursor.Store, func() error, error) {
	cfg, err := app.LoadStateConfig(os.Getenv)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return app.OpenCursorStore(cmd.Context(), cfg)
}
