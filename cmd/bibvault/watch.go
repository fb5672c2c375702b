package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/bibvault/pkg/adapters/fs"
	"github.com/aretw0/bibvault/pkg/core"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Sync on start and whenever the bibliography changes",
	Long: `Run a sync, then watch the bibliography file and sync again after every
change, once the file has been quiet for the debounce interval. Stop with Ctrl+C.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		vault := openVault()
		err := vault.Watch(ctx, watchDebounce, func(summary core.Summary, err error) {
			if err != nil {
				// Keep watching: the export may be half written.
				return
			}
			printSummary(summary)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			fatal("Watch failed", err)
		}
	},
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", fs.DefaultDebounce, "Quiet period before a sync starts")
	rootCmd.AddCommand(watchCmd)
}
