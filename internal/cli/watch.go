package cli

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vaultdrive/vaultdrive/internal/config"
	"github.com/vaultdrive/vaultdrive/internal/logging"
	"github.com/vaultdrive/vaultdrive/internal/sync"
	"github.com/vaultdrive/vaultdrive/internal/vault"
)

var flagFlushInterval time.Duration

// watch records local filesystem events into the operation log. It
// never talks to Drive, so it needs no authentication; a later push
// applies what it recorded.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Record local changes into the operation log",
	Long: `Watch observes the vault with filesystem notifications and records
creates, modifications, and deletions in the operation log. Nothing is
sent to Drive; run push to apply the recorded changes.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		v, err := vault.Open(flagVault)
		if err != nil {
			return err
		}
		settingsPath := config.SettingsPath(v.Root())
		settings, err := config.Load(settingsPath)
		if err != nil {
			return err
		}
		log := sync.NewOpLog(settings.Operations)

		watcher, err := vault.NewWatcher(v, log, logger)
		if err != nil {
			return err
		}
		defer watcher.Close()

		// Periodic flush keeps the log durable across crashes. Flush
		// serializes under the log's lock, so the watcher goroutine can
		// keep marking while a flush is in flight.
		ticker := time.NewTicker(flagFlushInterval)
		defer ticker.Stop()
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if !log.Dirty() {
						continue
					}
					if err := log.Flush(settings, settingsPath); err != nil {
						logger.Error("failed to flush operation log", logging.F("error", err.Error()))
					}
				}
			}
		}()

		printNotice("Watching vault; press Ctrl-C to stop.")
		if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		return log.Flush(settings, settingsPath)
	},
}

func init() {
	watchCmd.Flags().DurationVar(&flagFlushInterval, "flush-interval", 5*time.Second, "How often the operation log is persisted")
	rootCmd.AddCommand(watchCmd)
}
