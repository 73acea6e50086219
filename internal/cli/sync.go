package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Push pending local changes to Drive",
	Long: `Push runs one sync cycle: remote changes are pulled first, then
pending deletes, creates, and modifications from the operation log are
applied to Drive. Entries are cleared only after the remote confirms
them; failed entries are retried on the next push.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		ws, err := openWorkspace(ctx)
		if err != nil {
			return err
		}
		return ws.engine.Push(ctx)
	},
}

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Pull remote changes into the vault",
	Long: `Pull reconciles the full remote tree into the vault: new and changed
objects are downloaded and local files whose remote counterpart was
deleted are removed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		ws, err := openWorkspace(ctx)
		if err != nil {
			return err
		}
		changed, err := ws.engine.Pull(ctx)
		if err != nil {
			return err
		}
		if changed {
			printNotice("Vault updated from Drive.")
		} else {
			printNotice("Vault already up to date.")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pushCmd)
	rootCmd.AddCommand(pullCmd)
}
