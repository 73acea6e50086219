package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vaultdrive/vaultdrive/internal/auth"
)

var (
	flagClientID     string
	flagClientSecret string
	flagNoBrowser    bool
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Google Drive authentication",
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate with Google Drive",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		manager := auth.NewManager()
		if err := manager.SetClient(flagClientID, flagClientSecret); err != nil {
			return err
		}
		if err := manager.Authenticate(ctx, openBrowser, auth.AuthOptions{NoBrowser: flagNoBrowser}); err != nil {
			return err
		}
		fmt.Printf("Authenticated. Token stored in %s.\n", manager.StoreName())
		return nil
	},
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		manager := auth.NewManager()
		if err := manager.Logout(); err != nil {
			return err
		}
		fmt.Println("Logged out.")
		return nil
	},
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show authentication status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		manager := auth.NewManager()
		if manager.HasToken() {
			fmt.Printf("Authenticated (token in %s).\n", manager.StoreName())
		} else {
			fmt.Println("Not authenticated. Run `vaultdrive auth login`.")
		}
		return nil
	},
}

func init() {
	authLoginCmd.Flags().StringVar(&flagClientID, "client-id", "", "OAuth client ID (defaults to the bundled client)")
	authLoginCmd.Flags().StringVar(&flagClientSecret, "client-secret", "", "OAuth client secret")
	authLoginCmd.Flags().BoolVar(&flagNoBrowser, "no-browser", false, "Use the manual copy-paste flow")

	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authStatusCmd)
	rootCmd.AddCommand(authCmd)
}
