package cli

import (
	"fmt"
	"os"
	"sort"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/vaultdrive/vaultdrive/internal/config"
	"github.com/vaultdrive/vaultdrive/internal/vault"
)

// status reads the settings document directly; no network.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pending operations and sync state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := vault.Open(flagVault)
		if err != nil {
			return err
		}
		settings, err := config.Load(config.SettingsPath(v.Root()))
		if err != nil {
			return err
		}

		if len(settings.Operations) == 0 {
			fmt.Println("No pending operations.")
		} else {
			paths := make([]string, 0, len(settings.Operations))
			for path := range settings.Operations {
				paths = append(paths, path)
			}
			sort.Strings(paths)

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"Operation", "Path"})
			table.SetBorder(false)
			table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
			table.SetAlignment(tablewriter.ALIGN_LEFT)
			for _, path := range paths {
				table.Append([]string{string(settings.Operations[path]), path})
			}
			table.Render()
		}

		fmt.Printf("\nIndexed remote objects: %d\n", len(settings.DriveIDToPath))
		if settings.LastSyncTime != "" {
			fmt.Printf("Last successful sync:   %s\n", settings.LastSyncTime)
		} else {
			fmt.Println("Last successful sync:   never")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
