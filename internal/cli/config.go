package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vaultdrive/vaultdrive/internal/config"
	"github.com/vaultdrive/vaultdrive/internal/vault"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage vault sync settings",
}

var configAddPathCmd = &cobra.Command{
	Use:   "add-path <dir>",
	Short: "Sync an extra directory as configuration",
	Long: `Directories added here (for example .obsidian) are synced as tagged
configuration objects alongside the vault tree.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := strings.Trim(args[0], "/")
		v, err := vault.Open(flagVault)
		if err != nil {
			return err
		}
		settingsPath := config.SettingsPath(v.Root())
		settings, err := config.Load(settingsPath)
		if err != nil {
			return err
		}
		for _, existing := range settings.ConfigPaths {
			if existing == dir {
				fmt.Printf("%s is already synced.\n", dir)
				return nil
			}
		}
		settings.ConfigPaths = append(settings.ConfigPaths, dir)
		if err := settings.Save(settingsPath); err != nil {
			return err
		}
		fmt.Printf("Added %s; it will sync on the next push.\n", dir)
		return nil
	},
}

var configRemovePathCmd = &cobra.Command{
	Use:   "remove-path <dir>",
	Short: "Stop syncing a configuration directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := strings.Trim(args[0], "/")
		v, err := vault.Open(flagVault)
		if err != nil {
			return err
		}
		settingsPath := config.SettingsPath(v.Root())
		settings, err := config.Load(settingsPath)
		if err != nil {
			return err
		}
		var kept []string
		for _, existing := range settings.ConfigPaths {
			if existing != dir {
				kept = append(kept, existing)
			}
		}
		if len(kept) == len(settings.ConfigPaths) {
			fmt.Printf("%s was not synced.\n", dir)
			return nil
		}
		settings.ConfigPaths = kept
		if err := settings.Save(settingsPath); err != nil {
			return err
		}
		fmt.Printf("Removed %s; its remote copy is deleted on the next push.\n", dir)
		return nil
	},
}

var configListPathsCmd = &cobra.Command{
	Use:   "list-paths",
	Short: "List synced configuration directories",
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
		if len(settings.ConfigPaths) == 0 {
			fmt.Println("No extra configuration directories are synced.")
			return nil
		}
		for _, dir := range settings.ConfigPaths {
			fmt.Println(dir)
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configAddPathCmd)
	configCmd.AddCommand(configRemovePathCmd)
	configCmd.AddCommand(configListPathsCmd)
	rootCmd.AddCommand(configCmd)
}
