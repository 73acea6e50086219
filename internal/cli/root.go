package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vaultdrive/vaultdrive/internal/logging"
	"github.com/vaultdrive/vaultdrive/pkg/version"
)

var (
	flagVault   string
	flagVerbose bool
	flagQuiet   bool
	flagLogFile string

	logger logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "vaultdrive",
	Short: "Synchronize a local vault with Google Drive",
	Long: `vaultdrive keeps a local directory of notes (a vault) in sync with a
dedicated folder in Google Drive. Local edits are recorded in a durable
operation log and pushed explicitly; remote changes are pulled before
every push so newer remote content wins.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := logging.INFO
		if flagVerbose {
			level = logging.DEBUG
		}
		if flagQuiet {
			level = logging.ERROR
		}

		if flagLogFile != "" {
			fileLogger, err := logging.NewFileLogger(flagLogFile, level)
			if err != nil {
				return fmt.Errorf("failed to open log file: %w", err)
			}
			logger = fileLogger
			return nil
		}
		logger = logging.NewConsoleLogger(logging.ConsoleLoggerConfig{
			Level:        level,
			ColorEnabled: true,
		})
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Get().String())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagVault, "vault", ".", "Path to the local vault directory")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Only log errors")
	rootCmd.PersistentFlags().StringVar(&flagLogFile, "log-file", "", "Write logs to a file instead of stderr")

	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
