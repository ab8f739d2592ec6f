package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/relaycat/internal/upgrade"
)

// Version is set at build time via -ldflags "-X github.com/nextlevelbuilder/relaycat/cmd.Version=v1.0.0"
var Version = "dev"

var (
	cfgFile     string
	verbose     bool
	autoMigrate bool
)

var rootCmd = &cobra.Command{
	Use:   "relaycat",
	Short: "RelayCat — anonymous Telegram relay bot",
	Long:  "RelayCat relays private messages from Telegram users to a single operator and routes the operator's replies back, with a verification challenge, filtering rules and a ban list in front.",
	Run: func(cmd *cobra.Command, args []string) {
		runGateway()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: config.json or $RELAYCAT_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.Flags().BoolVar(&autoMigrate, "auto-migrate", false, "apply pending migrations on startup (or RELAYCAT_AUTO_MIGRATE=true)")

	rootCmd.AddCommand(onboardCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(doctorCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(upgradeCmd())
	rootCmd.AddCommand(rulesCmd())
	rootCmd.AddCommand(usersCmd())
	rootCmd.AddCommand(routesCmd())
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("relaycat %s (schema %d)\n", Version, upgrade.RequiredSchemaVersion)
		},
	}
}

func resolveConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if v := os.Getenv("RELAYCAT_CONFIG"); v != "" {
		return v
	}
	return "config.json"
}

// Execute runs the root cobra command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
