// Package commands implements the drawfsd CLI: starting the device
// facade and managing its configuration file.
package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	// Global flags.
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "drawfsd",
	Short: "DrawFS device daemon",
	Long: `drawfsd hosts the DrawFS framed drawing protocol device facade.

Each connection to its Unix domain socket is an independent session that
negotiates the protocol, enumerates virtual displays, creates off-screen
surfaces, and presents them. Use "drawfsd start" to run the daemon.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/drawfs/config.yaml)")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
}

// GetConfigFile returns the config file path from the global flag.
func GetConfigFile() string {
	return cfgFile
}
