// Package commands implements the drawfsctl CLI.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/drawfs/drawfs/internal/adminclient"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	adminAddr string
)

var rootCmd = &cobra.Command{
	Use:   "drawfsctl",
	Short: "Operator CLI for drawfsd",
	Long: `drawfsctl inspects a running drawfsd daemon through its admin
endpoint (listing open sessions, reading per-session STATS counters) and
can generate present load directly over the daemon's DrawFS socket.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&adminAddr, "admin", "http://127.0.0.1:9091", "drawfsd admin endpoint base URL")

	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(presentBenchCmd)
	rootCmd.AddCommand(versionCmd)
}

// client builds an adminclient.Client bound to the --admin flag.
func client() *adminclient.Client {
	return adminclient.New(adminAddr)
}
