// Command drawfsctl is the drawfsd operator CLI: it inspects live sessions
// through the admin endpoint and can drive a small present-bench load
// generator against a running daemon.
package main

import (
	"fmt"
	"os"

	"github.com/drawfs/drawfs/cmd/drawfsctl/commands"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.Version = version
	commands.Commit = commit
	commands.Date = date

	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
