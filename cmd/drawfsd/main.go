// Command drawfsd hosts the DrawFS device facade: it listens on a Unix
// domain socket, hands each accepted connection its own protocol session,
// and serves the optional metrics and admin HTTP endpoints alongside it.
package main

import (
	"fmt"
	"os"

	"github.com/drawfs/drawfs/cmd/drawfsd/commands"
)

// Build-time variables injected via ldflags.
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
