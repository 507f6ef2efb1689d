package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/drawfs/drawfs/internal/adminclient"
	"github.com/drawfs/drawfs/internal/cli/output"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List sessions currently open on the daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		sessions, err := client().ListSessions()
		if err != nil {
			return err
		}

		output.PrintTable(os.Stdout, sessionTable(sessions))
		fmt.Printf("\n%d session(s)\n", len(sessions))
		return nil
	},
}

type sessionTable []adminclient.Session

func (t sessionTable) Headers() []string { return []string{"ID", "STATE"} }

func (t sessionTable) Rows() [][]string {
	rows := make([][]string, len(t))
	for i, s := range t {
		rows[i] = []string{fmt.Sprintf("%d", s.ID), s.State}
	}
	return rows
}
