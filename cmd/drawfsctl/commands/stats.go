package commands

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/drawfs/drawfs/internal/cli/output"
)

var statsCmd = &cobra.Command{
	Use:   "stats <session-id>",
	Short: "Show STATS counters for one session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid session id %q: %w", args[0], err)
		}

		stats, err := client().SessionStats(id)
		if err != nil {
			return err
		}

		output.SimpleTable(os.Stdout, [][2]string{
			{"frames_received", fmt.Sprintf("%d", stats.FramesReceived)},
			{"frames_processed", fmt.Sprintf("%d", stats.FramesProcessed)},
			{"frames_invalid", fmt.Sprintf("%d", stats.FramesInvalid)},
			{"messages_processed", fmt.Sprintf("%d", stats.MessagesProcessed)},
			{"messages_unsupported", fmt.Sprintf("%d", stats.MessagesUnsupported)},
			{"events_enqueued", fmt.Sprintf("%d", stats.EventsEnqueued)},
			{"events_dropped", fmt.Sprintf("%d", stats.EventsDropped)},
			{"bytes_in", fmt.Sprintf("%d", stats.BytesIn)},
			{"bytes_out", fmt.Sprintf("%d", stats.BytesOut)},
			{"outq_depth", fmt.Sprintf("%d", stats.OutqDepth)},
			{"inbuf_bytes", fmt.Sprintf("%d", stats.InbufBytes)},
		})
		return nil
	},
}
