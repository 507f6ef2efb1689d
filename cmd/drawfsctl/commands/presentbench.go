package commands

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/spf13/cobra"

	"github.com/drawfs/drawfs/internal/drawclient"
	"github.com/drawfs/drawfs/internal/protocol/draw/protoerr"
	"github.com/drawfs/drawfs/internal/protocol/draw/wire"
)

var (
	benchSocket   string
	benchSessions int
	benchPresents int
	benchDisplay  uint32
)

var presentBenchCmd = &cobra.Command{
	Use:   "present-bench",
	Short: "Open N sessions against a DrawFS socket and issue SURFACE_PRESENT in a loop",
	Long: `present-bench dials the DrawFS socket directly (not the admin
endpoint), negotiates HELLO/DISPLAY_OPEN/SURFACE_CREATE on N concurrent
sessions, then issues SURFACE_PRESENT in a tight loop on each. Every
present is a synchronous round trip that waits for its reply before the
next is sent, so a session's outgoing queue holds only a few frames and
this load does not reach the queue's backpressure bounds.`,
	RunE: runPresentBench,
}

func init() {
	presentBenchCmd.Flags().StringVar(&benchSocket, "socket", "/run/drawfs/drawfs.sock", "DrawFS socket path")
	presentBenchCmd.Flags().IntVar(&benchSessions, "sessions", 4, "number of concurrent sessions")
	presentBenchCmd.Flags().IntVar(&benchPresents, "presents", 5000, "number of SURFACE_PRESENT calls per session")
	presentBenchCmd.Flags().Uint32Var(&benchDisplay, "display", 1, "display id to open")
}

type benchResult struct {
	session   int
	ok        int
	enospc    int
	otherErrs int
}

func runPresentBench(cmd *cobra.Command, args []string) error {
	var wg sync.WaitGroup
	results := make([]benchResult, benchSessions)
	var failures int32

	for i := 0; i < benchSessions; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			r, err := runBenchSession(idx)
			results[idx] = r
			if err != nil {
				atomic.AddInt32(&failures, 1)
				fmt.Printf("session %d: %v\n", idx, err)
			}
		}(i)
	}
	wg.Wait()

	var totalOK, totalENOSPC, totalOther int
	for _, r := range results {
		totalOK += r.ok
		totalENOSPC += r.enospc
		totalOther += r.otherErrs
	}
	fmt.Printf("\n%d sessions, %d presents each\n", benchSessions, benchPresents)
	fmt.Printf("ok=%d enospc=%d other_errors=%d\n", totalOK, totalENOSPC, totalOther)

	if failures > 0 {
		return fmt.Errorf("present-bench: %d session(s) failed to set up", failures)
	}
	return nil
}

func runBenchSession(idx int) (benchResult, error) {
	result := benchResult{session: idx}

	c, err := drawclient.Dial(benchSocket)
	if err != nil {
		return result, err
	}
	defer c.Close()

	hello, err := c.Hello(1, 0)
	if err != nil {
		return result, fmt.Errorf("hello: %w", err)
	}
	if hello.Status != 0 {
		return result, fmt.Errorf("hello: status %d", hello.Status)
	}

	open, err := c.DisplayOpen(benchDisplay)
	if err != nil {
		return result, fmt.Errorf("display_open: %w", err)
	}
	if open.Status != 0 {
		return result, fmt.Errorf("display_open: status %d", open.Status)
	}

	surf, err := c.SurfaceCreate(320, 240, wire.FormatXRGB8888)
	if err != nil {
		return result, fmt.Errorf("surface_create: %w", err)
	}
	if surf.Status != 0 {
		return result, fmt.Errorf("surface_create: status %d", surf.Status)
	}

	for i := 0; i < benchPresents; i++ {
		reply, err := c.SurfacePresent(surf.SID, uint64(i))
		if err != nil {
			result.otherErrs++
			continue
		}
		switch reply.Status {
		case protoerr.OK:
			result.ok++
		case protoerr.ENOSPC:
			result.enospc++
		default:
			result.otherErrs++
		}
	}

	return result, nil
}
