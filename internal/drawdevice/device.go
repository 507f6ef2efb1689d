// Package drawdevice implements the device facade: the read/write/mmap/poll
// entry points that route to a session's protocol engine. Since a real
// character device node under /dev is not reachable from user-space Go, the
// facade is realized as a Unix domain socket server — each accepted
// connection is exactly one "open of the device" and gets its own
// independent Session, mirroring the adapter accept-loop pattern used
// elsewhere in this codebase.
package drawdevice

import (
	"context"
	"fmt"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/drawfs/drawfs/internal/logger"
	"github.com/drawfs/drawfs/internal/protocol/draw/registry"
	"github.com/drawfs/drawfs/internal/protocol/draw/session"
	"github.com/drawfs/drawfs/pkg/metrics"
)

// metricsReportInterval is how often a live session's counters are sampled
// and reported as deltas to SessionMetrics.
const metricsReportInterval = 2 * time.Second

// Config configures a Device.
type Config struct {
	// SocketPath is the filesystem path of the Unix domain socket to
	// listen on. Any existing socket file at this path is removed first.
	SocketPath string

	// ReadBufferSize bounds how much is read from a connection per Read
	// call before being handed to the session for framing.
	ReadBufferSize int

	// ShutdownTimeout bounds how long Shutdown waits for in-flight
	// connections to close on their own before returning.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns reasonable defaults for local development.
func DefaultConfig() Config {
	return Config{
		SocketPath:      "/tmp/drawfs.sock",
		ReadBufferSize:  4096,
		ShutdownTimeout: 5 * time.Second,
	}
}

// Device is the DrawFS device facade: a Unix domain socket server handing
// each connection its own Session.
type Device struct {
	cfg        Config
	reg        *registry.Registry
	sessionCfg session.Config
	metrics    metrics.SessionMetrics

	listener *net.UnixListener

	nextSessionID atomic.Uint64

	mu       sync.Mutex
	sessions map[uint64]*sessionHandle

	activeConns  sync.WaitGroup
	shutdown     chan struct{}
	shutdownOnce sync.Once
}

// sessionHandle pairs a live session with the connection that owns it, so
// shutdown can actively drain both: closing the session wakes any reader
// blocked on its OutQueue with EOF, and closing the connection unblocks
// the goroutine waiting in conn.Read.
type sessionHandle struct {
	sess *session.Session
	conn *net.UnixConn
}

// New creates a Device bound to reg (the display registry) and sessionCfg
// (per-session resource limits). m may be nil, in which case metrics
// collection is disabled. Call Serve to start accepting connections.
func New(cfg Config, reg *registry.Registry, sessionCfg session.Config, m metrics.SessionMetrics) *Device {
	if m == nil {
		m = metrics.Noop()
	}
	return &Device{
		cfg:        cfg,
		reg:        reg,
		sessionCfg: sessionCfg,
		metrics:    m,
		sessions:   make(map[uint64]*sessionHandle),
		shutdown:   make(chan struct{}),
	}
}

// Serve listens on the configured Unix domain socket and accepts
// connections until ctx is cancelled or Shutdown is called. It blocks and
// returns nil on graceful shutdown.
func (d *Device) Serve(ctx context.Context) error {
	addr, err := net.ResolveUnixAddr("unix", d.cfg.SocketPath)
	if err != nil {
		return fmt.Errorf("drawdevice: resolve socket address: %w", err)
	}

	if fi, err := os.Lstat(d.cfg.SocketPath); err == nil && fi.Mode()&os.ModeSocket != 0 {
		if err := os.Remove(d.cfg.SocketPath); err != nil {
			return fmt.Errorf("drawdevice: remove existing socket %s: %w", d.cfg.SocketPath, err)
		}
	}

	listener, err := net.ListenUnix("unix", addr)
	if err != nil {
		return fmt.Errorf("drawdevice: listen on %s: %w", d.cfg.SocketPath, err)
	}
	d.listener = listener

	logger.Info("drawdevice listening", "socket", d.cfg.SocketPath)

	go func() {
		<-ctx.Done()
		d.initiateShutdown()
	}()

	for {
		conn, err := listener.AcceptUnix()
		if err != nil {
			select {
			case <-d.shutdown:
				return d.waitForDrain()
			default:
				logger.Warn("drawdevice accept error", logger.Err(err))
				continue
			}
		}

		d.activeConns.Add(1)
		go func() {
			defer d.activeConns.Done()
			d.handleConn(conn)
		}()
	}
}

func (d *Device) handleConn(conn *net.UnixConn) {
	id := d.nextSessionID.Add(1)
	sess := session.New(id, d.reg, d.sessionCfg)

	d.mu.Lock()
	d.sessions[id] = &sessionHandle{sess: sess, conn: conn}
	d.mu.Unlock()

	d.metrics.RecordSessionOpened()
	defer func() {
		d.mu.Lock()
		delete(d.sessions, id)
		d.mu.Unlock()
		sess.Close()
		conn.Close()
		d.metrics.RecordSessionClosed()
	}()

	logger.Info("session opened", logger.SessionID(id))

	stopMetrics := make(chan struct{})
	go d.reportMetrics(sess, id, stopMetrics)
	defer close(stopMetrics)

	c := &connHandler{conn: conn, sess: sess, readBufSize: d.cfg.ReadBufferSize}
	defer c.releaseMappings()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.writerLoop()
	}()

	c.readerLoop()
	wg.Wait()

	logger.Info("session closed", logger.SessionID(id))
}

// reportMetrics samples sess's counters on a fixed interval and reports the
// deltas since the last sample, until stop is closed. A final sample is
// taken right before returning so the last partial interval isn't lost.
func (d *Device) reportMetrics(sess *session.Session, id uint64, stop <-chan struct{}) {
	ticker := time.NewTicker(metricsReportInterval)
	defer ticker.Stop()

	var last session.Stats
	sample := func() {
		st := sess.Stats()
		d.metrics.RecordFrames(st.FramesProcessed-last.FramesProcessed, st.FramesInvalid-last.FramesInvalid)
		d.metrics.RecordMessages(st.MessagesProcessed-last.MessagesProcessed, st.MessagesUnsupported-last.MessagesUnsupported)
		d.metrics.RecordEvents(st.EventsEnqueued-last.EventsEnqueued, st.EventsDropped-last.EventsDropped)
		d.metrics.RecordBytes(st.BytesIn-last.BytesIn, st.BytesOut-last.BytesOut)
		d.metrics.SetOutqDepth(id, st.OutqDepth)
		last = st
	}

	for {
		select {
		case <-stop:
			sample()
			return
		case <-ticker.C:
			sample()
		}
	}
}

// Session looks up a live session by id, for introspection by callers that
// hold a reference to the Device directly (in-process admin tooling, tests).
func (d *Device) Session(id uint64) (*session.Session, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	h, ok := d.sessions[id]
	if !ok {
		return nil, false
	}
	return h.sess, true
}

// SessionIDs returns the ids of every currently open session.
func (d *Device) SessionIDs() []uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	ids := make([]uint64, 0, len(d.sessions))
	for id := range d.sessions {
		ids = append(ids, id)
	}
	return ids
}

// initiateShutdown stops accepting and actively drains every open session:
// closing a session closes its OutQueue, waking any reader blocked on it
// with EOF, and closing its connection unblocks the goroutine in conn.Read,
// so even an idle-but-open connection winds down promptly instead of
// lingering until the drain timeout.
func (d *Device) initiateShutdown() {
	d.shutdownOnce.Do(func() {
		logger.Info("drawdevice shutdown initiated")
		close(d.shutdown)
		if d.listener != nil {
			d.listener.Close()
		}

		d.mu.Lock()
		handles := make([]*sessionHandle, 0, len(d.sessions))
		for _, h := range d.sessions {
			handles = append(handles, h)
		}
		d.mu.Unlock()

		for _, h := range handles {
			h.sess.Close()
			h.conn.Close()
		}
	})
}

func (d *Device) waitForDrain() error {
	done := make(chan struct{})
	go func() {
		d.activeConns.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(d.cfg.ShutdownTimeout):
		return fmt.Errorf("drawdevice: shutdown timed out after %s waiting for sessions to drain", d.cfg.ShutdownTimeout)
	}
}

// Shutdown requests a graceful stop: no new connections are accepted and
// Serve returns once every in-flight session closes or the configured
// timeout elapses.
func (d *Device) Shutdown() error {
	d.initiateShutdown()
	return d.waitForDrain()
}
