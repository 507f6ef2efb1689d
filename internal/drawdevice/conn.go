package drawdevice

import (
	"fmt"
	"errors"
	"io"
	"net"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/drawfs/drawfs/internal/logger"
	"github.com/drawfs/drawfs/internal/protocol/draw/protoerr"
	"github.com/drawfs/drawfs/internal/protocol/draw/session"
	"github.com/drawfs/drawfs/internal/protocol/draw/surface"
)

// connHandler pairs one accepted connection with its Session and serializes
// every write onto that connection, since both the reply/event writer loop
// and the mmap fd handoff use the same underlying socket.
type connHandler struct {
	conn        *net.UnixConn
	sess        *session.Session
	readBufSize int

	writeMu sync.Mutex

	mappingsMu sync.Mutex
	mappings   []*surface.PixelRegion
}

// readerLoop feeds bytes from the connection into the session and reacts to
// a freshly armed MAP_SURFACE selection by handing off a memfd mapping.
//
// A Write that fails with protoerr.ErrNoSpace is recoverable backpressure,
// not a reason to tear the connection down: the loop stops pulling further
// bytes off the socket and waits for the writer loop to drain queued output,
// then resumes processing the bytes already buffered in the session before
// reading anything new.
func (c *connHandler) readerLoop() {
	buf := make([]byte, c.readBufSize)
	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			if !c.feed(chunk) {
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logger.Debug("connection read error", logger.SessionID(c.sess.ID()), logger.Err(err))
			}
			return
		}
	}
}

// feed hands chunk to the session, applying ENOSPC backpressure by waiting
// for the OutQueue to drain and re-submitting the still-buffered remainder
// (via a nil write) instead of closing the connection. It reports whether
// the connection should stay open.
func (c *connHandler) feed(chunk []byte) bool {
	for {
		armedBefore, hadBefore := c.sess.ArmedSurfaceID()

		_, werr := c.sess.Write(chunk)
		if werr == nil {
			armedAfter, hadAfter := c.sess.ArmedSurfaceID()
			if hadAfter && (!hadBefore || armedAfter != armedBefore) {
				c.deliverMmap(armedAfter)
			}
			return true
		}

		if errors.Is(werr, io.EOF) {
			return false
		}
		if !errors.Is(werr, protoerr.ErrNoSpace) {
			logger.Warn("session write rejected, closing connection", logger.SessionID(c.sess.ID()), logger.Err(werr))
			return false
		}

		logger.Debug("session backpressured, pausing reads", logger.SessionID(c.sess.ID()))
		c.sess.WaitDrain()
		chunk = nil // the prior chunk is already buffered; only retry the decode
	}
}

// writerLoop drains the session's OutQueue and writes each frame whole.
func (c *connHandler) writerLoop() {
	for {
		frame, err := c.sess.Read()
		if err != nil {
			return
		}
		if err := c.writeFrame(frame); err != nil {
			logger.Debug("connection write error", logger.SessionID(c.sess.ID()), logger.Err(err))
			return
		}
	}
}

func (c *connHandler) writeFrame(frame []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err := c.conn.Write(frame)
	return err
}

// deliverMmap dups the armed surface's memfd and passes the new descriptor
// to the client as ancillary SCM_RIGHTS data — the Unix-socket substitute
// for a literal mmap() syscall on a device node. The surface's pixel buffer
// was mmap'd MAP_SHARED once, at creation; the dup'd fd the client receives
// maps the identical physical pages the server itself writes through, so
// the mapping is live: writes on either side are immediately visible to the
// other, and concurrent mappings of the same surface share one buffer.
func (c *connHandler) deliverMmap(sid uint32) {
	logger.Warn("DEBUG deliverMmap called", logger.SurfaceID(sid))
	surf, ok := c.sess.ResolveArmedSurface()
	if !ok {
		return
	}

	fd, err := surf.Pixels.DupFD()
	if err != nil {
		surf.Pixels.Unref()
		logger.Warn("mmap handoff failed", logger.SessionID(c.sess.ID()), logger.SurfaceID(sid), logger.Err(err))
		return
	}

	logger.Warn("DEBUG dupfd value", logger.SurfaceID(sid))
	fmt.Println("DEBUG fd=", fd, "rights bytes=", unix.UnixRights(fd))
	c.writeMu.Lock()
	_, _, sendErr := c.conn.WriteMsgUnix([]byte{1}, unix.UnixRights(fd), nil)
	c.writeMu.Unlock()
	unix.Close(fd)

	if sendErr != nil {
		surf.Pixels.Unref()
		logger.Warn("mmap fd handoff write failed", logger.SessionID(c.sess.ID()), logger.SurfaceID(sid), logger.Err(sendErr))
		return
	}

	c.mappingsMu.Lock()
	c.mappings = append(c.mappings, surf.Pixels)
	c.mappingsMu.Unlock()
}

// releaseMappings drops every reference this connection acquired on behalf
// of a client mmap, run once when the connection closes. This is the
// closest a socket-based stand-in gets to an explicit munmap(): there is no
// client-initiated unmap signal, so a mapping is considered live for the
// lifetime of the connection that requested it.
func (c *connHandler) releaseMappings() {
	c.mappingsMu.Lock()
	defer c.mappingsMu.Unlock()
	for _, r := range c.mappings {
		r.Unref()
	}
	c.mappings = nil
}
