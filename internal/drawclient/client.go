// Package drawclient is a minimal DrawFS protocol client used by
// drawfsctl's present-bench load generator. It speaks the same framing the
// device facade's connection handler decodes, but only the request/reply
// subset a benchmarking client needs: HELLO, DISPLAY_OPEN, SURFACE_CREATE,
// and SURFACE_PRESENT.
package drawclient

import (
	"bufio"
	"fmt"
	"net"
	"time"

	"github.com/drawfs/drawfs/internal/protocol/draw/wire"
)

// Client is one connection to a DrawFS socket, driving request/reply
// round trips synchronously.
type Client struct {
	conn    net.Conn
	r       *bufio.Reader
	nextID  uint32
	buf     []byte
	timeout time.Duration
}

// Dial connects to the DrawFS Unix domain socket at path.
func Dial(path string) (*Client, error) {
	conn, err := net.Dial("unix", path)
	if err != nil {
		return nil, fmt.Errorf("drawclient: dial %s: %w", path, err)
	}
	return &Client{
		conn:    conn,
		r:       bufio.NewReader(conn),
		timeout: 5 * time.Second,
	}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) nextMsgID() uint32 {
	c.nextID++
	return c.nextID
}

// roundTrip sends one single-message frame and waits for the matching
// reply frame, skipping over any asynchronous events that arrive first.
func (c *Client) roundTrip(reqType uint16, payload []byte) (wire.Message, error) {
	msgID := c.nextMsgID()
	frame := wire.EncodeSingleMessageFrame(msgID, reqType, msgID, payload)

	c.conn.SetDeadline(time.Now().Add(c.timeout))
	if _, err := c.conn.Write(frame); err != nil {
		return wire.Message{}, fmt.Errorf("drawclient: write: %w", err)
	}

	for {
		f, err := c.readFrame()
		if err != nil {
			return wire.Message{}, err
		}
		for _, m := range f.Messages {
			if m.Header.Type == wire.EvtSurfacePresented {
				continue
			}
			return m, nil
		}
	}
}

// readFrame reads exactly one frame from the connection, growing its
// internal buffer as needed to accumulate a complete frame.
func (c *Client) readFrame() (wire.Frame, error) {
	for {
		if len(c.buf) >= wire.FrameHeaderSize {
			f, n, err := wire.DecodeFrame(c.buf)
			if err == nil {
				c.buf = c.buf[n:]
				return f, nil
			}
			if err != wire.ErrNeedMore {
				return wire.Frame{}, fmt.Errorf("drawclient: decode frame: %w", err)
			}
		}

		chunk := make([]byte, 4096)
		n, err := c.r.Read(chunk)
		if n > 0 {
			c.buf = append(c.buf, chunk[:n]...)
		}
		if err != nil {
			return wire.Frame{}, fmt.Errorf("drawclient: read: %w", err)
		}
	}
}

// Hello performs version negotiation and returns the server's reply.
func (c *Client) Hello(major, minor uint16) (wire.HelloReply, error) {
	req := wire.HelloReq{Major: major, Minor: minor, MaxReply: 65536}
	m, err := c.roundTrip(wire.ReqHello, req.Encode())
	if err != nil {
		return wire.HelloReply{}, err
	}
	return wire.DecodeHelloReply(m.Payload)
}

// DisplayOpen binds the session to a display.
func (c *Client) DisplayOpen(displayID uint32) (wire.DisplayOpenReply, error) {
	req := wire.DisplayOpenReq{DisplayID: displayID}
	m, err := c.roundTrip(wire.ReqDisplayOpen, req.Encode())
	if err != nil {
		return wire.DisplayOpenReply{}, err
	}
	return wire.DecodeDisplayOpenReply(m.Payload)
}

// SurfaceCreate allocates a surface and returns its descriptor.
func (c *Client) SurfaceCreate(width, height, format uint32) (wire.SurfaceCreateReply, error) {
	req := wire.SurfaceCreateReq{Width: width, Height: height, Format: format}
	m, err := c.roundTrip(wire.ReqSurfaceCreate, req.Encode())
	if err != nil {
		return wire.SurfaceCreateReply{}, err
	}
	return wire.DecodeSurfaceCreateReply(m.Payload)
}

// SurfacePresent submits a present for sid, carrying cookie back in the reply.
func (c *Client) SurfacePresent(sid uint32, cookie uint64) (wire.SurfacePresentReply, error) {
	req := wire.SurfacePresentReq{SID: sid, Cookie: cookie}
	m, err := c.roundTrip(wire.ReqSurfacePresent, req.Encode())
	if err != nil {
		return wire.SurfacePresentReply{}, err
	}
	return wire.DecodeSurfacePresentReply(m.Payload)
}
