// Package session implements the per-session DrawFS protocol engine: the
// Fresh → Negotiated → DisplayBound → Active state machine, the message
// dispatcher, the inbound byte accumulator, and the counters exposed by the
// STATS control operation.
//
// A Session owns everything reachable under its single mutex: the codec
// inbound buffer, the SurfaceTable, the MapSelector, and the OutQueue. All
// control-path operations — Write, the MAP_SURFACE control op, Close — take
// this lock; Read blocks on the OutQueue's condition variable, which shares
// the same lock.
package session

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/drawfs/drawfs/internal/logger"
	"github.com/drawfs/drawfs/internal/protocol/draw/outqueue"
	"github.com/drawfs/drawfs/internal/protocol/draw/present"
	"github.com/drawfs/drawfs/internal/protocol/draw/protoerr"
	"github.com/drawfs/drawfs/internal/protocol/draw/registry"
	"github.com/drawfs/drawfs/internal/protocol/draw/surface"
	"github.com/drawfs/drawfs/internal/protocol/draw/wire"
)

// State is a session's position in the Fresh → Negotiated → DisplayBound →
// Active state machine.
type State int

const (
	Fresh State = iota
	Negotiated
	DisplayBound
	Active
)

func (s State) String() string {
	switch s {
	case Fresh:
		return "fresh"
	case Negotiated:
		return "negotiated"
	case DisplayBound:
		return "display_bound"
	case Active:
		return "active"
	default:
		return "unknown"
	}
}

// Config bounds a session's resources.
type Config struct {
	MaxSurfaces     int
	MaxSurfaceBytes uint64
	MaxOutqDepth    int
	MaxOutqBytes    int
	MaxInbufBytes   int
}

// DefaultConfig returns conservative per-session resource limits.
func DefaultConfig() Config {
	return Config{
		MaxSurfaces:     256,
		MaxSurfaceBytes: 64 * 1024 * 1024,
		MaxOutqDepth:    256,
		MaxOutqBytes:    256 * 1024,
		MaxInbufBytes:   64 * 1024,
	}
}

// Stats mirrors the counters exposed by the STATS control operation.
type Stats struct {
	FramesReceived      uint64
	FramesProcessed     uint64
	FramesInvalid       uint64
	MessagesProcessed   uint64
	MessagesUnsupported uint64
	EventsEnqueued      uint64
	EventsDropped       uint64
	BytesIn             uint64
	BytesOut            uint64
	OutqDepth           int
	InbufBytes          int
}

// Session is the state associated with one open of the device.
type Session struct {
	mu   sync.Mutex
	cond *sync.Cond

	id      uint64
	traceID string
	reg     *registry.Registry
	cfg     Config

	state        State
	boundDisplay uint32

	surfaces  *surface.Table
	mapSel    surface.MapSelector
	outq      *outqueue.OutQueue
	presenter present.Presenter

	inbuf    []byte
	frameSeq uint64
	stats    Stats
	closed   bool
}

// New creates a Session bound to id, configured with cfg and the given
// display registry. Sessions are independent: no surface id, event, or
// mmap selection crosses sessions.
func New(id uint64, reg *registry.Registry, cfg Config) *Session {
	s := &Session{
		id:      id,
		traceID: uuid.NewString(),
		reg:     reg,
		cfg:     cfg,
		surfaces: surface.NewTable(surface.Limits{
			MaxSurfaces:     cfg.MaxSurfaces,
			MaxSurfaceBytes: cfg.MaxSurfaceBytes,
		}),
	}
	s.cond = sync.NewCond(&s.mu)
	s.outq = outqueue.New(s.cond, cfg.MaxOutqDepth, cfg.MaxOutqBytes)
	return s
}

// ID returns the session's identifier.
func (s *Session) ID() uint64 { return s.id }

func (s *Session) logCtx(op string, msgID uint32) context.Context {
	lc := logger.NewLogContext(s.id).WithOp(op, msgID).WithDisplay(s.boundDisplay).WithTraceID(s.traceID)
	return logger.WithContext(context.Background(), lc)
}

func (s *Session) nextFrameID() uint32 {
	s.frameSeq++
	return uint32(s.frameSeq)
}

func (s *Session) isDisplayBound() bool {
	return s.state == DisplayBound || s.state == Active
}

// Write feeds raw bytes from the client into the session's inbound buffer,
// decodes whatever complete frames are now available, and dispatches each
// message in arrival order.
//
// It returns the number of bytes accepted (always len(p) unless the write
// is rejected outright) and an error if the write itself must fail: either
// because accepting p would overflow the inbound buffer bound (ENOSPC /
// EMSGSIZE), or because dispatching a message produced output that could
// not be queued due to OutQueue backpressure (ENOSPC) — that failure
// propagates to the client-visible write that triggered it, while frames
// already enqueued from earlier messages in the same call remain queued.
func (s *Session) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, io.EOF
	}
	if len(p) > s.cfg.MaxInbufBytes {
		return 0, protoerr.ErrMessageTooBig
	}
	if len(s.inbuf)+len(p) > s.cfg.MaxInbufBytes {
		return 0, protoerr.ErrNoSpace
	}

	s.inbuf = append(s.inbuf, p...)
	s.stats.BytesIn += uint64(len(p))

	for {
		frame, n, err := wire.DecodeFrame(s.inbuf)
		if errors.Is(err, wire.ErrNeedMore) {
			break
		}
		if err != nil {
			s.handleFramingError(err)
			break
		}

		s.inbuf = s.inbuf[n:]
		s.stats.FramesReceived++

		if dispatchErr := s.dispatchFrame(frame); dispatchErr != nil {
			return len(p), dispatchErr
		}
		s.stats.FramesProcessed++
	}

	return len(p), nil
}

// handleFramingError counts the failure and flushes the inbound buffer,
// since a session never resyncs mid-stream after a framing error. The one
// exception is a bad version on the very first frame of a session, which is
// negotiation feedback rather than garbage and gets a reply.
func (s *Session) handleFramingError(err error) {
	s.stats.FramesInvalid++
	isFirstFrame := s.state == Fresh && s.stats.FramesReceived == 0
	if errors.Is(err, wire.ErrBadVersion) && isFirstFrame {
		reply := wire.HelloReply{Status: protoerr.EINVAL}.Encode()
		frame := wire.EncodeSingleMessageFrame(s.nextFrameID(), wire.RplHello, 0, reply)
		if s.outq.Enqueue(frame) {
			s.stats.BytesOut += uint64(len(frame))
		}
	}
	logger.WarnCtx(s.logCtx("FRAME_INVALID", 0), "rejected invalid frame", logger.Err(err))
	s.inbuf = s.inbuf[:0]
}

func (s *Session) dispatchFrame(f wire.Frame) error {
	for _, msg := range f.Messages {
		start := time.Now()
		err := s.handleMessage(msg)
		logger.DebugCtx(s.logCtx(wire.MsgTypeName(msg.Header.Type), msg.Header.MsgID), "handled message",
			logger.DurationMs(logger.Duration(start)), logger.Err(err))
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) handleMessage(msg wire.Message) error {
	switch msg.Header.Type {
	case wire.ReqHello:
		return s.handleHello(msg)
	case wire.ReqDisplayList:
		return s.handleDisplayList(msg)
	case wire.ReqDisplayOpen:
		return s.handleDisplayOpen(msg)
	case wire.ReqSurfaceCreate:
		return s.handleSurfaceCreate(msg)
	case wire.ReqSurfaceDestroy:
		return s.handleSurfaceDestroy(msg)
	case wire.ReqSurfacePresent:
		return s.handleSurfacePresent(msg)
	case wire.ReqMapSurface:
		return s.handleMapSurfaceControl(msg)
	case wire.ReqStats:
		return s.handleStats(msg)
	default:
		s.stats.MessagesUnsupported++
		logger.WarnCtx(s.logCtx("UNSUPPORTED", msg.Header.MsgID), "unsupported message type", logger.KeyMsgType, wire.MsgTypeName(msg.Header.Type))
		return s.enqueueReply(wire.RplHello, msg.Header.MsgID, wire.HelloReply{Status: protoerr.EINVAL}.Encode())
	}
}

// enqueueReply wraps payload in a single-message frame and enqueues it,
// returning protoerr.ErrNoSpace if the OutQueue is at capacity.
func (s *Session) enqueueReply(msgType uint16, msgID uint32, payload []byte) error {
	frame := wire.EncodeSingleMessageFrame(s.nextFrameID(), msgType, msgID, payload)
	if !s.outq.Enqueue(frame) {
		return protoerr.ErrNoSpace
	}
	s.stats.BytesOut += uint64(len(frame))
	s.stats.MessagesProcessed++
	return nil
}

func (s *Session) handleHello(msg wire.Message) error {
	if s.state != Fresh {
		return s.enqueueReply(wire.RplHello, msg.Header.MsgID, wire.HelloReply{Status: protoerr.EINVAL}.Encode())
	}
	req, err := wire.DecodeHelloReq(msg.Payload)
	if err != nil {
		return s.enqueueReply(wire.RplHello, msg.Header.MsgID, wire.HelloReply{Status: protoerr.EINVAL}.Encode())
	}
	s.state = Negotiated
	reply := wire.HelloReply{Status: protoerr.OK, Major: req.Major, Minor: req.Minor, Flags: req.Flags, MaxReply: req.MaxReply}
	return s.enqueueReply(wire.RplHello, msg.Header.MsgID, reply.Encode())
}

func (s *Session) handleDisplayList(msg wire.Message) error {
	if s.state == Fresh {
		return s.enqueueReply(wire.RplHello, msg.Header.MsgID, wire.HelloReply{Status: protoerr.EINVAL}.Encode())
	}
	return s.enqueueReply(wire.RplDisplayList, msg.Header.MsgID, s.reg.ListReply())
}

func (s *Session) handleDisplayOpen(msg wire.Message) error {
	if s.state == Fresh {
		return s.enqueueReply(wire.RplDisplayOpen, msg.Header.MsgID, wire.DisplayOpenReply{Status: protoerr.EINVAL}.Encode())
	}
	req, err := wire.DecodeDisplayOpenReq(msg.Payload)
	if err != nil {
		return s.enqueueReply(wire.RplDisplayOpen, msg.Header.MsgID, wire.DisplayOpenReply{Status: protoerr.EINVAL}.Encode())
	}
	disp, ok := s.reg.Get(req.DisplayID)
	if !ok {
		return s.enqueueReply(wire.RplDisplayOpen, msg.Header.MsgID, wire.DisplayOpenReply{Status: protoerr.ENOENT}.Encode())
	}
	s.boundDisplay = disp.ID
	if s.state == Negotiated {
		s.state = DisplayBound
	}
	reply := wire.DisplayOpenReply{Status: protoerr.OK, Handle: disp.ID, ActiveID: disp.ID}
	return s.enqueueReply(wire.RplDisplayOpen, msg.Header.MsgID, reply.Encode())
}

func (s *Session) handleSurfaceCreate(msg wire.Message) error {
	if !s.isDisplayBound() {
		return s.enqueueReply(wire.RplSurfaceCreate, msg.Header.MsgID, wire.SurfaceCreateReply{Status: protoerr.EINVAL}.Encode())
	}
	req, err := wire.DecodeSurfaceCreateReq(msg.Payload)
	if err != nil {
		return s.enqueueReply(wire.RplSurfaceCreate, msg.Header.MsgID, wire.SurfaceCreateReply{Status: protoerr.EINVAL}.Encode())
	}
	if req.Format != wire.FormatXRGB8888 {
		return s.enqueueReply(wire.RplSurfaceCreate, msg.Header.MsgID, wire.SurfaceCreateReply{Status: protoerr.EPROTONOSUPPORT}.Encode())
	}
	surf, err := s.surfaces.Create(req.Width, req.Height, req.Format, req.Flags)
	if err != nil {
		return s.enqueueReply(wire.RplSurfaceCreate, msg.Header.MsgID, wire.SurfaceCreateReply{Status: protoerr.Status(err)}.Encode())
	}
	s.state = Active
	return s.enqueueReply(wire.RplSurfaceCreate, msg.Header.MsgID, surface.CreateReply(surf).Encode())
}

func (s *Session) handleSurfaceDestroy(msg wire.Message) error {
	if !s.isDisplayBound() {
		return s.enqueueReply(wire.RplSurfaceDestroy, msg.Header.MsgID, wire.SurfaceDestroyReply{Status: protoerr.EINVAL}.Encode())
	}
	req, err := wire.DecodeSurfaceDestroyReq(msg.Payload)
	if err != nil {
		return s.enqueueReply(wire.RplSurfaceDestroy, msg.Header.MsgID, wire.SurfaceDestroyReply{Status: protoerr.EINVAL}.Encode())
	}
	if req.SID == 0 {
		return s.enqueueReply(wire.RplSurfaceDestroy, msg.Header.MsgID, wire.SurfaceDestroyReply{Status: protoerr.EINVAL, SID: req.SID}.Encode())
	}
	if destroyErr := s.surfaces.Destroy(req.SID); destroyErr != nil {
		return s.enqueueReply(wire.RplSurfaceDestroy, msg.Header.MsgID, wire.SurfaceDestroyReply{Status: protoerr.ENOENT, SID: req.SID}.Encode())
	}
	s.mapSel.ClearIfSelected(req.SID)
	return s.enqueueReply(wire.RplSurfaceDestroy, msg.Header.MsgID, wire.SurfaceDestroyReply{Status: protoerr.OK, SID: req.SID}.Encode())
}

func (s *Session) handleSurfacePresent(msg wire.Message) error {
	if !s.isDisplayBound() {
		return s.enqueueReply(wire.RplSurfacePresent, msg.Header.MsgID, wire.SurfacePresentReply{Status: protoerr.EINVAL}.Encode())
	}
	req, err := wire.DecodeSurfacePresentReq(msg.Payload)
	if err != nil {
		return s.enqueueReply(wire.RplSurfacePresent, msg.Header.MsgID, wire.SurfacePresentReply{Status: protoerr.EINVAL}.Encode())
	}
	if _, ok := s.surfaces.Get(req.SID); !ok {
		return s.enqueueReply(wire.RplSurfacePresent, msg.Header.MsgID, wire.SurfacePresentReply{Status: protoerr.ENOENT, SID: req.SID, Cookie: req.Cookie}.Encode())
	}

	replyFrame := wire.EncodeSingleMessageFrame(s.nextFrameID(), wire.RplSurfacePresent, msg.Header.MsgID, present.ReplyPayload(req.SID, req.Cookie))
	if !s.outq.Enqueue(replyFrame) {
		return protoerr.ErrNoSpace
	}
	s.stats.BytesOut += uint64(len(replyFrame))
	s.stats.MessagesProcessed++

	seq := s.presenter.NextSeq()
	eventFrame := wire.EncodeSingleMessageFrame(s.nextFrameID(), wire.EvtSurfacePresented, uint32(seq), present.EventPayload(req.SID, req.Cookie))
	if s.outq.EnqueueEvent(eventFrame) {
		s.stats.EventsEnqueued++
		s.stats.BytesOut += uint64(len(eventFrame))
	} else {
		s.stats.EventsDropped++
	}
	return nil
}

// handleMapSurfaceControl implements the MAP_SURFACE control operation as a
// message multiplexed onto the same connection as the framed data path,
// since a Unix domain socket has no ioctl-equivalent side channel. On
// success it arms the MapSelector for the device facade's next mmap
// handoff.
func (s *Session) handleMapSurfaceControl(msg wire.Message) error {
	req, err := wire.DecodeMapSurfaceReq(msg.Payload)
	if err != nil {
		return s.enqueueReply(wire.RplMapSurface, msg.Header.MsgID, wire.SurfaceCreateReply{Status: protoerr.EINVAL}.Encode())
	}
	surf, ok := s.surfaces.Get(req.SID)
	if !ok {
		return s.enqueueReply(wire.RplMapSurface, msg.Header.MsgID, wire.SurfaceCreateReply{Status: protoerr.ENOENT, SID: req.SID}.Encode())
	}
	s.mapSel.Arm(req.SID)
	reply := wire.SurfaceCreateReply{Status: protoerr.OK, SID: req.SID, Stride: surf.Stride, Total: surf.Total}
	return s.enqueueReply(wire.RplMapSurface, msg.Header.MsgID, reply.Encode())
}

// handleStats implements the STATS control operation.
func (s *Session) handleStats(msg wire.Message) error {
	st := s.snapshotStatsLocked()
	reply := wire.StatsReply{
		FramesReceived:      st.FramesReceived,
		FramesProcessed:     st.FramesProcessed,
		FramesInvalid:       st.FramesInvalid,
		MessagesProcessed:   st.MessagesProcessed,
		MessagesUnsupported: st.MessagesUnsupported,
		EventsEnqueued:      st.EventsEnqueued,
		EventsDropped:       st.EventsDropped,
		BytesIn:             st.BytesIn,
		BytesOut:            st.BytesOut,
		OutqDepth:           uint32(st.OutqDepth),
		InbufBytes:          uint32(st.InbufBytes),
	}
	return s.enqueueReply(wire.RplStats, msg.Header.MsgID, reply.Encode())
}

// Read blocks until a frame is available or the session is closed, then
// returns exactly one fully-formed frame — readers see whole frames, never
// a partial one.
func (s *Session) Read() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.outq.Wait()
	frame, ok := s.outq.Dequeue()
	if !ok {
		return nil, io.EOF
	}
	return frame, nil
}

// Readable reports whether a read would return immediately (poll readiness).
func (s *Session) Readable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outq.Depth() > 0
}

// WaitDrain blocks until the OutQueue has room for another frame or the
// session closes. The device facade's reader loop calls this after a Write
// returns protoerr.ErrNoSpace, so that pulling more bytes off the socket
// pauses until the writer loop has drained enough queued output to make
// room again — backpressure applied at the socket boundary rather than a
// reason to tear the connection down.
func (s *Session) WaitDrain() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for !s.closed && (s.outq.Depth() >= s.cfg.MaxOutqDepth || s.outq.Bytes() >= s.cfg.MaxOutqBytes) {
		s.cond.Wait()
	}
}

// ResolveArmedSurface consults the MapSelector to find which surface the
// device facade's mmap entry point should bind to. It acquires an extra
// reference on the pixel region on behalf of the new mapping; the caller
// must Unref it on unmap.
func (s *Session) ResolveArmedSurface() (*surface.Surface, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sid, armed := s.mapSel.Selected()
	if !armed {
		return nil, false
	}
	surf, ok := s.surfaces.Get(sid)
	if !ok {
		return nil, false
	}
	surf.Pixels.Ref()
	return surf, true
}

// Stats returns a snapshot of this session's counters.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotStatsLocked()
}

// snapshotStatsLocked assumes the caller already holds s.mu.
func (s *Session) snapshotStatsLocked() Stats {
	st := s.stats
	st.OutqDepth = s.outq.Depth()
	st.InbufBytes = len(s.inbuf)
	return st
}

// ArmedSurfaceID reports the MapSelector's currently armed surface id, if
// any, without acquiring a reference on its pixel memory. The device
// facade uses this to detect that a MAP_SURFACE control message just armed
// a new surface and a mapping handoff is due.
func (s *Session) ArmedSurfaceID() (uint32, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mapSel.Selected()
}

// State returns the session's current state machine position.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Close drains the OutQueue, frees every surface's pixel buffer, and clears
// the MapSelector. Any reader blocked in Read wakes with io.EOF. Close is
// idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for _, id := range s.surfaces.IDs() {
		_ = s.surfaces.Destroy(id)
	}
	s.mapSel.Clear()
	s.outq.Close()
}
