package session

import (
	"testing"

	"github.com/drawfs/drawfs/internal/protocol/draw/protoerr"
	"github.com/drawfs/drawfs/internal/protocol/draw/registry"
	"github.com/drawfs/drawfs/internal/protocol/draw/wire"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	return New(1, registry.Default(), DefaultConfig())
}

// send encodes one message into its own frame and feeds it to the session,
// failing the test if Write itself errors.
func send(t *testing.T, s *Session, msgType uint16, msgID uint32, payload []byte) {
	t.Helper()
	frame := wire.EncodeSingleMessageFrame(msgID, msgType, msgID, payload)
	if _, err := s.Write(frame); err != nil {
		t.Fatalf("Write: %v", err)
	}
}

// recv reads the next queued outbound frame and decodes its single message.
func recv(t *testing.T, s *Session) wire.Message {
	t.Helper()
	raw, err := s.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	f, _, err := wire.DecodeFrame(raw)
	if err != nil {
		t.Fatalf("DecodeFrame on outbound frame: %v", err)
	}
	if len(f.Messages) != 1 {
		t.Fatalf("outbound frame has %d messages, want 1", len(f.Messages))
	}
	return f.Messages[0]
}

func hello(t *testing.T, s *Session) wire.HelloReply {
	t.Helper()
	req := wire.HelloReq{Major: 1, Minor: 0, MaxReply: 65536}
	send(t, s, wire.ReqHello, 1, req.Encode())
	m := recv(t, s)
	if m.Header.Type != wire.RplHello {
		t.Fatalf("reply type = %#x, want RplHello", m.Header.Type)
	}
	reply, err := wire.DecodeHelloReply(m.Payload)
	if err != nil {
		t.Fatalf("DecodeHelloReply: %v", err)
	}
	return reply
}

func TestSession_HelloNegotiation(t *testing.T) {
	s := newTestSession(t)

	reply := hello(t, s)
	if reply.Status != protoerr.OK {
		t.Fatalf("HELLO status = %d, want OK", reply.Status)
	}
	if s.State() != Negotiated {
		t.Fatalf("state after HELLO = %v, want Negotiated", s.State())
	}
}

func TestSession_SurfaceCreateBeforeDisplayOpen(t *testing.T) {
	s := newTestSession(t)
	hello(t, s)

	req := wire.SurfaceCreateReq{Width: 320, Height: 240, Format: wire.FormatXRGB8888}
	send(t, s, wire.ReqSurfaceCreate, 2, req.Encode())

	m := recv(t, s)
	reply, err := wire.DecodeSurfaceCreateReply(m.Payload)
	if err != nil {
		t.Fatalf("DecodeSurfaceCreateReply: %v", err)
	}
	if reply.Status != protoerr.EINVAL {
		t.Fatalf("SURFACE_CREATE before DISPLAY_OPEN: status = %d, want EINVAL", reply.Status)
	}
}

func TestSession_DisplayOpenThenSurfaceCreate(t *testing.T) {
	s := newTestSession(t)
	hello(t, s)

	openReq := wire.DisplayOpenReq{DisplayID: 1}
	send(t, s, wire.ReqDisplayOpen, 2, openReq.Encode())
	openMsg := recv(t, s)
	openReply, err := wire.DecodeDisplayOpenReply(openMsg.Payload)
	if err != nil {
		t.Fatalf("DecodeDisplayOpenReply: %v", err)
	}
	if openReply.Status != protoerr.OK || openReply.ActiveID != 1 {
		t.Fatalf("DISPLAY_OPEN reply = %+v, want status=OK active_id=1", openReply)
	}
	if s.State() != DisplayBound {
		t.Fatalf("state after DISPLAY_OPEN = %v, want DisplayBound", s.State())
	}

	createReq := wire.SurfaceCreateReq{Width: 320, Height: 240, Format: wire.FormatXRGB8888}
	send(t, s, wire.ReqSurfaceCreate, 3, createReq.Encode())
	createMsg := recv(t, s)
	createReply, err := wire.DecodeSurfaceCreateReply(createMsg.Payload)
	if err != nil {
		t.Fatalf("DecodeSurfaceCreateReply: %v", err)
	}
	if createReply.Status != protoerr.OK {
		t.Fatalf("SURFACE_CREATE status = %d, want OK", createReply.Status)
	}
	if createReply.SID != 1 {
		t.Fatalf("SURFACE_CREATE sid = %d, want 1", createReply.SID)
	}
	if createReply.Stride != 1280 {
		t.Fatalf("SURFACE_CREATE stride = %d, want 1280", createReply.Stride)
	}
	if createReply.Total != 307200 {
		t.Fatalf("SURFACE_CREATE total = %d, want 307200", createReply.Total)
	}
	if s.State() != Active {
		t.Fatalf("state after SURFACE_CREATE = %v, want Active", s.State())
	}
}

func TestSession_SurfaceCreateUnsupportedFormat(t *testing.T) {
	s := newTestSession(t)
	hello(t, s)
	send(t, s, wire.ReqDisplayOpen, 2, wire.DisplayOpenReq{DisplayID: 1}.Encode())
	recv(t, s)

	req := wire.SurfaceCreateReq{Width: 64, Height: 64, Format: 999}
	send(t, s, wire.ReqSurfaceCreate, 3, req.Encode())
	m := recv(t, s)
	reply, err := wire.DecodeSurfaceCreateReply(m.Payload)
	if err != nil {
		t.Fatalf("DecodeSurfaceCreateReply: %v", err)
	}
	if reply.Status != protoerr.EPROTONOSUPPORT {
		t.Fatalf("status = %d, want EPROTONOSUPPORT", reply.Status)
	}
}

func TestSession_SurfaceCreateTooLarge(t *testing.T) {
	s := newTestSession(t)
	hello(t, s)
	send(t, s, wire.ReqDisplayOpen, 2, wire.DisplayOpenReq{DisplayID: 1}.Encode())
	recv(t, s)

	req := wire.SurfaceCreateReq{Width: 4096, Height: 4097, Format: wire.FormatXRGB8888}
	send(t, s, wire.ReqSurfaceCreate, 3, req.Encode())
	m := recv(t, s)
	reply, err := wire.DecodeSurfaceCreateReply(m.Payload)
	if err != nil {
		t.Fatalf("DecodeSurfaceCreateReply: %v", err)
	}
	if reply.Status != protoerr.EFBIG {
		t.Fatalf("status = %d, want EFBIG", reply.Status)
	}
}

func TestSession_TwoSessionsIsolateSurfaceIDsAndCookies(t *testing.T) {
	s1 := New(1, registry.Default(), DefaultConfig())
	s2 := New(2, registry.Default(), DefaultConfig())

	for _, s := range []*Session{s1, s2} {
		hello(t, s)
		send(t, s, wire.ReqDisplayOpen, 2, wire.DisplayOpenReq{DisplayID: 1}.Encode())
		recv(t, s)
		send(t, s, wire.ReqSurfaceCreate, 3, wire.SurfaceCreateReq{Width: 4, Height: 4, Format: wire.FormatXRGB8888}.Encode())
	}

	m1 := recv(t, s1)
	r1, err := wire.DecodeSurfaceCreateReply(m1.Payload)
	if err != nil {
		t.Fatalf("DecodeSurfaceCreateReply: %v", err)
	}
	m2 := recv(t, s2)
	r2, err := wire.DecodeSurfaceCreateReply(m2.Payload)
	if err != nil {
		t.Fatalf("DecodeSurfaceCreateReply: %v", err)
	}
	if r1.SID != 1 || r2.SID != 1 {
		t.Fatalf("each session's surface ids must start at 1 independently: s1=%d s2=%d", r1.SID, r2.SID)
	}

	send(t, s1, wire.ReqSurfacePresent, 4, wire.SurfacePresentReq{SID: 1, Cookie: 111}.Encode())
	send(t, s2, wire.ReqSurfacePresent, 4, wire.SurfacePresentReq{SID: 1, Cookie: 222}.Encode())

	p1 := recv(t, s1)
	present1, err := wire.DecodeSurfacePresentReply(p1.Payload)
	if err != nil {
		t.Fatalf("DecodeSurfacePresentReply: %v", err)
	}
	if present1.Cookie != 111 {
		t.Fatalf("session 1 cookie = %d, want 111 (no cross-session leakage)", present1.Cookie)
	}

	p2 := recv(t, s2)
	present2, err := wire.DecodeSurfacePresentReply(p2.Payload)
	if err != nil {
		t.Fatalf("DecodeSurfacePresentReply: %v", err)
	}
	if present2.Cookie != 222 {
		t.Fatalf("session 2 cookie = %d, want 222 (no cross-session leakage)", present2.Cookie)
	}
}

func TestSession_SurfacePresentReplyThenEventOrdering(t *testing.T) {
	s := newTestSession(t)
	hello(t, s)
	send(t, s, wire.ReqDisplayOpen, 2, wire.DisplayOpenReq{DisplayID: 1}.Encode())
	recv(t, s)
	send(t, s, wire.ReqSurfaceCreate, 3, wire.SurfaceCreateReq{Width: 4, Height: 4, Format: wire.FormatXRGB8888}.Encode())
	recv(t, s)

	send(t, s, wire.ReqSurfacePresent, 4, wire.SurfacePresentReq{SID: 1, Cookie: 7}.Encode())

	reply := recv(t, s)
	if reply.Header.Type != wire.RplSurfacePresent {
		t.Fatalf("first frame after present = %s, want RPL_SURFACE_PRESENT", wire.MsgTypeName(reply.Header.Type))
	}
	event := recv(t, s)
	if event.Header.Type != wire.EvtSurfacePresented {
		t.Fatalf("second frame after present = %s, want EVT_SURFACE_PRESENTED", wire.MsgTypeName(event.Header.Type))
	}
}

func TestSession_PresentFloodTriggersENOSPCThenDrains(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxOutqDepth = 4
	cfg.MaxOutqBytes = 1 << 20
	s := New(1, registry.Default(), cfg)

	hello(t, s)
	send(t, s, wire.ReqDisplayOpen, 2, wire.DisplayOpenReq{DisplayID: 1}.Encode())
	recv(t, s)
	send(t, s, wire.ReqSurfaceCreate, 3, wire.SurfaceCreateReq{Width: 4, Height: 4, Format: wire.FormatXRGB8888}.Encode())
	recv(t, s)

	// Each accepted present enqueues a reply and (usually) an event; the
	// queue is tiny, so continuing to send without draining must surface
	// ENOSPC back to the client through the Write that triggered it.
	var gotNoSpace bool
	for i := 0; i < 5000 && !gotNoSpace; i++ {
		req := wire.SurfacePresentReq{SID: 1, Cookie: uint64(i)}
		frame := wire.EncodeSingleMessageFrame(uint32(i)+10, wire.ReqSurfacePresent, uint32(i)+10, req.Encode())
		if _, err := s.Write(frame); err != nil {
			if err != protoerr.ErrNoSpace {
				t.Fatalf("Write returned unexpected error: %v", err)
			}
			gotNoSpace = true
		}
	}
	if !gotNoSpace {
		t.Fatal("expected ENOSPC backpressure from a tiny outqueue under a present flood")
	}

	// Draining a few frames must allow forward progress again.
	recv(t, s)
	recv(t, s)

	req := wire.SurfacePresentReq{SID: 1, Cookie: 99999}
	frame := wire.EncodeSingleMessageFrame(99999, wire.ReqSurfacePresent, 99999, req.Encode())
	if _, err := s.Write(frame); err != nil {
		t.Fatalf("Write after draining should succeed, got: %v", err)
	}
}

// bindAndCreate brings a session to Active with one 320x240 surface.
func bindAndCreate(t *testing.T, s *Session) wire.SurfaceCreateReply {
	t.Helper()
	hello(t, s)
	send(t, s, wire.ReqDisplayOpen, 2, wire.DisplayOpenReq{DisplayID: 1}.Encode())
	recv(t, s)
	send(t, s, wire.ReqSurfaceCreate, 3, wire.SurfaceCreateReq{Width: 320, Height: 240, Format: wire.FormatXRGB8888}.Encode())
	m := recv(t, s)
	reply, err := wire.DecodeSurfaceCreateReply(m.Payload)
	if err != nil {
		t.Fatalf("DecodeSurfaceCreateReply: %v", err)
	}
	if reply.Status != protoerr.OK {
		t.Fatalf("SURFACE_CREATE status = %d, want OK", reply.Status)
	}
	return reply
}

func TestSession_SurfaceDestroyThenRepeatIsENOENT(t *testing.T) {
	s := newTestSession(t)
	created := bindAndCreate(t, s)

	send(t, s, wire.ReqSurfaceDestroy, 4, wire.SurfaceDestroyReq{SID: created.SID}.Encode())
	m := recv(t, s)
	reply, err := wire.DecodeSurfaceDestroyReply(m.Payload)
	if err != nil {
		t.Fatalf("DecodeSurfaceDestroyReply: %v", err)
	}
	if reply.Status != protoerr.OK || reply.SID != created.SID {
		t.Fatalf("first destroy reply = %+v, want status=OK sid=%d", reply, created.SID)
	}

	send(t, s, wire.ReqSurfaceDestroy, 5, wire.SurfaceDestroyReq{SID: created.SID}.Encode())
	m = recv(t, s)
	reply, err = wire.DecodeSurfaceDestroyReply(m.Payload)
	if err != nil {
		t.Fatalf("DecodeSurfaceDestroyReply: %v", err)
	}
	if reply.Status != protoerr.ENOENT {
		t.Fatalf("second destroy status = %d, want ENOENT", reply.Status)
	}
}

func TestSession_SurfaceDestroyZeroSID(t *testing.T) {
	s := newTestSession(t)
	bindAndCreate(t, s)

	send(t, s, wire.ReqSurfaceDestroy, 4, wire.SurfaceDestroyReq{SID: 0}.Encode())
	m := recv(t, s)
	reply, err := wire.DecodeSurfaceDestroyReply(m.Payload)
	if err != nil {
		t.Fatalf("DecodeSurfaceDestroyReply: %v", err)
	}
	if reply.Status != protoerr.EINVAL {
		t.Fatalf("destroy with sid=0 status = %d, want EINVAL", reply.Status)
	}
}

func TestSession_MapSurfaceArmsSelectorAndReportsGeometry(t *testing.T) {
	s := newTestSession(t)
	created := bindAndCreate(t, s)

	send(t, s, wire.ReqMapSurface, 4, wire.MapSurfaceReq{SID: created.SID}.Encode())
	m := recv(t, s)
	reply, err := wire.DecodeSurfaceCreateReply(m.Payload)
	if err != nil {
		t.Fatalf("decode MAP_SURFACE reply: %v", err)
	}
	if reply.Status != protoerr.OK {
		t.Fatalf("MAP_SURFACE status = %d, want OK", reply.Status)
	}
	if reply.Stride != 320*4 {
		t.Fatalf("MAP_SURFACE stride = %d, want %d", reply.Stride, 320*4)
	}
	if reply.Total != 320*4*240 {
		t.Fatalf("MAP_SURFACE total = %d, want %d", reply.Total, 320*4*240)
	}

	sid, armed := s.ArmedSurfaceID()
	if !armed || sid != created.SID {
		t.Fatalf("ArmedSurfaceID() = %d, %v, want %d, true", sid, armed, created.SID)
	}

	// Destroying the armed surface must disarm the selector so a stale id
	// is never resolved by a later mapping.
	send(t, s, wire.ReqSurfaceDestroy, 5, wire.SurfaceDestroyReq{SID: created.SID}.Encode())
	recv(t, s)
	if _, armed := s.ArmedSurfaceID(); armed {
		t.Fatal("MapSelector still armed after destroying the selected surface")
	}
}

func TestSession_MapSurfaceUnknownSID(t *testing.T) {
	s := newTestSession(t)
	bindAndCreate(t, s)

	send(t, s, wire.ReqMapSurface, 4, wire.MapSurfaceReq{SID: 42}.Encode())
	m := recv(t, s)
	reply, err := wire.DecodeSurfaceCreateReply(m.Payload)
	if err != nil {
		t.Fatalf("decode MAP_SURFACE reply: %v", err)
	}
	if reply.Status != protoerr.ENOENT {
		t.Fatalf("MAP_SURFACE unknown sid status = %d, want ENOENT", reply.Status)
	}
}

func TestSession_StatsCountersTrackTraffic(t *testing.T) {
	s := newTestSession(t)
	bindAndCreate(t, s)

	send(t, s, wire.ReqStats, 4, nil)
	m := recv(t, s)
	if m.Header.Type != wire.RplStats {
		t.Fatalf("reply type = %s, want RPL_STATS", wire.MsgTypeName(m.Header.Type))
	}
	stats, err := wire.DecodeStatsReply(m.Payload)
	if err != nil {
		t.Fatalf("DecodeStatsReply: %v", err)
	}
	if stats.FramesReceived != 4 {
		t.Fatalf("FramesReceived = %d, want 4", stats.FramesReceived)
	}
	if stats.MessagesProcessed != 3 {
		t.Fatalf("MessagesProcessed = %d, want 3 (STATS reply itself not yet counted at snapshot time)", stats.MessagesProcessed)
	}
	if stats.BytesIn == 0 || stats.BytesOut == 0 {
		t.Fatal("byte counters should be non-zero after traffic")
	}
}

func TestSession_UnsupportedMessageType(t *testing.T) {
	s := newTestSession(t)
	hello(t, s)

	send(t, s, 0xBEEF, 2, nil)
	m := recv(t, s)
	reply, err := wire.DecodeHelloReply(m.Payload)
	if err != nil {
		t.Fatalf("DecodeHelloReply: %v", err)
	}
	if reply.Status != protoerr.EINVAL {
		t.Fatalf("unsupported message status = %d, want EINVAL", reply.Status)
	}
	if s.Stats().MessagesUnsupported != 1 {
		t.Fatalf("MessagesUnsupported = %d, want 1", s.Stats().MessagesUnsupported)
	}
}

func TestSession_CloseDrainsAndWakesReaders(t *testing.T) {
	s := newTestSession(t)
	s.Close()

	if _, err := s.Read(); err == nil {
		t.Fatal("Read after Close should return an error (io.EOF)")
	}
}
