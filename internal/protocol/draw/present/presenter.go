// Package present implements the Presenter: building the reply-then-event
// pair for a successful SURFACE_PRESENT, with a monotonically increasing
// per-session sequence number exposed as the event's msg_id and the
// client's cookie echoed in both frames.
//
// The Presenter takes no snapshot of pixels; its only guarantee is
// reply-before-event ordering and cookie integrity, as the session enqueues
// both frames into the OutQueue back to back while holding the session
// mutex.
package present

import (
	"github.com/drawfs/drawfs/internal/protocol/draw/protoerr"
	"github.com/drawfs/drawfs/internal/protocol/draw/wire"
)

// Presenter assigns event sequence numbers for one session.
type Presenter struct {
	seq uint64
}

// NextSeq returns the next monotonically increasing sequence number,
// starting at 1, used as the EVT_SURFACE_PRESENTED message id.
func (p *Presenter) NextSeq() uint64 {
	p.seq++
	return p.seq
}

// ReplyPayload builds the RPL_SURFACE_PRESENT payload for a successful present.
func ReplyPayload(sid uint32, cookie uint64) []byte {
	return wire.SurfacePresentReply{Status: protoerr.OK, SID: sid, Cookie: cookie}.Encode()
}

// EventPayload builds the EVT_SURFACE_PRESENTED payload.
func EventPayload(sid uint32, cookie uint64) []byte {
	return wire.SurfacePresentedEvent{SID: sid, Status: uint32(protoerr.OK), Cookie: cookie}.Encode()
}
