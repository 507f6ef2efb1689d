package logger

import (
	"log/slog"
)

// Standard field keys for structured logging.
// Use these keys consistently across all log statements for log aggregation
// and querying.
const (
	// ========================================================================
	// Session & Connection
	// ========================================================================
	KeySessionID = "session_id" // Session identifier assigned at device open
	KeyDisplayID = "display_id" // Display id bound to the session
	KeyClientFD  = "client_fd"  // Underlying connection file descriptor
	KeyTraceID   = "trace_id"   // Session-lifetime trace id

	// ========================================================================
	// Protocol & Operation
	// ========================================================================
	KeyOp        = "op"         // Message type name being handled: HELLO, SURFACE_CREATE, ...
	KeyMsgID     = "msg_id"     // Client-supplied message id
	KeyFrameID   = "frame_id"   // Client-supplied frame id
	KeyMsgType   = "msg_type"   // Raw numeric message type
	KeyStatus    = "status"     // Reply status (errno-style)
	KeyStatusMsg = "status_msg" // Human-readable status

	// ========================================================================
	// Surfaces & Presentation
	// ========================================================================
	KeySurfaceID = "surface_id" // Surface id within the session
	KeyWidth     = "width"
	KeyHeight    = "height"
	KeyFormat    = "format"
	KeyStride    = "stride"
	KeyTotal     = "total_bytes"
	KeyCookie    = "cookie"
	KeySeqNo     = "seqno"

	// ========================================================================
	// Queue & I/O
	// ========================================================================
	KeyOutqDepth  = "outq_depth"
	KeyOutqBytes  = "outq_bytes"
	KeyInbufBytes = "inbuf_bytes"
	KeyBytesIn    = "bytes_in"
	KeyBytesOut   = "bytes_out"

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
	KeyErrorCode  = "error_code"
)

// ----------------------------------------------------------------------------
// Session & Connection
// ----------------------------------------------------------------------------

// SessionID returns a slog.Attr for the session identifier.
func SessionID(id uint64) slog.Attr {
	return slog.Uint64(KeySessionID, id)
}

// DisplayID returns a slog.Attr for a display identifier.
func DisplayID(id uint32) slog.Attr {
	return slog.Uint64(KeyDisplayID, uint64(id))
}

// ----------------------------------------------------------------------------
// Protocol & Operation
// ----------------------------------------------------------------------------

// Op returns a slog.Attr for the message type name being handled.
func Op(name string) slog.Attr {
	return slog.String(KeyOp, name)
}

// MsgID returns a slog.Attr for the client-supplied message id.
func MsgID(id uint32) slog.Attr {
	return slog.Uint64(KeyMsgID, uint64(id))
}

// FrameID returns a slog.Attr for the client-supplied frame id.
func FrameID(id uint32) slog.Attr {
	return slog.Uint64(KeyFrameID, uint64(id))
}

// Status returns a slog.Attr for a reply status code.
func Status(status int32) slog.Attr {
	return slog.Int64(KeyStatus, int64(status))
}

// ----------------------------------------------------------------------------
// Surfaces & Presentation
// ----------------------------------------------------------------------------

// SurfaceID returns a slog.Attr for a surface identifier.
func SurfaceID(id uint32) slog.Attr {
	return slog.Uint64(KeySurfaceID, uint64(id))
}

// Dimensions returns slog.Attrs for a surface's width and height.
func Dimensions(w, h uint32) []slog.Attr {
	return []slog.Attr{slog.Uint64(KeyWidth, uint64(w)), slog.Uint64(KeyHeight, uint64(h))}
}

// Cookie returns a slog.Attr for a present cookie.
func Cookie(c uint64) slog.Attr {
	return slog.Uint64(KeyCookie, c)
}

// SeqNo returns a slog.Attr for a presentation sequence number.
func SeqNo(n uint64) slog.Attr {
	return slog.Uint64(KeySeqNo, n)
}

// ----------------------------------------------------------------------------
// Queue & I/O
// ----------------------------------------------------------------------------

// OutqDepth returns a slog.Attr for the current outbound queue depth.
func OutqDepth(n int) slog.Attr {
	return slog.Int(KeyOutqDepth, n)
}

// DurationMs returns a slog.Attr for an operation duration in milliseconds.
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error value, or a no-op attr if err is nil.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}
