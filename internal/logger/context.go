package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds request-scoped logging context for a DrawFS session.
type LogContext struct {
	SessionID uint64    // Session identifier assigned at device open
	DisplayID uint32    // Display currently bound to the session, 0 if unbound
	Op        string    // Message being handled: HELLO, SURFACE_CREATE, etc.
	MsgID     uint32    // Client-supplied message id being processed
	TraceID   string    // Session-lifetime trace id, for correlating log lines across a connection
	StartTime time.Time // For duration calculation
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext for a freshly opened session.
func NewLogContext(sessionID uint64) *LogContext {
	return &LogContext{
		SessionID: sessionID,
		StartTime: time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	return &LogContext{
		SessionID: lc.SessionID,
		DisplayID: lc.DisplayID,
		Op:        lc.Op,
		MsgID:     lc.MsgID,
		TraceID:   lc.TraceID,
		StartTime: lc.StartTime,
	}
}

// WithOp returns a copy with the current operation name and message id set.
func (lc *LogContext) WithOp(op string, msgID uint32) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Op = op
		clone.MsgID = msgID
	}
	return clone
}

// WithDisplay returns a copy with the bound display id set.
func (lc *LogContext) WithDisplay(displayID uint32) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.DisplayID = displayID
	}
	return clone
}

// WithTraceID returns a copy with the session trace id set.
func (lc *LogContext) WithTraceID(traceID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
