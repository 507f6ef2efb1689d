package metrics

// SessionMetrics provides observability for the device facade and the
// per-session protocol engine. Implementations are optional — pass nil
// anywhere a SessionMetrics is accepted to disable collection with zero
// overhead.
type SessionMetrics interface {
	// RecordSessionOpened is called once a new connection is accepted and
	// given a Session.
	RecordSessionOpened()

	// RecordSessionClosed is called once a session's connection closes.
	RecordSessionClosed()

	// RecordFrames adds to the decoded-frame counters since the last call.
	RecordFrames(valid, invalid uint64)

	// RecordMessages adds to the dispatched-message counters since the
	// last call.
	RecordMessages(supported, unsupported uint64)

	// RecordEvents adds to the SURFACE_PRESENTED event counters since the
	// last call.
	RecordEvents(enqueued, dropped uint64)

	// RecordBytes adds to the bytes-moved counters since the last call.
	RecordBytes(in, out uint64)

	// SetOutqDepth reports one session's current OutQueue depth.
	SetOutqDepth(sessionID uint64, depth int)
}

// noopMetrics implements SessionMetrics with no-ops, used when the caller
// passes a concrete value instead of relying on a nil interface.
type noopMetrics struct{}

// Noop returns a SessionMetrics that discards everything.
func Noop() SessionMetrics { return noopMetrics{} }

func (noopMetrics) RecordSessionOpened()                       {}
func (noopMetrics) RecordSessionClosed()                       {}
func (noopMetrics) RecordFrames(valid, invalid uint64)         {}
func (noopMetrics) RecordMessages(supported, unsupported uint64) {}
func (noopMetrics) RecordEvents(enqueued, dropped uint64)      {}
func (noopMetrics) RecordBytes(in, out uint64)                 {}
func (noopMetrics) SetOutqDepth(sessionID uint64, depth int)   {}
