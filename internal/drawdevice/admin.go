package drawdevice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/drawfs/drawfs/internal/logger"
)

// AdminServer exposes the STATS control operation and a session listing
// over a side-channel HTTP surface distinct from the framed data path.
// It never mutates protocol state: the only write-shaped thing it can
// trigger is STATS, which is read-only.
type AdminServer struct {
	dev  *Device
	http *http.Server
}

// sessionSummary is the JSON shape of one entry in GET /sessions.
type sessionSummary struct {
	ID    uint64 `json:"id"`
	State string `json:"state"`
}

// statsResponse is the JSON shape of GET /sessions/{id}/stats, mirroring
// the STATS control operation's wire payload field-for-field.
type statsResponse struct {
	FramesReceived      uint64 `json:"frames_received"`
	FramesProcessed     uint64 `json:"frames_processed"`
	FramesInvalid       uint64 `json:"frames_invalid"`
	MessagesProcessed   uint64 `json:"messages_processed"`
	MessagesUnsupported uint64 `json:"messages_unsupported"`
	EventsEnqueued      uint64 `json:"events_enqueued"`
	EventsDropped       uint64 `json:"events_dropped"`
	BytesIn             uint64 `json:"bytes_in"`
	BytesOut            uint64 `json:"bytes_out"`
	OutqDepth           int    `json:"outq_depth"`
	InbufBytes          int    `json:"inbuf_bytes"`
}

// NewAdminServer creates an admin HTTP surface over dev's live sessions,
// bound to addr. Call Start to begin serving.
func NewAdminServer(dev *Device, addr string) *AdminServer {
	a := &AdminServer{dev: dev}

	r := chi.NewRouter()

	// Middleware stack - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Second))

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", a.handleSessions)
		r.Get("/{id}/stats", a.handleSessionStats)
	})

	a.http = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	return a
}

// Start begins serving and blocks until ctx is cancelled or the server
// fails to start.
func (a *AdminServer) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- a.http.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.http.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("drawdevice: admin shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("drawdevice: admin serve: %w", err)
	}
}

func (a *AdminServer) handleSessions(w http.ResponseWriter, r *http.Request) {
	ids := a.dev.SessionIDs()
	out := make([]sessionSummary, 0, len(ids))
	for _, id := range ids {
		sess, ok := a.dev.Session(id)
		if !ok {
			continue
		}
		out = append(out, sessionSummary{ID: id, State: sess.State().String()})
	}
	writeJSON(w, out)
}

// handleSessionStats serves GET /sessions/{id}/stats, the admin-surface
// form of the STATS control operation for a specific session, used for
// out-of-band introspection (e.g. by drawfsctl) without opening a data
// connection.
func (a *AdminServer) handleSessionStats(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid session id", http.StatusBadRequest)
		return
	}

	sess, ok := a.dev.Session(id)
	if !ok {
		http.Error(w, "no such session", http.StatusNotFound)
		return
	}

	st := sess.Stats()
	writeJSON(w, statsResponse{
		FramesReceived:      st.FramesReceived,
		FramesProcessed:     st.FramesProcessed,
		FramesInvalid:       st.FramesInvalid,
		MessagesProcessed:   st.MessagesProcessed,
		MessagesUnsupported: st.MessagesUnsupported,
		EventsEnqueued:      st.EventsEnqueued,
		EventsDropped:       st.EventsDropped,
		BytesIn:             st.BytesIn,
		BytesOut:            st.BytesOut,
		OutqDepth:           st.OutqDepth,
		InbufBytes:          st.InbufBytes,
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("admin: failed to encode response", logger.Err(err))
	}
}
