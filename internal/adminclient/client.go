// Package adminclient is a small HTTP client for drawfsd's admin/
// introspection endpoint, used by drawfsctl.
package adminclient

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client talks to a drawfsd admin HTTP endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a Client bound to baseURL (e.g. "http://127.0.0.1:9091").
func New(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// Session is one entry returned by ListSessions.
type Session struct {
	ID    uint64 `json:"id"`
	State string `json:"state"`
}

// Stats mirrors the STATS control operation's counters for one session.
type Stats struct {
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

// ListSessions returns every currently open session on the target daemon.
func (c *Client) ListSessions() ([]Session, error) {
	var out []Session
	if err := c.get("/sessions", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SessionStats fetches one session's STATS counters.
func (c *Client) SessionStats(id uint64) (Stats, error) {
	var out Stats
	if err := c.get(fmt.Sprintf("/sessions/%d/stats", id), &out); err != nil {
		return Stats{}, err
	}
	return out, nil
}

func (c *Client) get(path string, result any) error {
	resp, err := c.httpClient.Get(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("adminclient: request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("adminclient: %s returned status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("adminclient: decode response from %s: %w", path, err)
	}
	return nil
}
