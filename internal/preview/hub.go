// Package preview serves the output root over HTTP during watch mode and
// pushes reload events to connected browsers over SSE whenever a pass
// produces new output.
package preview

import (
	"bufio"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// ReloadHub manages SSE clients. Each successful pass is broadcast as a
// JSON event carrying the pass ID; clients reload when the ID changes.
type ReloadHub struct {
	mu       sync.RWMutex
	nextID   int
	clients  map[int]*reloadClient
	logger   *slog.Logger
	closed   bool
	lastPass string
}

type reloadClient struct {
	id   int
	ch   chan string
	done chan struct{}
}

func NewReloadHub(logger *slog.Logger) *ReloadHub {
	return &ReloadHub{clients: map[int]*reloadClient{}, logger: logger}
}

// ServeHTTP implements the SSE endpoint.
func (h *ReloadHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		http.Error(w, "reload hub shutting down", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "stream unsupported", http.StatusInternalServerError)
		return
	}

	client := &reloadClient{ch: make(chan string, 8), done: make(chan struct{})}
	h.mu.Lock()
	client.id = h.nextID
	h.nextID++
	h.clients[client.id] = client
	current := h.lastPass
	h.mu.Unlock()

	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(": connected\n\n"); err != nil {
		return
	}
	if current != "" {
		if _, err := bw.WriteString(reloadEvent(current)); err != nil {
			return
		}
	}
	if err := bw.Flush(); err == nil {
		flusher.Flush()
	}

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			h.removeClient(client.id)
			return
		case <-client.done:
			return
		case <-heartbeat.C:
			if _, err := bw.WriteString(": ping\n\n"); err != nil {
				h.removeClient(client.id)
				return
			}
			bw.Flush()
			flusher.Flush()
		case passID := <-client.ch:
			if _, err := bw.WriteString(reloadEvent(passID)); err != nil {
				h.removeClient(client.id)
				return
			}
			bw.Flush()
			flusher.Flush()
		}
	}
}

func reloadEvent(passID string) string {
	return fmt.Sprintf("data: {\"pass\":%q}\n\n", passID)
}

func (h *ReloadHub) removeClient(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[id]; ok {
		delete(h.clients, id)
		close(c.done)
	}
}

// ClientCount returns the number of connected clients.
func (h *ReloadHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast pushes a pass ID to all clients. Clients with full channels are
// dropped rather than allowed to stall the broadcast.
func (h *ReloadHub) Broadcast(passID string) {
	h.mu.Lock()
	if h.closed || passID == "" || passID == h.lastPass {
		h.mu.Unlock()
		return
	}
	h.lastPass = passID
	snapshot := make([]*reloadClient, 0, len(h.clients))
	for _, c := range h.clients {
		snapshot = append(snapshot, c)
	}
	h.mu.Unlock()

	dropped := 0
	for _, c := range snapshot {
		select {
		case c.ch <- passID:
		default:
			dropped++
			h.removeClient(c.id)
		}
	}
	h.logger.Debug("reload broadcast",
		slog.String("pass_id", passID),
		slog.Int("clients", len(snapshot)),
		slog.Int("dropped", dropped))
}

// Shutdown closes all clients and prevents future broadcasts.
func (h *ReloadHub) Shutdown() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	clients := h.clients
	h.clients = map[int]*reloadClient{}
	h.mu.Unlock()
	for _, c := range clients {
		close(c.done)
	}
}
