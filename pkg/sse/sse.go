package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Event 一条待推送的服务端事件
type Event struct {
	ID    uint64
	Name  string
	Group string // 空表示广播
	Data  string
}

func (e Event) format() string {
	return fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", e.ID, e.Name, e.Data)
}

type Client struct {
	id     string
	groups map[string]bool
	ch     chan Event
	done   chan struct{}
}

// Events delivers the events published to the client.
func (c *Client) Events() <-chan Event { return c.ch }

// Hub fans events out to connected clients and keeps the most recent ones
// for Last-Event-ID replay.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*Client
	groups   map[string]map[string]bool // group -> clientID set
	interval time.Duration
	retryMs  int

	seq     uint64
	history []Event
	keep    int
}

func NewHub(interval time.Duration, keep int) *Hub {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if keep <= 0 {
		keep = 256
	}
	return &Hub{
		clients:  make(map[string]*Client),
		groups:   make(map[string]map[string]bool),
		interval: interval,
		retryMs:  5000,
		keep:     keep,
	}
}

func (h *Hub) AddClient(id string, groups ...string) *Client {
	h.mu.Lock()
	defer h.mu.Unlock()
	if old, ok := h.clients[id]; ok {
		h.removeLocked(id, old)
	}
	c := &Client{id: id, groups: make(map[string]bool), ch: make(chan Event, 64), done: make(chan struct{})}
	h.clients[id] = c
	for _, g := range groups {
		c.groups[g] = true
		if h.groups[g] == nil {
			h.groups[g] = make(map[string]bool)
		}
		h.groups[g][id] = true
	}
	return c
}

func (h *Hub) RemoveClient(id string) {
	h.mu.Lock()
	if c, ok := h.clients[id]; ok {
		h.removeLocked(id, c)
	}
	h.mu.Unlock()
}

func (h *Hub) removeLocked(id string, c *Client) {
	close(c.done)
	for g := range c.groups {
		delete(h.groups[g], id)
	}
	delete(h.clients, id)
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// PublishJSON encodes v and sends it as event name to group, or to every
// client when group is empty. Slow clients drop events rather than block.
func (h *Hub) PublishJSON(name, group string, v interface{}) (Event, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return Event{}, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq++
	ev := Event{ID: h.seq, Name: name, Group: group, Data: string(b)}
	h.history = append(h.history, ev)
	if len(h.history) > h.keep {
		h.history = h.history[len(h.history)-h.keep:]
	}
	for id, c := range h.clients {
		if group != "" && !h.groups[group][id] {
			continue
		}
		select {
		case c.ch <- ev:
		default:
		}
	}
	return ev, nil
}

// since returns buffered events after lastID visible to a client in groups.
func (h *Hub) since(lastID uint64, groups map[string]bool) []Event {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []Event
	for _, ev := range h.history {
		if ev.ID <= lastID {
			continue
		}
		if ev.Group != "" && !groups[ev.Group] {
			continue
		}
		out = append(out, ev)
	}
	return out
}

func (h *Hub) Serve(c *gin.Context, clientID string, groups ...string) {
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	fmt.Fprintf(c.Writer, "retry: %d\n\n", h.retryMs)

	client := h.AddClient(clientID, groups...)
	defer h.RemoveClient(clientID)

	// events published while replaying arrive on both paths; skip them once
	var replayed uint64
	if last, err := strconv.ParseUint(c.GetHeader("Last-Event-ID"), 10, 64); err == nil {
		for _, ev := range h.since(last, client.groups) {
			_, _ = c.Writer.WriteString(ev.format())
			replayed = ev.ID
		}
	}
	flusher.Flush()

	ping := time.NewTicker(h.interval)
	defer ping.Stop()
	for {
		select {
		case <-client.done:
			return
		case <-c.Request.Context().Done():
			return
		case <-ping.C:
			fmt.Fprintf(c.Writer, "event: ping\ndata: {}\n\n")
			flusher.Flush()
		case ev := <-client.ch:
			if ev.ID <= replayed {
				continue
			}
			_, _ = c.Writer.WriteString(ev.format())
			flusher.Flush()
		}
	}
}
