// Package sse provides Server-Sent Events broadcasting of accepted captures.
package sse

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/recall/pkg/models"
)

// WriteTimeout bounds writes to SSE clients so a stale connection cannot
// block a broadcast.
const WriteTimeout = 2 * time.Second

// Event is one broadcast message.
type Event struct {
	Type   string                `json:"type"`
	Record *models.CaptureRecord `json:"record,omitempty"`
}

// RecordStored builds the event emitted after a capture record is stored.
func RecordStored(rec models.CaptureRecord) Event {
	return Event{Type: "record_stored", Record: &rec}
}

type client struct {
	writer  http.ResponseWriter
	flusher http.Flusher
	done    chan struct{}
	id      string
}

// Broadcaster manages SSE client connections and event broadcasting.
type Broadcaster struct {
	mu      sync.RWMutex
	clients map[string]*client
	nextID  int
}

// NewBroadcaster creates a new SSE broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{clients: make(map[string]*client)}
}

// ClientCount returns the number of connected clients.
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Broadcast sends an event to all connected clients. Clients that fail or
// time out are dropped.
func (b *Broadcaster) Broadcast(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal SSE event")
		return
	}
	message := fmt.Sprintf("data: %s\n\n", data)

	b.mu.RLock()
	targets := make([]*client, 0, len(b.clients))
	for _, c := range b.clients {
		targets = append(targets, c)
	}
	b.mu.RUnlock()

	if len(targets) == 0 {
		return
	}

	deadCh := make(chan string, len(targets))
	var wg sync.WaitGroup
	for _, c := range targets {
		select {
		case <-c.done:
			continue
		default:
		}
		wg.Add(1)
		go func(c *client) {
			defer wg.Done()
			b.write(c, message, deadCh)
		}(c)
	}
	wg.Wait()
	close(deadCh)

	for id := range deadCh {
		b.remove(id)
	}
}

// write sends one message to one client, bounded by WriteTimeout. The write
// runs in its own goroutine reporting on a buffered channel, so a write that
// outlives the timeout finishes without touching deadCh after Broadcast has
// already closed it.
func (b *Broadcaster) write(c *client, message string, deadCh chan<- string) {
	result := make(chan error, 1)
	go func() {
		_, err := c.writer.Write([]byte(message))
		if err == nil {
			c.flusher.Flush()
		}
		result <- err
	}()

	select {
	case err := <-result:
		if err != nil {
			log.Debug().Str("clientId", c.id).Err(err).Msg("SSE write failed, dropping client")
			deadCh <- c.id
		}
	case <-time.After(WriteTimeout):
		log.Warn().Str("clientId", c.id).Msg("SSE write timed out, dropping client")
		deadCh <- c.id
	case <-c.done:
	}
}

func (b *Broadcaster) remove(id string) {
	b.mu.Lock()
	c, ok := b.clients[id]
	if ok {
		delete(b.clients, id)
	}
	b.mu.Unlock()

	if ok {
		select {
		case <-c.done:
		default:
			close(c.done)
		}
	}
}

// HandleSSE serves one SSE connection until the client disconnects.
func (b *Broadcaster) HandleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	b.mu.Lock()
	b.nextID++
	c := &client{
		id:      fmt.Sprintf("client-%d", b.nextID),
		writer:  w,
		flusher: flusher,
		done:    make(chan struct{}),
	}
	b.clients[c.id] = c
	b.mu.Unlock()

	log.Debug().Str("clientId", c.id).Msg("SSE client connected")

	select {
	case <-r.Context().Done():
	case <-c.done:
	}
	b.remove(c.id)
	log.Debug().Str("clientId", c.id).Msg("SSE client disconnected")
}
