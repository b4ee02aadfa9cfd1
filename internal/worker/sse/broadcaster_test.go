// Package sse provides Server-Sent Events broadcasting of accepted captures.
package sse

import (
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/thebtf/recall/pkg/models"
)

// BroadcasterSuite is a test suite for Broadcaster operations.
type BroadcasterSuite struct {
	suite.Suite
	broadcaster *Broadcaster
}

func (s *BroadcasterSuite) SetupTest() {
	s.broadcaster = NewBroadcaster()
}

func TestBroadcasterSuite(t *testing.T) {
	suite.Run(t, new(BroadcasterSuite))
}

// mockResponseWriter implements http.ResponseWriter and http.Flusher.
type mockResponseWriter struct {
	mu     sync.Mutex
	header http.Header
	body   []byte
}

func newMockResponseWriter() *mockResponseWriter {
	return &mockResponseWriter{header: make(http.Header)}
}

func (m *mockResponseWriter) Header() http.Header { return m.header }

func (m *mockResponseWriter) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.body = append(m.body, p...)
	return len(p), nil
}

func (m *mockResponseWriter) WriteHeader(int) {}
func (m *mockResponseWriter) Flush()          {}

func (m *mockResponseWriter) contents() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return string(m.body)
}

// flushWriter is any response writer usable as an SSE client target.
type flushWriter interface {
	http.ResponseWriter
	http.Flusher
}

// addClient registers a mock client directly, bypassing HandleSSE's blocking loop.
func (s *BroadcasterSuite) addClient(w flushWriter) *client {
	s.broadcaster.mu.Lock()
	defer s.broadcaster.mu.Unlock()
	s.broadcaster.nextID++
	c := &client{
		id:      "test-client",
		writer:  w,
		flusher: w,
		done:    make(chan struct{}),
	}
	s.broadcaster.clients[c.id] = c
	return c
}

// TestNewBroadcaster tests broadcaster creation.
func (s *BroadcasterSuite) TestNewBroadcaster() {
	s.NotNil(s.broadcaster.clients)
	s.Equal(0, s.broadcaster.ClientCount())
}

// TestBroadcastToNoClients tests that broadcasting without clients is a no-op.
func (s *BroadcasterSuite) TestBroadcastToNoClients() {
	s.NotPanics(func() {
		s.broadcaster.Broadcast(RecordStored(models.CaptureRecord{ID: 1, Content: "x"}))
	})
}

// TestBroadcastDeliversEvent tests event delivery and framing.
func (s *BroadcasterSuite) TestBroadcastDeliversEvent() {
	w := newMockResponseWriter()
	s.addClient(w)
	s.Equal(1, s.broadcaster.ClientCount())

	rec := models.CaptureRecord{
		ID:        7,
		Timestamp: time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC),
		Content:   "stored capture",
	}
	s.broadcaster.Broadcast(RecordStored(rec))

	body := w.contents()
	s.True(strings.HasPrefix(body, "data: "))
	s.True(strings.HasSuffix(body, "\n\n"))
	s.Contains(body, `"type":"record_stored"`)
	s.Contains(body, `"stored capture"`)
}

// stalledResponseWriter blocks writes until released, then fails them,
// mimicking a connection that went away without closing.
type stalledResponseWriter struct {
	header  http.Header
	release chan struct{}
}

func newStalledResponseWriter() *stalledResponseWriter {
	return &stalledResponseWriter{header: make(http.Header), release: make(chan struct{})}
}

func (w *stalledResponseWriter) Header() http.Header { return w.header }

func (w *stalledResponseWriter) Write([]byte) (int, error) {
	<-w.release
	return 0, errors.New("connection gone")
}

func (w *stalledResponseWriter) WriteHeader(int) {}
func (w *stalledResponseWriter) Flush()          {}

// TestBroadcastStalledClientDropped tests that a client whose write exceeds
// the timeout is dropped, and that the write finishing after Broadcast has
// returned is harmless.
func (s *BroadcasterSuite) TestBroadcastStalledClientDropped() {
	w := newStalledResponseWriter()
	s.addClient(w)

	done := make(chan struct{})
	go func() {
		s.broadcaster.Broadcast(RecordStored(models.CaptureRecord{ID: 1, Content: "x"}))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(WriteTimeout + time.Second):
		s.FailNow("broadcast did not return after write timeout")
	}
	s.Equal(0, s.broadcaster.ClientCount())

	// The stalled write completes only now, long after the broadcast's
	// bookkeeping is finished. A send on a closed channel here would
	// crash the whole test binary.
	close(w.release)
	time.Sleep(50 * time.Millisecond)
}

// TestRemoveClosesDoneChannel tests client removal.
func (s *BroadcasterSuite) TestRemoveClosesDoneChannel() {
	c := s.addClient(newMockResponseWriter())

	s.broadcaster.remove(c.id)
	s.Equal(0, s.broadcaster.ClientCount())

	select {
	case <-c.done:
	default:
		s.Fail("done channel not closed")
	}

	// Removing twice is safe.
	s.NotPanics(func() { s.broadcaster.remove(c.id) })
}
