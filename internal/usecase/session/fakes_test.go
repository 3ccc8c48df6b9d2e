package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/johnquangdev/minutemaestro/internal/domain/entities"
	"github.com/johnquangdev/minutemaestro/internal/domain/ports"
	"github.com/johnquangdev/minutemaestro/pkg/config"
)

type fakeStream struct {
	chunks chan []byte
	levels chan float64

	mu       sync.Mutex
	paused   bool
	stopped  bool
	err      error
	stopOnce sync.Once
}

func newFakeStream() *fakeStream {
	return &fakeStream{
		chunks: make(chan []byte, 16),
		levels: make(chan float64, 1),
	}
}

func (s *fakeStream) Chunks() <-chan []byte  { return s.chunks }
func (s *fakeStream) Levels() <-chan float64 { return s.levels }

func (s *fakeStream) Pause() {
	s.mu.Lock()
	s.paused = true
	s.mu.Unlock()
}

func (s *fakeStream) Resume() {
	s.mu.Lock()
	s.paused = false
	s.mu.Unlock()
}

func (s *fakeStream) Stop() error {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	s.stopOnce.Do(func() { close(s.chunks) })
	return nil
}

func (s *fakeStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *fakeStream) fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	s.stopOnce.Do(func() { close(s.chunks) })
}

func (s *fakeStream) isPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

func (s *fakeStream) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

type fakeCapture struct {
	mu       sync.Mutex
	startErr error
	streams  []*fakeStream
}

func (f *fakeCapture) Start(ctx context.Context) (ports.AudioStream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return nil, f.startErr
	}
	s := newFakeStream()
	f.streams = append(f.streams, s)
	return s, nil
}

func (f *fakeCapture) stream(t *testing.T, i int) *fakeStream {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if i >= len(f.streams) {
		t.Fatalf("capture started %d streams, wanted #%d", len(f.streams), i)
	}
	return f.streams[i]
}

func (f *fakeCapture) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.streams)
}

type fakeClient struct {
	connectErr error
	block      chan struct{}
	stop       chan struct{}
	events     chan ports.StreamEvent

	mu           sync.Mutex
	closed       bool
	pausedSend   bool
	sent         [][]byte
	disconnected int
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		stop:   make(chan struct{}),
		events: make(chan ports.StreamEvent, 64),
	}
}

func (c *fakeClient) Connect(ctx context.Context) error {
	if c.block != nil {
		select {
		case <-c.block:
		case <-c.stop:
			return entities.ErrAbandoned
		case <-ctx.Done():
			return errors.Join(entities.ErrConnection, entities.ErrTimeout)
		}
	}
	return c.connectErr
}

func (c *fakeClient) SendAudio(chunk []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.sent = append(c.sent, chunk)
}

func (c *fakeClient) PauseSend() {
	c.mu.Lock()
	c.pausedSend = true
	c.mu.Unlock()
}

func (c *fakeClient) ResumeSend() {
	c.mu.Lock()
	c.pausedSend = false
	c.mu.Unlock()
}

func (c *fakeClient) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnected++
	if c.closed {
		return
	}
	c.closed = true
	close(c.stop)
	close(c.events)
}

func (c *fakeClient) Events() <-chan ports.StreamEvent { return c.events }

// emit reports whether the event was delivered to a still open client
func (c *fakeClient) emit(ev ports.StreamEvent) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.events <- ev
	return true
}

func (c *fakeClient) fragment(index int, text string, final bool) bool {
	return c.emit(ports.StreamEvent{
		Type:     ports.StreamEventFragment,
		Fragment: entities.Fragment{SequenceIndex: index, Text: text, IsFinal: final},
	})
}

func (c *fakeClient) sentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

func (c *fakeClient) lastSent() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.sent) == 0 {
		return nil
	}
	return c.sent[len(c.sent)-1]
}

func (c *fakeClient) isPausedSend() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pausedSend
}

func (c *fakeClient) disconnects() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnected
}

type fakeDialer struct {
	mu      sync.Mutex
	prepare func(*fakeClient)
	clients []*fakeClient
}

func (d *fakeDialer) NewClient() ports.StreamingClient {
	d.mu.Lock()
	defer d.mu.Unlock()
	c := newFakeClient()
	if d.prepare != nil {
		d.prepare(c)
	}
	d.clients = append(d.clients, c)
	return c
}

func (d *fakeDialer) client(t *testing.T, i int) *fakeClient {
	t.Helper()
	d.mu.Lock()
	defer d.mu.Unlock()
	if i >= len(d.clients) {
		t.Fatalf("dialer created %d clients, wanted #%d", len(d.clients), i)
	}
	return d.clients[i]
}

type fakeSummarizer struct {
	mu    sync.Mutex
	calls int
	got   []entities.TranscriptEntry
	fn    func(ctx context.Context, entries []entities.TranscriptEntry) (*entities.MeetingMinutes, error)
}

func (s *fakeSummarizer) Summarize(ctx context.Context, entries []entities.TranscriptEntry) (*entities.MeetingMinutes, error) {
	s.mu.Lock()
	s.calls++
	s.got = entries
	fn := s.fn
	s.mu.Unlock()
	if fn != nil {
		return fn(ctx, entries)
	}
	return &entities.MeetingMinutes{Summary: "ok", GeneratedAt: t0}, nil
}

func (s *fakeSummarizer) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type harness struct {
	ctrl       *Controller
	capture    *fakeCapture
	dialer     *fakeDialer
	summarizer *fakeSummarizer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		capture:    &fakeCapture{},
		dialer:     &fakeDialer{},
		summarizer: &fakeSummarizer{},
	}
	h.ctrl = NewController(h.capture, h.dialer, h.summarizer, config.SessionConfig{
		ConnectTimeout: time.Second,
		MinutesTimeout: time.Second,
		ObserverBuffer: 32,
	}, nil, nil, WithClock(func() time.Time { return t0 }))
	t.Cleanup(h.ctrl.Disconnect)
	return h
}

func (h *harness) connect(t *testing.T) (*fakeStream, *fakeClient) {
	t.Helper()
	n := h.capture.count()
	if err := h.ctrl.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	if got := h.ctrl.Status(); got != entities.SessionStatusRecording {
		t.Fatalf("expected RECORDING after connect, got %s", got)
	}
	return h.capture.stream(t, n), h.dialer.client(t, n)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
