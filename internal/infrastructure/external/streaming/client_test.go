package streaming

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/johnquangdev/minutemaestro/internal/domain/entities"
	"github.com/johnquangdev/minutemaestro/internal/domain/ports"
	"github.com/johnquangdev/minutemaestro/pkg/config"
)

type fakeBackend struct {
	srv    *httptest.Server
	conns  chan *websocket.Conn
	binary chan []byte
	text   chan string
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()

	b := &fakeBackend{
		conns:  make(chan *websocket.Conn, 1),
		binary: make(chan []byte, 64),
		text:   make(chan string, 64),
	}
	upgrader := websocket.Upgrader{}
	b.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		b.conns <- conn
		go func() {
			for {
				kind, payload, err := conn.ReadMessage()
				if err != nil {
					return
				}
				if kind == websocket.BinaryMessage {
					b.binary <- payload
				} else {
					b.text <- string(payload)
				}
			}
		}()
	}))
	t.Cleanup(b.srv.Close)
	return b
}

func (b *fakeBackend) accept(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case conn := <-b.conns:
		return conn
	case <-time.After(2 * time.Second):
		t.Fatalf("backend never accepted a connection")
	}
	return nil
}

func wsURL(httpURL string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http")
}

func newTestDialer(t *testing.T, url string) *Dialer {
	t.Helper()
	d, err := NewDialer(config.StreamingConfig{
		URL:              url,
		Dialect:          config.DialectGeneric,
		HandshakeTimeout: time.Second,
	}, 16000, nil, nil)
	if err != nil {
		t.Fatalf("NewDialer failed: %v", err)
	}
	return d
}

func recvEvent(t *testing.T, ch <-chan ports.StreamEvent) ports.StreamEvent {
	t.Helper()
	select {
	case ev, ok := <-ch:
		if !ok {
			t.Fatalf("events closed unexpectedly")
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for event")
	}
	return ports.StreamEvent{}
}

func drainEvents(t *testing.T, ch <-chan ports.StreamEvent) []ports.StreamEvent {
	t.Helper()
	var out []ports.StreamEvent
	deadline := time.After(3 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-deadline:
			t.Fatalf("events channel never closed")
		}
	}
}

func recvBinary(t *testing.T, b *fakeBackend) []byte {
	t.Helper()
	select {
	case p := <-b.binary:
		return p
	case <-time.After(2 * time.Second):
		t.Fatalf("backend received no audio")
	}
	return nil
}

func TestClientStreamsFragmentsAndAudio(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend(t)
	client := newTestDialer(t, wsURL(backend.srv.URL)).newClient()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Connect(ctx); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	server := backend.accept(t)
	if client.State() != StateOpen {
		t.Fatalf("expected OPEN, got %s", client.State())
	}

	if err := server.WriteMessage(websocket.TextMessage, []byte(`{"type":"transcript","sequence_index":0,"text":"hello","is_final":false,"speaker":"A"}`)); err != nil {
		t.Fatalf("server write failed: %v", err)
	}
	ev := recvEvent(t, client.Events())
	if ev.Type != ports.StreamEventFragment || ev.Fragment.Text != "hello" || ev.Fragment.IsFinal || ev.Fragment.Speaker != "A" {
		t.Fatalf("unexpected event %+v", ev)
	}

	client.SendAudio([]byte{1, 2})
	if got := recvBinary(t, backend); !bytes.Equal(got, []byte{1, 2}) {
		t.Fatalf("unexpected audio %v", got)
	}

	client.PauseSend()
	if client.State() != StatePausedSend {
		t.Fatalf("expected PAUSED_SEND, got %s", client.State())
	}
	client.SendAudio([]byte{9})
	client.ResumeSend()
	client.SendAudio([]byte{3})
	if got := recvBinary(t, backend); !bytes.Equal(got, []byte{3}) {
		t.Fatalf("expected paused audio to be dropped, got %v", got)
	}

	client.Disconnect()
	if client.State() != StateDisconnected {
		t.Fatalf("expected DISCONNECTED, got %s", client.State())
	}
	select {
	case msg := <-backend.text:
		if msg != `{"type":"terminate"}` {
			t.Fatalf("unexpected terminate message %q", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("backend never received terminate message")
	}

	for _, ev := range drainEvents(t, client.Events()) {
		if ev.Type == ports.StreamEventError {
			t.Fatalf("expected no error event on clean disconnect, got %v", ev.Err)
		}
	}

	client.Disconnect()
	if client.State() != StateDisconnected {
		t.Fatalf("expected second disconnect to be a no-op")
	}
}

func TestClientBackendErrorEmitsSingleTerminalError(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend(t)
	client := newTestDialer(t, wsURL(backend.srv.URL)).newClient()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Connect(ctx); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	server := backend.accept(t)

	_ = server.WriteMessage(websocket.TextMessage, []byte(`{"type":"transcript","sequence_index":0,"text":"one","is_final":true}`))
	_ = server.WriteMessage(websocket.TextMessage, []byte(`{"type":"error","message":"quota exceeded"}`))
	_ = server.WriteMessage(websocket.TextMessage, []byte(`{"type":"transcript","sequence_index":1,"text":"late","is_final":true}`))

	events := drainEvents(t, client.Events())
	var errs, fragments int
	for _, ev := range events {
		switch ev.Type {
		case ports.StreamEventError:
			errs++
			if !errors.Is(ev.Err, entities.ErrConnection) {
				t.Fatalf("expected connection error, got %v", ev.Err)
			}
			if !strings.Contains(ev.Err.Error(), "quota exceeded") {
				t.Fatalf("expected backend message in error, got %v", ev.Err)
			}
		case ports.StreamEventFragment:
			fragments++
			if ev.Fragment.Text == "late" {
				t.Fatalf("no fragment may follow the terminal error")
			}
		}
	}
	if errs != 1 {
		t.Fatalf("expected exactly one error event, got %d", errs)
	}
	if fragments != 1 {
		t.Fatalf("expected one fragment before the error, got %d", fragments)
	}
	if events[len(events)-1].Type != ports.StreamEventError {
		t.Fatalf("expected the error to be the last event")
	}
	if client.State() != StateFailed {
		t.Fatalf("expected FAILED, got %s", client.State())
	}

	client.SendAudio([]byte{1})
	client.Disconnect()
	if client.State() != StateDisconnected {
		t.Fatalf("expected DISCONNECTED after cleanup, got %s", client.State())
	}
}

func TestClientUnsolicitedCloseIsFailure(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend(t)
	client := newTestDialer(t, wsURL(backend.srv.URL)).newClient()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Connect(ctx); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	server := backend.accept(t)
	_ = server.Close()

	events := drainEvents(t, client.Events())
	if len(events) != 1 || events[0].Type != ports.StreamEventError {
		t.Fatalf("expected a single error event, got %+v", events)
	}
	client.Disconnect()
}

func TestClientHandshakeRejected(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		t.Errorf("unexpected authorized request")
	}))
	defer srv.Close()

	client := newTestDialer(t, wsURL(srv.URL)).newClient()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	start := time.Now()
	err := client.Connect(ctx)
	if !errors.Is(err, entities.ErrConnection) {
		t.Fatalf("expected connection error, got %v", err)
	}
	if errors.Is(err, entities.ErrTimeout) {
		t.Fatalf("rejected handshake must not be reported as a timeout")
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("expected 401 to stop retries immediately")
	}
	if client.State() != StateFailed {
		t.Fatalf("expected FAILED, got %s", client.State())
	}
	if _, ok := <-client.Events(); ok {
		t.Fatalf("expected events to be closed after failed connect")
	}
}

func TestClientConnectTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client := newTestDialer(t, wsURL(srv.URL)).newClient()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	err := client.Connect(ctx)
	if !errors.Is(err, entities.ErrConnection) || !errors.Is(err, entities.ErrTimeout) {
		t.Fatalf("expected connection timeout, got %v", err)
	}
	if client.State() != StateFailed {
		t.Fatalf("expected FAILED, got %s", client.State())
	}
}

func TestClientDisconnectDuringConnect(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client := newTestDialer(t, wsURL(srv.URL)).newClient()

	result := make(chan error, 1)
	go func() {
		result <- client.Connect(context.Background())
	}()

	deadline := time.Now().Add(2 * time.Second)
	for client.State() != StateConnecting {
		if time.Now().After(deadline) {
			t.Fatalf("client never reached CONNECTING")
		}
		time.Sleep(5 * time.Millisecond)
	}

	client.Disconnect()
	if client.State() != StateDisconnected {
		t.Fatalf("expected DISCONNECTED, got %s", client.State())
	}

	select {
	case err := <-result:
		if !errors.Is(err, entities.ErrAbandoned) {
			t.Fatalf("expected abandoned connect, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("connect never returned")
	}
}

func TestClientUnusedDisconnectClosesEvents(t *testing.T) {
	t.Parallel()

	client := newTestDialer(t, "ws://127.0.0.1:1/stream").newClient()
	client.SendAudio([]byte{1, 2, 3})
	if len(client.audio) != 0 {
		t.Fatalf("expected audio before connect to be dropped")
	}

	client.Disconnect()
	if _, ok := <-client.Events(); ok {
		t.Fatalf("expected events to be closed")
	}
	if err := client.Connect(context.Background()); !errors.Is(err, entities.ErrConnection) {
		t.Fatalf("expected a disconnected client to refuse Connect, got %v", err)
	}
}
