package streaming

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/johnquangdev/minutemaestro/internal/domain/entities"
	"github.com/johnquangdev/minutemaestro/internal/domain/ports"
	"github.com/johnquangdev/minutemaestro/internal/infrastructure/metrics"
	"github.com/johnquangdev/minutemaestro/pkg/config"
	"github.com/johnquangdev/minutemaestro/pkg/jobcontext"
)

const (
	writeTimeout = 5 * time.Second
	closeTimeout = time.Second
)

// Dialer creates streaming clients for one backend configuration
type Dialer struct {
	url              string
	apiKey           string
	codec            codec
	handshakeTimeout time.Duration
	maxRetryElapsed  time.Duration
	sendBuffer       int
	eventBuffer      int
	logger           *zap.Logger
	metrics          *metrics.Metrics
}

// NewDialer validates the backend configuration and returns a Dialer
func NewDialer(cfg config.StreamingConfig, sampleRate int, logger *zap.Logger, m *metrics.Metrics) (*Dialer, error) {
	c, err := newCodec(cfg.Dialect)
	if err != nil {
		return nil, err
	}
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	u, err := buildStreamURL(cfg.URL, c, sampleRate)
	if err != nil {
		return nil, err
	}

	d := &Dialer{
		url:              u,
		apiKey:           cfg.APIKey,
		codec:            c,
		handshakeTimeout: cfg.HandshakeTimeout,
		maxRetryElapsed:  30 * time.Second,
		sendBuffer:       cfg.SendBuffer,
		eventBuffer:      cfg.EventBuffer,
		logger:           logger,
		metrics:          m,
	}
	if d.handshakeTimeout <= 0 {
		d.handshakeTimeout = 5 * time.Second
	}
	if d.sendBuffer <= 0 {
		d.sendBuffer = 64
	}
	if d.eventBuffer <= 0 {
		d.eventBuffer = 256
	}
	return d, nil
}

// URL returns the websocket URL clients connect to
func (d *Dialer) URL() string {
	return d.url
}

// NewClient returns a fresh, unconnected client
func (d *Dialer) NewClient() ports.StreamingClient {
	return d.newClient()
}

func (d *Dialer) newClient() *Client {
	return &Client{
		d:            d,
		ws:           &websocket.Dialer{Proxy: http.ProxyFromEnvironment, HandshakeTimeout: d.handshakeTimeout},
		audio:        make(chan []byte, d.sendBuffer),
		events:       make(chan ports.StreamEvent, d.eventBuffer),
		stop:         make(chan struct{}),
		readDone:     make(chan struct{}),
		writeDone:    make(chan struct{}),
		connectDone:  make(chan struct{}),
		disconnected: make(chan struct{}),
	}
}

// Client carries exactly one websocket connection to the streaming backend.
//
// DISCONNECTED -> CONNECTING -> OPEN <-> PAUSED_SEND -> CLOSING -> DISCONNECTED,
// with FAILED reachable from CONNECTING, OPEN and PAUSED_SEND.
type Client struct {
	d  *Dialer
	ws *websocket.Dialer

	mu         sync.Mutex
	state      State
	used       bool
	conn       *websocket.Conn
	cancelDial context.CancelFunc

	audio  chan []byte
	events chan ports.StreamEvent

	stop         chan struct{}
	readDone     chan struct{}
	writeDone    chan struct{}
	connectDone  chan struct{}
	disconnected chan struct{}

	stopOnce         sync.Once
	eventsOnce       sync.Once
	disconnectedOnce sync.Once

	causeMu sync.Mutex
	cause   error
}

// State returns the current connection state
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Events delivers fragments and at most one terminal error. It is closed once
// the connection is gone.
func (c *Client) Events() <-chan ports.StreamEvent {
	return c.events
}

// Connect performs the websocket handshake, retrying transient failures until
// ctx expires.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.used || c.state != StateDisconnected {
		c.mu.Unlock()
		return fmt.Errorf("%w: client already used", entities.ErrConnection)
	}
	c.used = true
	c.state = StateConnecting
	dialCtx, cancel := context.WithCancel(ctx)
	c.cancelDial = cancel
	c.mu.Unlock()

	defer close(c.connectDone)
	defer cancel()

	var logger *zap.Logger
	if c.d.logger != nil {
		logger = c.d.logger.With(jobcontext.LogFields(ctx)...)
	}

	headers := http.Header{}
	c.d.codec.authorize(headers, c.d.apiKey)

	start := time.Now()
	var (
		conn    *websocket.Conn
		lastErr error
	)
	op := func() error {
		c.d.metrics.RecordHandshakeAttempt()
		hctx, hcancel := context.WithTimeout(dialCtx, c.d.handshakeTimeout)
		defer hcancel()

		cn, resp, err := c.ws.DialContext(hctx, c.d.url, headers)
		if err != nil {
			if resp != nil {
				err = fmt.Errorf("handshake failed with status %d: %w", resp.StatusCode, err)
				lastErr = err
				if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
					return backoff.Permanent(err)
				}
				return err
			}
			lastErr = err
			if logger != nil {
				logger.Warn("⚠️ Streaming handshake failed, retrying", zap.Error(err))
			}
			return err
		}
		conn = cn
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxInterval = 2 * time.Second
	bo.MaxElapsedTime = c.d.maxRetryElapsed
	err := backoff.Retry(op, backoff.WithContext(bo, dialCtx))

	c.mu.Lock()
	if c.state != StateConnecting {
		// Disconnect ran while the handshake was in flight
		c.state = StateDisconnected
		c.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		c.closeEvents()
		return fmt.Errorf("%w: %w: disconnected during handshake", entities.ErrConnection, entities.ErrAbandoned)
	}
	if err != nil {
		c.state = StateFailed
		c.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		c.closeEvents()

		if lastErr == nil {
			lastErr = err
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: %w: %v", entities.ErrConnection, entities.ErrTimeout, lastErr)
		}
		return fmt.Errorf("%w: %v", entities.ErrConnection, lastErr)
	}
	c.conn = conn
	c.state = StateOpen
	c.mu.Unlock()

	c.d.metrics.RecordHandshake(time.Since(start).Seconds())
	if logger != nil {
		logger.Info("🔌 Streaming connection open", zap.Duration("handshake", time.Since(start)))
	}

	go c.readLoop(conn)
	go c.writeLoop(conn)
	return nil
}

// SendAudio queues one chunk. It is a no-op unless the client is OPEN; audio
// is never buffered while sending is paused.
func (c *Client) SendAudio(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	c.mu.Lock()
	st := c.state
	c.mu.Unlock()

	switch st {
	case StateOpen:
	case StatePausedSend:
		c.d.metrics.RecordChunkDropped("paused")
		return
	default:
		c.d.metrics.RecordChunkDropped("not_open")
		return
	}

	select {
	case c.audio <- chunk:
	default:
		c.d.metrics.RecordChunkDropped("send_backpressure")
	}
}

// PauseSend stops forwarding audio without closing the connection
func (c *Client) PauseSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateOpen {
		c.state = StatePausedSend
	}
}

// ResumeSend restarts forwarding audio
func (c *Client) ResumeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StatePausedSend {
		c.state = StateOpen
	}
}

// Disconnect tears the connection down from any state. It is idempotent and
// returns once the client is DISCONNECTED.
func (c *Client) Disconnect() {
	c.mu.Lock()
	switch c.state {
	case StateDisconnected:
		if c.used {
			c.mu.Unlock()
			return
		}
		c.used = true
		c.mu.Unlock()
		c.closeEvents()
		c.markDisconnected()
		return

	case StateClosing:
		c.mu.Unlock()
		<-c.disconnected
		return

	case StateConnecting:
		c.state = StateClosing
		cancel := c.cancelDial
		c.mu.Unlock()
		c.signalStop()
		if cancel != nil {
			cancel()
		}
		<-c.connectDone
		c.finishDisconnect()
		return
	}

	prev := c.state
	c.state = StateClosing
	conn := c.conn
	c.mu.Unlock()

	c.signalStop()
	if conn != nil {
		if prev != StateFailed {
			select {
			case <-c.writeDone:
			case <-time.After(closeTimeout):
			}
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(closeTimeout))
			select {
			case <-c.readDone:
			case <-time.After(closeTimeout):
			}
		}
		_ = conn.Close()
		<-c.readDone
		<-c.writeDone
	}
	c.finishDisconnect()

	if c.d.logger != nil {
		c.d.logger.Info("🔌 Streaming connection closed", zap.String("from", prev.String()))
	}
}

func (c *Client) finishDisconnect() {
	c.mu.Lock()
	c.state = StateDisconnected
	c.mu.Unlock()
	c.markDisconnected()
}

func (c *Client) markDisconnected() {
	c.disconnectedOnce.Do(func() { close(c.disconnected) })
}

func (c *Client) signalStop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Client) closeEvents() {
	c.eventsOnce.Do(func() { close(c.events) })
}

func (c *Client) setCause(err error) {
	c.causeMu.Lock()
	defer c.causeMu.Unlock()
	if c.cause == nil {
		c.cause = err
	}
}

func (c *Client) getCause() error {
	c.causeMu.Lock()
	defer c.causeMu.Unlock()
	return c.cause
}

func (c *Client) writeLoop(conn *websocket.Conn) {
	defer close(c.writeDone)

	for {
		select {
		case chunk := <-c.audio:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
				c.setCause(fmt.Errorf("failed to send audio: %w", err))
				_ = conn.Close()
				return
			}
			c.d.metrics.RecordChunkSent()
		case <-c.stop:
			_ = conn.SetWriteDeadline(time.Now().Add(closeTimeout))
			_ = conn.WriteMessage(websocket.TextMessage, c.d.codec.terminateMessage())
			return
		case <-c.readDone:
			return
		}
	}
}

func (c *Client) readLoop(conn *websocket.Conn) {
	defer close(c.readDone)
	defer c.closeEvents()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if cause := c.getCause(); cause != nil {
				err = cause
			}
			c.fail(conn, fmt.Errorf("connection lost: %w", err))
			return
		}

		fr, err := c.d.codec.decode(payload)
		if err != nil {
			if c.d.logger != nil {
				c.d.logger.Warn("⚠️ Ignoring backend message", zap.Error(err))
			}
			continue
		}

		switch fr.kind {
		case frameFragment:
			c.emit(ports.StreamEvent{Type: ports.StreamEventFragment, Fragment: fr.fragment})
		case frameError:
			c.fail(conn, fmt.Errorf("backend error: %s", fr.message))
			return
		case frameClose:
			c.fail(conn, errors.New("backend closed the stream"))
			return
		}
	}
}

// fail moves a live connection to FAILED and emits the single terminal error.
// Failures observed while closing are expected and stay silent.
func (c *Client) fail(conn *websocket.Conn, err error) {
	c.mu.Lock()
	live := c.state.streaming()
	if live {
		c.state = StateFailed
	}
	c.mu.Unlock()

	_ = conn.Close()
	if !live {
		return
	}

	if c.d.logger != nil {
		c.d.logger.Error("❌ Streaming connection failed", zap.Error(err))
	}
	c.emit(ports.StreamEvent{
		Type: ports.StreamEventError,
		Err:  fmt.Errorf("%w: %v", entities.ErrConnection, err),
	})
}

func (c *Client) emit(ev ports.StreamEvent) {
	select {
	case c.events <- ev:
	case <-c.stop:
	}
}
