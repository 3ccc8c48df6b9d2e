package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/johnquangdev/minutemaestro/internal/domain/entities"
	"github.com/johnquangdev/minutemaestro/internal/domain/ports"
	"github.com/johnquangdev/minutemaestro/internal/infrastructure/metrics"
	"github.com/johnquangdev/minutemaestro/pkg/config"
	"github.com/johnquangdev/minutemaestro/pkg/jobcontext"
)

// Service is the live session surface used by the HTTP and CLI adapters
type Service interface {
	Connect(ctx context.Context) error
	Pause()
	Resume()
	Disconnect()
	Reset()
	GenerateMinutes(ctx context.Context) (*entities.MeetingMinutes, error)
	View() entities.SessionView
	Status() entities.SessionStatus
	Subscribe(buffer int) (<-chan entities.SessionEvent, func())
}

// Controller owns the session status machine and the transcript.
//
// Every mutation happens under mu and is checked against the current
// liveSession, so audio, levels and fragments that arrive after a
// disconnect or a failure are discarded.
type Controller struct {
	capture    ports.AudioCapture
	dialer     ports.StreamingDialer
	summarizer ports.Summarizer
	cfg        config.SessionConfig
	logger     *zap.Logger
	metrics    *metrics.Metrics
	now        func() time.Time

	mu         sync.Mutex
	status     entities.SessionStatus
	sessionID  uuid.UUID
	startedAt  *time.Time
	epoch      uint64
	assembler  *TranscriptAssembler
	volume     float64
	lastError  string
	live       *liveSession
	minutesSeq uint64
	inflight   map[uint64]context.CancelFunc

	observers *observers
}

// Option customizes a Controller
type Option func(*Controller)

// WithClock replaces the wall clock used for transcript timestamps
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// NewController constructs an idle session controller
func NewController(
	capture ports.AudioCapture,
	dialer ports.StreamingDialer,
	summarizer ports.Summarizer,
	cfg config.SessionConfig,
	logger *zap.Logger,
	m *metrics.Metrics,
	opts ...Option,
) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Controller{
		capture:    capture,
		dialer:     dialer,
		summarizer: summarizer,
		cfg:        cfg,
		logger:     logger,
		metrics:    m,
		now:        time.Now,
		status:     entities.SessionStatusIdle,
		assembler:  NewTranscriptAssembler(),
		inflight:   make(map[uint64]context.CancelFunc),
		observers:  newObservers(),
	}
	for _, opt := range opts {
		opt(c)
	}
	m.SetStatus(c.status)
	return c
}

// Connect opens the microphone and the streaming connection. It is valid
// from IDLE, which starts a fresh transcript, and from ERROR, which keeps the
// transcript gathered so far. Other statuses make it a no-op.
//
// The session outlives ctx; only the handshake is bound to it.
func (c *Controller) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.status != entities.SessionStatusIdle && c.status != entities.SessionStatusError {
		c.mu.Unlock()
		return nil
	}
	if c.status == entities.SessionStatusIdle {
		c.assembler.Reset()
		c.epoch++
		c.sessionID = uuid.New()
		started := c.now()
		c.startedAt = &started
		c.metrics.RecordSessionStarted()
	}

	sessionCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	ls := &liveSession{
		id:     c.sessionID,
		epoch:  c.epoch,
		offset: c.assembler.NextIndex(),
		cancel: cancel,
	}
	c.live = ls
	c.lastError = ""
	c.volume = 0
	c.setStatusLocked(entities.SessionStatusConnecting)
	c.mu.Unlock()

	logger := c.logger.With(zap.String("session_id", ls.id.String()))
	logger.Info("Connecting session", zap.Int("index_offset", ls.offset))

	stream, err := c.capture.Start(sessionCtx)
	if err != nil {
		return c.abortConnect(ls, err)
	}
	client := c.dialer.NewClient()

	c.mu.Lock()
	if c.live != ls {
		c.mu.Unlock()
		_ = stream.Stop()
		client.Disconnect()
		cancel()
		return fmt.Errorf("%w: session disconnected while connecting", entities.ErrAbandoned)
	}
	ls.stream = stream
	ls.client = client
	ls.wg.Add(2)
	c.mu.Unlock()

	go c.pumpAudio(ls, stream, client)
	go c.consumeEvents(ls, client)

	connectCtx, connectCancel := jobcontext.JobBegin(ctx, ls.id, jobcontext.JobTypeConnect, ls.epoch, c.cfg.ConnectTimeout)
	err = client.Connect(connectCtx)
	elapsed := jobcontext.Elapsed(connectCtx)
	connectCancel()

	c.mu.Lock()
	if c.live != ls {
		failure := ls.err
		c.mu.Unlock()
		if failure != nil {
			return failure
		}
		return fmt.Errorf("%w: session disconnected while connecting", entities.ErrAbandoned)
	}
	if err != nil {
		c.live = nil
		c.failLocked(ls, err)
		c.mu.Unlock()
		ls.teardown()
		logger.Error("Streaming connection failed", zap.Error(err), zap.Duration("elapsed", elapsed))
		return err
	}
	c.setStatusLocked(entities.SessionStatusRecording)
	c.mu.Unlock()

	logger.Info("Session recording", zap.Duration("handshake", elapsed))
	return nil
}

func (c *Controller) abortConnect(ls *liveSession, err error) error {
	c.mu.Lock()
	if c.live != ls {
		c.mu.Unlock()
		ls.cancel()
		return fmt.Errorf("%w: session disconnected while connecting", entities.ErrAbandoned)
	}
	c.live = nil
	c.failLocked(ls, err)
	c.mu.Unlock()

	ls.teardown()
	c.logger.Error("Audio capture unavailable", zap.String("session_id", ls.id.String()), zap.Error(err))
	return err
}

// Pause stops forwarding audio while keeping the connection open. Only valid
// from RECORDING.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != entities.SessionStatusRecording || c.live == nil {
		return
	}
	c.live.stream.Pause()
	c.live.client.PauseSend()
	c.setStatusLocked(entities.SessionStatusPaused)
}

// Resume restarts audio forwarding. Only valid from PAUSED.
func (c *Controller) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != entities.SessionStatusPaused || c.live == nil {
		return
	}
	c.live.stream.Resume()
	c.live.client.ResumeSend()
	c.setStatusLocked(entities.SessionStatusRecording)
}

// Disconnect ends the session. The microphone and the connection are released
// before it returns. The status becomes COMPLETED when any transcript exists
// and IDLE otherwise. It is a no-op from IDLE and COMPLETED.
func (c *Controller) Disconnect() {
	c.mu.Lock()
	if c.status == entities.SessionStatusIdle || c.status == entities.SessionStatusCompleted {
		c.mu.Unlock()
		return
	}
	ls := c.live
	c.live = nil
	c.volume = 0
	c.lastError = ""
	next := entities.SessionStatusIdle
	if c.assembler.Len() > 0 {
		next = entities.SessionStatusCompleted
	}
	c.setStatusLocked(next)
	c.mu.Unlock()

	if ls == nil {
		return
	}
	ls.teardown()
	ls.wg.Wait()
	c.logger.Info("Session disconnected", zap.String("session_id", ls.id.String()), zap.String("status", next.String()))
}

// Reset discards the transcript and returns to IDLE. Minutes requests still
// in flight are cancelled and their results discarded.
func (c *Controller) Reset() {
	c.Disconnect()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status.IsLive() {
		// a new session started between Disconnect and here
		return
	}
	for id, cancel := range c.inflight {
		cancel()
		delete(c.inflight, id)
	}
	c.assembler.Reset()
	c.epoch++
	c.sessionID = uuid.Nil
	c.startedAt = nil
	c.volume = 0
	c.lastError = ""
	c.setStatusLocked(entities.SessionStatusIdle)
}

// GenerateMinutes summarizes the finalized transcript as it stands at call
// time. The session status is not changed, so recording continues while the
// summarizer runs. A result that arrives after Reset is discarded.
func (c *Controller) GenerateMinutes(ctx context.Context) (*entities.MeetingMinutes, error) {
	c.mu.Lock()
	if !c.status.CanSummarize() {
		status := c.status
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: no transcript to summarize in status %s", entities.ErrSummarization, status)
	}
	snapshot := c.assembler.Snapshot()
	if len(snapshot) == 0 {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: transcript has no finalized entries", entities.ErrSummarization)
	}
	epoch := c.epoch
	sessionID := c.sessionID
	jobCtx, cancel := jobcontext.JobBegin(ctx, sessionID, jobcontext.JobTypeMinutes, epoch, c.cfg.MinutesTimeout)
	c.minutesSeq++
	requestID := c.minutesSeq
	c.inflight[requestID] = cancel
	c.mu.Unlock()

	c.metrics.RecordMinutesRequest()
	logger := c.logger.With(zap.String("session_id", sessionID.String()), zap.Uint64("request", requestID))
	logger.Info("Generating minutes", zap.Int("entries", len(snapshot)))

	minutes, err := c.summarizer.Summarize(jobCtx, snapshot)
	elapsed := jobcontext.Elapsed(jobCtx)
	timedOut := errors.Is(jobCtx.Err(), context.DeadlineExceeded)
	cancel()

	c.mu.Lock()
	delete(c.inflight, requestID)
	stale := c.epoch != epoch
	c.mu.Unlock()

	if stale {
		c.metrics.RecordMinutesDiscarded()
		logger.Warn("Discarding minutes for a reset session")
		return nil, fmt.Errorf("%w: %w: session was reset", entities.ErrSummarization, entities.ErrAbandoned)
	}
	if err != nil {
		c.metrics.RecordMinutesResult(false, elapsed.Seconds())
		switch {
		case timedOut:
			err = fmt.Errorf("%w: %w: no result after %s", entities.ErrSummarization, entities.ErrTimeout, c.cfg.MinutesTimeout)
		case !errors.Is(err, entities.ErrSummarization):
			err = fmt.Errorf("%w: %w", entities.ErrSummarization, err)
		}
		logger.Error("Minutes generation failed", zap.Error(err), zap.Duration("elapsed", elapsed))
		return nil, err
	}

	c.metrics.RecordMinutesResult(true, elapsed.Seconds())
	logger.Info("Minutes generated",
		zap.Int("decisions", len(minutes.Decisions)),
		zap.Int("action_items", len(minutes.ActionItems)),
		zap.Duration("elapsed", elapsed),
	)
	return minutes, nil
}

// View returns a consistent copy of the session state
func (c *Controller) View() entities.SessionView {
	c.mu.Lock()
	defer c.mu.Unlock()

	view := entities.SessionView{
		SessionID:  c.sessionID,
		Status:     c.status,
		Transcript: c.assembler.Entries(),
		Volume:     c.volume,
		Error:      c.lastError,
	}
	if c.startedAt != nil {
		started := *c.startedAt
		view.StartedAt = &started
	}
	return view
}

// Status returns the current session status
func (c *Controller) Status() entities.SessionStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Subscribe registers an observer. Events are dropped for observers that do
// not keep up. The returned func unsubscribes and closes the channel.
func (c *Controller) Subscribe(buffer int) (<-chan entities.SessionEvent, func()) {
	if buffer <= 0 {
		buffer = c.cfg.ObserverBuffer
	}
	return c.observers.subscribe(buffer)
}

// dropReason is empty when a chunk from ls may be forwarded
func (c *Controller) dropReason(ls *liveSession) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.live != ls:
		return "stale"
	case c.status == entities.SessionStatusPaused:
		return "paused"
	}
	return ""
}

func (c *Controller) setVolume(ls *liveSession, v float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.live != ls || c.status != entities.SessionStatusRecording {
		return
	}
	c.volume = v
	c.observers.publish(entities.SessionEvent{
		Type:      entities.SessionEventVolume,
		SessionID: c.sessionID,
		Status:    c.status,
		Volume:    v,
		At:        c.now(),
	})
}

func (c *Controller) applyFragment(ls *liveSession, ev ports.StreamEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.live != ls {
		c.metrics.RecordFragment(false)
		return
	}
	f := ev.Fragment
	f.SequenceIndex += ls.offset
	entry, changed := c.assembler.Apply(f, c.now())
	c.metrics.RecordFragment(changed)
	if !changed {
		return
	}
	c.observers.publish(entities.SessionEvent{
		Type:      entities.SessionEventTranscript,
		SessionID: c.sessionID,
		Status:    c.status,
		Entry:     &entry,
		At:        c.now(),
	})
}

// handleFailure moves a live session to ERROR and releases its resources
func (c *Controller) handleFailure(ls *liveSession, err error) {
	c.mu.Lock()
	if c.live != ls {
		c.mu.Unlock()
		return
	}
	c.live = nil
	c.failLocked(ls, err)
	c.mu.Unlock()

	c.logger.Error("Session failed", zap.String("session_id", ls.id.String()), zap.Error(err))
	ls.teardown()
}

func (c *Controller) failLocked(ls *liveSession, err error) {
	if err == nil {
		err = entities.ErrConnection
	}
	ls.err = err
	c.lastError = err.Error()
	c.volume = 0
	c.metrics.RecordSessionError(errorKind(err))
	c.setStatusLocked(entities.SessionStatusError)
	c.observers.publish(entities.SessionEvent{
		Type:      entities.SessionEventError,
		SessionID: c.sessionID,
		Status:    c.status,
		Error:     c.lastError,
		At:        c.now(),
	})
}

func (c *Controller) setStatusLocked(status entities.SessionStatus) {
	if c.status == status {
		return
	}
	c.status = status
	c.metrics.SetStatus(status)
	c.observers.publish(entities.SessionEvent{
		Type:      entities.SessionEventStatus,
		SessionID: c.sessionID,
		Status:    status,
		Error:     c.lastError,
		At:        c.now(),
	})
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, entities.ErrDeviceUnavailable):
		return "device"
	case errors.Is(err, entities.ErrTimeout):
		return "timeout"
	case errors.Is(err, entities.ErrConnection):
		return "connection"
	default:
		return "other"
	}
}
