package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/johnquangdev/minutemaestro/internal/domain/entities"
	"github.com/johnquangdev/minutemaestro/internal/domain/ports"
	"github.com/johnquangdev/minutemaestro/internal/infrastructure/metrics"
)

// Capture slices a raw microphone stream into fixed-duration frames and
// publishes a volume level per frame.
type Capture struct {
	source      Source
	frameBytes  int
	chunkBuffer int
	logger      *zap.Logger
	metrics     *metrics.Metrics
}

// NewCapture creates a capture reading frameBytes-sized frames from source
func NewCapture(source Source, frameBytes, chunkBuffer int, logger *zap.Logger, m *metrics.Metrics) *Capture {
	if frameBytes < 2 {
		frameBytes = 3200
	}
	frameBytes -= frameBytes % 2
	if chunkBuffer <= 0 {
		chunkBuffer = 32
	}
	return &Capture{
		source:      source,
		frameBytes:  frameBytes,
		chunkBuffer: chunkBuffer,
		logger:      logger,
		metrics:     m,
	}
}

// Start opens the device and begins producing chunks
func (c *Capture) Start(ctx context.Context) (ports.AudioStream, error) {
	raw, err := c.source.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entities.ErrDeviceUnavailable, err)
	}

	s := &stream{
		raw:        raw,
		frameBytes: c.frameBytes,
		chunks:     make(chan []byte, c.chunkBuffer),
		levels:     make(chan float64, 1),
		done:       make(chan struct{}),
		logger:     c.logger,
		metrics:    c.metrics,
	}
	go s.readLoop()

	if c.logger != nil {
		c.logger.Info("🎙️ Microphone capture started", zap.Int("frame_bytes", c.frameBytes))
	}
	return s, nil
}

type stream struct {
	raw        RawStream
	frameBytes int

	chunks chan []byte
	levels chan float64
	done   chan struct{}

	paused  atomic.Bool
	stopped atomic.Bool

	errMu sync.Mutex
	err   error

	stopOnce sync.Once
	stopErr  error

	logger  *zap.Logger
	metrics *metrics.Metrics
}

func (s *stream) Chunks() <-chan []byte  { return s.chunks }
func (s *stream) Levels() <-chan float64 { return s.levels }

// Pause keeps draining the device but drops frames and freezes the level
func (s *stream) Pause() { s.paused.Store(true) }

func (s *stream) Resume() { s.paused.Store(false) }

// Stop releases the device and waits for the read loop to exit
func (s *stream) Stop() error {
	s.stopOnce.Do(func() {
		s.stopped.Store(true)
		s.stopErr = s.raw.Stop()
		<-s.done
		if s.logger != nil {
			s.logger.Info("🎙️ Microphone capture stopped")
		}
	})
	return s.stopErr
}

// Err reports a capture failure that was not caused by Stop
func (s *stream) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *stream) readLoop() {
	defer close(s.done)
	defer close(s.chunks)

	for {
		frame := make([]byte, s.frameBytes)
		_, err := io.ReadFull(s.raw, frame)
		if err != nil {
			if !s.stopped.Load() {
				s.fail(err)
			}
			return
		}
		s.metrics.RecordFrameCaptured()

		if s.paused.Load() {
			continue
		}

		s.publishLevel(Level(frame))

		select {
		case s.chunks <- frame:
		default:
			s.metrics.RecordChunkDropped("capture_backpressure")
		}
	}
}

func (s *stream) publishLevel(v float64) {
	select {
	case s.levels <- v:
		return
	default:
	}
	select {
	case <-s.levels:
	default:
	}
	select {
	case s.levels <- v:
	default:
	}
}

func (s *stream) fail(err error) {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		err = errors.New("recorder closed its output")
	}
	s.errMu.Lock()
	s.err = fmt.Errorf("%w: %v", entities.ErrDeviceUnavailable, err)
	s.errMu.Unlock()

	if s.logger != nil {
		s.logger.Error("❌ Microphone capture failed", zap.Error(err))
	}
	_ = s.raw.Stop()
}
