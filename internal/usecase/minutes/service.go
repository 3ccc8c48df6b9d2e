package minutes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/johnquangdev/minutemaestro/internal/domain/entities"
	"github.com/johnquangdev/minutemaestro/internal/infrastructure/metrics"
	pkgai "github.com/johnquangdev/minutemaestro/pkg/ai"
	"github.com/johnquangdev/minutemaestro/pkg/jobcontext"
)

// Completer produces a JSON minutes document for a formatted transcript
type Completer interface {
	GenerateMinutes(ctx context.Context, transcript string, language string) (string, error)
}

// Service summarizes finalized transcripts through Groq
type Service struct {
	client   Completer
	parser   *Parser
	language string
	logger   *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time

	retryInitial    time.Duration
	retryMax        time.Duration
	retryMaxElapsed time.Duration
}

// Option customizes a Service
type Option func(*Service)

// WithRetry overrides the backoff applied to transient Groq failures
func WithRetry(initial, max, maxElapsed time.Duration) Option {
	return func(s *Service) {
		s.retryInitial = initial
		s.retryMax = max
		s.retryMaxElapsed = maxElapsed
	}
}

// WithClock replaces the clock used for GeneratedAt
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService constructs a minutes service
func NewService(client Completer, language string, logger *zap.Logger, m *metrics.Metrics, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		client:          client,
		parser:          NewParser(),
		language:        language,
		logger:          logger,
		metrics:         m,
		now:             time.Now,
		retryInitial:    time.Second,
		retryMax:        5 * time.Second,
		retryMaxElapsed: 20 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Summarize implements ports.Summarizer
func (s *Service) Summarize(ctx context.Context, entries []entities.TranscriptEntry) (*entities.MeetingMinutes, error) {
	transcript := FormatTranscript(entries)
	if transcript == "" {
		return nil, fmt.Errorf("%w: transcript is empty", entities.ErrSummarization)
	}

	logger := s.logger.With(jobcontext.LogFields(ctx)...)
	logger.Info("Requesting minutes from Groq",
		zap.Int("entries", len(entries)),
		zap.Int("text_length", len(transcript)),
		zap.String("language", s.language),
	)

	var content string
	attempt := 0
	op := func() error {
		attempt++
		out, err := s.client.GenerateMinutes(ctx, transcript, s.language)
		if err == nil {
			content = out
			return nil
		}
		if ctx.Err() != nil || !pkgai.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		s.metrics.RecordMinutesRetry()
		logger.Warn("Groq request failed, retrying", zap.Int("attempt", attempt), zap.Error(err))
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.retryInitial
	bo.MaxInterval = s.retryMax
	bo.MaxElapsedTime = s.retryMaxElapsed

	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = fmt.Errorf("%w: %w", ctxErr, err)
		}
		return nil, fmt.Errorf("%w: %w", entities.ErrSummarization, err)
	}

	minutes, err := s.parser.Parse(content, s.now())
	if err != nil {
		logger.Error("Failed to parse Groq minutes",
			zap.Error(err),
			zap.String("raw_response", content[:min(500, len(content))]),
		)
		return nil, err
	}
	return minutes, nil
}

// FormatTranscript renders entries as "[MM:SS Speaker]: text" lines, with
// times relative to the first entry
func FormatTranscript(entries []entities.TranscriptEntry) string {
	if len(entries) == 0 {
		return ""
	}
	start := entries[0].Timestamp

	var sb strings.Builder
	for _, e := range entries {
		text := strings.TrimSpace(e.Text)
		if text == "" {
			continue
		}
		offset := e.Timestamp.Sub(start)
		if offset < 0 {
			offset = 0
		}
		secs := int(offset / time.Second)
		speaker := e.Speaker
		if speaker == "" {
			speaker = "Speaker"
		}
		sb.WriteString(fmt.Sprintf("[%02d:%02d %s]: %s\n", secs/60, secs%60, speaker, text))
	}
	return sb.String()
}
