package bootstrap

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/johnquangdev/minutemaestro/internal/infrastructure/audio"
	"github.com/johnquangdev/minutemaestro/internal/infrastructure/external/streaming"
	"github.com/johnquangdev/minutemaestro/internal/infrastructure/metrics"
	"github.com/johnquangdev/minutemaestro/internal/usecase/minutes"
	"github.com/johnquangdev/minutemaestro/internal/usecase/session"
	pkgai "github.com/johnquangdev/minutemaestro/pkg/ai"
	"github.com/johnquangdev/minutemaestro/pkg/config"
)

// Services is the assembled runtime graph.
type Services struct {
	Controller *session.Controller
	Minutes    *minutes.Service
	Dialer     *streaming.Dialer
	Metrics    *metrics.Metrics
	Registry   *prometheus.Registry
	Config     *config.Config
}

// Build wires all backend dependencies for the current runtime.
func Build(cfg *config.Config, logger *zap.Logger) (Services, error) {
	if cfg == nil {
		return Services{}, fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics(registry)

	dialer, err := streaming.NewDialer(cfg.Streaming, cfg.Audio.SampleRate, logger.Named("streaming"), m)
	if err != nil {
		return Services{}, fmt.Errorf("failed to build streaming dialer: %w", err)
	}

	capture := audio.NewCapture(
		audio.NewFFmpegSource(cfg.Audio),
		cfg.Audio.FrameBytes(),
		cfg.Audio.ChunkBuffer,
		logger.Named("audio"),
		m,
	)

	summarizer := minutes.NewService(
		pkgai.NewGroqClient(&cfg.Groq),
		cfg.Groq.Language,
		logger.Named("minutes"),
		m,
	)

	controller := session.NewController(
		capture,
		dialer,
		summarizer,
		cfg.Session,
		logger.Named("session"),
		m,
	)

	return Services{
		Controller: controller,
		Minutes:    summarizer,
		Dialer:     dialer,
		Metrics:    m,
		Registry:   registry,
		Config:     cfg,
	}, nil
}
