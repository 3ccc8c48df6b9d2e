package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/johnquangdev/minutemaestro/pkg/config"
)

// RawStream is an open microphone byte stream
type RawStream interface {
	io.Reader
	Stop() error
}

// Source opens raw s16le PCM streams from a recording device
type Source interface {
	Open(ctx context.Context) (RawStream, error)
}

// FFmpegSource records the microphone with an ffmpeg child process writing
// raw PCM to stdout.
type FFmpegSource struct {
	command      string
	inputFormat  string
	inputDevice  string
	sampleRate   int
	channels     int
	startupGrace time.Duration
	stopTimeout  time.Duration
}

// NewFFmpegSource creates a source from the audio configuration
func NewFFmpegSource(cfg config.AudioConfig) *FFmpegSource {
	s := &FFmpegSource{
		command:      cfg.FFmpegCommand,
		inputFormat:  cfg.InputFormat,
		inputDevice:  cfg.InputDevice,
		sampleRate:   cfg.SampleRate,
		channels:     cfg.Channels,
		startupGrace: cfg.StartupGrace,
		stopTimeout:  cfg.StopTimeout,
	}
	if s.command == "" {
		s.command = "ffmpeg"
	}
	if s.inputFormat == "" {
		s.inputFormat = "pulse"
	}
	if s.inputDevice == "" {
		s.inputDevice = "default"
	}
	if s.sampleRate <= 0 {
		s.sampleRate = 16000
	}
	if s.channels <= 0 {
		s.channels = 1
	}
	if s.startupGrace <= 0 {
		s.startupGrace = 250 * time.Millisecond
	}
	if s.stopTimeout <= 0 {
		s.stopTimeout = 1200 * time.Millisecond
	}
	return s
}

// Args returns the ffmpeg command line used to open the device
func (s *FFmpegSource) Args() []string {
	return []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", s.inputFormat,
		"-i", s.inputDevice,
		"-ac", strconv.Itoa(s.channels),
		"-ar", strconv.Itoa(s.sampleRate),
		"-f", "s16le",
		"-",
	}
}

// Open starts ffmpeg and waits a short grace period so that a missing or busy
// device is reported here rather than as an empty stream.
func (s *FFmpegSource) Open(ctx context.Context) (RawStream, error) {
	cmd := exec.CommandContext(ctx, s.command, s.Args()...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", s.command, err)
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
		close(waitErr)
	}()

	select {
	case err := <-waitErr:
		if err != nil {
			return nil, fmt.Errorf("ffmpeg exited before capture started: %w: %s", err, trimStderr(stderr.String()))
		}
		return nil, errors.New("ffmpeg exited before capture started")
	case <-time.After(s.startupGrace):
	}

	return &ffmpegStream{
		stdout:      stdout,
		stderr:      &stderr,
		process:     cmd.Process,
		waitErr:     waitErr,
		stopTimeout: s.stopTimeout,
	}, nil
}

type ffmpegStream struct {
	stdout io.ReadCloser
	stderr *bytes.Buffer

	process     *os.Process
	waitErr     <-chan error
	stopTimeout time.Duration

	stopOnce sync.Once
	stopErr  error
}

func (s *ffmpegStream) Read(p []byte) (int, error) {
	return s.stdout.Read(p)
}

// Stop interrupts ffmpeg and kills it when it does not exit in time
func (s *ffmpegStream) Stop() error {
	s.stopOnce.Do(func() {
		if s.process != nil {
			_ = s.process.Signal(os.Interrupt)
		}

		select {
		case err, ok := <-s.waitErr:
			if ok {
				s.stopErr = normalizeStopErr(err)
			}
		case <-time.After(s.stopTimeout):
			if s.process != nil {
				_ = s.process.Kill()
			}
			if err, ok := <-s.waitErr; ok {
				s.stopErr = normalizeStopErr(err)
			}
		}

		if closeErr := s.stdout.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
			if s.stopErr == nil {
				s.stopErr = closeErr
			}
		}

		if s.stopErr != nil && s.stderr != nil && s.stderr.Len() > 0 {
			s.stopErr = fmt.Errorf("%w: %s", s.stopErr, trimStderr(s.stderr.String()))
		}
	})

	return s.stopErr
}

// normalizeStopErr treats the exit status caused by our own interrupt as a clean stop
func normalizeStopErr(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

func trimStderr(input string) string {
	return string(bytes.TrimSpace([]byte(input)))
}
