package ports

import (
	"context"

	"github.com/johnquangdev/minutemaestro/internal/domain/entities"
)

// AudioCapture acquires the microphone and starts a capture stream
type AudioCapture interface {
	Start(ctx context.Context) (AudioStream, error)
}

// AudioStream delivers fixed-duration PCM chunks and volume levels until stopped.
// Chunks is closed after Stop or after a capture failure reported by Err.
type AudioStream interface {
	Chunks() <-chan []byte
	Levels() <-chan float64
	Pause()
	Resume()
	Stop() error
	Err() error
}

// StreamEventType identifies a StreamEvent
type StreamEventType int

const (
	StreamEventFragment StreamEventType = iota
	StreamEventError
)

// StreamEvent is emitted by a StreamingClient
type StreamEvent struct {
	Type     StreamEventType
	Fragment entities.Fragment
	Err      error
}

// StreamingClient carries exactly one connection to the streaming backend
type StreamingClient interface {
	Connect(ctx context.Context) error
	SendAudio(chunk []byte)
	PauseSend()
	ResumeSend()
	Disconnect()
	Events() <-chan StreamEvent
}

// StreamingDialer creates a fresh StreamingClient per connection attempt
type StreamingDialer interface {
	NewClient() StreamingClient
}

// Summarizer turns a finalized transcript into meeting minutes
type Summarizer interface {
	Summarize(ctx context.Context, entries []entities.TranscriptEntry) (*entities.MeetingMinutes, error)
}
