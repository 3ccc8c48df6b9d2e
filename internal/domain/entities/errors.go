package entities

import "errors"

// Domain errors
var (
	// Capture errors
	ErrDeviceUnavailable = errors.New("audio device unavailable")

	// Streaming errors
	ErrConnection = errors.New("streaming connection error")

	// Summarization errors
	ErrSummarization = errors.New("summarization failed")

	// Generic errors
	ErrTimeout   = errors.New("operation timed out")
	ErrAbandoned = errors.New("operation abandoned")
)
