package entities

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus is the lifecycle state of a live meeting session
type SessionStatus string

const (
	SessionStatusIdle       SessionStatus = "IDLE"
	SessionStatusConnecting SessionStatus = "CONNECTING"
	SessionStatusRecording  SessionStatus = "RECORDING"
	SessionStatusPaused     SessionStatus = "PAUSED"
	SessionStatusCompleted  SessionStatus = "COMPLETED"
	SessionStatusError      SessionStatus = "ERROR"
)

// String implements fmt.Stringer
func (s SessionStatus) String() string {
	return string(s)
}

// IsLive reports whether capture and streaming resources are held in this status
func (s SessionStatus) IsLive() bool {
	switch s {
	case SessionStatusConnecting, SessionStatusRecording, SessionStatusPaused:
		return true
	}
	return false
}

// CanSummarize reports whether minutes may be requested in this status.
// A failed session keeps its transcript, so ERROR qualifies.
func (s SessionStatus) CanSummarize() bool {
	switch s {
	case SessionStatusRecording, SessionStatusPaused, SessionStatusCompleted, SessionStatusError:
		return true
	}
	return false
}

// SessionView is the read model exposed to front ends
type SessionView struct {
	SessionID  uuid.UUID         `json:"session_id"`
	Status     SessionStatus     `json:"status"`
	Transcript []TranscriptEntry `json:"transcript"`
	Volume     float64           `json:"volume"`
	Error      string            `json:"error,omitempty"`
	StartedAt  *time.Time        `json:"started_at,omitempty"`
}

// FinalizedCount returns the number of finalized transcript entries in the view
func (v SessionView) FinalizedCount() int {
	n := 0
	for _, e := range v.Transcript {
		if e.IsFinal {
			n++
		}
	}
	return n
}
