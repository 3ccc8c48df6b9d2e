package entities

import (
	"time"

	"github.com/google/uuid"
)

// SessionEventType identifies what changed in a session notification
type SessionEventType string

const (
	SessionEventStatus     SessionEventType = "status"
	SessionEventTranscript SessionEventType = "transcript"
	SessionEventVolume     SessionEventType = "volume"
	SessionEventError      SessionEventType = "error"
)

// SessionEvent is pushed to session observers
type SessionEvent struct {
	Type      SessionEventType `json:"type"`
	SessionID uuid.UUID        `json:"session_id"`
	Status    SessionStatus    `json:"status"`
	Entry     *TranscriptEntry `json:"entry,omitempty"`
	Volume    float64          `json:"volume,omitempty"`
	Error     string           `json:"error,omitempty"`
	At        time.Time        `json:"at"`
}
