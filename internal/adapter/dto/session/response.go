package session

import "time"

// TranscriptEntryResponse is one transcript line
type TranscriptEntryResponse struct {
	SequenceIndex int       `json:"sequence_index"`
	Speaker       string    `json:"speaker,omitempty"`
	Text          string    `json:"text"`
	IsFinal       bool      `json:"is_final"`
	Timestamp     time.Time `json:"timestamp"`
}

// SessionResponse represents the live session state
type SessionResponse struct {
	SessionID      string                    `json:"session_id,omitempty"`
	Status         string                    `json:"status"`
	Transcript     []TranscriptEntryResponse `json:"transcript"`
	FinalizedCount int                       `json:"finalized_count"`
	Volume         float64                   `json:"volume"`
	Error          string                    `json:"error,omitempty"`
	StartedAt      *time.Time                `json:"started_at,omitempty"`
}

// ActionItemResponse is one task from the minutes
type ActionItemResponse struct {
	Owner string `json:"owner,omitempty"`
	Task  string `json:"task"`
}

// MinutesResponse represents generated meeting minutes
type MinutesResponse struct {
	Summary     string               `json:"summary"`
	Decisions   []string             `json:"decisions"`
	ActionItems []ActionItemResponse `json:"action_items"`
	GeneratedAt time.Time            `json:"generated_at"`
}

// EventMessage is pushed over the events websocket. The first message of a
// connection has type "snapshot" and carries the whole session.
type EventMessage struct {
	Type      string                   `json:"type"`
	SessionID string                   `json:"session_id,omitempty"`
	Status    string                   `json:"status,omitempty"`
	Entry     *TranscriptEntryResponse `json:"entry,omitempty"`
	Volume    *float64                 `json:"volume,omitempty"`
	Error     string                   `json:"error,omitempty"`
	Session   *SessionResponse         `json:"session,omitempty"`
	At        time.Time                `json:"at"`
}
