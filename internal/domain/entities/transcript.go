package entities

import "time"

// Fragment is one incremental recognition result received from the streaming backend
type Fragment struct {
	SequenceIndex int
	Text          string
	IsFinal       bool
	Speaker       string
}

// TranscriptEntry is one utterance of the live transcript.
// A provisional entry may be replaced once by a final entry with the same index.
type TranscriptEntry struct {
	SequenceIndex int       `json:"sequence_index"`
	Speaker       string    `json:"speaker,omitempty"`
	Text          string    `json:"text"`
	IsFinal       bool      `json:"is_final"`
	Timestamp     time.Time `json:"timestamp"`
}
