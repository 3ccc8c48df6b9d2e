package entities

import "time"

// ActionItem is a task extracted from the meeting
type ActionItem struct {
	Owner string `json:"owner,omitempty"`
	Task  string `json:"task" validate:"notblank"`
}

// MeetingMinutes is the structured result of summarizing a finalized transcript
type MeetingMinutes struct {
	Summary     string       `json:"summary" validate:"notblank"`
	Decisions   []string     `json:"decisions"`
	ActionItems []ActionItem `json:"action_items" validate:"dive"`
	GeneratedAt time.Time    `json:"generated_at"`
}
