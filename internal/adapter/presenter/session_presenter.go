package presenter

import (
	"time"

	"github.com/google/uuid"

	"github.com/johnquangdev/minutemaestro/internal/adapter/dto/session"
	"github.com/johnquangdev/minutemaestro/internal/domain/entities"
)

// EventTypeSnapshot marks the first message of an events stream
const EventTypeSnapshot = "snapshot"

// ToSessionResponse converts a SessionView to SessionResponse DTO
func ToSessionResponse(v entities.SessionView) *session.SessionResponse {
	resp := &session.SessionResponse{
		Status:         v.Status.String(),
		Transcript:     make([]session.TranscriptEntryResponse, 0, len(v.Transcript)),
		FinalizedCount: v.FinalizedCount(),
		Volume:         v.Volume,
		Error:          v.Error,
		StartedAt:      v.StartedAt,
	}
	if v.SessionID != uuid.Nil {
		resp.SessionID = v.SessionID.String()
	}
	for _, e := range v.Transcript {
		resp.Transcript = append(resp.Transcript, ToTranscriptEntryResponse(e))
	}
	return resp
}

// ToTranscriptEntryResponse converts a TranscriptEntry to its DTO
func ToTranscriptEntryResponse(e entities.TranscriptEntry) session.TranscriptEntryResponse {
	return session.TranscriptEntryResponse{
		SequenceIndex: e.SequenceIndex,
		Speaker:       e.Speaker,
		Text:          e.Text,
		IsFinal:       e.IsFinal,
		Timestamp:     e.Timestamp,
	}
}

// ToMinutesResponse converts MeetingMinutes to MinutesResponse DTO
func ToMinutesResponse(m *entities.MeetingMinutes) *session.MinutesResponse {
	if m == nil {
		return nil
	}

	resp := &session.MinutesResponse{
		Summary:     m.Summary,
		Decisions:   m.Decisions,
		ActionItems: make([]session.ActionItemResponse, 0, len(m.ActionItems)),
		GeneratedAt: m.GeneratedAt,
	}
	if resp.Decisions == nil {
		resp.Decisions = []string{}
	}
	for _, item := range m.ActionItems {
		resp.ActionItems = append(resp.ActionItems, session.ActionItemResponse{
			Owner: item.Owner,
			Task:  item.Task,
		})
	}
	return resp
}

// ToEventMessage converts a SessionEvent to its websocket message
func ToEventMessage(ev entities.SessionEvent) session.EventMessage {
	msg := session.EventMessage{
		Type:   string(ev.Type),
		Status: ev.Status.String(),
		Error:  ev.Error,
		At:     ev.At,
	}
	if ev.SessionID != uuid.Nil {
		msg.SessionID = ev.SessionID.String()
	}
	if ev.Entry != nil {
		entry := ToTranscriptEntryResponse(*ev.Entry)
		msg.Entry = &entry
	}
	if ev.Type == entities.SessionEventVolume {
		volume := ev.Volume
		msg.Volume = &volume
	}
	return msg
}

// ToSnapshotMessage wraps the whole session view as the first events message
func ToSnapshotMessage(v entities.SessionView, at time.Time) session.EventMessage {
	resp := ToSessionResponse(v)
	return session.EventMessage{
		Type:      EventTypeSnapshot,
		SessionID: resp.SessionID,
		Status:    resp.Status,
		Session:   resp,
		At:        at,
	}
}
