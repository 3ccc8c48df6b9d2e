package streaming

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/johnquangdev/minutemaestro/internal/domain/entities"
	"github.com/johnquangdev/minutemaestro/pkg/config"
)

type frameKind int

const (
	frameIgnore frameKind = iota
	frameFragment
	frameError
	frameClose
)

type frame struct {
	kind     frameKind
	fragment entities.Fragment
	message  string
}

// codec translates one backend wire dialect
type codec interface {
	decode(payload []byte) (frame, error)
	terminateMessage() []byte
	authorize(h http.Header, apiKey string)
	prepareURL(u *url.URL, sampleRate int)
}

func newCodec(dialect string) (codec, error) {
	switch dialect {
	case config.DialectGeneric, "":
		return genericCodec{}, nil
	case config.DialectAssemblyAI:
		return assemblyAICodec{}, nil
	}
	return nil, fmt.Errorf("unsupported streaming dialect %q", dialect)
}

// genericCodec speaks the plain JSON protocol:
//
//	{"type":"transcript","sequence_index":3,"text":"hi","is_final":true,"speaker":"A"}
//	{"type":"error","message":"quota exceeded"}
//	{"type":"close"}
type genericCodec struct{}

type genericMessage struct {
	Type          string `json:"type"`
	SequenceIndex *int   `json:"sequence_index"`
	Text          string `json:"text"`
	IsFinal       bool   `json:"is_final"`
	Speaker       string `json:"speaker"`
	Message       string `json:"message"`
}

func (genericCodec) decode(payload []byte) (frame, error) {
	var msg genericMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return frame{}, fmt.Errorf("malformed backend message: %w", err)
	}

	switch strings.ToLower(msg.Type) {
	case "transcript", "fragment":
		if msg.SequenceIndex == nil {
			return frame{}, fmt.Errorf("transcript message without sequence_index")
		}
		return frame{kind: frameFragment, fragment: entities.Fragment{
			SequenceIndex: *msg.SequenceIndex,
			Text:          msg.Text,
			IsFinal:       msg.IsFinal,
			Speaker:       msg.Speaker,
		}}, nil
	case "error":
		message := strings.TrimSpace(msg.Message)
		if message == "" {
			message = "backend returned an unknown error"
		}
		return frame{kind: frameError, message: message}, nil
	case "close":
		return frame{kind: frameClose}, nil
	}
	return frame{kind: frameIgnore}, nil
}

func (genericCodec) terminateMessage() []byte {
	return []byte(`{"type":"terminate"}`)
}

func (genericCodec) authorize(h http.Header, apiKey string) {
	if apiKey != "" {
		h.Set("Authorization", "Bearer "+apiKey)
	}
}

func (genericCodec) prepareURL(u *url.URL, sampleRate int) {
	q := u.Query()
	q.Set("sample_rate", strconv.Itoa(sampleRate))
	q.Set("encoding", "pcm_s16le")
	u.RawQuery = q.Encode()
}

// assemblyAICodec speaks the AssemblyAI v3 realtime protocol. Turns become
// final once the backend reports end_of_turn on the formatted transcript.
type assemblyAICodec struct{}

type assemblyAIMessage struct {
	Type            string `json:"type"`
	TurnOrder       int    `json:"turn_order"`
	Transcript      string `json:"transcript"`
	EndOfTurn       bool   `json:"end_of_turn"`
	TurnIsFormatted bool   `json:"turn_is_formatted"`
	Error           string `json:"error"`
}

func (assemblyAICodec) decode(payload []byte) (frame, error) {
	var msg assemblyAIMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return frame{}, fmt.Errorf("malformed backend message: %w", err)
	}

	switch msg.Type {
	case "Turn":
		return frame{kind: frameFragment, fragment: entities.Fragment{
			SequenceIndex: msg.TurnOrder,
			Text:          msg.Transcript,
			IsFinal:       msg.EndOfTurn && msg.TurnIsFormatted,
		}}, nil
	case "Error":
		message := strings.TrimSpace(msg.Error)
		if message == "" {
			message = "assemblyai returned an unknown error"
		}
		return frame{kind: frameError, message: message}, nil
	case "Termination":
		return frame{kind: frameClose}, nil
	}
	// Begin and unknown types carry no transcript
	return frame{kind: frameIgnore}, nil
}

func (assemblyAICodec) terminateMessage() []byte {
	return []byte(`{"type":"Terminate"}`)
}

func (assemblyAICodec) authorize(h http.Header, apiKey string) {
	if apiKey != "" {
		h.Set("Authorization", apiKey)
	}
}

func (assemblyAICodec) prepareURL(u *url.URL, sampleRate int) {
	q := u.Query()
	q.Set("sample_rate", strconv.Itoa(sampleRate))
	q.Set("encoding", "pcm_s16le")
	q.Set("format_turns", "true")
	u.RawQuery = q.Encode()
}

// buildStreamURL normalizes http(s) base URLs to ws(s) and applies the dialect query
func buildStreamURL(base string, c codec, sampleRate int) (string, error) {
	base = strings.TrimSpace(base)
	if strings.HasPrefix(base, "https://") {
		base = "wss://" + strings.TrimPrefix(base, "https://")
	} else if strings.HasPrefix(base, "http://") {
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}

	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid streaming URL: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return "", fmt.Errorf("invalid streaming URL scheme %q", u.Scheme)
	}
	c.prepareURL(u, sampleRate)
	return u.String(), nil
}
