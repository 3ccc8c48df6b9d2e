package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/johnquangdev/minutemaestro/pkg/config"
)

const minutesSystemPrompt = `You write meeting minutes from a transcript.
Each transcript line has the form [MM:SS Speaker]: text.
Respond with a single JSON object and nothing else:
{"summary": string, "decisions": [string], "action_items": [{"owner": string, "task": string}]}
Use an empty list when there are no decisions or action items.
Leave owner empty when nobody took the task explicitly.
Write all values in %s.`

// GroqClient is a minimal client for Groq chat completions used for meeting minutes
type GroqClient struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
	client      *http.Client
}

// NewGroqClient creates a Groq client using values from the provided config.
// Pass a nil config to fall back to environment variables.
func NewGroqClient(cfg *config.GroqConfig) *GroqClient {
	g := &GroqClient{
		baseURL:     "https://api.groq.com",
		model:       "llama-3.3-70b-versatile",
		temperature: 0.2,
		maxTokens:   2048,
		client:      &http.Client{Timeout: 30 * time.Second},
	}
	if cfg != nil {
		g.apiKey = cfg.APIKey
		if cfg.BaseURL != "" {
			g.baseURL = cfg.BaseURL
		}
		if cfg.Model != "" {
			g.model = cfg.Model
		}
		g.temperature = cfg.Temperature
		if cfg.MaxTokens > 0 {
			g.maxTokens = cfg.MaxTokens
		}
		if cfg.Timeout > 0 {
			g.client.Timeout = cfg.Timeout
		}
	}
	if g.apiKey == "" {
		g.apiKey = os.Getenv("GROQ_API_KEY")
	}
	return g
}

// ChatMessage is one message of a chat completion request
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ResponseFormat constrains the shape of the completion
type ResponseFormat struct {
	Type string `json:"type"`
}

// ChatRequest is the shape for chat completion requests
type ChatRequest struct {
	Model          string          `json:"model,omitempty"`
	Messages       []ChatMessage   `json:"messages,omitempty"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

// ChatResponse is a minimal response shape
type ChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// StatusError is returned when Groq answers with a non-2xx status
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("groq returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("groq returned status %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether the request may succeed when repeated
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// IsRetryable reports whether err is worth retrying. Transport errors are,
// client errors other than rate limiting are not.
func IsRetryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// GenerateMinutes sends the formatted transcript to Groq and returns the
// assistant content, expected to be a JSON object
func (g *GroqClient) GenerateMinutes(ctx context.Context, transcript string, language string) (string, error) {
	if language == "" {
		language = "English"
	}
	return g.Complete(ctx, []ChatMessage{
		{Role: "system", Content: fmt.Sprintf(minutesSystemPrompt, language)},
		{Role: "user", Content: transcript},
	}, true)
}

// Complete runs one chat completion and returns the first choice
func (g *GroqClient) Complete(ctx context.Context, messages []ChatMessage, jsonMode bool) (string, error) {
	reqBody := ChatRequest{
		Model:       g.model,
		Messages:    messages,
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
	}
	if jsonMode {
		reqBody.ResponseFormat = &ResponseFormat{Type: "json_object"}
	}

	b, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	endpoint := g.baseURL + "/openai/v1/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &StatusError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(body))}
	}

	var cr ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", fmt.Errorf("failed to decode groq response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("empty response from groq")
	}
	return cr.Choices[0].Message.Content, nil
}
