package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/johnquangdev/minutemaestro/pkg/config"
)

func TestGroqGenerateMinutes(t *testing.T) {
	t.Parallel()

	var got ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/openai/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"summary\":\"ok\"}"}}]}`))
	}))
	defer srv.Close()

	client := NewGroqClient(&config.GroqConfig{APIKey: "test-key", BaseURL: srv.URL, Model: "m-1", MaxTokens: 100})
	content, err := client.GenerateMinutes(context.Background(), "[00:00 A]: hi", "French")
	if err != nil {
		t.Fatalf("GenerateMinutes failed: %v", err)
	}
	if content != `{"summary":"ok"}` {
		t.Fatalf("unexpected content %q", content)
	}
	if got.Model != "m-1" || got.MaxTokens != 100 {
		t.Fatalf("unexpected request %+v", got)
	}
	if got.ResponseFormat == nil || got.ResponseFormat.Type != "json_object" {
		t.Fatalf("expected json response format")
	}
	if len(got.Messages) != 2 || !strings.Contains(got.Messages[0].Content, "French") || got.Messages[1].Content != "[00:00 A]: hi" {
		t.Fatalf("unexpected messages %+v", got.Messages)
	}
}

func TestGroqStatusErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		status    int
		retryable bool
	}{
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
		{http.StatusTooManyRequests, true},
		{http.StatusBadGateway, true},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", tc.status)
		}))

		client := NewGroqClient(&config.GroqConfig{APIKey: "k", BaseURL: srv.URL})
		_, err := client.GenerateMinutes(context.Background(), "x", "")
		srv.Close()

		var se *StatusError
		if !errors.As(err, &se) || se.StatusCode != tc.status {
			t.Fatalf("status %d: expected StatusError, got %v", tc.status, err)
		}
		if se.Body != "nope" {
			t.Fatalf("status %d: expected body in error, got %q", tc.status, se.Body)
		}
		if IsRetryable(err) != tc.retryable {
			t.Fatalf("status %d: expected retryable=%v", tc.status, tc.retryable)
		}
	}
}

func TestGroqEmptyChoices(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	client := NewGroqClient(&config.GroqConfig{APIKey: "k", BaseURL: srv.URL})
	if _, err := client.GenerateMinutes(context.Background(), "x", ""); err == nil {
		t.Fatalf("expected empty response error")
	}
}

func TestIsRetryableContextErrors(t *testing.T) {
	t.Parallel()

	if IsRetryable(context.Canceled) || IsRetryable(context.DeadlineExceeded) {
		t.Fatalf("context errors must not be retried")
	}
	if !IsRetryable(errors.New("connection reset by peer")) {
		t.Fatalf("transport errors should be retried")
	}
}
