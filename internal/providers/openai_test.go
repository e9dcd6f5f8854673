package providers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestOpenAIGenerate(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		var payload map[string]any
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/chat/completions" {
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
			body, _ := io.ReadAll(r.Body)
			if err := json.Unmarshal(body, &payload); err != nil {
				t.Errorf("unmarshal body: %v", err)
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"id": "chatcmpl-1",
				"object": "chat.completion",
				"created": 1700000000,
				"model": "test-model",
				"choices": [{"index": 0, "message": {"role": "assistant", "content": " yes "}, "finish_reason": "stop"}],
				"usage": {"prompt_tokens": 9, "completion_tokens": 1, "total_tokens": 10}
			}`))
		}))
		defer server.Close()

		client := NewOpenAIClient(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL, DefaultModel: "test-model"})
		result, err := client.Generate(context.Background(), &Request{Prompt: "Is it?"})
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		if result.Text != "yes" {
			t.Errorf("Text = %q, want %q", result.Text, "yes")
		}
		if result.PromptTokens != 9 || result.CompletionTokens != 1 {
			t.Errorf("tokens = %d/%d, want 9/1", result.PromptTokens, result.CompletionTokens)
		}
		if got, _ := payload["model"].(string); got != "test-model" {
			t.Errorf("model = %q", got)
		}
		msgs, _ := payload["messages"].([]any)
		if len(msgs) != 1 {
			t.Fatalf("messages = %v, want one user message", payload["messages"])
		}
	})

	t.Run("empty choices", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[]}`))
		}))
		defer server.Close()

		client := NewOpenAIClient(OpenAIConfig{APIKey: "k", BaseURL: server.URL})
		_, err := client.Generate(context.Background(), &Request{Prompt: "p"})
		if !errors.Is(err, ErrMalformedEnvelope) || !errors.Is(err, ErrNoChoices) {
			t.Errorf("error = %v, want ErrMalformedEnvelope wrapping ErrNoChoices", err)
		}
	})

	t.Run("status error without sdk retries", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
		}))
		defer server.Close()

		client := NewOpenAIClient(OpenAIConfig{APIKey: "k", BaseURL: server.URL})
		_, err := client.Generate(context.Background(), &Request{Prompt: "p"})
		se, ok := IsStatusError(err)
		if !ok {
			t.Fatalf("error = %v, want StatusError", err)
		}
		if se.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("StatusCode = %d", se.StatusCode)
		}
		if calls.Load() != 1 {
			t.Errorf("server saw %d calls, want 1", calls.Load())
		}
	})
}

func TestOpenAIPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"id":"test-model","object":"model","created":1,"owned_by":"me"}]}`))
	}))
	defer server.Close()

	client := NewOpenAIClient(OpenAIConfig{APIKey: "k", BaseURL: server.URL})
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
}
