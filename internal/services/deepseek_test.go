package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/avelara/setlist/internal/shared"
)

func TestDeepSeekService(t *testing.T) {
	t.Run("Requires API Key", func(t *testing.T) {
		if _, err := NewDeepSeekService("", DeepSeekOpts{}); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("Score", func(t *testing.T) {
		var received chatRequest
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/chat/completions" {
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
			if got := r.Header.Get("Authorization"); got != "Bearer test_key" {
				t.Errorf("unexpected auth header: %s", got)
			}
			json.NewDecoder(r.Body).Decode(&received)

			json.NewEncoder(w).Encode(map[string]any{
				"choices": []map[string]any{
					{"message": map[string]any{"role": "assistant", "content": `[{"track_number": 1}]`}},
				},
			})
		}))
		defer ts.Close()

		svc, err := NewDeepSeekService("test_key", DeepSeekOpts{BaseURL: ts.URL})
		if err != nil {
			t.Fatal(err)
		}

		response, err := svc.Score(context.Background(), "system text", "user text")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if response != `[{"track_number": 1}]` {
			t.Errorf("unexpected response: %q", response)
		}

		if received.Model != "deepseek-chat" {
			t.Errorf("expected default model, got %q", received.Model)
		}
		if received.Temperature != 0.1 {
			t.Errorf("expected temperature 0.1, got %v", received.Temperature)
		}
		if len(received.Messages) != 2 || received.Messages[0].Role != "system" || received.Messages[1].Content != "user text" {
			t.Errorf("unexpected messages: %+v", received.Messages)
		}
	})

	t.Run("Auth Failure", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer ts.Close()

		svc, err := NewDeepSeekService("bad_key", DeepSeekOpts{BaseURL: ts.URL})
		if err != nil {
			t.Fatal(err)
		}
		if _, err := svc.Score(context.Background(), "s", "u"); !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
	})

	t.Run("API Error Payload", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"message": "rate limited", "type": "rate_limit"},
			})
		}))
		defer ts.Close()

		svc, err := NewDeepSeekService("key", DeepSeekOpts{BaseURL: ts.URL})
		if err != nil {
			t.Fatal(err)
		}
		if _, err := svc.Score(context.Background(), "s", "u"); !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("Empty Response", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"choices": []map[string]any{}})
		}))
		defer ts.Close()

		svc, err := NewDeepSeekService("key", DeepSeekOpts{BaseURL: ts.URL})
		if err != nil {
			t.Fatal(err)
		}
		if _, err := svc.Score(context.Background(), "s", "u"); !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})
}
