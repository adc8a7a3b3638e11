// DeepSeek implementation of [Scorer]
//
// Uses the OpenAI-compatible chat completions endpoint: https://api-docs.deepseek.com
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/avelara/setlist/internal/shared"
)

const (
	deepseekBaseURL      = "https://api.deepseek.com"
	deepseekDefaultModel = "deepseek-chat"

	// Low temperature keeps scoring output close to the requested JSON shape.
	deepseekTemperature = 0.1
	deepseekMaxTokens   = 2000
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Stream      bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// DeepSeekService implements [Scorer] against the DeepSeek chat API. The
// validator owns retries and pacing; this client makes exactly one attempt
// per call with the configured timeout.
type DeepSeekService struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// DeepSeekOpts configures a DeepSeek client. Zero values fall back to the
// public endpoint, the chat model, and a 60 second timeout.
type DeepSeekOpts struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// NewDeepSeekService creates a scoring client with the given API key.
func NewDeepSeekService(apiKey string, opts DeepSeekOpts) (*DeepSeekService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: missing DeepSeek api_key", shared.ErrMissingCredentials)
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = deepseekBaseURL
	}
	model := opts.Model
	if model == "" {
		model = deepseekDefaultModel
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &DeepSeekService{
		apiKey:  apiKey,
		baseURL: baseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

func (s *DeepSeekService) Name() string {
	return "DeepSeek"
}

// Score sends one batch prompt and returns the raw response text.
func (s *DeepSeekService) Score(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	payload := chatRequest{
		Model:       s.model,
		Temperature: deepseekTemperature,
		MaxTokens:   deepseekMaxTokens,
		Stream:      false,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("deepseek: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("deepseek: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: deepseek: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", fmt.Errorf("%w: deepseek status %d", shared.ErrAuthFailed, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: deepseek status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("deepseek: decode response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("%w: deepseek: %s", shared.ErrAPIRequest, parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("%w: deepseek: empty response", shared.ErrAPIRequest)
	}

	return parsed.Choices[0].Message.Content, nil
}
