package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/valpere/gradefactory/internal/postprocess"
)

// chatBackend talks to an OpenAI-compatible /chat/completions endpoint.
// xAI and OpenRouter differ only in base URL, key and extra headers.
type chatBackend struct {
	name    string
	apiKey  string
	baseURL string
	model   string
	headers map[string]string
	client  *http.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

func newChatBackend(name, defaultBaseURL string, cfg Config, headers map[string]string) *chatBackend {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	return &chatBackend{
		name:    name,
		apiKey:  strings.TrimSpace(cfg.APIKey),
		baseURL: baseURL,
		model:   modelOrDefault(name, cfg.Model),
		headers: headers,
		client:  &http.Client{Timeout: timeout},
	}
}

func (b *chatBackend) Name() string              { return b.name }
func (b *chatBackend) Model() string             { return b.model }
func (b *chatBackend) RequiresCredentials() bool { return true }

func (b *chatBackend) Ready() error {
	if b.apiKey == "" {
		return &AuthenticationError{Backend: b.name, Reason: "API key required"}
	}
	return nil
}

func (b *chatBackend) Evaluate(ctx context.Context, req Request) (string, error) {
	if err := b.Ready(); err != nil {
		return "", err
	}

	jsonData, err := json.Marshal(chatRequest{
		Model:       b.model,
		Messages:    []chatMessage{{Role: "user", Content: req.Prompt}},
		Stream:      false,
		Temperature: req.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+b.apiKey)
	for k, v := range b.headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return "", transportErr(b.name, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", &AuthenticationError{
			Backend: b.name,
			Reason:  fmt.Sprintf("API returned status %d", resp.StatusCode),
			Err:     fmt.Errorf("%s", readSnippet(resp.Body)),
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", transportErr(b.name, resp.StatusCode, fmt.Errorf("%s", readSnippet(resp.Body)))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", transportErr(b.name, 0, fmt.Errorf("failed to decode response: %w", err))
	}
	if len(out.Choices) == 0 {
		return "", transportErr(b.name, 0, errEmptyResponse)
	}

	text := postprocess.Clean(out.Choices[0].Message.Content)
	if text == "" {
		return "", transportErr(b.name, 0, errEmptyResponse)
	}
	return text, nil
}

// readSnippet returns at most 512 bytes of an error body for diagnostics.
func readSnippet(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 512))
	s := strings.TrimSpace(string(b))
	if s == "" {
		return "no response body"
	}
	return s
}
