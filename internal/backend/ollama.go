package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/valpere/gradefactory/internal/postprocess"
)

const ollamaBaseURL = "http://localhost:11434"

// OllamaBackend grades with a self-hosted Ollama model. It needs no
// credentials.
type OllamaBackend struct {
	baseURL string
	model   string
	client  *http.Client
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
}

type ollamaResponse struct {
	Response string `json:"response"`
}

func NewOllamaBackend(cfg Config) Backend {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = ollamaBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	return &OllamaBackend{
		baseURL: baseURL,
		model:   modelOrDefault(Ollama, cfg.Model),
		client:  &http.Client{Timeout: timeout},
	}
}

func (s *OllamaBackend) Name() string              { return Ollama }
func (s *OllamaBackend) Model() string             { return s.model }
func (s *OllamaBackend) RequiresCredentials() bool { return false }
func (s *OllamaBackend) Ready() error              { return nil }

func (s *OllamaBackend) Evaluate(ctx context.Context, req Request) (string, error) {
	jsonData, err := json.Marshal(ollamaRequest{
		Model:   s.model,
		Prompt:  req.Prompt,
		Stream:  false,
		Options: ollamaOptions{Temperature: req.Temperature},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/api/generate", s.baseURL), bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return "", transportErr(Ollama, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", transportErr(Ollama, resp.StatusCode, fmt.Errorf("%s", readSnippet(resp.Body)))
	}

	var out ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", transportErr(Ollama, 0, fmt.Errorf("failed to decode response: %w", err))
	}

	text := postprocess.Clean(out.Response)
	if text == "" {
		return "", transportErr(Ollama, 0, errEmptyResponse)
	}
	return text, nil
}

// Ping checks that the Ollama server answers on /api/tags.
func (s *OllamaBackend) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/api/tags", s.baseURL), nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("Ollama not available: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Ollama returned status %d", resp.StatusCode)
	}
	return nil
}
