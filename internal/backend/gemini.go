package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/valpere/gradefactory/internal/postprocess"
)

// GeminiBackend grades with Google Gemini. It authenticates with an API key
// or, when no key is set, with a service-account credentials file.
type GeminiBackend struct {
	apiKey          string
	credentialsFile string
	model           string
}

func NewGeminiBackend(cfg Config) Backend {
	return &GeminiBackend{
		apiKey:          strings.TrimSpace(cfg.APIKey),
		credentialsFile: strings.TrimSpace(cfg.CredentialsFile),
		model:           modelOrDefault(Gemini, cfg.Model),
	}
}

func (e *GeminiBackend) Name() string              { return Gemini }
func (e *GeminiBackend) Model() string             { return e.model }
func (e *GeminiBackend) RequiresCredentials() bool { return true }

func (e *GeminiBackend) Ready() error {
	if e.apiKey == "" && e.credentialsFile == "" {
		return &AuthenticationError{Backend: Gemini, Reason: "GEMINI_API_KEY or a credentials file is required"}
	}
	return nil
}

func (e *GeminiBackend) clientOptions() []option.ClientOption {
	if e.apiKey != "" {
		return []option.ClientOption{option.WithAPIKey(e.apiKey)}
	}
	return []option.ClientOption{option.WithCredentialsFile(e.credentialsFile)}
}

func (e *GeminiBackend) Evaluate(ctx context.Context, req Request) (string, error) {
	if err := e.Ready(); err != nil {
		return "", err
	}

	cl, err := genai.NewClient(ctx, e.clientOptions()...)
	if err != nil {
		return "", &AuthenticationError{Backend: Gemini, Reason: "failed to create client", Err: err}
	}
	defer cl.Close()

	m := cl.GenerativeModel(e.model)
	m.SetTemperature(float32(req.Temperature))

	resp, err := m.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return "", classifyGeminiErr(err)
	}

	text := postprocess.Clean(firstText(resp))
	if text == "" {
		return "", transportErr(Gemini, 0, errEmptyResponse)
	}
	return text, nil
}

func classifyGeminiErr(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		if gerr.Code == http.StatusUnauthorized || gerr.Code == http.StatusForbidden {
			return &AuthenticationError{Backend: Gemini, Reason: fmt.Sprintf("API returned status %d", gerr.Code), Err: err}
		}
		return transportErr(Gemini, gerr.Code, err)
	}
	return transportErr(Gemini, 0, err)
}

// firstText joins the text parts of the first candidate that has content.
func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		var sb strings.Builder
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				sb.WriteString(string(t))
			}
		}
		if sb.Len() > 0 {
			return sb.String()
		}
	}
	return ""
}
