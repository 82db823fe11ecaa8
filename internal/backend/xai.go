package backend

const xaiBaseURL = "https://api.x.ai/v1"

// NewXAIBackend returns the Grok backend (OpenAI-compatible chat completions).
func NewXAIBackend(cfg Config) Backend {
	return newChatBackend(XAI, xaiBaseURL, cfg, nil)
}
