package backend

const openRouterBaseURL = "https://openrouter.ai/api/v1"

// NewOpenRouterBackend returns a backend routed through OpenRouter.
func NewOpenRouterBackend(cfg Config) Backend {
	return newChatBackend(OpenRouter, openRouterBaseURL, cfg, map[string]string{
		"HTTP-Referer": "https://gradefactory.local",
		"X-Title":      "GradeFactory",
	})
}
