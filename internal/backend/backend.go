package backend

import (
	"sort"
	"strings"
)

const (
	XAI        = "xai"
	Gemini     = "gemini"
	OpenRouter = "openrouter"
	Ollama     = "ollama"
)

var constructors = map[string]func(Config) Backend{
	XAI:        func(cfg Config) Backend { return NewXAIBackend(cfg) },
	Gemini:     func(cfg Config) Backend { return NewGeminiBackend(cfg) },
	OpenRouter: func(cfg Config) Backend { return NewOpenRouterBackend(cfg) },
	Ollama:     func(cfg Config) Backend { return NewOllamaBackend(cfg) },
}

// DefaultModels maps each selector to the model used when none is configured.
var DefaultModels = map[string]string{
	XAI:        "grok-4-fast-reasoning",
	Gemini:     "gemini-2.5-flash",
	OpenRouter: "google/gemini-2.5-flash",
	Ollama:     "llama3.2",
}

// New builds the backend registered under name.
func New(name string, cfg Config) (Backend, error) {
	ctor, ok := constructors[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, &UnsupportedBackendError{Name: name}
	}
	return ctor(cfg), nil
}

// Names returns the known selectors in sorted order.
func Names() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func modelOrDefault(name, model string) string {
	if m := strings.TrimSpace(model); m != "" {
		return m
	}
	return DefaultModels[name]
}
