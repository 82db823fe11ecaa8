// Package backend sends assembled grading prompts to LLM providers.
//
// Every provider implements the same Backend capability, so callers select a
// provider by name through New and never branch on provider identity.
package backend

import (
	"context"
	"time"
)

// Config carries the read-only settings of one provider.
type Config struct {
	APIKey          string        `mapstructure:"api_key" json:"api_key"`
	Model           string        `mapstructure:"model" json:"model"`
	BaseURL         string        `mapstructure:"base_url" json:"base_url"`
	CredentialsFile string        `mapstructure:"credentials_file" json:"credentials_file"`
	Timeout         time.Duration `mapstructure:"timeout" json:"timeout"`
}

// Request is a single outbound evaluation call.
type Request struct {
	Prompt      string  `json:"prompt"`
	Temperature float64 `json:"temperature"`
}

// Backend evaluates a prompt with one LLM provider.
type Backend interface {
	Name() string
	Model() string
	// Evaluate performs exactly one outbound call and returns the cleaned
	// response text. It never retries.
	Evaluate(ctx context.Context, req Request) (string, error)
	// RequiresCredentials reports whether the provider needs an API key or
	// a credentials file.
	RequiresCredentials() bool
	// Ready fails with *AuthenticationError when required credentials are
	// missing. It performs no network I/O.
	Ready() error
}
