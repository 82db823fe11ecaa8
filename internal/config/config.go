// Package config builds the process configuration from a .env file, the
// environment and an optional gradefactory.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/valpere/gradefactory/internal/backend"
)

// DefaultCredentialsFile is picked up for Gemini when present in the
// working directory and no other credentials file is configured.
const DefaultCredentialsFile = "gen-lang-client.json"

type Config struct {
	APIKeyPrimary       string            `mapstructure:"api_key_primary"`
	APIKeySecondary     string            `mapstructure:"api_key_secondary"`
	OpenRouterAPIKey    string            `mapstructure:"openrouter_api_key"`
	ModelBackend        string            `mapstructure:"model_backend"`
	CredentialsFilePath string            `mapstructure:"credentials_file_path"`
	OllamaURL           string            `mapstructure:"ollama_url"`
	Models              map[string]string `mapstructure:"models"`
	Timeout             time.Duration     `mapstructure:"timeout"`

	S3Endpoint  string `mapstructure:"s3_endpoint"`
	S3Region    string `mapstructure:"s3_region"`
	S3AccessKey string `mapstructure:"s3_access_key"`
	S3SecretKey string `mapstructure:"s3_secret_key"`
}

var envBindings = map[string]string{
	"api_key_primary":       "XAI_API_KEY",
	"api_key_secondary":     "GEMINI_API_KEY",
	"openrouter_api_key":    "OPENROUTER_API_KEY",
	"model_backend":         "GRADEFACTORY_BACKEND",
	"credentials_file_path": "GOOGLE_APPLICATION_CREDENTIALS",
	"ollama_url":            "OLLAMA_URL",
	"timeout":               "GRADEFACTORY_TIMEOUT",
	"s3_endpoint":           "S3_ENDPOINT",
	"s3_region":             "AWS_REGION",
	"s3_access_key":         "S3_ACCESS_KEY",
	"s3_secret_key":         "S3_SECRET_KEY",
}

// Load reads configuration. configFile may be empty, in which case
// gradefactory.yaml is looked up in the working directory and skipped when
// absent.
func Load(configFile string) (*Config, error) {
	// A missing .env is fine.
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("model_backend", backend.XAI)
	v.SetDefault("ollama_url", "http://localhost:11434")
	v.SetDefault("timeout", "5m")
	v.SetDefault("s3_region", "us-east-1")

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}
	for _, name := range backend.Names() {
		if err := v.BindEnv("models."+name, "GRADEFACTORY_MODELS_"+strings.ToUpper(name)); err != nil {
			return nil, fmt.Errorf("failed to bind model for %s: %w", name, err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("gradefactory")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.Models = make(map[string]string)
	for _, name := range backend.Names() {
		if m := strings.TrimSpace(v.GetString("models." + name)); m != "" {
			cfg.Models[name] = m
		}
	}

	cfg.ModelBackend = strings.ToLower(strings.TrimSpace(cfg.ModelBackend))
	if cfg.CredentialsFilePath == "" {
		if _, err := os.Stat(DefaultCredentialsFile); err == nil {
			cfg.CredentialsFilePath = DefaultCredentialsFile
		}
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive, got %s", cfg.Timeout)
	}

	return &cfg, nil
}

// BackendConfig maps the provider-specific keys onto the settings of the
// backend registered under name.
func (c *Config) BackendConfig(name string) backend.Config {
	name = strings.ToLower(strings.TrimSpace(name))
	bc := backend.Config{
		Model:   c.Models[name],
		Timeout: c.Timeout,
	}
	switch name {
	case backend.XAI:
		bc.APIKey = c.APIKeyPrimary
	case backend.Gemini:
		bc.APIKey = c.APIKeySecondary
		bc.CredentialsFile = c.CredentialsFilePath
	case backend.OpenRouter:
		bc.APIKey = c.OpenRouterAPIKey
	case backend.Ollama:
		bc.BaseURL = c.OllamaURL
	}
	return bc
}
