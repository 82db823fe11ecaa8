package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/valpere/gradefactory/internal/backend"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range envBindings {
		t.Setenv(env, "")
	}
	for _, name := range backend.Names() {
		t.Setenv("GRADEFACTORY_MODELS_"+strings.ToUpper(name), "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ModelBackend != backend.XAI {
		t.Errorf("expected default backend xai, got %q", cfg.ModelBackend)
	}
	if cfg.Timeout != 5*time.Minute {
		t.Errorf("expected 5m timeout, got %v", cfg.Timeout)
	}
	if cfg.OllamaURL != "http://localhost:11434" {
		t.Errorf("unexpected ollama url %q", cfg.OllamaURL)
	}
	if cfg.CredentialsFilePath != "" {
		t.Errorf("expected no credentials file, got %q", cfg.CredentialsFilePath)
	}
}

func TestLoad_Env(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("XAI_API_KEY", "xai-key")
	t.Setenv("GEMINI_API_KEY", "gem-key")
	t.Setenv("GRADEFACTORY_BACKEND", " Gemini ")
	t.Setenv("GRADEFACTORY_TIMEOUT", "90s")
	t.Setenv("GRADEFACTORY_MODELS_XAI", "grok-3")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.APIKeyPrimary != "xai-key" || cfg.APIKeySecondary != "gem-key" {
		t.Errorf("unexpected keys: %+v", cfg)
	}
	if cfg.ModelBackend != backend.Gemini {
		t.Errorf("expected gemini, got %q", cfg.ModelBackend)
	}
	if cfg.Timeout != 90*time.Second {
		t.Errorf("expected 90s, got %v", cfg.Timeout)
	}
	if cfg.Models[backend.XAI] != "grok-3" {
		t.Errorf("expected model override, got %v", cfg.Models)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "custom.yaml")
	yaml := "model_backend: ollama\nollama_url: http://gpu:11434\nmodels:\n  ollama: qwen3:14b\n"
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ModelBackend != backend.Ollama || cfg.OllamaURL != "http://gpu:11434" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.Models[backend.Ollama] != "qwen3:14b" {
		t.Errorf("expected model from file, got %v", cfg.Models)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestLoad_DefaultCredentialsFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.WriteFile(filepath.Join(dir, DefaultCredentialsFile), []byte("{}"), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.CredentialsFilePath != DefaultCredentialsFile {
		t.Errorf("expected default credentials file, got %q", cfg.CredentialsFilePath)
	}
}

func TestLoad_InvalidTimeout(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("GRADEFACTORY_TIMEOUT", "0s")

	if _, err := Load(""); err == nil {
		t.Error("expected error for zero timeout")
	}
}

func TestBackendConfig(t *testing.T) {
	cfg := &Config{
		APIKeyPrimary:       "x",
		APIKeySecondary:     "g",
		OpenRouterAPIKey:    "o",
		CredentialsFilePath: "creds.json",
		OllamaURL:           "http://ollama",
		Models:              map[string]string{backend.Gemini: "gemini-pro"},
		Timeout:             time.Minute,
	}

	if bc := cfg.BackendConfig("xai"); bc.APIKey != "x" || bc.Timeout != time.Minute {
		t.Errorf("unexpected xai config: %+v", bc)
	}
	if bc := cfg.BackendConfig("GEMINI"); bc.APIKey != "g" || bc.CredentialsFile != "creds.json" || bc.Model != "gemini-pro" {
		t.Errorf("unexpected gemini config: %+v", bc)
	}
	if bc := cfg.BackendConfig("openrouter"); bc.APIKey != "o" {
		t.Errorf("unexpected openrouter config: %+v", bc)
	}
	if bc := cfg.BackendConfig("ollama"); bc.BaseURL != "http://ollama" || bc.APIKey != "" {
		t.Errorf("unexpected ollama config: %+v", bc)
	}
}
