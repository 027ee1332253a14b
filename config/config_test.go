package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LLM_MODEL", "")
	t.Setenv("FORCE_CONFLICT", "")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.LLM.Model != "gpt-4o-mini" {
		t.Fatalf("expected default model, got %q", cfg.LLM.Model)
	}
	if cfg.LLM.MaxAttempts != 4 || cfg.LLM.BackoffBase != time.Second || cfg.LLM.BackoffMultiplier != 2 {
		t.Fatalf("unexpected retry defaults: %+v", cfg.LLM)
	}
	if cfg.Sources.MaxChars != 3000 || cfg.Sources.ContextChars != 2000 || cfg.Sources.TopK != 5 {
		t.Fatalf("unexpected source defaults: %+v", cfg.Sources)
	}
	if cfg.Sources.Timeout != 8*time.Second {
		t.Fatalf("expected 8s fetch timeout, got %v", cfg.Sources.Timeout)
	}
	if cfg.Demo.ForceConflict {
		t.Fatalf("force conflict should default to off")
	}
}

func TestLoadConfigLegacyEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LLM_MODEL", "gpt-4.1")
	t.Setenv("FORCE_CONFLICT", "YES")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.LLM.Model != "gpt-4.1" {
		t.Fatalf("expected LLM_MODEL override, got %q", cfg.LLM.Model)
	}
	if !cfg.Demo.ForceConflict {
		t.Fatalf("expected FORCE_CONFLICT=YES to enable forced conflicts")
	}
	if cfg.LLM.APIKey != "sk-test" {
		t.Fatalf("expected api key from OPENAI_API_KEY, got %q", cfg.LLM.APIKey)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "accountplan.yaml")
	body := "llm:\n  provider: gemini\n  model: gemini-2.0-flash\nsession:\n  store: redis\nstorage:\n  redis:\n    host: cache\n    port: \"6380\"\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("LLM_MODEL", "")
	t.Setenv("GEMINI_API_KEY", "g-key")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.LLM.Provider != "gemini" || cfg.LLM.Model != "gemini-2.0-flash" {
		t.Fatalf("unexpected llm section: %+v", cfg.LLM)
	}
	if cfg.LLM.APIKey != "g-key" {
		t.Fatalf("expected gemini key from env, got %q", cfg.LLM.APIKey)
	}
	if cfg.Storage.Redis.Addr() != "cache:6380" {
		t.Fatalf("unexpected redis addr %q", cfg.Storage.Redis.Addr())
	}
}

func TestValidateRejectsUnknownBackends(t *testing.T) {
	cfg := Config{
		LLM:     LLMConfig{Provider: "openai", Model: "m", MaxAttempts: 4, BackoffMultiplier: 2},
		Sources: SourcesConfig{Fetcher: "http", MaxChars: 3000, ContextChars: 2000, TopK: 5, Concurrency: 1},
		Session: SessionConfig{Store: "inmemory"},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bad := cfg
	bad.LLM.Provider = "anthropic"
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected unsupported provider error")
	}

	bad = cfg
	bad.Session.Store = "postgres"
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected unsupported store error")
	}

	bad = cfg
	bad.Session.Store = "redis"
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected redis host validation error")
	}
}
