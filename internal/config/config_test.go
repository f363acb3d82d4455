package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, errLoad := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if errLoad != nil {
		t.Fatalf("load: %v", errLoad)
	}
	if cfg.Addr != ":8000" {
		t.Fatalf("addr = %q, want default", cfg.Addr)
	}
	if cfg.OpenRouter.BaseURL != OpenRouterBaseURL {
		t.Fatalf("base url = %q, want default", cfg.OpenRouter.BaseURL)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
addr: ":9000"
database-dsn: "./other.db"
log-level: debug
openrouter:
  api-key: sk-test
  base-url: "https://example.test/api/v1/"
`
	if errWrite := os.WriteFile(path, []byte(content), 0o644); errWrite != nil {
		t.Fatalf("write: %v", errWrite)
	}

	cfg, errLoad := Load(path)
	if errLoad != nil {
		t.Fatalf("load: %v", errLoad)
	}
	if cfg.Addr != ":9000" || cfg.DatabaseDSN != "./other.db" || cfg.LogLevel != "debug" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.OpenRouter.APIKey != "sk-test" {
		t.Fatalf("api key = %q", cfg.OpenRouter.APIKey)
	}
	if cfg.OpenRouter.BaseURL != "https://example.test/api/v1" {
		t.Fatalf("base url trailing slash kept: %q", cfg.OpenRouter.BaseURL)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if errWrite := os.WriteFile(path, []byte("addr: [unclosed"), 0o644); errWrite != nil {
		t.Fatalf("write: %v", errWrite)
	}
	if _, errLoad := Load(path); errLoad == nil {
		t.Fatal("malformed yaml accepted")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "7070")
	t.Setenv("OPENROUTER_API_KEY", "sk-env")
	t.Setenv("APP_ORIGINS", "http://a.test, http://b.test,")
	t.Setenv("DB_PATH", "./env.db")

	cfg, errLoad := Load("")
	if errLoad != nil {
		t.Fatalf("load: %v", errLoad)
	}
	if cfg.Addr != ":7070" {
		t.Fatalf("addr = %q, want :7070", cfg.Addr)
	}
	if cfg.OpenRouter.APIKey != "sk-env" {
		t.Fatalf("api key = %q", cfg.OpenRouter.APIKey)
	}
	if len(cfg.Origins) != 2 || cfg.Origins[1] != "http://b.test" {
		t.Fatalf("origins = %v", cfg.Origins)
	}
	if cfg.DatabaseDSN != "./env.db" {
		t.Fatalf("dsn = %q", cfg.DatabaseDSN)
	}
}
