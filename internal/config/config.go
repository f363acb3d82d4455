package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// OpenRouterBaseURL is the default upstream API root.
const OpenRouterBaseURL = "https://openrouter.ai/api/v1"

// OpenRouter holds upstream credential and attribution settings.
type OpenRouter struct {
	APIKey      string `yaml:"api-key"`      // Bearer credential; empty means streaming is unconfigured.
	BaseURL     string `yaml:"base-url"`     // API root, default OpenRouterBaseURL.
	HTTPReferer string `yaml:"http-referer"` // Attribution Referer header.
	XTitle      string `yaml:"x-title"`      // Attribution X-Title header.
}

// Config is the process configuration, loaded from an optional YAML file and
// overridden by environment variables.
type Config struct {
	Addr        string     `yaml:"addr"`         // Listen address, default ":8000".
	Origins     []string   `yaml:"origins"`      // Allowed CORS origins.
	DatabaseDSN string     `yaml:"database-dsn"` // SQLite path or PostgreSQL DSN.
	UploadsDir  string     `yaml:"uploads-dir"`  // Directory for uploaded documents.
	BackupsDir  string     `yaml:"backups-dir"`  // Directory for database backups.
	LogLevel    string     `yaml:"log-level"`    // logrus level name.
	LogFile     string     `yaml:"log-file"`     // Optional rotated log file path.
	OpenRouter  OpenRouter `yaml:"openrouter"`   // Upstream settings.
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:        ":8000",
		Origins:     []string{"http://localhost:5173"},
		DatabaseDSN: "./console.db",
		UploadsDir:  "./uploads",
		BackupsDir:  "./backups",
		LogLevel:    "info",
		OpenRouter: OpenRouter{
			BaseURL:     OpenRouterBaseURL,
			HTTPReferer: "http://localhost:5173",
			XTitle:      "Self-Hosted LLM Console",
		},
	}
}

// Load reads the YAML file at path when it exists, then applies environment
// overrides. A missing file is not an error; a malformed one is.
func Load(path string) (Config, error) {
	cfg := Default()

	if strings.TrimSpace(path) != "" {
		data, errRead := os.ReadFile(path)
		switch {
		case errRead == nil:
			if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
				return Config{}, fmt.Errorf("config: parse %s: %w", path, errUnmarshal)
			}
		case os.IsNotExist(errRead):
			// Fall through to defaults plus env.
		default:
			return Config{}, fmt.Errorf("config: read %s: %w", path, errRead)
		}
	}

	cfg.applyEnv()

	if cfg.OpenRouter.BaseURL == "" {
		cfg.OpenRouter.BaseURL = OpenRouterBaseURL
	}
	cfg.OpenRouter.BaseURL = strings.TrimRight(cfg.OpenRouter.BaseURL, "/")

	return cfg, nil
}

// applyEnv overrides config fields from environment variables.
func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.Addr = ":" + v
	}
	if v := os.Getenv("APP_ADDR"); v != "" {
		c.Addr = v
	}
	if v := os.Getenv("APP_ORIGINS"); v != "" {
		c.Origins = splitOrigins(v)
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		c.DatabaseDSN = v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		c.DatabaseDSN = v
	}
	if v := os.Getenv("UPLOADS_DIR"); v != "" {
		c.UploadsDir = v
	}
	if v := os.Getenv("BACKUPS_DIR"); v != "" {
		c.BackupsDir = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		c.LogFile = v
	}
	if v := os.Getenv("OPENROUTER_API_KEY"); v != "" {
		c.OpenRouter.APIKey = v
	}
	if v := os.Getenv("OPENROUTER_BASE_URL"); v != "" {
		c.OpenRouter.BaseURL = v
	}
	if v := os.Getenv("OPENROUTER_HTTP_REFERER"); v != "" {
		c.OpenRouter.HTTPReferer = v
	}
	if v := os.Getenv("OPENROUTER_X_TITLE"); v != "" {
		c.OpenRouter.XTitle = v
	}
}

// splitOrigins parses a comma-separated origin list.
func splitOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
