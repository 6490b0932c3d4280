// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML loading, env var expansion, defaults, and duration parsing

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "gateway.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `
server:
  http_addr: "0.0.0.0:8080"
  allowed_origins:
    - "http://localhost:3000"

database:
  path: "./test.db"

auth:
  jwt_secret: "test-secret"

ai:
  enabled: true
  api_key: "sk-test"
  model: "gpt-4o-mini"
  temperature: 0.5
  max_tokens: 500
  max_attempts: 3
  retry_backoff: "1s"
  request_timeout: "30s"

logging:
  level: "debug"
  format: "json"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTPAddr != "0.0.0.0:8080" {
		t.Errorf("Server.HTTPAddr = %q, want %q", cfg.Server.HTTPAddr, "0.0.0.0:8080")
	}
	if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "http://localhost:3000" {
		t.Errorf("Server.AllowedOrigins = %v, want [http://localhost:3000]", cfg.Server.AllowedOrigins)
	}
	if cfg.Database.Path != "./test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "./test.db")
	}
	if cfg.Auth.JWTSecret != "test-secret" {
		t.Errorf("Auth.JWTSecret = %q, want %q", cfg.Auth.JWTSecret, "test-secret")
	}
	if cfg.AI.Model != "gpt-4o-mini" {
		t.Errorf("AI.Model = %q, want %q", cfg.AI.Model, "gpt-4o-mini")
	}
	if cfg.AI.MaxAttempts != 3 {
		t.Errorf("AI.MaxAttempts = %d, want 3", cfg.AI.MaxAttempts)
	}
	if cfg.AI.RetryBackoff != time.Second {
		t.Errorf("AI.RetryBackoff = %v, want 1s", cfg.AI.RetryBackoff)
	}
	if cfg.AI.RequestTimeout != 30*time.Second {
		t.Errorf("AI.RequestTimeout = %v, want 30s", cfg.AI.RequestTimeout)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
}

func TestLoad_AppliesAIDefaults(t *testing.T) {
	configPath := writeConfig(t, `
server:
  http_addr: "127.0.0.1:8080"
database:
  path: ":memory:"
auth:
  jwt_secret: "secret"
ai:
  api_key: "sk-test"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.AI.Model != DefaultModel {
		t.Errorf("AI.Model = %q, want default %q", cfg.AI.Model, DefaultModel)
	}
	if cfg.AI.Temperature != DefaultTemperature {
		t.Errorf("AI.Temperature = %v, want default %v", cfg.AI.Temperature, DefaultTemperature)
	}
	if cfg.AI.MaxTokens != DefaultMaxTokens {
		t.Errorf("AI.MaxTokens = %d, want default %d", cfg.AI.MaxTokens, DefaultMaxTokens)
	}
	if cfg.AI.MaxAttempts != DefaultMaxAttempts {
		t.Errorf("AI.MaxAttempts = %d, want default %d", cfg.AI.MaxAttempts, DefaultMaxAttempts)
	}
	if cfg.AI.RetryBackoff != DefaultRetryBackoff {
		t.Errorf("AI.RetryBackoff = %v, want default %v", cfg.AI.RetryBackoff, DefaultRetryBackoff)
	}
	if cfg.AI.RequestTimeout != DefaultRequestTimeout {
		t.Errorf("AI.RequestTimeout = %v, want default %v", cfg.AI.RequestTimeout, DefaultRequestTimeout)
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("CHATGATE_TEST_SECRET", "expanded-secret")

	configPath := writeConfig(t, `
server:
  http_addr: "127.0.0.1:8080"
database:
  path: ":memory:"
auth:
  jwt_secret: "${CHATGATE_TEST_SECRET}"
ai:
  enabled: false
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Auth.JWTSecret != "expanded-secret" {
		t.Errorf("Auth.JWTSecret = %q, want %q", cfg.Auth.JWTSecret, "expanded-secret")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/gateway.yaml")
	if err == nil {
		t.Fatal("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	configPath := writeConfig(t, `
server:
  http_addr: "127.0.0.1:8080"
database:
  path: ":memory:"
auth:
  jwt_secret: "secret"
ai:
  api_key: "sk-test"
  retry_backoff: "not-a-duration"
`)

	_, err := Load(configPath)
	if err == nil || !strings.Contains(err.Error(), "retry_backoff") {
		t.Fatalf("Load() error = %v, want retry_backoff parse error", err)
	}
}

func TestValidate_RequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing http_addr",
			mutate:  func(c *Config) { c.Server.HTTPAddr = "" },
			wantErr: "server.http_addr",
		},
		{
			name:    "missing database path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: "database.path",
		},
		{
			name:    "missing jwt secret",
			mutate:  func(c *Config) { c.Auth.JWTSecret = "" },
			wantErr: "auth.jwt_secret",
		},
		{
			name:    "ai enabled without api key",
			mutate:  func(c *Config) { c.AI.APIKey = "" },
			wantErr: "ai.api_key",
		},
		{
			name:    "zero max attempts",
			mutate:  func(c *Config) { c.AI.MaxAttempts = 0 },
			wantErr: "ai.max_attempts",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Server:   ServerConfig{HTTPAddr: "127.0.0.1:8080"},
				Database: DatabaseConfig{Path: ":memory:"},
				Auth:     AuthConfig{JWTSecret: "secret"},
				AI:       AIConfig{Enabled: true, APIKey: "sk-test", MaxAttempts: 1},
			}
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_AIDisabledSkipsAPIKeyCheck(t *testing.T) {
	configPath := writeConfig(t, `
server:
  http_addr: "127.0.0.1:8080"
database:
  path: ":memory:"
auth:
  jwt_secret: "secret"
ai:
  enabled: false
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.AI.Enabled {
		t.Error("AI.Enabled = true, want false")
	}
}
