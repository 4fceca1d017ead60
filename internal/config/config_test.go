// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML loading, env var expansion, and duration parsing

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
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `
server:
  http_addr: "0.0.0.0:3000"

database:
  path: "./test.db"

auth:
  jwt_secret: "test-secret"
  token_ttl: "720h"
  ws_auth_timeout: "15s"

license:
  url: "https://keymaster.example.com"
  project_id: "proj-123"
  timeout: "5s"

logging:
  level: "debug"
  format: "json"

metrics:
  enabled: true
  path: "/metrics"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.HTTPAddr != "0.0.0.0:3000" {
		t.Errorf("expected http_addr 0.0.0.0:3000, got %s", cfg.Server.HTTPAddr)
	}
	if cfg.Auth.TokenTTL != 720*time.Hour {
		t.Errorf("expected token_ttl 720h, got %v", cfg.Auth.TokenTTL)
	}
	if cfg.Auth.WSAuthTimeout != 15*time.Second {
		t.Errorf("expected ws_auth_timeout 15s, got %v", cfg.Auth.WSAuthTimeout)
	}
	if cfg.License.Timeout != 5*time.Second {
		t.Errorf("expected license timeout 5s, got %v", cfg.License.Timeout)
	}
	if !cfg.Metrics.Enabled {
		t.Error("expected metrics enabled")
	}
}

func TestLoad_Defaults(t *testing.T) {
	configPath := writeConfig(t, `
server:
  http_addr: "127.0.0.1:3000"
database:
  path: "./test.db"
auth:
  jwt_secret: "secret"
license:
  url: "https://keymaster.example.com"
  project_id: "proj-123"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Auth.TokenTTL != DefaultTokenTTL {
		t.Errorf("expected default token_ttl, got %v", cfg.Auth.TokenTTL)
	}
	if cfg.Auth.WSAuthTimeout != DefaultWSAuthTimeout {
		t.Errorf("expected default ws_auth_timeout, got %v", cfg.Auth.WSAuthTimeout)
	}
	if cfg.License.Timeout != DefaultLicenseTimeout {
		t.Errorf("expected default license timeout, got %v", cfg.License.Timeout)
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("ANGLER_TEST_SECRET", "expanded-secret")

	configPath := writeConfig(t, `
server:
  http_addr: "127.0.0.1:3000"
database:
  path: "./test.db"
auth:
  jwt_secret: "${ANGLER_TEST_SECRET}"
license:
  url: "https://keymaster.example.com"
  project_id: "proj-123"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Auth.JWTSecret != "expanded-secret" {
		t.Errorf("expected expanded secret, got %s", cfg.Auth.JWTSecret)
	}
}

func TestLoad_MissingRequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "missing http_addr",
			content: `
database:
  path: "./test.db"
auth:
  jwt_secret: "s"
license:
  url: "https://k.example.com"
  project_id: "p"
`,
			wantErr: "http_addr",
		},
		{
			name: "missing database path",
			content: `
server:
  http_addr: "127.0.0.1:3000"
auth:
  jwt_secret: "s"
license:
  url: "https://k.example.com"
  project_id: "p"
`,
			wantErr: "database.path",
		},
		{
			name: "missing jwt secret",
			content: `
server:
  http_addr: "127.0.0.1:3000"
database:
  path: "./test.db"
license:
  url: "https://k.example.com"
  project_id: "p"
`,
			wantErr: "jwt_secret",
		},
		{
			name: "missing license url",
			content: `
server:
  http_addr: "127.0.0.1:3000"
database:
  path: "./test.db"
auth:
  jwt_secret: "s"
license:
  project_id: "p"
`,
			wantErr: "license.url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := writeConfig(t, tt.content)

			_, err := Load(configPath)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error mentioning %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	configPath := writeConfig(t, `
server:
  http_addr: "127.0.0.1:3000"
database:
  path: "./test.db"
auth:
  jwt_secret: "s"
  token_ttl: "not-a-duration"
license:
  url: "https://k.example.com"
  project_id: "p"
`)

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("expected error for invalid duration")
	}
	if !strings.Contains(err.Error(), "token_ttl") {
		t.Errorf("expected token_ttl error, got %v", err)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
