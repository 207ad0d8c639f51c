package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123"

// clearEnv unsets every variable Config reads so the host environment cannot
// leak into a test. t.Setenv restores the original values afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"PORT", "DB_PATH", "SHUTDOWN_TIMEOUT", "JWT_SECRET", "TOKEN_TTL",
		"PHOTO_DIR", "MAX_UPLOAD_BYTES", "CORS_ORIGINS", "RATE_LIMIT_RPS",
		"RATE_LIMIT_BURST", "LOG_LEVEL", "LOG_FORMAT", "GITHUB_CLIENT_ID",
		"GITHUB_CLIENT_SECRET", "GITHUB_CALLBACK_URL",
	} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", testSecret)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.DBPath != "data/inventory.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.TokenTTL != 168*time.Hour {
		t.Errorf("TokenTTL = %v, want 168h", cfg.TokenTTL)
	}
	if cfg.MaxUploadBytes != 16<<20 {
		t.Errorf("MaxUploadBytes = %d, want %d", cfg.MaxUploadBytes, 16<<20)
	}
	if cfg.GitHubCallbackURL != "http://localhost:8080/auth/github/callback" {
		t.Errorf("GitHubCallbackURL = %q", cfg.GitHubCallbackURL)
	}
	if cfg.GitHubEnabled() {
		t.Error("GitHubEnabled() = true without credentials")
	}
}

func TestLoad_EnvFileDoesNotOverrideEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")

	path := filepath.Join(t.TempDir(), ".env")
	content := "PORT=7070\nJWT_SECRET=" + testSecret + "\nCORS_ORIGINS=https://a.example, https://b.example\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want the environment's 9090", cfg.Port)
	}
	if cfg.JWTSecret != testSecret {
		t.Errorf("JWTSecret not read from .env")
	}
	origins := cfg.Origins()
	if len(origins) != 2 || origins[1] != "https://b.example" {
		t.Errorf("Origins() = %v", origins)
	}
}

func TestLoad_MissingEnvFileIsFine(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", testSecret)

	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Port:            8080,
			DBPath:          "x.db",
			ShutdownTimeout: time.Second,
			JWTSecret:       testSecret,
			TokenTTL:        time.Hour,
			PhotoDir:        "photos",
			MaxUploadBytes:  1,
			RateLimitRPS:    1,
			RateLimitBurst:  1,
			LogLevel:        "info",
			LogFormat:       "text",
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"short secret", func(c *Config) { c.JWTSecret = "short" }, "JWT_SECRET"},
		{"bad port", func(c *Config) { c.Port = 0 }, "PORT"},
		{"zero upload limit", func(c *Config) { c.MaxUploadBytes = 0 }, "MAX_UPLOAD_BYTES"},
		{"zero rate", func(c *Config) { c.RateLimitRPS = 0 }, "RATE_LIMIT_RPS"},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, "LOG_LEVEL"},
		{"bad format", func(c *Config) { c.LogFormat = "xml" }, "LOG_FORMAT"},
		{"half github", func(c *Config) { c.GitHubClientID = "id" }, "GITHUB_CLIENT_SECRET"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := Config{LogLevel: "warn", LogFormat: "json"}
	logger := cfg.NewLogger(&buf)

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info line written at warn level")
	}
	if !strings.Contains(out, `"msg":"shown"`) {
		t.Errorf("output = %q, want a JSON warn line", out)
	}
}
