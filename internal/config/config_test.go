package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("GEMINI_KEY", "")
	t.Setenv("API_KEY", "")
	t.Setenv("AI_PROVIDER", "")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.AI.ActiveProvider != "gemini" {
		t.Errorf("active provider = %q", cfg.AI.ActiveProvider)
	}
	if cfg.Application.Port != 8080 {
		t.Errorf("port = %d", cfg.Application.Port)
	}
	if cfg.Images.Width != 1280 || cfg.Images.Height != 720 {
		t.Errorf("image size = %dx%d", cfg.Images.Width, cfg.Images.Height)
	}
	if cfg.Images.Timeout != 0 {
		t.Errorf("image timeout should default to none, got %s", cfg.Images.Timeout)
	}
	if cfg.Application.SessionTTL != 12*time.Hour {
		t.Errorf("session ttl = %s", cfg.Application.SessionTTL)
	}
	if key := cfg.AI.Provider("gemini").Key; key != "" {
		t.Errorf("expected no gemini key, got %q", key)
	}
}

func TestLoadConfigEnvironment(t *testing.T) {
	t.Setenv("GEMINI_KEY", "")
	t.Setenv("API_KEY", "from-api-key")
	t.Setenv("AI_PROVIDER", " OpenAI ")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("PORT", "9090")
	t.Setenv("IMAGE_TIMEOUT", "15s")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if got := cfg.AI.Provider("gemini").Key; got != "from-api-key" {
		t.Errorf("gemini key = %q, want API_KEY fallback", got)
	}
	if cfg.AI.ActiveProvider != "openai" {
		t.Errorf("active provider = %q", cfg.AI.ActiveProvider)
	}
	if got := cfg.AI.Provider("openai").Key; got != "sk-test" {
		t.Errorf("openai key = %q", got)
	}
	if cfg.Application.Port != 9090 {
		t.Errorf("port = %d", cfg.Application.Port)
	}
	if cfg.Images.Timeout != 15*time.Second {
		t.Errorf("image timeout = %s", cfg.Images.Timeout)
	}
}

func TestLoadConfigFile(t *testing.T) {
	t.Setenv("GEMINI_KEY", "")
	t.Setenv("API_KEY", "")
	t.Setenv("PORT", "")
	t.Setenv("AI_PROVIDER", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := []byte(`
application:
  port: 7070
  dev_reload: true
ai:
  active_provider: mock
  providers:
    gemini:
      model: gemini-2.5-pro
images:
  width: 640
`)
	if err := os.WriteFile(path, yaml, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Application.Port != 7070 || !cfg.Application.DevReload {
		t.Errorf("application = %+v", cfg.Application)
	}
	if cfg.AI.ActiveProvider != "mock" {
		t.Errorf("active provider = %q", cfg.AI.ActiveProvider)
	}
	if got := cfg.AI.Provider("gemini").Model; got != "gemini-2.5-pro" {
		t.Errorf("gemini model = %q", got)
	}
	if cfg.Images.Width != 640 || cfg.Images.Height != 720 {
		t.Errorf("image size = %dx%d", cfg.Images.Width, cfg.Images.Height)
	}
}
