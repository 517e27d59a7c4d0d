package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	AI          AIConfig          `mapstructure:"ai"`
	Application ApplicationConfig `mapstructure:"application"`
	Images      ImagesConfig      `mapstructure:"images"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

type ApplicationConfig struct {
	Name       string        `mapstructure:"name"`
	Version    string        `mapstructure:"version"`
	Host       string        `mapstructure:"host"`
	Port       int           `mapstructure:"port"`
	Templates  string        `mapstructure:"templates"`
	Static     string        `mapstructure:"static"`
	Resources  string        `mapstructure:"resources"`
	DevReload  bool          `mapstructure:"dev_reload"`
	SessionTTL time.Duration `mapstructure:"session_ttl"`
}

// Addr is the listen address for the HTTP server.
func (c *ApplicationConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type AIConfig struct {
	// ActiveProvider selects the slide generator: gemini, openai or mock.
	// Lesson identification always goes through Gemini search grounding.
	ActiveProvider string                      `mapstructure:"active_provider"`
	SearchModel    string                      `mapstructure:"search_model"`
	Providers      map[string]ProviderSettings `mapstructure:"providers"`
}

type ProviderSettings struct {
	Key         string  `mapstructure:"key"`
	Endpoint    string  `mapstructure:"endpoint"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// Provider returns the settings for a named provider, or zero settings.
func (c *AIConfig) Provider(name string) ProviderSettings {
	if c.Providers == nil {
		return ProviderSettings{}
	}
	return c.Providers[name]
}

type ImagesConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Width    int           `mapstructure:"width"`
	Height   int           `mapstructure:"height"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type LoggingConfig struct {
	Mode string `mapstructure:"mode"`
}

// LoadConfig reads .env, an optional config.yaml and the environment.
// An empty path means config.yaml in the working directory.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Note: could not load .env file: %v", err)
	}

	if path == "" {
		path = "config.yaml"
	}

	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable mappings
	mappings := []struct {
		key  string
		envs []string
	}{
		{"application.host", []string{"HOST"}},
		{"application.port", []string{"PORT"}},
		{"application.templates", []string{"TEMPLATES_DIR"}},
		{"application.static", []string{"STATIC_DIR"}},
		{"application.resources", []string{"RESOURCES_DIR"}},
		{"application.dev_reload", []string{"DEV_RELOAD"}},
		{"application.session_ttl", []string{"SESSION_TTL"}},

		{"ai.active_provider", []string{"AI_PROVIDER"}},
		{"ai.search_model", []string{"GEMINI_SEARCH_MODEL"}},

		// AI Providers
		{"ai.providers.gemini.key", []string{"GEMINI_KEY", "API_KEY"}},
		{"ai.providers.gemini.model", []string{"GEMINI_MODEL"}},
		{"ai.providers.gemini.endpoint", []string{"GEMINI_BASE_URL"}},
		{"ai.providers.openai.key", []string{"OPENAI_API_KEY"}},
		{"ai.providers.openai.model", []string{"OPENAI_MODEL"}},
		{"ai.providers.openai.endpoint", []string{"OPENAI_BASE_URL"}},

		// Images
		{"images.endpoint", []string{"IMAGE_ENDPOINT"}},
		{"images.timeout", []string{"IMAGE_TIMEOUT"}},

		{"logging.mode", []string{"LOG_MODE"}},
	}

	for _, m := range mappings {
		args := append([]string{m.key}, m.envs...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("bind env for %s: %w", m.key, err)
		}
	}

	// Defaults
	v.SetDefault("application.name", "LessonForge")
	v.SetDefault("application.version", "dev")
	v.SetDefault("application.port", 8080)
	v.SetDefault("application.templates", "ui/templates")
	v.SetDefault("application.static", "ui/static")
	v.SetDefault("application.resources", "resources")
	v.SetDefault("application.dev_reload", false)
	v.SetDefault("application.session_ttl", 12*time.Hour)
	v.SetDefault("ai.active_provider", "gemini")
	v.SetDefault("ai.search_model", "gemini-2.5-flash")
	v.SetDefault("ai.providers.gemini.model", "gemini-2.5-flash")
	v.SetDefault("ai.providers.openai.model", "gpt-4o-mini")
	v.SetDefault("images.endpoint", "https://image.pollinations.ai/prompt")
	v.SetDefault("images.width", 1280)
	v.SetDefault("images.height", 720)
	v.SetDefault("logging.mode", "development")

	if err := v.ReadInConfig(); err != nil {
		// config.yaml is optional
		if !errors.Is(err, os.ErrNotExist) {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config file %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	cfg.AI.ActiveProvider = strings.ToLower(strings.TrimSpace(cfg.AI.ActiveProvider))
	if cfg.AI.ActiveProvider == "" {
		cfg.AI.ActiveProvider = "gemini"
	}

	return &cfg, nil
}
