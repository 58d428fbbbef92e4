package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Provider type constants (duplicated from api package to avoid import cycle)
const (
	ProviderGroq     = "groq"
	ProviderDeepSeek = "deepseek"
	ProviderOllama   = "ollama"
)

// Storage backends understood by storage.Open.
const (
	StorageFile   = "file"
	StorageSQLite = "sqlite"
	StorageBolt   = "bolt"
	StorageRedis  = "redis"
	StorageMemory = "memory"
)

// envPrefix scopes koanf's environment provider. Nested keys use a double
// underscore: MEDICONNECT_REMINDERS__INTERVAL=30.
const envPrefix = "MEDICONNECT_"

type Config struct {
	Provider  string          `koanf:"provider"`
	Groq      GroqConfig      `koanf:"groq"`
	DeepSeek  DeepSeekConfig  `koanf:"deepseek"`
	Ollama    OllamaConfig    `koanf:"ollama"`
	Model     ModelConfig     `koanf:"model"`
	Server    ServerConfig    `koanf:"server"`
	Reminders RemindersConfig `koanf:"reminders"`
	Storage   StorageConfig   `koanf:"storage"`
	Notify    NotifyConfig    `koanf:"notify"`
	Log       LogConfig       `koanf:"log"`
}

type GroqConfig struct {
	// APIKey pins the key in the config file. When empty the key is looked
	// up per request from CredentialCandidates.
	APIKey  string `koanf:"api_key"`
	BaseURL string `koanf:"base_url"`
	Timeout int    `koanf:"timeout"`
}

// DeepSeekConfig has no base URL; the SDK always calls api.deepseek.com.
type DeepSeekConfig struct {
	APIKey  string `koanf:"api_key"`
	Timeout int    `koanf:"timeout"` // seconds
}

type OllamaConfig struct {
	BaseURL string `koanf:"base_url"`
	Timeout int    `koanf:"timeout"`
}

type ModelConfig struct {
	Name         string  `koanf:"name"`
	MaxTokens    int     `koanf:"max_tokens"`
	Temperature  float64 `koanf:"temperature"`
	SystemPrompt string  `koanf:"system_prompt"`
}

type ServerConfig struct {
	Addr            string `koanf:"addr"`
	ReadTimeout     int    `koanf:"read_timeout"`     // seconds
	WriteTimeout    int    `koanf:"write_timeout"`    // seconds
	ShutdownTimeout int    `koanf:"shutdown_timeout"` // seconds
}

type RemindersConfig struct {
	Interval   int    `koanf:"interval"` // seconds between checks
	StorageKey string `koanf:"storage_key"`
	// Player is the external command used to play the alert tone
	// (aplay, paplay, afplay). Empty rings the terminal bell instead.
	Player string `koanf:"player"`
}

type StorageConfig struct {
	Backend       string `koanf:"backend"`
	Dir           string `koanf:"dir"`
	RedisURL      string `koanf:"redis_url"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
}

type NotifyConfig struct {
	Terminal bool           `koanf:"terminal"`
	Telegram TelegramConfig `koanf:"telegram"`
	Discord  DiscordConfig  `koanf:"discord"`
}

type TelegramConfig struct {
	BotToken string `koanf:"bot_token"`
	ChatID   string `koanf:"chat_id"`
}

type DiscordConfig struct {
	WebhookID    string `koanf:"webhook_id"`
	WebhookToken string `koanf:"webhook_token"`
}

type LogConfig struct {
	Level    string `koanf:"level"`
	Encoding string `koanf:"encoding"`
	Output   string `koanf:"output"`
}

// Load layers defaults, the optional YAML file, a local .env file and
// MEDICONNECT_* environment variables, in that order.
func Load(configPath string) (*Config, error) {
	// .env is optional; a missing file is not an error.
	_ = godotenv.Load(".env")

	k := koanf.New(".")

	if err := k.Load(NewDefaultProvider(), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		configPath = expandPath(configPath)

		if _, err := os.Stat(configPath); err == nil {
			if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file: %w", err)
			}
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if apiKey := os.Getenv("DEEPSEEK_API_KEY"); apiKey != "" {
		k.Set("deepseek.api_key", apiKey)
	}
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		k.Set("notify.telegram.bot_token", token)
	}
	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" {
		k.Set("notify.telegram.chat_id", chatID)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Storage.Dir = expandPath(cfg.Storage.Dir)

	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderGroq, ProviderDeepSeek:
		// Keys are resolved per request; a missing key is reported to the
		// caller of the proxy, not at startup.
	case ProviderOllama:
		if c.Ollama.BaseURL == "" {
			c.Ollama.BaseURL = "http://localhost:11434"
		}
	default:
		return fmt.Errorf("unknown provider: %s (supported: %s, %s, %s)",
			c.Provider, ProviderGroq, ProviderDeepSeek, ProviderOllama)
	}

	if c.Model.Name == "" {
		return fmt.Errorf("model name is required")
	}

	if c.Model.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be positive")
	}

	if c.Model.Temperature < 0 || c.Model.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2")
	}

	if c.Reminders.Interval <= 0 {
		return fmt.Errorf("reminders.interval must be positive, got %d", c.Reminders.Interval)
	}
	// A check interval of a minute or more can skip an HH:MM boundary.
	if c.Reminders.Interval >= 60 {
		return fmt.Errorf("reminders.interval must be under 60 seconds, got %d", c.Reminders.Interval)
	}

	if c.Reminders.StorageKey == "" {
		return fmt.Errorf("reminders.storage_key is required")
	}

	switch c.Storage.Backend {
	case StorageFile, StorageSQLite, StorageBolt, StorageMemory:
	case StorageRedis:
		if c.Storage.RedisURL == "" {
			return fmt.Errorf("storage.redis_url is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown storage backend: %s", c.Storage.Backend)
	}

	return nil
}

// CredentialCandidates lists, in priority order, the environment variables
// consulted for the upstream API key of the given provider:
//
//	groq:     GROQ_API_KEY, GROQ_KEY, API_KEY, GROQ
//	deepseek: DEEPSEEK_API_KEY
//	ollama:   none (no key required)
func CredentialCandidates(provider string) []string {
	switch provider {
	case ProviderGroq:
		return []string{"GROQ_API_KEY", "GROQ_KEY", "API_KEY", "GROQ"}
	case ProviderDeepSeek:
		return []string{"DEEPSEEK_API_KEY"}
	default:
		return nil
	}
}

// RequiresCredential reports whether the provider needs an API key.
func RequiresCredential(provider string) bool {
	return len(CredentialCandidates(provider)) > 0
}

// LookupCredential returns the first non-empty trimmed value among the
// provider's candidates. A key pinned in the config wins over the
// environment. lookup is usually os.LookupEnv.
func (c *Config) LookupCredential(lookup func(string) (string, bool)) string {
	switch c.Provider {
	case ProviderGroq:
		if key := strings.TrimSpace(c.Groq.APIKey); key != "" {
			return key
		}
	case ProviderDeepSeek:
		if key := strings.TrimSpace(c.DeepSeek.APIKey); key != "" {
			return key
		}
	}

	if lookup == nil {
		lookup = os.LookupEnv
	}
	for _, name := range CredentialCandidates(c.Provider) {
		if v, ok := lookup(name); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}

// ProviderConfig contains provider-specific configuration for the API package.
type ProviderConfig struct {
	Type     string
	APIKey   string
	Groq     GroqConfig
	DeepSeek DeepSeekConfig
	Ollama   OllamaConfig
}

// GetProviderConfig returns the provider configuration for the API package,
// carrying the resolved credential.
func (c *Config) GetProviderConfig(apiKey string) *ProviderConfig {
	return &ProviderConfig{
		Type:     c.Provider,
		APIKey:   apiKey,
		Groq:     c.Groq,
		DeepSeek: c.DeepSeek,
		Ollama:   c.Ollama,
	}
}

func expandPath(path string) string {
	if path == "" {
		return path
	}

	if len(path) >= 2 && path[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}

	return path
}
