package api

import (
	"fmt"

	"github.com/notexe/mediconnect/internal/config"
)

const (
	ProviderGroq     = config.ProviderGroq
	ProviderDeepSeek = config.ProviderDeepSeek
	ProviderOllama   = config.ProviderOllama
)

// NewProvider creates a Provider based on the configuration.
func NewProvider(cfg *config.ProviderConfig) (Provider, error) {
	switch cfg.Type {
	case config.ProviderGroq:
		return NewGroqProvider(cfg.Groq, cfg.APIKey)

	case config.ProviderDeepSeek:
		ds := cfg.DeepSeek
		if cfg.APIKey != "" {
			ds.APIKey = cfg.APIKey
		}
		return NewDeepSeekProvider(ds)

	case config.ProviderOllama:
		return NewOllamaProvider(cfg.Ollama)

	default:
		return nil, fmt.Errorf("unknown provider type: %s (supported: %s, %s, %s)",
			cfg.Type, config.ProviderGroq, config.ProviderDeepSeek, config.ProviderOllama)
	}
}
