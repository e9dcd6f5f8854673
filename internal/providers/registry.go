package providers

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Config selects and configures one model client.
// This mirrors config.ProviderCfg with the API key already resolved.
type Config struct {
	Type    string // "ollama", "openai", "mock"
	BaseURL string
	Model   string
	APIKey  string
	Timeout time.Duration
}

type factory func(cfg Config) LLMClient

var factories = map[string]factory{
	OllamaName: func(cfg Config) LLMClient {
		return NewOllamaClient(OllamaConfig{
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
			Timeout:      cfg.Timeout,
		})
	},
	OpenAIName: func(cfg Config) LLMClient {
		return NewOpenAIClient(OpenAIConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
			Timeout:      cfg.Timeout,
		})
	},
	MockClientName: func(cfg Config) LLMClient {
		return NewMockClient()
	},
}

// NewClient creates the LLM client named by cfg.Type.
func NewClient(cfg Config) (LLMClient, error) {
	typ := strings.ToLower(strings.TrimSpace(cfg.Type))
	if typ == "" {
		typ = OllamaName
	}
	f, ok := factories[typ]
	if !ok {
		return nil, fmt.Errorf("unknown provider type %q (want one of %s)", cfg.Type, strings.Join(Types(), ", "))
	}
	if typ == OpenAIName && cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, fmt.Errorf("provider %q requires an api_key or a base_url", typ)
	}
	return f(cfg), nil
}

// Types returns the supported provider types, sorted.
func Types() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
