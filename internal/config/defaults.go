package config

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNoDefault is returned when no default value exists for a config key.
var ErrNoDefault = errors.New("no default exists")

// DefaultEntries returns the default configuration entries.
// Their values seed viper and the file written by WriteDefault.
func DefaultEntries() []Entry {
	return []Entry{
		// ===================
		// Model provider
		// ===================
		{
			Key:         "provider.type",
			Value:       "ollama",
			Description: "Model client: ollama, openai or mock",
		},
		{
			Key:         "provider.base_url",
			Value:       "http://localhost:11434",
			Description: "Model service endpoint",
		},
		{
			Key:         "provider.model",
			Value:       "llama2",
			Description: "Model name sent with every request",
		},
		{
			Key:         "provider.api_key",
			Value:       "",
			Description: "API key for openai-compatible services (supports ${ENV_VAR})",
		},
		{
			Key:         "provider.timeout",
			Value:       "120s",
			Description: "HTTP timeout for one model request",
		},
		{
			Key:         "provider.temperature",
			Value:       0.0,
			Description: "Sampling temperature (0: service default)",
		},

		// ===================
		// Retries
		// ===================
		{
			Key:         "retry.attempts",
			Value:       3,
			Description: "Model call attempts per record before it is marked unavailable",
		},
		{
			Key:         "retry.backoff",
			Value:       "2s",
			Description: "Fixed wait between attempts",
		},
		{
			Key:         "retry.probe_timeout",
			Value:       "10s",
			Description: "Timeout for the reachability probe run before a batch",
		},

		// ===================
		// Run pacing
		// ===================
		{
			Key:         "run.delay",
			Value:       "0s",
			Description: "Spacing between model calls (0: the task's default)",
		},
		{
			Key:         "run.workers",
			Value:       1,
			Description: "Concurrent model calls (1: strictly sequential)",
		},
		{
			Key:         "run.rps",
			Value:       0.0,
			Description: "Pool rate limit in calls per second (0: derived from delay)",
		},

		// ===================
		// Logging and outputs
		// ===================
		{
			Key:         "log.level",
			Value:       "info",
			Description: "Log level: debug, info, warn or error",
		},
		{
			Key:         "log.format",
			Value:       "text",
			Description: "Log format: text or json",
		},
		{
			Key:         "prompts_dir",
			Value:       "",
			Description: "Directory of <key>.tmpl prompt overrides (empty: {home}/prompts)",
		},
		{
			Key:         "metrics_addr",
			Value:       "",
			Description: "Address for the Prometheus /metrics endpoint during runs (empty: disabled)",
		},
	}
}

// GetDefault returns the default value for a config key.
// Returns nil if no default exists for the key.
func GetDefault(key string) *Entry {
	for _, entry := range DefaultEntries() {
		if entry.Key == key {
			return &entry
		}
	}
	return nil
}

// defaultTree nests the dotted default keys into a YAML-ready map.
func defaultTree() map[string]any {
	root := make(map[string]any)
	for _, e := range DefaultEntries() {
		parts := strings.Split(e.Key, ".")
		node := root
		for _, p := range parts[:len(parts)-1] {
			child, ok := node[p].(map[string]any)
			if !ok {
				child = make(map[string]any)
				node[p] = child
			}
			node = child
		}
		node[parts[len(parts)-1]] = e.Value
	}
	return root
}

// DefaultYAML renders the default configuration file.
func DefaultYAML() ([]byte, error) {
	data, err := yaml.Marshal(defaultTree())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	header := []byte(`# Annotator configuration
# API keys use ${ENV_VAR} syntax to reference environment variables
# Every key can also be set as ANNOTATOR_<SECTION>_<KEY>, e.g. ANNOTATOR_PROVIDER_MODEL

`)
	return append(header, data...), nil
}
