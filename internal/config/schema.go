package config

import "time"

// Config holds annotator configuration.
// Stored at: ./config.yaml or {home}/config.yaml
type Config struct {
	Provider    ProviderCfg `mapstructure:"provider" yaml:"provider"`
	Retry       RetryCfg    `mapstructure:"retry" yaml:"retry"`
	Run         RunCfg      `mapstructure:"run" yaml:"run"`
	Log         LogCfg      `mapstructure:"log" yaml:"log"`
	PromptsDir  string      `mapstructure:"prompts_dir" yaml:"prompts_dir"`   // Prompt override directory (empty: {home}/prompts)
	MetricsAddr string      `mapstructure:"metrics_addr" yaml:"metrics_addr"` // Serve /metrics here during runs (empty: disabled)
}

// ProviderCfg configures the model service.
type ProviderCfg struct {
	Type        string        `mapstructure:"type" yaml:"type"`         // "ollama", "openai", "mock"
	BaseURL     string        `mapstructure:"base_url" yaml:"base_url"` // Service endpoint
	Model       string        `mapstructure:"model" yaml:"model"`
	APIKey      string        `mapstructure:"api_key" yaml:"api_key"` // API key (supports ${ENV_VAR} syntax)
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"` // Per-request HTTP timeout
	Temperature float64       `mapstructure:"temperature" yaml:"temperature"`
}

// RetryCfg bounds the per-record retry budget.
type RetryCfg struct {
	Attempts     int           `mapstructure:"attempts" yaml:"attempts"`
	Backoff      time.Duration `mapstructure:"backoff" yaml:"backoff"`
	ProbeTimeout time.Duration `mapstructure:"probe_timeout" yaml:"probe_timeout"`
}

// RunCfg paces a batch run.
type RunCfg struct {
	Delay   time.Duration `mapstructure:"delay" yaml:"delay"` // 0: the task's default
	Workers int           `mapstructure:"workers" yaml:"workers"`
	RPS     float64       `mapstructure:"rps" yaml:"rps"` // Pool rate limit (0: derived from delay)
}

// LogCfg selects the log handler.
type LogCfg struct {
	Level  string `mapstructure:"level" yaml:"level"`   // debug, info, warn, error
	Format string `mapstructure:"format" yaml:"format"` // text or json
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderCfg{
			Type:    "ollama",
			BaseURL: "http://localhost:11434",
			Model:   "llama2",
			APIKey:  "",
			Timeout: 120 * time.Second,
		},
		Retry: RetryCfg{
			Attempts:     3,
			Backoff:      2 * time.Second,
			ProbeTimeout: 10 * time.Second,
		},
		Run: RunCfg{
			Workers: 1,
		},
		Log: LogCfg{
			Level:  "info",
			Format: "text",
		},
	}
}
