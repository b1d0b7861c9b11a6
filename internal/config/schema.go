package config

import (
	"fmt"
	"time"
)

// Config holds oracle configuration.
// Stored at: {home}/config.yaml
type Config struct {
	LLM      LLMConfig      `mapstructure:"llm" yaml:"llm"`
	Store    StoreConfig    `mapstructure:"store" yaml:"store"`
	Defra    DefraConfig    `mapstructure:"defra" yaml:"defra"`
	Prophecy ProphecyConfig `mapstructure:"prophecy" yaml:"prophecy"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
}

// LLMConfig configures the text generator.
type LLMConfig struct {
	Provider          string  `mapstructure:"provider" yaml:"provider"`                       // "openai" or "mock"
	APIKey            string  `mapstructure:"api_key" yaml:"api_key"`                         // supports ${ENV_VAR} syntax
	BaseURL           string  `mapstructure:"base_url" yaml:"base_url"`                       // any OpenAI-compatible endpoint
	Model             string  `mapstructure:"model" yaml:"model"`
	ProphecyMaxTokens int     `mapstructure:"prophecy_max_tokens" yaml:"prophecy_max_tokens"`
	InsightMaxTokens  int     `mapstructure:"insight_max_tokens" yaml:"insight_max_tokens"`
	Temperature       float64 `mapstructure:"temperature" yaml:"temperature"`
	MaxRetries        int     `mapstructure:"max_retries" yaml:"max_retries"`
	Timeout           string  `mapstructure:"timeout" yaml:"timeout"`
	// RequestsPerMinute caps generator calls; 0 means unlimited.
	RequestsPerMinute int     `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
}

// StoreConfig configures the content store.
type StoreConfig struct {
	// ForceLocal skips DefraDB entirely.
	ForceLocal bool `mapstructure:"force_local" yaml:"force_local"`
	// DualWrite also writes locally after a successful remote write.
	DualWrite bool `mapstructure:"dual_write" yaml:"dual_write"`
	// LocalPath overrides {home}/data/prophecies.json.
	LocalPath          string `mapstructure:"local_path" yaml:"local_path"`
	RemoteTimeout      string `mapstructure:"remote_timeout" yaml:"remote_timeout"`
	BreakerMaxFailures uint32 `mapstructure:"breaker_max_failures" yaml:"breaker_max_failures"`
	BreakerOpenTimeout string `mapstructure:"breaker_open_timeout" yaml:"breaker_open_timeout"`
}

// DefraConfig holds DefraDB connection and container configuration.
type DefraConfig struct {
	// URL of an externally managed node. When empty, serve runs a container.
	URL string `mapstructure:"url" yaml:"url"`
	// Account tags every stored prophecy with its owner.
	Account string `mapstructure:"account" yaml:"account"`
	// ContainerName defaults to a name derived from the home directory.
	ContainerName string `mapstructure:"container_name" yaml:"container_name"`
	Image         string `mapstructure:"image" yaml:"image"`
	Port          string `mapstructure:"port" yaml:"port"`
}

// ProphecyConfig bounds the in-memory insight context.
type ProphecyConfig struct {
	MaxTracked       int  `mapstructure:"max_tracked" yaml:"max_tracked"`
	MaxInsightsPerID int  `mapstructure:"max_insights_per_id" yaml:"max_insights_per_id"`
	RecallFromStore  bool `mapstructure:"recall_from_store" yaml:"recall_from_store"`
}

// ServerConfig holds the HTTP listener address.
type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port string `mapstructure:"port" yaml:"port"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:          "openai",
			APIKey:            "${OPENAI_API_KEY}",
			Model:             "gpt-4",
			ProphecyMaxTokens: 150,
			InsightMaxTokens:  300,
			Temperature:       0.8,
			MaxRetries:        3,
			Timeout:           "60s",
		},
		Store: StoreConfig{
			ForceLocal:         true,
			RemoteTimeout:      "10s",
			BreakerMaxFailures: 5,
			BreakerOpenTimeout: "30s",
		},
		Defra: DefraConfig{
			Account: "oracle",
			Image:   "sourcenetwork/defradb:latest",
			Port:    "9181",
		},
		Prophecy: ProphecyConfig{
			MaxTracked:       1000,
			MaxInsightsPerID: 20,
		},
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: "8080",
		},
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "openai", "mock":
	default:
		return fmt.Errorf("llm.provider: unknown provider %q", c.LLM.Provider)
	}
	// Zero reads as unset in the prophecy service and the OpenAI client.
	if c.LLM.Temperature <= 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature: %v out of range (0, 2]", c.LLM.Temperature)
	}
	for key, val := range map[string]string{
		"llm.timeout":                c.LLM.Timeout,
		"store.remote_timeout":       c.Store.RemoteTimeout,
		"store.breaker_open_timeout": c.Store.BreakerOpenTimeout,
	} {
		if val == "" {
			continue
		}
		if _, err := time.ParseDuration(val); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}

// LLMTimeout returns llm.timeout, or zero when unset or invalid.
func (c *Config) LLMTimeout() time.Duration {
	return parseDuration(c.LLM.Timeout)
}

// RemoteTimeout returns store.remote_timeout, or zero when unset or invalid.
func (c *Config) RemoteTimeout() time.Duration {
	return parseDuration(c.Store.RemoteTimeout)
}

// BreakerOpenTimeout returns store.breaker_open_timeout, or zero when unset or invalid.
func (c *Config) BreakerOpenTimeout() time.Duration {
	return parseDuration(c.Store.BreakerOpenTimeout)
}

// ResolvedAPIKey returns llm.api_key with ${ENV_VAR} references expanded.
func (c *Config) ResolvedAPIKey() string {
	return ResolveEnvVars(c.LLM.APIKey)
}

func parseDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}
