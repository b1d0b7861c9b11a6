package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Manager handles loading and hot-reloading configuration.
type Manager struct {
	v         *viper.Viper
	mu        sync.RWMutex
	config    *Config
	callbacks []func(*Config)
}

// NewManager creates a new config manager and loads initial config.
// An empty cfgFile searches ./config.yaml and ~/.oracle/config.yaml; a missing
// file is not an error.
func NewManager(cfgFile string) (*Manager, error) {
	cm := &Manager{v: viper.New()}

	if err := cm.initViper(cfgFile); err != nil {
		return nil, err
	}

	cfg, err := cm.load()
	if err != nil {
		return nil, err
	}
	cm.config = cfg
	return cm, nil
}

func (cm *Manager) initViper(cfgFile string) error {
	v := cm.v
	d := DefaultConfig()

	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.api_key", d.LLM.APIKey)
	v.SetDefault("llm.base_url", d.LLM.BaseURL)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.prophecy_max_tokens", d.LLM.ProphecyMaxTokens)
	v.SetDefault("llm.insight_max_tokens", d.LLM.InsightMaxTokens)
	v.SetDefault("llm.temperature", d.LLM.Temperature)
	v.SetDefault("llm.max_retries", d.LLM.MaxRetries)
	v.SetDefault("llm.timeout", d.LLM.Timeout)
	v.SetDefault("llm.requests_per_minute", d.LLM.RequestsPerMinute)

	v.SetDefault("store.force_local", d.Store.ForceLocal)
	v.SetDefault("store.dual_write", d.Store.DualWrite)
	v.SetDefault("store.local_path", d.Store.LocalPath)
	v.SetDefault("store.remote_timeout", d.Store.RemoteTimeout)
	v.SetDefault("store.breaker_max_failures", d.Store.BreakerMaxFailures)
	v.SetDefault("store.breaker_open_timeout", d.Store.BreakerOpenTimeout)

	v.SetDefault("defra.url", d.Defra.URL)
	v.SetDefault("defra.account", d.Defra.Account)
	v.SetDefault("defra.container_name", d.Defra.ContainerName)
	v.SetDefault("defra.image", d.Defra.Image)
	v.SetDefault("defra.port", d.Defra.Port)

	v.SetDefault("prophecy.max_tracked", d.Prophecy.MaxTracked)
	v.SetDefault("prophecy.max_insights_per_id", d.Prophecy.MaxInsightsPerID)
	v.SetDefault("prophecy.recall_from_store", d.Prophecy.RecallFromStore)

	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)

	// ORACLE_STORE_FORCE_LOCAL=false overrides store.force_local
	v.SetEnvPrefix("ORACLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.oracle")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		if cfgFile != "" && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

func (cm *Manager) load() (*Config, error) {
	var cfg Config
	if err := cm.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Get returns the current configuration (thread-safe).
func (cm *Manager) Get() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// ConfigFile returns the file the config was read from, if any.
func (cm *Manager) ConfigFile() string {
	return cm.v.ConfigFileUsed()
}

// OnChange registers a callback for config changes.
func (cm *Manager) OnChange(fn func(*Config)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.callbacks = append(cm.callbacks, fn)
}

// WatchConfig enables hot-reloading of configuration. Invalid edits are
// ignored and the previous configuration stays in effect.
func (cm *Manager) WatchConfig() {
	cm.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := cm.load()
		if err != nil {
			return
		}

		cm.mu.Lock()
		cm.config = cfg
		callbacks := make([]func(*Config), len(cm.callbacks))
		copy(callbacks, cm.callbacks)
		cm.mu.Unlock()

		for _, fn := range callbacks {
			fn(cfg)
		}
	})
	cm.v.WatchConfig()
}

// ResolveEnvVars expands ${ENV_VAR} references in a string.
func ResolveEnvVars(value string) string {
	if value == "" {
		return value
	}
	return envVarPattern.ReplaceAllStringFunc(value, func(match string) string {
		return os.Getenv(match[2 : len(match)-1])
	})
}

// WriteDefault writes the default configuration to the specified path.
func WriteDefault(path string) error {
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# Oracle configuration
# API keys use ${ENV_VAR} syntax to reference environment variables:
#   export OPENAI_API_KEY=xxx
# store.force_local keeps everything in the local JSON file; set it to false
# to persist prophecies in DefraDB.

`)
	return os.WriteFile(path, append(header, data...), 0o644)
}
