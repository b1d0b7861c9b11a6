package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configFile, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return configFile
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.LLM.Model != "gpt-4" {
		t.Errorf("model = %s, want gpt-4", cfg.LLM.Model)
	}
	if cfg.LLM.ProphecyMaxTokens != 150 || cfg.LLM.InsightMaxTokens != 300 {
		t.Errorf("token limits = %d/%d", cfg.LLM.ProphecyMaxTokens, cfg.LLM.InsightMaxTokens)
	}
	if cfg.LLM.Temperature != 0.8 {
		t.Errorf("temperature = %v", cfg.LLM.Temperature)
	}
	if !cfg.Store.ForceLocal {
		t.Error("expected force_local by default")
	}
	if cfg.LLM.APIKey != "${OPENAI_API_KEY}" {
		t.Errorf("api key placeholder = %s", cfg.LLM.APIKey)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errKey string
	}{
		{"unknown provider", func(c *Config) { c.LLM.Provider = "bogus" }, "llm.provider"},
		{"temperature", func(c *Config) { c.LLM.Temperature = 3 }, "llm.temperature"},
		{"zero temperature", func(c *Config) { c.LLM.Temperature = 0 }, "llm.temperature"},
		{"negative temperature", func(c *Config) { c.LLM.Temperature = -0.1 }, "llm.temperature"},
		{"bad timeout", func(c *Config) { c.LLM.Timeout = "soon" }, "llm.timeout"},
		{"bad remote timeout", func(c *Config) { c.Store.RemoteTimeout = "10" }, "store.remote_timeout"},
		{"bad breaker timeout", func(c *Config) { c.Store.BreakerOpenTimeout = "x" }, "store.breaker_open_timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.errKey) {
				t.Errorf("error %q does not name %s", err, tt.errKey)
			}
		})
	}
}

func TestConfig_Durations(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.LLMTimeout() != time.Minute {
		t.Errorf("LLMTimeout() = %v", cfg.LLMTimeout())
	}
	if cfg.RemoteTimeout() != 10*time.Second {
		t.Errorf("RemoteTimeout() = %v", cfg.RemoteTimeout())
	}
	if cfg.BreakerOpenTimeout() != 30*time.Second {
		t.Errorf("BreakerOpenTimeout() = %v", cfg.BreakerOpenTimeout())
	}

	cfg.LLM.Timeout = ""
	if cfg.LLMTimeout() != 0 {
		t.Errorf("empty timeout = %v, want 0", cfg.LLMTimeout())
	}
}

func TestResolveEnvVars(t *testing.T) {
	t.Run("resolves environment variable", func(t *testing.T) {
		t.Setenv("TEST_API_KEY", "secret123")

		result := ResolveEnvVars("${TEST_API_KEY}")
		if result != "secret123" {
			t.Errorf("expected secret123, got %s", result)
		}
	})

	t.Run("returns empty for missing env var", func(t *testing.T) {
		result := ResolveEnvVars("${DEFINITELY_NOT_SET_12345}")
		if result != "" {
			t.Errorf("expected empty string, got %s", result)
		}
	})

	t.Run("leaves literal values unchanged", func(t *testing.T) {
		result := ResolveEnvVars("literal-value")
		if result != "literal-value" {
			t.Errorf("expected literal-value, got %s", result)
		}
	})

	t.Run("expands inside a string", func(t *testing.T) {
		t.Setenv("TEST_HOST", "example.org")

		result := ResolveEnvVars("https://${TEST_HOST}/v1")
		if result != "https://example.org/v1" {
			t.Errorf("got %s", result)
		}
	})
}

func TestConfig_ResolvedAPIKey(t *testing.T) {
	t.Setenv("TEST_OPENAI_KEY", "sk-123")

	cfg := DefaultConfig()
	cfg.LLM.APIKey = "${TEST_OPENAI_KEY}"
	if got := cfg.ResolvedAPIKey(); got != "sk-123" {
		t.Errorf("expected sk-123, got %s", got)
	}

	cfg.LLM.APIKey = "direct-key"
	if got := cfg.ResolvedAPIKey(); got != "direct-key" {
		t.Errorf("expected direct-key, got %s", got)
	}
}

func TestNewManager(t *testing.T) {
	t.Run("loads from config file", func(t *testing.T) {
		configFile := writeConfig(t, `
llm:
  provider: mock
  model: gpt-4o-mini
store:
  force_local: false
  dual_write: true
prophecy:
  max_tracked: 10
`)

		mgr, err := NewManager(configFile)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}

		cfg := mgr.Get()
		if cfg.LLM.Provider != "mock" || cfg.LLM.Model != "gpt-4o-mini" {
			t.Errorf("llm = %+v", cfg.LLM)
		}
		if cfg.Store.ForceLocal || !cfg.Store.DualWrite {
			t.Errorf("store = %+v", cfg.Store)
		}
		if cfg.Prophecy.MaxTracked != 10 {
			t.Errorf("max_tracked = %d", cfg.Prophecy.MaxTracked)
		}
		// Unset keys keep their defaults.
		if cfg.LLM.InsightMaxTokens != 300 {
			t.Errorf("insight_max_tokens = %d, want default", cfg.LLM.InsightMaxTokens)
		}
		if mgr.ConfigFile() != configFile {
			t.Errorf("ConfigFile() = %s", mgr.ConfigFile())
		}
	})

	t.Run("missing file uses defaults", func(t *testing.T) {
		mgr, err := NewManager(filepath.Join(t.TempDir(), "absent.yaml"))
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}
		if mgr.Get().Server.Port != "8080" {
			t.Errorf("port = %s", mgr.Get().Server.Port)
		}
	})

	t.Run("environment overrides file", func(t *testing.T) {
		configFile := writeConfig(t, "llm:\n  model: from-file\n")
		t.Setenv("ORACLE_LLM_MODEL", "from-env")

		mgr, err := NewManager(configFile)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}
		if got := mgr.Get().LLM.Model; got != "from-env" {
			t.Errorf("model = %s, want from-env", got)
		}
	})

	t.Run("rejects invalid config", func(t *testing.T) {
		configFile := writeConfig(t, "llm:\n  provider: carrier-pigeon\n")
		if _, err := NewManager(configFile); err == nil {
			t.Error("expected error for unknown provider")
		}
	})
}

func TestManager_OnChange_Multiple(t *testing.T) {
	mgr, err := NewManager(writeConfig(t, "llm:\n  provider: mock\n"))
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})

	mgr.mu.RLock()
	if len(mgr.callbacks) != 3 {
		t.Errorf("expected 3 callbacks, got %d", len(mgr.callbacks))
	}
	mgr.mu.RUnlock()
}

func TestManager_Get_ThreadSafe(t *testing.T) {
	mgr, err := NewManager(writeConfig(t, "llm:\n  provider: mock\n"))
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				_ = mgr.Get().LLM.Model
			}
			done <- struct{}{}
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}
}

func TestManager_WatchConfig(t *testing.T) {
	configFile := writeConfig(t, "llm:\n  provider: mock\n  model: initial\n")

	mgr, err := NewManager(configFile)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}
	if got := mgr.Get().LLM.Model; got != "initial" {
		t.Fatalf("initial model = %s", got)
	}

	var callbackCount atomic.Int32
	var lastValue atomic.Value
	mgr.OnChange(func(cfg *Config) {
		callbackCount.Add(1)
		lastValue.Store(cfg.LLM.Model)
	})

	mgr.WatchConfig()

	// Give fsnotify time to set up the watcher
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(configFile, []byte("llm:\n  provider: mock\n  model: updated\n"), 0644); err != nil {
		t.Fatalf("failed to write updated config file: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if v, _ := lastValue.Load().(string); v == "updated" {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	if callbackCount.Load() == 0 {
		t.Fatal("callback was not invoked after config file change")
	}
	if got := mgr.Get().LLM.Model; got != "updated" {
		t.Errorf("config not updated: got %s", got)
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "# Oracle configuration") {
		t.Error("missing header")
	}

	mgr, err := NewManager(path)
	if err != nil {
		t.Fatalf("written default does not load: %v", err)
	}
	cfg := mgr.Get()
	if cfg.LLM.Model != "gpt-4" || !cfg.Store.ForceLocal {
		t.Errorf("round trip config = %+v", cfg)
	}
}
