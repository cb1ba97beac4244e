package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	t.Run("node defaults", func(t *testing.T) {
		if config.Node.Address != "127.0.0.1:40000" {
			t.Errorf("expected address '127.0.0.1:40000', got %q", config.Node.Address)
		}
		if len(config.Node.Peers) != 0 {
			t.Errorf("expected no peers, got %v", config.Node.Peers)
		}
	})

	t.Run("storage defaults", func(t *testing.T) {
		if config.Storage.Backend != BackendBolt {
			t.Errorf("expected backend 'bolt', got %q", config.Storage.Backend)
		}
		if config.Storage.DataDir != "/tmp/cloudkv" {
			t.Errorf("expected data dir '/tmp/cloudkv', got %q", config.Storage.DataDir)
		}
		if config.Storage.Partitions != 4 {
			t.Errorf("expected 4 partitions, got %d", config.Storage.Partitions)
		}
	})

	t.Run("raft defaults", func(t *testing.T) {
		if config.Raft.ElectionTimeoutMin != 2*time.Second {
			t.Errorf("expected election timeout min 2s, got %v", config.Raft.ElectionTimeoutMin)
		}
		if config.Raft.ElectionTimeoutMax != 4*time.Second {
			t.Errorf("expected election timeout max 4s, got %v", config.Raft.ElectionTimeoutMax)
		}
		if config.Raft.HeartbeatInterval != 450*time.Millisecond {
			t.Errorf("expected heartbeat 450ms, got %v", config.Raft.HeartbeatInterval)
		}
		if config.Raft.DialTimeout != 450*time.Millisecond {
			t.Errorf("expected dial timeout 450ms, got %v", config.Raft.DialTimeout)
		}
	})

	t.Run("logging defaults", func(t *testing.T) {
		if config.Logging.Level != "info" {
			t.Errorf("expected log level 'info', got %q", config.Logging.Level)
		}
		if config.Logging.Format != "text" {
			t.Errorf("expected log format 'text', got %q", config.Logging.Format)
		}
		if config.Logging.Output != "stdout" {
			t.Errorf("expected log output 'stdout', got %q", config.Logging.Output)
		}
	})

	t.Run("defaults are valid", func(t *testing.T) {
		if errs := ValidateConfig(config); len(errs) != 0 {
			t.Errorf("expected no validation errors, got %v", errs)
		}
	})
}

func TestParseConfig(t *testing.T) {
	t.Run("empty config uses defaults", func(t *testing.T) {
		config, err := ParseConfig([]byte(""))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if config.Node.Address != "127.0.0.1:40000" {
			t.Errorf("expected default address, got %q", config.Node.Address)
		}
	})

	t.Run("parse node config", func(t *testing.T) {
		yaml := `
node:
  address: "127.0.0.1:41000"
  peers:
    - "127.0.0.1:40000"
    - "127.0.0.1:42000"
`
		config, err := ParseConfig([]byte(yaml))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if config.Node.Address != "127.0.0.1:41000" {
			t.Errorf("expected address '127.0.0.1:41000', got %q", config.Node.Address)
		}
		if len(config.Node.Peers) != 2 || config.Node.Peers[1] != "127.0.0.1:42000" {
			t.Errorf("unexpected peers: %v", config.Node.Peers)
		}
	})

	t.Run("parse durations", func(t *testing.T) {
		yaml := `
raft:
  electionTimeoutMin: 150ms
  electionTimeoutMax: 300ms
  heartbeatInterval: 50ms
`
		config, err := ParseConfig([]byte(yaml))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if config.Raft.ElectionTimeoutMin != 150*time.Millisecond {
			t.Errorf("expected 150ms, got %v", config.Raft.ElectionTimeoutMin)
		}
		if config.Raft.ElectionTimeoutMax != 300*time.Millisecond {
			t.Errorf("expected 300ms, got %v", config.Raft.ElectionTimeoutMax)
		}
		if config.Raft.HeartbeatInterval != 50*time.Millisecond {
			t.Errorf("expected 50ms, got %v", config.Raft.HeartbeatInterval)
		}
		// Unset keys keep their defaults
		if config.Raft.DialTimeout != 450*time.Millisecond {
			t.Errorf("expected default dial timeout, got %v", config.Raft.DialTimeout)
		}
	})

	t.Run("partial section keeps defaults", func(t *testing.T) {
		yaml := `
storage:
  backend: memory
`
		config, err := ParseConfig([]byte(yaml))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if config.Storage.Backend != BackendMemory {
			t.Errorf("expected backend 'memory', got %q", config.Storage.Backend)
		}
		if config.Storage.Partitions != 4 {
			t.Errorf("expected default partitions, got %d", config.Storage.Partitions)
		}
	})
}

func TestInvalidYAML(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"syntax", "node:\n  address: [unclosed\n"},
		{"unknown key", "node:\n  nickname: x\n"},
		{"invalid number", "storage:\n  partitions: many\n"},
		{"invalid duration", "raft:\n  heartbeatInterval: soon\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.yaml))
			if !errors.Is(err, ErrInvalidYAML) {
				t.Errorf("expected ErrInvalidYAML, got %v", err)
			}
		})
	}
}

func TestEnvironmentVariableSubstitution(t *testing.T) {
	t.Run("simple substitution", func(t *testing.T) {
		os.Setenv("TEST_CLOUDKV_ADDRESS", "127.0.0.1:43000")
		defer os.Unsetenv("TEST_CLOUDKV_ADDRESS")

		yaml := `
node:
  address: "${TEST_CLOUDKV_ADDRESS}"
`
		config, err := ParseConfig([]byte(yaml))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if config.Node.Address != "127.0.0.1:43000" {
			t.Errorf("expected address '127.0.0.1:43000', got %q", config.Node.Address)
		}
	})

	t.Run("substitution with default value", func(t *testing.T) {
		os.Unsetenv("TEST_CLOUDKV_MISSING")

		yaml := `
storage:
  dataDir: "${TEST_CLOUDKV_MISSING:-/srv/cloudkv}"
`
		config, err := ParseConfig([]byte(yaml))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if config.Storage.DataDir != "/srv/cloudkv" {
			t.Errorf("expected data dir '/srv/cloudkv', got %q", config.Storage.DataDir)
		}
	})

	t.Run("substitution with default when var is set", func(t *testing.T) {
		os.Setenv("TEST_CLOUDKV_SET", "debug")
		defer os.Unsetenv("TEST_CLOUDKV_SET")

		yaml := `
logging:
  level: "${TEST_CLOUDKV_SET:-warn}"
`
		config, err := ParseConfig([]byte(yaml))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if config.Logging.Level != "debug" {
			t.Errorf("expected level 'debug', got %q", config.Logging.Level)
		}
	})
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Run("substitute single var", func(t *testing.T) {
		os.Setenv("TEST_VAR", "value")
		defer os.Unsetenv("TEST_VAR")

		result := substituteEnvVars([]byte("key: ${TEST_VAR}"))
		if string(result) != "key: value" {
			t.Errorf("expected %q, got %q", "key: value", string(result))
		}
	})

	t.Run("unset variable becomes empty", func(t *testing.T) {
		os.Unsetenv("TEST_MISSING")

		result := substituteEnvVars([]byte("key: '${TEST_MISSING}'"))
		if string(result) != "key: ''" {
			t.Errorf("expected %q, got %q", "key: ''", string(result))
		}
	})

	t.Run("no substitution needed", func(t *testing.T) {
		input := []byte("key: value")
		result := substituteEnvVars(input)
		if string(result) != string(input) {
			t.Errorf("expected %q, got %q", string(input), string(result))
		}
	})
}

func TestLoadConfig(t *testing.T) {
	t.Run("load from file", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "node.yaml")

		yaml := `
node:
  address: "127.0.0.1:47000"
storage:
  partitions: 8
logging:
  level: "warn"
`
		if err := os.WriteFile(configPath, []byte(yaml), 0644); err != nil {
			t.Fatalf("failed to write config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if config.Node.Address != "127.0.0.1:47000" {
			t.Errorf("expected address '127.0.0.1:47000', got %q", config.Node.Address)
		}
		if config.Storage.Partitions != 8 {
			t.Errorf("expected 8 partitions, got %d", config.Storage.Partitions)
		}
		if config.Logging.Level != "warn" {
			t.Errorf("expected log level 'warn', got %q", config.Logging.Level)
		}
	})

	t.Run("file not found", func(t *testing.T) {
		_, err := LoadConfig("/nonexistent/path/config.yaml")
		if err != ErrFileNotFound {
			t.Errorf("expected ErrFileNotFound, got %v", err)
		}
	})
}

func TestMarshalRoundTrip(t *testing.T) {
	config := DefaultConfig()
	config.Node.Peers = []string{"127.0.0.1:41000"}
	config.Raft.HeartbeatInterval = 100 * time.Millisecond

	data, err := Marshal(config)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !strings.Contains(string(data), "heartbeatInterval: 100ms") {
		t.Errorf("durations should render as strings:\n%s", data)
	}

	parsed, err := ParseConfig(data)
	if err != nil {
		t.Fatalf("ParseConfig failed: %v", err)
	}
	if parsed.Raft.HeartbeatInterval != 100*time.Millisecond {
		t.Errorf("expected 100ms, got %v", parsed.Raft.HeartbeatInterval)
	}
	if len(parsed.Node.Peers) != 1 || parsed.Node.Peers[0] != "127.0.0.1:41000" {
		t.Errorf("unexpected peers: %v", parsed.Node.Peers)
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"missing address", func(c *Config) { c.Node.Address = "" }, "node.address"},
		{"address without port", func(c *Config) { c.Node.Address = "127.0.0.1" }, "node.address"},
		{"bad port", func(c *Config) { c.Node.Address = "127.0.0.1:99999" }, "node.address"},
		{"bad peer", func(c *Config) { c.Node.Peers = []string{"nowhere"} }, "node.peers[0]"},
		{"duplicate peer", func(c *Config) { c.Node.Peers = []string{"a:1", "a:1"} }, "node.peers[1]"},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "rocks" }, "storage.backend"},
		{"bolt without dir", func(c *Config) { c.Storage.DataDir = "" }, "storage.dataDir"},
		{"zero partitions", func(c *Config) { c.Storage.Partitions = 0 }, "storage.partitions"},
		{"zero election", func(c *Config) { c.Raft.ElectionTimeoutMin = 0 }, "raft.electionTimeoutMin"},
		{"inverted window", func(c *Config) { c.Raft.ElectionTimeoutMax = time.Second }, "raft.electionTimeoutMax"},
		{"slow heartbeat", func(c *Config) { c.Raft.HeartbeatInterval = 3 * time.Second }, "raft.heartbeatInterval"},
		{"zero dial timeout", func(c *Config) { c.Raft.DialTimeout = 0 }, "raft.dialTimeout"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"relative output", func(c *Config) { c.Logging.Output = "node.log" }, "logging.output"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.modify(config)

			errs := ValidateConfig(config)
			if len(errs) != 1 {
				t.Fatalf("expected 1 error, got %v", errs)
			}
			var ve ValidationError
			if !errors.As(errs[0], &ve) {
				t.Fatalf("expected ValidationError, got %T", errs[0])
			}
			if ve.Field != tt.field {
				t.Errorf("expected field %q, got %q (%s)", tt.field, ve.Field, ve.Message)
			}
		})
	}

	t.Run("memory backend needs no data dir", func(t *testing.T) {
		config := DefaultConfig()
		config.Storage.Backend = BackendMemory
		config.Storage.DataDir = ""
		if errs := ValidateConfig(config); len(errs) != 0 {
			t.Errorf("expected no errors, got %v", errs)
		}
	})
}

func TestWatcher(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.yaml")
	if err := os.WriteFile(path, []byte("logging:\n  level: info\n"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	changes := make(chan *Config, 4)
	w, err := NewWatcher(&WatcherConfig{
		FilePath:     path,
		PollInterval: 10 * time.Millisecond,
		Debounce:     20 * time.Millisecond,
		OnChange: func(_, newCfg *Config) {
			changes <- newCfg
		},
	})
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	w.Start()
	defer w.Stop()

	// Invalid configuration is ignored
	if err := os.WriteFile(path, []byte("logging:\n  level: shouting\n"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	select {
	case cfg := <-changes:
		t.Fatalf("invalid config delivered: %+v", cfg.Logging)
	case <-time.After(150 * time.Millisecond):
	}

	if err := os.WriteFile(path, []byte("logging:\n  level: debug\n  format: json\n"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	select {
	case cfg := <-changes:
		if cfg.Logging.Level != "debug" {
			t.Errorf("expected level 'debug', got %q", cfg.Logging.Level)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no reload after valid change")
	}

	if w.Current().Logging.Level != "debug" {
		t.Errorf("Current() not updated: %q", w.Current().Logging.Level)
	}
}

func TestNewWatcherErrors(t *testing.T) {
	if _, err := NewWatcher(&WatcherConfig{OnChange: func(_, _ *Config) {}}); err != ErrMissingConfigFile {
		t.Errorf("expected ErrMissingConfigFile, got %v", err)
	}
	if _, err := NewWatcher(&WatcherConfig{FilePath: "x.yaml"}); err != ErrMissingOnChange {
		t.Errorf("expected ErrMissingOnChange, got %v", err)
	}
	_, err := NewWatcher(&WatcherConfig{FilePath: "/nonexistent/node.yaml", OnChange: func(_, _ *Config) {}})
	if err == nil {
		t.Error("expected error for missing file")
	}
}
