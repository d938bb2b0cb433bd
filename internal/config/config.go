// Package config loads quill.yaml, the per-project settings file that
// controls ambient concerns the language itself has no syntax for:
// HTTP timeouts, proto import paths for rpc.call, and log verbosity.
//
// It follows the teacher's funxy.yaml pattern: a small yaml.v3-tagged
// struct, a Find that walks up from a starting directory, and a
// setDefaults pass applied after unmarshaling.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level quill.yaml configuration.
type Config struct {
	HTTP HTTPConfig `yaml:"http"`
	RPC  RPCConfig  `yaml:"rpc"`
	Log  LogConfig  `yaml:"log"`
}

// HTTPConfig bounds the http.get command's asynchronous fetch.
type HTTPConfig struct {
	// TimeoutSeconds bounds how long an http.get call waits for a
	// response before its .error callback fires. Defaults to 30.
	TimeoutSeconds int `yaml:"timeoutSeconds,omitempty"`
}

// RPCConfig configures the rpc.call command's proto descriptor
// resolution.
type RPCConfig struct {
	// ProtoImportPaths lists directories scanned for .proto files at
	// startup; rpc.call resolves "package.Service/Method" targets
	// against whatever those files declare. Empty means rpc.call always
	// fails to resolve a method (there is nothing to look it up against).
	ProtoImportPaths []string `yaml:"protoImportPaths,omitempty"`

	// TimeoutSeconds bounds how long an rpc.call waits for the unary
	// response before its .error callback fires. Defaults to 10.
	TimeoutSeconds int `yaml:"timeoutSeconds,omitempty"`
}

// LogConfig controls the runtime host's diagnostic logging.
type LogConfig struct {
	// Level is one of "debug", "info", "warn", "error". Defaults to
	// "info". Quill's logger doesn't currently filter by level (it uses
	// the teacher's plain log.Logger, which has no notion of levels) —
	// this is read and validated so quill.yaml round-trips cleanly, and
	// is reserved for a future leveled logger.
	Level string `yaml:"level,omitempty"`
}

// HTTPTimeout returns HTTP.TimeoutSeconds as a time.Duration.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// RPCTimeout returns RPC.TimeoutSeconds as a time.Duration.
func (c *Config) RPCTimeout() time.Duration {
	return time.Duration(c.RPC.TimeoutSeconds) * time.Second
}

func (c *Config) setDefaults() {
	if c.HTTP.TimeoutSeconds == 0 {
		c.HTTP.TimeoutSeconds = 30
	}
	if c.RPC.TimeoutSeconds == 0 {
		c.RPC.TimeoutSeconds = 10
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Default returns a Config with every field at its default value, for
// callers that have no quill.yaml on disk.
func Default() *Config {
	c := &Config{}
	c.setDefaults()
	return c
}

// Load reads and parses the quill.yaml at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse parses quill.yaml content from bytes.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.setDefaults()
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level: unknown level %q", c.Log.Level)
	}
	if c.HTTP.TimeoutSeconds < 0 {
		return fmt.Errorf("http.timeoutSeconds: must not be negative")
	}
	if c.RPC.TimeoutSeconds < 0 {
		return fmt.Errorf("rpc.timeoutSeconds: must not be negative")
	}
	return nil
}

// Find searches for quill.yaml starting from dir and walking up to
// parent directories. Returns an empty path and nil error if none is
// found anywhere up to the filesystem root.
func Find(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, "quill.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		candidate = filepath.Join(dir, "quill.yml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}
