// Package config loads the exchanger settings from a yaml file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rescp17/nearbyExchanger/pkg/exchanger"
	"github.com/rescp17/nearbyExchanger/pkg/nearby"
	"github.com/rescp17/nearbyExchanger/pkg/storage"
	"github.com/rescp17/nearbyExchanger/pkg/transfer"
)

const (
	// AppDirectoryName is the per-user application data directory name.
	AppDirectoryName = "nearby-exchanger"
	// DataDirEnv overrides the resolved data directory.
	DataDirEnv     = "NEARBY_EXCHANGER_DATA_DIR"
	configFileName = "config.yaml"
)

type Config struct {
	// DeviceName is announced to peers. Empty means the host name.
	DeviceName string `yaml:"device_name" json:"device_name"`
	ServiceID  string `yaml:"service_id" json:"service_id"`
	// Port of the local HTTP API. Zero picks a free port.
	Port     int    `yaml:"port" json:"port"`
	Strategy string `yaml:"strategy" json:"strategy"`
	// Store selects the settings backend, json or sqlite.
	Store   string `yaml:"store" json:"store"`
	DataDir string `yaml:"data_dir" json:"data_dir"`

	ConnectTimeout  time.Duration   `yaml:"connect_timeout" json:"connect_timeout"`
	EventBufferSize int             `yaml:"event_buffer_size" json:"event_buffer_size"`
	Transfer        transfer.Config `yaml:"transfer" json:"transfer"`
}

func Default() *Config {
	return &Config{
		ServiceID:       exchanger.DefaultServiceID,
		Strategy:        exchanger.DefaultStrategy.String(),
		Store:           storage.KindJSON,
		ConnectTimeout:  exchanger.DefaultRequestTimeout,
		EventBufferSize: 16,
		Transfer:        *transfer.DefaultConfig(),
	}
}

func (c *Config) Validate() error {
	if c.ServiceID == "" {
		return errors.New("service_id must not be empty")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d is out of range", c.Port)
	}
	if _, err := nearby.ParseStrategy(c.Strategy); err != nil {
		return fmt.Errorf("strategy: %w", err)
	}
	switch c.Store {
	case storage.KindJSON, storage.KindSQLite:
	default:
		return fmt.Errorf("store must be %q or %q, got %q", storage.KindJSON, storage.KindSQLite, c.Store)
	}
	if c.ConnectTimeout <= 0 {
		return errors.New("connect_timeout must be positive")
	}
	if c.EventBufferSize <= 0 {
		return errors.New("event_buffer_size must be positive")
	}
	if err := c.Transfer.Validate(); err != nil {
		return fmt.Errorf("transfer: %w", err)
	}
	return nil
}

// StrategyValue returns the parsed Strategy. Call after Validate.
func (c *Config) StrategyValue() nearby.Strategy {
	s, err := nearby.ParseStrategy(c.Strategy)
	if err != nil {
		return exchanger.DefaultStrategy
	}
	return s
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// ResolveDataDir returns the OS-aware app data directory. DataDirEnv, when
// set, wins.
func ResolveDataDir() (string, error) {
	if override := os.Getenv(DataDirEnv); override != "" {
		return override, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve user home: %w", err)
	}

	switch runtime.GOOS {
	case "windows":
		base := os.Getenv("APPDATA")
		if base == "" {
			base = filepath.Join(home, "AppData", "Roaming")
		}
		return filepath.Join(base, AppDirectoryName), nil
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", AppDirectoryName), nil
	default:
		base := os.Getenv("XDG_CONFIG_HOME")
		if base == "" {
			base = filepath.Join(home, ".config")
		}
		return filepath.Join(base, AppDirectoryName), nil
	}
}

// Path returns the config file location inside dataDir.
func Path(dataDir string) string {
	return filepath.Join(dataDir, configFileName)
}
