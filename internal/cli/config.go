package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lborres/agenda"
)

// Storage drivers
const (
	DriverSQLite   = "sqlite"
	DriverFile     = "file"
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

var validDrivers = []string{DriverSQLite, DriverFile, DriverMemory, DriverPostgres, DriverRedis}

// Config is the CLI configuration, read from a YAML file and then
// overridden by AGENDA_* environment variables.
type Config struct {
	BaseURL      string        `yaml:"base_url"`
	Timeout      time.Duration `yaml:"timeout"`
	TokenKey     string        `yaml:"token_key"`
	EventsPolicy string        `yaml:"events_policy"`
	ListenAddr   string        `yaml:"listen_addr"`
	Storage      StorageConfig `yaml:"storage"`
}

type StorageConfig struct {
	Driver string `yaml:"driver"`
	// Path is the database or token file for the sqlite and file drivers
	Path string `yaml:"path"`
	// DSN is the connection string for the postgres and redis drivers
	DSN    string `yaml:"dsn"`
	Prefix string `yaml:"prefix"`
	// Passphrase seals the token file. Prefer AGENDA_TOKEN_PASSPHRASE.
	Passphrase string `yaml:"passphrase"`
}

// DefaultListenAddr keeps the web shell on loopback. The shell holds one
// session for every client that reaches it.
const DefaultListenAddr = "127.0.0.1:8080"

func DefaultConfig() Config {
	return Config{
		BaseURL:      "http://localhost:3000",
		Timeout:      agenda.DefaultTimeout,
		TokenKey:     agenda.DefaultTokenKey,
		EventsPolicy: agenda.PolicyAppendNew.String(),
		ListenAddr:   DefaultListenAddr,
		Storage: StorageConfig{
			Driver: DriverSQLite,
			Path:   filepath.Join(configDir(), "agenda.db"),
		},
	}
}

func configDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "agenda")
	}
	return "."
}

// DefaultConfigPath is read when --config is not given; it may be absent
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// LoadConfig reads path over the defaults. An explicit path must exist;
// an empty path falls back to DefaultConfigPath, which may be missing.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.BaseURL = getenv("AGENDA_BASE_URL", c.BaseURL)
	c.Timeout = getenvDuration("AGENDA_TIMEOUT", c.Timeout)
	c.TokenKey = getenv("AGENDA_TOKEN_KEY", c.TokenKey)
	c.EventsPolicy = getenv("AGENDA_EVENTS_POLICY", c.EventsPolicy)
	c.ListenAddr = getenv("AGENDA_LISTEN_ADDR", c.ListenAddr)
	c.Storage.Driver = getenv("AGENDA_STORAGE_DRIVER", c.Storage.Driver)
	c.Storage.Path = getenv("AGENDA_STORAGE_PATH", c.Storage.Path)
	c.Storage.DSN = getenv("AGENDA_STORAGE_DSN", c.Storage.DSN)
	c.Storage.Prefix = getenv("AGENDA_STORAGE_PREFIX", c.Storage.Prefix)
	c.Storage.Passphrase = getenv("AGENDA_TOKEN_PASSPHRASE", c.Storage.Passphrase)
}

func (c Config) Validate() error {
	if c.BaseURL == "" {
		return agenda.ErrBaseURLRequired
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("invalid timeout %s: must be positive", c.Timeout)
	}
	if _, err := agenda.ParseMergePolicy(c.EventsPolicy); err != nil {
		return err
	}

	switch c.Storage.Driver {
	case DriverSQLite, DriverFile:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage driver %s needs a path", c.Storage.Driver)
		}
	case DriverPostgres, DriverRedis:
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage driver %s needs a dsn", c.Storage.Driver)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("invalid storage driver %q: must be one of %v", c.Storage.Driver, validDrivers)
	}
	return nil
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	if val := os.Getenv(key + "_SECONDS"); val != "" {
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}
