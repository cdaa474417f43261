// Package config loads the flowboard configuration file.
package config

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/flowboard/internal/logging"
	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
	BackendRemote = "remote"
)

// DefaultPath is read when no config file is given.
const DefaultPath = "flowboard.yaml"

// Config is the whole configuration file.
type Config struct {
	Listen      string        `yaml:"listen" json:"listen"`
	LogLevel    string        `yaml:"log_level" json:"log_level"`
	LogFormat   string        `yaml:"log_format" json:"log_format"`
	SaveTimeout time.Duration `yaml:"save_timeout" json:"save_timeout"`
	Storage     Storage       `yaml:"storage" json:"storage"`
}

// Storage selects and configures the flow repository.
type Storage struct {
	Backend string `yaml:"backend" json:"backend"`

	// EncryptionKey is a hex-encoded 32-byte AES key. Empty disables encryption.
	EncryptionKey string `yaml:"encryption_key" json:"encryption_key"`
	// FallbackKeys are older keys still accepted when reading.
	FallbackKeys []string `yaml:"fallback_keys" json:"fallback_keys"`

	File   FileStorage   `yaml:"file" json:"file"`
	Redis  RedisStorage  `yaml:"redis" json:"redis"`
	SQLite SQLiteStorage `yaml:"sqlite" json:"sqlite"`
	Remote RemoteStorage `yaml:"remote" json:"remote"`
}

// FileStorage configures the file backend.
type FileStorage struct {
	Dir string `yaml:"dir" json:"dir"`
}

// RedisStorage configures the redis backend.
type RedisStorage struct {
	Addr     string        `yaml:"addr" json:"addr"`
	Password string        `yaml:"password" json:"password"`
	DB       int           `yaml:"db" json:"db"`
	Prefix   string        `yaml:"prefix" json:"prefix"`
	TTL      time.Duration `yaml:"ttl" json:"ttl"`
	Compress bool          `yaml:"compress" json:"compress"`
}

// SQLiteStorage configures the sqlite backend.
type SQLiteStorage struct {
	DSN      string `yaml:"dsn" json:"dsn"`
	Table    string `yaml:"table" json:"table"`
	Compress bool   `yaml:"compress" json:"compress"`
}

// RemoteStorage points at a service exposing the flow-agents endpoints.
type RemoteStorage struct {
	BaseURL string        `yaml:"base_url" json:"base_url"`
	Token   string        `yaml:"token" json:"token"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Listen:      ":8080",
		LogLevel:    "info",
		SaveTimeout: 30 * time.Second,
		Storage: Storage{
			Backend: BackendMemory,
			File:    FileStorage{Dir: filepath.Join(".flowboard", "flows")},
			Redis:   RedisStorage{Addr: "localhost:6379", Prefix: "flowboard:flow:"},
			SQLite:  SQLiteStorage{DSN: "flowboard.db", Table: "flows"},
			Remote:  RemoteStorage{Timeout: 10 * time.Second},
		},
	}
}

// Load reads a configuration file (YAML or JSON) on top of Default.
// A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if strings.ToLower(filepath.Ext(path)) == ".json" {
		err = json.Unmarshal(data, &cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return cfg, cfg.Validate()
}

// Validate checks values a typo would otherwise turn into a late failure.
func (c Config) Validate() error {
	switch c.Storage.Backend {
	case BackendMemory, BackendFile, BackendRedis, BackendSQLite:
	case BackendRemote:
		if c.Storage.Remote.BaseURL == "" {
			return fmt.Errorf("storage.remote.base_url is required for the remote backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	key, err := c.Storage.Key()
	if err != nil {
		return err
	}
	if key != nil && c.Storage.Backend == BackendRemote {
		return fmt.Errorf("storage.encryption_key is not supported by the remote backend")
	}
	if key == nil && len(c.Storage.FallbackKeys) > 0 {
		return fmt.Errorf("storage.fallback_keys requires storage.encryption_key")
	}
	if _, err := c.Storage.Fallbacks(); err != nil {
		return err
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if _, err := logging.ParseFormat(c.LogFormat); err != nil {
		return err
	}
	return nil
}

// Key decodes the encryption key. It returns nil when encryption is off.
func (s Storage) Key() ([]byte, error) {
	if s.EncryptionKey == "" {
		return nil, nil
	}
	return decodeKey("storage.encryption_key", s.EncryptionKey)
}

// Fallbacks decodes the fallback keys.
func (s Storage) Fallbacks() ([][]byte, error) {
	keys := make([][]byte, 0, len(s.FallbackKeys))
	for i, k := range s.FallbackKeys {
		key, err := decodeKey(fmt.Sprintf("storage.fallback_keys[%d]", i), k)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func decodeKey(name, value string) ([]byte, error) {
	key, err := hex.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("%s must be 32 bytes, got %d", name, len(key))
	}
	return key, nil
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if name == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log_level %q", name)
	}
	return level, nil
}
