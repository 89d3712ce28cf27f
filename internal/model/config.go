package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// APIConfig describes how to reach the task service.
type APIConfig struct {
	// BaseURL is the root of the REST API, including any path prefix.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// TimeoutSec bounds a single request, connect to last byte.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// CredentialConfig configures the keyring that holds the session.
type CredentialConfig struct {
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`

	// Backends restricts the keyring backends tried, in order
	// (e.g. "keychain", "secret-service", "wincred", "pass", "file").
	// Empty means all supported backends.
	Backends []string `mapstructure:"backends" yaml:"backends"`

	// FileDir is where the encrypted file backend keeps its items.
	FileDir string `mapstructure:"file_dir" yaml:"file_dir"`
}

// CacheConfig controls the local snapshot of the last task list.
type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	Language      string `mapstructure:"language" yaml:"language"`
	DefaultSort   string `mapstructure:"default_sort" yaml:"default_sort"`
	DefaultStatus string `mapstructure:"default_status" yaml:"default_status"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	File        string `mapstructure:"file" yaml:"file"`
	Development bool   `mapstructure:"development" yaml:"development"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	API        APIConfig        `mapstructure:"api" yaml:"api"`
	Credential CredentialConfig `mapstructure:"credential" yaml:"credential"`
	Cache      CacheConfig      `mapstructure:"cache" yaml:"cache"`
	Display    DisplayConfig    `mapstructure:"display" yaml:"display"`
	Log        LogConfig        `mapstructure:"log" yaml:"log"`
}

// EnvPrefix prefixes environment overrides, e.g. TASKCLIENT_API_BASE_URL.
const EnvPrefix = "TASKCLIENT"

// ConfigDir returns ~/.config/taskclient, or "." when the home directory
// cannot be determined.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "taskclient")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/taskclient/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

func setDefaults(v *viper.Viper) {
	dir := ConfigDir()
	v.SetDefault("api.base_url", "http://localhost:5000/api")
	v.SetDefault("api.timeout_sec", 15)
	v.SetDefault("credential.service_name", "taskclient")
	v.SetDefault("credential.backends", []string{})
	v.SetDefault("credential.file_dir", filepath.Join(dir, "credentials"))
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.path", filepath.Join(dir, "cache.db"))
	v.SetDefault("display.language", "en")
	v.SetDefault("display.default_sort", "none")
	v.SetDefault("display.default_status", "all")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", filepath.Join(dir, "taskclient.log"))
	v.SetDefault("log.development", false)
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// A missing file is not an error: defaults and environment overrides apply.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		var pathErr *os.PathError
		if !errors.As(err, &notFound) && !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.API.BaseURL = strings.TrimRight(cfg.API.BaseURL, "/")
	if cfg.API.BaseURL == "" {
		return nil, fmt.Errorf("config %s: api.base_url must not be empty", path)
	}
	if cfg.API.TimeoutSec <= 0 {
		cfg.API.TimeoutSec = 15
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("api", cfg.API)
	v.Set("credential", cfg.Credential)
	v.Set("cache", cfg.Cache)
	v.Set("display", cfg.Display)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
