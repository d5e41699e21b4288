package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	DefaultAPIURL    = "http://localhost:8080"
	DefaultBatchSize = 100
)

// ClientConfig is the persisted configuration of the qfx-import CLI.
type ClientConfig struct {
	Token     string `mapstructure:"token"`
	APIURL    string `mapstructure:"api_url"`
	BatchSize int    `mapstructure:"batch_size"`
}

// ClientKeys lists the keys accepted by "config set".
var ClientKeys = []string{"token", "api_url", "batch_size"}

// DefaultClientConfigPath returns $XDG_CONFIG_HOME/qfx-import/config.toml (or the OS equivalent).
func DefaultClientConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "qfx-import", "config.toml"), nil
}

// LoadClientConfig reads the TOML file at path. A missing file yields defaults.
func LoadClientConfig(path string) (*ClientConfig, error) {
	v := newClientViper(path)
	if err := v.ReadInConfig(); err != nil && !isNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg ClientConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// SetClientValue persists key=value into the TOML file at path, creating it when needed.
func SetClientValue(path, key, value string) error {
	if !validClientKey(key) {
		return fmt.Errorf("unknown config key %q", key)
	}

	v := newClientViper(path)
	if err := v.ReadInConfig(); err != nil && !isNotExist(err) {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if key == "batch_size" {
		var n int
		if _, err := fmt.Sscanf(value, "%d", &n); err != nil || n <= 0 {
			return fmt.Errorf("batch_size must be a positive integer")
		}
		v.Set(key, n)
	} else {
		v.Set(key, value)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return v.WriteConfigAs(path)
}

func newClientViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	v.SetDefault("api_url", DefaultAPIURL)
	v.SetDefault("batch_size", DefaultBatchSize)
	return v
}

func isNotExist(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
}

func validClientKey(key string) bool {
	for _, k := range ClientKeys {
		if k == key {
			return true
		}
	}
	return false
}
