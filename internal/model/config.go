package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/nhle/jissue/internal/source"
)

// ConfigPathEnv overrides the location of the configuration file.
const ConfigPathEnv = "JISSUE_CONFIG_PATH"

// Config holds the service host names and the credentials used for both.
type Config struct {
	// JiraFQDN is the host name (or base URL) of the issue tracker.
	JiraFQDN string `mapstructure:"jira_fqdn" json:"jira_fqdn"`

	// ConfluenceFQDN is the host name (or base URL) of the wiki.
	ConfluenceFQDN string `mapstructure:"confluence_fqdn" json:"confluence_fqdn"`

	Username string `mapstructure:"username" json:"username"`

	// Password is empty when the password lives in the OS keyring.
	Password string `mapstructure:"password" json:"password,omitempty"`

	// Keyring records that the password was stored in the OS keyring.
	Keyring bool `mapstructure:"keyring" json:"keyring,omitempty"`
}

// DefaultConfigPath returns ~/.jissue.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".jissue")
	}
	return filepath.Join(home, ".jissue")
}

// ConfigPath returns the configuration file to use, honouring
// JISSUE_CONFIG_PATH as read through getenv.
func ConfigPath(getenv func(string) string) string {
	if p := getenv(ConfigPathEnv); p != "" {
		return p
	}
	return DefaultConfigPath()
}

// Validate reports the first missing setting.
func (c *Config) Validate() error {
	switch {
	case c.JiraFQDN == "":
		return errors.New("jira_fqdn is not set")
	case c.Username == "":
		return errors.New("username is not set")
	}
	return nil
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	if c.Password != "" {
		c.Password = "********"
	}
	return c
}

// LoadConfig reads the JSON configuration file at path using Viper. A
// missing or invalid file is a *source.ConfigError.
func LoadConfig(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &source.ConfigError{Path: path}
		}
		return nil, &source.ConfigError{Path: path, Err: err}
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	if err := v.ReadInConfig(); err != nil {
		return nil, &source.ConfigError{Path: path, Err: err}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, &source.ConfigError{Path: path, Err: fmt.Errorf("parsing: %w", err)}
	}
	if err := cfg.Validate(); err != nil {
		return nil, &source.ConfigError{Path: path, Err: err}
	}
	return cfg, nil
}

// SaveConfig writes cfg as JSON to path, readable only by the owner. The
// file is written next to path and renamed into place.
func SaveConfig(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigType("json")
	v.Set("jira_fqdn", cfg.JiraFQDN)
	v.Set("confluence_fqdn", cfg.ConfluenceFQDN)
	v.Set("username", cfg.Username)
	if cfg.Password != "" {
		v.Set("password", cfg.Password)
	}
	if cfg.Keyring {
		v.Set("keyring", true)
	}

	tmp := path + ".tmp.json"
	if err := v.WriteConfigAs(tmp); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	if err := os.Chmod(tmp, 0o600); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("restricting config %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing config %s: %w", path, err)
	}
	return nil
}
