package shared

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	"github.com/desertthunder/ledgerx/internal/models"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Database DatabaseConfig  `toml:"database"`
	HTTP     HTTPConfig      `toml:"http"`
	Log      LogConfig       `toml:"log"`
	Profiles []ProfileConfig `toml:"profiles"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// HTTPConfig contains settings for requests to ledger servers.
type HTTPConfig struct {
	TimeoutSeconds int     `toml:"timeout_seconds"`
	RateLimit      float64 `toml:"rate_limit"` // requests per second, 0 disables limiting
	UserAgent      string  `toml:"user_agent"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// ProfileConfig describes a ledger server entry.
type ProfileConfig struct {
	ID              string `toml:"id"`
	Name            string `toml:"name"`
	URL             string `toml:"url"`
	APIVersion      string `toml:"api_version"`
	DefaultCurrency string `toml:"default_currency"`
	AuthUser        string `toml:"auth_user,omitempty"`
	AuthPassword    string `toml:"auth_password,omitempty"`
}

// Profile converts the entry into a [models.Profile].
func (p ProfileConfig) Profile() (models.Profile, error) {
	if p.URL == "" {
		return models.Profile{}, fmt.Errorf("%w: profile %q has no url", ErrInvalidConfig, p.Name)
	}
	version, err := models.ParseAPIVersion(p.APIVersion)
	if err != nil {
		return models.Profile{}, fmt.Errorf("%w: profile %q: %w", ErrInvalidConfig, p.Name, err)
	}

	profile := models.Profile{
		ID:              p.ID,
		Name:            p.Name,
		URL:             p.URL,
		APIVersion:      version,
		DefaultCurrency: p.DefaultCurrency,
	}
	if p.AuthUser != "" {
		profile.Auth = &models.Credentials{User: p.AuthUser, Password: p.AuthPassword}
	}
	return profile, nil
}

// Profile finds the profile entry with the given name. An empty name selects the first entry.
func (c *Config) Profile(name string) (models.Profile, error) {
	for _, p := range c.Profiles {
		if name == "" || p.Name == name {
			return p.Profile()
		}
	}
	if name == "" {
		return models.Profile{}, fmt.Errorf("%w: no profiles configured", ErrProfileNotFound)
	}
	return models.Profile{}, fmt.Errorf("%w: %s", ErrProfileNotFound, name)
}

// Timeout returns the HTTP client timeout.
func (c *Config) Timeout() time.Duration {
	if c.HTTP.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// LogLevel parses the configured level, defaulting to info.
func (c *Config) LogLevel() log.Level {
	if c.Log.Level == "" {
		return log.InfoLevel
	}
	lvl, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile writes the example configuration to path, giving every profile a fresh id.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	config := DefaultConfig()
	for i := range config.Profiles {
		if config.Profiles[i].ID == "" {
			config.Profiles[i].ID = GenerateID()
		}
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
