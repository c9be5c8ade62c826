package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// envToken is the environment variable that overrides the stored token.
const envToken = "NOTION_TOKEN"

// Config holds all application configuration.
type Config struct {
	General GeneralConfig `mapstructure:"general"`
	API     APIConfig     `mapstructure:"api"`
	Cache   CacheConfig   `mapstructure:"cache"`
	// Databases maps short aliases to database IDs.
	Databases map[string]string `mapstructure:"databases"`
}

type GeneralConfig struct {
	DefaultDatabase string `mapstructure:"default_database"`
	DefaultLimit    int    `mapstructure:"default_limit"`
	AccountID       string `mapstructure:"account_id"`
}

type APIConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
	PageSize       int `mapstructure:"page_size"`
}

type CacheConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Path       string `mapstructure:"path"`
	TTLSeconds int    `mapstructure:"ttl_seconds"`
}

// GetDefaults returns a Config with all default values.
func GetDefaults() *Config {
	return &Config{
		General: GeneralConfig{
			DefaultLimit: 100,
			AccountID:    "default",
		},
		API: APIConfig{
			TimeoutSeconds: 30,
			PageSize:       100,
		},
		Cache: CacheConfig{
			Enabled:    true,
			TTLSeconds: 120,
		},
		Databases: map[string]string{},
	}
}

// Dir returns the configuration directory, creating it if needed.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config directory: %w", err)
	}
	dir := filepath.Join(base, "notion-cli")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return dir, nil
}

// Load loads configuration from config.toml, falling back to defaults when
// no file exists.
func Load() (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	return LoadFrom(dir)
}

// LoadFrom loads configuration from a specific directory.
func LoadFrom(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(dir)

	v.SetDefault("general.default_database", "")
	v.SetDefault("general.default_limit", 100)
	v.SetDefault("general.account_id", "default")
	v.SetDefault("api.timeout_seconds", 30)
	v.SetDefault("api.page_size", 100)
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.path", "")
	v.SetDefault("cache.ttl_seconds", 120)
	v.SetDefault("databases", map[string]string{})

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// Save writes the configuration to config.toml in dir.
func Save(cfg *Config, dir string) error {
	v := viper.New()
	v.SetConfigType("toml")

	v.Set("general.default_database", cfg.General.DefaultDatabase)
	v.Set("general.default_limit", cfg.General.DefaultLimit)
	v.Set("general.account_id", cfg.General.AccountID)
	v.Set("api.timeout_seconds", cfg.API.TimeoutSeconds)
	v.Set("api.page_size", cfg.API.PageSize)
	v.Set("cache.enabled", cfg.Cache.Enabled)
	v.Set("cache.path", cfg.Cache.Path)
	v.Set("cache.ttl_seconds", cfg.Cache.TTLSeconds)
	v.Set("databases", cfg.Databases)

	path := filepath.Join(dir, "config.toml")
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// ResolveDatabase maps a database alias to its ID. Unknown names are
// returned unchanged so callers can still pass titles or raw IDs.
func (c *Config) ResolveDatabase(name string) string {
	if id, ok := c.Databases[name]; ok {
		return id
	}
	return name
}

// EnvToken returns the token from the environment, if set.
func EnvToken() string {
	return os.Getenv(envToken)
}
