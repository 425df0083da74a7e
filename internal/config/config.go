// Package config loads the mailsift TOML configuration file.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `toml:"host"`
	Port     string `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Name     string `toml:"name"`
	TLSMode  bool   `toml:"tls"`
}

// GmailConfig holds Gmail credential settings.
type GmailConfig struct {
	// CredentialsDir is where the OAuth client secret and token cache live.
	CredentialsDir string `toml:"credentials_dir"`
}

// FetchConfig holds fetch tuning defaults, overridable per run by flags.
type FetchConfig struct {
	PageSize int `toml:"page_size"`
	RPS      int `toml:"rps"`
}

// Config is the root of the TOML file.
type Config struct {
	Rules    string         `toml:"rules"`
	Database DatabaseConfig `toml:"database"`
	Gmail    GmailConfig    `toml:"gmail"`
	Fetch    FetchConfig    `toml:"fetch"`
}

// Default returns a config populated with the built-in defaults.
func Default() Config {
	return Config{
		Rules: "email_rules.json",
		Database: DatabaseConfig{
			Host: "localhost",
			Port: "5432",
			Name: "mailsift",
		},
		Gmail: GmailConfig{
			CredentialsDir: os.ExpandEnv("$HOME/.mailsift"),
		},
		Fetch: FetchConfig{
			PageSize: 100,
			RPS:      4,
		},
	}
}

// Load reads the TOML file at path on top of the defaults and validates the
// result.
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the settings a run cannot proceed without.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.Host) == "" {
		return fmt.Errorf("database.host must be set")
	}
	if strings.TrimSpace(c.Database.User) == "" {
		return fmt.Errorf("database.user must be set")
	}
	if strings.TrimSpace(c.Database.Name) == "" {
		return fmt.Errorf("database.name must be set")
	}
	if strings.TrimSpace(c.Rules) == "" {
		return fmt.Errorf("rules path must be set")
	}
	if c.Fetch.PageSize <= 0 || c.Fetch.PageSize > 500 {
		return fmt.Errorf("fetch.page_size must be within 1..500, got %d", c.Fetch.PageSize)
	}
	if c.Fetch.RPS <= 0 {
		return fmt.Errorf("fetch.rps must be positive, got %d", c.Fetch.RPS)
	}
	return nil
}
