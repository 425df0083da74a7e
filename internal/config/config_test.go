package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mailsift.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
[database]
user = "mailsift"
password = "secret"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Database.Host != "localhost" {
		t.Fatalf("host default = %q", cfg.Database.Host)
	}
	if cfg.Database.Port != "5432" {
		t.Fatalf("port default = %q", cfg.Database.Port)
	}
	if cfg.Database.Name != "mailsift" {
		t.Fatalf("name default = %q", cfg.Database.Name)
	}
	if cfg.Rules != "email_rules.json" {
		t.Fatalf("rules default = %q", cfg.Rules)
	}
	if cfg.Fetch.PageSize != 100 || cfg.Fetch.RPS != 4 {
		t.Fatalf("fetch defaults = %+v", cfg.Fetch)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
rules = "work_rules.json"

[database]
host = "db.internal"
port = "5433"
user = "svc"
password = "secret"
name = "mailbox"
tls = true

[gmail]
credentials_dir = "/var/lib/mailsift"

[fetch]
page_size = 250
rps = 2
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Database.Host != "db.internal" || cfg.Database.Port != "5433" || !cfg.Database.TLSMode {
		t.Fatalf("database = %+v", cfg.Database)
	}
	if cfg.Gmail.CredentialsDir != "/var/lib/mailsift" {
		t.Fatalf("credentials dir = %q", cfg.Gmail.CredentialsDir)
	}
	if cfg.Fetch.PageSize != 250 || cfg.Fetch.RPS != 2 {
		t.Fatalf("fetch = %+v", cfg.Fetch)
	}
	if cfg.Rules != "work_rules.json" {
		t.Fatalf("rules = %q", cfg.Rules)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing-user", mutate: func(c *Config) { c.Database.User = "" }, wantErr: true},
		{name: "missing-host", mutate: func(c *Config) { c.Database.Host = "" }, wantErr: true},
		{name: "missing-name", mutate: func(c *Config) { c.Database.Name = "" }, wantErr: true},
		{name: "missing-rules", mutate: func(c *Config) { c.Rules = "" }, wantErr: true},
		{name: "page-size-too-big", mutate: func(c *Config) { c.Fetch.PageSize = 1000 }, wantErr: true},
		{name: "zero-rps", mutate: func(c *Config) { c.Fetch.RPS = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			cfg.Database.User = "svc"
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Fatalf("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
