package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "negative parallelism",
			mutate: func(cfg *Config) {
				cfg.Parallelism = -1
			},
			wantErr: "parallelism",
		},
		{
			name: "empty index url",
			mutate: func(cfg *Config) {
				cfg.IndexURL = ""
			},
			wantErr: "index URL",
		},
		{
			name: "index url without host",
			mutate: func(cfg *Config) {
				cfg.IndexURL = "http://"
			},
			wantErr: "index URL",
		},
		{
			name: "empty site origin",
			mutate: func(cfg *Config) {
				cfg.SiteOrigin = ""
			},
			wantErr: "site origin",
		},
		{
			name: "negative timeout",
			mutate: func(cfg *Config) {
				cfg.Timeout = -1 * time.Second
			},
			wantErr: "timeout",
		},
		{
			name: "negative max body size",
			mutate: func(cfg *Config) {
				cfg.MaxBodySize = -1
			},
			wantErr: "max body size",
		},
		{
			name: "unknown output format",
			mutate: func(cfg *Config) {
				cfg.OutputFormat = "xml"
			},
			wantErr: "output format",
		},
		{
			name: "missing card selector",
			mutate: func(cfg *Config) {
				cfg.Selectors.Card = ""
			},
			wantErr: "selectors.card",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
	if cfg.OutputFile != "data.json" {
		t.Fatalf("output file = %q, want data.json", cfg.OutputFile)
	}
	if cfg.Parallelism != 1 {
		t.Fatalf("parallelism = %d, want 1", cfg.Parallelism)
	}
}

func TestAllowedHosts(t *testing.T) {
	cfg := DefaultConfig()
	hosts := cfg.AllowedHosts()
	if len(hosts) != 1 || hosts[0] != "www.ubisoft.com" {
		t.Fatalf("hosts = %v, want [www.ubisoft.com]", hosts)
	}

	cfg.IndexURL = "http://index.test/operators"
	cfg.SiteOrigin = "http://detail.test"
	hosts = cfg.AllowedHosts()
	if len(hosts) != 2 {
		t.Fatalf("hosts = %v, want two hosts", hosts)
	}
}

func TestLoadFileOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	contents := `
output_file: out/operators.json
parallelism: 4
timeout: 5s
selectors:
  card: .card
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.OutputFile != "out/operators.json" {
		t.Fatalf("output file = %q", cfg.OutputFile)
	}
	if cfg.Parallelism != 4 {
		t.Fatalf("parallelism = %d, want 4", cfg.Parallelism)
	}
	if cfg.Timeout != 5*time.Second {
		t.Fatalf("timeout = %v, want 5s", cfg.Timeout)
	}
	if cfg.Selectors.Card != ".card" {
		t.Fatalf("card selector = %q, want .card", cfg.Selectors.Card)
	}
	if cfg.Selectors.Icon != DefaultSelectors().Icon {
		t.Fatalf("icon selector should keep its default, got %q", cfg.Selectors.Icon)
	}
}

func TestLoadFileRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("parallelism: 0\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadFile(path); err == nil || !strings.Contains(err.Error(), "parallelism") {
		t.Fatalf("expected parallelism validation error, got %v", err)
	}
}

func TestLoadFileUnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("paralelism: 2\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatalf("expected unknown key error")
	}
}

func TestLoadFileEmptyPath(t *testing.T) {
	cfg, err := LoadFile("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.IndexURL != DefaultConfig().IndexURL {
		t.Fatalf("expected defaults for empty path")
	}
}

func TestEnvInt(t *testing.T) {
	t.Setenv("SCRAPER_TEST_INT", "7")
	value, ok, err := EnvInt("SCRAPER_TEST_INT")
	if err != nil || !ok || value != 7 {
		t.Fatalf("EnvInt = %d, %v, %v; want 7, true, nil", value, ok, err)
	}

	t.Setenv("SCRAPER_TEST_INT", "seven")
	if _, _, err := EnvInt("SCRAPER_TEST_INT"); err == nil {
		t.Fatalf("expected parse error")
	}

	if _, ok, err := EnvInt("SCRAPER_TEST_UNSET"); ok || err != nil {
		t.Fatalf("unset variable should report ok=false, err=nil")
	}
}
