package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/packsmith/packsmith/pkg/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "packsmith.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
[version]
suffix = "jboss"
padding = 5
version_override = ""

[dependencies]
express = "4.16.5"

[dev_dependencies]
grunt = "~1.0.1"

[registry]
url = "https://registry.example.com"
enabled = true
cache_ttl = "1h"

[cache]
backend = "redis"
redis_addr = "cache.internal:6379"
redis_db = 2

[report]
enabled = true
mongo_uri = "mongodb://localhost:27017"
mongo_db = "builds"
`)

	cfg, err := Load(path, true)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Version.Suffix != "jboss" {
		t.Errorf("Suffix = %q, want jboss", cfg.Version.Suffix)
	}
	if cfg.Version.Padding != 5 {
		t.Errorf("Padding = %d, want 5", cfg.Version.Padding)
	}
	if cfg.Dependencies["express"] != "4.16.5" {
		t.Errorf("Dependencies = %v", cfg.Dependencies)
	}
	if cfg.DevDependencies["grunt"] != "~1.0.1" {
		t.Errorf("DevDependencies = %v", cfg.DevDependencies)
	}
	if cfg.Registry.URL != "https://registry.example.com" {
		t.Errorf("Registry.URL = %q", cfg.Registry.URL)
	}
	if cfg.Registry.CacheTTL.Std() != time.Hour {
		t.Errorf("CacheTTL = %v, want 1h", cfg.Registry.CacheTTL.Std())
	}
	if cfg.Cache.Backend != CacheBackendRedis || cfg.Cache.RedisAddr != "cache.internal:6379" || cfg.Cache.RedisDB != 2 {
		t.Errorf("Cache = %+v", cfg.Cache)
	}
	if !cfg.Report.Enabled || cfg.Report.MongoDB != "builds" {
		t.Errorf("Report = %+v", cfg.Report)
	}
}

func TestLoadMissingDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "packsmith.toml")

	cfg, err := Load(path, false)
	if err != nil {
		t.Fatalf("Load of a missing default file should fall back to defaults: %v", err)
	}
	if cfg.Version.Suffix != "rebuild" {
		t.Errorf("Suffix = %q, want default rebuild", cfg.Version.Suffix)
	}
	if !cfg.Registry.Enabled {
		t.Error("Registry.Enabled should default to true")
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.toml")

	if _, err := Load(path, true); err == nil {
		t.Fatal("Load of a missing explicit file should fail")
	}
}

func TestLoadUnknownKey(t *testing.T) {
	path := writeConfig(t, `
[version]
sufix = "typo"
`)

	_, err := Load(path, true)
	if err == nil {
		t.Fatal("Load should reject unknown keys")
	}
	if !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("error code = %v, want INVALID_CONFIG", errors.GetCode(err))
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "padding too large",
			mutate:  func(c *Config) { c.Version.Padding = 11 },
			wantErr: true,
		},
		{
			name:    "negative padding",
			mutate:  func(c *Config) { c.Version.Padding = -1 },
			wantErr: true,
		},
		{
			name:    "unknown cache backend",
			mutate:  func(c *Config) { c.Cache.Backend = "memcached" },
			wantErr: true,
		},
		{
			name: "redis backend without addr",
			mutate: func(c *Config) {
				c.Cache.Backend = CacheBackendRedis
				c.Cache.RedisAddr = ""
			},
			wantErr: true,
		},
		{
			name:   "none backend",
			mutate: func(c *Config) { c.Cache.Backend = CacheBackendNone },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
