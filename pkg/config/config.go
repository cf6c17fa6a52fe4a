// Package config loads packsmith.toml configuration files.
//
// Configuration precedence is flag > file > default: the CLI loads the file
// through [Load], then overlays explicitly set flags on the result. A
// missing file is not an error; [Default] values apply.
package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/packsmith/packsmith/pkg/errors"
)

// DefaultFileName is the configuration file packsmith looks for in the
// working directory when --config is not given.
const DefaultFileName = "packsmith.toml"

// Cache backends selectable via [Cache].Backend.
const (
	CacheBackendFile  = "file"
	CacheBackendRedis = "redis"
	CacheBackendNone  = "none"
)

// Duration is a time.Duration that unmarshals from TOML strings like "24h".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Version configures the version suffix generator.
type Version struct {
	Suffix          string `toml:"suffix"`
	Padding         int    `toml:"padding"`
	SuffixOverride  string `toml:"suffix_override"`
	VersionOverride string `toml:"version_override"`
}

// Registry configures npm registry access.
type Registry struct {
	URL      string   `toml:"url"`
	Enabled  bool     `toml:"enabled"`
	CacheTTL Duration `toml:"cache_ttl"`
}

// Cache configures the registry response cache backend.
type Cache struct {
	Backend       string `toml:"backend"`
	Dir           string `toml:"dir"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
}

// Report configures run report storage.
type Report struct {
	Enabled  bool   `toml:"enabled"`
	Dir      string `toml:"dir"`
	MongoURI string `toml:"mongo_uri"`
	MongoDB  string `toml:"mongo_db"`
}

// Config is the full packsmith configuration.
type Config struct {
	Version         Version           `toml:"version"`
	Dependencies    map[string]string `toml:"dependencies"`
	DevDependencies map[string]string `toml:"dev_dependencies"`
	Registry        Registry          `toml:"registry"`
	Cache           Cache             `toml:"cache"`
	Report          Report            `toml:"report"`
}

// Default returns the configuration used when no file and no flags are
// given.
func Default() *Config {
	return &Config{
		Version: Version{
			Suffix:  "rebuild",
			Padding: 5,
		},
		Registry: Registry{
			Enabled:  true,
			CacheTTL: Duration(24 * time.Hour),
		},
		Cache: Cache{
			Backend:   CacheBackendFile,
			RedisAddr: "localhost:6379",
		},
		Report: Report{
			MongoDB: "packsmith",
		},
	}
}

// Load reads the configuration file at path on top of Default and
// validates the result. A missing file at the default location yields the
// defaults; a missing file at an explicit path is an error, which the
// caller distinguishes by passing explicit=true.
func Load(path string, explicit bool) (*Config, error) {
	cfg := Default()

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "loading %s", path)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown key %q in %s", undecoded[0].String(), path)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field ranges and cross-field requirements.
func (c *Config) Validate() error {
	if c.Version.Padding < 0 || c.Version.Padding > 10 {
		return errors.New(errors.ErrCodeInvalidConfig, "version padding %d out of range 0..10", c.Version.Padding)
	}

	switch c.Cache.Backend {
	case CacheBackendFile, CacheBackendNone:
	case CacheBackendRedis:
		if c.Cache.RedisAddr == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "cache backend %q requires redis_addr", c.Cache.Backend)
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown cache backend %q", c.Cache.Backend)
	}

	if c.Registry.CacheTTL < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "registry cache_ttl must not be negative")
	}
	return nil
}
