// Package config loads syncd's process configuration from environment
// variables, optionally seeded/overridden by a YAML file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the daemon's full runtime configuration.
type Config struct {
	Env string `yaml:"env"`

	WebDAVURL      string `yaml:"webdavUrl"`
	WebDAVUser     string `yaml:"webdavUser"`
	WebDAVPassword string `yaml:"webdavPassword"`
	RemoteRoot     string `yaml:"remoteRoot"`

	DataDir        string `yaml:"dataDir"`
	EnableDebugLog bool   `yaml:"enableDebugLog"`
	UseLegacySync  bool   `yaml:"useLegacySync"`

	ControlAddr      string        `yaml:"controlAddr"`
	ControlJWTSecret string        `yaml:"-"`
	ConflictTimeout  time.Duration `yaml:"-"`

	SyncIntervalSeconds int `yaml:"syncIntervalSeconds"`
}

// env reads an environment variable, falling back to def when unset or
// empty, mirroring the teacher's cmd/server/main.go helper.
func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envBool(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// Load builds a Config from the environment, then applies an optional
// SYNCD_CONFIG_FILE YAML override on top.
func Load() (*Config, error) {
	cfg := &Config{
		Env:                 env("ENV", ""),
		WebDAVURL:           env("SYNCD_WEBDAV_URL", ""),
		WebDAVUser:          env("SYNCD_WEBDAV_USER", ""),
		WebDAVPassword:      env("SYNCD_WEBDAV_PASSWORD", ""),
		RemoteRoot:          env("SYNCD_REMOTE_ROOT", "/flashnote/"),
		DataDir:             env("SYNCD_DATA_DIR", defaultDataDir()),
		EnableDebugLog:      envBool("SYNCD_ENABLE_DEBUG_LOG", false),
		UseLegacySync:       envBool("SYNCD_USE_LEGACY_SYNC", false),
		ControlAddr:         env("SYNCD_CONTROL_ADDR", "127.0.0.1:8765"),
		ControlJWTSecret:    env("SYNCD_CONTROL_JWT_SECRET", ""),
		SyncIntervalSeconds: envInt("SYNCD_SYNC_INTERVAL_SECONDS", 300),
	}
	cfg.ConflictTimeout = time.Duration(envInt("SYNCD_CONFLICT_TIMEOUT_SECONDS", 30)) * time.Second

	if file := env("SYNCD_CONFIG_FILE", ""); file != "" {
		if err := cfg.mergeYAMLFile(file); err != nil {
			return nil, fmt.Errorf("config: loading %s: %w", file, err)
		}
	}

	return cfg, nil
}

func (c *Config) mergeYAMLFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

func defaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".flashnote-syncd"
	}
	return dir + "/flashnote-syncd"
}

// ErrMissingWebDAVURL and friends are returned by Validate for missing
// required fields, so main can log.Fatal() with a precise cause.
var (
	ErrMissingWebDAVURL = fmt.Errorf("config: SYNCD_WEBDAV_URL is required")
	ErrMissingDataDir   = fmt.Errorf("config: data directory could not be determined")
)

// Validate checks that required fields are present and sane, in the style
// of the teacher's mcpserver config.Validate().
func (c *Config) Validate() error {
	if c.WebDAVURL == "" {
		return ErrMissingWebDAVURL
	}
	if c.DataDir == "" {
		return ErrMissingDataDir
	}
	if c.SyncIntervalSeconds <= 0 {
		return fmt.Errorf("config: syncIntervalSeconds must be positive, got %d", c.SyncIntervalSeconds)
	}
	return nil
}

// IsDev reports whether ENV is explicitly "dev", the same gate the
// teacher uses for console logging and relaxed JWT handling.
func (c *Config) IsDev() bool { return c.Env == "dev" }
