// Package config reads the YAML settings shared by the TupleDB CLI and server.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nickyhof/TupleDB/core"
	"github.com/nickyhof/TupleDB/ps"
	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config represents a tupledb.yaml file.
type Config struct {
	DataDir    string   `yaml:"data_dir,omitempty"`
	SchemaFile string   `yaml:"schema_file,omitempty"`
	Identity   Identity `yaml:"identity"`
	Server     Server   `yaml:"server"`
	Remote     Remote   `yaml:"remote,omitempty"`
	LogLevel   string   `yaml:"log_level,omitempty"`
}

type Identity struct {
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
}

type Server struct {
	Addr    string `yaml:"addr"`
	TLSCert string `yaml:"tls_cert,omitempty"`
	TLSKey  string `yaml:"tls_key,omitempty"`
	Auth    Auth   `yaml:"auth"`
}

// Auth configures JWT authentication for the TCP server.
type Auth struct {
	Enabled   bool          `yaml:"enabled"`
	JWTSecret string        `yaml:"jwt_secret,omitempty"`
	Issuer    string        `yaml:"issuer,omitempty"`
	Audience  string        `yaml:"audience,omitempty"`
	MaxAge    time.Duration `yaml:"max_age,omitempty"`
}

// Remote holds S3 settings for import and export. Empty fields fall back to
// the AWS default credential chain.
type Remote struct {
	Region    string `yaml:"region,omitempty"`
	Endpoint  string `yaml:"endpoint,omitempty"`
	AccessKey string `yaml:"access_key,omitempty"`
	SecretKey string `yaml:"secret_key,omitempty"`
}

// Default returns an in-memory configuration listening on localhost.
func Default() *Config {
	return &Config{
		SchemaFile: ps.DefaultSchemaFile,
		Identity:   Identity{Name: "TupleDB User", Email: "user@tupledb.local"},
		Server:     Server{Addr: "127.0.0.1:3306"},
		LogLevel:   "info",
	}
}

// Load reads path on top of the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path, creating parent directories.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

func (cfg *Config) Validate() error {
	if cfg.Identity.Name == "" || cfg.Identity.Email == "" {
		return fmt.Errorf("%w: identity needs a name and an email", ErrInvalidConfig)
	}
	if cfg.Server.Auth.Enabled && cfg.Server.Auth.JWTSecret == "" {
		return fmt.Errorf("%w: server auth is enabled without a jwt_secret", ErrInvalidConfig)
	}
	if (cfg.Server.TLSCert == "") != (cfg.Server.TLSKey == "") {
		return fmt.Errorf("%w: server tls_cert and tls_key must be set together", ErrInvalidConfig)
	}
	if cfg.Server.Auth.MaxAge < 0 {
		return fmt.Errorf("%w: negative server auth max_age", ErrInvalidConfig)
	}
	switch cfg.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log_level %q", ErrInvalidConfig, cfg.LogLevel)
	}
	return nil
}

func (cfg *Config) CoreIdentity() core.Identity {
	return core.Identity{Name: cfg.Identity.Name, Email: cfg.Identity.Email}
}

// RemoteConfig returns the S3 settings, or nil when none are set.
func (cfg *Config) RemoteConfig() *ps.RemoteConfig {
	if cfg.Remote == (Remote{}) {
		return nil
	}
	return &ps.RemoteConfig{
		AccessKey: cfg.Remote.AccessKey,
		SecretKey: cfg.Remote.SecretKey,
		Region:    cfg.Remote.Region,
		Endpoint:  cfg.Remote.Endpoint,
	}
}

// Persistence opens the configured data directory, or an in-memory
// repository when none is set.
func (cfg *Config) Persistence(opts ...ps.Option) (*ps.Persistence, error) {
	opts = append([]ps.Option{ps.WithSchemaFile(cfg.SchemaFile)}, opts...)
	if cfg.DataDir == "" {
		return ps.NewMemoryPersistence(opts...)
	}
	return ps.NewFilePersistence(cfg.DataDir, opts...)
}
