package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nickyhof/TupleDB/ps"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.NoError(t, cfg.Validate())
	assert.Nil(t, cfg.RemoteConfig())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tupledb.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_dir: /var/lib/tupledb
identity:
  name: Ann
  email: ann@example.com
server:
  auth:
    enabled: true
    jwt_secret: s3cret
    issuer: tupledb
    max_age: 1h
remote:
  region: eu-west-1
  endpoint: http://localhost:9000
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/tupledb", cfg.DataDir)
	assert.Equal(t, ps.DefaultSchemaFile, cfg.SchemaFile)
	assert.Equal(t, "Ann <ann@example.com>", cfg.CoreIdentity().String())
	assert.Equal(t, "127.0.0.1:3306", cfg.Server.Addr)
	assert.True(t, cfg.Server.Auth.Enabled)
	assert.Equal(t, "tupledb", cfg.Server.Auth.Issuer)
	assert.Equal(t, time.Hour, cfg.Server.Auth.MaxAge)
	assert.Equal(t, &ps.RemoteConfig{Region: "eu-west-1", Endpoint: "http://localhost:9000"}, cfg.RemoteConfig())
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("server: [\n"), 0o600))
	_, err = Load(bad)
	require.ErrorContains(t, err, "parse config")

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("server:\n  auth:\n    enabled: true\n"), 0o600))
	_, err = Load(invalid)
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(cfg *Config)
	}{
		{"missing identity name", func(cfg *Config) { cfg.Identity.Name = "" }},
		{"missing identity email", func(cfg *Config) { cfg.Identity.Email = "" }},
		{"auth without secret", func(cfg *Config) { cfg.Server.Auth.Enabled = true }},
		{"tls cert without key", func(cfg *Config) { cfg.Server.TLSCert = "cert.pem" }},
		{"negative max age", func(cfg *Config) { cfg.Server.Auth.MaxAge = -time.Second }},
		{"unknown log level", func(cfg *Config) { cfg.LogLevel = "loud" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "tupledb.yaml")

	cfg := Default()
	cfg.DataDir = "data"
	cfg.Remote.AccessKey = "key"
	cfg.Remote.SecretKey = "secret"
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestPersistence(t *testing.T) {
	cfg := Default()
	cfg.SchemaFile = "catalog.txt"

	memory, err := cfg.Persistence()
	require.NoError(t, err)
	assert.True(t, memory.IsMemoryMode())
	assert.Equal(t, "catalog.txt", memory.SchemaFile())

	cfg.DataDir = t.TempDir()
	file, err := cfg.Persistence()
	require.NoError(t, err)
	assert.False(t, file.IsMemoryMode())
}
